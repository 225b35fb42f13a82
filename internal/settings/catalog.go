package settings

import (
	"github.com/esimkit/esimctl/internal/preferences"
	"github.com/esimkit/esimctl/internal/version"
)

// ItemKind says what selecting an item does.
type ItemKind int

const (
	// ItemToggle flips a boolean preference.
	ItemToggle ItemKind = iota
	// ItemVersion shows the version; tapping it unlocks developer options.
	ItemVersion
	// ItemLogs opens the log viewer.
	ItemLogs
)

// Item is one row of the settings screen.
type Item struct {
	Kind    ItemKind
	Title   string
	Summary string
	Key     preferences.Key
}

// Category groups items under a heading.
type Category struct {
	Title string
	// Developer categories are only shown once developer options are enabled.
	Developer bool
	Items     []Item
}

// Catalog returns the settings screen layout.
func Catalog() []Category {
	return []Category{
		{
			Title: "Notifications",
			Items: []Item{
				{Kind: ItemToggle, Key: preferences.NotificationDownload, Title: "Download",
					Summary: "Send the SM-DP+ notification after a profile is installed"},
				{Kind: ItemToggle, Key: preferences.NotificationDelete, Title: "Delete",
					Summary: "Send the notification after a profile is deleted"},
				{Kind: ItemToggle, Key: preferences.NotificationSwitch, Title: "Switch",
					Summary: "Send notifications when profiles are enabled or disabled"},
			},
		},
		{
			Title: "Advanced",
			Items: []Item{
				{Kind: ItemToggle, Key: preferences.DisableSafeguardRemovableESIM, Title: "Allow disabling the active profile",
					Summary: "Lets the profile in use on a removable eUICC be switched off"},
				{Kind: ItemToggle, Key: preferences.VerboseLogging, Title: "Verbose logging",
					Summary: "Write debug detail to the log file"},
				{Kind: ItemLogs, Title: "Logs",
					Summary: "View and save the log"},
			},
		},
		{
			Title:     "Developer options",
			Developer: true,
			Items: []Item{
				{Kind: ItemToggle, Key: preferences.UnfilteredProfileList, Title: "Show all profiles",
					Summary: "Include provisioning and test profiles in lists"},
				{Kind: ItemToggle, Key: preferences.IgnoreTLSCertificate, Title: "Ignore TLS certificates",
					Summary: "Accept any certificate from esimd daemons"},
			},
		},
		{
			Title: "Info",
			Items: []Item{
				{Kind: ItemVersion, Title: "App version", Summary: version.Full()},
			},
		},
	}
}

// BoundKeys returns every preference the screen subscribes to: each toggle
// plus the developer flag that controls visibility.
func BoundKeys(catalog []Category) []preferences.Key {
	seen := map[preferences.Key]bool{preferences.DeveloperOptionsEnabled: true}
	keys := []preferences.Key{preferences.DeveloperOptionsEnabled}
	for _, c := range catalog {
		for _, it := range c.Items {
			if it.Kind == ItemToggle && !seen[it.Key] {
				seen[it.Key] = true
				keys = append(keys, it.Key)
			}
		}
	}
	return keys
}
