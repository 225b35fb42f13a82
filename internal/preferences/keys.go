package preferences

import (
	"errors"
	"sort"
)

// Key names one boolean preference.
type Key string

// Preference keys. The string values are what appears in preferences.yaml.
const (
	NotificationDownload          Key = "notification_download"
	NotificationDelete            Key = "notification_delete"
	NotificationSwitch            Key = "notification_switch"
	DisableSafeguardRemovableESIM Key = "disable_safeguard_removable_esim"
	VerboseLogging                Key = "verbose_logging"
	UnfilteredProfileList         Key = "unfiltered_profile_list"
	IgnoreTLSCertificate          Key = "ignore_tls_certificate"
	DeveloperOptionsEnabled       Key = "developer_options_enabled"
)

// ErrUnknownKey is returned for keys outside the known set.
var ErrUnknownKey = errors.New("unknown preference key")

// defaults holds every known key. Notifications default on, everything else off.
var defaults = map[Key]bool{
	NotificationDownload:          true,
	NotificationDelete:            true,
	NotificationSwitch:            true,
	DisableSafeguardRemovableESIM: false,
	VerboseLogging:                false,
	UnfilteredProfileList:         false,
	IgnoreTLSCertificate:          false,
	DeveloperOptionsEnabled:       false,
}

// Default returns the built-in value for key.
func Default(key Key) (bool, error) {
	v, ok := defaults[key]
	if !ok {
		return false, ErrUnknownKey
	}
	return v, nil
}

// Valid reports whether key is a known preference.
func (k Key) Valid() bool {
	_, ok := defaults[k]
	return ok
}

// Keys returns all known keys in a stable order.
func Keys() []Key {
	keys := make([]Key, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
