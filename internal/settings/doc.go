// Package settings is the preference screen.
//
// Every checkbox is bound to a preference through a subscription that is
// re-armed after each value, so edits made elsewhere (another esimctl, or
// the file itself) show up immediately. Toggling writes once and leaves the
// checkbox alone until the new value comes back.
//
// Tapping "App version" seven times in quick succession enables the hidden
// developer options category.
package settings
