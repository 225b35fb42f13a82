// Package preferences is the persisted, reactive key-value store behind the
// settings screen.
//
// Values are booleans keyed by Key and stored in preferences.yaml. Reads are
// subscriptions: Subscribe delivers the current value and then every change,
// including changes made by another process, which Watch picks up through
// fsnotify.
//
//	repo, err := preferences.OpenDefault()
//	if err != nil {
//	    return err
//	}
//	go repo.Watch(ctx)
//
//	verbose, _ := repo.Subscribe(ctx, preferences.VerboseLogging)
//	for v := range verbose {
//	    logging.SetVerbose(v)
//	}
package preferences
