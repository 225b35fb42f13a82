package lpa

import "context"

// Engine runs downloads as tasks. The wizard, the CLI and the daemon all
// talk to an Engine; tasks.Manager and remote.Client implement it.
type Engine interface {
	// Slots lists the readers a download can target.
	Slots(ctx context.Context) ([]Slot, error)

	// StartDownload dispatches a download and returns its task ID without
	// waiting for it to finish.
	StartDownload(ctx context.Context, req DownloadRequest) (TaskID, error)

	// Watch streams the events of a task. The channel carries the latest
	// known event first and is closed after the final (Done) event or when
	// ctx is done.
	Watch(ctx context.Context, id TaskID) (<-chan Progress, error)
}

// ReportFunc receives progress from a Backend while a download runs.
type ReportFunc func(stage Stage, percent int)

// Backend performs one download synchronously. A failed download returns a
// *DownloadError.
type Backend interface {
	Slots(ctx context.Context) ([]Slot, error)
	Download(ctx context.Context, req DownloadRequest, report ReportFunc) error
}
