// Package logging provides structured logging for esimctl and esimd.
//
// This package wraps a global zap logger with convenience functions. Console
// output is silent unless ESIMCTL_LOG_LEVEL is set, so full-screen terminal
// UIs are never disturbed. Interactive commands additionally tee JSON lines
// into a self-log file in the state directory; that file is what the log
// viewer shows and exports.
//
// # Log Levels
//
//   - Debug: protocol payloads, lpac progress lines, preference writes
//   - Info: wizard transitions, download tasks, daemon connections
//   - Warn: recoverable issues (notification processing failed, retries)
//   - Error: failures surfaced to the user
//
// The self-log level is info by default and switches to debug when the
// verbose_logging preference is enabled (see SetVerbose).
//
// # Structured Logging
//
//	logging.Info("Download task started",
//	    zap.Int64("task_id", id),
//	    zap.Int("slot", req.Slot),
//	    zap.String("smdp", req.SMDP),
//	)
//
// # Configuration
//
//	if err := logging.InitializeWithFile("", logPath); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
