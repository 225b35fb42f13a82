// Package ui holds the terminal styling shared by every esimctl surface.
//
// Full-screen views (wizard, settings, log viewer) wrap their content in
// RenderApplicationContainer so they share one header and footer layout.
// One-shot commands print through a Printer: header boxes, aligned tables
// and success, warning or error result boxes. Progress renders a bar plus an
// ordered stage list and is used both by the wizard's progress step and by
// the non-interactive download.
//
// Logging stays out of the way of this output: zap writes to the console
// only when ESIMCTL_LOG_LEVEL is set.
package ui
