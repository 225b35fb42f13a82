// Package logview shows a log in a scrolling viewport and saves it to a
// file.
//
// The source is either text supplied by the caller or a file that is read
// again on every refresh, normally esimctl's own log. Saving writes exactly
// the displayed text; an empty destination saves nothing.
package logview
