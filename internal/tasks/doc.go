// Package tasks runs profile downloads in the background under numeric
// task IDs.
//
// A Manager wraps any lpa.Backend and implements lpa.Engine. Task IDs start
// at 1 and only grow; lpa.NoTask (-1) means no task. Each task keeps its
// latest event, so a watcher that attaches late (for example a wizard
// restored from disk) sees the current stage at once, and a finished task
// stays queryable until it falls out of the bounded history.
package tasks
