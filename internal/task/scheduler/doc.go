// Package scheduler runs periodic activities.
//
// An activity invokes its Work immediately on registration and then again
// every interval, where the interval is measured from the end of one
// invocation to the start of the next. Errors and panics from Work are logged
// and never stop the loop. Activities are cancelled individually, in bulk via
// CancelAll, or for good via Shutdown.
//
// Each Scheduler is an independent value; there is no package-level instance.
package scheduler
