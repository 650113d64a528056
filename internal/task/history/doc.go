// Package history persists scheduler run records and prunes old ones.
//
// The Recorder consumes eventbus.TypeActivityRun events; storage failures are
// logged and never reach the scheduler.
package history
