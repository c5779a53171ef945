// Package runner dispatches regression jobs and tracks their completion.
//
// A run is driven by the Dispatcher. For every enabled testlist entry it asks
// the Builder for a Job (seed, log path, artifact prefix and the rendered
// simulator command) and hands it to a Backend:
//
//   - the local backend runs the job in the foreground and returns once the
//     process exits, so jobs run strictly one after the other;
//   - the batch backend prefixes the command with a queue submission command
//     (eg. bsub) and returns as soon as the queue accepts it.
//
// Batch jobs are invisible to the dispatcher once submitted. The Poller
// watches their logs for DoneMarker and counts generated artifacts every
// cycle, until every job has completed or the cycle budget runs out.
package runner
