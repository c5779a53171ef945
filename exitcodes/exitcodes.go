// Package exitcodes defines the standard exit codes used by gen-regress.
package exitcodes

// Exit code constants used by gen-regress
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when every job completed
// * JobFailure (1): Used when one or more jobs failed to submit or run
// * RuntimeErr (2): Used for configuration errors, panics and poll timeouts
const (
	Success    = 0 // All jobs completed
	JobFailure = 1 // Job submission or execution failures
	RuntimeErr = 2 // Runtime errors or timeouts
)
