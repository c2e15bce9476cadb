/*
Package log provides structured logging for Burrow using zerolog.

A single package-level Logger is initialized once by each command via Init.
Until then it discards output, so library packages such as the planner and
assembler can log freely when used as a library.

Both Burrow commands run on operator terminals and in boot logs, so they
initialize the console writer on stdout with colors disabled:

	log.Init(log.Config{Level: log.InfoLevel, Output: os.Stdout})

	sup := log.WithRunID("supervisor", runID)
	sup.Info().Int("pid", pid).Msg("Service started")

JSON output is available for callers that ship logs elsewhere:

	log.Init(log.Config{Level: log.DebugLevel, JSONOutput: true})
*/
package log
