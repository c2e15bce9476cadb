/*
Package process observes and controls host processes for the node supervisor.

The Table is read from procfs on every Lookup; nothing is cached between
calls, so each observation reflects the process table at that moment.
Matching works like pgrep -f: a substring of the space-joined command line.
Zombies are treated as not running. The caller and its parent chain are
excluded, since a shell wrapper around the supervisor often carries the
matched text in its own arguments.

The ExecLauncher starts processes in their own session with output appended
to a log file, so they outlive the supervisor. Stop sends SIGTERM, waits for
the pid to disappear from the table, and escalates to SIGKILL.
*/
package process
