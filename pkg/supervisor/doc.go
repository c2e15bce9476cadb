/*
Package supervisor converges a search node to its capture layout: the primary
service listening on an internal port, and the capture sidecar listening on
the externally advertised port and forwarding to the primary.

# Decision Table

Every Run observes both processes from the OS process table and decides:

	service  sidecar  port ok  action
	-------  -------  -------  -------------------------------------------
	alive    alive    -        nothing, return success
	dead     any      -        rewrite port if needed, start service,
	                           then the sidecar step
	alive    dead     yes      sidecar step only
	alive    dead     no       rewrite port, stop and restart service,
	                           then the sidecar step

The port setting is rewritten with pkg/settings: appended when absent,
replaced when different, untouched when already correct. A rewrite always
restarts a running service because it does not reload the setting.

The sidecar step stops any running sidecar, launches a fresh one, waits the
grace period and checks it is alive. If it is not, the tail of its log is
printed and Run fails. The primary is never rolled back. A primary that fails
to launch is logged and the sidecar step still runs.

# State

There is no state file. Process state is observed fresh on entry, before the
sidecar step, and after the grace period. Running Run twice in a row on a
converged node performs no mutations the second time.

# Concurrent Runs

Two runs on the same node at the same time can both observe the same stale
pid and both stop and relaunch the service and the sidecar. Nothing in the
decision table prevents this. Setting Config.LockFile takes an advisory
flock for the whole run so a second concurrent run fails with ErrLocked
instead. Without it the race remains.

# Metrics

With WithMetrics, each run records its actions, observed liveness and
outcome. The capture-bootstrap command writes them to a node-exporter
textfile.
*/
package supervisor
