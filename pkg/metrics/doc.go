/*
Package metrics records what a node supervisor run did.

The supervisor is a one-shot command, so there is no scrape endpoint. Each
run builds a private registry and, when asked, writes it to a file for the
node-exporter textfile collector:

	m := metrics.NewSupervisor()
	timer := metrics.NewTimer()
	m.Action("start_sidecar")
	m.Finish(timer, true)
	_ = m.WriteTextfile("/var/lib/node_exporter/textfile/burrow.prom")

Metrics:

	burrow_supervisor_actions_total{action}         counter
	burrow_supervisor_process_alive{process}        gauge
	burrow_supervisor_last_run_success              gauge
	burrow_supervisor_last_run_timestamp_seconds    gauge
	burrow_supervisor_run_duration_seconds          histogram

All Supervisor methods are safe on a nil receiver, so callers that do not
want metrics pass nil.
*/
package metrics
