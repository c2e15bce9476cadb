/*
Package health provides the liveness checks the node supervisor runs after
launching the capture sidecar.

Two checkers implement the Checker interface:

  - ProcessChecker: a matching process is present in the process table
  - TCPChecker: the named process accepts connections on its listen port

All runs checkers in order and returns the first failure:

	result := health.All(ctx,
		health.NewProcessChecker(table, "capture-proxy", "trafficCaptureProxyServer"),
		health.NewTCPChecker("capture-proxy", 9200),
	)

Checks are single shots. Retrying, if wanted, belongs to whoever invokes
the supervisor.
*/
package health
