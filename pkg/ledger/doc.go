/*
Package ledger records fingerprints of rendered cluster configuration in a
BoltDB file, so repeated renders of the same cluster report which roles
actually changed.

Buckets:

	plans    cluster        -> PlanRecord (JSON)
	renders  cluster/role   -> RenderRecord (JSON)

Fingerprints are structural hashes (hashstructure FormatV2) of the topology
plan and of each RenderedConfig. Because the assembler is deterministic, an
unchanged input always maps to an unchanged fingerprint.

The ledger belongs to the provisioning side only. The node supervisor keeps
no state of its own.
*/
package ledger
