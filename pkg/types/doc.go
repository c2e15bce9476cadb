/*
Package types defines the data model shared by the Burrow planner, config
assembler and node supervisor.

# Core Types

Planning inputs:
  - RoleCounts: desired node count per role (manager, data, ingest, client, ml)
  - GroupDefaults: instance type and storage applied to a role's group
  - ClusterIdentity: deployment, account and region the cluster name derives from

Planning outputs:
  - SeedElection: which role family the discovery seed is carved from
  - CapacityGroup: fixed-size instance group handed to the provisioning layer
  - TopologyPlan: the full layout, including the client-facing target

Node runtime:
  - RenderedConfig: serialized settings document plus JVM option lines
  - ProcessState: point-in-time observation of a process, never persisted

# Ownership

RoleCounts and CapacityGroup belong to the planning phase and are handed to
the provisioning layer, which owns the actual compute resources. A
RenderedConfig belongs to the node once written. ProcessState is an
observation, re-derived on every supervisor invocation.
*/
package types
