package types

import "fmt"

// NodeRole identifies the role a capacity group fills in the cluster
type NodeRole string

const (
	NodeRoleManager    NodeRole = "manager"
	NodeRoleData       NodeRole = "data"
	NodeRoleClient     NodeRole = "client"
	NodeRoleML         NodeRole = "ml"
	NodeRoleSeed       NodeRole = "seed"
	NodeRoleSingleNode NodeRole = "single-node"
)

// SeedRole is the role family the discovery seed is carved out of
type SeedRole string

const (
	SeedRoleNone    SeedRole = "none" // single-node mode, the sole instance is the seed
	SeedRoleManager SeedRole = "manager"
	SeedRoleData    SeedRole = "data"
)

// RoleCounts is the operator's desired number of nodes per role.
// IngestCount is informational only and is never provisioned separately.
type RoleCounts struct {
	ManagerCount int `yaml:"manager" validate:"min=0"`
	DataCount    int `yaml:"data" validate:"min=0"`
	IngestCount  int `yaml:"ingest" validate:"min=0"`
	ClientCount  int `yaml:"client" validate:"min=0"`
	MLCount      int `yaml:"ml" validate:"min=0"`
}

// GroupDefaults holds the instance shape applied to a group of one role
type GroupDefaults struct {
	InstanceType   string `yaml:"type"`
	StorageSizeGiB int    `yaml:"storageGiB" validate:"min=0"`
	MemoryMiB      int    `yaml:"memoryMiB" validate:"min=0"`
}

// CapacityGroup is a fixed-size set of identically configured instances.
// MinCount == MaxCount == DesiredCount; groups never scale elastically.
type CapacityGroup struct {
	Name           string
	Role           NodeRole
	InstanceType   string
	StorageSizeGiB int
	DesiredCount   int
	MinCount       int
	MaxCount       int
}

// SeedElection is the outcome of choosing which role family seeds discovery
type SeedElection struct {
	Role            SeedRole
	ManagerCapacity int
	DataCapacity    int
}

// TopologyPlan is the concrete cluster layout handed to the provisioning layer
type TopologyPlan struct {
	SingleNode bool
	Counts     RoleCounts
	Seed       SeedElection
	Groups     []*CapacityGroup

	// ClientTarget is the group client traffic is routed to. When no client
	// nodes were requested it is the data group itself (same pointer).
	ClientTarget *CapacityGroup
}

// Group returns the planned group for role, or nil if none was created
func (p *TopologyPlan) Group(role NodeRole) *CapacityGroup {
	for _, g := range p.Groups {
		if g.Role == role {
			return g
		}
	}
	return nil
}

// Roles lists the roles that received a capacity group, in plan order
func (p *TopologyPlan) Roles() []NodeRole {
	roles := make([]NodeRole, 0, len(p.Groups))
	for _, g := range p.Groups {
		roles = append(roles, g.Role)
	}
	return roles
}

// ClusterIdentity carries the identifiers the cluster name is derived from
type ClusterIdentity struct {
	Deployment string `yaml:"deployment" validate:"required"`
	AccountID  string `yaml:"accountId" validate:"required"`
	Region     string `yaml:"region" validate:"required"`
}

// Name returns a cluster name that cannot collide across accounts or regions
func (c ClusterIdentity) Name() string {
	return fmt.Sprintf("%s-%s-%s", c.Deployment, c.AccountID, c.Region)
}

// ProcessState is a point-in-time observation of one process
type ProcessState struct {
	Name  string
	PID   int
	Alive bool
}

func (s ProcessState) String() string {
	if !s.Alive {
		return fmt.Sprintf("%s: not running", s.Name)
	}
	return fmt.Sprintf("%s: running (pid %d)", s.Name, s.PID)
}

// RenderedConfig is the configuration produced for one node role
type RenderedConfig struct {
	Role       NodeRole
	Document   []byte
	JVMOptions []string
}
