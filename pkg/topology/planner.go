package topology

import (
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Planner turns desired role counts into a TopologyPlan
type Planner struct {
	// Defaults holds the instance shape per role. The seed group uses the
	// shape of the role family it was carved from.
	Defaults map[types.NodeRole]types.GroupDefaults
}

// NewPlanner creates a planner with the given per-role instance shapes
func NewPlanner(defaults map[types.NodeRole]types.GroupDefaults) *Planner {
	if defaults == nil {
		defaults = make(map[types.NodeRole]types.GroupDefaults)
	}
	return &Planner{Defaults: defaults}
}

// ElectSeed picks the role family the discovery seed is carved out of.
// A manager is preferred; without managers the seed comes from the data
// allotment. Both counts zero is rejected with a *ConfigError instead of
// producing a negative data capacity.
func ElectSeed(counts types.RoleCounts) (types.SeedElection, error) {
	if counts.ManagerCount > 0 {
		return types.SeedElection{
			Role:            types.SeedRoleManager,
			ManagerCapacity: counts.ManagerCount - 1,
			DataCapacity:    counts.DataCount,
		}, nil
	}

	if counts.DataCount == 0 {
		return types.SeedElection{}, &ConfigError{
			Field:  "dataCount",
			Reason: "distributed mode needs at least one manager or data node to seed discovery",
		}
	}

	return types.SeedElection{
		Role:            types.SeedRoleData,
		ManagerCapacity: 0,
		DataCapacity:    counts.DataCount - 1,
	}, nil
}

// Plan computes the cluster layout for counts.
//
// In single-node mode the counts are ignored and one group of size one
// serves every role. Otherwise exactly one seed group of size one is
// planned, and manager, data, client and ml groups are created only when
// their capacity is positive. With no client nodes requested the data group
// doubles as the client target.
//
// A distributed cluster with zero manager and zero data nodes is rejected
// with a *ConfigError. No default data node is substituted.
func (p *Planner) Plan(counts types.RoleCounts, singleNode bool) (*types.TopologyPlan, error) {
	logger := log.WithComponent("planner")

	if singleNode {
		group := p.group("single-node", types.NodeRoleSingleNode, types.NodeRoleSingleNode, 1)
		logger.Debug().Msg("Single-node mode, role counts ignored")
		return &types.TopologyPlan{
			SingleNode:   true,
			Counts:       counts,
			Seed:         types.SeedElection{Role: types.SeedRoleNone},
			Groups:       []*types.CapacityGroup{group},
			ClientTarget: group,
		}, nil
	}

	if err := validate.Struct(counts); err != nil {
		return nil, fromValidation(err)
	}

	seed, err := ElectSeed(counts)
	if err != nil {
		return nil, err
	}

	plan := &types.TopologyPlan{
		Counts: counts,
		Seed:   seed,
	}

	if seed.ManagerCapacity > 0 {
		plan.Groups = append(plan.Groups,
			p.group("manager", types.NodeRoleManager, types.NodeRoleManager, seed.ManagerCapacity))
	}

	seedShape := types.NodeRoleData
	if seed.Role == types.SeedRoleManager {
		seedShape = types.NodeRoleManager
	}
	seedGroup := p.group("seed", types.NodeRoleSeed, seedShape, 1)
	plan.Groups = append(plan.Groups, seedGroup)

	var dataGroup *types.CapacityGroup
	if seed.DataCapacity > 0 {
		dataGroup = p.group("data", types.NodeRoleData, types.NodeRoleData, seed.DataCapacity)
		plan.Groups = append(plan.Groups, dataGroup)
	}

	switch {
	case counts.ClientCount > 0:
		client := p.group("client", types.NodeRoleClient, types.NodeRoleClient, counts.ClientCount)
		plan.Groups = append(plan.Groups, client)
		plan.ClientTarget = client
	case dataGroup != nil:
		plan.ClientTarget = dataGroup
	default:
		// the data allotment went entirely to the seed
		plan.ClientTarget = seedGroup
	}

	if counts.MLCount > 0 {
		plan.Groups = append(plan.Groups,
			p.group("ml", types.NodeRoleML, types.NodeRoleML, counts.MLCount))
	}

	logger.Debug().
		Str("seed_role", string(seed.Role)).
		Int("groups", len(plan.Groups)).
		Str("client_target", plan.ClientTarget.Name).
		Msg("Topology planned")

	return plan, nil
}

func (p *Planner) group(name string, role, shape types.NodeRole, size int) *types.CapacityGroup {
	defaults, ok := p.Defaults[shape]
	if !ok && shape == types.NodeRoleSingleNode {
		defaults = p.Defaults[types.NodeRoleData]
	}
	return &types.CapacityGroup{
		Name:           name,
		Role:           role,
		InstanceType:   defaults.InstanceType,
		StorageSizeGiB: defaults.StorageSizeGiB,
		DesiredCount:   size,
		MinCount:       size,
		MaxCount:       size,
	}
}
