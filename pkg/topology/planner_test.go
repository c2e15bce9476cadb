package topology

import (
	"testing"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElectSeed(t *testing.T) {
	tests := []struct {
		name            string
		counts          types.RoleCounts
		wantRole        types.SeedRole
		wantManagerCap  int
		wantDataCap     int
		wantConfigError bool
	}{
		{
			name:           "manager preferred",
			counts:         types.RoleCounts{ManagerCount: 3, DataCount: 4},
			wantRole:       types.SeedRoleManager,
			wantManagerCap: 2,
			wantDataCap:    4,
		},
		{
			name:           "single manager",
			counts:         types.RoleCounts{ManagerCount: 1, DataCount: 2},
			wantRole:       types.SeedRoleManager,
			wantManagerCap: 0,
			wantDataCap:    2,
		},
		{
			name:           "data seed without managers",
			counts:         types.RoleCounts{DataCount: 5},
			wantRole:       types.SeedRoleData,
			wantManagerCap: 0,
			wantDataCap:    4,
		},
		{
			name:            "no manager and no data",
			counts:          types.RoleCounts{ClientCount: 2},
			wantConfigError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed, err := ElectSeed(tt.counts)
			if tt.wantConfigError {
				require.Error(t, err)
				assert.True(t, IsConfigError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, seed.Role)
			assert.Equal(t, tt.wantManagerCap, seed.ManagerCapacity)
			assert.Equal(t, tt.wantDataCap, seed.DataCapacity)
		})
	}
}

func TestPlanManagerSeedScenario(t *testing.T) {
	planner := NewPlanner(map[types.NodeRole]types.GroupDefaults{
		types.NodeRoleManager: {InstanceType: "m6g.large", StorageSizeGiB: 20},
		types.NodeRoleData:    {InstanceType: "r6g.xlarge", StorageSizeGiB: 200},
	})

	plan, err := planner.Plan(types.RoleCounts{ManagerCount: 3, DataCount: 4}, false)
	require.NoError(t, err)

	assert.Equal(t, types.SeedRoleManager, plan.Seed.Role)

	manager := plan.Group(types.NodeRoleManager)
	require.NotNil(t, manager)
	assert.Equal(t, 2, manager.DesiredCount)
	assert.Equal(t, "m6g.large", manager.InstanceType)

	data := plan.Group(types.NodeRoleData)
	require.NotNil(t, data)
	assert.Equal(t, 4, data.DesiredCount)

	seed := plan.Group(types.NodeRoleSeed)
	require.NotNil(t, seed)
	assert.Equal(t, 1, seed.DesiredCount)
	assert.Equal(t, "m6g.large", seed.InstanceType, "seed uses the shape of its role family")

	assert.Nil(t, plan.Group(types.NodeRoleClient))
	assert.Nil(t, plan.Group(types.NodeRoleML))
	assert.Same(t, data, plan.ClientTarget)
}

func TestPlanDataSeedScenario(t *testing.T) {
	plan, err := NewPlanner(nil).Plan(types.RoleCounts{DataCount: 1}, false)
	require.NoError(t, err)

	assert.Equal(t, types.SeedRoleData, plan.Seed.Role)
	assert.Equal(t, 0, plan.Seed.DataCapacity)
	assert.Equal(t, []types.NodeRole{types.NodeRoleSeed}, plan.Roles())
	assert.Same(t, plan.Group(types.NodeRoleSeed), plan.ClientTarget)
}

func TestPlanRejectsZeroManagersAndData(t *testing.T) {
	plan, err := NewPlanner(nil).Plan(types.RoleCounts{ClientCount: 1, MLCount: 1}, false)
	require.Error(t, err)
	assert.Nil(t, plan)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "dataCount", cfgErr.Field)
}

func TestPlanRejectsNegativeCounts(t *testing.T) {
	_, err := NewPlanner(nil).Plan(types.RoleCounts{ManagerCount: 1, DataCount: -2}, false)
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "dataCount", cfgErr.Field)
}

func TestPlanSingleNode(t *testing.T) {
	planner := NewPlanner(map[types.NodeRole]types.GroupDefaults{
		types.NodeRoleData: {InstanceType: "r6g.large", StorageSizeGiB: 50},
	})

	// counts are ignored, including ones that would be invalid when distributed
	plan, err := planner.Plan(types.RoleCounts{}, true)
	require.NoError(t, err)

	require.Len(t, plan.Groups, 1)
	group := plan.Groups[0]
	assert.Equal(t, types.NodeRoleSingleNode, group.Role)
	assert.Equal(t, 1, group.DesiredCount)
	assert.Equal(t, "r6g.large", group.InstanceType)
	assert.Equal(t, types.SeedRoleNone, plan.Seed.Role)
	assert.Same(t, group, plan.ClientTarget)
}

func TestPlanDedicatedClientAndML(t *testing.T) {
	plan, err := NewPlanner(nil).Plan(types.RoleCounts{ManagerCount: 1, DataCount: 3, ClientCount: 2, MLCount: 1}, false)
	require.NoError(t, err)

	assert.Equal(t,
		[]types.NodeRole{types.NodeRoleSeed, types.NodeRoleData, types.NodeRoleClient, types.NodeRoleML},
		plan.Roles(),
		"manager group is skipped when the seed consumed the only manager")

	client := plan.Group(types.NodeRoleClient)
	require.NotNil(t, client)
	assert.Same(t, client, plan.ClientTarget)
	assert.NotSame(t, plan.Group(types.NodeRoleData), plan.ClientTarget)
	assert.Equal(t, 1, plan.Group(types.NodeRoleML).DesiredCount)
}

// TestPlanInvariants checks the seed accounting and fixed-size groups over a
// grid of role counts.
func TestPlanInvariants(t *testing.T) {
	planner := NewPlanner(nil)

	for managers := 0; managers <= 4; managers++ {
		for data := 0; data <= 4; data++ {
			for clients := 0; clients <= 2; clients++ {
				counts := types.RoleCounts{ManagerCount: managers, DataCount: data, ClientCount: clients}
				plan, err := planner.Plan(counts, false)

				if managers == 0 && data == 0 {
					require.Error(t, err, "counts %+v", counts)
					assert.True(t, IsConfigError(err))
					continue
				}
				require.NoError(t, err, "counts %+v", counts)

				seedManager, seedData := 0, 0
				if plan.Seed.Role == types.SeedRoleManager {
					seedManager = 1
				} else {
					seedData = 1
				}
				assert.Equal(t, managers, sizeOf(plan, types.NodeRoleManager)+seedManager, "counts %+v", counts)
				assert.Equal(t, data, sizeOf(plan, types.NodeRoleData)+seedData, "counts %+v", counts)

				for _, g := range plan.Groups {
					assert.Positive(t, g.DesiredCount, "group %s for counts %+v", g.Name, counts)
					assert.Equal(t, g.DesiredCount, g.MinCount)
					assert.Equal(t, g.DesiredCount, g.MaxCount)
				}

				if clients == 0 {
					if dataGroup := plan.Group(types.NodeRoleData); dataGroup != nil {
						assert.Same(t, dataGroup, plan.ClientTarget, "counts %+v", counts)
					}
				}
			}
		}
	}
}

func sizeOf(plan *types.TopologyPlan, role types.NodeRole) int {
	if g := plan.Group(role); g != nil {
		return g.DesiredCount
	}
	return 0
}
