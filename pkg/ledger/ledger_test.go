package ledger

import (
	"path/filepath"
	"testing"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func testPlan(dataCount int) *types.TopologyPlan {
	seed := &types.CapacityGroup{Name: "seed", Role: types.NodeRoleSeed, DesiredCount: 1, MinCount: 1, MaxCount: 1}
	data := &types.CapacityGroup{Name: "data", Role: types.NodeRoleData, DesiredCount: dataCount, MinCount: dataCount, MaxCount: dataCount}
	return &types.TopologyPlan{
		Seed:         types.SeedElection{Role: types.SeedRoleData, DataCapacity: dataCount},
		Groups:       []*types.CapacityGroup{seed, data},
		ClientTarget: data,
	}
}

func configs(docs map[types.NodeRole]string) []*types.RenderedConfig {
	var out []*types.RenderedConfig
	for _, role := range []types.NodeRole{types.NodeRoleSeed, types.NodeRoleData, types.NodeRoleML} {
		if doc, ok := docs[role]; ok {
			out = append(out, &types.RenderedConfig{Role: role, Document: []byte(doc)})
		}
	}
	return out
}

func TestRecordTracksChanges(t *testing.T) {
	l := openTestLedger(t)

	planChanged, changes, err := l.Record("c1", testPlan(2), configs(map[types.NodeRole]string{
		types.NodeRoleSeed: "a: 1\n",
		types.NodeRoleData: "a: 2\n",
	}))
	require.NoError(t, err)
	assert.True(t, planChanged)
	assert.Equal(t, []Change{
		{Role: types.NodeRoleSeed, Status: StatusNew},
		{Role: types.NodeRoleData, Status: StatusNew},
	}, changes)

	planChanged, changes, err = l.Record("c1", testPlan(2), configs(map[types.NodeRole]string{
		types.NodeRoleSeed: "a: 1\n",
		types.NodeRoleData: "a: 3\n",
	}))
	require.NoError(t, err)
	assert.False(t, planChanged)
	assert.Equal(t, []Change{
		{Role: types.NodeRoleSeed, Status: StatusUnchanged},
		{Role: types.NodeRoleData, Status: StatusChanged},
	}, changes)
}

func TestRecordReportsRemovedRoles(t *testing.T) {
	l := openTestLedger(t)

	_, _, err := l.Record("c1", testPlan(2), configs(map[types.NodeRole]string{
		types.NodeRoleSeed: "a\n",
		types.NodeRoleData: "b\n",
		types.NodeRoleML:   "c\n",
	}))
	require.NoError(t, err)

	planChanged, changes, err := l.Record("c1", testPlan(3), configs(map[types.NodeRole]string{
		types.NodeRoleSeed: "a\n",
		types.NodeRoleData: "b\n",
	}))
	require.NoError(t, err)
	assert.True(t, planChanged)
	assert.Contains(t, changes, Change{Role: types.NodeRoleML, Status: StatusRemoved})

	records, err := l.Renders("c1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, types.NodeRoleData, records[0].Role)
	assert.Equal(t, types.NodeRoleSeed, records[1].Role)
}

func TestClustersAreIsolated(t *testing.T) {
	l := openTestLedger(t)

	_, _, err := l.Record("c1", testPlan(1), configs(map[types.NodeRole]string{types.NodeRoleSeed: "x\n"}))
	require.NoError(t, err)
	_, changes, err := l.Record("c10", testPlan(1), configs(map[types.NodeRole]string{types.NodeRoleData: "y\n"}))
	require.NoError(t, err)
	assert.Equal(t, []Change{{Role: types.NodeRoleData, Status: StatusNew}}, changes)

	records, err := l.Renders("c1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, types.NodeRoleSeed, records[0].Role)

	rec, err := l.GetPlan("c10")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Groups)

	_, err = l.GetPlan("missing")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestFingerprintIsStable(t *testing.T) {
	a, err := Fingerprint(testPlan(4))
	require.NoError(t, err)
	b, err := Fingerprint(testPlan(4))
	require.NoError(t, err)
	c, err := Fingerprint(testPlan(5))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
