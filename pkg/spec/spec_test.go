package spec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSpec = `
deployment: search
accountId: "123456789012"
region: us-east-1
roles:
  manager: 3
  data: 4
instances:
  manager: {type: m6g.large, storageGiB: 20, memoryMiB: 8192}
  data: {type: r6g.xlarge, storageGiB: 200, memoryMiB: 32768}
autoHeap: true
jvmFlags: ["-XX:+UseG1GC"]
features:
  securityDisabled: true
  remoteStore:
    enabled: true
    repository: remote-repo
    bucket: my-bucket
    region: us-east-1
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sampleSpec))
	require.NoError(t, err)

	assert.Equal(t, "search-123456789012-us-east-1", s.Name())
	assert.Equal(t, types.RoleCounts{ManagerCount: 3, DataCount: 4}, s.Roles)
	assert.Equal(t, "r6g.xlarge", s.Instances[types.NodeRoleData].InstanceType)
	assert.True(t, s.Features.RemoteStore.Enabled)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"missing region", "deployment: a\naccountId: \"1\"\n", "Region"},
		{"negative count", "deployment: a\naccountId: \"1\"\nregion: r\nroles: {data: -1}\n", "DataCount"},
		{"remote store without bucket", "deployment: a\naccountId: \"1\"\nregion: r\nfeatures: {remoteStore: {enabled: true, repository: x, region: r}}\n", "Bucket"},
		{"jvm flag without dash", "deployment: a\naccountId: \"1\"\nregion: r\njvmFlags: [Xmx1g]\n", "JVMFlags"},
		{"malformed yaml", "deployment: [\n", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadResolvesUserOverlayFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user.yml"), []byte("http.max_content_length: 200mb\n"), 0644))
	doc := "deployment: a\naccountId: \"1\"\nregion: r\nsingleNode: true\nuserOverlayFile: user.yml\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cluster.yaml"), []byte(doc), 0644))

	s, err := Load(filepath.Join(dir, "cluster.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http.max_content_length: 200mb\n", s.UserOverlay)
}

func TestLoadRejectsBothUserOverlays(t *testing.T) {
	dir := t.TempDir()
	doc := "deployment: a\naccountId: \"1\"\nregion: r\nuserOverlay: x\nuserOverlayFile: user.yml\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cluster.yaml"), []byte(doc), 0644))

	_, err := Load(filepath.Join(dir, "cluster.yaml"))
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestAssemblerInputUsesRoleShape(t *testing.T) {
	s, err := Parse([]byte(sampleSpec))
	require.NoError(t, err)

	plan, err := s.Plan()
	require.NoError(t, err)

	seed := s.AssemblerInput(plan, types.NodeRoleSeed)
	assert.Equal(t, 8192, seed.Heap.MemoryMiB, "manager seed uses the manager shape")
	assert.Len(t, seed.Features, 2)

	data := s.AssemblerInput(plan, types.NodeRoleData)
	assert.Equal(t, 32768, data.Heap.MemoryMiB)
	assert.True(t, data.Heap.Auto)
	assert.Equal(t, []string{"-XX:+UseG1GC"}, data.JVMFlags)
}
