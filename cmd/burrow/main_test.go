package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clusterSpec = `deployment: search
accountId: "123456789012"
region: us-east-1
roles: {manager: 3, data: 4}
instances:
  manager: {type: m6g.large, storageGiB: 20, memoryMiB: 8192}
  data:    {type: r6g.xlarge, storageGiB: 200, memoryMiB: 32768}
autoHeap: true
jvmFlags: ["-XX:+UseG1GC"]
`

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPlanCommand(t *testing.T) {
	out, err := execute(t, "plan", "-f", writeSpec(t, clusterSpec))
	require.NoError(t, err)

	assert.Contains(t, out, "Cluster: search-123456789012-us-east-1")
	assert.Contains(t, out, "Mode: distributed")
	assert.Contains(t, out, "Seed: manager (manager capacity 2, data capacity 4)")
	assert.Contains(t, out, "Client traffic: data")
	assert.Regexp(t, `seed\s+seed\s+m6g\.large\s+20GiB\s+1`, out)
	assert.Regexp(t, `manager\s+manager\s+m6g\.large\s+20GiB\s+2`, out)
	assert.Regexp(t, `data\s+data\s+r6g\.xlarge\s+200GiB\s+4`, out)
}

func TestPlanCommand_Errors(t *testing.T) {
	_, err := execute(t, "plan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "file" not set`)

	_, err = execute(t, "plan", "-f", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read cluster spec")

	noNodes := `deployment: search
accountId: "1"
region: us-east-1
roles: {client: 2}
`
	_, err = execute(t, "plan", "-f", writeSpec(t, noNodes))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to plan topology")
}

func TestRenderCommand(t *testing.T) {
	outDir := t.TempDir()
	out, err := execute(t, "render", "-f", writeSpec(t, clusterSpec), "-o", outDir)
	require.NoError(t, err)

	for _, role := range []string{"manager", "seed", "data"} {
		assert.Contains(t, out, "✓ Rendered "+filepath.Join(outDir, role))

		doc, err := os.ReadFile(filepath.Join(outDir, role, configFileName))
		require.NoError(t, err, role)
		assert.Contains(t, string(doc), "cluster.name: search-123456789012-us-east-1")

		jvm, err := os.ReadFile(filepath.Join(outDir, role, jvmFileName))
		require.NoError(t, err, role)
		assert.Contains(t, string(jvm), "-XX:+UseG1GC")
	}

	jvm, err := os.ReadFile(filepath.Join(outDir, "data", jvmFileName))
	require.NoError(t, err)
	assert.Contains(t, string(jvm), "-Xmx16g")

	jvm, err = os.ReadFile(filepath.Join(outDir, "manager", jvmFileName))
	require.NoError(t, err)
	assert.Contains(t, string(jvm), "-Xmx4g")
}

func TestRenderCommand_Ledger(t *testing.T) {
	specPath := writeSpec(t, clusterSpec)
	ledgerPath := filepath.Join(t.TempDir(), "burrow.db")

	out, err := execute(t, "render", "-f", specPath, "-o", t.TempDir(), "--ledger", ledgerPath)
	require.NoError(t, err)
	assert.Contains(t, out, "First render of search-123456789012-us-east-1")
	assert.Contains(t, out, "Topology plan changed")
	first := regexp.MustCompile(`data\s+new\s+([0-9a-f]{16})`).FindStringSubmatch(out)
	require.Len(t, first, 2, out)

	out, err = execute(t, "render", "-f", specPath, "-o", t.TempDir(), "--ledger", ledgerPath)
	require.NoError(t, err)
	assert.Regexp(t, `Previous render: \S+ \(plan [0-9a-f]{16}\)`, out)
	assert.NotContains(t, out, "Topology plan changed")
	assert.Regexp(t, `manager\s+unchanged\s+[0-9a-f]{16}`, out)
	assert.Contains(t, out, "data         unchanged  "+first[1])

	grown := strings.Replace(clusterSpec, "data: 4}", "data: 6}", 1)
	require.NoError(t, os.WriteFile(specPath, []byte(grown), 0644))
	out, err = execute(t, "render", "-f", specPath, "-o", t.TempDir(), "--ledger", ledgerPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Previous render:")
	assert.Contains(t, out, "Topology plan changed")
}

func TestRenderCommand_MissingTemplates(t *testing.T) {
	_, err := execute(t, "render", "-f", writeSpec(t, clusterSpec), "-o", t.TempDir(), "--templates", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base/multi-node.yml")
}
