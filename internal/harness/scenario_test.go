package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inlineWorkflow = `
workflow:
  workflow: w
  nodes:
    - {id: A}
    - {id: B}
  flows:
    - {from: A, to: B}
  start: [A]
`

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	content := `
name: test_scenario
description: "Test scenario"
` + inlineWorkflow + `
steps:
  - fire: A
    data: {amount: 3}
    expect:
      committed: 1
      verbs: [transmute]
  - run: true
assertions:
  - type: completed
    nodes: [A]
  - type: chain_valid
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", s.Name)
	require.NotNil(t, s.Workflow)
	assert.Len(t, s.Workflow.Nodes, 2)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, "A", s.Steps[0].Fire)
	assert.Equal(t, 3, s.Steps[0].Data["amount"])
	require.NotNil(t, s.Steps[0].Expect.Committed)
	assert.Equal(t, 1, *s.Steps[0].Expect.Committed)
	assert.True(t, s.Steps[1].Run)
	assert.Len(t, s.Assertions, 2)
}

func TestLoadScenario_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenarios", "s.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	content := `
name: s
description: "d"
topology: ../topologies/w.yaml
catalog: patterns.cue
steps:
  - step: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "topologies", "w.yaml"), s.Topology)
	assert.Equal(t, filepath.Join(dir, "scenarios", "patterns.cue"), s.Catalog)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\n" + inlineWorkflow + "steps: [{run: true}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\n" + inlineWorkflow + "steps: [{run: true}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no topology",
			content: "name: n\ndescription: d\nsteps: [{run: true}]\n",
			wantErr: "one of workflow or topology is required",
		},
		{
			name:    "both topologies",
			content: "name: n\ndescription: d\ntopology: t.yaml\n" + inlineWorkflow + "steps: [{run: true}]\n",
			wantErr: "mutually exclusive",
		},
		{
			name:    "no steps",
			content: "name: n\ndescription: d\n" + inlineWorkflow,
			wantErr: "steps list is required",
		},
		{
			name:    "ambiguous step",
			content: "name: n\ndescription: d\n" + inlineWorkflow + "steps: [{run: true, fire: A}]\n",
			wantErr: "exactly one of fire, step or run",
		},
		{
			name:    "unknown assertion",
			content: "name: n\ndescription: d\n" + inlineWorkflow + "steps: [{run: true}]\nassertions: [{type: bogus}]\n",
			wantErr: `unknown assertion type "bogus"`,
		},
		{
			name:    "nodes required",
			content: "name: n\ndescription: d\n" + inlineWorkflow + "steps: [{run: true}]\nassertions: [{type: has_token}]\n",
			wantErr: "has_token requires nodes",
		},
		{
			name:    "unknown field",
			content: "name: n\ndescription: d\n" + inlineWorkflow + "steps: [{run: true}]\nassertion: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name: "invalid inline workflow",
			content: `name: n
description: d
workflow:
  workflow: w
  nodes: [{id: A}]
  flows: [{from: A, to: Z}]
steps: [{run: true}]
`,
			wantErr: "workflow:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_AllTestdataScenariosParse(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, p := range paths {
		_, err := LoadScenario(p)
		assert.NoError(t, err, p)
	}
}
