package scenariofile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mslinn/simsnap/pkg/scenario"
)

const loginYAML = `
id: login
name: Login flow
bundle_id: com.example.app
tolerance: 0.01
steps:
  - type: launch_app
  - type: wait_for_element
    element:
      label: Sign in
    timeout: 5
  - type: tap
    element: {identifier: email_field}
  - type: type_text
    text: user@example.com
  - type: swipe
    from: {x: 100, y: 600}
    to: {x: 100, y: 200}
    duration: 1.5
  - type: full_page_checkpoint
    name: login_screen
    stitch: false
    tolerance: 0.002
  - type: simulate_route
    name: map
    interval: 2
    route:
      - {latitude: 37.33, longitude: -122.03}
      - {latitude: 37.34, longitude: -122.04}
`

func TestParse(t *testing.T) {
	cases, err := Parse([]byte(loginYAML))
	require.NoError(t, err)
	require.Len(t, cases, 1)

	tc := cases[0]
	assert.Equal(t, "login", tc.ID)
	assert.Equal(t, "com.example.app", tc.BundleID)
	require.NotNil(t, tc.Tolerance)
	assert.Equal(t, 0.01, *tc.Tolerance)
	require.Len(t, tc.Steps, 7)

	assert.Equal(t, scenario.StepLaunchApp, tc.Steps[0].Type)
	assert.Equal(t, "Sign in", tc.Steps[1].Element.Label)
	assert.Equal(t, 5.0, tc.Steps[1].Timeout)
	assert.Equal(t, "email_field", tc.Steps[2].Element.Identifier)
	assert.Equal(t, 600.0, tc.Steps[4].From.Y)
	assert.Equal(t, 1.5, tc.Steps[4].Duration)

	cp := tc.Steps[5]
	assert.Equal(t, "login_screen", cp.Name)
	require.NotNil(t, cp.Stitch)
	assert.False(t, *cp.Stitch)
	assert.Equal(t, 0.002, *cp.Tolerance)
	assert.Nil(t, cp.ScrollToTop)

	assert.Len(t, tc.Steps[6].Route, 2)
	assert.Equal(t, -122.04, tc.Steps[6].Route[1].Longitude)
}

func TestParse_MultiDocument(t *testing.T) {
	data := `
id: one
steps:
  - type: checkpoint
    name: first
---
---
id: two
name: Second
steps:
  - type: smart_checkpoint
    name: second
`
	cases, err := Parse([]byte(data))
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "one", cases[0].Name, "name defaults to id")
	assert.Equal(t, "Second", cases[1].Name)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"unknown step type", "id: x\nsteps:\n  - type: shake\n", scenario.ErrUnknownStep},
		{"checkpoint without name", "id: x\nsteps:\n  - type: checkpoint\n", scenario.ErrInvalidStep},
		{"missing id", "name: x\nsteps:\n  - type: wait\n", scenario.ErrInvalidTestCase},
		{"wait_for_element without selector", "id: x\nsteps:\n  - type: wait_for_element\n", scenario.ErrInvalidStep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), "document 1")
		})
	}

	t.Run("unknown field", func(t *testing.T) {
		_, err := Parse([]byte("id: x\nsteps:\n  - type: tap\n    xx: 3\n"))
		require.Error(t, err)
	})
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("id: b\nsteps: []\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("id: a\nsteps: []\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	cases, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "a", cases[0].ID)
	assert.Equal(t, "b", cases[1].ID)
}

func TestLoad_DuplicateID(t *testing.T) {
	dir := t.TempDir()
	one := filepath.Join(dir, "one.yaml")
	two := filepath.Join(dir, "two.yaml")
	require.NoError(t, os.WriteFile(one, []byte("id: same\nsteps: []\n"), 0644))
	require.NoError(t, os.WriteFile(two, []byte("id: same\nsteps: []\n"), 0644))

	_, err := Load(one, two)
	require.ErrorIs(t, err, scenario.ErrInvalidTestCase)
	assert.Contains(t, err.Error(), "duplicate id")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestFilter(t *testing.T) {
	cases := []scenario.TestCase{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	assert.Len(t, Filter(cases, nil), 3)

	got := Filter(cases, []string{"c", "a"})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}
