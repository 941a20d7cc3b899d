package device

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mslinn/simsnap/pkg/timing"
)

type invocation struct {
	command string
	args    []string
}

type fakeRunner struct {
	calls  []invocation
	stdout string
	fail   map[string]bool
}

func (f *fakeRunner) run(ctx context.Context, command string, args []string, opts *timing.Options) *timing.Result {
	f.calls = append(f.calls, invocation{command, args})
	r := &timing.Result{Command: command, Args: args, DurationMs: 5, Stdout: f.stdout}
	key := command + " " + strings.Join(args, " ")
	for frag := range f.fail {
		if strings.Contains(key, frag) {
			r.ExitCode = 1
			r.Stderr = "boom"
			r.Error = errors.New("exit status 1")
		}
	}
	return r
}

type recorded struct {
	ops []string
}

func (r *recorded) RecordOperation(op string, _ *timing.Result) {
	r.ops = append(r.ops, op)
}

func newTestSimulator(udid string) (*Simulator, *fakeRunner, *recorded) {
	fr := &fakeRunner{fail: map[string]bool{}}
	rec := &recorded{}
	s := NewSimulator(udid)
	s.Runner = fr.run
	s.Recorder = rec
	return s, fr, rec
}

func TestSimulatorCommands(t *testing.T) {
	ctx := context.Background()
	s, fr, rec := newTestSimulator("ABC-123")
	shot := filepath.Join(t.TempDir(), "shots", "a.png")

	require.NoError(t, s.Screenshot(ctx, shot))
	require.NoError(t, s.Tap(ctx, Point{X: 100.4, Y: 200.6}))
	require.NoError(t, s.Swipe(ctx, Point{X: 200, Y: 600}, Point{X: 200, Y: 300}, 1500*time.Millisecond))
	require.NoError(t, s.TypeText(ctx, "hello world"))
	require.NoError(t, s.LaunchApp(ctx, "com.example.app"))
	require.NoError(t, s.TerminateApp(ctx, "com.example.app"))
	require.NoError(t, s.OpenURL(ctx, "myapp://settings"))
	require.NoError(t, s.SetLocation(ctx, 37.7749, -122.4194))

	want := []invocation{
		{"xcrun", []string{"simctl", "io", "ABC-123", "screenshot", "--type=png", shot}},
		{"idb", []string{"ui", "tap", "--udid", "ABC-123", "100", "201"}},
		{"idb", []string{"ui", "swipe", "--udid", "ABC-123", "--duration", "1.50", "200", "600", "200", "300"}},
		{"idb", []string{"ui", "text", "--udid", "ABC-123", "hello world"}},
		{"xcrun", []string{"simctl", "launch", "ABC-123", "com.example.app"}},
		{"xcrun", []string{"simctl", "terminate", "ABC-123", "com.example.app"}},
		{"xcrun", []string{"simctl", "openurl", "ABC-123", "myapp://settings"}},
		{"xcrun", []string{"simctl", "location", "ABC-123", "set", "37.7749,-122.4194"}},
	}
	assert.Equal(t, want, fr.calls)
	assert.Equal(t, []string{"screenshot", "tap", "swipe", "type_text", "launch_app", "terminate_app", "open_url", "set_location"}, rec.ops)
	assert.DirExists(t, filepath.Dir(shot))
}

func TestSimulatorBootedOmitsUDIDForIdb(t *testing.T) {
	s, fr, _ := newTestSimulator("")
	assert.Equal(t, "booted", s.ID())

	require.NoError(t, s.Tap(context.Background(), Point{X: 1, Y: 2}))
	assert.Equal(t, []string{"ui", "tap", "1", "2"}, fr.calls[0].args)
}

func TestSimulatorFailure(t *testing.T) {
	s, fr, rec := newTestSimulator("X")
	fr.fail["ui tap"] = true

	err := s.Tap(context.Background(), Point{X: 1, Y: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tap failed")
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []string{"tap"}, rec.ops)
}

func TestSimulatorDescribeUI(t *testing.T) {
	s, fr, _ := newTestSimulator("X")
	fr.stdout = `[{"type":"Button","AXLabel":"Sign In","AXUniqueId":"signin","frame":{"x":10,"y":20,"width":100,"height":44},"enabled":true}]`

	elements, err := s.DescribeUI(context.Background())
	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, "Sign In", elements[0].Label)
	assert.Equal(t, []string{"ui", "describe-all", "--udid", "X", "--json"}, fr.calls[0].args)
}

func TestParseDescribeAll(t *testing.T) {
	t.Run("array with nested children", func(t *testing.T) {
		data := []byte(`[
			{"type":"Application","AXLabel":"Demo","frame":{"x":0,"y":0,"width":390,"height":844},
			 "children":[{"role":"AXStaticText","AXLabel":null,"title":"Welcome","AXValue":"hi","frame":{"x":1,"y":2,"width":3,"height":4}}]}
		]`)
		elements, err := ParseDescribeAll(data)
		require.NoError(t, err)
		require.Len(t, elements, 1)
		require.Len(t, elements[0].Children, 1)

		child := elements[0].Children[0]
		assert.Equal(t, "StaticText", child.Type)
		assert.Equal(t, "Welcome", child.Label)
		assert.Equal(t, "hi", child.Value)
		assert.True(t, child.Enabled)
		assert.Equal(t, Frame{X: 1, Y: 2, Width: 3, Height: 4}, child.Frame)
	})

	t.Run("one object per line", func(t *testing.T) {
		data := []byte("{\"type\":\"Button\",\"AXLabel\":\"A\",\"enabled\":false}\n\n{\"type\":\"Cell\",\"AXLabel\":\"B\"}\n")
		elements, err := ParseDescribeAll(data)
		require.NoError(t, err)
		require.Len(t, elements, 2)
		assert.False(t, elements[0].Enabled)
		assert.Equal(t, "B", elements[1].Label)
	})

	t.Run("empty", func(t *testing.T) {
		elements, err := ParseDescribeAll([]byte("  \n"))
		require.NoError(t, err)
		assert.Empty(t, elements)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseDescribeAll([]byte("[{"))
		assert.Error(t, err)
	})
}

func TestFlatten(t *testing.T) {
	tree := []Element{
		{Type: "Window", Children: []Element{
			{Type: "ScrollView", Children: []Element{{Type: "Cell", Label: "a"}}},
			{Type: "Button", Label: "b"},
		}},
	}

	flat := Flatten(tree)
	var types []string
	for _, e := range flat {
		types = append(types, e.Type)
		assert.Nil(t, e.Children)
	}
	assert.Equal(t, []string{"Window", "ScrollView", "Cell", "Button"}, types)
	assert.Len(t, tree[0].Children, 2, "input tree must not be modified")
}

func TestSelector(t *testing.T) {
	elements := []Element{
		{Type: "Application", Children: []Element{
			{Type: "Button", Label: "Sign In", Identifier: "signin"},
			{Type: "TextField", Label: "Email", Value: "me@example.com"},
			{Type: "StaticText", Label: "Welcome back, Sam"},
		}},
	}

	tests := []struct {
		name      string
		sel       Selector
		wantFound bool
		wantLabel string
	}{
		{"by identifier", Selector{Identifier: "signin"}, true, "Sign In"},
		{"by exact label", Selector{Label: "Email"}, true, "Email"},
		{"type is case-insensitive", Selector{Type: "textfield"}, true, "Email"},
		{"by value", Selector{Value: "me@example.com"}, true, "Email"},
		{"substring label", Selector{Label: "welcome", Contains: true}, true, "Welcome back, Sam"},
		{"exact label does not substring", Selector{Label: "Welcome"}, false, ""},
		{"all criteria must hold", Selector{Label: "Sign In", Type: "StaticText"}, false, ""},
		{"empty selector matches nothing", Selector{}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, found := tt.sel.Find(elements)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantLabel, e.Label)
		})
	}
}

func TestSelectorString(t *testing.T) {
	assert.Equal(t, "{identifier=x label=y contains}", Selector{Identifier: "x", Label: "y", Contains: true}.String())
}

func TestFrame(t *testing.T) {
	f := Frame{X: 10, Y: 20, Width: 100, Height: 50}
	assert.Equal(t, Point{X: 60, Y: 45}, f.Center())
	assert.Equal(t, 5000.0, f.Area())
	assert.Equal(t, 70.0, f.Bottom())
	assert.True(t, f.Contains(Point{X: 10, Y: 70}))
	assert.False(t, f.Contains(Point{X: 9, Y: 30}))
	assert.Equal(t, 0.0, Frame{Width: -1, Height: 5}.Area())
}

func TestCheckTools(t *testing.T) {
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })

	installed := map[string]bool{"xcrun": true, "idb": true}
	lookPath = func(name string) (string, error) {
		if installed[name] {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}

	runner := &fakeRunner{}
	require.NoError(t, CheckTools(context.Background(), runner.run))
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"simctl", "help"}, runner.calls[0].args)

	runner = &fakeRunner{fail: map[string]bool{"simctl": true}}
	err := CheckTools(context.Background(), runner.run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	installed["idb"] = false
	err = CheckTools(context.Background(), (&fakeRunner{}).run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "idb is required")
}
