package parameters

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semstreams-robotics/errors"
)

func TestTree_LookupAndDecode(t *testing.T) {
	tree, err := NewTree(map[string]any{
		"behavior": map[string]any{
			"path_planning": map[string]any{"line_walking_speed": 0.2},
		},
	})
	require.NoError(t, err)

	snap := tree.Snapshot()
	assert.Equal(t, uint64(1), snap.Version())

	var speed float64
	require.NoError(t, snap.Decode("behavior.path_planning.line_walking_speed", &speed))
	assert.Equal(t, 0.2, speed)

	_, ok := snap.Lookup("behavior.missing")
	assert.False(t, ok)

	err = snap.Decode("behavior.missing", &speed)
	assert.ErrorIs(t, err, errors.ErrConfigNotFound)

	var wrong string
	err = snap.Decode("behavior.path_planning.line_walking_speed", &wrong)
	assert.ErrorIs(t, err, errors.ErrParsingFailed)
}

func TestTree_SetCreatesPathAndKeepsOldSnapshots(t *testing.T) {
	tree, err := NewTree(map[string]any{"a": map[string]any{"b": 1}})
	require.NoError(t, err)
	before := tree.Snapshot()

	require.NoError(t, tree.Set("a.c.d", json.RawMessage(`{"x": true}`)))
	after := tree.Snapshot()

	assert.Equal(t, before.Version()+1, after.Version())
	_, ok := before.Lookup("a.c")
	assert.False(t, ok, "old snapshot must not change")

	raw, ok := after.Lookup("a.c.d.x")
	require.True(t, ok)
	assert.JSONEq(t, "true", string(raw))

	raw, ok = after.Lookup("a.b")
	require.True(t, ok, "siblings survive")
	assert.JSONEq(t, "1", string(raw))
}

func TestTree_SetRejectsInvalidJSON(t *testing.T) {
	tree, err := NewTree(nil)
	require.NoError(t, err)

	err = tree.Set("a", json.RawMessage(`{`))
	assert.True(t, errors.IsInvalid(err))
	assert.Equal(t, uint64(1), tree.Snapshot().Version())

	assert.Error(t, tree.Set("", json.RawMessage(`1`)))
}

func TestTree_DeleteRestoresBaseValue(t *testing.T) {
	tree, err := NewTree(map[string]any{"a": map[string]any{"b": 1, "c": 2}})
	require.NoError(t, err)

	require.NoError(t, tree.Set("a.b", json.RawMessage(`9`)))
	require.NoError(t, tree.Set("a.x", json.RawMessage(`"new"`)))
	assert.Equal(t, uint64(3), tree.Snapshot().Version())

	require.NoError(t, tree.Delete("a.b"))
	assert.Equal(t, uint64(4), tree.Snapshot().Version())
	var b int
	require.NoError(t, tree.Snapshot().Decode("a.b", &b))
	assert.Equal(t, 1, b, "base value shows through again")

	require.NoError(t, tree.Delete("a.x"))
	_, ok := tree.Snapshot().Lookup("a.x")
	assert.False(t, ok, "a key only set live is gone")

	require.NoError(t, tree.Delete("a.c"))
	require.NoError(t, tree.Delete("x.y"))
	assert.Equal(t, uint64(5), tree.Snapshot().Version(), "paths without override are left alone")
	var c int
	require.NoError(t, tree.Snapshot().Decode("a.c", &c))
	assert.Equal(t, 2, c)
}

func TestTree_DeleteRestoresScalarBelowOverrideSubtree(t *testing.T) {
	tree, err := NewTree(map[string]any{"a": 1})
	require.NoError(t, err)

	require.NoError(t, tree.Set("a.b.c", json.RawMessage(`2`)))
	assert.JSONEq(t, `{"a": {"b": {"c": 2}}}`, string(tree.Snapshot().Document()))

	require.NoError(t, tree.Delete("a.b.c"))
	assert.JSONEq(t, `{"a": 1}`, string(tree.Snapshot().Document()))
}

func TestTree_OverrideOfLoadedFileValue(t *testing.T) {
	tree, err := Load("../etc/parameters", "", "")
	require.NoError(t, err)

	var timeout string
	require.NoError(t, tree.Snapshot().Decode("behavior.lost_ball_timeout", &timeout))
	assert.Equal(t, "4s", timeout)

	require.NoError(t, tree.Set("behavior.lost_ball_timeout", json.RawMessage(`"9s"`)))
	require.NoError(t, tree.Snapshot().Decode("behavior.lost_ball_timeout", &timeout))
	assert.Equal(t, "9s", timeout)

	require.NoError(t, tree.Delete("behavior.lost_ball_timeout"))
	require.NoError(t, tree.Snapshot().Decode("behavior.lost_ball_timeout", &timeout))
	assert.Equal(t, "4s", timeout)
}

func TestTree_ReplaceKeepsOverrides(t *testing.T) {
	tree, err := NewTree(map[string]any{"a": 1})
	require.NoError(t, err)
	require.NoError(t, tree.Set("b", json.RawMessage(`2`)))

	require.NoError(t, tree.Replace(map[string]any{"a": 3}))
	assert.JSONEq(t, `{"a": 3, "b": 2}`, string(tree.Snapshot().Document()))
}

func TestTree_ConcurrentSetAndRead(t *testing.T) {
	tree, err := NewTree(nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				raw, _ := json.Marshal(j)
				assert.NoError(t, tree.Set("counter", raw))
				_ = tree.Snapshot().Version()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, uint64(401), tree.Snapshot().Version())
}

func TestLoad_MergesOverlays(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	write("default.json", `{"player": {"number": 1, "role": "striker"}, "team": {"ball_timeout": "5s"}}`)
	write("body.b1.yaml", "player:\n  number: 3\n")
	write("head.h1.json", `{"player": {"role": "keeper"}}`)

	tree, err := Load(dir, "b1", "h1")
	require.NoError(t, err)
	snap := tree.Snapshot()

	var number int
	require.NoError(t, snap.Decode("player.number", &number))
	assert.Equal(t, 3, number)

	var role string
	require.NoError(t, snap.Decode("player.role", &role))
	assert.Equal(t, "keeper", role)

	var timeout string
	require.NoError(t, snap.Decode("team.ball_timeout", &timeout))
	assert.Equal(t, "5s", timeout)
}

func TestLoad_MissingDefaultIsFatal(t *testing.T) {
	_, err := Load(t.TempDir(), "b1", "h1")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConfigNotFound)
	assert.True(t, errors.IsFatal(err))
}
