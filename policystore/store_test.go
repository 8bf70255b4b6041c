package policystore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenWithoutPath(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	require.Equal(t, Empty, s.State())
	require.False(t, s.Configured())

	s.Update(1, json.RawMessage(`"x"`))
	require.NoError(t, s.Persist())
	require.Equal(t, Empty, s.State(), "an unconfigured store never persists")
}

func TestFileStoreLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "policies.json")

	s, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, Empty, s.State(), "absent file starts empty")
	_, ok := s.Lookup(1)
	require.False(t, ok)

	s.Update(1, json.RawMessage(`{"q":1}`))
	s.Update(3, json.RawMessage(`[1,2]`))
	require.NoError(t, s.Persist())
	require.Equal(t, Persisted, s.State())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp file left behind")

	again, err := Open(path)
	require.NoError(t, err)
	require.True(t, again.Loaded())
	require.Equal(t, []int{1, 3}, again.IDs())
	blob, ok := again.Lookup(1)
	require.True(t, ok)
	require.JSONEq(t, `{"q":1}`, string(blob))
	_, ok = again.Lookup(2)
	require.False(t, ok, "missing ids are tolerated")

	again.Update(1, json.RawMessage(`{"q":2}`))
	require.NoError(t, again.Persist())

	final, err := Open(path)
	require.NoError(t, err)
	blob, _ = final.Lookup(1)
	require.JSONEq(t, `{"q":2}`, string(blob))
	blob, _ = final.Lookup(3)
	require.JSONEq(t, `[1,2]`, string(blob), "entries not touched this run survive")
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"one": 1}`), 0644))
	_, err := Open(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0644))
	_, err = Open(path)
	require.Error(t, err)
}

func TestSQLiteStoreLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, Empty, s.State())
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err), "loading does not create the database")

	s.Update(1, json.RawMessage(`{"q":1}`))
	s.Update(2, json.RawMessage(`{"q":2}`))
	require.NoError(t, s.Persist())

	again, err := Open(path)
	require.NoError(t, err)
	require.True(t, again.Loaded())
	require.Equal(t, []int{1, 2}, again.IDs())

	again.Update(2, json.RawMessage(`{"q":3}`))
	require.NoError(t, again.Persist())

	final, err := Open(path)
	require.NoError(t, err)
	blob, ok := final.Lookup(2)
	require.True(t, ok)
	require.JSONEq(t, `{"q":3}`, string(blob))
	blob, ok = final.Lookup(1)
	require.True(t, ok)
	require.JSONEq(t, `{"q":1}`, string(blob))
}

func TestSnapshotIsACopy(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	s.Update(1, json.RawMessage(`"a"`))
	snap := s.Snapshot()
	snap[1][1] = 'b'
	blob, _ := s.Lookup(1)
	require.Equal(t, `"a"`, string(blob))
}
