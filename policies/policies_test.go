package policies

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQTableUpdate(t *testing.T) {
	q := NewQTable()
	q.Set("next", "a", 10)

	val := q.Update("s", "a", 1, "next", 0.5, 0.9)
	require.InDelta(t, 0.5*(1+0.9*10), val, 1e-9)
	require.InDelta(t, val, q.Get("s", "a", 0), 1e-9)

	a, v := q.Max("s", -1)
	require.Equal(t, "a", a)
	require.InDelta(t, val, v, 1e-9)

	a, v = q.Max("unknown", -1)
	require.Equal(t, "", a)
	require.Equal(t, float64(-1), v)
	require.False(t, q.Exists("unknown"))
}

func TestQTableMaxAmong(t *testing.T) {
	q := NewQTable()
	q.Set("s", "a", 1)
	q.Set("s", "b", 3)
	a, v := q.MaxAmong("s", []string{"a", "b", "c"}, 0)
	require.Equal(t, "b", a)
	require.Equal(t, float64(3), v)

	a, _ = q.MaxAmong("s", nil, 0)
	require.Equal(t, "", a)
}

func TestQTableJSON(t *testing.T) {
	q := NewQTable()
	q.Set("s", "a", 1.5)
	bs, err := json.Marshal(q)
	require.NoError(t, err)
	require.JSONEq(t, `{"s":{"a":1.5}}`, string(bs))

	other := NewQTable()
	require.NoError(t, json.Unmarshal(bs, other))
	require.Equal(t, 1.5, other.Get("s", "a", 0))
	require.Equal(t, 1, other.Size())
}

func TestSoftMaxWeights(t *testing.T) {
	p := NewSoftMaxPolicy(0.1, 0.9, 1)
	p.Seed(3)
	w := p.Weights("s", []string{"a", "b"})
	require.InDelta(t, 0.5, w[0], 1e-9)
	require.InDelta(t, 0.5, w[1], 1e-9)

	p.QTable.Set("s", "a", 100)
	w = p.Weights("s", []string{"a", "b"})
	require.Greater(t, w[0], 0.99)
	for i := 0; i < 20; i++ {
		require.Equal(t, "a", p.PickAction("s", []string{"a", "b"}))
	}
	require.Equal(t, "", p.PickAction("s", nil))
}

func TestSoftMaxFreeze(t *testing.T) {
	p := NewSoftMaxPolicy(0.5, 0.9, 1)
	p.UpdateStep("s", "a", 2, "t")
	require.Equal(t, float64(1), p.QTable.Get("s", "a", 0))

	p.Freeze()
	p.UpdateStep("s", "a", 2, "t")
	require.Equal(t, float64(1), p.QTable.Get("s", "a", 0))

	bs, err := json.Marshal(p)
	require.NoError(t, err)
	fresh := NewSoftMaxPolicy(0.5, 0.9, 1)
	require.NoError(t, json.Unmarshal(bs, fresh))
	require.Equal(t, float64(1), fresh.QTable.Get("s", "a", 0))
}

func TestRandomPolicy(t *testing.T) {
	r := NewSeededRandomPolicy(1)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[r.PickAction([]string{"x", "y"})] = true
	}
	require.Len(t, seen, 2)
	require.Equal(t, "", r.PickAction(nil))
}
