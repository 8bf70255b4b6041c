package display

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zeu5/pacman-adapter/engine"
)

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"graphical": Graphical,
		"Graphic":   Graphical,
		"text":      Textual,
		"Textual":   Textual,
		"None":      None,
		"":          None,
	}
	for in, want := range cases {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ParseMode("hologram")
	require.ErrorIs(t, err, ErrUnknownDisplay)
}

func TestNew(t *testing.T) {
	buf := new(bytes.Buffer)

	d, err := New(None, buf, 0)
	require.NoError(t, err)
	require.IsType(t, NullDisplay{}, d)

	d, err = New(Graphical, buf, 0)
	require.NoError(t, err)
	require.IsType(t, &TextDisplay{}, d, "a buffer is not a terminal")

	_, err = New(Mode("hologram"), buf, 0)
	require.ErrorIs(t, err, ErrUnknownDisplay)
}

func TestTextDisplay(t *testing.T) {
	l, err := engine.GetLayout("classic", 1)
	require.NoError(t, err)
	s := engine.NewState(l, 1, []int{2})

	buf := new(bytes.Buffer)
	d := NewTextDisplay(buf)
	d.Initialize(s)
	d.Update(s)
	d.Finish()

	out := buf.String()
	require.Contains(t, out, "P")
	require.Contains(t, out, "G")
	require.Contains(t, out, "Turn 0, Score: 0")
	require.Contains(t, out, "Episode over")
}
