package display

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gosuri/uilive"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/zeu5/pacman-adapter/engine"
)

var ErrUnknownDisplay = errors.New("display type must be one of graphical, textual or none")

type Mode string

const (
	Graphical Mode = "graphical"
	Textual   Mode = "textual"
	None      Mode = "none"
)

// ParseMode accepts the canonical names plus the short aliases the old
// command line used.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "graphical", "graphic", "gui":
		return Graphical, nil
	case "textual", "text":
		return Textual, nil
	case "none", "null", "":
		return None, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDisplay, s)
}

// New builds the display for mode writing to w. A graphical display needs a
// terminal; on anything else it degrades to textual output.
func New(mode Mode, w io.Writer, frameTime time.Duration) (engine.Display, error) {
	switch mode {
	case None:
		return NullDisplay{}, nil
	case Textual:
		return NewTextDisplay(w), nil
	case Graphical:
		if f, ok := w.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
			log.Warn().Str("component", "display").Msg("output is not a terminal, falling back to textual display")
			return NewTextDisplay(w), nil
		}
		return NewLiveDisplay(w, frameTime), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDisplay, mode)
}

type NullDisplay struct{}

var _ engine.Display = NullDisplay{}

func (NullDisplay) Initialize(*engine.State) {}
func (NullDisplay) Update(*engine.State)     {}
func (NullDisplay) Finish()                  {}

// TextDisplay prints every frame one after the other.
type TextDisplay struct {
	w io.Writer
}

var _ engine.Display = &TextDisplay{}

func NewTextDisplay(w io.Writer) *TextDisplay {
	return &TextDisplay{w: w}
}

func (t *TextDisplay) Initialize(s *engine.State) {
	fmt.Fprint(t.w, s.String())
}

func (t *TextDisplay) Update(s *engine.State) {
	fmt.Fprintf(t.w, "Turn %d, Score: %.0f\n%s", s.Turn, s.Score, s.String())
}

func (t *TextDisplay) Finish() {
	fmt.Fprintln(t.w, "Episode over")
}

// LiveDisplay redraws a single frame in place.
type LiveDisplay struct {
	writer    *uilive.Writer
	frameTime time.Duration
}

var _ engine.Display = &LiveDisplay{}

func NewLiveDisplay(w io.Writer, frameTime time.Duration) *LiveDisplay {
	writer := uilive.New()
	writer.Out = w
	return &LiveDisplay{writer: writer, frameTime: frameTime}
}

func (l *LiveDisplay) Initialize(s *engine.State) {
	l.writer.Start()
	l.draw(s)
}

func (l *LiveDisplay) Update(s *engine.State) {
	l.draw(s)
	if l.frameTime > 0 {
		time.Sleep(l.frameTime)
	}
}

func (l *LiveDisplay) Finish() {
	l.writer.Stop()
}

func (l *LiveDisplay) draw(s *engine.State) {
	fmt.Fprintf(l.writer, "Turn %d, Score: %.0f\n%s", s.Turn, s.Score, s.String())
	l.writer.Flush()
}
