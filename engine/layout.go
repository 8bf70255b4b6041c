package engine

import (
	"errors"
	"fmt"
)

var ErrUnknownLayout = errors.New("unknown layout")

const MaxAdversaries = 4

// Layout is an immutable board description. Rows are read top to bottom,
// '%' is a wall, '.' food, 'P' the controller start and 'G' adversary
// starts in the order they appear.
type Layout struct {
	Name   string
	Width  int
	Height int

	walls           [][]bool
	food            []Position
	controllerStart Position
	adversaryStarts []Position
}

var builtinLayouts = map[string][]string{
	"classic": {
		"%%%%%%%%%%%%%%%%%%%%",
		"%......%G  G%......%",
		"%.%%...%%  %%...%%.%",
		"%.%...G......G...%.%",
		"%.%.%%.%%  %%.%%.%.%",
		"%........P.........%",
		"%.%.%%.%%%%%%.%%.%.%",
		"%.%..............%.%",
		"%.%%...%%%%%%...%%.%",
		"%..................%",
		"%%%%%%%%%%%%%%%%%%%%",
	},
	"medium": {
		"%%%%%%%%%%%%%%%%%%%%%%%%%%%%",
		"%.....%.................%..%",
		"%.%%%.%.%%%.%%%%%%%.%%%.%..%",
		"%.%...%.%......G....%...%..%",
		"%.%.%%%.%.%%%%%%%%%.%.%%%..%",
		"%.%.....%......G....%.....G%",
		"%.%%%%%.%%%%%.%%%%%%%%%.%%.%",
		"%......P................G..%",
		"%.%%%.%%%%%%%%%%.%%%%%%%%%.%",
		"%..........................%",
		"%%%%%%%%%%%%%%%%%%%%%%%%%%%%",
	},
}

// LayoutNames lists the built-in layouts.
func LayoutNames() []string {
	return []string{"classic", "medium"}
}

// GetLayout resolves a built-in layout keeping the first n adversary starts.
func GetLayout(name string, adversaries int) (*Layout, error) {
	rows, ok := builtinLayouts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
	}
	if adversaries < 1 || adversaries > MaxAdversaries {
		return nil, fmt.Errorf("%w: %q does not support %d adversaries", ErrUnknownLayout, name, adversaries)
	}
	l, err := parseLayout(name, rows)
	if err != nil {
		return nil, err
	}
	if len(l.adversaryStarts) < adversaries {
		return nil, fmt.Errorf("%w: %q has %d adversary starts, need %d", ErrUnknownLayout, name, len(l.adversaryStarts), adversaries)
	}
	l.adversaryStarts = l.adversaryStarts[:adversaries]
	return l, nil
}

func parseLayout(name string, rows []string) (*Layout, error) {
	l := &Layout{
		Name:   name,
		Height: len(rows),
		Width:  len(rows[0]),
		walls:  make([][]bool, len(rows)),
	}
	controllers := 0
	for y, row := range rows {
		if len(row) != l.Width {
			return nil, fmt.Errorf("layout %q: row %d has width %d, want %d", name, y, len(row), l.Width)
		}
		l.walls[y] = make([]bool, l.Width)
		for x, c := range row {
			p := Position{X: x, Y: y}
			switch c {
			case '%':
				l.walls[y][x] = true
			case '.':
				l.food = append(l.food, p)
			case 'P':
				l.controllerStart = p
				controllers++
			case 'G':
				l.adversaryStarts = append(l.adversaryStarts, p)
			}
		}
	}
	if controllers != 1 {
		return nil, fmt.Errorf("layout %q: want exactly one controller start, got %d", name, controllers)
	}
	return l, nil
}

// IsWall reports whether p is a wall or off the board.
func (l *Layout) IsWall(p Position) bool {
	if p.X < 0 || p.Y < 0 || p.X >= l.Width || p.Y >= l.Height {
		return true
	}
	return l.walls[p.Y][p.X]
}

// Walls returns the wall grid as rows of '%' and ' '.
func (l *Layout) Walls() []string {
	out := make([]string, l.Height)
	for y := range l.walls {
		row := make([]byte, l.Width)
		for x, w := range l.walls[y] {
			if w {
				row[x] = '%'
			} else {
				row[x] = ' '
			}
		}
		out[y] = string(row)
	}
	return out
}

func (l *Layout) Adversaries() int {
	return len(l.adversaryStarts)
}
