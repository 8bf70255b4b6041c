package engine

import (
	"sort"
	"strings"
)

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) Move(d Direction) Position {
	switch d {
	case North:
		return Position{p.X, p.Y - 1}
	case South:
		return Position{p.X, p.Y + 1}
	case East:
		return Position{p.X + 1, p.Y}
	case West:
		return Position{p.X - 1, p.Y}
	}
	return p
}

// Distance is the manhattan distance between two cells.
func (p Position) Distance(o Position) int {
	dx, dy := p.X-o.X, p.Y-o.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

type Direction string

const (
	North Direction = "North"
	South Direction = "South"
	East  Direction = "East"
	West  Direction = "West"
	Stop  Direction = "Stop"
)

var allDirections = []Direction{North, South, East, West}

// Scoring, as in the Berkeley rules the agents were written against.
const (
	TimePenalty = 1
	FoodReward  = 10
	WinReward   = 500
	LoseReward  = -500
)

// State is the full game state. It is what the engine hands to displays and
// what agents observe (possibly with noisy positions).
type State struct {
	Width       int              `json:"width"`
	Height      int              `json:"height"`
	Walls       []string         `json:"walls"`
	Controller  Position         `json:"controller"`
	Adversaries map[int]Position `json:"adversaries"`
	Food        []Position       `json:"food"`
	Score       float64          `json:"score"`
	Turn        int              `json:"turn"`
	Terminal    bool             `json:"terminal"`
	Won         bool             `json:"won"`

	ControllerID int `json:"controller_id"`

	layout *Layout
	food   map[Position]bool
}

// Observation is what an acting participant receives for one decision.
type Observation struct {
	AgentID int         `json:"agent_id"`
	State   *State      `json:"state"`
	Legal   []Direction `json:"legal"`
}

// NewState places the controller and adversaries at their starts. ids must
// contain one id per adversary start, in start order.
func NewState(l *Layout, controllerID int, adversaryIDs []int) *State {
	s := &State{
		Width:        l.Width,
		Height:       l.Height,
		Walls:        l.Walls(),
		Controller:   l.controllerStart,
		Adversaries:  make(map[int]Position, len(adversaryIDs)),
		ControllerID: controllerID,
		layout:       l,
		food:         make(map[Position]bool, len(l.food)),
	}
	for i, id := range adversaryIDs {
		s.Adversaries[id] = l.adversaryStarts[i]
	}
	for _, f := range l.food {
		s.food[f] = true
	}
	s.syncFood()
	return s
}

func (s *State) syncFood() {
	s.Food = make([]Position, 0, len(s.food))
	for f := range s.food {
		s.Food = append(s.Food, f)
	}
	sort.Slice(s.Food, func(i, j int) bool {
		if s.Food[i].Y != s.Food[j].Y {
			return s.Food[i].Y < s.Food[j].Y
		}
		return s.Food[i].X < s.Food[j].X
	})
}

// Copy returns an independent snapshot.
func (s *State) Copy() *State {
	out := *s
	out.Adversaries = make(map[int]Position, len(s.Adversaries))
	for id, p := range s.Adversaries {
		out.Adversaries[id] = p
	}
	out.Food = append([]Position(nil), s.Food...)
	out.food = make(map[Position]bool, len(s.food))
	for f := range s.food {
		out.food[f] = true
	}
	return &out
}

// IsWall works on decoded states too, where only Walls is populated.
func (s *State) IsWall(p Position) bool {
	if p.X < 0 || p.Y < 0 || p.Y >= len(s.Walls) || p.X >= len(s.Walls[p.Y]) {
		return true
	}
	return s.Walls[p.Y][p.X] == '%'
}

// Legal lists the moves available to agentID. The controller may Stop,
// adversaries must keep moving unless boxed in.
func (s *State) Legal(agentID int) []Direction {
	pos, ok := s.position(agentID)
	if !ok {
		return nil
	}
	out := make([]Direction, 0, 5)
	for _, d := range allDirections {
		if !s.IsWall(pos.Move(d)) {
			out = append(out, d)
		}
	}
	if agentID == s.ControllerID || len(out) == 0 {
		out = append(out, Stop)
	}
	return out
}

func (s *State) position(agentID int) (Position, bool) {
	if agentID == s.ControllerID {
		return s.Controller, true
	}
	p, ok := s.Adversaries[agentID]
	return p, ok
}

// Position returns where agentID currently is.
func (s *State) Position(agentID int) (Position, bool) {
	return s.position(agentID)
}

// apply moves agentID and resolves food and collisions.
func (s *State) apply(agentID int, d Direction) {
	if agentID == s.ControllerID {
		s.Controller = s.Controller.Move(d)
		s.Score -= TimePenalty
		if s.food[s.Controller] {
			delete(s.food, s.Controller)
			s.Score += FoodReward
			s.syncFood()
			if len(s.food) == 0 {
				s.Score += WinReward
				s.Terminal = true
				s.Won = true
				return
			}
		}
	} else {
		s.Adversaries[agentID] = s.Adversaries[agentID].Move(d)
	}
	for _, p := range s.Adversaries {
		if p == s.Controller {
			s.Score += LoseReward
			s.Terminal = true
			return
		}
	}
}

// String renders the board as text.
func (s *State) String() string {
	grid := make([][]byte, len(s.Walls))
	for y, row := range s.Walls {
		grid[y] = []byte(row)
	}
	put := func(p Position, c byte) {
		if p.Y >= 0 && p.Y < len(grid) && p.X >= 0 && p.X < len(grid[p.Y]) {
			grid[p.Y][p.X] = c
		}
	}
	for _, f := range s.Food {
		put(f, '.')
	}
	ids := make([]int, 0, len(s.Adversaries))
	for id := range s.Adversaries {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		put(s.Adversaries[id], 'G')
	}
	put(s.Controller, 'P')

	b := new(strings.Builder)
	for _, row := range grid {
		b.Write(row)
		b.WriteByte('\n')
	}
	return b.String()
}
