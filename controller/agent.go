package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/zeu5/pacman-adapter/agents"
	"github.com/zeu5/pacman-adapter/engine"
	"github.com/zeu5/pacman-adapter/policies"
)

var ErrNoPolicy = errors.New("agent has no policy")

// Agent is the decision logic behind one registered participant.
type Agent interface {
	StartEpisode(width, height int)
	Act(*engine.Observation) engine.Direction
	// Final is handed the terminal observation of an episode
	Final(*engine.Observation)
	EnableTestMode()
	Policy() (json.RawMessage, error)
	LoadPolicy(json.RawMessage) error
	BehaviorCount() map[string]int
}

// NewAgent instantiates the decision class registered for role.
func NewAgent(id int, role agents.Role, class string, seed uint64) (Agent, error) {
	c, err := agents.LookupClass(role, class)
	if err != nil {
		return nil, err
	}
	switch {
	case c.Name == "random":
		return newRandomAgent(id, seed), nil
	case c.Name == "eater" && role == agents.RoleController:
		return newEaterAgent(id, seed), nil
	case c.Name == "ai" && role == agents.RoleController:
		return newBehaviorAgent(id, false, pacmanBehaviors, seed), nil
	case c.Name == "ai" && role == agents.RoleAdversary:
		return newBehaviorAgent(id, true, ghostBehaviors, seed), nil
	}
	return nil, fmt.Errorf("%w: %s %q", agents.ErrUnknownClass, role, class)
}

// baseAgent answers the policy and behavior queries of agents that do not
// learn.
type baseAgent struct{}

func (baseAgent) StartEpisode(int, int)            {}
func (baseAgent) Final(*engine.Observation)        {}
func (baseAgent) EnableTestMode()                  {}
func (baseAgent) BehaviorCount() map[string]int    { return map[string]int{} }
func (baseAgent) Policy() (json.RawMessage, error) { return nil, ErrNoPolicy }
func (baseAgent) LoadPolicy(json.RawMessage) error { return ErrNoPolicy }

type randomAgent struct {
	baseAgent
	id     int
	policy *policies.RandomPolicy
}

func newRandomAgent(id int, seed uint64) *randomAgent {
	return &randomAgent{id: id, policy: policies.NewSeededRandomPolicy(seed)}
}

func (r *randomAgent) Act(obs *engine.Observation) engine.Direction {
	return engine.Direction(r.policy.PickAction(directionNames(obs.Legal)))
}

// eaterAgent always heads for the closest food.
type eaterAgent struct {
	baseAgent
	id     int
	policy *policies.RandomPolicy
}

func newEaterAgent(id int, seed uint64) *eaterAgent {
	return &eaterAgent{id: id, policy: policies.NewSeededRandomPolicy(seed)}
}

func (e *eaterAgent) Act(obs *engine.Observation) engine.Direction {
	pos, _ := obs.State.Position(e.id)
	target, ok := nearest(pos, obs.State.Food)
	if !ok {
		return engine.Direction(e.policy.PickAction(directionNames(obs.Legal)))
	}
	return towards(pos, target, obs.Legal, e.policy)
}

func directionNames(ds []engine.Direction) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = string(d)
	}
	return out
}

func nearest(from engine.Position, targets []engine.Position) (engine.Position, bool) {
	best := math.MaxInt
	var out engine.Position
	for _, t := range targets {
		if d := from.Distance(t); d < best {
			best = d
			out = t
		}
	}
	return out, best != math.MaxInt
}

// towards picks a legal move that gets closest to target. Ties are broken
// by the given policy.
func towards(from, target engine.Position, legal []engine.Direction, tie *policies.RandomPolicy) engine.Direction {
	return pickBy(from, legal, tie, func(p engine.Position) int { return p.Distance(target) })
}

func away(from, target engine.Position, legal []engine.Direction, tie *policies.RandomPolicy) engine.Direction {
	return pickBy(from, legal, tie, func(p engine.Position) int { return -p.Distance(target) })
}

func pickBy(from engine.Position, legal []engine.Direction, tie *policies.RandomPolicy, cost func(engine.Position) int) engine.Direction {
	best := math.MaxInt
	candidates := make([]string, 0)
	for _, d := range legal {
		c := cost(from.Move(d))
		if c < best {
			best = c
			candidates = candidates[:0]
		}
		if c == best {
			candidates = append(candidates, string(d))
		}
	}
	return engine.Direction(tie.PickAction(candidates))
}
