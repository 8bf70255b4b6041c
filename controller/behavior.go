package controller

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/zeu5/pacman-adapter/engine"
	"github.com/zeu5/pacman-adapter/policies"
	"github.com/zeu5/pacman-adapter/util"
)

const (
	learningRate = 0.1
	discount     = 0.9
	temperature  = 2.0

	// distances are bucketed so the table stays small
	distanceBuckets = 6
)

// behavior turns an abstract intent into a concrete move.
type behavior func(a *behaviorAgent, obs *engine.Observation) engine.Direction

var pacmanBehaviors = map[string]behavior{
	"eat": func(a *behaviorAgent, obs *engine.Observation) engine.Direction {
		pos, _ := obs.State.Position(a.id)
		if food, ok := nearest(pos, obs.State.Food); ok {
			return towards(pos, food, obs.Legal, a.tie)
		}
		return engine.Direction(a.tie.PickAction(directionNames(obs.Legal)))
	},
	"flee": func(a *behaviorAgent, obs *engine.Observation) engine.Direction {
		pos, _ := obs.State.Position(a.id)
		if ghost, ok := nearest(pos, ghostPositions(obs.State)); ok {
			return away(pos, ghost, obs.Legal, a.tie)
		}
		return engine.Direction(a.tie.PickAction(directionNames(obs.Legal)))
	},
	"wander": func(a *behaviorAgent, obs *engine.Observation) engine.Direction {
		return engine.Direction(a.tie.PickAction(directionNames(obs.Legal)))
	},
}

var ghostBehaviors = map[string]behavior{
	"chase": func(a *behaviorAgent, obs *engine.Observation) engine.Direction {
		pos, _ := obs.State.Position(a.id)
		return towards(pos, obs.State.Controller, obs.Legal, a.tie)
	},
	"scatter": func(a *behaviorAgent, obs *engine.Observation) engine.Direction {
		pos, _ := obs.State.Position(a.id)
		return away(pos, obs.State.Controller, obs.Legal, a.tie)
	},
	"wander": func(a *behaviorAgent, obs *engine.Observation) engine.Direction {
		return engine.Direction(a.tie.PickAction(directionNames(obs.Legal)))
	},
}

// behaviorAgent learns which behavior to follow in each abstract state. It
// keeps a tally of the behaviors chosen in the current episode.
type behaviorAgent struct {
	id        int
	adversary bool
	behaviors map[string]behavior
	names     []string
	policy    *policies.SoftMaxPolicy
	tie       *policies.RandomPolicy

	lastState    string
	lastBehavior string
	lastScore    float64
	count        map[string]int
}

func newBehaviorAgent(id int, adversary bool, behaviors map[string]behavior, seed uint64) *behaviorAgent {
	names := make([]string, 0, len(behaviors))
	for name := range behaviors {
		names = append(names, name)
	}
	sort.Strings(names)
	policy := policies.NewSoftMaxPolicy(learningRate, discount, temperature)
	policy.Seed(seed)
	return &behaviorAgent{
		id:        id,
		adversary: adversary,
		behaviors: behaviors,
		names:     names,
		policy:    policy,
		tie:       policies.NewSeededRandomPolicy(seed + 1),
		count:     make(map[string]int),
	}
}

func (a *behaviorAgent) StartEpisode(int, int) {
	a.lastState = ""
	a.lastBehavior = ""
	a.lastScore = 0
	a.count = make(map[string]int)
}

func (a *behaviorAgent) Act(obs *engine.Observation) engine.Direction {
	key := a.stateKey(obs.State)
	a.learn(key, obs.State.Score)

	name := a.policy.PickAction(key, a.names)
	a.count[name]++
	a.lastState = key
	a.lastBehavior = name
	a.lastScore = obs.State.Score

	d := a.behaviors[name](a, obs)
	if d == "" && len(obs.Legal) > 0 {
		d = obs.Legal[0]
	}
	return d
}

func (a *behaviorAgent) Final(obs *engine.Observation) {
	a.learn("terminal", obs.State.Score)
	a.lastState = ""
}

func (a *behaviorAgent) learn(next string, score float64) {
	if a.lastState == "" {
		return
	}
	a.policy.UpdateStep(a.lastState, a.lastBehavior, a.reward(score-a.lastScore), next)
}

// reward is the score change seen from this agent's side.
func (a *behaviorAgent) reward(delta float64) float64 {
	if a.adversary {
		return -delta
	}
	return delta
}

func (a *behaviorAgent) EnableTestMode() {
	a.policy.Freeze()
}

func (a *behaviorAgent) Policy() (json.RawMessage, error) {
	return json.Marshal(a.policy)
}

func (a *behaviorAgent) LoadPolicy(blob json.RawMessage) error {
	return json.Unmarshal(blob, a.policy)
}

func (a *behaviorAgent) BehaviorCount() map[string]int {
	return util.CopyStringIntMap(a.count)
}

func (a *behaviorAgent) stateKey(s *engine.State) string {
	pos, _ := s.Position(a.id)
	if a.adversary {
		return fmt.Sprintf("pacman:%d", bucket(pos.Distance(s.Controller)))
	}
	ghost := distanceBuckets
	if g, ok := nearest(pos, ghostPositions(s)); ok {
		ghost = bucket(pos.Distance(g))
	}
	food := distanceBuckets
	if f, ok := nearest(pos, s.Food); ok {
		food = bucket(pos.Distance(f))
	}
	return fmt.Sprintf("ghost:%d,food:%d", ghost, food)
}

func bucket(d int) int {
	return util.MinInt(d, distanceBuckets-1)
}

func ghostPositions(s *engine.State) []engine.Position {
	out := make([]engine.Position, 0, len(s.Adversaries))
	for _, p := range s.Adversaries {
		out = append(out, p)
	}
	return out
}
