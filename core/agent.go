package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/zeu5/pacman-adapter/agents"
	"github.com/zeu5/pacman-adapter/engine"
	"github.com/zeu5/pacman-adapter/protocol"
)

// ControllerID is the fixed id of the controller. Adversaries follow it.
const ControllerID = 1

var ErrInvalidTeam = errors.New("invalid team")

// Agent is what the orchestrator needs from a remote participant.
// *agents.Proxy implements it.
type Agent interface {
	engine.Participant
	Learning() bool
	StartEpisode(width, height int) error
	EnableTestMode() error
	Notify(*engine.State) error
	LoadPolicy(json.RawMessage) error
	RequestPolicy() (json.RawMessage, error)
	BehaviorCount() (map[string]int, error)
	Close() error
}

var _ Agent = &agents.Proxy{}

// Team is the controller plus its adversaries in ascending id order.
type Team struct {
	Controller  Agent
	Adversaries []Agent
}

func NewTeam(controller Agent, adversaries []Agent) *Team {
	sorted := append([]Agent(nil), adversaries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID() < sorted[j].ID() })
	return &Team{Controller: controller, Adversaries: sorted}
}

// All returns the fixed addressing order: controller first.
func (t *Team) All() []Agent {
	return append([]Agent{t.Controller}, t.Adversaries...)
}

func (t *Team) Learning() []Agent {
	out := make([]Agent, 0)
	for _, a := range t.All() {
		if a.Learning() {
			out = append(out, a)
		}
	}
	return out
}

func (t *Team) participants() []engine.Participant {
	out := make([]engine.Participant, len(t.Adversaries))
	for i, a := range t.Adversaries {
		out[i] = a
	}
	return out
}

func (t *Team) Close() error {
	var errs []error
	for _, a := range t.All() {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TeamConfig selects the decision classes and size of the team.
type TeamConfig struct {
	ControllerClass string
	AdversaryClass  string
	Adversaries     int
	Noise           int
}

func (c *TeamConfig) Validate() error {
	if c.Adversaries < 1 || c.Adversaries > engine.MaxAdversaries {
		return fmt.Errorf("%w: adversaries must be between 1 and %d, got %d", ErrInvalidTeam, engine.MaxAdversaries, c.Adversaries)
	}
	if c.Noise < 0 {
		return fmt.Errorf("%w: noise must be non-negative, got %d", ErrInvalidTeam, c.Noise)
	}
	if _, err := agents.LookupClass(agents.RoleController, c.ControllerClass); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTeam, err)
	}
	if _, err := agents.LookupClass(agents.RoleAdversary, c.AdversaryClass); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTeam, err)
	}
	return nil
}

// DialFunc opens the dedicated channel for one agent.
type DialFunc func(agentID int) (protocol.Channel, error)

// BuildTeam validates the configuration before any channel is opened, then
// creates, registers and initializes one proxy per participant.
func BuildTeam(cfg *TeamConfig, dial DialFunc, opts ...agents.Option) (*Team, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	proxies := make([]*agents.Proxy, 0, cfg.Adversaries+1)
	closeAll := func() {
		for _, p := range proxies {
			p.Close()
		}
	}
	connect := func(id int, role agents.Role, class string) (*agents.Proxy, error) {
		ch, err := dial(id)
		if err != nil {
			return nil, fmt.Errorf("connect agent %d: %w", id, err)
		}
		popts := append([]agents.Option{agents.WithNoise(cfg.Noise)}, opts...)
		p := agents.NewProxy(id, ch, popts...)
		proxies = append(proxies, p)
		if err := p.Register(role, class); err != nil {
			return nil, err
		}
		if err := p.Init(); err != nil {
			return nil, err
		}
		return p, nil
	}

	controller, err := connect(ControllerID, agents.RoleController, cfg.ControllerClass)
	if err != nil {
		closeAll()
		return nil, err
	}
	adversaries := make([]Agent, 0, cfg.Adversaries)
	for i := 0; i < cfg.Adversaries; i++ {
		p, err := connect(ControllerID+1+i, agents.RoleAdversary, cfg.AdversaryClass)
		if err != nil {
			closeAll()
			return nil, err
		}
		adversaries = append(adversaries, p)
	}
	log.Info().
		Str("controller", cfg.ControllerClass).
		Str("adversary", cfg.AdversaryClass).
		Int("adversaries", cfg.Adversaries).
		Msg("team ready")
	return NewTeam(controller, adversaries), nil
}
