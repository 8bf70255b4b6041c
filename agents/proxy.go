package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/zeu5/pacman-adapter/engine"
	"github.com/zeu5/pacman-adapter/protocol"
	erand "golang.org/x/exp/rand"
)

var (
	ErrNotRegistered      = errors.New("agent not registered")
	ErrAlreadyInitialized = errors.New("agent already initialized")
	ErrTestModeEnabled    = errors.New("test mode already enabled")
	ErrRequestPending     = errors.New("a request is already awaiting its reply")
	ErrNoRequest          = errors.New("no request awaiting a reply")
)

// Proxy is the adapter-side handle of one remote agent. It owns a dedicated
// channel and enforces strict request/reply on it: at most one request is
// outstanding at any time.
type Proxy struct {
	id    int
	role  Role
	class Class
	ch    protocol.Channel

	noise int
	rand  *erand.Rand

	pending     *protocol.Message
	registered  bool
	initialized bool
	testMode    bool

	logger zerolog.Logger
}

var _ engine.Participant = &Proxy{}

type Option func(*Proxy)

// WithNoise perturbs the positions of other agents in every observation by
// up to n cells on each axis.
func WithNoise(n int) Option {
	return func(p *Proxy) {
		p.noise = n
	}
}

// WithSeed fixes the noise source.
func WithSeed(seed uint64) Option {
	return func(p *Proxy) {
		p.rand = erand.New(erand.NewSource(seed))
	}
}

func NewProxy(id int, ch protocol.Channel, opts ...Option) *Proxy {
	p := &Proxy{
		id:     id,
		ch:     ch,
		rand:   erand.New(erand.NewSource(uint64(time.Now().UnixNano()))),
		logger: log.With().Str("component", "proxy").Int("agent", id).Logger(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Proxy) ID() int        { return p.id }
func (p *Proxy) Role() Role     { return p.role }
func (p *Proxy) Class() Class   { return p.class }
func (p *Proxy) Learning() bool { return p.class.Learning }
func (p *Proxy) TestMode() bool { return p.testMode }

func (p *Proxy) String() string {
	return fmt.Sprintf("%s(%s) #%d", p.role, p.class.Name, p.id)
}

// Register binds the remote endpoint to a role and asks it to instantiate
// the named decision class.
func (p *Proxy) Register(role Role, className string) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	class, err := LookupClass(role, className)
	if err != nil {
		return err
	}
	if _, err := p.call(protocol.NewRegisterMessage(p.id, string(role), class.Name), protocol.KindAck); err != nil {
		return err
	}
	p.role = role
	p.class = class
	p.registered = true
	p.logger.Info().Str("role", string(role)).Str("class", class.Name).Msg("registered")
	return nil
}

// Init must be called exactly once, after Register.
func (p *Proxy) Init() error {
	if !p.registered {
		return ErrNotRegistered
	}
	if p.initialized {
		return ErrAlreadyInitialized
	}
	if _, err := p.call(protocol.NewInitMessage(p.id), protocol.KindAck); err != nil {
		return err
	}
	p.initialized = true
	return nil
}

func (p *Proxy) StartEpisode(width, height int) error {
	_, err := p.call(protocol.NewStartEpisodeMessage(p.id, width, height), protocol.KindAck)
	return err
}

// EnableTestMode is irreversible and may only be sent once.
func (p *Proxy) EnableTestMode() error {
	if p.testMode {
		return ErrTestModeEnabled
	}
	if _, err := p.call(protocol.NewTestModeMessage(p.id), protocol.KindAck); err != nil {
		return err
	}
	p.testMode = true
	p.logger.Debug().Msg("test mode enabled")
	return nil
}

// Send issues a request. The reply must be collected with Receive before
// the next Send.
func (p *Proxy) Send(m *protocol.Message) error {
	if p.pending != nil {
		return fmt.Errorf("%w: %s", ErrRequestPending, p.pending)
	}
	if err := p.ch.Send(m); err != nil {
		return &protocol.ProtocolError{AgentID: p.id, Request: m.Kind, Err: err}
	}
	p.pending = m
	return nil
}

// Receive blocks until the reply to the last request arrives.
func (p *Proxy) Receive() (*protocol.Message, error) {
	if p.pending == nil {
		return nil, ErrNoRequest
	}
	req := p.pending
	p.pending = nil
	reply, err := p.ch.Receive()
	if err != nil {
		return nil, &protocol.ProtocolError{AgentID: p.id, Request: req.Kind, Err: err}
	}
	return reply, nil
}

func (p *Proxy) call(req *protocol.Message, want protocol.Kind) (*protocol.Message, error) {
	if err := p.Send(req); err != nil {
		return nil, err
	}
	reply, err := p.Receive()
	if err != nil {
		return nil, err
	}
	if err := protocol.CheckReply(req, reply, want); err != nil {
		return nil, err
	}
	return reply, nil
}

// Act asks the agent for its next move.
func (p *Proxy) Act(ctx context.Context, obs *engine.Observation) (engine.Direction, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	bs, err := json.Marshal(p.observe(obs))
	if err != nil {
		return "", err
	}
	reply, err := p.call(protocol.NewStateMessage(p.id, bs, false, obs.State.Score), protocol.KindAction)
	if err != nil {
		return "", err
	}
	a := protocol.ActionPayload{}
	if err := reply.Decode(&a); err != nil {
		return "", &protocol.ProtocolError{AgentID: p.id, Request: protocol.KindState, Reply: reply.Kind, Err: fmt.Errorf("%w: %s", protocol.ErrMalformed, err)}
	}
	return engine.Direction(a.Action), nil
}

// Notify sends the terminal state so the agent can process its last
// transition.
func (p *Proxy) Notify(state *engine.State) error {
	obs := &engine.Observation{AgentID: p.id, State: state}
	bs, err := json.Marshal(p.observe(obs))
	if err != nil {
		return err
	}
	_, err = p.call(protocol.NewStateMessage(p.id, bs, true, state.Score), protocol.KindAck)
	return err
}

// LoadPolicy pushes a stored policy blob into the agent.
func (p *Proxy) LoadPolicy(blob json.RawMessage) error {
	_, err := p.call(protocol.NewPolicyMessage(p.id, blob), protocol.KindAck)
	return err
}

// RequestPolicy pulls the agent's current policy blob.
func (p *Proxy) RequestPolicy() (json.RawMessage, error) {
	req := protocol.NewRequestPolicyMessage(p.id)
	reply, err := p.call(req, protocol.KindPolicy)
	if err != nil {
		return nil, err
	}
	pp := protocol.PolicyPayload{}
	if err := reply.Decode(&pp); err != nil {
		return nil, &protocol.ProtocolError{AgentID: p.id, Request: req.Kind, Reply: reply.Kind, Err: fmt.Errorf("%w: %s", protocol.ErrMalformed, err)}
	}
	return pp.Policy, nil
}

// BehaviorCount pulls the agent's behaviour tally for the last episode.
func (p *Proxy) BehaviorCount() (map[string]int, error) {
	req := protocol.NewRequestBehaviorCountMessage(p.id)
	reply, err := p.call(req, protocol.KindBehaviorCount)
	if err != nil {
		return nil, err
	}
	bc := protocol.BehaviorCountPayload{}
	if err := reply.Decode(&bc); err != nil {
		return nil, &protocol.ProtocolError{AgentID: p.id, Request: req.Kind, Reply: reply.Kind, Err: fmt.Errorf("%w: %s", protocol.ErrMalformed, err)}
	}
	if bc.Count == nil {
		bc.Count = make(map[string]int)
	}
	return bc.Count, nil
}

func (p *Proxy) Close() error {
	return p.ch.Close()
}

// observe applies measurement noise to everyone but the observer.
func (p *Proxy) observe(obs *engine.Observation) *engine.Observation {
	if p.noise <= 0 {
		return obs
	}
	s := obs.State.Copy()
	if s.ControllerID != p.id {
		s.Controller = p.jitter(s, s.Controller)
	}
	for id, pos := range s.Adversaries {
		if id != p.id {
			s.Adversaries[id] = p.jitter(s, pos)
		}
	}
	return &engine.Observation{AgentID: obs.AgentID, State: s, Legal: obs.Legal}
}

func (p *Proxy) jitter(s *engine.State, pos engine.Position) engine.Position {
	span := 2*p.noise + 1
	out := engine.Position{
		X: pos.X + p.rand.Intn(span) - p.noise,
		Y: pos.Y + p.rand.Intn(span) - p.noise,
	}
	out.X = clamp(out.X, 0, s.Width-1)
	out.Y = clamp(out.Y, 0, s.Height-1)
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
