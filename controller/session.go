package controller

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/zeu5/pacman-adapter/agents"
	"github.com/zeu5/pacman-adapter/engine"
	"github.com/zeu5/pacman-adapter/protocol"
)

var (
	ErrNotRegistered     = errors.New("no agent registered on this connection")
	ErrAlreadyRegistered = errors.New("agent already registered on this connection")
)

// Session serves one adapter connection. Each connection carries exactly
// one agent.
type Session struct {
	id    int
	role  agents.Role
	agent Agent
	seed  uint64

	logger zerolog.Logger
}

func NewSession(seed uint64) *Session {
	return &Session{
		seed:   seed,
		logger: log.With().Str("component", "session").Logger(),
	}
}

// Serve answers requests until the channel fails or is closed.
func (s *Session) Serve(ch protocol.Channel) error {
	for {
		m, err := ch.Receive()
		if err != nil {
			if errors.Is(err, protocol.ErrDisconnected) {
				s.logger.Debug().Int("agent", s.id).Msg("adapter disconnected")
				return nil
			}
			return err
		}
		if err := ch.Send(s.Handle(m)); err != nil {
			return err
		}
	}
}

// Handle produces the single reply to m. Failures become error messages so
// the adapter always gets an answer.
func (s *Session) Handle(m *protocol.Message) *protocol.Message {
	reply, err := s.handle(m)
	if err != nil {
		s.logger.Warn().Err(err).Str("kind", string(m.Kind)).Int("agent", m.AgentID).Msg("request failed")
		return protocol.NewErrorMessage(m.AgentID, err)
	}
	return reply
}

func (s *Session) handle(m *protocol.Message) (*protocol.Message, error) {
	if m.Kind == protocol.KindRegister {
		return s.register(m)
	}
	if s.agent == nil {
		return nil, ErrNotRegistered
	}
	if m.AgentID != s.id {
		return nil, fmt.Errorf("%w: registered %d, got %d", protocol.ErrAgentMismatch, s.id, m.AgentID)
	}

	switch m.Kind {
	case protocol.KindInit:
		return protocol.NewAckMessage(s.id), nil
	case protocol.KindStartEpisode:
		p := protocol.StartEpisodePayload{}
		if err := m.Decode(&p); err != nil {
			return nil, err
		}
		s.agent.StartEpisode(p.Width, p.Height)
		return protocol.NewAckMessage(s.id), nil
	case protocol.KindTestMode:
		s.agent.EnableTestMode()
		return protocol.NewAckMessage(s.id), nil
	case protocol.KindState:
		return s.state(m)
	case protocol.KindPolicy:
		p := protocol.PolicyPayload{}
		if err := m.Decode(&p); err != nil {
			return nil, err
		}
		if err := s.agent.LoadPolicy(p.Policy); err != nil {
			return nil, err
		}
		return protocol.NewAckMessage(s.id), nil
	case protocol.KindRequestPolicy:
		blob, err := s.agent.Policy()
		if err != nil {
			return nil, err
		}
		return protocol.NewPolicyMessage(s.id, blob), nil
	case protocol.KindRequestBehaviorCount:
		return protocol.NewBehaviorCountMessage(s.id, s.agent.BehaviorCount()), nil
	}
	return nil, fmt.Errorf("%w: %s", protocol.ErrUnexpectedReply, m.Kind)
}

func (s *Session) register(m *protocol.Message) (*protocol.Message, error) {
	if s.agent != nil {
		return nil, ErrAlreadyRegistered
	}
	p := protocol.RegisterPayload{}
	if err := m.Decode(&p); err != nil {
		return nil, err
	}
	role, err := agents.ParseRole(p.Role)
	if err != nil {
		return nil, err
	}
	agent, err := NewAgent(m.AgentID, role, p.Class, s.seed+uint64(m.AgentID))
	if err != nil {
		return nil, err
	}
	s.id = m.AgentID
	s.role = role
	s.agent = agent
	s.logger = s.logger.With().Int("agent", s.id).Str("role", string(role)).Logger()
	s.logger.Info().Str("class", p.Class).Msg("agent registered")
	return protocol.NewAckMessage(s.id), nil
}

func (s *Session) state(m *protocol.Message) (*protocol.Message, error) {
	p := protocol.StatePayload{}
	if err := m.Decode(&p); err != nil {
		return nil, err
	}
	obs := &engine.Observation{}
	if err := json.Unmarshal(p.State, obs); err != nil {
		return nil, fmt.Errorf("%w: state: %s", protocol.ErrMalformed, err)
	}
	if obs.State == nil {
		return nil, fmt.Errorf("%w: observation without state", protocol.ErrMalformed)
	}
	if p.Terminal {
		s.agent.Final(obs)
		return protocol.NewAckMessage(s.id), nil
	}
	return protocol.NewActionMessage(s.id, string(s.agent.Act(obs))), nil
}
