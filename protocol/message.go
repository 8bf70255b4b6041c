package protocol

import (
	"encoding/json"
	"fmt"
)

// Kind identifies a message on the wire.
type Kind string

const (
	KindAck                  Kind = "ack"
	KindError                Kind = "error"
	KindRegister             Kind = "register"
	KindInit                 Kind = "init"
	KindStartEpisode         Kind = "start_episode"
	KindTestMode             Kind = "test_mode"
	KindState                Kind = "state"
	KindAction               Kind = "action"
	KindPolicy               Kind = "policy"
	KindRequestPolicy        Kind = "request_policy"
	KindBehaviorCount        Kind = "behavior_count"
	KindRequestBehaviorCount Kind = "request_behavior_count"
)

var knownKinds = map[Kind]bool{
	KindAck:                  true,
	KindError:                true,
	KindRegister:             true,
	KindInit:                 true,
	KindStartEpisode:         true,
	KindTestMode:             true,
	KindState:                true,
	KindAction:               true,
	KindPolicy:               true,
	KindRequestPolicy:        true,
	KindBehaviorCount:        true,
	KindRequestBehaviorCount: true,
}

// Valid reports whether k is part of the protocol vocabulary.
func (k Kind) Valid() bool {
	return knownKinds[k]
}

// Message is the envelope exchanged between the adapter and an agent host.
// Every message is addressed to exactly one agent.
type Message struct {
	Kind    Kind            `json:"kind"`
	AgentID int             `json:"agent_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (m *Message) String() string {
	return fmt.Sprintf("%s(agent=%d)", m.Kind, m.AgentID)
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v interface{}) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", m.Kind)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%s: decode payload: %w", m.Kind, err)
	}
	return nil
}

// Payload types

type RegisterPayload struct {
	Role  string `json:"role"`
	Class string `json:"class"`
}

type StartEpisodePayload struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type StatePayload struct {
	State    json.RawMessage `json:"state"`
	Terminal bool            `json:"terminal"`
	Score    float64         `json:"score"`
}

type ActionPayload struct {
	Action string `json:"action"`
}

type PolicyPayload struct {
	Policy json.RawMessage `json:"policy"`
}

type BehaviorCountPayload struct {
	Count map[string]int `json:"count"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

func newMessage(kind Kind, agentID int, payload interface{}) *Message {
	msg := &Message{Kind: kind, AgentID: agentID}
	if payload != nil {
		// payload types above always marshal
		bs, _ := json.Marshal(payload)
		msg.Payload = bs
	}
	return msg
}

func NewAckMessage(agentID int) *Message {
	return newMessage(KindAck, agentID, nil)
}

func NewErrorMessage(agentID int, err error) *Message {
	return newMessage(KindError, agentID, ErrorPayload{Error: err.Error()})
}

func NewRegisterMessage(agentID int, role, class string) *Message {
	return newMessage(KindRegister, agentID, RegisterPayload{Role: role, Class: class})
}

func NewInitMessage(agentID int) *Message {
	return newMessage(KindInit, agentID, nil)
}

func NewStartEpisodeMessage(agentID, width, height int) *Message {
	return newMessage(KindStartEpisode, agentID, StartEpisodePayload{Width: width, Height: height})
}

func NewTestModeMessage(agentID int) *Message {
	return newMessage(KindTestMode, agentID, nil)
}

func NewStateMessage(agentID int, state json.RawMessage, terminal bool, score float64) *Message {
	return newMessage(KindState, agentID, StatePayload{State: state, Terminal: terminal, Score: score})
}

func NewActionMessage(agentID int, action string) *Message {
	return newMessage(KindAction, agentID, ActionPayload{Action: action})
}

func NewPolicyMessage(agentID int, policy json.RawMessage) *Message {
	return newMessage(KindPolicy, agentID, PolicyPayload{Policy: policy})
}

func NewRequestPolicyMessage(agentID int) *Message {
	return newMessage(KindRequestPolicy, agentID, nil)
}

func NewBehaviorCountMessage(agentID int, count map[string]int) *Message {
	return newMessage(KindBehaviorCount, agentID, BehaviorCountPayload{Count: count})
}

func NewRequestBehaviorCountMessage(agentID int) *Message {
	return newMessage(KindRequestBehaviorCount, agentID, nil)
}

// Marshal encodes the envelope.
func Marshal(m *Message) ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal decodes an envelope and rejects kinds outside the vocabulary.
func Unmarshal(bs []byte) (*Message, error) {
	m := &Message{}
	if err := json.Unmarshal(bs, m); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	if !m.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformed, m.Kind)
	}
	return m, nil
}
