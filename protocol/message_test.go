package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type scriptedChannel struct {
	sent    []*Message
	replies []*Message
	sendErr error
}

func (s *scriptedChannel) Send(m *Message) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, m)
	return nil
}

func (s *scriptedChannel) Receive() (*Message, error) {
	if len(s.replies) == 0 {
		return nil, ErrDisconnected
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func (s *scriptedChannel) Close() error { return nil }

func TestMessageEnvelope(t *testing.T) {
	t.Run("behavior count payload survives the wire", func(t *testing.T) {
		msg := NewBehaviorCountMessage(3, map[string]int{"eat": 4, "flee": 1})
		bs, err := Marshal(msg)
		require.NoError(t, err)

		got, err := Unmarshal(bs)
		require.NoError(t, err)
		require.Equal(t, KindBehaviorCount, got.Kind)
		require.Equal(t, 3, got.AgentID)

		p := BehaviorCountPayload{}
		require.NoError(t, got.Decode(&p))
		require.Equal(t, map[string]int{"eat": 4, "flee": 1}, p.Count)
	})

	t.Run("policy blob is carried uninterpreted", func(t *testing.T) {
		blob := json.RawMessage(`{"weights":[1,2,3]}`)
		msg := NewPolicyMessage(1, blob)
		p := PolicyPayload{}
		require.NoError(t, msg.Decode(&p))
		require.JSONEq(t, string(blob), string(p.Policy))
	})

	t.Run("unknown kinds are malformed", func(t *testing.T) {
		_, err := Unmarshal([]byte(`{"kind":"teleport","agent_id":1}`))
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("garbage is malformed", func(t *testing.T) {
		_, err := Unmarshal([]byte(`not json`))
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("requests without payload refuse to decode", func(t *testing.T) {
		msg := NewRequestPolicyMessage(2)
		require.Empty(t, msg.Payload)
		require.Error(t, msg.Decode(&PolicyPayload{}))
	})
}

func TestCall(t *testing.T) {
	t.Run("matching reply", func(t *testing.T) {
		ch := &scriptedChannel{replies: []*Message{NewPolicyMessage(2, json.RawMessage(`"x"`))}}
		reply, err := Call(ch, NewRequestPolicyMessage(2), KindPolicy)
		require.NoError(t, err)
		require.Equal(t, KindPolicy, reply.Kind)
		require.Len(t, ch.sent, 1)
	})

	t.Run("wrong kind", func(t *testing.T) {
		ch := &scriptedChannel{replies: []*Message{NewAckMessage(2)}}
		_, err := Call(ch, NewRequestPolicyMessage(2), KindPolicy)
		require.ErrorIs(t, err, ErrUnexpectedReply)

		var perr *ProtocolError
		require.True(t, errors.As(err, &perr))
		require.Equal(t, 2, perr.AgentID)
		require.Equal(t, KindRequestPolicy, perr.Request)
		require.Equal(t, KindAck, perr.Reply)
	})

	t.Run("wrong agent", func(t *testing.T) {
		ch := &scriptedChannel{replies: []*Message{NewAckMessage(5)}}
		_, err := Call(ch, NewInitMessage(2), KindAck)
		require.ErrorIs(t, err, ErrAgentMismatch)
	})

	t.Run("remote error", func(t *testing.T) {
		ch := &scriptedChannel{replies: []*Message{NewErrorMessage(2, errors.New("boom"))}}
		_, err := Call(ch, NewInitMessage(2), KindAck)
		require.ErrorIs(t, err, ErrRemote)
		require.Contains(t, err.Error(), "boom")
	})

	t.Run("disconnect", func(t *testing.T) {
		ch := &scriptedChannel{}
		_, err := Call(ch, NewInitMessage(2), KindAck)
		require.ErrorIs(t, err, ErrDisconnected)
	})
}
