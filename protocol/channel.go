package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrDisconnected    = errors.New("channel disconnected")
	ErrMalformed       = errors.New("malformed message")
	ErrUnexpectedReply = errors.New("unexpected reply")
	ErrAgentMismatch   = errors.New("reply addressed to a different agent")
	ErrRemote          = errors.New("agent reported an error")
)

// Channel is a reliable, ordered, bidirectional link to one remote agent.
// Implementations are not required to support concurrent Send calls.
type Channel interface {
	Send(*Message) error
	Receive() (*Message, error)
	Close() error
}

// ProtocolError describes a failed request/reply exchange.
type ProtocolError struct {
	AgentID int
	Request Kind
	Reply   Kind
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Reply != "" {
		return fmt.Sprintf("agent %d: %s -> %s: %s", e.AgentID, e.Request, e.Reply, e.Err)
	}
	return fmt.Sprintf("agent %d: %s: %s", e.AgentID, e.Request, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Call sends req and blocks for exactly one reply of the wanted kind.
func Call(ch Channel, req *Message, want Kind) (*Message, error) {
	if err := ch.Send(req); err != nil {
		return nil, &ProtocolError{AgentID: req.AgentID, Request: req.Kind, Err: err}
	}
	reply, err := ch.Receive()
	if err != nil {
		return nil, &ProtocolError{AgentID: req.AgentID, Request: req.Kind, Err: err}
	}
	return reply, CheckReply(req, reply, want)
}

// CheckReply validates that reply answers req with the wanted kind.
func CheckReply(req, reply *Message, want Kind) error {
	perr := &ProtocolError{AgentID: req.AgentID, Request: req.Kind, Reply: reply.Kind}
	switch {
	case reply.Kind == KindError:
		p := ErrorPayload{}
		if err := reply.Decode(&p); err != nil {
			perr.Err = fmt.Errorf("%w: %s", ErrRemote, err)
		} else {
			perr.Err = fmt.Errorf("%w: %s", ErrRemote, p.Error)
		}
		return perr
	case reply.Kind != want:
		perr.Err = fmt.Errorf("%w: want %s", ErrUnexpectedReply, want)
		return perr
	case reply.AgentID != req.AgentID:
		perr.Err = fmt.Errorf("%w: got %d", ErrAgentMismatch, reply.AgentID)
		return perr
	}
	return nil
}
