package transport

import (
	"sync"

	"github.com/zeu5/pacman-adapter/protocol"
)

// pipeEnd is one side of an in-memory channel pair
type pipeEnd struct {
	in  <-chan *protocol.Message
	out chan<- *protocol.Message

	done     chan struct{}
	peerDone chan struct{}
	once     sync.Once
}

// Pipe returns two connected in-memory channels. Used for agents hosted in
// the same process and in tests.
func Pipe() (protocol.Channel, protocol.Channel) {
	ab := make(chan *protocol.Message, 16)
	ba := make(chan *protocol.Message, 16)
	aDone := make(chan struct{})
	bDone := make(chan struct{})

	a := &pipeEnd{in: ba, out: ab, done: aDone, peerDone: bDone}
	b := &pipeEnd{in: ab, out: ba, done: bDone, peerDone: aDone}
	return a, b
}

func (p *pipeEnd) Send(m *protocol.Message) error {
	select {
	case <-p.done:
		return protocol.ErrDisconnected
	case <-p.peerDone:
		return protocol.ErrDisconnected
	default:
	}
	select {
	case p.out <- m:
		return nil
	case <-p.done:
		return protocol.ErrDisconnected
	case <-p.peerDone:
		return protocol.ErrDisconnected
	}
}

func (p *pipeEnd) Receive() (*protocol.Message, error) {
	select {
	case m := <-p.in:
		return m, nil
	case <-p.done:
		return nil, protocol.ErrDisconnected
	case <-p.peerDone:
		// drain what the peer sent before closing
		select {
		case m := <-p.in:
			return m, nil
		default:
			return nil, protocol.ErrDisconnected
		}
	}
}

func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
