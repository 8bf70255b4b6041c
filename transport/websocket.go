package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zeu5/pacman-adapter/protocol"
)

const (
	// AgentsPath is the HTTP path agent hosts serve the protocol on.
	AgentsPath = "/agents"

	maxMessageSize = 8 << 20
)

var ErrTimeout = errors.New("reply deadline exceeded")

// Conn is a protocol.Channel over a single websocket connection. gorilla
// connections support one concurrent reader and one concurrent writer, so
// writes are serialized with wmu.
type Conn struct {
	conn    *websocket.Conn
	wmu     sync.Mutex
	timeout time.Duration

	closeOnce sync.Once
}

var _ protocol.Channel = &Conn{}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newConn(c *websocket.Conn, timeout time.Duration) *Conn {
	c.SetReadLimit(maxMessageSize)
	return &Conn{conn: c, timeout: timeout}
}

// Dial opens a dedicated connection to the agent host at addr (host:port).
// A zero timeout makes Receive block until the peer answers.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Conn, error) {
	url := fmt.Sprintf("ws://%s%s", addr, AgentsPath)
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return newConn(c, timeout), nil
}

// Upgrade accepts an inbound connection on the agent host side.
func Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return newConn(c, 0), nil
}

// Handler upgrades every request and hands the connection to serve. serve
// owns the connection and runs on the request goroutine.
func Handler(serve func(*Conn)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := Upgrade(w, r)
		if err != nil {
			return
		}
		defer c.Close()
		serve(c)
	})
}

func (c *Conn) Send(m *protocol.Message) error {
	data, err := protocol.Marshal(m)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.timeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return c.wrap(err)
	}
	return nil
}

func (c *Conn) Receive() (*protocol.Message, error) {
	if c.timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	}
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, c.wrap(err)
	}
	return protocol.Unmarshal(data)
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.wmu.Lock()
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.wmu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Conn) wrap(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %s", protocol.ErrDisconnected, err)
}
