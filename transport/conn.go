// Package transport carries the line protocol over a websocket relay, for
// engines hosted behind a server instead of a local pipe. Each text frame is
// one protocol line without its terminator.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn adapts a websocket to the io.Reader / io.Writer pair a session reads
// from and writes to.
type Conn struct {
	ws *websocket.Conn

	rbuf []byte

	wmu  sync.Mutex
	wbuf []byte
}

// NewConn wraps an established websocket. It works on either side of the
// relay.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Dial connects to a relay endpoint.
func Dial(ctx context.Context, url string, timeout time.Duration) (*Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
	}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return NewConn(ws), nil
}

// Read serves frames as newline-terminated lines. A normal close from the
// peer reads as io.EOF, which the protocol layer reports as a closed stream.
func (c *Conn) Read(p []byte) (int, error) {
	for len(c.rbuf) == 0 {
		mt, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, io.EOF
			}
			return 0, fmt.Errorf("read frame: %w", err)
		}
		if mt != websocket.TextMessage {
			continue
		}
		c.rbuf = append(c.rbuf[:0], msg...)
		if len(c.rbuf) == 0 || c.rbuf[len(c.rbuf)-1] != '\n' {
			c.rbuf = append(c.rbuf, '\n')
		}
	}
	n := copy(p, c.rbuf)
	c.rbuf = c.rbuf[n:]
	return n, nil
}

// Write buffers until a full line is available and sends each line as its
// own frame.
func (c *Conn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.wbuf = append(c.wbuf, p...)
	for {
		i := bytes.IndexByte(c.wbuf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSuffix(c.wbuf[:i], []byte{'\r'})
		if err := c.ws.WriteMessage(websocket.TextMessage, line); err != nil {
			return 0, fmt.Errorf("write frame: %w", err)
		}
		c.wbuf = c.wbuf[i+1:]
	}
	return len(p), nil
}

// Close sends a normal close frame and closes the socket.
func (c *Conn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	werr := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	cerr := c.ws.Close()
	if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
		return werr
	}
	return cerr
}
