package runner

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Stream is an open streaming connection owned by one virtual user.
type Stream interface {
	Close() error
}

// Dialer opens a streaming connection presenting token.
type Dialer interface {
	Dial(ctx context.Context, token string) (Stream, error)
}

// WSDialer connects to the target's websocket endpoint.
type WSDialer struct {
	URL    string
	Dialer *websocket.Dialer
}

func NewWSDialer(streamURL string, handshakeTimeout time.Duration) *WSDialer {
	return &WSDialer{
		URL: streamURL,
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
	}
}

func (d *WSDialer) Dial(ctx context.Context, token string) (Stream, error) {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)

	conn, resp, err := d.Dialer.DialContext(ctx, d.URL, h)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", d.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}

	s := &wsStream{conn: conn, done: make(chan struct{})}
	go s.drain()
	return s, nil
}

type wsStream struct {
	conn *websocket.Conn
	done chan struct{}
	once sync.Once
	err  error
}

// drain keeps reading so control frames (ping, close) are processed.
func (s *wsStream) drain() {
	defer close(s.done)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *wsStream) Close() error {
	s.once.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		werr := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))

		// wait for the peer to echo the close frame
		select {
		case <-s.done:
		case <-time.After(time.Second):
		}

		s.err = s.conn.Close()
		<-s.done
		if s.err == nil && werr != nil && werr != websocket.ErrCloseSent {
			s.err = werr
		}
	})
	return s.err
}
