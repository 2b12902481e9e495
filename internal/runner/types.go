package runner

import (
	"net/url"
	"strings"
	"time"

	"chaosq/internal/chaos"
)

type Config struct {
	Target     string // http(s)://host[:port]
	ReadPath   string
	StreamPath string

	Users          int
	Duration       time.Duration
	RequestTimeout time.Duration

	Chaos chaos.Config
}

func (c Config) ReadURL() string {
	return strings.TrimRight(c.Target, "/") + c.ReadPath
}

// StreamURL swaps the target scheme for its websocket counterpart.
func (c Config) StreamURL() (string, error) {
	u, err := url.Parse(strings.TrimRight(c.Target, "/") + c.StreamPath)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}

// Phase is where a virtual user's streaming connection is.
type Phase int32

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseOpen
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "DISCONNECTED"
	case PhaseConnecting:
		return "CONNECTING"
	case PhaseOpen:
		return "OPEN"
	case PhaseClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}
