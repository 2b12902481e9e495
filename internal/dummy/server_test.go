package dummy

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Endpoints(t *testing.T) {
	srv := NewServer(ServerConfig{RequireAuth: true, SlowDelay: 10 * time.Millisecond}, nil)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	get := func(path string, token string) int {
		req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, get("/", ""))
	assert.Equal(t, http.StatusNotFound, get("/missing", ""))
	assert.Equal(t, http.StatusUnauthorized, get("/api/me", ""))
	assert.Equal(t, http.StatusOK, get("/api/me", "t"))
	assert.Equal(t, http.StatusInternalServerError, get("/api/fail", "t"))
	assert.Equal(t, http.StatusOK, get("/api/slow", "t"))
	assert.Equal(t, int64(4), srv.Requests())
}

func TestServer_VerifyToken(t *testing.T) {
	srv := NewServer(ServerConfig{
		RequireAuth: true,
		VerifyToken: func(token string) error {
			if token != "good" {
				return errors.New("bad signature")
			}
			return nil
		},
	}, nil)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	status := func(token string) int {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/me", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, status("good"))
	assert.Equal(t, http.StatusUnauthorized, status("forged"))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Authorization": {"Bearer forged"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_Stream(t *testing.T) {
	srv := NewServer(ServerConfig{TickInterval: 10 * time.Millisecond}, nil)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.NotEmpty(t, msg)
	assert.Equal(t, int64(1), srv.StreamsOpened())

	require.NoError(t, conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second)))
	conn.Close()

	assert.Eventually(t, func() bool { return srv.StreamsActive() == 0 }, 2*time.Second, 10*time.Millisecond)
}
