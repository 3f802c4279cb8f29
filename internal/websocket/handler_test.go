package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealpulse/internal/config"
	"dealpulse/pkg/contracts/domain"
	"dealpulse/pkg/contracts/events"
)

func dialTestServer(t *testing.T, handler http.Handler, header http.Header) (*websocket.Conn, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if resp != nil {
		defer resp.Body.Close()
	}
	require.NoError(t, err)
	return conn, srv
}

func TestHandlerUpgradeAndJobStream(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	handler := NewHandler(hub, config.WebSocketConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		PingPeriod:      50 * time.Millisecond,
		PongWait:        200 * time.Millisecond,
	}, nil, nil)

	conn, srv := dialTestServer(t, handler, nil)
	defer srv.Close()
	defer conn.Close()

	// Connect ack arrives first.
	var connectMsg events.WebSocketMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &connectMsg))
	assert.Equal(t, events.MessageTypeConnect, connectMsg.Type)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	hub.NotifyJob(&domain.Job{ID: "job-1", Status: domain.JobStatusCompleted})

	var jobMsg events.WebSocketMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &jobMsg))
	assert.Equal(t, events.MessageTypeJobComplete, jobMsg.Type)
}

func TestHandlerRefusesUnknownOrigin(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	handler := NewHandler(hub, config.WebSocketConfig{}, []string{"http://allowed.example"}, nil)

	srv := httptest.NewServer(handler)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	header := http.Header{"Origin": []string{"http://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if conn != nil {
		conn.Close()
	}
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHandlerAllowsConfiguredOrigin(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	handler := NewHandler(hub, config.WebSocketConfig{}, []string{"http://allowed.example"}, nil)

	header := http.Header{"Origin": []string{"http://allowed.example"}}
	conn, srv := dialTestServer(t, handler, header)
	defer srv.Close()
	conn.Close()
}
