package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaitworks/plantar.report/internal/insole"
)

func TestLiveStreamsSamples(t *testing.T) {
	e := newTestEnv(t)

	srv := httptest.NewServer(e.mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// give the handler a moment to register its subscriber
	time.Sleep(50 * time.Millisecond)
	e.feedFrame(insole.FootRight, rampPoints())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg liveMessage
	require.NoError(t, conn.ReadJSON(&msg))

	assert.Equal(t, insole.FootRight, msg.Sample.Side)
	assert.Equal(t, rampPoints(), msg.Sample.Points)
	assert.NotZero(t, msg.CoP.Pressure)
}

func TestLiveRejectsPlainHTTP(t *testing.T) {
	e := newTestEnv(t)

	srv := httptest.NewServer(e.mux)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/live")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 400, resp.StatusCode)
}
