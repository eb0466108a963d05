package api_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/technosupport/secops/internal/cameras"
	"github.com/technosupport/secops/internal/integration"
)

func TestStateStream(t *testing.T) {
	e := newEnv(t)
	cam := e.seed("Lobby", cameras.StatusOnline)

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/integration/ws?access_token=" + e.token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first integration.State
	require.NoError(t, conn.ReadJSON(&first))
	require.NotNil(t, first.Config)
	assert.Equal(t, "app-key", first.Config.ClientID)

	f := e.registry.Get(context.Background(), e.tenantID, e.userID)
	f.LoadCameras(context.Background(), e.projectID)

	// snapshots coalesce, so read until the loaded camera shows up
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		var st integration.State
		require.NoError(t, conn.ReadJSON(&st))
		if len(st.Cameras) == 1 && !st.Loading {
			assert.Equal(t, cam.ID, st.Cameras[0].ID)
			break
		}
	}

	// dropping the session closes the stream
	e.registry.Drop(e.tenantID, e.userID)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error %v", err)
			break
		}
	}
}

func TestStateStream_RejectsForeignOrigin(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/integration/ws?access_token=" + e.token
	header := map[string][]string{"Origin": {"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}
