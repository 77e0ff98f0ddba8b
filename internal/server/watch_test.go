package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"civicdiff/internal/llm"
	"civicdiff/internal/pipeline"
)

func TestWatchHubFanout(t *testing.T) {
	hub := newWatchHub()
	ch1, cancel1 := hub.subscribe("run-1")
	ch2, cancel2 := hub.subscribe("run-1")
	other, cancelOther := hub.subscribe("run-2")
	defer cancel2()
	defer cancelOther()

	hub.publish("run-1", pipeline.Step{ID: "load", Status: pipeline.StatusRunning})
	require.Len(t, ch1, 1)
	require.Len(t, ch2, 1)
	require.Empty(t, other, "events do not cross run ids")

	cancel1()
	hub.publish("run-1", pipeline.Step{ID: "load", Status: pipeline.StatusDone})
	require.Len(t, ch1, 1, "cancelled subscriber receives nothing further")
	require.Len(t, ch2, 2)
}

func TestWatchWebsocketStreamsSteps(t *testing.T) {
	s := newTestServer(t, &llm.Fake{}, llm.Config{Model: llm.DefaultModel})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/watch?run_id=run-42"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the subscription a beat to register before the run starts.
	time.Sleep(50 * time.Millisecond)
	rec := doJSON(t, s, http.MethodPost, "/api/analyze", map[string]any{"packId": "permits", "runId": "run-42"})
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev watchEvent
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, "step", ev.Type)
	require.Equal(t, "run-42", ev.RunID)
	require.Equal(t, "load", ev.Step.ID)
}

func TestWatchRequiresRunID(t *testing.T) {
	s := newTestServer(t, &llm.Fake{}, llm.Config{})
	rec := doJSON(t, s, http.MethodGet, "/api/watch", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
