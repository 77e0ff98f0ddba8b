package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"civicdiff/internal/pipeline"
)

const (
	watchWriteWait = 10 * time.Second
	watchPongWait  = 60 * time.Second
	watchPingEvery = (watchPongWait * 9) / 10
)

var watchUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// watchEvent is one step transition pushed to watchers of a run.
type watchEvent struct {
	Type  string        `json:"type"`
	RunID string        `json:"runId"`
	Step  pipeline.Step `json:"step"`
}

// watchHub fans step transitions out to websocket subscribers per run
// id. Slow subscribers drop events rather than stall the pipeline.
type watchHub struct {
	mu   sync.Mutex
	subs map[string]map[chan watchEvent]struct{}
}

func newWatchHub() *watchHub {
	return &watchHub{subs: map[string]map[chan watchEvent]struct{}{}}
}

func (h *watchHub) subscribe(runID string) (chan watchEvent, func()) {
	ch := make(chan watchEvent, 32)
	h.mu.Lock()
	if h.subs[runID] == nil {
		h.subs[runID] = map[chan watchEvent]struct{}{}
	}
	h.subs[runID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[runID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, runID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *watchHub) publish(runID string, step pipeline.Step) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[runID] {
		select {
		case ch <- watchEvent{Type: "step", RunID: runID, Step: step}:
		default:
		}
	}
}

// handleWatch streams step transitions for one run id over a websocket.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "run_id is required", Code: "validation"})
		return
	}

	conn, err := watchUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(watchPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchPongWait))
	})

	events, cancel := s.hub.subscribe(runID)
	defer cancel()

	// Reader exists only to notice the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(watchPingEvery)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				s.log.Debug("watch write failed", zap.String("run", runID), zap.Error(err))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
