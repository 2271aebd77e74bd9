package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
)

// Handlers implements the digest-browsing endpoints. Grounded on
// api/internal/handlers/handlers.go's Handlers struct and its
// upgrader/store/logger fields, generalized from flow/rule endpoints to
// digest/alert ones.
type Handlers struct {
	store    *DigestStore
	logger   *logrus.Logger
	upgrader websocket.Upgrader
}

func NewHandlers(store *DigestStore, logger *logrus.Logger) *Handlers {
	return &Handlers{
		store:  store,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// GetDigests returns recent digests, newest first. ?limit= caps the count.
func (h *Handlers) GetDigests(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 30
	}
	writeJSON(w, http.StatusOK, h.store.List(limit))
}

// GetDigest returns the digest for a single reference date.
func (h *Handlers) GetDigest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	date, err := time.Parse("2006-01-02", vars["date"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	digest, ok := h.store.Get(date)
	if !ok {
		writeError(w, http.StatusNotFound, "no digest for that date")
		return
	}
	writeJSON(w, http.StatusOK, digest)
}

// GetAlerts returns every alert from the most recent digest.
func (h *Handlers) GetAlerts(w http.ResponseWriter, r *http.Request) {
	digests := h.store.List(1)
	if len(digests) == 0 {
		writeJSON(w, http.StatusOK, []interface{}{})
		return
	}
	writeJSON(w, http.StatusOK, digests[0].Alerts)
}

// StreamAlerts upgrades to a WebSocket and pushes alerts from newly
// arriving digests as the run pipeline stores them. Grounded on
// handlers.go's StreamFlows: ping ticker, pong-driven read deadline reset,
// a done channel closed exactly once via sync.Once.
func (h *Handlers) StreamAlerts(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := &AlertSubscriber{ID: r.RemoteAddr, Channel: make(chan model.Alert, 64)}
	h.store.Subscribe(sub)
	defer h.store.Unsubscribe(sub)

	conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	done := make(chan struct{})
	var once sync.Once
	closeDone := func() { once.Do(func() { close(done) }) }

	go func() {
		defer closeDone()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case alert, ok := <-sub.Channel:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(alert); err != nil {
				return
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
