// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/olahol/melody"

	"github.com/relabs-tech/gesture_computer/internal/config"
	"github.com/relabs-tech/gesture_computer/internal/events"
	"github.com/relabs-tech/gesture_computer/internal/gesture"
)

const (
	maxRecentGestures = 50
	wsWriteTimeout    = 2 * time.Second
)

// webState is the latest view of the pipeline assembled from MQTT.
type webState struct {
	mu         sync.RWMutex
	pose       events.Pose
	havePose   bool
	status     gesture.Status
	haveStatus bool
	gestures   []gesture.ActionEvent // oldest first

	statusSubs map[chan gesture.Status]struct{}
}

func newWebState() *webState {
	return &webState{statusSubs: map[chan gesture.Status]struct{}{}}
}

func (s *webState) setPose(p events.Pose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pose = p
	s.havePose = true
}

func (s *webState) setStatus(st gesture.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
	s.haveStatus = true
	for ch := range s.statusSubs {
		select {
		case ch <- st:
		default: // slow client, it gets the next one
		}
	}
}

func (s *webState) addGesture(ev gesture.ActionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gestures = append(s.gestures, ev)
	if n := len(s.gestures); n > maxRecentGestures {
		s.gestures = append(s.gestures[:0], s.gestures[n-maxRecentGestures:]...)
	}
}

// recentGestures returns up to limit gestures, newest first.
func (s *webState) recentGestures(limit int) []gesture.ActionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.gestures) {
		limit = len(s.gestures)
	}
	out := make([]gesture.ActionEvent, 0, limit)
	for i := len(s.gestures) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.gestures[i])
	}
	return out
}

func (s *webState) subscribeStatus() (<-chan gesture.Status, func()) {
	ch := make(chan gesture.Status, 1)
	s.mu.Lock()
	s.statusSubs[ch] = struct{}{}
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		delete(s.statusSubs, ch)
		s.mu.Unlock()
	}
}

type webServer struct {
	state    *webState
	melody   *melody.Melody
	upgrader websocket.Upgrader
	reset    func() error
}

func newWebServer(state *webState, reset func() error) *webServer {
	m := melody.New()
	m.HandleConnect(func(s *melody.Session) {
		slog.Info("[websocket] gestures connected", "remote", s.Request.RemoteAddr)
	})
	m.HandleDisconnect(func(s *melody.Session) {
		slog.Info("[websocket] gestures disconnected", "remote", s.Request.RemoteAddr)
	})
	m.HandleError(func(s *melody.Session, e error) {
		slog.Warn("[websocket] gestures error", "err", e, "remote", s.Request.RemoteAddr)
	})
	return &webServer{
		state:  state,
		melody: m,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		reset: reset,
	}
}

// broadcastGesture records ev and pushes it to every /ws/gestures client.
func (ws *webServer) broadcastGesture(ev gesture.ActionEvent) {
	ws.state.addGesture(ev)
	b, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("json marshal error", "err", err)
		return
	}
	if err := ws.melody.Broadcast(b); err != nil {
		slog.Debug("gesture broadcast failed", "err", err)
	}
}

func (ws *webServer) router() http.Handler {
	router := mux.NewRouter().StrictSlash(false)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			next.ServeHTTP(w, r)
		})
	})
	api.Path("/orientation").HandlerFunc(ws.handleOrientation).Methods(http.MethodGet)
	api.Path("/status").HandlerFunc(ws.handleStatus).Methods(http.MethodGet)
	api.Path("/gestures").HandlerFunc(ws.handleGestures).Methods(http.MethodGet)
	api.Path("/reset").HandlerFunc(ws.handleReset).Methods(http.MethodPost)

	router.Path("/ws/status").HandlerFunc(ws.handleStatusSocket)
	router.Path("/ws/gestures").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = ws.melody.HandleRequest(w, r)
	})

	// Static files from ./web as the root; /api stays with the subrouter so
	// a wrong method gets 405 rather than a file lookup.
	router.PathPrefix("/").MatcherFunc(notAPI).Handler(http.FileServer(http.Dir("web")))

	cors := ghandlers.CORS(
		ghandlers.AllowedOrigins([]string{"*"}),
		ghandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
	)
	return ghandlers.LoggingHandler(os.Stdout, cors(router))
}

func notAPI(r *http.Request, _ *mux.RouteMatch) bool {
	return r.URL.Path != "/api" && !strings.HasPrefix(r.URL.Path, "/api/")
}

func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("json encode error", "err", err)
	}
}

func (ws *webServer) handleOrientation(w http.ResponseWriter, r *http.Request) {
	ws.state.mu.RLock()
	p, ok := ws.state.pose, ws.state.havePose
	ws.state.mu.RUnlock()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, p)
}

func (ws *webServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	ws.state.mu.RLock()
	st, ok := ws.state.status, ws.state.haveStatus
	ws.state.mu.RUnlock()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, st)
}

func (ws *webServer) handleGestures(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, fmt.Sprintf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, ws.state.recentGestures(limit))
}

func (ws *webServer) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := ws.reset(); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"cmd": "reset"})
}

// handleStatusSocket streams every status update to one client.
func (ws *webServer) handleStatusSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[websocket] status upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	updates, cancel := ws.state.subscribeStatus()
	defer cancel()

	ws.state.mu.RLock()
	st, ok := ws.state.status, ws.state.haveStatus
	ws.state.mu.RUnlock()
	if ok {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(st); err != nil {
			return
		}
	}

	// reads only detect the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case st := <-updates:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(st); err != nil {
				return
			}
		}
	}
}

// RunWeb serves the pipeline's state over HTTP and websockets.
func RunWeb(ctx context.Context, cfg *config.Config) error {
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	state := newWebState()
	ws := newWebServer(state, func() error {
		token := client.Publish(cfg.TopicReset, 0, false, []byte(`{"cmd":"reset"}`))
		if !token.WaitTimeout(2*time.Second) {
			return errors.New("reset publish timed out")
		}
		return token.Error()
	})
	defer ws.melody.Close()

	if err := subscribeJSON(client, cfg.TopicPose, state.setPose); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicStatus, state.setStatus); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicGesture, ws.broadcastGesture); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           ws.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("web server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
