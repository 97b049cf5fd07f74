// Web interface manager
//
// Copyright (c) 2025, 2026  Dereck An
//
// This file is part of gomoku-server.
//
// gomoku-server is free software: you can redistribute it and/or
// modify it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// gomoku-server is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with gomoku-server. If not, see
// <http://www.gnu.org/licenses/>

package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	gomoku "github.com/DereckAn/Websocket-Server-sub001"
	"github.com/DereckAn/Websocket-Server-sub001/conf"
	"github.com/DereckAn/Websocket-Server-sub001/game"
	"github.com/DereckAn/Websocket-Server-sub001/ops"
	"github.com/DereckAn/Websocket-Server-sub001/sess"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

type web struct {
	conf  *conf.Conf
	reg   *sess.Registry
	orch  *game.Orchestrator
	bus   *ops.Bus
	limit *limiter
	up    websocket.Upgrader

	started time.Time
	api     *http.Server
	hooks   *http.Server
}

// prime readies the handler surface without listening.  The webhook
// ingress is part of the main router whenever both surfaces share a
// port.
func (s *web) prime(c *conf.Conf) *mux.Router {
	s.conf = c
	s.limit = makeLimiter(c)
	s.started = time.Now()
	s.up = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	r := mux.NewRouter()
	r.Use(s.recoverer, s.logware, s.corsware)

	api := r.PathPrefix("/api/gomoku").Subrouter()
	api.Use(s.throttle)
	api.HandleFunc("/quick-start", s.quickStart).
		Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/game/{gameId}/move", s.move).
		Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/game/{gameId}/state", s.state).
		Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/game/{gameId}/reset", s.reset).
		Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/game/{gameId}", s.leave).
		Methods(http.MethodDelete, http.MethodOptions)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/api/status", s.apiStatus).Methods(http.MethodGet)
	r.HandleFunc("/ws/gomoku/{roomId}", s.gameSocket)
	r.HandleFunc("/admin", s.operatorSocket)

	if c.WebhookPort == c.Port {
		r.HandleFunc("/webhooks/square", s.webhook).Methods(http.MethodPost)
	}
	return r
}

func (s *web) Start(st *conf.State, c *conf.Conf) {
	r := s.prime(c)

	var group errgroup.Group
	if c.WebhookPort != c.Port {
		hr := mux.NewRouter()
		hr.Use(s.recoverer, s.logware)
		hr.HandleFunc("/webhooks/square", s.webhook).Methods(http.MethodPost)
		s.hooks = &http.Server{
			Addr:    fmt.Sprintf(":%d", c.WebhookPort),
			Handler: hr,
		}
		group.Go(func() error {
			klog.Infof("Listening for webhooks on %s", s.hooks.Addr)
			return s.hooks.ListenAndServe()
		})
	}

	s.api = &http.Server{Addr: fmt.Sprintf(":%d", c.Port), Handler: r}
	group.Go(func() error {
		klog.Infof("Listening via HTTP on %s", s.api.Addr)
		return s.api.ListenAndServe()
	})

	if err := group.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		klog.Errorf("Cannot serve: %s", err)
		st.Kill()
	}
}

// Shutdown drains the socket surface before stopping the listeners.
func (s *web) Shutdown() {
	s.orch.CloseAll("server_shutdown")
	for _, op := range s.reg.Operators() {
		s.reg.Detach(op.Id)
		op.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.hooks != nil {
		s.hooks.Shutdown(ctx)
	}
	if s.api != nil {
		s.api.Shutdown(ctx)
	}
}

func (*web) String() string { return "Web Server" }

// Prepare hands the transport its collaborators and registers it.
func Prepare(st *conf.State, c *conf.Conf, reg *sess.Registry,
	orch *game.Orchestrator, bus *ops.Bus) {
	st.Register(&web{conf: c, reg: reg, orch: orch, bus: bus})
}

// allowOrigin applies the configured origin list to a non-empty
// origin.  With no list configured anything goes in development and
// nothing does in production.
func (s *web) allowOrigin(origin string) bool {
	if len(s.conf.Origins) == 0 {
		return !s.conf.Production
	}
	for _, pat := range s.conf.Origins {
		if pat == "*" || pat == origin {
			return true
		}
		if p, ok := strings.CutSuffix(pat, "*"); ok &&
			strings.HasPrefix(origin, p) {
			return true
		}
	}
	return false
}

// checkOrigin admits upgrade requests from agents without an origin,
// from the server's own host, and from the configured list.
func (s *web) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	return s.allowOrigin(origin)
}

type ctxKey int

const reqIdKey ctxKey = 0

func reqId(r *http.Request) string {
	id, _ := r.Context().Value(reqIdKey).(string)
	return id
}

// logware tags every request with a short id and writes the access
// line to the debug log.
func (s *web) logware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()[:8]
		w.Header().Set("X-Request-Id", id)
		gomoku.Debugf("[%s] %s %s from %s", id, r.Method, r.URL.Path,
			r.RemoteAddr)
		ctx := context.WithValue(r.Context(), reqIdKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// recoverer converts handler panics into internal error replies.  The
// process survives; the stack goes to the log.
func (s *web) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if reason := recover(); reason != nil {
				klog.Errorf("Panic in %s %s: %v\n%s",
					r.Method, r.URL.Path, reason, debug.Stack())
				s.fail(w, r, errors.Errorf("handler panic: %v", reason))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *web) corsware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.allowOrigin(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// throttle applies the per-client limiter.  Preflights are exempt,
// they are the browser's doing, not the client code's.
func (s *web) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions && !s.limit.allow(r.RemoteAddr) {
			s.fail(w, r, errors.Wrap(gomoku.ErrRateLimited, r.RemoteAddr))
			return
		}
		next.ServeHTTP(w, r)
	})
}
