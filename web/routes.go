// Web request handlers
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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	gomoku "github.com/DereckAn/Websocket-Server-sub001"
	"github.com/DereckAn/Websocket-Server-sub001/game"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// envelope is the uniform reply shape.  Success replies carry data,
// failures carry error and code; the request id shows up on failures
// outside production to ease correlation with the logs.
type envelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Code      string    `json:"code,omitempty"`
	RequestId string    `json:"requestId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	}); err != nil {
		klog.Warningf("Writing response: %s", err)
	}
}

// fail renders an error through the envelope.  Internal failures are
// logged in full and, in production, surfaced without detail.
func (s *web) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		klog.ErrorfDepth(1, "%s %s: %v", r.Method, r.URL.Path, err)
		if s.conf.Production {
			msg = "internal error"
		}
	}

	e := envelope{Error: msg, Code: code, Timestamp: time.Now()}
	if !s.conf.Production {
		e.RequestId = reqId(r)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(e); err != nil {
		klog.Warningf("Writing response: %s", err)
	}
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, gomoku.ErrNotFound):
		return http.StatusNotFound, "not-found"
	case errors.Is(err, gomoku.ErrOutOfBounds),
		errors.Is(err, gomoku.ErrOccupied),
		errors.Is(err, gomoku.ErrNotYourTurn),
		errors.Is(err, gomoku.ErrNotActive):
		return http.StatusUnprocessableEntity, "unprocessable"
	case errors.Is(err, gomoku.ErrBadRequest),
		errors.Is(err, gomoku.ErrRoomFull),
		errors.Is(err, gomoku.ErrSymbolTaken):
		return http.StatusBadRequest, "bad-request"
	case errors.Is(err, gomoku.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, gomoku.ErrRateLimited):
		return http.StatusTooManyRequests, "rate-limited"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// decode reads a JSON body.  An empty body decodes to the zero value,
// which lets quick-start run without one.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(v)
	if err != nil && err != io.EOF {
		return errors.Wrap(gomoku.ErrBadRequest, err.Error())
	}
	return nil
}

// endpoint renders the socket URL for a room as seen from the host
// the request came in on.
func (s *web) endpoint(r *http.Request, roomId string) string {
	scheme := "ws"
	if r.TLS != nil {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/ws/gomoku/%s", scheme, r.Host, roomId)
}

func (s *web) quickStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerSymbol string `json:"playerSymbol"`
	}
	if err := decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}

	var preferred gomoku.Cell
	if body.PlayerSymbol != "" {
		var err error
		preferred, err = gomoku.ParseCell(body.PlayerSymbol)
		if err != nil {
			s.fail(w, r, errors.Wrap(gomoku.ErrBadRequest, err.Error()))
			return
		}
	}

	st, err := s.orch.QuickStart(preferred)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st.WsEndpoint = s.endpoint(r, st.RoomId)
	respond(w, http.StatusOK, st)
}

func (s *web) move(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Row      int    `json:"row"`
		Col      int    `json:"col"`
		PlayerId string `json:"playerId"`
	}
	if err := decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.PlayerId == "" {
		s.fail(w, r, errors.Wrap(gomoku.ErrBadRequest, "missing playerId"))
		return
	}
	// Range screening happens here so a malformed coordinate reads as
	// a bad request, not as a rejected move.
	if body.Row < 0 || body.Row >= gomoku.BoardSize ||
		body.Col < 0 || body.Col >= gomoku.BoardSize {
		s.fail(w, r, errors.Wrapf(gomoku.ErrBadRequest,
			"coordinates (%d, %d) out of range", body.Row, body.Col))
		return
	}

	g, err := s.orch.MakeMove(mux.Vars(r)["gameId"], body.PlayerId,
		gomoku.Position{Row: body.Row, Col: body.Col})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, gomoku.StatePayload{Game: g})
}

func (s *web) state(w http.ResponseWriter, r *http.Request) {
	g, err := s.orch.State(mux.Vars(r)["gameId"], r.URL.Query().Get("playerId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, gomoku.StatePayload{Game: g})
}

func (s *web) reset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerId string `json:"playerId"`
	}
	if err := decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.PlayerId == "" {
		s.fail(w, r, errors.Wrap(gomoku.ErrBadRequest, "missing playerId"))
		return
	}

	g, err := s.orch.Reset(mux.Vars(r)["gameId"], body.PlayerId)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, gomoku.StatePayload{Game: g})
}

type ack struct {
	Ok bool `json:"ok"`
}

func (s *web) leave(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerId string `json:"playerId"`
	}
	if err := decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.PlayerId == "" {
		s.fail(w, r, errors.Wrap(gomoku.ErrBadRequest, "missing playerId"))
		return
	}

	if err := s.orch.Leave(mux.Vars(r)["gameId"], body.PlayerId); err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, ack{Ok: true})
}

func (s *web) health(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, struct {
		Status string `json:"status"`
		Uptime int64  `json:"uptimeSeconds"`
	}{"healthy", int64(time.Since(s.started).Seconds())})
}

type status struct {
	game.Stats
	Uptime int64 `json:"uptimeSeconds"`
}

func (s *web) apiStatus(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, status{
		Stats:  s.orch.Stats(),
		Uptime: int64(time.Since(s.started).Seconds()),
	})
}

// webhook is the operator bus ingress.  The signature covers the
// exact URL the sender was configured with, so it is rebuilt from the
// request rather than taken from the route.
func (s *web) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		s.fail(w, r, errors.Wrap(gomoku.ErrBadRequest, err.Error()))
		return
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s%s", scheme, r.Host, r.URL.RequestURI())

	sig := r.Header.Get("x-square-hmacsha256-signature")
	if err := s.bus.Ingest(url, body, sig); err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, ack{Ok: true})
}
