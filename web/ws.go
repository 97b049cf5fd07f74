// Websocket interface
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
	"net/http"
	"time"

	gomoku "github.com/DereckAn/Websocket-Server-sub001"
	"github.com/DereckAn/Websocket-Server-sub001/sess"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// writeWait bounds a single frame write.
const writeWait = 10 * time.Second

// clientMsg is the inbound frame shape.  Everything beyond the type
// tag is ignored today; moves travel over HTTP.
type clientMsg struct {
	Type string `json:"type"`
}

// gameSocket attaches a playing socket to its room.  The playerId
// query is required; a gameId query is accepted for compatibility but
// not checked, since a reset mints a fresh game id and rejecting
// stale ones would break reconnects.
func (s *web) gameSocket(w http.ResponseWriter, r *http.Request) {
	roomId := mux.Vars(r)["roomId"]
	playerId := r.URL.Query().Get("playerId")
	if playerId == "" {
		s.fail(w, r, errors.Wrap(gomoku.ErrBadRequest, "missing playerId"))
		return
	}

	conn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		gomoku.Debugf("Unable to upgrade connection: %s", err)
		return
	}

	sock := sess.MakeSocket(sess.GameChannel, roomId, playerId, s.conf.SendBuffer)
	if err := s.orch.Attach(sock); err != nil {
		conn.WriteJSON(gomoku.MakeEvent(gomoku.EvError, roomId, "",
			gomoku.ErrorPayload{Error: err.Error()}))
		conn.Close()
		return
	}
	klog.V(1).Infof("Socket %s: %s attached to room %s",
		sock.Id, playerId, roomId)

	go s.writePump(conn, sock)
	s.readPump(conn, sock)

	s.orch.Detach(sock)
	sock.Close()
	conn.Close()
}

// operatorSocket attaches a dashboard to the operator bus.
func (s *web) operatorSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		gomoku.Debugf("Unable to upgrade connection: %s", err)
		return
	}

	sock := sess.MakeSocket(sess.OperatorChannel, "", "", s.conf.SendBuffer)
	s.reg.Attach(sock)
	s.bus.Greet(sock)
	klog.V(1).Infof("Operator %s attached from %s", sock.Id, conn.RemoteAddr())

	go s.writePump(conn, sock)
	s.readPump(conn, sock)

	s.reg.Detach(sock.Id)
	sock.Close()
	conn.Close()
}

// readPump consumes inbound frames until the peer goes away.  Any
// read refreshes the liveness clock; the read deadline doubles the
// ping interval, matching the registry's staleness window.
func (s *web) readPump(conn *websocket.Conn, sock *sess.Socket) {
	window := 2 * s.conf.PingInterval
	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(window))
	conn.SetPongHandler(func(string) error {
		sock.Seen()
		return conn.SetReadDeadline(time.Now().Add(window))
	})
	conn.SetPingHandler(func(payload string) error {
		sock.Seen()
		conn.SetReadDeadline(time.Now().Add(window))
		return conn.WriteControl(websocket.PongMessage,
			[]byte(payload), time.Now().Add(writeWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sock.Seen()
		conn.SetReadDeadline(time.Now().Add(window))

		var msg clientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			sock.Send(gomoku.MakeEvent(gomoku.EvError, sock.RoomId, "",
				gomoku.ErrorPayload{Error: "unreadable message"}))
			continue
		}
		switch msg.Type {
		case "ping":
			sock.Send(gomoku.MakeEvent(gomoku.EvPong, sock.RoomId, "", nil))
		case "pong":
		case "leave_room":
			return
		default:
			sock.Send(gomoku.MakeEvent(gomoku.EvError, sock.RoomId, "",
				gomoku.ErrorPayload{
					Error: fmt.Sprintf("unknown message type %q", msg.Type),
				}))
		}
	}
}

// writePump is the only writer of data frames on the connection.  It
// drains the socket queue, keeps the peer alive, and flushes whatever
// is left before saying goodbye.
func (s *web) writePump(conn *websocket.Conn, sock *sess.Socket) {
	tick := time.NewTicker(s.conf.PingInterval)
	defer tick.Stop()
	defer conn.Close()

	for {
		select {
		case <-sock.Ready():
			for {
				ev, ok := sock.Pop()
				if !ok {
					break
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(ev); err != nil {
					sock.Close()
					return
				}
			}

		case <-tick.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if sock.Kind == sess.OperatorChannel {
				// Dashboards get an application level ping on top of
				// the protocol one.
				err := conn.WriteJSON(gomoku.MakeEvent(gomoku.EvPing, "", "", nil))
				if err != nil {
					sock.Close()
					return
				}
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sock.Close()
				return
			}

		case <-sock.Done():
			for {
				ev, ok := sock.Pop()
				if !ok {
					break
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if conn.WriteJSON(ev) != nil {
					return
				}
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
