// Session registry
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

package sess

import (
	"sync"
	"time"

	gomoku "github.com/DereckAn/Websocket-Server-sub001"
)

// Registry is the process-wide session state: rooms, players, the
// player to room index, sockets and the per-room socket sets.  One
// read-write lock guards the maps and nothing but the maps; per-game
// mutation serializes on the room's own lock, and the registry lock
// is never held across a search or a socket write.
//
// Lock order, where both are needed: registry first, released before
// the room lock is taken.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*gomoku.Room
	players map[string]*gomoku.Player
	homes   map[string]string             // player id -> room id
	sockets map[string]*Socket            // every attached socket
	attach  map[string]map[string]*Socket // room id -> its sockets
	ops     map[string]*Socket            // operator bus subset
}

func MakeRegistry() *Registry {
	return &Registry{
		rooms:   make(map[string]*gomoku.Room),
		players: make(map[string]*gomoku.Player),
		homes:   make(map[string]string),
		sockets: make(map[string]*Socket),
		attach:  make(map[string]map[string]*Socket),
		ops:     make(map[string]*Socket),
	}
}

// AddRoom inserts a room.  A false return means the id is already in
// use and the caller should retry with a fresh code.
func (reg *Registry) AddRoom(r *gomoku.Room) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, taken := reg.rooms[r.Id]; taken {
		return false
	}
	reg.rooms[r.Id] = r
	return true
}

func (reg *Registry) Room(id string) (*gomoku.Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[id]
	return r, ok
}

// RemoveRoom drops a room with its players and socket attachments.
// The detached sockets are returned so the caller can close them once
// no lock is held.
func (reg *Registry) RemoveRoom(id string) []*Socket {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, id)
	for pid, rid := range reg.homes {
		if rid == id {
			delete(reg.homes, pid)
			delete(reg.players, pid)
		}
	}
	var out []*Socket
	for sid, s := range reg.attach[id] {
		delete(reg.sockets, sid)
		out = append(out, s)
	}
	delete(reg.attach, id)
	return out
}

// AddPlayer indexes a freshly seated player under its room.
func (reg *Registry) AddPlayer(roomId string, p *gomoku.Player) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.players[p.Id] = p
	reg.homes[p.Id] = roomId
}

func (reg *Registry) Player(id string) (*gomoku.Player, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	p, ok := reg.players[id]
	return p, ok
}

// HomeOf resolves a player id to the room holding that player.
func (reg *Registry) HomeOf(playerId string) (*gomoku.Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	rid, ok := reg.homes[playerId]
	if !ok {
		return nil, false
	}
	r, ok := reg.rooms[rid]
	return r, ok
}

// Attach registers a socket.  A live socket already bound to the same
// player is superseded: dropped from the registry and returned so the
// caller can close it after the locks are gone.
func (reg *Registry) Attach(s *Socket) *Socket {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var old *Socket
	if s.Kind == GameChannel && s.PlayerId != "" {
		for _, q := range reg.attach[s.RoomId] {
			if q.PlayerId == s.PlayerId {
				old = q
				break
			}
		}
		if old != nil {
			delete(reg.attach[s.RoomId], old.Id)
			delete(reg.sockets, old.Id)
		}
	}

	reg.sockets[s.Id] = s
	switch s.Kind {
	case GameChannel:
		set := reg.attach[s.RoomId]
		if set == nil {
			set = make(map[string]*Socket)
			reg.attach[s.RoomId] = set
		}
		set[s.Id] = s
	case OperatorChannel:
		reg.ops[s.Id] = s
	}
	return old
}

// Detach forgets a socket.  The socket itself is left for the caller
// to close.
func (reg *Registry) Detach(id string) (*Socket, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	s, ok := reg.sockets[id]
	if !ok {
		return nil, false
	}
	delete(reg.sockets, id)
	delete(reg.ops, id)
	if set := reg.attach[s.RoomId]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(reg.attach, s.RoomId)
		}
	}
	return s, true
}

// SocketsIn snapshots the sockets attached to a room.
func (reg *Registry) SocketsIn(roomId string) []*Socket {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	set := reg.attach[roomId]
	out := make([]*Socket, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	return out
}

// Operators snapshots the operator bus sockets.
func (reg *Registry) Operators() []*Socket {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]*Socket, 0, len(reg.ops))
	for _, s := range reg.ops {
		out = append(out, s)
	}
	return out
}

// Rooms snapshots every room, for the reaper.
func (reg *Registry) Rooms() []*gomoku.Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]*gomoku.Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		out = append(out, r)
	}
	return out
}

// Stale snapshots the sockets that saw no read within the window.
func (reg *Registry) Stale(now time.Time, window time.Duration) []*Socket {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	var out []*Socket
	for _, s := range reg.sockets {
		if s.Stale(now, window) {
			out = append(out, s)
		}
	}
	return out
}

// Stats counts the registry population for the status endpoint.
func (reg *Registry) Stats() (rooms, players, sockets, operators int) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms), len(reg.players), len(reg.sockets), len(reg.ops)
}
