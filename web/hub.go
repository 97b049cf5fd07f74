// Per-room fan-out
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
	"sync"
	"time"

	gomoku "github.com/DereckAn/Websocket-Server-sub001"
	"github.com/DereckAn/Websocket-Server-sub001/sess"
)

// Hub carries game events from the orchestrator to the sockets of a
// room.  Each room gets one queue with one consumer goroutine, so
// events leave in the order they were enqueued even when some carry a
// pacing delay; relying on timer wakeup order instead would let a
// later event overtake a delayed earlier one.
type Hub struct {
	reg   *sess.Registry
	mu    sync.Mutex
	rooms map[string]*queue
}

func MakeHub(reg *sess.Registry) *Hub {
	return &Hub{reg: reg, rooms: make(map[string]*queue)}
}

// Broadcast enqueues an event for every socket in the room.
func (h *Hub) Broadcast(roomId string, ev gomoku.Event) {
	h.room(roomId).push(entry{ev: ev})
}

// BroadcastAfter is Broadcast with a pause served before delivery.
// The pause holds the queue, not a timer, so later events still wait
// their turn behind this one.
func (h *Hub) BroadcastAfter(roomId string, delay time.Duration, ev gomoku.Event) {
	h.room(roomId).push(entry{pause: delay, ev: ev})
}

// Release retires a room's queue once the already accepted events
// have gone out.  Remaining pauses are skipped, the messages are not.
// Returns after the consumer goroutine is gone.
func (h *Hub) Release(roomId string) {
	h.mu.Lock()
	q := h.rooms[roomId]
	delete(h.rooms, roomId)
	h.mu.Unlock()

	if q == nil {
		return
	}
	close(q.quit)
	<-q.done
}

// room finds or starts the queue.  Creation on demand covers the
// game_created event, which is broadcast before any socket attaches.
func (h *Hub) room(roomId string) *queue {
	h.mu.Lock()
	defer h.mu.Unlock()
	q := h.rooms[roomId]
	if q == nil {
		q = &queue{
			hub:    h,
			roomId: roomId,
			ready:  make(chan struct{}, 1),
			quit:   make(chan struct{}),
			done:   make(chan struct{}),
		}
		h.rooms[roomId] = q
		go q.drain()
	}
	return q
}

func (h *Hub) active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

type entry struct {
	pause time.Duration
	ev    gomoku.Event
}

type queue struct {
	hub    *Hub
	roomId string

	mu    sync.Mutex
	list  []entry
	ready chan struct{}
	quit  chan struct{}
	done  chan struct{}
}

func (q *queue) push(e entry) {
	q.mu.Lock()
	q.list = append(q.list, e)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *queue) pop() (entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.list) == 0 {
		return entry{}, false
	}
	e := q.list[0]
	q.list = q.list[1:]
	return e, true
}

// drain is the queue's only consumer.  Sockets are resolved at
// delivery time, so a socket attached between enqueue and delivery
// still gets the event.
func (q *queue) drain() {
	defer close(q.done)

	closing := false
	for {
		e, ok := q.pop()
		if !ok {
			if closing {
				return
			}
			select {
			case <-q.ready:
			case <-q.quit:
				closing = true
			}
			continue
		}
		if e.pause > 0 && !closing {
			select {
			case <-time.After(e.pause):
			case <-q.quit:
				closing = true
			}
		}
		for _, s := range q.hub.reg.SocketsIn(q.roomId) {
			s.Send(e.ev)
		}
	}
}
