// Socket handles
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
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	gomoku "github.com/DereckAn/Websocket-Server-sub001"
)

// ChannelKind tells a game channel socket from an operator bus
// socket.  The kind comes from the path the socket attached on and
// never changes.
type ChannelKind uint8

const (
	GameChannel ChannelKind = iota
	OperatorChannel
)

func (k ChannelKind) String() string {
	switch k {
	case GameChannel:
		return "game"
	case OperatorChannel:
		return "operator"
	default:
		panic("Illegal channel kind")
	}
}

// Socket is the registry's handle on one attached connection.  It
// owns the bounded outbound queue; the transport behind it drains the
// queue and tears the connection down once Done is closed.  Everything
// here is safe for concurrent use.
type Socket struct {
	Id       string
	Kind     ChannelKind
	RoomId   string // game channel only
	PlayerId string // game channel only

	mu     sync.Mutex
	queue  []gomoku.Event
	limit  int
	ready  chan struct{} // one slot wakeup for the drainer
	closed chan struct{}
	once   sync.Once
	seen   atomic.Int64 // unix nanoseconds of the last read
}

func MakeSocket(kind ChannelKind, roomId, playerId string, limit uint) *Socket {
	s := &Socket{
		Id:       uuid.NewString(),
		Kind:     kind,
		RoomId:   roomId,
		PlayerId: playerId,
		limit:    int(limit),
		ready:    make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
	s.Seen()
	return s
}

// Send queues an outbound message.  A full queue sheds its oldest
// non-terminal entry to make room; a terminal message that still does
// not fit force-closes the socket.  The return reports whether the
// message was accepted.
func (s *Socket) Send(ev gomoku.Event) bool {
	select {
	case <-s.closed:
		return false
	default:
	}

	s.mu.Lock()
	if len(s.queue) >= s.limit {
		shed := false
		for i, q := range s.queue {
			if !q.Type.Terminal() {
				klog.Warningf("Dropping %s for socket %s (queue full)",
					q.Type, s.Id)
				s.queue = append(s.queue[:i], s.queue[i+1:]...)
				shed = true
				break
			}
		}
		if !shed {
			s.mu.Unlock()
			if ev.Type.Terminal() {
				klog.Warningf("Closing socket %s (terminal %s does not fit)",
					s.Id, ev.Type)
				s.Close()
			}
			return false
		}
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
	return true
}

// Pop removes the oldest queued message, without blocking.
func (s *Socket) Pop() (gomoku.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return gomoku.Event{}, false
	}
	ev := s.queue[0]
	s.queue = s.queue[1:]
	return ev, true
}

// Ready signals whenever Send has queued something new.
func (s *Socket) Ready() <-chan struct{} { return s.ready }

// Done is closed once the socket is finished.
func (s *Socket) Done() <-chan struct{} { return s.closed }

// Close marks the socket dead.  Idempotent.  The transport notices
// through Done; queued messages may still be drained.
func (s *Socket) Close() {
	s.once.Do(func() { close(s.closed) })
}

// Seen records read activity.
func (s *Socket) Seen() {
	s.seen.Store(time.Now().UnixNano())
}

// Stale reports whether the socket saw no read within the window.
func (s *Socket) Stale(now time.Time, window time.Duration) bool {
	return now.Sub(time.Unix(0, s.seen.Load())) > window
}
