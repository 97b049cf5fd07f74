// Session reaper
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
	"time"

	"k8s.io/klog/v2"

	gomoku "github.com/DereckAn/Websocket-Server-sub001"
	"github.com/DereckAn/Websocket-Server-sub001/conf"
)

// Reaper sweeps the registry on a fixed cadence: rooms due for
// cleanup are handed to the closer, sockets without a read for twice
// the keepalive interval are closed.
type Reaper struct {
	reg    *Registry
	closer func(*gomoku.Room, string)
	done   chan struct{}
}

// MakeReaper builds the sweep manager.  The closer runs outside any
// lock for every room to collect; it is expected to announce
// room_closed, close the room's sockets and drop the room from the
// registry.
func MakeReaper(reg *Registry, closer func(*gomoku.Room, string)) *Reaper {
	return &Reaper{
		reg:    reg,
		closer: closer,
		done:   make(chan struct{}),
	}
}

func (r *Reaper) String() string { return "reaper" }

func (r *Reaper) Start(st *conf.State, c *conf.Conf) {
	tick := time.NewTicker(c.Sweep)
	defer tick.Stop()
	for {
		select {
		case <-st.Context.Done():
			return
		case <-r.done:
			return
		case now := <-tick.C:
			r.sweep(now, c)
		}
	}
}

func (r *Reaper) Shutdown() {
	close(r.done)
}

// sweep performs one pass.  Room locks are taken one at a time and
// the closer runs with no lock held at all.
func (r *Reaper) sweep(now time.Time, c *conf.Conf) {
	var victims []*gomoku.Room
	for _, room := range r.reg.Rooms() {
		room.Lock()
		dead := room.ShouldCleanup(now, c.RoomLinger)
		room.Unlock()
		if dead {
			victims = append(victims, room)
		}
	}
	for _, room := range victims {
		gomoku.Debugf("Reaping room %s", room.Id)
		r.closer(room, "inactivity")
	}

	for _, s := range r.reg.Stale(now, 2*c.PingInterval) {
		klog.Warningf("Closing stale socket %s", s.Id)
		s.Close()
	}
}
