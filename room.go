// Room and player model
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

package gomoku

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// A human win streak reports a milestone at every multiple of this.
const MilestoneEvery = 5

type Player struct {
	Id        string     `json:"id"`
	Symbol    Cell       `json:"symbol"`
	Kind      PlayerKind `json:"kind"`
	Connected bool       `json:"connected"`
	Joined    time.Time  `json:"joinedAt"`
	LastSeen  time.Time  `json:"lastSeenAt"`
	SocketId  string     `json:"-"`
}

func MakePlayer(kind PlayerKind, symbol Cell) *Player {
	now := time.Now()
	return &Player{
		Id:        uuid.NewString(),
		Symbol:    symbol,
		Kind:      kind,
		Connected: true,
		Joined:    now,
		LastSeen:  now,
	}
}

// Touch refreshes the player's presence clock.
func (p *Player) Touch(t time.Time) {
	p.LastSeen = t
}

// WinStats accumulates results across resets of a vs-ai room.
type WinStats struct {
	HumanWins int `json:"humanWins"`
	AIWins    int `json:"aiWins"`
	Draws     int `json:"draws"`
	Streak    int `json:"streak"`
}

// Room owns one Game and is the addressing unit for broadcast.  The
// embedded mutex serializes every mutation of the room and its game;
// the registry lock is never held while a room is being worked on.
type Room struct {
	sync.Mutex
	Id      string
	Kind    RoomKind
	Game    *Game
	Stats   WinStats
	Created time.Time
	Touched time.Time
	// Reap is the auto-reap deadline.  Bringing it into the past
	// marks the room for collection on the next sweep.
	Reap time.Time
}

const (
	roomLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	roomDigits  = "0123456789"
)

// RandomRoomId returns a six character room code, three letters
// followed by three digits.  Uniqueness is the caller's concern.
func RandomRoomId() string {
	var b [6]byte
	for i := 0; i < 3; i++ {
		b[i] = roomLetters[rand.Intn(len(roomLetters))]
	}
	for i := 3; i < 6; i++ {
		b[i] = roomDigits[rand.Intn(len(roomDigits))]
	}
	return string(b[:])
}

func MakeRoom(kind RoomKind, ttl time.Duration) *Room {
	now := time.Now()
	return &Room{
		Id:      RandomRoomId(),
		Kind:    kind,
		Game:    MakeGame(),
		Created: now,
		Touched: now,
		Reap:    now.Add(ttl),
	}
}

// Touch refreshes the last-activity clock.
func (r *Room) Touch() {
	r.Touched = time.Now()
}

// MarkForReap asks the next sweep to collect the room.
func (r *Room) MarkForReap() {
	r.Reap = time.Now()
}

// Join seats a new player.  An empty symbol requests automatic
// assignment of the first free seat.  A vs-ai room seats exactly one
// human and one engine.  Once every seat is taken the game leaves the
// waiting state.
func (r *Room) Join(kind PlayerKind, symbol Cell) (*Player, error) {
	g := r.Game
	if len(g.Players) >= r.Kind.MaxPlayers() {
		return nil, ErrRoomFull
	}
	if r.Kind == VersusAI {
		for _, q := range g.Players {
			if q.Kind == kind {
				return nil, errors.Wrapf(ErrRoomFull, "%s seat taken", kind)
			}
		}
	}
	if symbol == Empty {
		for _, c := range r.Kind.Symbols() {
			if g.PlayerBySymbol(c) == nil {
				symbol = c
				break
			}
		}
	} else if g.PlayerBySymbol(symbol) != nil {
		return nil, ErrSymbolTaken
	}

	p := MakePlayer(kind, symbol)
	g.Players = append(g.Players, p)
	if len(g.Players) == r.Kind.MaxPlayers() {
		g.Start()
	}
	r.Touch()
	return p, nil
}

// Disconnect lowers a player's presence flag.  It reports whether the
// room should be collected because no connected human remains.
func (r *Room) Disconnect(id string) bool {
	p := r.Game.Player(id)
	if p == nil {
		return false
	}
	p.Connected = false
	p.SocketId = ""
	r.Touch()
	return r.Game.HumansConnected() == 0
}

// Reconnect restores presence for a player that attached a fresh
// socket.  The previous socket, if any, has been superseded.
func (r *Room) Reconnect(id, socketId string) bool {
	p := r.Game.Player(id)
	if p == nil {
		return false
	}
	p.Connected = true
	p.SocketId = socketId
	p.Touch(time.Now())
	r.Touch()
	return true
}

// RecordResult folds the finished game into the win statistics.  A
// human win extends the streak and reports a milestone with a banner
// at every fifth consecutive win; anything else breaks the streak.
func (r *Room) RecordResult() (milestone bool, banner string) {
	switch r.Game.Status {
	case Won:
		p := r.Game.PlayerBySymbol(r.Game.Winner)
		if p != nil && p.Kind == AI {
			r.Stats.AIWins++
			r.Stats.Streak = 0
		} else {
			r.Stats.HumanWins++
			r.Stats.Streak++
			if r.Stats.Streak%MilestoneEvery == 0 {
				milestone = true
				banner = fmt.Sprintf("Unstoppable! %d wins in a row!",
					r.Stats.Streak)
			}
		}
	case Drawn:
		r.Stats.Draws++
		r.Stats.Streak = 0
	}
	return milestone, banner
}

// ResetGame replaces the game with a fresh one, carrying the seated
// players over and leaving the win statistics alone.
func (r *Room) ResetGame() *Game {
	players := r.Game.Players
	g := MakeGame()
	g.Players = players
	if len(players) == r.Kind.MaxPlayers() {
		g.Start()
	}
	r.Game = g
	r.Touch()
	return g
}

// ShouldCleanup decides whether the sweep may collect the room: the
// auto-reap deadline has passed, or no connected human remains, or a
// decided game has been idle longer than the linger window.
func (r *Room) ShouldCleanup(now time.Time, linger time.Duration) bool {
	if now.After(r.Reap) {
		return true
	}
	if r.Game.HumansConnected() == 0 {
		return true
	}
	if s := r.Game.Status; s == Won || s == Drawn {
		return now.Sub(r.Touched) > linger
	}
	return false
}
