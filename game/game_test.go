// Orchestration tests
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

package game

import (
	"sync"
	"testing"
	"time"

	gomoku "github.com/DereckAn/Websocket-Server-sub001"
	"github.com/DereckAn/Websocket-Server-sub001/bot"
	"github.com/DereckAn/Websocket-Server-sub001/conf"
	"github.com/DereckAn/Websocket-Server-sub001/sess"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	roomId string
	delay  time.Duration
	ev     gomoku.Event
}

// fan records everything the orchestrator publishes.
type fan struct {
	mu       sync.Mutex
	records  []record
	released []string
}

func (f *fan) Broadcast(roomId string, ev gomoku.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record{roomId, 0, ev})
}

func (f *fan) BroadcastAfter(roomId string, delay time.Duration, ev gomoku.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record{roomId, delay, ev})
}

func (f *fan) Release(roomId string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, roomId)
}

func (f *fan) types() []gomoku.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	ts := make([]gomoku.EventType, len(f.records))
	for i, r := range f.records {
		ts[i] = r.ev.Type
	}
	return ts
}

func (f *fan) count(typ gomoku.EventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, r := range f.records {
		if r.ev.Type == typ {
			n++
		}
	}
	return n
}

// wait blocks until at least n events of the given type were
// published and returns the n-th one.
func (f *fan) wait(t *testing.T, typ gomoku.EventType, n int) gomoku.Event {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		var seen int
		for _, r := range f.records {
			if r.ev.Type == typ {
				if seen++; seen == n {
					f.mu.Unlock()
					return r.ev
				}
			}
		}
		f.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no %s event number %d arrived", typ, n)
	return gomoku.Event{}
}

// fixture builds an orchestrator around a recording fan-out.  The
// engine is shallow and the pacing short so games move along.
func fixture(t *testing.T) (*Orchestrator, *fan) {
	t.Helper()
	c := conf.Default()
	c.AIDepth = 2
	c.AITimeout = 200 * time.Millisecond
	c.MoveDelay = time.Millisecond
	c.ThinkDelay = time.Millisecond
	f := &fan{}
	return MakeOrchestrator(sess.MakeRegistry(), bot.MakeEngine(c), f, c), f
}

// quiet builds an orchestrator whose engine never gets to reply
// within the test, so move sequences stay fully scripted.
func quiet(t *testing.T) (*Orchestrator, *fan) {
	t.Helper()
	c := conf.Default()
	c.MoveDelay = time.Millisecond
	c.ThinkDelay = time.Hour
	f := &fan{}
	return MakeOrchestrator(sess.MakeRegistry(), bot.MakeEngine(c), f, c), f
}

func manhattan(a, b gomoku.Position) int {
	dr, dc := a.Row-b.Row, a.Col-b.Col
	if dr < 0 {
		dr = -dr
	}
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}

func TestQuickStart(t *testing.T) {
	o, f := fixture(t)

	s, err := o.QuickStart(gomoku.Empty)
	require.NoError(t, err)
	assert.Equal(t, gomoku.X, s.PlayerSymbol)
	assert.Equal(t, gomoku.O, s.AISymbol)
	require.NotNil(t, s.GameState)
	assert.Equal(t, gomoku.X, s.GameState.Turn)
	assert.Equal(t, gomoku.Playing, s.GameState.Status)
	assert.Len(t, s.GameState.Players, 2)
	assert.Regexp(t, `^[A-Z]{3}[0-9]{3}$`, s.RoomId)

	// X is the human, so the engine sits idle until the first stone
	assert.Equal(t, []gomoku.EventType{gomoku.EvGameCreated}, f.types())
}

func TestQuickStartEngineOpens(t *testing.T) {
	o, f := fixture(t)

	s, err := o.QuickStart(gomoku.O)
	require.NoError(t, err)
	assert.Equal(t, gomoku.O, s.PlayerSymbol)
	assert.Equal(t, gomoku.X, s.AISymbol)

	ev := f.wait(t, gomoku.EvAIMove, 1)
	assert.Equal(t, s.GameId, ev.GameId)

	g, err := o.State(s.GameId, s.PlayerId)
	require.NoError(t, err)
	require.Len(t, g.Moves, 1)
	assert.Equal(t, gomoku.X, g.Moves[0].Symbol)
	assert.Equal(t, gomoku.Position{Row: 7, Col: 7}, g.Moves[0].Position)
	assert.Equal(t, gomoku.O, g.Turn)
}

func TestQuickStartBadSymbol(t *testing.T) {
	o, _ := fixture(t)
	_, err := o.QuickStart(gomoku.Triangle)
	assert.ErrorIs(t, err, gomoku.ErrSymbolTaken)
}

func TestMoveSequence(t *testing.T) {
	o, f := fixture(t)
	s, err := o.QuickStart(gomoku.X)
	require.NoError(t, err)

	center := gomoku.Position{Row: 7, Col: 7}
	snap, err := o.MakeMove(s.GameId, s.PlayerId, center)
	require.NoError(t, err)
	assert.Equal(t, gomoku.O, snap.Turn)
	require.Len(t, snap.Moves, 1)

	ev := f.wait(t, gomoku.EvAIMove, 1)
	payload, ok := ev.Data.(gomoku.AIMovePayload)
	require.True(t, ok)
	assert.Equal(t, gomoku.O, payload.Move.Symbol)
	assert.LessOrEqual(t, manhattan(payload.Move.Position, center), 3)
	assert.NotZero(t, payload.Evaluation.Confidence)

	assert.Equal(t, []gomoku.EventType{
		gomoku.EvGameCreated,
		gomoku.EvMoveProcessing,
		gomoku.EvMoveMade,
		gomoku.EvAIThinking,
		gomoku.EvAIMove,
	}, f.types())
}

func TestMoveRejected(t *testing.T) {
	o, f := quiet(t)
	s, err := o.QuickStart(gomoku.X)
	require.NoError(t, err)

	center := gomoku.Position{Row: 7, Col: 7}
	_, err = o.MakeMove(s.GameId, "nobody", center)
	assert.ErrorIs(t, err, gomoku.ErrNotFound)
	_, err = o.MakeMove("stale", s.PlayerId, center)
	assert.ErrorIs(t, err, gomoku.ErrNotFound)
	_, err = o.MakeMove(s.GameId, s.PlayerId, gomoku.Position{Row: 7, Col: 15})
	assert.ErrorIs(t, err, gomoku.ErrOutOfBounds)

	_, err = o.MakeMove(s.GameId, s.PlayerId, center)
	require.NoError(t, err)
	_, err = o.MakeMove(s.GameId, s.PlayerId, gomoku.Position{Row: 8, Col: 8})
	assert.ErrorIs(t, err, gomoku.ErrNotYourTurn)

	// Rejected moves broadcast nothing
	assert.Equal(t, []gomoku.EventType{
		gomoku.EvGameCreated,
		gomoku.EvMoveProcessing,
		gomoku.EvMoveMade,
		gomoku.EvAIThinking,
	}, f.types())
}

// script drives one human win on a quiet orchestrator: X marches
// along a row while the opponent's stones are laid down directly,
// standing in for the engine.
func script(t *testing.T, o *Orchestrator, gameId, playerId, aiId string) *gomoku.Game {
	t.Helper()
	room, ok := o.reg.HomeOf(playerId)
	require.True(t, ok)

	for i := 0; i < 4; i++ {
		_, err := o.MakeMove(gameId, playerId, gomoku.Position{Row: 7, Col: 3 + i})
		require.NoError(t, err)
		room.Lock()
		_, err = room.Game.ApplyMove(gomoku.Position{Row: 0, Col: 2 * i}, gomoku.O, aiId)
		room.Unlock()
		require.NoError(t, err)
	}
	snap, err := o.MakeMove(gameId, playerId, gomoku.Position{Row: 7, Col: 7})
	require.NoError(t, err)
	return snap
}

func TestWinAndMilestone(t *testing.T) {
	o, f := quiet(t)
	s, err := o.QuickStart(gomoku.X)
	require.NoError(t, err)

	var aiId string
	for _, p := range s.GameState.Players {
		if p.Kind == gomoku.AI {
			aiId = p.Id
		}
	}
	require.NotEmpty(t, aiId)

	gameId := s.GameId
	for round := 1; round <= gomoku.MilestoneEvery; round++ {
		snap := script(t, o, gameId, s.PlayerId, aiId)
		assert.Equal(t, gomoku.Won, snap.Status)
		assert.Equal(t, gomoku.X, snap.Winner)

		ev := f.wait(t, gomoku.EvGameOver, round)
		payload, ok := ev.Data.(gomoku.GameOverPayload)
		require.True(t, ok)
		assert.Equal(t, "X", payload.Winner)
		assert.Len(t, payload.Line, 5)
		require.NotNil(t, payload.Stats)
		assert.Equal(t, round, payload.Stats.HumanWins)
		assert.Equal(t, round, payload.Stats.Streak)
		if round < gomoku.MilestoneEvery {
			assert.Equal(t, "X wins!", payload.FinalMessage)
			fresh, err := o.Reset(gameId, s.PlayerId)
			require.NoError(t, err)
			gameId = fresh.Id
		} else {
			assert.Equal(t, "Unstoppable! 5 wins in a row!", payload.FinalMessage)
		}
	}
}

func TestReset(t *testing.T) {
	o, f := quiet(t)
	s, err := o.QuickStart(gomoku.X)
	require.NoError(t, err)

	center := gomoku.Position{Row: 7, Col: 7}
	_, err = o.MakeMove(s.GameId, s.PlayerId, center)
	require.NoError(t, err)

	snap, err := o.Reset(s.GameId, s.PlayerId)
	require.NoError(t, err)
	assert.NotEqual(t, s.GameId, snap.Id)
	assert.Empty(t, snap.Moves)
	assert.Equal(t, gomoku.Playing, snap.Status)
	assert.Equal(t, gomoku.X, snap.Turn)
	f.wait(t, gomoku.EvGameReset, 1)

	// The replaced game's id no longer answers
	_, err = o.MakeMove(s.GameId, s.PlayerId, center)
	assert.ErrorIs(t, err, gomoku.ErrNotFound)
	_, err = o.MakeMove(snap.Id, s.PlayerId, center)
	require.NoError(t, err)
}

func TestResetEngineOpens(t *testing.T) {
	o, f := fixture(t)
	s, err := o.QuickStart(gomoku.O)
	require.NoError(t, err)
	f.wait(t, gomoku.EvAIMove, 1)

	snap, err := o.Reset(s.GameId, s.PlayerId)
	require.NoError(t, err)

	// The engine opens the fresh board as well
	f.wait(t, gomoku.EvAIMove, 2)
	g, err := o.State(snap.Id, s.PlayerId)
	require.NoError(t, err)
	require.Len(t, g.Moves, 1)
	assert.Equal(t, gomoku.X, g.Moves[0].Symbol)
}

func TestState(t *testing.T) {
	o, _ := fixture(t)
	a, err := o.QuickStart(gomoku.X)
	require.NoError(t, err)
	b, err := o.QuickStart(gomoku.X)
	require.NoError(t, err)

	g, err := o.State(b.GameId, "")
	require.NoError(t, err)
	assert.Equal(t, b.GameId, g.Id)

	g, err = o.State(a.GameId, a.PlayerId)
	require.NoError(t, err)
	assert.Equal(t, a.GameId, g.Id)

	_, err = o.State("missing", "")
	assert.ErrorIs(t, err, gomoku.ErrNotFound)
}

func TestLeaveAndClose(t *testing.T) {
	o, f := fixture(t)
	s, err := o.QuickStart(gomoku.X)
	require.NoError(t, err)

	require.NoError(t, o.Leave(s.GameId, s.PlayerId))
	f.wait(t, gomoku.EvPlayerLeft, 1)

	// The room waits for the sweep rather than vanishing underfoot
	room, ok := o.reg.HomeOf(s.PlayerId)
	require.True(t, ok)
	assert.True(t, room.ShouldCleanup(time.Now(), time.Hour))

	o.CloseRoom(room, "inactivity")
	ev := f.wait(t, gomoku.EvRoomClosed, 1)
	payload, ok := ev.Data.(gomoku.RoomClosedPayload)
	require.True(t, ok)
	assert.Equal(t, "inactivity", payload.Reason)
	assert.Contains(t, f.released, room.Id)
	assert.Equal(t, gomoku.Abandoned, room.Game.Status)
	_, ok = o.reg.Room(s.RoomId)
	assert.False(t, ok)
}

func TestAttachDetach(t *testing.T) {
	o, f := fixture(t)
	s, err := o.QuickStart(gomoku.X)
	require.NoError(t, err)

	a := sess.MakeSocket(sess.GameChannel, s.RoomId, s.PlayerId, 8)
	require.NoError(t, o.Attach(a))
	ev, ok := a.Pop()
	require.True(t, ok)
	assert.Equal(t, gomoku.EvStateUpdate, ev.Type)
	f.wait(t, gomoku.EvPlayerJoined, 1)

	// A reconnect supersedes and closes the first socket
	b := sess.MakeSocket(sess.GameChannel, s.RoomId, s.PlayerId, 8)
	require.NoError(t, o.Attach(b))
	select {
	case <-a.Done():
	default:
		t.Fatal("superseded socket was not closed")
	}

	// The stale socket's close must not knock the player offline
	o.Detach(a)
	room, ok := o.reg.HomeOf(s.PlayerId)
	require.True(t, ok)
	room.Lock()
	assert.True(t, room.Game.Player(s.PlayerId).Connected)
	room.Unlock()

	o.Detach(b)
	room.Lock()
	assert.False(t, room.Game.Player(s.PlayerId).Connected)
	room.Unlock()
	f.wait(t, gomoku.EvPlayerLeft, 1)

	bogus := sess.MakeSocket(sess.GameChannel, "ZZZ999", s.PlayerId, 8)
	assert.ErrorIs(t, o.Attach(bogus), gomoku.ErrNotFound)
	ghost := sess.MakeSocket(sess.GameChannel, s.RoomId, "nobody", 8)
	assert.ErrorIs(t, o.Attach(ghost), gomoku.ErrNotFound)
}

func TestAbort(t *testing.T) {
	o, f := fixture(t)
	s, err := o.QuickStart(gomoku.X)
	require.NoError(t, err)
	room, ok := o.reg.HomeOf(s.PlayerId)
	require.True(t, ok)

	o.abort(room, room.Game, "boom")
	assert.Equal(t, gomoku.Abandoned, room.Game.Status)
	assert.True(t, room.ShouldCleanup(time.Now().Add(time.Second), time.Hour))

	ev := f.wait(t, gomoku.EvError, 1)
	assert.Equal(t, s.GameId, ev.GameId)
}

func TestStats(t *testing.T) {
	o, _ := fixture(t)
	s, err := o.QuickStart(gomoku.X)
	require.NoError(t, err)
	require.NoError(t, o.Attach(
		sess.MakeSocket(sess.GameChannel, s.RoomId, s.PlayerId, 8)))

	st := o.Stats()
	assert.Equal(t, 1, st.Rooms)
	assert.Equal(t, 2, st.Players)
	assert.Equal(t, 1, st.Sockets)
	assert.Equal(t, 0, st.Operators)
	assert.Equal(t, uint64(1), st.Games)

	_, err = o.Reset(s.GameId, s.PlayerId)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), o.Stats().Games)
}
