// Game orchestration
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
	"fmt"
	"sync/atomic"
	"time"

	gomoku "github.com/DereckAn/Websocket-Server-sub001"
	"github.com/DereckAn/Websocket-Server-sub001/bot"
	"github.com/DereckAn/Websocket-Server-sub001/conf"
	"github.com/DereckAn/Websocket-Server-sub001/sess"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Broadcaster is the fan-out the orchestrator publishes through.  The
// socket layer implements it with one ordered queue per room, so two
// events enqueued for the same room are delivered in enqueue order
// even when the second carries a delay.  Release tears the room's
// queue down after draining it.
type Broadcaster interface {
	Broadcast(roomId string, ev gomoku.Event)
	BroadcastAfter(roomId string, delay time.Duration, ev gomoku.Event)
	Release(roomId string)
}

// Orchestrator coordinates rooms, the engine and the fan-out.  Every
// mutation of a game happens under its room lock, and every game event
// is enqueued while that lock is still held, which is what keeps the
// broadcast order aligned with the operation order.
type Orchestrator struct {
	reg    *sess.Registry
	engine *bot.Engine
	out    Broadcaster
	ttl    time.Duration
	move   time.Duration
	think  time.Duration
	games  atomic.Uint64
}

func MakeOrchestrator(reg *sess.Registry, engine *bot.Engine, out Broadcaster, c *conf.Conf) *Orchestrator {
	return &Orchestrator{
		reg:    reg,
		engine: engine,
		out:    out,
		ttl:    c.RoomTTL,
		move:   c.MoveDelay,
		think:  c.ThinkDelay,
	}
}

// Start is the quick-start result.  The transport fills in the socket
// endpoint, which depends on the host the request came in over.
type Start struct {
	GameId       string       `json:"gameId"`
	RoomId       string       `json:"roomId"`
	PlayerId     string       `json:"playerId"`
	PlayerSymbol gomoku.Cell  `json:"playerSymbol"`
	AISymbol     gomoku.Cell  `json:"aiSymbol"`
	WsEndpoint   string       `json:"wsEndpoint"`
	GameState    *gomoku.Game `json:"gameState"`
}

// QuickStart creates a vs-ai room with the human and the engine
// seated and the game under way.  The human gets the preferred
// symbol, or X when no preference is given.  If the engine ends up
// with the first move it is set thinking right away.
func (o *Orchestrator) QuickStart(preferred gomoku.Cell) (*Start, error) {
	symbol := gomoku.X
	if preferred != gomoku.Empty {
		var valid bool
		for _, c := range gomoku.VersusAI.Symbols() {
			if c == preferred {
				valid = true
			}
		}
		if !valid {
			return nil, errors.Wrapf(gomoku.ErrSymbolTaken,
				"no %s seat in a vs-ai room", preferred)
		}
		symbol = preferred
	}

	room := gomoku.MakeRoom(gomoku.VersusAI, o.ttl)
	human, err := room.Join(gomoku.Human, symbol)
	if err != nil {
		panic(err)
	}
	ai, err := room.Join(gomoku.AI, symbol.Opponent())
	if err != nil {
		panic(err)
	}

	// The room is not shared until it enters the registry, so a
	// colliding code just gets rerolled in place.
	for !o.reg.AddRoom(room) {
		room.Id = gomoku.RandomRoomId()
	}
	o.reg.AddPlayer(room.Id, human)
	o.reg.AddPlayer(room.Id, ai)
	o.games.Add(1)

	g := room.Game
	snap := g.Snapshot()
	o.out.Broadcast(room.Id, gomoku.MakeEvent(gomoku.EvGameCreated,
		room.Id, g.Id, gomoku.StatePayload{Game: snap}))
	if g.Turn == ai.Symbol {
		o.aiTurn(room, g, ai)
	}

	gomoku.Debugf("Room %s: %s plays %s against the engine",
		room.Id, human.Id, human.Symbol)
	return &Start{
		GameId:       g.Id,
		RoomId:       room.Id,
		PlayerId:     human.Id,
		PlayerSymbol: human.Symbol,
		AISymbol:     ai.Symbol,
		GameState:    snap,
	}, nil
}

// MakeMove applies one human stone and, when the engine is up next,
// schedules its reply.  The returned snapshot reflects the position
// right after the human stone; the engine's answer arrives over the
// socket.  Rejected moves change nothing and broadcast nothing.
func (o *Orchestrator) MakeMove(gameId, playerId string, p gomoku.Position) (*gomoku.Game, error) {
	room, ok := o.reg.HomeOf(playerId)
	if !ok {
		return nil, errors.Wrap(gomoku.ErrNotFound, "unknown player")
	}

	room.Lock()
	defer room.Unlock()
	g := room.Game
	if g.Id != gameId {
		return nil, errors.Wrap(gomoku.ErrNotFound, "stale game id")
	}
	player := g.Player(playerId)
	if player == nil || player.Kind != gomoku.Human {
		return nil, errors.Wrap(gomoku.ErrNotFound, "unknown player")
	}

	m, err := g.ApplyMove(p, player.Symbol, player.Id)
	if err != nil {
		return nil, err
	}
	player.Touch(m.Stamp)
	room.Touch()
	snap := g.Snapshot()

	o.out.Broadcast(room.Id, gomoku.MakeEvent(gomoku.EvMoveProcessing,
		room.Id, g.Id, gomoku.MoveProcessingPayload{Player: playerId}))
	o.out.Broadcast(room.Id, gomoku.MakeEvent(gomoku.EvMoveMade,
		room.Id, g.Id, gomoku.MovePayload{Move: m, Game: snap}))

	if g.Status.Terminal() {
		o.finish(room, g)
		return snap, nil
	}
	if next := g.PlayerBySymbol(g.Turn); next != nil && next.Kind == gomoku.AI {
		o.aiTurn(room, g, next)
	}
	return snap, nil
}

// State returns a read-only snapshot.  A caller that identifies
// itself is resolved through its home room; anonymous lookups walk
// the registry.
func (o *Orchestrator) State(gameId, playerId string) (*gomoku.Game, error) {
	if playerId != "" {
		if room, ok := o.reg.HomeOf(playerId); ok {
			room.Lock()
			if room.Game.Id == gameId {
				snap := room.Game.Snapshot()
				room.Unlock()
				return snap, nil
			}
			room.Unlock()
		}
	}
	for _, room := range o.reg.Rooms() {
		room.Lock()
		if room.Game.Id == gameId {
			snap := room.Game.Snapshot()
			room.Unlock()
			return snap, nil
		}
		room.Unlock()
	}
	return nil, errors.Wrap(gomoku.ErrNotFound, gameId)
}

// Reset replaces the game, keeping the seats and the win statistics.
// When the engine holds X it opens the fresh board unprompted.
func (o *Orchestrator) Reset(gameId, playerId string) (*gomoku.Game, error) {
	room, ok := o.reg.HomeOf(playerId)
	if !ok {
		return nil, errors.Wrap(gomoku.ErrNotFound, "unknown player")
	}

	room.Lock()
	defer room.Unlock()
	if room.Game.Id != gameId {
		return nil, errors.Wrap(gomoku.ErrNotFound, "stale game id")
	}
	g := room.ResetGame()
	o.games.Add(1)
	snap := g.Snapshot()

	o.out.Broadcast(room.Id, gomoku.MakeEvent(gomoku.EvGameReset,
		room.Id, g.Id, gomoku.StatePayload{Game: snap}))
	if next := g.PlayerBySymbol(g.Turn); next != nil &&
		next.Kind == gomoku.AI && g.Status == gomoku.Playing {
		o.aiTurn(room, g, next)
	}
	return snap, nil
}

// Leave marks the calling player as disconnected.  The room itself
// stays put; the reaper collects it once no connected human remains.
func (o *Orchestrator) Leave(gameId, playerId string) error {
	room, ok := o.reg.HomeOf(playerId)
	if !ok {
		return errors.Wrap(gomoku.ErrNotFound, "unknown player")
	}

	room.Lock()
	defer room.Unlock()
	g := room.Game
	if g.Id != gameId {
		return errors.Wrap(gomoku.ErrNotFound, "stale game id")
	}
	if g.Player(playerId) == nil {
		return errors.Wrap(gomoku.ErrNotFound, "unknown player")
	}

	gone := room.Disconnect(playerId)
	o.out.Broadcast(room.Id, gomoku.MakeEvent(gomoku.EvPlayerLeft,
		room.Id, g.Id, gomoku.PlayerLeftPayload{Player: playerId}))
	if gone {
		gomoku.Debugf("Room %s: no connected humans remain", room.Id)
	}
	return nil
}

// Attach wires a fresh game socket into its room.  Any earlier socket
// of the same player is superseded and closed, presence comes back
// up, and the newcomer is brought up to date with a full snapshot
// before the regular event flow reaches it.
func (o *Orchestrator) Attach(s *sess.Socket) error {
	room, ok := o.reg.Room(s.RoomId)
	if !ok {
		return errors.Wrap(gomoku.ErrNotFound, s.RoomId)
	}
	if old := o.reg.Attach(s); old != nil {
		old.Close()
	}

	room.Lock()
	if !room.Reconnect(s.PlayerId, s.Id) {
		room.Unlock()
		o.reg.Detach(s.Id)
		return errors.Wrap(gomoku.ErrNotFound, "unknown player")
	}
	g := room.Game
	snap := g.Snapshot()
	o.out.Broadcast(room.Id, gomoku.MakeEvent(gomoku.EvPlayerJoined,
		room.Id, g.Id, gomoku.PlayerJoinedPayload{
			Player: snap.Player(s.PlayerId),
			Game:   snap,
		}))
	room.Unlock()

	s.Send(gomoku.MakeEvent(gomoku.EvStateUpdate, room.Id, g.Id,
		gomoku.StatePayload{Game: snap}))
	return nil
}

// Detach is the socket-close path.  Presence only drops when the
// closing socket is still the player's current one; a socket that was
// superseded by a reconnect must not knock the player offline.
func (o *Orchestrator) Detach(s *sess.Socket) {
	if _, ok := o.reg.Detach(s.Id); !ok {
		return
	}
	room, ok := o.reg.Room(s.RoomId)
	if !ok {
		return
	}

	room.Lock()
	defer room.Unlock()
	g := room.Game
	p := g.Player(s.PlayerId)
	if p == nil || p.SocketId != s.Id {
		return
	}
	gone := room.Disconnect(s.PlayerId)
	o.out.Broadcast(room.Id, gomoku.MakeEvent(gomoku.EvPlayerLeft,
		room.Id, g.Id, gomoku.PlayerLeftPayload{Player: s.PlayerId}))
	if gone {
		gomoku.Debugf("Room %s: no connected humans remain", room.Id)
	}
}

// CloseRoom tears a room down: the game is abandoned if still open,
// everyone is told why, the room's queue is drained and its sockets
// closed.  The reaper runs this from its sweep.
func (o *Orchestrator) CloseRoom(room *gomoku.Room, reason string) {
	room.Lock()
	g := room.Game
	g.Abandon()
	o.out.Broadcast(room.Id, gomoku.MakeEvent(gomoku.EvRoomClosed,
		room.Id, g.Id, gomoku.RoomClosedPayload{Reason: reason}))
	room.Unlock()

	o.out.Release(room.Id)
	for _, s := range o.reg.RemoveRoom(room.Id) {
		s.Close()
	}
}

// CloseAll empties the registry on the way down.
func (o *Orchestrator) CloseAll(reason string) {
	for _, room := range o.reg.Rooms() {
		o.CloseRoom(room, reason)
	}
}

// Stats is the metric block of the status endpoint.
type Stats struct {
	Rooms     int    `json:"activeRooms"`
	Players   int    `json:"activePlayers"`
	Sockets   int    `json:"gameSockets"`
	Operators int    `json:"operatorSockets"`
	Games     uint64 `json:"gamesPlayed"`
	Cache     int    `json:"aiCacheEntries"`
}

func (o *Orchestrator) Stats() Stats {
	rooms, players, sockets, operators := o.reg.Stats()
	return Stats{
		Rooms:     rooms,
		Players:   players,
		Sockets:   sockets,
		Operators: operators,
		Games:     o.games.Load(),
		Cache:     o.engine.CacheLen(),
	}
}

// aiTurn announces that the engine is thinking and schedules its
// reply.  It runs on the caller's goroutine, so the announcement lands
// in the queue right behind the event that provoked it; the search
// itself runs on its own goroutine without the lock.
func (o *Orchestrator) aiTurn(room *gomoku.Room, g *gomoku.Game, ai *gomoku.Player) {
	o.out.BroadcastAfter(room.Id, o.move, gomoku.MakeEvent(gomoku.EvAIThinking,
		room.Id, g.Id, gomoku.ThinkingPayload{Symbol: ai.Symbol}))
	go o.aiMove(room, g, ai)
}

// aiMove computes and applies the engine's stone.  By the time the
// search finishes the game may have been reset or the room closed;
// the guard drops such stale replies without a word.  An engine
// failure abandons the game rather than leaving it stuck on the
// engine's turn forever.
func (o *Orchestrator) aiMove(room *gomoku.Room, g *gomoku.Game, ai *gomoku.Player) {
	defer func() {
		if reason := recover(); reason != nil {
			o.abort(room, g, reason)
		}
	}()

	// Pacing, so the reply does not land before a human could
	// even have read the thinking notice.
	time.Sleep(o.move + o.think)

	room.Lock()
	if room.Game != g || g.Status != gomoku.Playing || g.Turn != ai.Symbol {
		room.Unlock()
		return
	}
	board := g.Board
	number := uint(len(g.Moves) + 1)
	room.Unlock()

	p, eval := o.engine.BestMove(&board, ai.Symbol, number)

	room.Lock()
	defer room.Unlock()
	if room.Game != g || g.Status != gomoku.Playing || g.Turn != ai.Symbol {
		return
	}
	m, err := g.ApplyMove(p, ai.Symbol, ai.Id)
	if err != nil {
		panic(err)
	}
	room.Touch()
	snap := g.Snapshot()

	o.out.Broadcast(room.Id, gomoku.MakeEvent(gomoku.EvAIMove,
		room.Id, g.Id, gomoku.AIMovePayload{
			Move:       m,
			Evaluation: eval,
			Game:       snap,
		}))
	if g.Status.Terminal() {
		o.finish(room, g)
	}
}

// finish folds a decided game into the room statistics and emits the
// terminal event.  Caller holds the room lock.
func (o *Orchestrator) finish(room *gomoku.Room, g *gomoku.Game) {
	milestone, banner := room.RecordResult()
	msg := message(g)
	if milestone {
		msg = banner
	}
	stats := room.Stats
	o.out.Broadcast(room.Id, gomoku.MakeEvent(gomoku.EvGameOver,
		room.Id, g.Id, gomoku.GameOverPayload{
			Winner:       g.Result(),
			FinalMessage: msg,
			Line:         g.Line,
			Stats:        &stats,
		}))
}

// abort is the last resort when the engine fails.
func (o *Orchestrator) abort(room *gomoku.Room, g *gomoku.Game, reason any) {
	klog.Errorf("Engine failed in room %s: %v", room.Id, reason)

	room.Lock()
	defer room.Unlock()
	if room.Game != g || g.Status.Terminal() {
		return
	}
	g.Abandon()
	room.MarkForReap()
	o.out.Broadcast(room.Id, gomoku.MakeEvent(gomoku.EvError,
		room.Id, g.Id, gomoku.ErrorPayload{
			Error: "engine failure, game abandoned",
		}))
}

// message renders the standard outcome line shown when no milestone
// banner takes its place.
func message(g *gomoku.Game) string {
	switch g.Status {
	case gomoku.Won:
		return fmt.Sprintf("%s wins!", g.Winner)
	case gomoku.Drawn:
		return "It's a draw!"
	default:
		return ""
	}
}
