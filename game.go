// Game state machine
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
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Move records one placed stone.  Numbers are dense per game and
// start at 1.
type Move struct {
	Position
	Symbol Cell      `json:"symbol"`
	Player string    `json:"playerId"`
	Number int       `json:"moveNumber"`
	Stamp  time.Time `json:"timestamp"`
}

// Game holds one playthrough: the board, the move history and the
// seated players.  A Game belongs to exactly one Room and is only
// mutated under that room's lock.
type Game struct {
	Id       string
	Board    Board
	Turn     Cell
	Status   GameStatus
	Winner   Cell
	Line     []Position
	Moves    []Move
	Players  []*Player
	Created  time.Time
	LastMove time.Time
	Finished time.Time
}

func MakeGame() *Game {
	now := time.Now()
	return &Game{
		Id:       uuid.NewString(),
		Turn:     X,
		Status:   Waiting,
		Moves:    make([]Move, 0, 16),
		Created:  now,
		LastMove: now,
	}
}

// Start transitions a waiting game into play.  Terminal states are
// sinks, so anything else is left alone.
func (g *Game) Start() {
	if g.Status == Waiting {
		g.Status = Playing
	}
}

// ApplyMove validates and applies one stone for the given side.  On
// success the turn flips unless the move ended the game, in which
// case the status, winner and winning line are settled before
// returning.
func (g *Game) ApplyMove(p Position, c Cell, player string) (Move, error) {
	if g.Status != Playing {
		return Move{}, ErrNotActive
	}
	if c != g.Turn {
		return Move{}, ErrNotYourTurn
	}
	if err := g.Board.Validate(p); err != nil {
		return Move{}, err
	}

	g.Board = g.Board.Apply(p, c)
	m := Move{
		Position: p,
		Symbol:   c,
		Player:   player,
		Number:   len(g.Moves) + 1,
		Stamp:    time.Now(),
	}
	g.Moves = append(g.Moves, m)
	g.LastMove = m.Stamp

	if line := g.Board.CheckWin(p); line != nil {
		g.Status = Won
		g.Winner = c
		g.Line = line
		g.Finished = m.Stamp
	} else if g.Board.Full() {
		g.Status = Drawn
		g.Finished = m.Stamp
	} else {
		g.Turn = c.Opponent()
	}
	return m, nil
}

// Abandon forces a non-terminal game into the abandoned sink.
func (g *Game) Abandon() {
	if !g.Status.Terminal() {
		g.Status = Abandoned
		g.Finished = time.Now()
	}
}

// Player looks up a seated player by id.
func (g *Game) Player(id string) *Player {
	for _, p := range g.Players {
		if p.Id == id {
			return p
		}
	}
	return nil
}

// PlayerBySymbol looks up a seated player by side.
func (g *Game) PlayerBySymbol(c Cell) *Player {
	for _, p := range g.Players {
		if p.Symbol == c {
			return p
		}
	}
	return nil
}

// HumansConnected counts seated human players whose presence flag is
// up.
func (g *Game) HumansConnected() int {
	var n int
	for _, p := range g.Players {
		if p.Kind == Human && p.Connected {
			n++
		}
	}
	return n
}

// Result renders the outcome for the terminal broadcast: the winning
// symbol, or "draw".  Empty for games that are still running or were
// abandoned.
func (g *Game) Result() string {
	switch g.Status {
	case Won:
		return g.Winner.String()
	case Drawn:
		return "draw"
	default:
		return ""
	}
}

// Snapshot returns a copy that is safe to hand to the broadcast path
// while the original keeps changing under the room lock.  Move and
// line entries are write-once, so sharing their backing arrays is
// fine; players are copied since their presence fields do change.
func (g *Game) Snapshot() *Game {
	c := *g
	c.Players = make([]*Player, len(g.Players))
	for i, p := range g.Players {
		q := *p
		c.Players[i] = &q
	}
	return &c
}

func (g Game) MarshalJSON() ([]byte, error) {
	var fin *time.Time
	if !g.Finished.IsZero() {
		fin = &g.Finished
	}
	return json.Marshal(struct {
		Id       string     `json:"id"`
		Board    Board      `json:"board"`
		Turn     Cell       `json:"currentPlayer"`
		Status   GameStatus `json:"status"`
		Winner   Cell       `json:"winner"`
		Line     []Position `json:"winningLine,omitempty"`
		Count    int        `json:"moveCount"`
		Players  []*Player  `json:"players"`
		Created  time.Time  `json:"createdAt"`
		LastMove time.Time  `json:"lastMoveAt"`
		Finished *time.Time `json:"finishedAt,omitempty"`
		Moves    []Move     `json:"moves"`
	}{g.Id, g.Board, g.Turn, g.Status, g.Winner, g.Line, len(g.Moves),
		g.Players, g.Created, g.LastMove, fin, g.Moves})
}
