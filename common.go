// Common types and constants
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

	"github.com/pkg/errors"
)

type (
	Cell       uint8
	GameStatus uint8
	PlayerKind uint8
	RoomKind   uint8
)

// Possible cell contents
const (
	Empty Cell = iota
	X
	O
	// Reserved for multi-party rooms, no turn loop reaches them
	Triangle
	Square
)

// Possible game states
const (
	Waiting GameStatus = iota
	Playing
	Won
	Drawn
	Abandoned
)

// Possible player kinds
const (
	Human PlayerKind = iota
	AI
)

// Possible room kinds
const (
	VersusAI RoomKind = iota
	MultiParty
)

// Rejection and lookup failures shared across the server.  The web
// layer maps these onto the wire taxonomy, everyone else just wraps
// and returns them.
var (
	ErrNotActive   = errors.New("game is not active")
	ErrNotYourTurn = errors.New("not your turn")
	ErrOutOfBounds = errors.New("position out of bounds")
	ErrOccupied    = errors.New("cell is occupied")
	ErrNotFound    = errors.New("no such game")
	ErrRoomFull    = errors.New("room is full")
	ErrSymbolTaken = errors.New("symbol is taken")
	ErrBadRequest  = errors.New("malformed request")
	ErrForbidden   = errors.New("forbidden")
	ErrRateLimited = errors.New("too many requests")
)

func (c Cell) String() string {
	switch c {
	case Empty:
		return "."
	case X:
		return "X"
	case O:
		return "O"
	case Triangle:
		return "T"
	case Square:
		return "S"
	default:
		panic(fmt.Sprintf("Illegal cell: %d", c))
	}
}

// Cells serialise as the symbol letter, empty ones as null.  The
// entire wire contract (board rows, turn markers, winners) hangs off
// this representation.
func (c Cell) MarshalJSON() ([]byte, error) {
	if c == Empty {
		return []byte("null"), nil
	}
	return []byte(`"` + c.String() + `"`), nil
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = Empty
		return nil
	}
	if len(data) != 3 || data[0] != '"' || data[2] != '"' {
		return errors.Errorf("malformed cell %q", data)
	}
	parsed, err := ParseCell(string(data[1:2]))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCell interprets a client-supplied symbol name.
func ParseCell(s string) (Cell, error) {
	switch s {
	case "X":
		return X, nil
	case "O":
		return O, nil
	case "T":
		return Triangle, nil
	case "S":
		return Square, nil
	default:
		return Empty, errors.Errorf("unknown symbol %q", s)
	}
}

// Opponent returns the other side of a two-player game.
func (c Cell) Opponent() Cell {
	switch c {
	case X:
		return O
	case O:
		return X
	default:
		panic(fmt.Sprintf("Illegal side: %v", c))
	}
}

func (s GameStatus) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Playing:
		return "playing"
	case Won:
		return "won"
	case Drawn:
		return "drawn"
	case Abandoned:
		return "abandoned"
	default:
		panic(fmt.Sprintf("Illegal status: %d", s))
	}
}

func (s GameStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Terminal reports whether the status is a sink state.
func (s GameStatus) Terminal() bool {
	return s == Won || s == Drawn || s == Abandoned
}

func (k PlayerKind) String() string {
	switch k {
	case Human:
		return "human"
	case AI:
		return "ai"
	default:
		panic(fmt.Sprintf("Illegal kind: %d", k))
	}
}

func (k PlayerKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

func (k RoomKind) String() string {
	switch k {
	case VersusAI:
		return "vs-ai"
	case MultiParty:
		return "multi-party"
	default:
		panic(fmt.Sprintf("Illegal room kind: %d", k))
	}
}

func (k RoomKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// MaxPlayers is the seat count a room kind admits, counting the
// resident engine player in vs-ai rooms.
func (k RoomKind) MaxPlayers() int {
	switch k {
	case VersusAI:
		return 2
	case MultiParty:
		return 4
	default:
		panic(fmt.Sprintf("Illegal room kind: %d", k))
	}
}

// Symbols returns the seat symbols of a room kind in assignment order.
func (k RoomKind) Symbols() []Cell {
	switch k {
	case VersusAI:
		return []Cell{X, O}
	case MultiParty:
		return []Cell{X, O, Triangle, Square}
	default:
		panic(fmt.Sprintf("Illegal room kind: %d", k))
	}
}
