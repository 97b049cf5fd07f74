// Board representation
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
	"strings"

	"github.com/pkg/errors"
)

const (
	// Cells per side
	BoardSize = 15
	// Stones in a row that win a game
	WinLength = 5
)

type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Board is a value type.  Copies are cheap enough that every mutation
// goes through Apply and returns a fresh snapshot, so a board handed
// to the broadcast path can never change under the reader.
type Board [BoardSize][BoardSize]Cell

// The four scan axes in their canonical forward direction: east,
// south, south-east, south-west.
var axes = [4]Position{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// Inside reports whether a position is on the board.
func Inside(p Position) bool {
	return 0 <= p.Row && p.Row < BoardSize && 0 <= p.Col && p.Col < BoardSize
}

// Get returns the contents of a cell.  The position must be inside
// the board.
func (b *Board) Get(p Position) Cell {
	return b[p.Row][p.Col]
}

// Validate checks that a stone may be placed on the cell.
func (b *Board) Validate(p Position) error {
	if !Inside(p) {
		return errors.Wrapf(ErrOutOfBounds, "(%d, %d)", p.Row, p.Col)
	}
	if b[p.Row][p.Col] != Empty {
		return errors.Wrapf(ErrOccupied, "(%d, %d)", p.Row, p.Col)
	}
	return nil
}

// Apply places a stone and returns the resulting board.  The receiver
// is left untouched.
func (b Board) Apply(p Position, c Cell) Board {
	b[p.Row][p.Col] = c
	return b
}

// CheckWin inspects the four axes through the cell placed last.  It
// returns the first five positions of a winning run ordered along the
// axis, or nil if the move did not win.  Calling it on any cell other
// than the most recent move is undefined.
func (b *Board) CheckWin(p Position) []Position {
	c := b[p.Row][p.Col]
	if c == Empty {
		return nil
	}
	for _, d := range axes {
		// Walk back to the start of the run, then forward
		// through it.
		start := p
		for {
			q := Position{start.Row - d.Row, start.Col - d.Col}
			if !Inside(q) || b[q.Row][q.Col] != c {
				break
			}
			start = q
		}
		var run []Position
		for q := start; Inside(q) && b[q.Row][q.Col] == c; q = (Position{q.Row + d.Row, q.Col + d.Col}) {
			run = append(run, q)
			if len(run) == WinLength {
				return run
			}
		}
	}
	return nil
}

// Full reports whether no empty cell remains, which after a win check
// means the game is drawn.
func (b *Board) Full() bool {
	for i := 0; i < BoardSize; i++ {
		for j := 0; j < BoardSize; j++ {
			if b[i][j] == Empty {
				return false
			}
		}
	}
	return true
}

// Count returns the number of stones on the board.
func (b *Board) Count() int {
	var n int
	for i := 0; i < BoardSize; i++ {
		for j := 0; j < BoardSize; j++ {
			if b[i][j] != Empty {
				n++
			}
		}
	}
	return n
}

func (b *Board) String() string {
	var sb strings.Builder
	for i := 0; i < BoardSize; i++ {
		for j := 0; j < BoardSize; j++ {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(b[i][j].String())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ParseBoard builds a board from one string per row, where 'X', 'O',
// 'T' and 'S' place stones and any other byte leaves the cell empty.
// Rows may be shorter than the board.  Useful for diagnostics and
// testing positions.
func ParseBoard(rows ...string) (*Board, error) {
	if len(rows) > BoardSize {
		return nil, errors.Errorf("too many rows: %d", len(rows))
	}
	var b Board
	for i, row := range rows {
		if len(row) > BoardSize {
			return nil, errors.Errorf("row %d too long: %q", i, row)
		}
		for j := 0; j < len(row); j++ {
			switch row[j] {
			case 'X':
				b[i][j] = X
			case 'O':
				b[i][j] = O
			case 'T':
				b[i][j] = Triangle
			case 'S':
				b[i][j] = Square
			}
		}
	}
	return &b, nil
}
