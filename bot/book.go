// Opening book
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

package bot

import (
	"math/rand"

	gomoku "github.com/DereckAn/Websocket-Server-sub001"
)

const (
	// Half-width of the square around the centre the book picks
	// from for moves four to eight.
	bookRadius = 4
	// Cells closer than this to the border are banned early on.
	edgeBand = 2
)

var (
	center = gomoku.Position{Row: gomoku.BoardSize / 2, Col: gomoku.BoardSize / 2}

	// The four cells diagonally adjacent to the centre.
	diagonals = [4]gomoku.Position{
		{Row: center.Row - 1, Col: center.Col - 1},
		{Row: center.Row - 1, Col: center.Col + 1},
		{Row: center.Row + 1, Col: center.Col - 1},
		{Row: center.Row + 1, Col: center.Col + 1},
	}
)

// book consults the opening policy.  It serves the first eight moves
// of a game and refuses afterwards, leaving the board to the search.
// The choice among the four diagonals on move two is the only
// randomness in the engine.
func book(b *gomoku.Board, sym gomoku.Cell, number uint) (gomoku.Position, bool) {
	switch number {
	default:
		return gomoku.Position{}, false
	case 1:
		if b.Get(center) == gomoku.Empty {
			return center, true
		}
	case 2:
		if b.Get(center) == gomoku.Empty {
			return center, true
		}
		if d := diagonals[rand.Intn(len(diagonals))]; b.Get(d) == gomoku.Empty {
			return d, true
		}
	case 3:
		if p, ok := counter(b, sym); ok {
			return p, true
		}
	case 4, 5, 6, 7, 8:
	}
	return bookScore(b, number)
}

// counter finds the third stone: the centre diagonal opposite the
// opponent's reply.  Offsets on the centre lines count as negative so
// the result is always a diagonal.
func counter(b *gomoku.Board, sym gomoku.Cell) (gomoku.Position, bool) {
	opp := sym.Opponent()
	for r := 0; r < gomoku.BoardSize; r++ {
		for c := 0; c < gomoku.BoardSize; c++ {
			if b[r][c] != opp {
				continue
			}
			p := gomoku.Position{
				Row: center.Row - step(r-center.Row),
				Col: center.Col - step(c-center.Col),
			}
			if b.Validate(p) == nil {
				return p, true
			}
			return gomoku.Position{}, false
		}
	}
	return gomoku.Position{}, false
}

func step(d int) int {
	if d > 0 {
		return 1
	}
	return -1
}

// bookScore picks the best free cell inside the radius-4 square
// around the centre: closeness to the centre plus twice the stones in
// the surrounding 5x5 box.  Row-major scanning settles ties on the
// lowest row, then the lowest column.
func bookScore(b *gomoku.Board, number uint) (gomoku.Position, bool) {
	var (
		best  gomoku.Position
		score int
		found bool
	)
	for r := center.Row - bookRadius; r <= center.Row+bookRadius; r++ {
		for c := center.Col - bookRadius; c <= center.Col+bookRadius; c++ {
			p := gomoku.Position{Row: r, Col: c}
			if b.Get(p) != gomoku.Empty || !allowed(p, number) {
				continue
			}
			s := 10 - manhattan(p, center) + 2*neighbours(b, p)
			if !found || s > score {
				best, score, found = p, s, true
			}
		}
	}
	return best, found
}

// allowed rejects cells hugging the border for the first eight moves
// and the exact corners for the first ten.
func allowed(p gomoku.Position, number uint) bool {
	if number <= 8 &&
		(p.Row < edgeBand || p.Row >= gomoku.BoardSize-edgeBand ||
			p.Col < edgeBand || p.Col >= gomoku.BoardSize-edgeBand) {
		return false
	}
	if number <= 10 &&
		(p.Row == 0 || p.Row == gomoku.BoardSize-1) &&
		(p.Col == 0 || p.Col == gomoku.BoardSize-1) {
		return false
	}
	return true
}

func manhattan(p, q gomoku.Position) int {
	return abs(p.Row-q.Row) + abs(p.Col-q.Col)
}

// neighbours counts the stones in the 5x5 box around a cell.
func neighbours(b *gomoku.Board, p gomoku.Position) int {
	var n int
	for r := p.Row - 2; r <= p.Row+2; r++ {
		for c := p.Col - 2; c <= p.Col+2; c++ {
			q := gomoku.Position{Row: r, Col: c}
			if gomoku.Inside(q) && b.Get(q) != gomoku.Empty {
				n++
			}
		}
	}
	return n
}

func abs(d int) int {
	if d < 0 {
		return -d
	}
	return d
}
