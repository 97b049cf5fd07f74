// Position evaluation
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

import gomoku "github.com/DereckAn/Websocket-Server-sub001"

// Pattern weights.  An open four cannot be defended, and two open
// threes together outweigh a closed four, which is what steers the
// search into the classic double-three traps.
const (
	weightFive      = 1_000_000
	weightOpenFour  = 100_000
	weightFour      = 10_000
	weightOpenThree = 5_000
	weightThree     = 1_000
	weightOpenTwo   = 500
	weightTwo       = 100
	weightOne       = 10
)

// winValue marks a decided position inside the search.  Out of reach
// of any pattern sum.
const winValue = 10_000_000

// The four scan axes in their canonical forward direction: east,
// south, south-east, south-west.
var axes = [4]gomoku.Position{
	{Row: 0, Col: 1},
	{Row: 1, Col: 0},
	{Row: 1, Col: 1},
	{Row: 1, Col: -1},
}

// evaluate scores a position from the point of view of one side.
func evaluate(b *gomoku.Board, sym gomoku.Cell) int {
	return patterns(b, sym) - patterns(b, sym.Opponent())
}

// patterns sums the pattern weights of one side.  Every run is
// visited once, from its first stone along each axis; the cells just
// before and just after decide how open it is.
func patterns(b *gomoku.Board, sym gomoku.Cell) int {
	var total int
	for r := 0; r < gomoku.BoardSize; r++ {
		for c := 0; c < gomoku.BoardSize; c++ {
			if b[r][c] != sym {
				continue
			}
			for _, d := range axes {
				prev := gomoku.Position{Row: r - d.Row, Col: c - d.Col}
				if gomoku.Inside(prev) && b.Get(prev) == sym {
					continue // not the first stone of the run
				}
				length := 0
				q := gomoku.Position{Row: r, Col: c}
				for gomoku.Inside(q) && b.Get(q) == sym {
					length++
					q = gomoku.Position{Row: q.Row + d.Row, Col: q.Col + d.Col}
				}
				open := 0
				if gomoku.Inside(prev) && b.Get(prev) == gomoku.Empty {
					open++
				}
				if gomoku.Inside(q) && b.Get(q) == gomoku.Empty {
					open++
				}
				total += weigh(length, open)
			}
		}
	}
	return total
}

// weigh maps a run onto its weight.  A run walled in on both sides
// can never grow into a five and counts for nothing.
func weigh(length, open int) int {
	if length >= gomoku.WinLength {
		return weightFive
	}
	if open == 0 {
		return 0
	}
	switch {
	case length == 4 && open == 2:
		return weightOpenFour
	case length == 4:
		return weightFour
	case length == 3 && open == 2:
		return weightOpenThree
	case length == 3:
		return weightThree
	case length == 2 && open == 2:
		return weightOpenTwo
	case length == 2:
		return weightTwo
	case open == 2:
		return weightOne
	default:
		return 0
	}
}
