// Adversarial search
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
	"math"
	"sort"
	"time"

	gomoku "github.com/DereckAn/Websocket-Server-sub001"
)

// spread is the Chebyshev distance around existing stones considered
// worth searching.
const spread = 2

// forced returns a move that completes a five on the spot, for us
// first and failing that one denying the opponent theirs.  Row-major
// scanning settles ties on the lowest row, then the lowest column.
func forced(b *gomoku.Board, sym gomoku.Cell) (gomoku.Position, bool) {
	for _, side := range [2]gomoku.Cell{sym, sym.Opponent()} {
		for r := 0; r < gomoku.BoardSize; r++ {
			for c := 0; c < gomoku.BoardSize; c++ {
				p := gomoku.Position{Row: r, Col: c}
				if b.Get(p) != gomoku.Empty {
					continue
				}
				if t := b.Apply(p, side); t.CheckWin(p) != nil {
					return p, true
				}
			}
		}
	}
	return gomoku.Position{}, false
}

// candidates collects the free cells within spread of any stone,
// most promising first, at most width of them.  The opening filters
// are dropped again if they would leave nothing.  On an empty board
// the centre is the only candidate.
func candidates(b *gomoku.Board, number uint, width int) []gomoku.Position {
	var all, picked []gomoku.Position
	for r := 0; r < gomoku.BoardSize; r++ {
		for c := 0; c < gomoku.BoardSize; c++ {
			p := gomoku.Position{Row: r, Col: c}
			if b.Get(p) != gomoku.Empty || !near(b, p) {
				continue
			}
			all = append(all, p)
			if allowed(p, number) {
				picked = append(picked, p)
			}
		}
	}
	if len(picked) == 0 {
		picked = all
	}
	if len(picked) == 0 {
		if b.Get(center) == gomoku.Empty {
			return []gomoku.Position{center}
		}
		return nil
	}
	sort.Slice(picked, func(i, j int) bool {
		si, sj := promise(b, picked[i]), promise(b, picked[j])
		if si != sj {
			return si > sj
		}
		if picked[i].Row != picked[j].Row {
			return picked[i].Row < picked[j].Row
		}
		return picked[i].Col < picked[j].Col
	})
	if len(picked) > width {
		picked = picked[:width]
	}
	return picked
}

// near reports whether a stone lies within spread of the cell.
func near(b *gomoku.Board, p gomoku.Position) bool {
	for r := p.Row - spread; r <= p.Row+spread; r++ {
		for c := p.Col - spread; c <= p.Col+spread; c++ {
			q := gomoku.Position{Row: r, Col: c}
			if gomoku.Inside(q) && b.Get(q) != gomoku.Empty {
				return true
			}
		}
	}
	return false
}

// promise orders candidate moves.  Stones next door weigh more than
// stones one ring out, with a nudge toward the centre that never
// outweighs a stone.
func promise(b *gomoku.Board, p gomoku.Position) int {
	var s int
	for r := p.Row - spread; r <= p.Row+spread; r++ {
		for c := p.Col - spread; c <= p.Col+spread; c++ {
			q := gomoku.Position{Row: r, Col: c}
			if !gomoku.Inside(q) || b.Get(q) == gomoku.Empty {
				continue
			}
			if abs(r-p.Row) <= 1 && abs(c-p.Col) <= 1 {
				s += 4
			} else {
				s++
			}
		}
	}
	return s*16 + 14 - manhattan(p, center)
}

// front moves a known best reply to the head of the move list.
func front(moves []gomoku.Position, p gomoku.Position) {
	for i, m := range moves {
		if m == p {
			copy(moves[1:i+1], moves[:i])
			moves[0] = p
			return
		}
	}
}

// search runs iterative deepening down to the configured depth within
// the wall clock budget.  It reports the best move of the deepest
// fully evaluated level together with its value, the nodes visited
// and that level; a level of zero means the clock beat even the first
// pass and the caller has to fall back on the book heuristics.
func (e *Engine) search(Σ *gomoku.Board, π gomoku.Cell, number uint, Ω time.Time) (gomoku.Position, int, int, uint) {
	var (
		σ       = *Σ // working copy, stones are placed and lifted in place
		η       = fingerprint(&σ)
		nodes   int
		expired bool
	)

	var it func(ω gomoku.Cell, ν, δ uint, α, β int) int
	it = func(ω gomoku.Cell, ν, δ uint, α, β int) int {
		if expired || time.Now().After(Ω) {
			expired = true
			return 0
		}

		κ := key(η, ω)
		seed, cached := e.cache.probe(κ)
		if cached && seed.depth >= δ {
			switch seed.flag {
			case boundExact:
				return seed.value
			case boundLower:
				if seed.value > α {
					α = seed.value
				}
			case boundUpper:
				if seed.value < β {
					β = seed.value
				}
			}
			if α >= β {
				return seed.value
			}
		}

		if δ == 0 {
			φ := evaluate(&σ, π)
			e.cache.store(κ, entry{value: φ, flag: boundExact})
			return φ
		}

		moves := candidates(&σ, ν, int(e.width))
		if len(moves) == 0 {
			return evaluate(&σ, π)
		}
		if cached && seed.depth > 0 {
			front(moves, seed.reply)
		}

		var (
			α0, β0 = α, β
			Φ      int // best value so far
			μ      = moves[0]
		)
		if ω == π { // maximising
			Φ = math.MinInt / 2
		} else { // minimising
			Φ = math.MaxInt / 2
		}

		for _, m := range moves {
			nodes++
			σ[m.Row][m.Col] = ω
			η ^= zobrist[m.Row][m.Col][ω-1]

			var φ int
			if σ.CheckWin(m) != nil {
				// Decided, quicker fives score higher than
				// distant ones.
				if ω == π {
					φ = winValue + int(δ)
				} else {
					φ = -winValue - int(δ)
				}
			} else if σ.Full() {
				φ = 0
			} else {
				φ = it(ω.Opponent(), ν+1, δ-1, α, β)
			}

			σ[m.Row][m.Col] = gomoku.Empty
			η ^= zobrist[m.Row][m.Col][ω-1]

			if expired {
				return Φ
			}

			if ω == π { // maximising
				if φ > Φ {
					Φ, μ = φ, m
				}
				if Φ > α {
					α = Φ
				}
				if Φ >= β {
					break
				}
			} else { // minimising
				if φ < Φ {
					Φ, μ = φ, m
				}
				if Φ < β {
					β = Φ
				}
				if Φ <= α {
					break
				}
			}
		}

		flag := boundExact
		switch {
		case Φ <= α0:
			flag = boundUpper
		case Φ >= β0:
			flag = boundLower
		}
		e.cache.store(κ, entry{value: Φ, reply: μ, depth: δ, flag: flag})
		return Φ
	}

	root := candidates(&σ, number, int(e.width))
	if len(root) == 0 {
		return gomoku.Position{}, 0, nodes, 0
	}

	var (
		best      = root[0]
		value     int
		completed uint
	)
	for δ := uint(1); δ <= e.depth && !expired; δ++ {
		var (
			α = math.MinInt / 2
			Φ = math.MinInt / 2
			μ = root[0]
		)
		for _, m := range root {
			nodes++
			σ[m.Row][m.Col] = π
			η ^= zobrist[m.Row][m.Col][π-1]

			var φ int
			if σ.CheckWin(m) != nil {
				φ = winValue + int(δ)
			} else if σ.Full() {
				φ = 0
			} else {
				φ = it(π.Opponent(), number+1, δ-1, α, math.MaxInt/2)
			}

			σ[m.Row][m.Col] = gomoku.Empty
			η ^= zobrist[m.Row][m.Col][π-1]

			if expired {
				break
			}
			if φ > Φ {
				Φ, μ = φ, m
			}
			if Φ > α {
				α = Φ
			}
		}
		if expired {
			break
		}
		best, value, completed = μ, Φ, δ
		if Φ >= winValue {
			break // a five is forced, no point looking deeper
		}
		// Seed the next level with this one's winner.
		front(root, best)
	}
	return best, value, nodes, completed
}
