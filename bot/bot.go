// Move engine
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
	"fmt"
	"time"

	gomoku "github.com/DereckAn/Websocket-Server-sub001"
	"github.com/DereckAn/Websocket-Server-sub001/conf"
)

// Engine picks moves for the built-in opponent.  One engine serves
// every concurrent game; the cache behind it is safe to share.
type Engine struct {
	depth  uint          // search plies
	budget time.Duration // wall clock per move
	width  uint          // candidates kept per node
	cache  *cache
}

func MakeEngine(c *conf.Conf) *Engine {
	return &Engine{
		depth:  c.AIDepth,
		budget: c.AITimeout,
		width:  c.AICandidates,
		cache:  makeCache(c.AICacheSize),
	}
}

func (e *Engine) String() string { return fmt.Sprintf("AB%d", e.depth) }

// CacheLen reports the transposition table population.
func (e *Engine) CacheLen() int { return e.cache.table.Len() }

// BestMove picks a move for sym, where number counts the move about
// to be played, starting at one.  A five on the spot is taken or
// denied before anything else, then the opening book has its say,
// then the bounded search.  The move returned is never an occupied
// cell; asking on a full board panics.
func (e *Engine) BestMove(b *gomoku.Board, sym gomoku.Cell, number uint) (gomoku.Position, gomoku.Evaluation) {
	start := time.Now()
	done := func(p gomoku.Position, ev gomoku.Evaluation) (gomoku.Position, gomoku.Evaluation) {
		ev.ElapsedMs = time.Since(start).Milliseconds()
		if b.Validate(p) != nil {
			panic(fmt.Sprintf("Proposing illegal move (%d, %d) for %s given\n%s",
				p.Row, p.Col, sym, b))
		}
		return p, ev
	}

	if p, ok := forced(b, sym); ok {
		return done(p, gomoku.Evaluation{Confidence: 1})
	}
	if p, ok := book(b, sym, number); ok {
		return done(p, gomoku.Evaluation{Confidence: 0.5})
	}

	p, value, nodes, completed := e.search(b, sym, number, start.Add(e.budget))
	if completed == 0 {
		// The clock beat the first level, take the heuristic
		// choice instead.
		return done(rescue(b, number), gomoku.Evaluation{Nodes: nodes, Confidence: 0.5})
	}
	return done(p, gomoku.Evaluation{
		Score:      value,
		Nodes:      nodes,
		Depth:      int(completed),
		Confidence: confidence(completed, e.depth),
	})
}

// rescue is the last resort when the search never finished a level:
// the book scoring over the whole board, opening filters first, any
// free cell if need be.
func rescue(b *gomoku.Board, number uint) gomoku.Position {
	var (
		best  gomoku.Position
		score int
		found bool
	)
	for pass := 0; pass < 2 && !found; pass++ {
		for r := 0; r < gomoku.BoardSize; r++ {
			for c := 0; c < gomoku.BoardSize; c++ {
				p := gomoku.Position{Row: r, Col: c}
				if b.Get(p) != gomoku.Empty {
					continue
				}
				if pass == 0 && !allowed(p, number) {
					continue
				}
				s := 10 - manhattan(p, center) + 2*neighbours(b, p)
				if !found || s > score {
					best, score, found = p, s, true
				}
			}
		}
	}
	if !found {
		panic("Unexpected final state")
	}
	return best
}

// confidence folds the level the search finished into the band above
// a coin toss.
func confidence(completed, configured uint) float64 {
	if configured == 0 {
		return 0.5
	}
	c := 0.5 + 0.5*float64(completed)/float64(configured)
	if c > 1 {
		c = 1
	}
	return c
}
