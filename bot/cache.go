// Transposition cache
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
	lru "github.com/hashicorp/golang-lru/v2"

	gomoku "github.com/DereckAn/Websocket-Server-sub001"
)

// bound classifies a cached value relative to the window it was
// searched under.
type bound uint8

const (
	boundExact bound = iota
	boundLower
	boundUpper
)

type entry struct {
	value int
	reply gomoku.Position
	depth uint
	flag  bound
}

// cache remembers recent search results keyed by the position
// fingerprint folded with the side to move.  The LRU bound keeps it
// from growing without limit across games; one cache serves every
// concurrent search.
type cache struct {
	table *lru.Cache[uint64, entry]
}

func makeCache(size uint) *cache {
	table, err := lru.New[uint64, entry](int(size))
	if err != nil {
		panic(err) // only a non-positive size fails
	}
	return &cache{table: table}
}

func (c *cache) probe(key uint64) (entry, bool) {
	return c.table.Get(key)
}

func (c *cache) store(key uint64, ent entry) {
	c.table.Add(key, ent)
}

// The fingerprint tables.  A fixed seed keeps fingerprints stable
// across runs, which keeps the engine reproducible.
var (
	zobrist [gomoku.BoardSize][gomoku.BoardSize][4]uint64
	sideKey [4]uint64
)

func init() {
	seed := uint64(0x643f95d1b2a8c4e7)
	for r := range zobrist {
		for c := range zobrist[r] {
			for s := range zobrist[r][c] {
				zobrist[r][c][s] = splitmix(&seed)
			}
		}
	}
	for s := range sideKey {
		sideKey[s] = splitmix(&seed)
	}
}

// splitmix steps the seed and returns the next table value.
func splitmix(x *uint64) uint64 {
	*x += 0x9e3779b97f4a7c15
	z := *x
	z = (z ^ z>>30) * 0xbf58476d1ce4e5b9
	z = (z ^ z>>27) * 0x94d049bb133111eb
	return z ^ z>>31
}

// fingerprint hashes a full board.  The search maintains the hash
// incrementally and calls this once per move.
func fingerprint(b *gomoku.Board) uint64 {
	var h uint64
	for r := 0; r < gomoku.BoardSize; r++ {
		for c := 0; c < gomoku.BoardSize; c++ {
			if s := b[r][c]; s != gomoku.Empty {
				h ^= zobrist[r][c][s-1]
			}
		}
	}
	return h
}

// key folds the side to move into a board fingerprint.
func key(h uint64, side gomoku.Cell) uint64 {
	return h ^ sideKey[side-1]
}
