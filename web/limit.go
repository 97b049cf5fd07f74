// Request throttling
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

package web

import (
	"net"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/DereckAn/Websocket-Server-sub001/conf"
)

// clients caps the limiter table.  Evicting an entry merely refills
// that client's allowance, so the cap needs no tuning beyond memory.
const clients = 4096

// limiter keeps one token bucket per client address.
type limiter struct {
	rate  rate.Limit
	burst int
	seen  *lru.Cache[string, *rate.Limiter]
}

func makeLimiter(c *conf.Conf) *limiter {
	seen, err := lru.New[string, *rate.Limiter](clients)
	if err != nil {
		panic(err)
	}
	return &limiter{
		rate:  rate.Limit(c.RateLimit),
		burst: int(c.RateBurst),
		seen:  seen,
	}
}

// allow debits one request from the address' bucket.  Two first
// requests racing may both mint a bucket; the loser's token is the
// only thing lost.
func (l *limiter) allow(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	lim, ok := l.seen.Get(host)
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.seen.Add(host, lim)
	}
	return lim.Allow()
}
