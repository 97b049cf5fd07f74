// Entry point
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

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/DereckAn/Websocket-Server-sub001/bot"
	"github.com/DereckAn/Websocket-Server-sub001/conf"
	"github.com/DereckAn/Websocket-Server-sub001/game"
	"github.com/DereckAn/Websocket-Server-sub001/ops"
	"github.com/DereckAn/Websocket-Server-sub001/sess"
	"github.com/DereckAn/Websocket-Server-sub001/web"
)

func main() {
	flag.Parse()
	if flag.NArg() != 0 {
		fmt.Fprintf(flag.CommandLine.Output(),
			"Too many arguments passed to %s.\nUsage:\n",
			os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Resolve the configuration (defaults, file, environment, flags)
	c := conf.Load()
	st := conf.MakeState()

	// Shared session state and the engine behind every room
	reg := sess.MakeRegistry()
	hub := web.MakeHub(reg)
	orch := game.MakeOrchestrator(reg, bot.MakeEngine(c), hub, c)
	bus := ops.MakeBus(reg, c)

	// Collect idle rooms and dead sockets
	st.Register(sess.MakeReaper(reg, orch.CloseRoom))

	// Enable the web interface
	web.Prepare(st, c, reg, orch, bus)

	// Launch the server
	st.Start(c)
}
