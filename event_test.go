// Message envelope tests
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
	"testing"
)

func TestTerminalTypes(t *testing.T) {
	for i, test := range []struct {
		ev       EventType
		terminal bool
	}{
		{EvGameOver, true},
		{EvRoomClosed, true},
		{EvError, true},
		{EvMoveMade, false},
		{EvAIThinking, false},
		{EvAIMove, false},
		{EvStateUpdate, false},
		{EvPing, false},
		{EvPong, false},
	} {
		if test.ev.Terminal() != test.terminal {
			t.Errorf("[%d] %s.Terminal() = %v", i, test.ev, !test.terminal)
		}
	}
}

func TestEventEnvelope(t *testing.T) {
	ev := MakeEvent(EvMoveMade, "ABC123", "game-1", MovePayload{
		Move: Move{Position: Position{7, 7}, Symbol: X, Number: 1},
	})
	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	if m["type"] != "move_made" || m["roomId"] != "ABC123" || m["gameId"] != "game-1" {
		t.Errorf("envelope off the wire: %v", m)
	}
	if _, ok := m["timestamp"]; !ok {
		t.Error("envelope missing the timestamp")
	}
	data, ok := m["data"].(map[string]any)
	if !ok {
		t.Fatalf("data = %v", m["data"])
	}
	move := data["move"].(map[string]any)
	if move["row"] != float64(7) || move["col"] != float64(7) || move["symbol"] != "X" {
		t.Errorf("move payload off the wire: %v", move)
	}

	// Optional identifiers stay off the wire when blank
	raw, err = json.Marshal(MakeEvent(EvPing, "", "", nil))
	if err != nil {
		t.Fatal(err)
	}
	m = map[string]any{} // Unmarshal keeps entries already in the map
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["roomId"]; ok {
		t.Error("blank roomId serialised")
	}
	if _, ok := m["gameId"]; ok {
		t.Error("blank gameId serialised")
	}
}
