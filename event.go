// Socket message envelope
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

import "time"

// EventType tags every outbound socket message.  The game channel
// uses the constants below; the operator bus brings its own disjoint
// set.
type EventType string

const (
	EvGameCreated    EventType = "game_created"
	EvPlayerJoined   EventType = "player_joined"
	EvPlayerLeft     EventType = "player_left"
	EvMoveMade       EventType = "move_made"
	EvMoveProcessing EventType = "move_processing"
	EvAIThinking     EventType = "ai_thinking"
	EvAIMove         EventType = "ai_move"
	EvStateUpdate    EventType = "game_state_update"
	EvGameOver       EventType = "game_over"
	EvGameReset      EventType = "game_reset"
	EvRoomClosed     EventType = "room_closed"
	EvError          EventType = "error"
	EvPing           EventType = "ping"
	EvPong           EventType = "pong"
)

// Terminal message types may never be dropped by backpressure; a
// socket that cannot take one is force-closed instead.
func (t EventType) Terminal() bool {
	switch t {
	case EvGameOver, EvRoomClosed, EvError:
		return true
	default:
		return false
	}
}

// Event is the envelope of every outbound socket message.
type Event struct {
	Type      EventType `json:"type"`
	GameId    string    `json:"gameId,omitempty"`
	RoomId    string    `json:"roomId,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func MakeEvent(t EventType, roomId, gameId string, data any) Event {
	return Event{
		Type:      t,
		RoomId:    roomId,
		GameId:    gameId,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// Evaluation summarises one engine search for the ai_move payload.
type Evaluation struct {
	Score      int     `json:"score"`
	Nodes      int     `json:"nodes"`
	Depth      int     `json:"depth"`
	ElapsedMs  int64   `json:"elapsedMs"`
	Confidence float64 `json:"confidence"`
}

// Payload variants carried in Event.Data, one per message kind.
type (
	MoveProcessingPayload struct {
		Player string `json:"playerId"`
	}

	MovePayload struct {
		Move Move  `json:"move"`
		Game *Game `json:"game"`
	}

	ThinkingPayload struct {
		Symbol Cell `json:"symbol"`
	}

	AIMovePayload struct {
		Move       Move       `json:"move"`
		Evaluation Evaluation `json:"evaluation"`
		Game       *Game      `json:"game"`
	}

	GameOverPayload struct {
		Winner       string     `json:"winner"`
		FinalMessage string     `json:"finalMessage"`
		Line         []Position `json:"winningLine,omitempty"`
		Stats        *WinStats  `json:"stats,omitempty"`
	}

	StatePayload struct {
		Game *Game `json:"game"`
	}

	PlayerJoinedPayload struct {
		Player *Player `json:"player"`
		Game   *Game   `json:"game"`
	}

	PlayerLeftPayload struct {
		Player string `json:"playerId"`
	}

	RoomClosedPayload struct {
		Reason string `json:"reason"`
	}

	ErrorPayload struct {
		Error string `json:"error"`
	}
)
