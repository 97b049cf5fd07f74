// Operator bus tests
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

package ops

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gomoku "github.com/DereckAn/Websocket-Server-sub001"
	"github.com/DereckAn/Websocket-Server-sub001/conf"
	"github.com/DereckAn/Websocket-Server-sub001/sess"
)

const (
	key  = "whsec_0e1f2a3b"
	hook = "https://pos.example.com/webhooks/square"

	created = `{"merchant_id":"M5XYQ","type":"order.created","event_id":"4b8f5a2e-0001-4c11-9d7e-aa31e0d8a3f1","created_at":"2026-03-01T17:04:05Z","data":{"type":"order","id":"ORD-1042","object":{"order_created":{"state":"OPEN","location_id":"L1","version":1}}}}`
	// base64(hmac-sha256(key, hook || created))
	createdSig = "e0754Q/lVa8mW2zG9wzFVI7Z5ZFUerDTL2Qs6sM8jIM="
)

func fixture(k string) (*Bus, *sess.Registry) {
	c := conf.Default()
	c.SignatureKey = k
	reg := sess.MakeRegistry()
	return MakeBus(reg, c), reg
}

func subscribe(reg *sess.Registry) *sess.Socket {
	s := sess.MakeSocket(sess.OperatorChannel, "", "", 8)
	reg.Attach(s)
	return s
}

func sign(k, url string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(k))
	mac.Write([]byte(url))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerify(t *testing.T) {
	b, _ := fixture(key)

	assert.True(t, b.Verify(hook, []byte(created), createdSig))
	assert.True(t, b.Verify(hook, []byte(created), sign(key, hook, []byte(created))))

	assert.False(t, b.Verify(hook, []byte(created), ""))
	assert.False(t, b.Verify(hook, []byte(created+" "), createdSig))
	assert.False(t, b.Verify(hook+"/", []byte(created), createdSig))
	assert.False(t, b.Verify(hook, []byte(created), sign("wrong", hook, []byte(created))))

	// The URL is part of the signed text, not a separate input.
	swapped := sign(key, created, []byte(hook))
	assert.False(t, b.Verify(hook, []byte(created), swapped))

	noKey, _ := fixture("")
	assert.False(t, noKey.Verify(hook, []byte(created), sign("", hook, []byte(created))))
}

func TestIngestOrderCreated(t *testing.T) {
	b, reg := fixture(key)
	sub := subscribe(reg)

	require.NoError(t, b.Ingest(hook, []byte(created), createdSig))

	ev, ok := sub.Pop()
	require.True(t, ok)
	assert.Equal(t, EvNewOrder, ev.Type)
	p, ok := ev.Data.(OrderPayload)
	require.True(t, ok)
	assert.Equal(t, "ORD-1042", p.OrderId)
	assert.Equal(t, "M5XYQ", p.MerchantId)
	assert.Equal(t, "OPEN", p.State)
	assert.Equal(t, "L1", p.LocationId)
	assert.Equal(t, 1, p.Version)
	_, ok = sub.Pop()
	assert.False(t, ok)
}

func TestIngestOrderUpdated(t *testing.T) {
	b, reg := fixture(key)
	sub := subscribe(reg)

	body := []byte(`{"merchant_id":"M5XYQ","type":"order.updated","event_id":"e2","data":{"type":"order","id":"ORD-1042","object":{"order_updated":{"state":"COMPLETED","location_id":"L1","version":3}}}}`)
	require.NoError(t, b.Ingest(hook, body, sign(key, hook, body)))

	ev, ok := sub.Pop()
	require.True(t, ok)
	assert.Equal(t, EvOrderUpdated, ev.Type)
	p := ev.Data.(OrderPayload)
	assert.Equal(t, "COMPLETED", p.State)
	assert.Equal(t, 3, p.Version)
}

func TestIngestRejections(t *testing.T) {
	b, reg := fixture(key)
	sub := subscribe(reg)

	err := b.Ingest(hook, []byte(created), "bogus")
	assert.ErrorIs(t, err, gomoku.ErrForbidden)

	err = b.Ingest(hook, []byte("{"), "")
	assert.ErrorIs(t, err, gomoku.ErrBadRequest)

	_, ok := sub.Pop()
	assert.False(t, ok)
}

func TestIngestTestBypassesSignature(t *testing.T) {
	b, reg := fixture(key)
	one := subscribe(reg)
	two := subscribe(reg)

	game := sess.MakeSocket(sess.GameChannel, "ABC123", "p1", 8)
	reg.Attach(game)

	body := []byte(`{"type":"test","event_id":"probe-7","data":{}}`)
	require.NoError(t, b.Ingest(hook, body, ""))

	for _, sub := range []*sess.Socket{one, two} {
		ev, ok := sub.Pop()
		require.True(t, ok)
		assert.Equal(t, EvTestEvent, ev.Type)
		assert.Equal(t, "probe-7", ev.Data.(TestPayload).EventId)
	}

	// Game sockets are not on this bus.
	_, ok := game.Pop()
	assert.False(t, ok)
}

func TestIngestUnknownKind(t *testing.T) {
	b, reg := fixture(key)
	sub := subscribe(reg)

	body := []byte(`{"merchant_id":"M5XYQ","type":"payment.created","event_id":"e9","data":{}}`)
	require.NoError(t, b.Ingest(hook, body, sign(key, hook, body)))

	_, ok := sub.Pop()
	assert.False(t, ok)
}

func TestGreet(t *testing.T) {
	b, reg := fixture(key)
	sub := subscribe(reg)
	b.Greet(sub)

	ev, ok := sub.Pop()
	require.True(t, ok)
	assert.Equal(t, EvConnected, ev.Type)
	assert.NotEmpty(t, ev.Data.(HelloPayload).Message)
}
