// Operator bus
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
	"encoding/json"
	"time"

	gomoku "github.com/DereckAn/Websocket-Server-sub001"
	"github.com/DereckAn/Websocket-Server-sub001/conf"
	"github.com/DereckAn/Websocket-Server-sub001/sess"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Operator channel message types.  The set is disjoint from the game
// channel; ping and error reuse the root package constants.
const (
	EvConnected    gomoku.EventType = "connected"
	EvNewOrder     gomoku.EventType = "new-order"
	EvOrderUpdated gomoku.EventType = "order-updated"
	EvTestEvent    gomoku.EventType = "test-event"
)

// Notification is the slice of a Square webhook delivery the bus
// cares about.
type Notification struct {
	MerchantId string    `json:"merchant_id"`
	Type       string    `json:"type"`
	EventId    string    `json:"event_id"`
	CreatedAt  time.Time `json:"created_at"`
	Data       struct {
		Type   string `json:"type"`
		Id     string `json:"id"`
		Object struct {
			OrderCreated *OrderState `json:"order_created"`
			OrderUpdated *OrderState `json:"order_updated"`
		} `json:"object"`
	} `json:"data"`
}

// OrderState carries the order fields surfaced to operators.
type OrderState struct {
	State      string `json:"state"`
	LocationId string `json:"location_id"`
	Version    int    `json:"version"`
}

// Payload variants of the operator messages.
type (
	OrderPayload struct {
		OrderId    string    `json:"orderId"`
		MerchantId string    `json:"merchantId"`
		EventId    string    `json:"eventId"`
		State      string    `json:"state,omitempty"`
		LocationId string    `json:"locationId,omitempty"`
		Version    int       `json:"version,omitempty"`
		CreatedAt  time.Time `json:"createdAt"`
	}

	HelloPayload struct {
		Message string    `json:"message"`
		Server  time.Time `json:"serverTime"`
	}

	TestPayload struct {
		Message string `json:"message"`
		EventId string `json:"eventId,omitempty"`
	}
)

// Bus verifies signed order notifications and repeats them to every
// operator socket.  It shares the registry with the game runtime but
// nothing else; operator sockets live outside every room.
type Bus struct {
	reg *sess.Registry
	key []byte
}

func MakeBus(reg *sess.Registry, c *conf.Conf) *Bus {
	if c.SignatureKey == "" {
		klog.Warning("No webhook signature key, only test deliveries will pass")
	}
	return &Bus{reg: reg, key: []byte(c.SignatureKey)}
}

// Verify checks a webhook signature, the base64 HMAC-SHA256 over the
// notification URL immediately followed by the raw body.  Without a
// configured key nothing verifies.
func (b *Bus) Verify(url string, body []byte, sig string) bool {
	if len(b.key) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, b.key)
	mac.Write([]byte(url))
	mac.Write(body)
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(sig))
}

// Ingest handles one webhook delivery: authenticate, parse, map, and
// repeat to the operators.  Test deliveries skip authentication so
// connectivity can be probed before a key is exchanged.  Deliveries
// of kinds the bus does not know are acknowledged and dropped, which
// keeps upstream from retrying them forever.
func (b *Bus) Ingest(url string, body []byte, sig string) error {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return errors.Wrap(gomoku.ErrBadRequest, err.Error())
	}
	if n.Type != "test" && !b.Verify(url, body, sig) {
		return errors.Wrap(gomoku.ErrForbidden, "signature mismatch")
	}

	var ev gomoku.Event
	switch n.Type {
	case "test":
		ev = gomoku.MakeEvent(EvTestEvent, "", "", TestPayload{
			Message: "webhook connectivity verified",
			EventId: n.EventId,
		})
	case "order.created":
		ev = gomoku.MakeEvent(EvNewOrder, "", "",
			summarize(&n, n.Data.Object.OrderCreated))
	case "order.updated":
		ev = gomoku.MakeEvent(EvOrderUpdated, "", "",
			summarize(&n, n.Data.Object.OrderUpdated))
	default:
		gomoku.Debugf("Ignoring %q delivery %s", n.Type, n.EventId)
		return nil
	}

	// A slow consumer sheds by its own queue policy and never holds
	// the others up.
	subs := b.reg.Operators()
	gomoku.Debugf("Repeating %s to %d operators", ev.Type, len(subs))
	for _, s := range subs {
		s.Send(ev)
	}
	return nil
}

// Greet hands a fresh operator socket its hello.
func (b *Bus) Greet(s *sess.Socket) {
	s.Send(gomoku.MakeEvent(EvConnected, "", "", HelloPayload{
		Message: "operator channel attached",
		Server:  time.Now(),
	}))
}

func summarize(n *Notification, st *OrderState) OrderPayload {
	p := OrderPayload{
		OrderId:    n.Data.Id,
		MerchantId: n.MerchantId,
		EventId:    n.EventId,
		CreatedAt:  n.CreatedAt,
	}
	if st != nil {
		p.State = st.State
		p.LocationId = st.LocationId
		p.Version = st.Version
	}
	return p
}
