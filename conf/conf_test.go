// Configuration tests
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

package conf

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()
	require.Equal(t, uint16(3000), c.Port)
	require.Equal(t, uint16(3000), c.WebhookPort)
	require.False(t, c.Production)
	require.Equal(t, time.Second, c.AITimeout)
	require.Equal(t, uint(6), c.AIDepth)
	require.Equal(t, uint(12), c.AICandidates)
	require.Equal(t, time.Minute, c.PingInterval)
	require.Equal(t, 2*time.Hour, c.RoomTTL)
	require.Equal(t, 5*time.Minute, c.RoomLinger)
	require.Equal(t, 5*time.Minute, c.Sweep)
	require.Equal(t, "info", c.LogLevel)
}

func TestLoadPartialFile(t *testing.T) {
	c, err := load(strings.NewReader(`
log-level = "warn"

[server]
port = 4000

[ai]
timeout = 250
`))
	require.NoError(t, err)

	// Named settings override, everything else keeps its default
	require.Equal(t, uint16(4000), c.Port)
	require.Equal(t, 250*time.Millisecond, c.AITimeout)
	require.Equal(t, "warn", c.LogLevel)
	require.Equal(t, uint16(3000), c.WebhookPort)
	require.Equal(t, uint(6), c.AIDepth)
}

func TestLoadBrokenFile(t *testing.T) {
	_, err := load(strings.NewReader(`port == what`))
	require.Error(t, err)
}

func TestEnvOverlay(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , https://b.example ,")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SQUARE_WEBHOOK_SIGNATURE_KEY", "hunter2")

	c := Default()
	c.fromEnv()

	require.Equal(t, uint16(8080), c.Port)
	// The operator bus follows the main port unless split explicitly
	require.Equal(t, uint16(8080), c.WebhookPort)
	require.True(t, c.Production)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, c.Origins)
	require.Equal(t, "debug", c.LogLevel)
	require.Equal(t, "hunter2", c.SignatureKey)
}

func TestEnvSplitPorts(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("WEBHOOK_PORT", "8081")

	c := Default()
	c.fromEnv()
	require.Equal(t, uint16(8080), c.Port)
	require.Equal(t, uint16(8081), c.WebhookPort)
}

func TestEnvCorsFallback(t *testing.T) {
	t.Setenv("CORS_ORIGIN", "https://shop.example")

	c := Default()
	c.fromEnv()
	require.Equal(t, []string{"https://shop.example"}, c.Origins)
}

func TestDumpRoundTrip(t *testing.T) {
	orig := Default()
	orig.Port = 4321
	orig.Origins = []string{"https://a.example"}
	orig.AITimeout = 2 * time.Second

	var buf bytes.Buffer
	require.NoError(t, orig.Dump(&buf))

	back, err := load(&buf)
	require.NoError(t, err)
	require.Equal(t, orig.Port, back.Port)
	require.Equal(t, orig.Origins, back.Origins)
	require.Equal(t, orig.AITimeout, back.AITimeout)
	require.Equal(t, orig.PingInterval, back.PingInterval)
}
