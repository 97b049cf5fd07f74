// Configuration specification
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
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

const defconf = "gomoku.toml"

func init() {
	flag.StringVar(&cfile, "conf", cfile, "Path to configuration file")
	flag.BoolVar(&dump, "dump-config", dump, "Dump effective configuration to standard output")
	flag.BoolVar(&debug, "debug", debug, "Force debug logging")
}

var (
	cfile = defconf
	dump  = false
	debug = false
)

// On-disk representation.  Durations are spelled in the unit noted on
// each field so the file stays hand-editable.
type conf struct {
	LogLevel string `toml:"log-level"`
	Server   struct {
		Port        uint     `toml:"port"`
		WebhookPort uint     `toml:"webhook-port"`
		Production  bool     `toml:"production"`
		Origins     []string `toml:"origins"`
	} `toml:"server"`
	AI struct {
		Depth      uint `toml:"depth"`
		Timeout    uint `toml:"timeout"` // milliseconds
		Candidates uint `toml:"candidates"`
		CacheSize  uint `toml:"cache-size"`
	} `toml:"ai"`
	Socket struct {
		Ping       uint `toml:"ping"` // seconds
		Buffer     uint `toml:"buffer"`
		MoveDelay  uint `toml:"move-delay"`  // milliseconds
		ThinkDelay uint `toml:"think-delay"` // milliseconds
	} `toml:"socket"`
	Room struct {
		TTL    uint `toml:"ttl"`    // minutes
		Linger uint `toml:"linger"` // minutes
		Sweep  uint `toml:"sweep"`  // minutes
	} `toml:"room"`
	Rate struct {
		Limit float64 `toml:"limit"` // requests per second per client
		Burst uint    `toml:"burst"`
	} `toml:"rate"`
	Webhook struct {
		SignatureKey string `toml:"signature-key"`
	} `toml:"webhook"`
}

// Public configuration
type Conf struct {
	LogLevel string

	// Server configuration
	Port        uint16 // Game API and socket listener
	WebhookPort uint16 // Operator bus listener, may equal Port
	Production  bool   // Strict origin and error detail handling
	Origins     []string

	// Engine configuration
	AIDepth      uint
	AITimeout    time.Duration
	AICandidates uint
	AICacheSize  uint

	// Socket fan-out configuration
	PingInterval time.Duration // Keepalive cadence, stale at twice this
	SendBuffer   uint          // Outbound messages queued per socket
	MoveDelay    time.Duration // Pause between move_made and ai_thinking
	ThinkDelay   time.Duration // Pause between ai_thinking and ai_move

	// Room lifecycle
	RoomTTL    time.Duration // Auto-reap deadline for fresh rooms
	RoomLinger time.Duration // Grace for decided games
	Sweep      time.Duration // Reaper cadence

	// Rate limiting
	RateLimit float64
	RateBurst uint

	// Operator bus
	SignatureKey string
}

// Configuration used when the file and environment are silent
var defaultConf = func() (c conf) {
	c.LogLevel = "info"
	c.Server.Port = 3000
	c.Server.WebhookPort = 3000
	c.AI.Depth = 6
	c.AI.Timeout = 1000
	c.AI.Candidates = 12
	c.AI.CacheSize = 100_000
	c.Socket.Ping = 60
	c.Socket.Buffer = 32
	c.Socket.MoveDelay = 150
	c.Socket.ThinkDelay = 400
	c.Room.TTL = 120
	c.Room.Linger = 5
	c.Room.Sweep = 5
	c.Rate.Limit = 20
	c.Rate.Burst = 40
	return c
}()

func (data *conf) public() *Conf {
	return &Conf{
		LogLevel:     data.LogLevel,
		Port:         uint16(data.Server.Port),
		WebhookPort:  uint16(data.Server.WebhookPort),
		Production:   data.Server.Production,
		Origins:      data.Server.Origins,
		AIDepth:      data.AI.Depth,
		AITimeout:    time.Duration(data.AI.Timeout) * time.Millisecond,
		AICandidates: data.AI.Candidates,
		AICacheSize:  data.AI.CacheSize,
		PingInterval: time.Duration(data.Socket.Ping) * time.Second,
		SendBuffer:   data.Socket.Buffer,
		MoveDelay:    time.Duration(data.Socket.MoveDelay) * time.Millisecond,
		ThinkDelay:   time.Duration(data.Socket.ThinkDelay) * time.Millisecond,
		RoomTTL:      time.Duration(data.Room.TTL) * time.Minute,
		RoomLinger:   time.Duration(data.Room.Linger) * time.Minute,
		Sweep:        time.Duration(data.Room.Sweep) * time.Minute,
		RateLimit:    data.Rate.Limit,
		RateBurst:    data.Rate.Burst,
		SignatureKey: data.Webhook.SignatureKey,
	}
}

func (c *Conf) private() (data conf) {
	data.LogLevel = c.LogLevel
	data.Server.Port = uint(c.Port)
	data.Server.WebhookPort = uint(c.WebhookPort)
	data.Server.Production = c.Production
	data.Server.Origins = c.Origins
	data.AI.Depth = c.AIDepth
	data.AI.Timeout = uint(c.AITimeout / time.Millisecond)
	data.AI.Candidates = c.AICandidates
	data.AI.CacheSize = c.AICacheSize
	data.Socket.Ping = uint(c.PingInterval / time.Second)
	data.Socket.Buffer = c.SendBuffer
	data.Socket.MoveDelay = uint(c.MoveDelay / time.Millisecond)
	data.Socket.ThinkDelay = uint(c.ThinkDelay / time.Millisecond)
	data.Room.TTL = uint(c.RoomTTL / time.Minute)
	data.Room.Linger = uint(c.RoomLinger / time.Minute)
	data.Room.Sweep = uint(c.Sweep / time.Minute)
	data.Rate.Limit = c.RateLimit
	data.Rate.Burst = c.RateBurst
	data.Webhook.SignatureKey = c.SignatureKey
	return data
}

// fromEnv overlays the deployment contract onto the configuration.
// Environment variables always win over the file.
func (c *Conf) fromEnv() {
	if v, ok := os.LookupEnv("PORT"); ok {
		if p, err := strconv.ParseUint(v, 10, 16); err == nil {
			c.Port = uint16(p)
			if _, ok := os.LookupEnv("WEBHOOK_PORT"); !ok {
				c.WebhookPort = uint16(p)
			}
		}
	}
	if v, ok := os.LookupEnv("WEBHOOK_PORT"); ok {
		if p, err := strconv.ParseUint(v, 10, 16); err == nil {
			c.WebhookPort = uint16(p)
		}
	}
	if v, ok := os.LookupEnv("NODE_ENV"); ok {
		c.Production = v == "production"
	}
	origins := os.Getenv("ALLOWED_ORIGINS")
	if origins == "" {
		origins = os.Getenv("CORS_ORIGIN")
	}
	if origins != "" {
		c.Origins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Origins = append(c.Origins, o)
			}
		}
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv("SQUARE_WEBHOOK_SIGNATURE_KEY"); ok {
		c.SignatureKey = v
	}
}
