// Configuration loading and dumping
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
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"k8s.io/klog/v2"
)

// load parses a configuration over the compiled-in defaults, so a
// partial file keeps the remaining settings.
func load(r io.Reader) (*Conf, error) {
	data := defaultConf
	if _, err := toml.NewDecoder(r).Decode(&data); err != nil {
		return nil, err
	}
	return data.public(), nil
}

// Open reads a configuration file.  The environment is not applied.
func Open(name string) (*Conf, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return load(file)
}

// Default returns the compiled-in configuration.
func Default() *Conf {
	data := defaultConf
	return data.public()
}

// Load resolves the effective configuration for the process: defaults,
// overlaid by the -conf file when one exists, overlaid by the
// environment, adjusted by flags.  Invoked once from main after flag
// parsing.
func Load() *Conf {
	var (
		c   *Conf
		err error
	)
	c, err = Open(cfile)
	switch {
	case err == nil:
	case os.IsNotExist(err) && cfile == defconf:
		// Running without the default file is fine
		c = Default()
	default:
		klog.Fatalf("Cannot read configuration %s: %v", cfile, err)
	}

	c.fromEnv()
	if debug {
		c.LogLevel = "debug"
	}
	c.setupLogging()

	if dump {
		if err := c.Dump(os.Stdout); err != nil {
			klog.Fatalf("Cannot dump configuration: %v", err)
		}
		os.Exit(0)
	}
	return c
}

// Dump serialises the configuration into a writer, in the same shape
// Load reads back.
func (c *Conf) Dump(wr io.Writer) error {
	data := c.private()
	return toml.NewEncoder(wr).Encode(data)
}

// setupLogging maps the log level onto klog.  Debug turns on the
// verbose traces, warn and error reroute the full stream away from
// stderr since klog only filters stderr when it is a secondary sink.
func (c *Conf) setupLogging() {
	fs := flag.NewFlagSet("klog", flag.PanicOnError)
	klog.InitFlags(fs)
	set := func(name, value string) {
		if err := fs.Set(name, value); err != nil {
			klog.Errorf("Cannot set -%s=%s: %v", name, value, err)
		}
	}
	switch c.LogLevel {
	case "debug":
		set("v", "1")
	case "", "info":
	case "warn":
		set("logtostderr", "false")
		set("log_file", os.DevNull)
		set("stderrthreshold", "WARNING")
	case "error":
		set("logtostderr", "false")
		set("log_file", os.DevNull)
		set("stderrthreshold", "ERROR")
	default:
		klog.Warningf("Unknown log level %q, using info", c.LogLevel)
	}
}
