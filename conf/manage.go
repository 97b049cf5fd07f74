// Runtime lifecycle management
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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"
)

// Manager is a subsystem with a lifecycle: the registry, the fan-out,
// the listeners, the reaper.  Start is invoked on its own goroutine
// and may block until shutdown.
type Manager interface {
	fmt.Stringer
	Start(*State, *Conf)
	Shutdown()
}

// State is the shared runtime value.  It is constructed once in main
// and passed to every manager; there is no other process-wide state.
type State struct {
	Context context.Context
	Kill    context.CancelFunc

	Running  bool
	Managers []Manager
}

func MakeState() *State {
	ctx, kill := context.WithCancel(context.Background())
	return &State{
		Context: ctx,
		Kill:    kill,
	}
}

func (st *State) Register(m Manager) {
	if st.Running {
		panic(fmt.Sprintf("Late register: %#v", m))
	}
	st.Managers = append(st.Managers, m)
}

// Start launches every registered manager and blocks until a shutdown
// is requested by signal or context.  Managers are shut down in
// reverse registration order; a second signal abandons the wait.
func (st *State) Start(c *Conf) {
	for _, m := range st.Managers {
		klog.V(1).Infof("Starting %s", m)
		go m.Start(st, c)
	}
	st.Running = true

	intr := make(chan os.Signal, 1)
	signal.Notify(intr, os.Interrupt, syscall.SIGTERM)
	select {
	case <-intr:
		klog.Info("Caught interrupt")
	case <-st.Context.Done():
		klog.Info("Requested shutdown")
	}
	st.Kill()

	done := make(chan struct{})
	go func() {
		for i := len(st.Managers) - 1; i >= 0; i-- {
			m := st.Managers[i]
			klog.V(1).Infof("Shutting %s down", m)
			m.Shutdown()
		}
		done <- struct{}{}
	}()

	select {
	case <-intr:
		klog.Warning("Forced shutdown")
	case <-done:
		klog.Info("Shut down regularly")
	}
}
