// Shared logging
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

import "k8s.io/klog/v2"

// Debug and Debugf log chatty diagnostics.  They are discarded unless
// the log level is set to debug, which maps to klog verbosity 1.

func Debug(args ...any) {
	if klog.V(1).Enabled() {
		klog.InfoDepth(1, args...)
	}
}

func Debugf(format string, args ...any) {
	if klog.V(1).Enabled() {
		klog.InfofDepth(1, format, args...)
	}
}
