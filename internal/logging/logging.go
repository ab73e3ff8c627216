// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logging hands out per-component structured loggers so that
// zone, history, store, merge and exchange all log through the same
// sink with a "component" field, instead of each importing logrus
// directly.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// For returns the logger for the named component, e.g. "zone", "history".
func For(component string) *logrus.Entry {
	return base.WithField("component", component)
}

// SetLevel adjusts verbosity for all components; used by cmd/llvsctl's
// -v flag.
func SetLevel(level logrus.Level) {
	base.SetLevel(level)
}
