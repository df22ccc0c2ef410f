// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTrap(t *testing.T) {
	e := NewTrap(TrapIntegerDivideByZero, "division by zero")
	assert.Equal(t, TrapIntegerDivideByZero, e.Code)
	assert.Contains(t, e.Error(), "int_divz")
	assert.Contains(t, e.Error(), "division by zero")
}

func TestUserTrapWrapsSource(t *testing.T) {
	cause := errors.New("host failure")
	e := UserTrap(cause)
	assert.Equal(t, TrapUncaughtException, e.Code)
	assert.True(t, errors.Is(e, cause))
}

func TestWithBacktraceChains(t *testing.T) {
	e := NewTrap(TrapStackOverflow, "")
	frames := []FrameInfo{{FuncName: "main"}}
	got := e.WithBacktrace(frames)
	assert.Same(t, e, got)
	assert.Equal(t, frames, e.Backtrace)
}

func TestTrapCodeString(t *testing.T) {
	assert.Equal(t, "unreachable", TrapUnreachable.String())
	assert.Equal(t, "cancelled", TrapCancelled.String())
	assert.Equal(t, "none", TrapNone.String())
}
