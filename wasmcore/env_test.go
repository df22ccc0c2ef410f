// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmkit/corewasm/wasmcore"
	"github.com/wasmkit/corewasm/wasmerr"
)

type counterEnv struct{ n int }

func TestFunctionEnvGetSet(t *testing.T) {
	s := newTestStore(t)
	env := wasmcore.NewFunctionEnv(s.AsMut(), &counterEnv{n: 1})

	v, err := env.AsRef(s.AsRef())
	require.NoError(t, err)
	assert.Equal(t, 1, v.n)

	guard, err := env.AsMut(s.AsMut())
	require.NoError(t, err)
	guard.Get().n = 2
	guard.Set(&counterEnv{n: 3})

	v, err = env.AsRef(s.AsRef())
	require.NoError(t, err)
	assert.Equal(t, 3, v.n)
}

func TestFunctionEnvWrongStore(t *testing.T) {
	s1 := newTestStore(t)
	s2 := newTestStore(t)
	env := wasmcore.NewFunctionEnv(s1.AsMut(), &counterEnv{n: 1})

	_, err := env.AsRef(s2.AsRef())
	assert.ErrorIs(t, err, wasmerr.BadHandle)

	_, err = env.AsMut(s2.AsMut())
	assert.ErrorIs(t, err, wasmerr.BadHandle)
}

func TestFunctionEnvMutExposesStoreBorrow(t *testing.T) {
	s := newTestStore(t)
	env := wasmcore.NewFunctionEnv(s.AsMut(), &counterEnv{n: 0})
	guard, err := env.AsMut(s.AsMut())
	require.NoError(t, err)
	mut := guard.Mut()
	assert.Equal(t, env, guard.Env())
	_ = mut
}
