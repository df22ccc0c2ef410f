// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmkit/corewasm/internal/compiletest"
	"github.com/wasmkit/corewasm/wasmcore"
)

func newTestStore(t *testing.T) *wasmcore.Store {
	t.Helper()
	engine := wasmcore.NewEngine(compiletest.New())
	s, err := wasmcore.NewStore(context.Background(), engine)
	require.NoError(t, err)
	return s
}

func TestStoreIDsAreUniqueAndNeverReused(t *testing.T) {
	a := newTestStore(t)
	b := newTestStore(t)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.False(t, wasmcore.Same(a, b))

	c := newTestStore(t)
	assert.True(t, wasmcore.Same(a, a))
	assert.NotEqual(t, b.ID(), c.ID())
}

func TestStoreClose(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Close(context.Background()))
}

func TestEngineTagAndFeatures(t *testing.T) {
	engine := wasmcore.NewEngine(compiletest.New())
	assert.Equal(t, "native", engine.Tag().String())
	assert.True(t, engine.Features()["baseline"])
}
