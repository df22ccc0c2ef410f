// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmkit/corewasm/internal/backend"
	"github.com/wasmkit/corewasm/wasmcore"
	"github.com/wasmkit/corewasm/wasmerr"
	"github.com/wasmkit/corewasm/wasmtype"
)

func TestExportsGetIncompatibleType(t *testing.T) {
	s := newTestStore(t)
	var logFn *wasmcore.Function
	logFn, err := wasmcore.NewFunction(s.AsMut(), logFT, func(ctx context.Context, args []wasmtype.Value) ([]wasmtype.Value, error) {
		return nil, nil
	})
	require.NoError(t, err)

	imports := wasmcore.NewImports().Define("env", "log", wasmcore.Extern{Kind: wasmtype.KindFunction, Function: logFn})
	mod := wasmcore.WrapModule(backend.Native, forwardingModule())
	inst, err := wasmcore.NewInstance(context.Background(), s.AsMut(), mod, imports)
	require.NoError(t, err)

	_, err = inst.Exports().GetMemory("run")
	var ee *wasmerr.ExportError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, wasmerr.ExportIncompatibleType, ee.Kind)

	_, err = inst.Exports().GetFunction("missing")
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, wasmerr.ExportNotFound, ee.Kind)
}
