// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromTypeCode(t *testing.T) {
	ty, ok := FromTypeCode(CodeI32)
	assert.True(t, ok)
	assert.Equal(t, I32, ty)

	_, ok = FromTypeCode(TypeCode(0x00))
	assert.False(t, ok)
}

func TestFunctionTypeEqual(t *testing.T) {
	a := NewFunctionType([]Type{I32, I64}, []Type{F32})
	b := NewFunctionType([]Type{I32, I64}, []Type{F32})
	c := NewFunctionType([]Type{I32}, []Type{F32})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestFunctionTypeCopiesSlices(t *testing.T) {
	params := []Type{I32}
	ft := NewFunctionType(params, nil)
	params[0] = I64
	assert.Equal(t, I32, ft.Params[0])
}

func TestIsReference(t *testing.T) {
	assert.True(t, FuncRef.IsReference())
	assert.True(t, ExternRef.IsReference())
	assert.True(t, ExceptionRef.IsReference())
	assert.False(t, I32.IsReference())
	assert.False(t, V128.IsReference())
}
