// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestPrettyFormatterNoFields(t *testing.T) {
	f := &prettyFormatter{}
	e := &logrus.Entry{Level: logrus.InfoLevel, Message: "hello"}
	out, err := f.Format(e)
	assert.NoError(t, err)
	assert.Equal(t, "[INFO] hello\n\n", string(out))
}

func TestPrettyFormatterBasicFields(t *testing.T) {
	f := &prettyFormatter{}
	e := &logrus.Entry{
		Level:   logrus.ErrorLevel,
		Message: "boom",
		Data:    logrus.Fields{"code": 42},
	}
	out, err := f.Format(e)
	assert.NoError(t, err)
	assert.Contains(t, string(out), "[ERROR] boom\n")
	assert.Contains(t, string(out), "code = 42")
}

func TestPrettyFormatterMultilineStringFields(t *testing.T) {
	f := &prettyFormatter{}
	e := &logrus.Entry{
		Level:   logrus.DebugLevel,
		Message: "trace",
		Data:    logrus.Fields{"stack": "line one\nline two"},
	}
	out, err := f.Format(e)
	assert.NoError(t, err)
	assert.Contains(t, string(out), "stack = |\n")
	assert.Contains(t, string(out), "line one")
	assert.Contains(t, string(out), "line two")
}

func TestPrettyFormatterMultilineJSONFields(t *testing.T) {
	f := &prettyFormatter{}
	e := &logrus.Entry{
		Level:   logrus.InfoLevel,
		Message: "payload",
		Data:    logrus.Fields{"body": `{"a":1,"b":2}`},
	}
	out, err := f.Format(e)
	assert.NoError(t, err)
	assert.Contains(t, string(out), "body = |\n")
	assert.Contains(t, string(out), `"a": 1`)
}

func TestGetLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"":      logrus.InfoLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
	}
	for in, want := range cases {
		got, err := GetLevel(in)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := GetLevel("bogus")
	assert.Error(t, err)
}

func TestGetFormatter(t *testing.T) {
	assert.IsType(t, &prettyFormatter{}, GetFormatter("text", ""))
	assert.IsType(t, &logrus.JSONFormatter{}, GetFormatter("json", ""))
	jf := GetFormatter("json-pretty", "")
	assert.IsType(t, &logrus.JSONFormatter{}, jf)
	assert.True(t, jf.(*logrus.JSONFormatter).PrettyPrint)
}
