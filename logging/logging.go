// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package logging provides the level parsing and formatter choices layered
// on top of the runtime's log package (a thin github.com/sirupsen/logrus
// wrapper): a string level name to log.Level/logrus.Level conversion, and
// a human-readable "pretty" formatter alternative to logrus's own
// text/JSON formatters.
package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// GetLevel converts a case-insensitive level name, as an embedder might
// read from configuration, into a logrus.Level. An empty string means
// Info. An unrecognized name returns logrus.DebugLevel along with an
// error describing the bad input.
func GetLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel, nil
	case "", "info":
		return logrus.InfoLevel, nil
	case "warn":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.DebugLevel, fmt.Errorf("invalid log level: %v", level)
	}
}

// GetFormatter returns the logrus.Formatter named by format ("text" for
// the pretty formatter below, "json-pretty" for indented JSON, anything
// else for compact JSON), applying timestampFormat where the formatter
// supports one.
func GetFormatter(format, timestampFormat string) logrus.Formatter {
	switch format {
	case "text":
		return &prettyFormatter{}
	case "json-pretty":
		return &logrus.JSONFormatter{PrettyPrint: true, TimestampFormat: timestampFormat}
	default:
		return &logrus.JSONFormatter{TimestampFormat: timestampFormat}
	}
}

// prettyFormatter implements the logrus Formatter interface and provides a
// simpler, easier-to-read text formatter than logrus's own TextFormatter:
// one line for the level and message, then one indented "key = value" line
// per field, with multi-line string and embedded-JSON values reindented
// rather than escaped.
type prettyFormatter struct{}

func isJSON(buf []byte) bool {
	var tmp interface{}
	err := json.Unmarshal(buf, &tmp)
	return err == nil
}

func spaces(num int) string {
	sb := strings.Builder{}
	for i := 0; i < num; i++ {
		sb.WriteByte(' ')
	}
	return sb.String()
}

func (p *prettyFormatter) Format(e *logrus.Entry) ([]byte, error) {
	b := new(bytes.Buffer)

	level := strings.ToUpper(e.Level.String())
	fmt.Fprintf(b, "[%s] %s\n", level, e.Message)

	fieldIndent := 2
	multiLineIndent := 6
	for k, v := range e.Data {
		stringVal, ok := v.(string)
		if ok && strings.Contains(stringVal, "\n") {
			sb := strings.Builder{}
			for i, line := range strings.Split(stringVal, "\n") {
				if i != 0 {
					sb.WriteString(spaces(multiLineIndent))
				}
				sb.WriteString(line)
				sb.WriteByte('\n')
				stringVal = sb.String()
			}
		} else if ok && isJSON([]byte(stringVal)) {
			var tmp bytes.Buffer
			if err := json.Indent(&tmp, []byte(stringVal), spaces(multiLineIndent), spaces(2)); err != nil {
				return nil, err
			}
			stringVal = tmp.String()
		} else {
			jsonVal, err := json.MarshalIndent(v, spaces(multiLineIndent), spaces(2))
			if err != nil {
				return nil, err
			}
			stringVal = string(jsonVal)
		}

		b.WriteString(spaces(fieldIndent))
		b.WriteString(k)
		if strings.Contains(stringVal, "\n") {
			b.WriteString(" = |\n")
			b.WriteString(spaces(multiLineIndent))
		} else {
			b.WriteString(" = ")
		}
		b.WriteString(stringVal)
		b.WriteString("\n")
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
