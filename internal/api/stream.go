// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
)

// =============================================================================
// TOKEN STREAM READER
// =============================================================================

// doneMarker terminates a token stream.
const doneMarker = "[DONE]"

// TokenCallback is called for each token received during streaming, in
// delivery order.
type TokenCallback func(token string)

// TokenStreamReader incrementally decodes a token-streamed chat body. The
// wire format is a sequence of "data: <token>" lines terminated by a line
// "data: [DONE]"; any line without the "data: " prefix is ignored.
type TokenStreamReader struct {
	reader      *bufio.Reader
	accumulator strings.Builder
	tokenCount  int
	done        bool
}

// NewTokenStreamReader creates a reader over a streaming response body.
func NewTokenStreamReader(r io.Reader) *TokenStreamReader {
	return &TokenStreamReader{
		reader: bufio.NewReader(r),
	}
}

// Process reads the stream to completion, invoking the callback once per
// token. It returns nil on the done marker or on clean EOF, the context
// error on cancellation, and the read error otherwise.
func (s *TokenStreamReader) Process(ctx context.Context, callback TokenCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		token, err := s.next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if s.done {
			return nil
		}
		if token != "" {
			callback(token)
		}
	}
}

// next reads lines until it finds a data line, the done marker, or the
// stream ends. It returns the decoded token, empty for ignorable lines.
func (s *TokenStreamReader) next() (string, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			// Process the final unterminated line before reporting EOF.
			return s.decodeLine(line), nil
		}
		return "", err
	}
	return s.decodeLine(line), nil
}

// decodeLine extracts the token from a single stream line. Lines without
// the data prefix are ignorable per the wire contract.
func (s *TokenStreamReader) decodeLine(line []byte) string {
	line = bytes.TrimRight(line, "\r\n")
	if !bytes.HasPrefix(line, []byte("data: ")) {
		return ""
	}

	payload := string(line[len("data: "):])
	if payload == doneMarker {
		s.done = true
		return ""
	}

	s.accumulator.WriteString(payload)
	s.tokenCount++
	return payload
}

// Accumulated returns all content received so far, in delivery order.
func (s *TokenStreamReader) Accumulated() string {
	return s.accumulator.String()
}

// TokenCount returns the number of tokens received.
func (s *TokenStreamReader) TokenCount() int {
	return s.tokenCount
}

// Done reports whether the done marker was seen.
func (s *TokenStreamReader) Done() bool {
	return s.done
}
