/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package codec

import (
	"io"
	"strings"
)

// ErrBodyTooLarge is returned by Decompress when the inflated body exceeds
// the configured absolute or ratio cap.
type ErrBodyTooLarge struct {
	Limit int64
}

func (e *ErrBodyTooLarge) Error() string { return "codec: decompressed body exceeds configured limit" }

// DecompressConfig bounds the cost of inflating a request body.
type DecompressConfig struct {
	MaxDecompressedBytes int64
	MaxRatio             float64 // decompressed/compressed must be <= this
	StreamingThreshold   int64   // bodies at or above this size decode via io.Reader instead of full buffering
}

// ParseContentEncoding splits a Content-Encoding header into its stacked
// tokens in header order, which is the order they were applied during
// compression (so the decode chain must run in reverse).
func ParseContentEncoding(header string) []string {
	if header == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && p != "identity" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// chain builds the reverse-order reader stack for a stacked Content-Encoding
// value: the last-applied encoding must be undone first.
func chain(r io.Reader, tokens []string) (io.ReadCloser, error) {
	cur := io.NopCloser(r)
	for i := len(tokens) - 1; i >= 0; i-- {
		a, ok := ParseToken(tokens[i])
		if !ok {
			return nil, errNotRegistered
		}
		next, err := a.Reader(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// limitedReader enforces the absolute and ratio caps while draining a
// decode chain; Read returns ErrBodyTooLarge the moment either is breached.
type limitedReader struct {
	src            io.Reader
	cfg            DecompressConfig
	compressedSize int64
	read           int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.src.Read(p)
	if n > 0 {
		l.read += int64(n)
		if l.cfg.MaxDecompressedBytes > 0 && l.read > l.cfg.MaxDecompressedBytes {
			return n, &ErrBodyTooLarge{Limit: l.cfg.MaxDecompressedBytes}
		}
		if l.cfg.MaxRatio > 0 && l.compressedSize > 0 {
			if float64(l.read)/float64(l.compressedSize) > l.cfg.MaxRatio {
				return n, &ErrBodyTooLarge{Limit: l.cfg.MaxDecompressedBytes}
			}
		}
	}
	return n, err
}

// Decompress runs the reverse-order multi-stage decode chain named by a
// Content-Encoding header over r, enforcing cfg's absolute and ratio caps
// as bytes are drained (§4.6). The returned ReadCloser wraps every stage;
// closing it closes the innermost decoder and all wrappers above it.
func Decompress(r io.Reader, contentEncoding string, compressedSize int64, cfg DecompressConfig) (io.ReadCloser, error) {
	tokens := ParseContentEncoding(contentEncoding)
	if len(tokens) == 0 {
		return io.NopCloser(r), nil
	}

	decoded, err := chain(r, tokens)
	if err != nil {
		return nil, err
	}

	return &guardedDecoder{
		ReadCloser: decoded,
		guard:      &limitedReader{src: decoded, cfg: cfg, compressedSize: compressedSize},
	}, nil
}

// guardedDecoder routes Read through the cap-enforcing limitedReader while
// delegating Close to the underlying decode chain.
type guardedDecoder struct {
	io.ReadCloser
	guard *limitedReader
}

func (g *guardedDecoder) Read(p []byte) (int, error) {
	return g.guard.Read(p)
}
