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

// Package rlog provides the structured logging facade consumed by every other
// package in this module. reactor.New takes a Logger value and the Reactor
// stores it; the FuncLog getter type is also provided, but no package in
// this module takes one.
package rlog

import "io"

// FuncLog is a Logger getter. A holder that calls it on every log call picks
// up a swapped backing Logger without caching the old one.
type FuncLog func() Logger

// Logger is the structured logging surface every package depends on.
type Logger interface {
	io.Writer

	// SetLevel changes the minimal level emitted by Entry/Log calls.
	SetLevel(lvl Level)
	// GetLevel returns the minimal level emitted by Entry/Log calls.
	GetLevel() Level

	// Entry starts building a log record at the given level.
	Entry(lvl Level, message string, args ...interface{}) *Entry

	// SetOutput redirects where formatted records are written.
	SetOutput(w io.Writer)

	Close() error
}

// Discard returns a Logger that silently drops every entry. Used as the
// default for options that never wire a concrete logger.
func Discard() Logger {
	return New(Options{Level: NilLevel.String(), Output: io.Discard})
}
