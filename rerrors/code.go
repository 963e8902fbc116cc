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

package rerrors

import (
	"math"
	"strconv"
)

var idMsgFct = make(map[CodeError]Message)

// Message generates the human-readable text for a registered CodeError.
type Message func(code CodeError) string

// CodeError is a numeric error classification, the same width and intent as
// the teacher's errors.CodeError: a package-namespaced uint16 that behaves
// like an HTTP status code for the reactor's own error space.
type CodeError uint16

const (
	UnknownError   CodeError = 0
	UnknownMessage           = "unknown error"
)

func ParseCodeError(i int64) CodeError {
	if i < 0 {
		return UnknownError
	} else if i >= int64(math.MaxUint16) {
		return math.MaxUint16
	}
	return CodeError(i)
}

func (c CodeError) Uint16() uint16 { return uint16(c) }
func (c CodeError) Int() int       { return int(c) }
func (c CodeError) String() string { return strconv.Itoa(c.Int()) }

// Message returns the text registered for this code via RegisterIdFctMessage,
// or UnknownMessage if nothing was registered for its package range.
func (c CodeError) Message() string {
	if c == UnknownError {
		return UnknownMessage
	}
	if f, ok := idMsgFct[findBase(c)]; ok {
		if m := f(c); m != "" {
			return m
		}
	}
	return UnknownMessage
}

// Error builds a new Error value carrying this code, with optional parents.
func (c CodeError) Error(parent ...error) Error {
	return New(c, c.Message(), parent...)
}

// RegisterIdFctMessage registers fct as the message resolver for every code
// at or above first (up to the next registered base). A package defines a
// contiguous block of CodeError constants starting at its MinPkgXxx base and
// calls this once from init(), the same as the teacher's
// errors.RegisterIdFctMessage + getMessage-switch pattern.
func RegisterIdFctMessage(first CodeError, fct Message) {
	idMsgFct[first] = fct
}

// ExistInMapMessage reports whether a message resolver has already been
// registered for code's package range.
func ExistInMapMessage(code CodeError) bool {
	_, ok := idMsgFct[findBase(code)]
	return ok
}

// findBase returns the largest registered base <= code, so a contiguous
// iota block only needs its first constant registered.
func findBase(code CodeError) CodeError {
	var best CodeError
	found := false

	for base := range idMsgFct {
		if base <= code && (!found || base > best) {
			best = base
			found = true
		}
	}

	if !found {
		return code
	}
	return best
}
