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

// Package rerrors gives every package in this module a coded error type with
// a parent-error chain, the same shape as the teacher's errors package, sized
// down to what an embedded HTTP reactor needs: no Gin integration, no return
// pool, no per-call reporting hooks.
package rerrors

import (
	"errors"
	"fmt"
)

// FuncMap iterates an Error's parent chain; returning false stops the walk.
type FuncMap func(e error) bool

// Error extends the standard error with a numeric code and a parent chain.
type Error interface {
	error

	IsCode(code CodeError) bool
	HasCode(code CodeError) bool
	GetCode() CodeError
	GetParentCode() []CodeError

	Is(e error) bool
	HasParent() bool
	GetParent(withMainError bool) []error
	Map(fct FuncMap) bool

	Add(parent ...error)
	SetParent(parent ...error)

	StringError() string
	StringErrorSlice() []string

	GetTrace() string
	GetTraceSlice() []string

	Unwrap() []error
}

type ers struct {
	code    CodeError
	message string
	file    string
	line    int
	fn      string
	parent  []error
}

// New builds an Error carrying code/message with the given parents, capturing
// the caller's file/line/function for GetTrace.
func New(code CodeError, message string, parent ...error) Error {
	e := &ers{
		code:    code,
		message: message,
		parent:  cleanNil(parent),
	}
	e.file, e.line, e.fn = callerFrame(2)
	return e
}

// Newf is New with fmt.Sprintf-style message formatting.
func Newf(code CodeError, format string, args ...interface{}) Error {
	e := &ers{
		code:    code,
		message: fmt.Sprintf(format, args...),
	}
	e.file, e.line, e.fn = callerFrame(2)
	return e
}

func cleanNil(in []error) []error {
	out := make([]error, 0, len(in))
	for _, e := range in {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

func (e *ers) Error() string {
	if e == nil {
		return ""
	}
	if e.message == "" {
		return e.code.String()
	}
	return fmt.Sprintf("[%s] %s", e.code.String(), e.message)
}

func (e *ers) StringError() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *ers) StringErrorSlice() []string {
	if e == nil {
		return nil
	}

	out := []string{e.message}
	for _, p := range e.parent {
		out = append(out, p.Error())
	}
	return out
}

func (e *ers) GetCode() CodeError {
	if e == nil {
		return UnknownError
	}
	return e.code
}

func (e *ers) IsCode(code CodeError) bool {
	return e != nil && e.code == code
}

func (e *ers) HasCode(code CodeError) bool {
	if e == nil {
		return false
	}
	if e.code == code {
		return true
	}
	for _, p := range e.parent {
		if x, ok := p.(Error); ok && x.HasCode(code) {
			return true
		}
	}
	return false
}

func (e *ers) GetParentCode() []CodeError {
	if e == nil {
		return nil
	}

	out := make([]CodeError, 0, len(e.parent)+1)
	out = append(out, e.code)
	for _, p := range e.parent {
		if x, ok := p.(Error); ok {
			out = append(out, x.GetCode())
		}
	}
	return out
}

func (e *ers) HasParent() bool {
	return e != nil && len(e.parent) > 0
}

func (e *ers) GetParent(withMainError bool) []error {
	if e == nil {
		return nil
	}

	if !withMainError {
		return e.parent
	}

	out := make([]error, 0, len(e.parent)+1)
	out = append(out, e)
	return append(out, e.parent...)
}

func (e *ers) Map(fct FuncMap) bool {
	if e == nil || fct == nil {
		return true
	}

	if !fct(e) {
		return false
	}

	for _, p := range e.parent {
		if x, ok := p.(Error); ok {
			if !x.Map(fct) {
				return false
			}
		} else if !fct(p) {
			return false
		}
	}

	return true
}

func (e *ers) Add(parent ...error) {
	if e == nil {
		return
	}
	e.parent = append(e.parent, cleanNil(parent)...)
}

func (e *ers) SetParent(parent ...error) {
	if e == nil {
		return
	}
	e.parent = cleanNil(parent)
}

// Is implements error matching compatible with errors.Is: two Errors match
// when they carry the same code, and an Error matches a plain error when one
// of its parents is that error (direct equality or via errors.Is).
func (e *ers) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}

	if x, ok := target.(Error); ok {
		return x.GetCode() == e.code
	}

	for _, p := range e.parent {
		if errors.Is(p, target) {
			return true
		}
	}

	return false
}

func (e *ers) Unwrap() []error {
	if e == nil {
		return nil
	}
	return e.parent
}

func (e *ers) GetTrace() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d (%s)", e.file, e.line, e.fn)
}

func (e *ers) GetTraceSlice() []string {
	if e == nil {
		return nil
	}

	out := []string{e.GetTrace()}
	for _, p := range e.parent {
		if x, ok := p.(Error); ok {
			out = append(out, x.GetTraceSlice()...)
		}
	}
	return out
}

// IsError reports whether err is non-nil and matches code, walking the whole
// parent chain (unlike IsCode/HasCode which are methods on a concrete Error).
func IsError(err error, code CodeError) bool {
	if err == nil {
		return false
	}
	if x, ok := err.(Error); ok {
		return x.HasCode(code)
	}
	return false
}

// Join flattens multiple Errors/errors into a single Error whose parent chain
// is the concatenation of all non-nil arguments, dropping nils. Used by the
// middleware dispatch envelope to report the first real failure while still
// recording ancillary errors (e.g. a failed compression stage alongside a
// failed handler).
func Join(code CodeError, message string, errs ...error) Error {
	return New(code, message, cleanNil(errs)...)
}
