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

// Package router implements the compiled path trie: pattern compilation,
// matching with parameter capture, trailing-slash policy, and method
// resolution with synthesized Allow sets. No teacher package implements a
// from-scratch trie matcher (the teacher's own router package is a thin
// gin-engine middleware helper) so this is original engineering styled after
// the case-insensitive lookup/merge idiom used across this module's other
// map-like types (headers.ViewMap, headers.ResponseHeaders).
package router

import (
	"strings"

	"github.com/sabouaram/reactorhttp/rerrors"
)

// TrailingSlashPolicy controls how a request whose slash-variant was not
// explicitly registered is resolved.
type TrailingSlashPolicy uint8

const (
	Strict TrailingSlashPolicy = iota
	Normalize
	Redirect
)

const (
	ErrInvalidPattern rerrors.CodeError = iota + rerrors.MinPkgRouter
	ErrMethodConflict
)

func init() {
	rerrors.RegisterIdFctMessage(ErrInvalidPattern, func(c rerrors.CodeError) string {
		switch c {
		case ErrInvalidPattern:
			return "route pattern is invalid"
		case ErrMethodConflict:
			return "method already registered for this path and slash variant"
		}
		return ""
	})
}

// Method is an HTTP request method, kept as a small enum rather than a raw
// string so route tables can use a bitmap.
type Method uint16

const (
	MethodGet Method = 1 << iota
	MethodHead
	MethodPost
	MethodPut
	MethodDelete
	MethodPatch
	MethodOptions
	MethodTrace
	MethodConnect
)

var methodNames = []struct {
	m Method
	s string
}{
	{MethodGet, "GET"}, {MethodHead, "HEAD"}, {MethodPost, "POST"},
	{MethodPut, "PUT"}, {MethodDelete, "DELETE"}, {MethodPatch, "PATCH"},
	{MethodOptions, "OPTIONS"}, {MethodTrace, "TRACE"}, {MethodConnect, "CONNECT"},
}

func ParseMethod(s string) (Method, bool) {
	s = strings.ToUpper(s)
	for _, e := range methodNames {
		if e.s == s {
			return e.m, true
		}
	}
	return 0, false
}

// AllowHeader renders a bitmap of registered methods as the Allow header
// value, synthesizing HEAD whenever GET is present (§4.3.4).
func AllowHeader(set Method) string {
	if set&MethodGet != 0 {
		set |= MethodHead
	}

	var parts []string
	for _, e := range methodNames {
		if set&e.m != 0 {
			parts = append(parts, e.s)
		}
	}
	return strings.Join(parts, ", ")
}

// Handler is the buffered request handler shape.
type Handler func(ctx *Context) Response

// Response is the minimal result a Handler must produce; *respwriter.Writer
// satisfies it through its StatusCode method, and the router only needs to
// know how to dispatch, not how to serialize.
type Response interface {
	StatusCode() int
}

// Param is one captured path parameter; Value references the input path
// buffer and must not outlive the request's processing window.
type Param struct {
	Key   string
	Value string
}

// Context carries one match's captured parameters plus whatever the caller
// wants a handler to reach without a global lookup. The reactor sets Writer
// and Request to its own *respwriter.Writer and *wire.Request before
// invoking Handler; router itself never looks inside them.
type Context struct {
	Params  []Param
	Writer  interface{}
	Request interface{}
}

func (c *Context) Param(key string) (string, bool) {
	for _, p := range c.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}
