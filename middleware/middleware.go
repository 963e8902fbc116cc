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

// Package middleware implements the request/response middleware chains, the
// CORS preflight/actual algorithm, and the dispatch envelope that sequences
// global-before -> per-route-before -> handler -> per-route-after ->
// global-after (spec.md §4.4).
package middleware

import "github.com/sabouaram/reactorhttp/headers"

// Outcome is what a request middleware returns after inspecting a request.
type Outcome uint8

const (
	Continue Outcome = iota
	Respond
	Fail
)

// Result is the full return value of a request middleware invocation.
type Result struct {
	Outcome    Outcome
	StatusCode int    // used when Outcome == Fail
	Reason     string // used when Outcome == Fail
	Body       []byte // used when Outcome == Respond
	BodyType   string
}

// RequestFunc runs before the handler; it may short-circuit via Respond/Fail.
type RequestFunc func(req Request) Result

// ResponseFunc runs after the handler; it may mutate the response headers
// (it receives no body) but never blocks and cannot change the outcome (status changes belong to the
// handler or a request middleware).
type ResponseFunc func(req Request, resp *headers.ResponseHeaders)

// Request is the minimal view middleware needs: method/path plus the
// case-insensitive header view produced by the wire parser.
type Request struct {
	Method  string
	Path    string
	Headers *headers.ViewMap
}

// Chain holds the global and per-route middleware vectors.
type Chain struct {
	GlobalBefore []RequestFunc
	GlobalAfter  []ResponseFunc
}

// RouteMiddleware is attached to a single route and runs inside the global
// before/after pair.
type RouteMiddleware struct {
	Before []RequestFunc
	After  []ResponseFunc
}

// RunBefore executes global-before then route-before in order, stopping at
// the first non-Continue result.
func (c *Chain) RunBefore(req Request, route *RouteMiddleware) Result {
	for _, f := range c.GlobalBefore {
		if r := f(req); r.Outcome != Continue {
			return r
		}
	}
	if route != nil {
		for _, f := range route.Before {
			if r := f(req); r.Outcome != Continue {
				return r
			}
		}
	}
	return Result{Outcome: Continue}
}

// RunAfter executes route-after then global-after, in the order spec.md
// §4.4 requires (per-route wraps inside the global pair).
func (c *Chain) RunAfter(req Request, route *RouteMiddleware, h *headers.ResponseHeaders) {
	if route != nil {
		for _, f := range route.After {
			f(req, h)
		}
	}
	for _, f := range c.GlobalAfter {
		f(req, h)
	}
}
