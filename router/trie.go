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

package router

import (
	"strings"

	"github.com/sabouaram/reactorhttp/rerrors"
)

// handlerTable maps a method bitmap entry to a Handler, one per trailing
// slash variant, never both buffered and streaming for the same key (the
// streaming shape lives in respwriter; router only stores an opaque Handler
// and lets the dispatch envelope decide buffered vs streaming).
type handlerTable struct {
	methods  Method
	handlers map[Method]Handler
}

func newHandlerTable() *handlerTable {
	return &handlerTable{handlers: make(map[Method]Handler)}
}

func (t *handlerTable) set(m Method, h Handler) error {
	if t.handlers[m] != nil {
		return rerrors.Newf(ErrMethodConflict, "method %v already registered", m)
	}
	t.methods |= m
	t.handlers[m] = h
	return nil
}

// node is one trie vertex: a literal-child map, a slice of dynamic children
// scanned in registration order, an optional wildcard child, and two handler
// tables (with/without trailing slash).
type node struct {
	literal  map[string]*node
	dynamic  []*dynChild
	wildcard *node

	withSlash    *handlerTable
	withoutSlash *handlerTable
}

type dynChild struct {
	seg  segment
	next *node
}

func newNode() *node {
	return &node{literal: make(map[string]*node)}
}

// Router owns the compiled trie root and the trailing-slash policy applied
// to unmatched slash variants.
type Router struct {
	root         *node
	slashPolicy  TrailingSlashPolicy
	mergeUnknown bool
}

func New(policy TrailingSlashPolicy) *Router {
	return &Router{root: newNode(), slashPolicy: policy}
}

// Register compiles path and installs handler for method, tracking whether
// path was registered with or without a trailing slash.
func (r *Router) Register(method Method, path string, h Handler) error {
	trailing := path != "/" && strings.HasSuffix(path, "/")
	cleanPath := path
	if trailing {
		cleanPath = strings.TrimSuffix(path, "/")
		if cleanPath == "" {
			cleanPath = "/"
		}
	}

	segs, err := compilePath(cleanPath)
	if err != nil {
		return err
	}

	n := r.root
	for _, s := range segs {
		switch s.kind {
		case segLiteral:
			next, ok := n.literal[s.raw]
			if !ok {
				next = newNode()
				n.literal[s.raw] = next
			}
			n = next
		case segWildcard:
			if n.wildcard == nil {
				n.wildcard = newNode()
			}
			n = n.wildcard
		case segPattern:
			var next *node
			for _, dc := range n.dynamic {
				if sameShape(dc.seg, s) {
					next = dc.next
					break
				}
			}
			if next == nil {
				next = newNode()
				n.dynamic = append(n.dynamic, &dynChild{seg: s, next: next})
			}
			n = next
		}
	}

	table := n.withoutSlash
	if trailing {
		table = n.withSlash
	}
	if table == nil {
		table = newHandlerTable()
		if trailing {
			n.withSlash = table
		} else {
			n.withoutSlash = table
		}
	}

	return table.set(method, h)
}

func sameShape(a, b segment) bool {
	return a.raw == b.raw
}

// MatchResult is the outcome of Match.
type MatchResult struct {
	Handler          Handler
	Params           []Param
	MethodNotAllowed bool
	AllowedMethods   Method
	RedirectTo       string
}

// Match resolves method+path against the trie per §4.3.2-§4.3.4.
func (r *Router) Match(method Method, path string) (MatchResult, bool) {
	trailing := path != "/" && strings.HasSuffix(path, "/")
	cleanPath := path
	if trailing {
		cleanPath = strings.TrimSuffix(path, "/")
	}
	if cleanPath == "" {
		cleanPath = "/"
	}

	var parts []string
	if cleanPath != "/" {
		parts = strings.Split(strings.TrimPrefix(cleanPath, "/"), "/")
	}

	n, params, ok := matchNode(r.root, parts)
	if !ok {
		return MatchResult{}, false
	}

	table := n.withoutSlash
	altTable := n.withSlash
	if trailing {
		table, altTable = n.withSlash, n.withoutSlash
	}

	if table == nil && altTable != nil {
		switch r.slashPolicy {
		case Normalize:
			table = altTable
		case Redirect:
			// Canonical registration is the unslashed form; only the
			// adding-slash -> no-slash direction redirects, never the
			// inverse (spec.md §4.3.3).
			if trailing {
				return MatchResult{RedirectTo: cleanPath}, true
			}
		}
	}

	if table == nil {
		return MatchResult{}, false
	}

	h, allowed := resolveMethod(table, method)
	if h == nil {
		return MatchResult{MethodNotAllowed: true, AllowedMethods: allowed, Params: params}, true
	}

	return MatchResult{Handler: h, Params: params}, true
}

func resolveMethod(t *handlerTable, m Method) (Handler, Method) {
	if h, ok := t.handlers[m]; ok {
		return h, t.methods
	}
	if m == MethodHead {
		if h, ok := t.handlers[MethodGet]; ok {
			return h, t.methods
		}
	}
	return nil, t.methods
}

func matchNode(n *node, parts []string) (*node, []Param, bool) {
	if len(parts) == 0 {
		return n, nil, true
	}

	head, rest := parts[0], parts[1:]

	if next, ok := n.literal[head]; ok {
		if rn, params, ok := matchNode(next, rest); ok {
			return rn, params, true
		}
	}

	for _, dc := range n.dynamic {
		if vals, ok := matchSegment(dc.seg, head); ok {
			if rn, params, ok := matchNode(dc.next, rest); ok {
				return rn, append(vals, params...), true
			}
		}
	}

	if n.wildcard != nil {
		return n.wildcard, []Param{{Key: "*", Value: strings.Join(parts, "/")}}, true
	}

	return nil, nil, false
}

func matchSegment(s segment, input string) ([]Param, bool) {
	var params []Param
	pos := 0

	for i, p := range s.parts {
		if !p.isParam {
			if !strings.HasPrefix(input[pos:], p.literal) {
				return nil, false
			}
			pos += len(p.literal)
			continue
		}

		end := len(input)
		if i+1 < len(s.parts) && !s.parts[i+1].isParam {
			idx := strings.Index(input[pos:], s.parts[i+1].literal)
			if idx < 0 {
				return nil, false
			}
			end = pos + idx
		}

		params = append(params, Param{Key: p.paramName, Value: input[pos:end]})
		pos = end
	}

	if pos != len(input) {
		return nil, false
	}

	return params, true
}
