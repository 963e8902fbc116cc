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
	"strconv"
	"strings"

	"github.com/sabouaram/reactorhttp/rerrors"
)

// segKind classifies one path segment after compilation.
type segKind uint8

const (
	segLiteral segKind = iota
	segPattern
	segWildcard
)

// segPart is one literal or parameter-capture piece inside a segment (a
// segment may mix literal text and captures, e.g. "v{major}.txt").
type segPart struct {
	literal   string
	isParam   bool
	paramName string
}

type segment struct {
	kind  segKind
	raw   string
	parts []segPart // only populated for segPattern
}

// compilePath validates and splits a registration path into segments per
// spec.md §4.3.1.
func compilePath(path string) ([]segment, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, rerrors.Newf(ErrInvalidPattern, "path %q must start with /", path)
	}

	if path == "/" {
		return []segment{}, nil
	}

	raw := strings.Split(strings.TrimPrefix(path, "/"), "/")
	segs := make([]segment, 0, len(raw))

	for i, r := range raw {
		if r == "" {
			return nil, rerrors.Newf(ErrInvalidPattern, "empty segment in path %q", path)
		}

		if r == "*" {
			if i != len(raw)-1 {
				return nil, rerrors.Newf(ErrInvalidPattern, "wildcard must be the final segment in %q", path)
			}
			segs = append(segs, segment{kind: segWildcard, raw: r})
			continue
		}

		seg, err := compileSegment(r)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}

	return segs, nil
}

func compileSegment(s string) (segment, error) {
	if !strings.ContainsAny(s, "{}") {
		return segment{kind: segLiteral, raw: s}, nil
	}

	var (
		parts        []segPart
		lit          strings.Builder
		namedSeen    bool
		anonSeen     bool
		anonIdx      int
		i            = 0
	)

	flushLiteral := func() {
		if lit.Len() > 0 {
			parts = append(parts, segPart{literal: lit.String()})
			lit.Reset()
		}
	}

	for i < len(s) {
		switch {
		case strings.HasPrefix(s[i:], "{{"):
			lit.WriteByte('{')
			i += 2
		case strings.HasPrefix(s[i:], "}}"):
			lit.WriteByte('}')
			i += 2
		case s[i] == '{':
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return segment{}, rerrors.Newf(ErrInvalidPattern, "unterminated capture in %q", s)
			}
			name := s[i+1 : i+end]
			flushLiteral()

			if name == "" {
				if namedSeen {
					return segment{}, rerrors.Newf(ErrInvalidPattern, "named and anonymous params cannot coexist in %q", s)
				}
				anonSeen = true
				parts = append(parts, segPart{isParam: true, paramName: strconv.Itoa(anonIdx)})
				anonIdx++
			} else {
				if anonSeen {
					return segment{}, rerrors.Newf(ErrInvalidPattern, "named and anonymous params cannot coexist in %q", s)
				}
				namedSeen = true
				parts = append(parts, segPart{isParam: true, paramName: name})
			}
			i += end + 1
		default:
			lit.WriteByte(s[i])
			i++
		}
	}
	flushLiteral()

	return segment{kind: segPattern, raw: s, parts: parts}, nil
}
