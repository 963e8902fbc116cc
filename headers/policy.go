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

// Package headers holds the two header containers the reactor needs: a
// case-insensitive view map over request headers (values are strings copied
// out of the connection read buffer) and a flat pre-formatted byte buffer for
// response headers with in-place, casing-preserving replacement.
package headers

import "strings"

// DupPolicy controls what happens when the same header name is seen twice.
type DupPolicy uint8

const (
	// DupMerge joins repeated values with Separator (e.g. Accept, Cookie).
	DupMerge DupPolicy = iota
	// DupKeepLast overrides any earlier value (e.g. Host, From).
	DupKeepLast
	// DupReject is a protocol error. policyFor returns it for names outside
	// the static table when mergeUnknown is false; forbidden trailer names
	// are checked separately by IsForbiddenTrailer.
	DupReject
)

// Fold lower-cases a header name for case-insensitive lookup, same intent as
// the teacher's folded header key.
func Fold(name string) string {
	return strings.ToLower(name)
}

// forbiddenTrailer names may never appear in a chunked trailer section.
var forbiddenTrailer = map[string]bool{
	"transfer-encoding": true,
	"content-length":    true,
	"host":              true,
	"authorization":     true,
	"connection":        true,
	"keep-alive":        true,
	"te":                true,
	"trailer":           true,
	"upgrade":           true,
}

func IsForbiddenTrailer(name string) bool {
	return forbiddenTrailer[Fold(name)]
}

// reserved response headers may not be set directly by handler code; the
// serializer owns them.
var reservedResponse = map[string]bool{
	"date":              true,
	"content-length":    true,
	"connection":        true,
	"transfer-encoding": true,
}

func IsReservedResponse(name string) bool {
	return reservedResponse[Fold(name)]
}

// policyFor returns the duplicate-handling policy for a known header name,
// or mergeUnknown's value when the name isn't in the static table.
func policyFor(name string, mergeUnknown bool) DupPolicy {
	switch Fold(name) {
	case "accept", "accept-encoding", "accept-language", "cookie", "via", "forwarded":
		return DupMerge
	case "host", "from", "user-agent", "referer", "content-type", "content-length":
		return DupKeepLast
	default:
		if mergeUnknown {
			return DupMerge
		}
		return DupReject
	}
}
