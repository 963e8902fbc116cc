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

package wire

import "time"

// ConnectionDecision is the outcome of the keep-alive eligibility check
// (§4.2.7), consulted once per completed request/response exchange.
type ConnectionDecision struct {
	KeepAlive bool
	Reason    string
}

// KeepAliveEligible implements §4.2.7's conjunction of conditions.
func KeepAliveEligible(version Version, connectionHeader string, keepAliveEnabled bool, requestCount, maxRequests int, draining bool) ConnectionDecision {
	if draining {
		return ConnectionDecision{KeepAlive: false, Reason: "draining"}
	}
	if !keepAliveEnabled {
		return ConnectionDecision{KeepAlive: false, Reason: "keep-alive disabled"}
	}
	if maxRequests > 0 && requestCount >= maxRequests {
		return ConnectionDecision{KeepAlive: false, Reason: "max requests per connection reached"}
	}

	closeWanted := equalFoldTrim(connectionHeader, "close")
	keepWanted := equalFoldTrim(connectionHeader, "keep-alive")

	switch version {
	case HTTP11:
		if closeWanted {
			return ConnectionDecision{KeepAlive: false, Reason: "Connection: close"}
		}
		return ConnectionDecision{KeepAlive: true}
	case HTTP10:
		if keepWanted {
			return ConnectionDecision{KeepAlive: true}
		}
		return ConnectionDecision{KeepAlive: false, Reason: "HTTP/1.0 without keep-alive"}
	default:
		return ConnectionDecision{KeepAlive: false}
	}
}

func equalFoldTrim(header, token string) bool {
	h := header
	for len(h) > 0 && (h[0] == ' ' || h[0] == '\t') {
		h = h[1:]
	}
	for len(h) > 0 && (h[len(h)-1] == ' ' || h[len(h)-1] == '\t') {
		h = h[:len(h)-1]
	}
	if len(h) != len(token) {
		return false
	}
	for i := 0; i < len(h); i++ {
		a, b := h[i], token[i]
		if a >= 'A' && a <= 'Z' {
			a += 'a' - 'A'
		}
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}

// FormatDate renders the RFC 7231 preferred (IMF-fixdate) form of t, used
// for the mandatory Date response header (§4.2.8).
func FormatDate(t time.Time) string {
	return t.UTC().Format(http1DateFormat)
}

const http1DateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// ConnectionHeaderValue is the literal value the framer writes for the
// Connection header given a keep-alive decision and protocol version.
func ConnectionHeaderValue(keepAlive bool, version Version) string {
	if !keepAlive {
		return "close"
	}
	if version == HTTP10 {
		return "keep-alive"
	}
	return ""
}
