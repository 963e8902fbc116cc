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
	"strconv"
	"strings"
)

// acceptEntry is one parsed (token, q) pair from an Accept-Encoding header.
type acceptEntry struct {
	token string
	q     float64
}

// parseAcceptEncoding splits the header into entries, defaulting q=1 when
// absent. A malformed q-value is treated as 1 rather than rejected: the
// wire protocol layer (not codec) is responsible for 400-ing structurally
// invalid headers.
func parseAcceptEncoding(header string) []acceptEntry {
	if header == "" {
		return nil
	}

	parts := strings.Split(header, ",")
	entries := make([]acceptEntry, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		tok := p
		q := 1.0

		if idx := strings.IndexByte(p, ';'); idx >= 0 {
			tok = strings.TrimSpace(p[:idx])
			params := p[idx+1:]
			for _, kv := range strings.Split(params, ";") {
				kv = strings.TrimSpace(kv)
				if strings.HasPrefix(kv, "q=") {
					if v, err := strconv.ParseFloat(strings.TrimPrefix(kv, "q="), 64); err == nil {
						q = v
					}
				}
			}
		}

		entries = append(entries, acceptEntry{token: strings.ToLower(tok), q: q})
	}

	return entries
}

func (entries []acceptEntry) qFor(token string) (q float64, present bool) {
	for _, e := range entries {
		if e.token == token || e.token == "*" {
			return e.q, true
		}
	}
	return 0, false
}

// Config is the negotiation-time subset of the server's compression options
// (srvconfig.Compression mirrors this shape for configuration purposes).
type Config struct {
	Preferred     []Algorithm
	ContentTypes  []string // allowlist, prefix match
	MinBytes      int
	MaxRatio      float64 // compressed/original must be <= this to keep the result
	AddVaryHeader bool
}

// Selection is the outcome of Select.
type Selection struct {
	Algorithm     Algorithm
	NotAcceptable bool // true => emit 406
}

// Select implements §4.5's selection algorithm: parse Accept-Encoding,
// respect q=0 as prohibition, pick the highest-priority configured codec the
// client accepts.
func Select(cfg *Config, acceptEncoding string) Selection {
	entries := parseAcceptEncoding(acceptEncoding)

	for _, a := range cfg.Preferred {
		if !a.registered() {
			continue
		}
		q, present := entries.qFor(a.Token())
		if !present {
			// §4.5(b): a coding absent from Accept-Encoding (and not covered
			// by "*") is not accepted. Only identity is acceptable by
			// default; skip this preference and try the next one.
			continue
		}
		if q > 0 {
			return Selection{Algorithm: a}
		}
	}

	if q, present := entries.qFor("identity"); present && q == 0 {
		return Selection{NotAcceptable: true}
	}

	return Selection{Algorithm: Identity}
}

// Eligible reports whether a response body is a candidate for compression
// per §4.5's eligibility rule: size floor, content-type allowlist, and the
// handler must not have already set Content-Encoding.
func Eligible(cfg *Config, contentType string, bodySize int, explicitEncoding bool) bool {
	if explicitEncoding {
		return false
	}
	if bodySize < cfg.MinBytes {
		return false
	}
	if len(cfg.ContentTypes) == 0 {
		return true
	}
	for _, prefix := range cfg.ContentTypes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

// RatioGuard reports whether a compressed payload should be kept (true) or
// discarded in favor of identity (false) per the configured max ratio.
func RatioGuard(cfg *Config, compressedSize, originalSize int) bool {
	if cfg.MaxRatio <= 0 || originalSize == 0 {
		return true
	}
	return float64(compressedSize)/float64(originalSize) <= cfg.MaxRatio
}
