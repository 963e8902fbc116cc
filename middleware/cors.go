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

package middleware

import (
	"strconv"
	"strings"

	"github.com/sabouaram/reactorhttp/headers"
	"github.com/sabouaram/reactorhttp/router"
)

// CORSPolicy configures one router-default or per-route CORS decision; a
// per-route policy always wins over the router default.
type CORSPolicy struct {
	AllowedOrigins   []string // "*" allowed, matched literally otherwise
	AllowCredentials bool
	AllowedHeaders   []string
	ExposedHeaders   []string
	MaxAge           int // seconds, 0 = omit
	PrivateNetwork   bool
}

func (p *CORSPolicy) originAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	for _, o := range p.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// CORSDecision is the outcome of evaluating one request against a policy.
type CORSDecision struct {
	Allowed    bool
	Preflight  bool
	StatusCode int // set for preflight (204) or rejection (403/405)
}

// EvaluatePreflight implements the OPTIONS + Access-Control-Request-Method
// algorithm (§4.4).
func EvaluatePreflight(p *CORSPolicy, origin, requestMethod, requestHeaders string, routeAllowed router.Method) CORSDecision {
	if !p.originAllowed(origin) {
		return CORSDecision{Allowed: false, Preflight: true, StatusCode: 403}
	}

	m, ok := router.ParseMethod(requestMethod)
	if !ok || routeAllowed&m == 0 {
		return CORSDecision{Allowed: false, Preflight: true, StatusCode: 405}
	}

	if requestHeaders != "" && !headersPermitted(p, requestHeaders) {
		return CORSDecision{Allowed: false, Preflight: true, StatusCode: 403}
	}

	return CORSDecision{Allowed: true, Preflight: true, StatusCode: 204}
}

func headersPermitted(p *CORSPolicy, requested string) bool {
	if len(p.AllowedHeaders) == 0 {
		return false
	}
	allowed := make(map[string]bool, len(p.AllowedHeaders))
	for _, h := range p.AllowedHeaders {
		allowed[headers.Fold(h)] = true
	}
	for _, h := range strings.Split(requested, ",") {
		if !allowed[headers.Fold(strings.TrimSpace(h))] {
			return false
		}
	}
	return true
}

// ApplyPreflight writes the Access-Control-* headers for an allowed
// preflight onto h.
func ApplyPreflight(p *CORSPolicy, h *headers.ResponseHeaders, origin string) {
	setAllowOrigin(p, h, origin)
	if len(p.AllowedHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(p.AllowedHeaders, ", "))
	}
	if p.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(p.MaxAge))
	}
	if p.PrivateNetwork {
		h.Set("Access-Control-Allow-Private-Network", "true")
	}
}

// EvaluateActual implements the non-preflight CORS path: reject if Origin is
// present but not allowed, otherwise annotate the response and append Vary.
func EvaluateActual(p *CORSPolicy, h *headers.ResponseHeaders, origin string) CORSDecision {
	if origin == "" {
		return CORSDecision{Allowed: true}
	}

	if !p.originAllowed(origin) {
		return CORSDecision{Allowed: false, StatusCode: 403}
	}

	setAllowOrigin(p, h, origin)
	AppendVary(h, "Origin")

	return CORSDecision{Allowed: true}
}

func setAllowOrigin(p *CORSPolicy, h *headers.ResponseHeaders, origin string) {
	if p.AllowCredentials {
		// Credentials mode must mirror the specific origin, never "*".
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
	} else if len(p.AllowedOrigins) == 1 && p.AllowedOrigins[0] == "*" {
		h.Set("Access-Control-Allow-Origin", "*")
	} else {
		h.Set("Access-Control-Allow-Origin", origin)
	}
	if len(p.ExposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(p.ExposedHeaders, ", "))
	}
}

// AppendVary adds token to the Vary header, deduplicating against whatever
// is already present (invariant 10: Origin appears exactly once).
func AppendVary(h *headers.ResponseHeaders, token string) {
	existing, ok := h.Get("Vary")
	if !ok {
		h.Set("Vary", token)
		return
	}

	for _, t := range strings.Split(existing, ",") {
		if strings.EqualFold(strings.TrimSpace(t), token) {
			return
		}
	}

	h.Set("Vary", existing+", "+token)
}
