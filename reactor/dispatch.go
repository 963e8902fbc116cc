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

// dispatch.go turns one parsed wire.Request into a response on a
// respwriter.Writer, sequencing CORS preflight -> global-before -> match ->
// global-after per spec.md §4.4. Per-route middleware has no home yet: the
// trie's handlerTable stores only a bare router.Handler, so only the global
// vectors run today.
package reactor

import (
	"github.com/sabouaram/reactorhttp/headers"
	"github.com/sabouaram/reactorhttp/middleware"
	"github.com/sabouaram/reactorhttp/respwriter"
	"github.com/sabouaram/reactorhttp/router"
	"github.com/sabouaram/reactorhttp/wire"
)

// routeAllowedMethods reports the bitmap of methods registered at path,
// ignoring the requested method entirely, for CORS preflight's "would any
// verb match here" question (§4.4). A path that doesn't exist in the trie at
// all yields 0.
func routeAllowedMethods(rtr *router.Router, path string) router.Method {
	match, found := rtr.Match(0, path)
	if !found {
		return 0
	}
	return match.AllowedMethods
}

// translateMethod maps the wire parser's sequential Method enum onto the
// router's bitmap Method enum; the two are deliberately distinct types (the
// router's needs a bitmap for Allow-header synthesis, the parser's does not).
func translateMethod(m wire.Method) (router.Method, bool) {
	switch m {
	case wire.MethodGet:
		return router.MethodGet, true
	case wire.MethodHead:
		return router.MethodHead, true
	case wire.MethodPost:
		return router.MethodPost, true
	case wire.MethodPut:
		return router.MethodPut, true
	case wire.MethodDelete:
		return router.MethodDelete, true
	case wire.MethodPatch:
		return router.MethodPatch, true
	case wire.MethodOptions:
		return router.MethodOptions, true
	case wire.MethodTrace:
		return router.MethodTrace, true
	case wire.MethodConnect:
		return router.MethodConnect, true
	default:
		return 0, false
	}
}

// requestPath strips any query string from the parsed request target, since
// the router matches on path only.
func requestPath(target string) string {
	for i := 0; i < len(target); i++ {
		if target[i] == '?' {
			return target[:i]
		}
	}
	return target
}

func buildMiddlewareRequest(req *wire.Request) middleware.Request {
	return middleware.Request{
		Method:  req.Method.String(),
		Path:    requestPath(req.Target),
		Headers: req.Headers,
	}
}

// writeSimple produces a complete, non-streamed response: status line,
// Content-Type/Content-Length, body, and End. Used for the router's built-in
// 404/405/301 outcomes and for middleware Respond/Fail short-circuits.
func writeSimple(w *respwriter.Writer, isHead bool, status int, reason string, body []byte, contentType string, extraHeaders map[string]string) int {
	_ = w.Status(status, reason)
	if contentType != "" {
		_ = w.ContentType(contentType)
	}
	for name, value := range extraHeaders {
		_ = w.Header(name, value)
	}
	_ = w.ContentLength(int64(len(body)))
	if !isHead {
		w.WriteBody(body)
	} else {
		w.WriteBody(nil)
	}
	_ = w.End()
	return status
}

var reasonPhrases = map[int]string{
	200: "OK",
	204: "No Content",
	301: "Moved Permanently",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	417: "Expectation Failed",
	500: "Internal Server Error",
}

func reasonFor(status int) string {
	if r, ok := reasonPhrases[status]; ok {
		return r
	}
	return ""
}

var notFoundBody = []byte("<html><body><h1>404 Not Found</h1></body></html>")

// dispatch runs one request through the CORS/middleware/routing envelope,
// invoking handler at most once, and returns the final status code for
// telemetry. w must be Open; dispatch always leaves it Ended or Failed.
func dispatch(rtr *router.Router, chain *middleware.Chain, cors *middleware.CORSPolicy, req *wire.Request, w *respwriter.Writer, isHead bool) int {
	path := requestPath(req.Target)
	origin, hasOrigin := req.Headers.Get("Origin")

	if cors != nil && hasOrigin {
		if reqMethod, isPreflight := req.Headers.Get("Access-Control-Request-Method"); req.Method == wire.MethodOptions && isPreflight {
			return dispatchPreflight(rtr, cors, path, origin, reqMethod, req, w, isHead)
		}
	}

	mwReq := buildMiddlewareRequest(req)

	if chain != nil {
		if res := chain.RunBefore(mwReq, nil); res.Outcome != middleware.Continue {
			return dispatchShortCircuit(w, isHead, res)
		}
	}

	method, ok := translateMethod(req.Method)
	if !ok {
		return writeSimple(w, isHead, 400, reasonFor(400), nil, "", nil)
	}

	match, found := rtr.Match(method, path)
	status := 0
	switch {
	case !found:
		status = writeSimple(w, isHead, 404, reasonFor(404), notFoundBody, "text/html; charset=utf-8", nil)
	case match.RedirectTo != "":
		status = writeSimple(w, isHead, 301, reasonFor(301), nil, "", map[string]string{"Location": match.RedirectTo})
	case match.MethodNotAllowed:
		status = writeSimple(w, isHead, 405, reasonFor(405), nil, "", map[string]string{"Allow": router.AllowHeader(match.AllowedMethods)})
	default:
		if cors != nil && hasOrigin {
			if decision := middleware.EvaluateActual(cors, w.Headers(), origin); !decision.Allowed {
				status = writeSimple(w, isHead, decision.StatusCode, reasonFor(decision.StatusCode), nil, "", nil)
				if chain != nil {
					runAfterIfOpen(chain, mwReq, w)
				}
				return status
			}
		}
		status = invokeHandler(match, req, w, isHead)
	}

	if chain != nil {
		runAfterIfOpen(chain, mwReq, w)
	}

	// invokeHandler leaves w at HeadersSent (or Open, if the handler never
	// wrote a body) so runAfterIfOpen still had a chance to mutate headers;
	// End is idempotent for the writeSimple branches above, which already
	// called it.
	_ = w.End()
	return status
}

// dispatchPreflight answers a CORS preflight OPTIONS request directly,
// consulting the router only to learn which methods the path would accept
// (spec.md §4.4); it never reaches the global middleware chain or a handler.
func dispatchPreflight(rtr *router.Router, cors *middleware.CORSPolicy, path, origin, reqMethod string, req *wire.Request, w *respwriter.Writer, isHead bool) int {
	allowed := routeAllowedMethods(rtr, path)
	reqHeaders, _ := req.Headers.Get("Access-Control-Request-Headers")

	decision := middleware.EvaluatePreflight(cors, origin, reqMethod, reqHeaders, allowed)
	if !decision.Allowed {
		var extra map[string]string
		if decision.StatusCode == 405 && allowed != 0 {
			extra = map[string]string{"Allow": router.AllowHeader(allowed)}
		}
		return writeSimple(w, isHead, decision.StatusCode, reasonFor(decision.StatusCode), nil, "", extra)
	}

	middleware.ApplyPreflight(cors, w.Headers(), origin)
	return writeSimple(w, isHead, decision.StatusCode, reasonFor(decision.StatusCode), nil, "", nil)
}

// invokeHandler calls the matched route handler with a fresh Context and
// finalizes the writer. A handler is expected to drive ctx.Writer directly
// (Status/Header/WriteBody) but must not call End itself; dispatch owns End
// so the response-middleware pass still has a chance to inspect headers
// before they are serialized, provided the handler has not already forced a
// header flush via WriteBody. ctx.Request holds the full *wire.Request (not
// just the middleware's trimmed view) so handlers can read the body.
func invokeHandler(match router.MatchResult, req *wire.Request, w *respwriter.Writer, isHead bool) (status int) {
	ctx := &router.Context{Params: match.Params, Writer: w, Request: req}

	status = 500
	func() {
		defer func() {
			if r := recover(); r != nil {
				// spec.md §6.5: handler panics never escape the loop; they
				// are translated to a generic 500.
				if w.State() == respwriter.Open {
					writeSimple(w, isHead, 500, reasonFor(500), nil, "", nil)
				}
				status = 500
			}
		}()

		resp := match.Handler(ctx)
		if resp != nil {
			status = resp.StatusCode()
		} else {
			status = w.StatusCode()
		}
		if w.State() == respwriter.Open {
			// Handler declared a status/body through the Response return
			// value alone, without touching ctx.Writer: synthesize a
			// matching writer response so the connection still frames a
			// reply.
			_ = w.Status(status, reasonFor(status))
			_ = w.ContentLength(0)
			w.WriteBody(nil)
		}
	}()

	return status
}

func runAfterIfOpen(chain *middleware.Chain, mwReq middleware.Request, w *respwriter.Writer) {
	if w.State() != respwriter.Open {
		// Headers already flushed by the handler's first WriteBody/End; the
		// response-middleware pass still runs (for side effects such as
		// logging) but header mutation at this point would no longer be
		// visible on the wire.
		chain.RunAfter(mwReq, nil, headers.NewResponseHeaders())
		return
	}
	chain.RunAfter(mwReq, nil, w.Headers())
}

func dispatchShortCircuit(w *respwriter.Writer, isHead bool, res middleware.Result) int {
	switch res.Outcome {
	case middleware.Respond:
		contentType := res.BodyType
		if contentType == "" {
			contentType = "text/plain; charset=utf-8"
		}
		return writeSimple(w, isHead, 200, reasonFor(200), res.Body, contentType, nil)
	case middleware.Fail:
		status := res.StatusCode
		if status == 0 {
			status = 400
		}
		body := []byte(res.Reason)
		return writeSimple(w, isHead, status, reasonFor(status), body, "text/plain; charset=utf-8", nil)
	default:
		return writeSimple(w, isHead, 500, reasonFor(500), nil, "", nil)
	}
}
