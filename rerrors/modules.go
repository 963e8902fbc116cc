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

package rerrors

// Every package in this module reserves a 100-wide slice of the CodeError
// space so a code can be mapped back to its origin at a glance, the same
// convention the teacher's errors/modules.go uses for its own package list.
const (
	MinPkgReactor    = 100
	MinPkgWire       = 200
	MinPkgRouter     = 300
	MinPkgMiddleware = 400
	MinPkgCodec      = 500
	MinPkgRespWriter = 600
	MinPkgHeaders    = 700
	MinPkgSrvConfig  = 800
	MinPkgLifecycle  = 900
	MinPkgTLSBundle  = 1000
	MinPkgTelemetry  = 1100
	MinPkgConfLoad   = 1200

	MinAvailable = 2000
)
