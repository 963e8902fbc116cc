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

import "github.com/sabouaram/reactorhttp/rerrors"

const (
	ErrBadRequest rerrors.CodeError = iota + rerrors.MinPkgWire
	ErrHeaderTooLarge
	ErrBodyTooLarge
	ErrUnsupportedVersion
	ErrExpectationFailed
	ErrUnsupportedEncoding
)

func init() {
	rerrors.RegisterIdFctMessage(ErrBadRequest, func(c rerrors.CodeError) string {
		switch c {
		case ErrBadRequest:
			return "malformed request"
		case ErrHeaderTooLarge:
			return "request header fields too large"
		case ErrBodyTooLarge:
			return "request body too large"
		case ErrUnsupportedVersion:
			return "unsupported HTTP version"
		case ErrExpectationFailed:
			return "expectation failed"
		case ErrUnsupportedEncoding:
			return "unsupported content encoding"
		default:
			return rerrors.UnknownMessage
		}
	})
}

// ParseError pairs a coded error with the HTTP status it must produce.
type ParseError struct {
	rerrors.Error
	Status int
}

func newParseError(status int, code rerrors.CodeError, message string) *ParseError {
	return &ParseError{Error: rerrors.New(code, message), Status: status}
}
