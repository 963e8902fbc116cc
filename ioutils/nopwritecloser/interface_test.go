/*
 *  MIT License
 *
 *  Copyright (c) 2025 Nicolas JUHEL
 *
 *  Permission is hereby granted, free of charge, to any person obtaining a copy
 *  of this software and associated documentation files (the "Software"), to deal
 *  in the Software without restriction, including without limitation the rights
 *  to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 *  copies of the Software, and to permit persons to whom the Software is
 *  furnished to do so, subject to the following conditions:
 *
 *  The above copyright notice and this permission notice shall be included in all
 *  copies or substantial portions of the Software.
 *
 *  THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 *  IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 *  FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 *  AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 *  LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 *  OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 *  SOFTWARE.
 *
 */

package nopwritecloser

import (
	"bytes"
	"errors"
	"testing"
)

func TestWriteDelegatesToUnderlyingWriter(t *testing.T) {
	var buf bytes.Buffer
	wc := New(&buf)

	n, err := wc.Write([]byte("payload"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len("payload") {
		t.Fatalf("n = %d, want %d", n, len("payload"))
	}
	if buf.String() != "payload" {
		t.Fatalf("buf = %q, want %q", buf.String(), "payload")
	}
}

type errWriter struct{ err error }

func (e errWriter) Write([]byte) (int, error) { return 0, e.err }

func TestWritePropagatesUnderlyingError(t *testing.T) {
	wantErr := errors.New("boom")
	wc := New(errWriter{err: wantErr})

	if _, err := wc.Write([]byte("x")); err != wantErr {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestCloseIsNilAndIdempotent(t *testing.T) {
	wc := New(&bytes.Buffer{})
	if err := wc.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := wc.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
