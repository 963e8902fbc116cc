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

package headers

import "unsafe"

// entry records where one header's name and value sit inside Buf, so Set can
// find and resize them without rescanning.
type entry struct {
	nameStart, nameEnd   int
	valueStart, valueEnd int
}

// ResponseHeaders is the flat `Name: Value\r\n` byte buffer backing
// HttpResponse. Insertion appends; replacement edits the existing line in
// place (shifting tail bytes when the new value's length differs) and keeps
// the casing of the name as it was first inserted.
type ResponseHeaders struct {
	Buf     []byte
	entries []entry
	index   map[string]int
}

func NewResponseHeaders() *ResponseHeaders {
	return &ResponseHeaders{index: make(map[string]int)}
}

// Add appends a new `Name: Value\r\n` line unconditionally (used for
// multi-value headers like Set-Cookie where each call is a distinct line).
func (h *ResponseHeaders) Add(name, value string) {
	value = h.guardSelfReference(value)

	nameStart := len(h.Buf)
	h.Buf = append(h.Buf, name...)
	nameEnd := len(h.Buf)

	h.Buf = append(h.Buf, ':', ' ')

	valueStart := len(h.Buf)
	h.Buf = append(h.Buf, value...)
	valueEnd := len(h.Buf)

	h.Buf = append(h.Buf, '\r', '\n')

	e := entry{nameStart: nameStart, nameEnd: nameEnd, valueStart: valueStart, valueEnd: valueEnd}
	h.entries = append(h.entries, e)

	if _, ok := h.index[Fold(name)]; !ok {
		h.index[Fold(name)] = len(h.entries) - 1
	}
}

// Set replaces the value of the first occurrence of name, preserving its
// original casing, or appends a new line if name is not yet present.
func (h *ResponseHeaders) Set(name, value string) {
	key := Fold(name)

	idx, ok := h.index[key]
	if !ok {
		h.Add(name, value)
		return
	}

	value = h.guardSelfReference(value)
	h.replaceValue(idx, value)
}

// Get returns the first occurrence's value, case-insensitively.
func (h *ResponseHeaders) Get(name string) (string, bool) {
	idx, ok := h.index[Fold(name)]
	if !ok {
		return "", false
	}
	e := h.entries[idx]
	return string(h.Buf[e.valueStart:e.valueEnd]), true
}

// guardSelfReference copies value through an intermediary buffer if it could
// be a slice into h.Buf itself: any later append/realloc of h.Buf would
// otherwise corrupt value out from under the caller before it is written.
func (h *ResponseHeaders) guardSelfReference(value string) string {
	if len(h.Buf) == 0 || len(value) == 0 {
		return value
	}

	vp := stringDataPtr(value)
	bp := uintptr(unsafe.Pointer(&h.Buf[0]))
	bEnd := bp + uintptr(len(h.Buf))

	if vp >= bp && vp < bEnd {
		cp := make([]byte, len(value))
		copy(cp, value)
		return string(cp)
	}

	return value
}

func (h *ResponseHeaders) replaceValue(idx int, newValue string) {
	e := h.entries[idx]
	oldLen := e.valueEnd - e.valueStart
	newLen := len(newValue)
	delta := newLen - oldLen

	if delta == 0 {
		copy(h.Buf[e.valueStart:e.valueEnd], newValue)
		return
	}

	tail := make([]byte, len(h.Buf)-e.valueEnd)
	copy(tail, h.Buf[e.valueEnd:])

	h.Buf = h.Buf[:e.valueStart]
	h.Buf = append(h.Buf, newValue...)
	h.Buf = append(h.Buf, tail...)

	h.entries[idx].valueEnd = e.valueStart + newLen

	for i := range h.entries {
		if i == idx {
			continue
		}
		if h.entries[i].nameStart >= e.valueEnd {
			h.entries[i].nameStart += delta
			h.entries[i].nameEnd += delta
			h.entries[i].valueStart += delta
			h.entries[i].valueEnd += delta
		}
	}
}

// Bytes returns the serialized header block, ready to be appended after the
// status line.
func (h *ResponseHeaders) Bytes() []byte {
	return h.Buf
}

// Reset clears the buffer for reuse across responses on the same connection.
func (h *ResponseHeaders) Reset() {
	h.Buf = h.Buf[:0]
	h.entries = h.entries[:0]
	for k := range h.index {
		delete(h.index, k)
	}
}

// stringDataPtr returns the address of a string's backing bytes without
// copying, used only to detect whether a caller-supplied value aliases this
// buffer's storage.
func stringDataPtr(s string) uintptr {
	if len(s) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.StringData(s)))
}
