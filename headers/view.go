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

// View is one header occurrence: Name/Value are strings the parser copied
// out of the connection read buffer, so they do not alias that buffer.
type View struct {
	Name  string
	Value string
}

// ViewMap is the case-insensitive request/trailer header container. It
// preserves insertion order for iteration while offering O(1) folded lookup.
type ViewMap struct {
	order []View
	index map[string]int // folded name -> index of the merged/kept entry
}

func NewViewMap() *ViewMap {
	return &ViewMap{index: make(map[string]int)}
}

// Add inserts name/value applying the duplicate policy. When forTrailer is
// set, names in the forbidden-trailer set are rejected; other adds get no
// forbidden-name check.
func (m *ViewMap) Add(name, value string, mergeUnknown, forTrailer bool) error {
	if forTrailer && IsForbiddenTrailer(name) {
		return errForbiddenTrailer(name)
	}

	key := Fold(name)

	if idx, ok := m.index[key]; ok {
		switch policyFor(name, mergeUnknown) {
		case DupMerge:
			m.order[idx].Value = m.order[idx].Value + ", " + value
			return nil
		case DupKeepLast:
			m.order[idx] = View{Name: m.order[idx].Name, Value: value}
			return nil
		default:
			return errDuplicateRejected(name)
		}
	}

	m.index[key] = len(m.order)
	m.order = append(m.order, View{Name: name, Value: value})
	return nil
}

// Get returns the (possibly merged) value for name, case-insensitively.
func (m *ViewMap) Get(name string) (string, bool) {
	if idx, ok := m.index[Fold(name)]; ok {
		return m.order[idx].Value, true
	}
	return "", false
}

func (m *ViewMap) Has(name string) bool {
	_, ok := m.index[Fold(name)]
	return ok
}

// All returns header entries in insertion order.
func (m *ViewMap) All() []View {
	return m.order
}

// Reset clears the map for reuse across requests on the same connection,
// avoiding a fresh allocation per parsed request.
func (m *ViewMap) Reset() {
	m.order = m.order[:0]
	for k := range m.index {
		delete(m.index, k)
	}
}

type policyError struct {
	kind string
	name string
}

func (e *policyError) Error() string {
	return e.kind + ": " + e.name
}

func errForbiddenTrailer(name string) error {
	return &policyError{kind: "forbidden trailer header", name: name}
}

func errDuplicateRejected(name string) error {
	return &policyError{kind: "duplicate header rejected", name: name}
}
