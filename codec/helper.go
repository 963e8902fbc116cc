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
	"bytes"
	"io"
)

const chunkSize = 856

// direction picks which half of a Helper's algorithm a Stream operates in.
type direction uint8

const (
	toCompressed direction = iota
	toDecompressed
)

// Helper streams a response body through a codec without requiring the
// whole payload to live in memory at once: respwriter feeds it chunkSize
// slices as they become available and drains the compressed/decompressed
// side as soon as the underlying writer accepts bytes.
type Helper interface {
	io.ReadWriter
	Close() error
}

type streamHelper struct {
	dir    direction
	algo   Algorithm
	in     bytes.Buffer // raw bytes accumulated via Write, chunked at chunkSize
	out    bytes.Buffer // compressed/decompressed bytes ready for Read, once closed
	cw     io.WriteCloser
	closed bool
}

// NewStreamCompressor returns a Helper that compresses everything written
// to it with algo, making the compressed bytes available through Read
// once Close flushes the encoder.
func NewStreamCompressor(algo Algorithm) (Helper, error) {
	h := &streamHelper{dir: toCompressed, algo: algo}
	w, err := algo.Writer(&h.out)
	if err != nil {
		return nil, err
	}
	h.cw = w
	return h, nil
}

// NewStreamDecompressor returns a Helper that decompresses everything
// written to it assuming algo. Because most decoders need to read their
// own header before producing output, the decode runs lazily on Close
// rather than incrementally on each Write.
func NewStreamDecompressor(algo Algorithm) (Helper, error) {
	return &streamHelper{dir: toDecompressed, algo: algo}, nil
}

// Write buffers input in chunkSize-sized slices, matching the chunk size
// the reference compressor used; for the compress direction it also pushes
// each chunk straight through the encoder so large bodies do not need to
// be held twice over.
func (h *streamHelper) Write(p []byte) (int, error) {
	if h.dir == toDecompressed {
		return h.in.Write(p)
	}
	for off := 0; off < len(p); off += chunkSize {
		end := off + chunkSize
		if end > len(p) {
			end = len(p)
		}
		if _, err := h.cw.Write(p[off:end]); err != nil {
			return off, err
		}
	}
	return len(p), nil
}

func (h *streamHelper) Read(p []byte) (int, error) {
	return h.out.Read(p)
}

// Close flushes the compress side's encoder, or for the decompress side
// runs the decode chain now that the full compressed payload has arrived.
func (h *streamHelper) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true

	if h.dir == toCompressed {
		return h.cw.Close()
	}

	r, err := h.algo.Reader(&h.in)
	if err != nil {
		return err
	}
	if _, err := io.Copy(&h.out, r); err != nil {
		_ = r.Close()
		return err
	}
	return r.Close()
}
