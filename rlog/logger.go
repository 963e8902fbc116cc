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

package rlog

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

type lgr struct {
	mu    sync.RWMutex
	lg    *logrus.Logger
	lvl   atomic.Int32
	trace bool
}

// New builds a Logger backed by logrus, configured from opts.
func New(opts Options) Logger {
	lg := logrus.New()
	lg.SetOutput(opts.output())
	lg.SetLevel(opts.level().logrus())

	if opts.EnableJSON {
		lg.SetFormatter(&logrus.JSONFormatter{DisableTimestamp: opts.DisableTime})
	} else {
		lg.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: opts.DisableTime,
			FullTimestamp:    !opts.DisableTime,
		})
	}

	o := &lgr{lg: lg, trace: opts.EnableTrace}
	o.lvl.Store(int32(opts.level()))
	return o
}

func (o *lgr) SetLevel(lvl Level) {
	o.lvl.Store(int32(lvl))

	o.mu.Lock()
	defer o.mu.Unlock()
	o.lg.SetLevel(lvl.logrus())
}

func (o *lgr) GetLevel() Level {
	return Level(o.lvl.Load())
}

func (o *lgr) Entry(lvl Level, message string, args ...interface{}) *Entry {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}

	return newEntry(o.logrus, lvl, message, o.trace)
}

func (o *lgr) SetOutput(w io.Writer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lg.SetOutput(w)
}

func (o *lgr) Write(p []byte) (int, error) {
	o.mu.RLock()
	lg := o.lg
	o.mu.RUnlock()

	return lg.Out.Write(p)
}

func (o *lgr) Close() error {
	return nil
}

func (o *lgr) logrus() *logrus.Logger {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lg
}
