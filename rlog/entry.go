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
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	FieldStack  = "stack"
	FieldCaller = "caller"
	FieldFile   = "file"
	FieldLine   = "line"
	FieldError  = "error"
	FieldData   = "data"
)

// Entry is a single log record being built up before Log() flushes it to the
// underlying logrus.Logger. It is not safe for concurrent use by design: a
// subsystem obtains one Entry per log call from rlog.Logger.Entry.
type Entry struct {
	log func() *logrus.Logger

	Time    time.Time
	Level   Level
	Caller  string
	File    string
	Line    uint32
	Message string
	Error   []error
	Data    interface{}
	Fields  Fields
}

func newEntry(log func() *logrus.Logger, lvl Level, message string, trace bool) *Entry {
	e := &Entry{
		log:     log,
		Time:    time.Now(),
		Level:   lvl,
		Message: message,
		Fields:  NewFields(),
	}

	if trace {
		e.setCaller(3)
	}

	return e
}

func (e *Entry) setCaller(skip int) {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return
	}

	e.File = file
	e.Line = uint32(line)

	if fn := runtime.FuncForPC(pc); fn != nil {
		name := fn.Name()
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		e.Caller = name
	}
}

func (e *Entry) FieldAdd(key string, val interface{}) *Entry {
	if e == nil {
		return e
	}

	e.Fields = e.Fields.Add(key, val)
	return e
}

func (e *Entry) FieldMerge(fields Fields) *Entry {
	if e == nil {
		return e
	}

	e.Fields = e.Fields.Merge(fields)
	return e
}

func (e *Entry) DataSet(data interface{}) *Entry {
	if e == nil {
		return e
	}

	e.Data = data
	return e
}

// ErrorAdd appends non-nil errors to the entry. When cleanNil is true, a nil
// error in the variadic list is silently skipped instead of being recorded,
// which matches the most common call shape: `ent.ErrorAdd(true, err)` where
// err may or may not be nil.
func (e *Entry) ErrorAdd(cleanNil bool, err ...error) *Entry {
	if e == nil {
		return e
	}

	for _, x := range err {
		if x == nil && cleanNil {
			continue
		}
		e.Error = append(e.Error, x)
	}

	return e
}

// Check promotes an entry that carries at least one error to lvlNoErr when
// its level is less severe, then reports whether the entry's level is not
// NilLevel. It does not compare against the logger's configured level.
func (e *Entry) Check(lvlNoErr Level) bool {
	if e == nil || e.log == nil {
		return false
	}

	if len(e.Error) > 0 && e.Level > lvlNoErr {
		e.Level = lvlNoErr
	}

	return e.Level != NilLevel
}

// Log flushes the entry to the underlying logrus.Logger. Safe to call on a
// nil Entry (no-op), matching the teacher's defensive method-on-nil idiom.
func (e *Entry) Log() {
	if e == nil || e.log == nil || e.Level == NilLevel {
		return
	}

	lg := e.log()
	if lg == nil {
		return
	}

	fields := logrus.Fields(e.Fields.toLogrus())

	if e.Caller != "" {
		fields[FieldCaller] = e.Caller
	}
	if e.File != "" {
		fields[FieldFile] = e.File + ":" + strconv.FormatUint(uint64(e.Line), 10)
	}
	if e.Data != nil {
		fields[FieldData] = e.Data
	}
	if len(e.Error) > 0 {
		msgs := make([]string, 0, len(e.Error))
		for _, er := range e.Error {
			if er != nil {
				msgs = append(msgs, er.Error())
			}
		}
		if len(msgs) > 0 {
			fields[FieldError] = strings.Join(msgs, "; ")
		}
	}

	lg.WithFields(fields).WithTime(e.Time).Log(e.Level.logrus(), e.Message)
}
