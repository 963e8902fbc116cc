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
	"io"
	"os"
)

// Options configures a new Logger. Field tags mirror the teacher's
// mapstructure-driven option structs so a Logger can be populated straight
// out of srvconfig/confload.
type Options struct {
	Level          string `json:"level,omitempty" yaml:"level,omitempty" toml:"level,omitempty" mapstructure:"level,omitempty"`
	DisableTime    bool   `json:"disableTime,omitempty" yaml:"disableTime,omitempty" toml:"disableTime,omitempty" mapstructure:"disableTime,omitempty"`
	EnableTrace    bool   `json:"enableTrace,omitempty" yaml:"enableTrace,omitempty" toml:"enableTrace,omitempty" mapstructure:"enableTrace,omitempty"`
	EnableJSON     bool   `json:"enableJson,omitempty" yaml:"enableJson,omitempty" toml:"enableJson,omitempty" mapstructure:"enableJson,omitempty"`
	Output         io.Writer
}

func (o Options) level() Level {
	if o.Level == "" {
		return InfoLevel
	}
	return ParseLevel(o.Level)
}

func (o Options) output() io.Writer {
	if o.Output != nil {
		return o.Output
	}
	return os.Stderr
}
