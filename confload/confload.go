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

// Package confload loads srvconfig.Config from a file via spf13/viper
// (UnmarshalKey, the teacher's config/components/http._getConfig idiom)
// and watches it for changes (viper.WatchConfig, backed by fsnotify), so
// an edited config file turns into a decoded, validated srvconfig.Config
// delivered on Changes() without the host application writing its own file
// watcher.
package confload

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/sabouaram/reactorhttp/rerrors"
	"github.com/sabouaram/reactorhttp/srvconfig"
)

const (
	ErrNotInitialized rerrors.CodeError = iota + rerrors.MinPkgConfLoad
	ErrDecodeFailed
	ErrValidationFailed
)

func init() {
	rerrors.RegisterIdFctMessage(ErrNotInitialized, func(rerrors.CodeError) string { return "confload: not initialized" })
	rerrors.RegisterIdFctMessage(ErrDecodeFailed, func(rerrors.CodeError) string { return "confload: failed decoding configuration" })
	rerrors.RegisterIdFctMessage(ErrValidationFailed, func(rerrors.CodeError) string { return "confload: loaded configuration failed validation" })
}

// Loader decodes a srvconfig.Config from a viper-backed source and can
// watch the underlying file for edits, delivering each successfully
// decoded and validated revision on Changes().
type Loader struct {
	mu      sync.Mutex
	vpr     *viper.Viper
	key     string
	changes chan srvconfig.Config
}

// New wraps v, decoding the sub-tree at key (empty key decodes the whole
// document) into a srvconfig.Config.
func New(v *viper.Viper, key string) *Loader {
	return &Loader{vpr: v, key: key, changes: make(chan srvconfig.Config, 1)}
}

// NewFromFile builds a viper.Viper reading path and wraps it via New.
func NewFromFile(path, key string) (*Loader, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, rerrors.New(ErrDecodeFailed, path, err)
	}
	return New(v, key), nil
}

// Load decodes the current configuration once, applying validator/v10
// struct-tag validation before returning it.
func (l *Loader) Load() (srvconfig.Config, error) {
	if l == nil || l.vpr == nil {
		return srvconfig.Config{}, rerrors.New(ErrNotInitialized, "")
	}

	cfg := srvconfig.Default()

	var err error
	if len(l.key) > 0 {
		err = l.vpr.UnmarshalKey(l.key, &cfg)
	} else {
		err = l.vpr.Unmarshal(&cfg)
	}
	if err != nil {
		return srvconfig.Config{}, rerrors.New(ErrDecodeFailed, "", err)
	}

	if err = cfg.Validate(); err != nil {
		return srvconfig.Config{}, rerrors.New(ErrValidationFailed, "", err)
	}

	return cfg, nil
}

// Changes returns the channel fed by Watch. The channel is never closed;
// callers should select on it alongside a context's Done channel.
func (l *Loader) Changes() <-chan srvconfig.Config {
	return l.changes
}

// Watch starts viper's file watcher; every detected change is decoded and
// validated, and successful revisions are pushed to Changes(). Decode or
// validation failures on a watched change are dropped rather than sent,
// so a bad edit cannot crash the reactor's config-update consumer; callers
// wanting visibility into drops should call Load() themselves on a timer
// instead of relying solely on Watch.
func (l *Loader) Watch() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.vpr.OnConfigChange(func(_ fsnotify.Event) {
		if cfg, err := l.Load(); err == nil {
			select {
			case l.changes <- cfg:
			default:
				<-l.changes
				l.changes <- cfg
			}
		}
	})
	l.vpr.WatchConfig()
}
