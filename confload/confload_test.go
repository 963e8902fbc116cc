package confload

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
)

func viperFromYAML(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewBufferString(yaml)); err != nil {
		t.Fatalf("unexpected error reading config: %v", err)
	}
	return v
}

func TestLoadDecodesAndValidates(t *testing.T) {
	v := viperFromYAML(t, "port: 9443\nnb_threads: 4\nkeep_alive_enabled: true\n")
	l := New(v, "")

	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9443 || cfg.NbThreads != 4 {
		t.Fatalf("unexpected decoded config: %+v", cfg.Immutable)
	}
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	v := viperFromYAML(t, "port: 0\n")
	l := New(v, "")

	if _, err := l.Load(); err == nil {
		t.Fatalf("expected validation error for port 0")
	}
}

func TestLoadNilLoaderReportsNotInitialized(t *testing.T) {
	var l *Loader
	if _, err := l.Load(); err == nil {
		t.Fatalf("expected error from a nil loader")
	}
}

func TestLoadWithSubKey(t *testing.T) {
	v := viperFromYAML(t, "server:\n  port: 8443\n  nb_threads: 2\n")
	l := New(v, "server")

	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8443 {
		t.Fatalf("expected port decoded from sub-key, got %d", cfg.Port)
	}
}
