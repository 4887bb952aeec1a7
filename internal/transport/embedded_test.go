package transport

import (
	"errors"
	"testing"
	"time"
)

func TestNewEmbeddedTor(t *testing.T) {
	t.Parallel()

	t.Run("default timeout", func(t *testing.T) {
		t.Parallel()

		e := NewEmbeddedTor()
		if e.startupTimeout != DefaultTorStartupTimeout {
			t.Errorf("expected %v, got %v", DefaultTorStartupTimeout, e.startupTimeout)
		}
	})

	t.Run("WithStartupTimeout", func(t *testing.T) {
		t.Parallel()

		e := NewEmbeddedTor(WithStartupTimeout(5 * time.Minute))
		if e.startupTimeout != 5*time.Minute {
			t.Errorf("expected 5m, got %v", e.startupTimeout)
		}
	})

	t.Run("non-positive timeout is ignored", func(t *testing.T) {
		t.Parallel()

		e := NewEmbeddedTor(WithStartupTimeout(0))
		if e.startupTimeout != DefaultTorStartupTimeout {
			t.Errorf("expected default timeout, got %v", e.startupTimeout)
		}
	})
}

func TestEmbeddedTorBeforeStart(t *testing.T) {
	t.Parallel()

	e := NewEmbeddedTor()

	if e.IsRunning() {
		t.Error("expected IsRunning to be false")
	}
	if e.SocksAddr() != "" {
		t.Errorf("expected empty SocksAddr, got %q", e.SocksAddr())
	}
	if err := e.Stop(); err != nil {
		t.Errorf("expected Stop on unstarted instance to succeed, got %v", err)
	}
	if _, err := e.HTTPClient(); !errors.Is(err, ErrTorNotRunning) {
		t.Errorf("expected ErrTorNotRunning, got %v", err)
	}
}
