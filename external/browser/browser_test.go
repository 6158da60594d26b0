package browser

import (
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	b := New(Config{Headless: true})
	if b.cfg.Timeout != 30*time.Second {
		t.Fatalf("unexpected default timeout: %s", b.cfg.Timeout)
	}
	if b.MaxConcurrency() != 1 {
		t.Fatalf("browser must be used sequentially")
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close of an unstarted browser: %v", err)
	}
}

func TestPage_MaxConcurrency(t *testing.T) {
	t.Parallel()

	p := Page{Browser: New(Config{}), WaitSelector: ".card"}
	if p.MaxConcurrency() != 1 {
		t.Fatalf("rendered pages must be fetched one at a time")
	}
}
