package catalog

import (
	"context"
	"testing"
	"time"
)

func TestResolveBeforeLoad(t *testing.T) {
	t.Parallel()

	c := New()
	if c.Ready() {
		t.Fatal("expected catalog to start not ready")
	}
	if got := c.Resolve("en"); !got.IsUnknown() {
		t.Fatalf("expected Unknown before load, got %+v", got)
	}
}

func TestResolveAfterLoad(t *testing.T) {
	t.Parallel()

	c := New()
	c.Load()

	if !c.Ready() {
		t.Fatal("expected catalog to be ready after load")
	}

	got := c.Resolve(" EN-us ")
	if got.Code != "en" || got.Label != "English" {
		t.Fatalf("unexpected resolved language: %+v", got)
	}

	native := c.Resolve("zh")
	if native.Native != "中文" {
		t.Fatalf("unexpected native label: %q", native.Native)
	}

	if miss := c.Resolve("xx"); !miss.IsUnknown() {
		t.Fatalf("expected Unknown for unlisted code, got %+v", miss)
	}
	if miss := c.Resolve(""); !miss.IsUnknown() {
		t.Fatalf("expected Unknown for blank code, got %+v", miss)
	}
}

func TestLoadExtraCodes(t *testing.T) {
	t.Parallel()

	c := New()
	c.Load("NL", "en", "")

	extra := c.Resolve("nl")
	if extra.IsUnknown() {
		t.Fatal("expected extra code to resolve")
	}
	if extra.Label != "NL" {
		t.Fatalf("unexpected extra code label: %q", extra.Label)
	}

	builtin := c.Resolve("en")
	if builtin.Label != "English" {
		t.Fatalf("extra code must not shadow built-in label: %q", builtin.Label)
	}
}

func TestOptionsSorted(t *testing.T) {
	t.Parallel()

	c := New()
	c.Load()

	options := c.Options()
	if len(options) != len(builtinLanguageLabels) {
		t.Fatalf("unexpected option count: got %d want %d", len(options), len(builtinLanguageLabels))
	}
	for i := 1; i < len(options); i++ {
		if options[i-1].Code >= options[i].Code {
			t.Fatalf("options not sorted at %d: %q >= %q", i, options[i-1].Code, options[i].Code)
		}
	}
}

func TestWaitReady(t *testing.T) {
	t.Parallel()

	c := New()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.WaitReady(ctx); err == nil {
		t.Fatal("expected WaitReady to fail when catalog never loads")
	}

	c.Load()
	if err := c.WaitReady(context.Background()); err != nil {
		t.Fatalf("unexpected WaitReady error after load: %v", err)
	}

	// Readiness is sticky across repeated loads.
	c.Load()
	if err := c.WaitReady(context.Background()); err != nil {
		t.Fatalf("unexpected WaitReady error after reload: %v", err)
	}
}
