package reader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchSelectionExtractsArticleText(t *testing.T) {
	t.Parallel()

	page := `<!DOCTYPE html>
<html>
<head><title>Die Verwandlung</title></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>Die Verwandlung</h1>
<p>Als Gregor Samsa eines Morgens aus unruhigen Träumen erwachte, fand er sich
in seinem Bett zu einem ungeheueren Ungeziefer verwandelt.</p>
<p>Er lag auf seinem panzerartig harten Rücken und sah, wenn er den Kopf ein
wenig hob, seinen gewölbten, braunen, von bogenförmigen Versteifungen
geteilten Bauch.</p>
</article>
</body>
</html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	text, err := FetchSelection(context.Background(), srv.URL, FetchOptions{HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if !strings.Contains(text, "Gregor Samsa") {
		t.Fatalf("expected article body in selection, got %q", text)
	}
}

func TestFetchSelectionPlainText(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("  Line one \r\n\r\n Line   two  "))
	}))
	defer srv.Close()

	text, err := FetchSelection(context.Background(), srv.URL, FetchOptions{HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if text != "Line one\n\nLine two" {
		t.Fatalf("unexpected plain text selection: %q", text)
	}
}

func TestFetchSelectionRejectsErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := FetchSelection(context.Background(), srv.URL, FetchOptions{HTTPClient: srv.Client()}); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}

func TestFetchSelectionAppliesRuneCap(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer srv.Close()

	text, err := FetchSelection(context.Background(), srv.URL, FetchOptions{HTTPClient: srv.Client(), MaxRunes: 10})
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if got := len([]rune(text)); got != 10 {
		t.Fatalf("unexpected selection length: got %d want 10", got)
	}
	if !strings.HasSuffix(text, "…") {
		t.Fatalf("expected ellipsis suffix, got %q", text)
	}
}

func TestFetchSelectionRequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := FetchSelection(context.Background(), "   ", FetchOptions{}); err == nil {
		t.Fatal("expected an error for a blank URL")
	}
}

func TestCleanTextCollapsesWhitespaceAndPreservesParagraphs(t *testing.T) {
	t.Parallel()

	input := "  First   paragraph \n\n Second\tparagraph \r\n\r\nThird line "
	got := CleanText(input)
	want := "First paragraph\n\nSecond paragraph\n\nThird line"
	if got != want {
		t.Fatalf("CleanText mismatch\nwant: %q\ngot:  %q", want, got)
	}
}

func TestTruncateText(t *testing.T) {
	t.Parallel()

	got, truncated := TruncateText("abcdefghijklmnopqrstuvwxyz", 10)
	if !truncated {
		t.Fatal("expected truncated=true")
	}
	if got != "abcdefghi…" {
		t.Fatalf("unexpected truncated text: %q", got)
	}

	full, wasTruncated := TruncateText("short", 10)
	if wasTruncated {
		t.Fatal("expected truncated=false for short text")
	}
	if full != "short" {
		t.Fatalf("unexpected short text: %q", full)
	}
}
