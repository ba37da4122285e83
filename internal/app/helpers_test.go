package app

import (
	"strings"
	"testing"
	"time"

	"horse.fit/glossa/internal/settings"
)

func TestParseOutputFormat(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "table", want: outputFormatTable},
		{raw: "JSON", want: outputFormatJSON},
		{raw: " json ", want: outputFormatJSON},
		{raw: "", want: outputFormatTable},
		{raw: "yaml", wantErr: true},
	}

	for _, tc := range cases {
		got, err := parseOutputFormat(tc.raw, outputFormatTable)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseOutputFormat(%q): expected error, got %q", tc.raw, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseOutputFormat(%q) failed: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("parseOutputFormat(%q): got %q want %q", tc.raw, got, tc.want)
		}
	}
}

func TestTruncateForTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw    string
		maxLen int
		want   string
	}{
		{raw: "short", maxLen: 10, want: "short"},
		{raw: "  spaced   out  ", maxLen: 20, want: "spaced out"},
		{raw: "line one\n\nline two", maxLen: 0, want: "line one line two"},
		{raw: "abcdefghij", maxLen: 8, want: "abcde..."},
		{raw: "abcdefghij", maxLen: 3, want: "abc"},
		{raw: "héllo wörld", maxLen: 7, want: "héll..."},
	}

	for _, tc := range cases {
		if got := truncateForTable(tc.raw, tc.maxLen); got != tc.want {
			t.Fatalf("truncateForTable(%q, %d): got %q want %q", tc.raw, tc.maxLen, got, tc.want)
		}
	}
}

func TestFormatUTCTimestamp(t *testing.T) {
	t.Parallel()

	if got := formatUTCTimestamp(time.Time{}); got != "" {
		t.Fatalf("zero time: got %q want empty string", got)
	}

	moment := time.Date(2026, 3, 14, 15, 9, 26, 0, time.FixedZone("CET", 3600))
	if got := formatUTCTimestamp(moment); got != "2026-03-14T14:09:26Z" {
		t.Fatalf("got %q want %q", got, "2026-03-14T14:09:26Z")
	}
}

func TestResolveSettingsKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw   string
		want  string
		known bool
	}{
		{raw: "translate.target_language", want: settings.TargetLanguageKey, known: true},
		{raw: "translate:target_language", want: settings.TargetLanguageKey, known: true},
		{raw: "TRANSLATE.TARGET_LANGUAGE", want: settings.TargetLanguageKey, known: true},
		{raw: "theme", known: false},
		{raw: "", known: false},
	}

	for _, tc := range cases {
		got, known := resolveSettingsKey(tc.raw)
		if known != tc.known || got != tc.want {
			t.Fatalf("resolveSettingsKey(%q): got (%q, %v) want (%q, %v)", tc.raw, got, known, tc.want, tc.known)
		}
	}
}

func TestBuildUnitFile(t *testing.T) {
	t.Parallel()

	unit := buildUnitFile("glossa", "/usr/local/bin/glossa", ":8080", "/etc/glossa/.env")

	for _, want := range []string{
		"User=glossa",
		"WorkingDirectory=/usr/local/bin",
		"EnvironmentFile=/etc/glossa/.env",
		"ExecStart=/usr/local/bin/glossa serve --listen :8080",
		"WantedBy=multi-user.target",
	} {
		if !strings.Contains(unit, want) {
			t.Fatalf("unit file is missing %q:\n%s", want, unit)
		}
	}
}

func TestBuildUnitFileWithoutEnvFile(t *testing.T) {
	t.Parallel()

	unit := buildUnitFile("root", "/opt/glossa/glossa", "127.0.0.1:9000", "")
	if strings.Contains(unit, "EnvironmentFile=") {
		t.Fatalf("unit file must omit EnvironmentFile when none is given:\n%s", unit)
	}
	if !strings.Contains(unit, "ExecStart=/opt/glossa/glossa serve --listen 127.0.0.1:9000") {
		t.Fatalf("unexpected ExecStart line:\n%s", unit)
	}
}
