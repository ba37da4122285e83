package catalog

import "testing"

func TestNormalizeTag(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{name: "underscore and case", raw: " EN_us ", want: "en-us"},
		{name: "script subtag", raw: "zh-Hans", want: "zh-hans"},
		{name: "empty subtag collapsed", raw: "en--US", want: "en-us"},
		{name: "digits rejected", raw: "en_123", want: ""},
		{name: "blank", raw: "   ", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeTag(tc.raw); got != tc.want {
				t.Fatalf("NormalizeTag(%q): got %q want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	if got := NormalizeCode(" EN-us "); got != "en" {
		t.Fatalf("region tag not reduced: got %q want %q", got, "en")
	}
	if got := NormalizeCode("zh"); got != "zh" {
		t.Fatalf("bare code changed: got %q", got)
	}
	if got := NormalizeCode(" "); got != "" {
		t.Fatalf("blank input: got %q want empty", got)
	}
}
