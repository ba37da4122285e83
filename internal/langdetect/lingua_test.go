package langdetect

import "testing"

func TestDetectISO6391(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want string
	}{
		{name: "english", text: "The quick brown fox jumps over the lazy dog near the river bank.", want: "en"},
		{name: "german", text: "Als Gregor Samsa eines Morgens aus unruhigen Träumen erwachte, fand er sich in seinem Bett verwandelt.", want: "de"},
		{name: "empty", text: "", want: ""},
		{name: "whitespace only", text: "   \n\t  ", want: ""},
		{name: "too few letters", text: "42 + 7", want: ""},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := DetectISO6391(tc.text); got != tc.want {
				t.Fatalf("DetectISO6391(%q): got %q want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestDetectOrUnd(t *testing.T) {
	t.Parallel()

	if got := DetectOrUnd(""); got != "und" {
		t.Fatalf("undetectable text: got %q want %q", got, "und")
	}
	if got := DetectOrUnd("Cela fait longtemps que je voulais visiter ce musée avec mes amis."); got != "fr" {
		t.Fatalf("french text: got %q want %q", got, "fr")
	}
}
