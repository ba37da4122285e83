package catalog

import "strings"

// NormalizeTag canonicalizes a language tag: lowercase, "-" separators,
// empty subtags dropped. Returns "" for blank or malformed input.
func NormalizeTag(raw string) string {
	subtags := splitSubtags(raw)
	if subtags == nil {
		return ""
	}
	return strings.Join(subtags, "-")
}

// NormalizeCode reduces a tag to its primary language subtag, "de-DE" to "de".
func NormalizeCode(raw string) string {
	subtags := splitSubtags(raw)
	if subtags == nil {
		return ""
	}
	return subtags[0]
}

// splitSubtags lowercases raw, accepts "-" or "_" separators, and returns the
// non-empty subtags. Any character outside ASCII letters rejects the whole
// value.
func splitSubtags(raw string) []string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return nil
	}

	var subtags []string
	for _, subtag := range strings.FieldsFunc(lowered, isTagSeparator) {
		subtag = strings.TrimSpace(subtag)
		if subtag == "" {
			continue
		}
		for _, r := range subtag {
			if r < 'a' || r > 'z' {
				return nil
			}
		}
		subtags = append(subtags, subtag)
	}
	if len(subtags) == 0 {
		return nil
	}
	return subtags
}

func isTagSeparator(r rune) bool {
	return r == '-' || r == '_'
}
