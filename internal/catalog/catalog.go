package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Language is one selectable target language.
type Language struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Native string `json:"native,omitempty"`
}

// Unknown is returned for codes the catalog cannot resolve.
var Unknown = Language{Code: "und", Label: "Unknown"}

// DefaultTargetCode is the fallback target language.
const DefaultTargetCode = "en"

func (l Language) IsUnknown() bool {
	return l.Code == "" || l.Code == Unknown.Code
}

type languageLabel struct {
	english string
	native  string
}

var builtinLanguageLabels = map[string]languageLabel{
	"ar": {english: "Arabic", native: "阿拉伯语"},
	"de": {english: "German", native: "德语"},
	"en": {english: "English", native: "英语"},
	"es": {english: "Spanish", native: "西班牙语"},
	"fr": {english: "French", native: "法语"},
	"id": {english: "Indonesian", native: "印度尼西亚语"},
	"it": {english: "Italian", native: "意大利语"},
	"ja": {english: "Japanese", native: "日语"},
	"ko": {english: "Korean", native: "韩语"},
	"pl": {english: "Polish", native: "波兰语"},
	"pt": {english: "Portuguese", native: "葡萄牙语"},
	"ru": {english: "Russian", native: "俄语"},
	"th": {english: "Thai", native: "泰语"},
	"tr": {english: "Turkish", native: "土耳其语"},
	"vi": {english: "Vietnamese", native: "越南语"},
	"zh": {english: "Chinese", native: "中文"},
}

// Catalog resolves language codes to display labels. It starts empty and
// answers Resolve with Unknown until Load installs the language table.
type Catalog struct {
	mu        sync.RWMutex
	languages map[string]Language
	ready     chan struct{}
	loaded    bool
}

func New() *Catalog {
	return &Catalog{
		ready: make(chan struct{}),
	}
}

// Load installs the built-in language table plus any extra codes (for
// example, languages a completion endpoint advertises) and marks the
// catalog ready. Readiness is sticky across repeated loads.
func (c *Catalog) Load(extraCodes ...string) {
	if c == nil {
		return
	}

	languages := make(map[string]Language, len(builtinLanguageLabels)+len(extraCodes))
	for code, labels := range builtinLanguageLabels {
		languages[code] = Language{
			Code:   code,
			Label:  labels.english,
			Native: labels.native,
		}
	}
	for _, raw := range extraCodes {
		code := NormalizeCode(raw)
		if code == "" {
			continue
		}
		if _, exists := languages[code]; exists {
			continue
		}
		languages[code] = Language{
			Code:  code,
			Label: strings.ToUpper(code),
		}
	}

	c.mu.Lock()
	c.languages = languages
	alreadyLoaded := c.loaded
	c.loaded = true
	c.mu.Unlock()

	if !alreadyLoaded {
		close(c.ready)
	}
}

func (c *Catalog) Ready() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// WaitReady blocks until Load has run or the context ends.
func (c *Catalog) WaitReady(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("catalog is nil")
	}
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for language catalog: %w", ctx.Err())
	}
}

// Resolve normalizes a raw tag to its primary subtag and looks it up.
// Unresolvable codes return Unknown.
func (c *Catalog) Resolve(raw string) Language {
	if c == nil {
		return Unknown
	}
	code := NormalizeCode(raw)
	if code == "" {
		return Unknown
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if lang, ok := c.languages[code]; ok {
		return lang
	}
	return Unknown
}

// Options returns the selectable languages sorted by code.
func (c *Catalog) Options() []Language {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	options := make([]Language, 0, len(c.languages))
	for _, lang := range c.languages {
		options = append(options, lang)
	}
	sort.Slice(options, func(i, j int) bool {
		return options[i].Code < options[j].Code
	})
	return options
}
