package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"horse.fit/glossa/internal/catalog"
)

// Assistant binds one target language and one text selection to a
// ready-to-run translation prompt. Rebuilt whenever either changes;
// never mutated in place.
type Assistant struct {
	ID         string
	Name       string
	TargetLang catalog.Language
	SourceLang string
	Text       string
	Prompt     string
	CreatedAt  time.Time
}

// Topic is the conversation scope grouping one selection's requests and
// messages. Created once per session and reused across re-fetches.
type Topic struct {
	ID          string
	AssistantID string
	Name        string
	TargetLang  string
	CreatedAt   time.Time
}

// Build constructs a fresh assistant for the given target language and
// selection text. sourceLang may be empty or "und" when detection failed.
func Build(target catalog.Language, sourceLang, text string) Assistant {
	now := time.Now().UTC()
	return Assistant{
		ID:         xid.New().String(),
		Name:       fmt.Sprintf("Translate to %s", displayLabel(target)),
		TargetLang: target,
		SourceLang: catalog.NormalizeCode(sourceLang),
		Text:       text,
		Prompt:     TranslationPrompt(target, sourceLang, text),
		CreatedAt:  now,
	}
}

// NewTopic creates the conversation scope for an assistant.
func NewTopic(a Assistant) Topic {
	return Topic{
		ID:          xid.New().String(),
		AssistantID: a.ID,
		Name:        a.Name,
		TargetLang:  a.TargetLang.Code,
		CreatedAt:   time.Now().UTC(),
	}
}

// TranslationPrompt renders the HY-MT instruction for one selection.
// Chinese uses a dedicated template on either side of the pair.
func TranslationPrompt(target catalog.Language, sourceLang, text string) string {
	if isChinese(sourceLang) || isChinese(target.Code) {
		// HY-MT zh<=>xx template.
		return fmt.Sprintf("将以下文本翻译为%s，注意只需要输出翻译后的结果，不要额外解释：\n\n%s", nativeLabel(target), text)
	}
	// HY-MT xx<=>xx template.
	return fmt.Sprintf("Translate the following segment into %s, without additional explanation.\n\n%s", displayLabel(target), text)
}

func displayLabel(lang catalog.Language) string {
	if label := strings.TrimSpace(lang.Label); label != "" {
		return label
	}
	if code := strings.TrimSpace(lang.Code); code != "" {
		return code
	}
	return "English"
}

func nativeLabel(lang catalog.Language) string {
	if label := strings.TrimSpace(lang.Native); label != "" {
		return label
	}
	return displayLabel(lang)
}

func isChinese(code string) bool {
	return catalog.NormalizeCode(code) == "zh"
}
