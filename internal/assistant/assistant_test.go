package assistant

import (
	"strings"
	"testing"

	"horse.fit/glossa/internal/catalog"
)

func TestBuild(t *testing.T) {
	t.Parallel()

	target := catalog.Language{Code: "de", Label: "German", Native: "德语"}
	a := Build(target, "en", "Hello world")

	if a.ID == "" {
		t.Fatal("expected assistant id to be set")
	}
	if a.Name != "Translate to German" {
		t.Fatalf("unexpected assistant name: %q", a.Name)
	}
	if a.SourceLang != "en" {
		t.Fatalf("unexpected source language: %q", a.SourceLang)
	}
	if !strings.Contains(a.Prompt, "Hello world") {
		t.Fatalf("prompt must embed the selection text: %q", a.Prompt)
	}

	b := Build(target, "en", "Hello world")
	if a.ID == b.ID {
		t.Fatal("expected rebuilt assistants to carry fresh ids")
	}
}

func TestNewTopic(t *testing.T) {
	t.Parallel()

	a := Build(catalog.Language{Code: "fr", Label: "French"}, "", "Bonjour")
	topic := NewTopic(a)

	if topic.ID == "" {
		t.Fatal("expected topic id to be set")
	}
	if topic.AssistantID != a.ID {
		t.Fatalf("topic must scope to its assistant: got %q want %q", topic.AssistantID, a.ID)
	}
	if topic.TargetLang != "fr" {
		t.Fatalf("unexpected topic target language: %q", topic.TargetLang)
	}
}

func TestTranslationPromptTemplates(t *testing.T) {
	t.Parallel()

	zh := catalog.Language{Code: "zh", Label: "Chinese", Native: "中文"}
	de := catalog.Language{Code: "de", Label: "German", Native: "德语"}

	toZh := TranslationPrompt(zh, "en", "Hello")
	if !strings.Contains(toZh, "中文") {
		t.Fatalf("zh target must use the native label: %q", toZh)
	}
	if strings.Contains(toZh, "Translate the following segment") {
		t.Fatalf("zh target must use the Chinese template: %q", toZh)
	}

	fromZh := TranslationPrompt(de, "zh", "你好")
	if !strings.Contains(fromZh, "德语") {
		t.Fatalf("zh source must use the native label: %q", fromZh)
	}

	plain := TranslationPrompt(de, "en", "Hello")
	if !strings.Contains(plain, "Translate the following segment into German") {
		t.Fatalf("non-Chinese pair must use the English template: %q", plain)
	}
}

func TestStatusSets(t *testing.T) {
	t.Parallel()

	known := []Status{StatusPending, StatusProcessing, StatusSearching, StatusPaused, StatusError, StatusSuccess}
	for _, s := range known {
		if !s.Known() {
			t.Fatalf("expected %q to be a known status", s)
		}
	}
	if Status("archived").Known() {
		t.Fatal("expected unenumerated status to be unknown")
	}

	for _, s := range []Status{StatusPaused, StatusError, StatusSuccess} {
		if !s.Terminal() {
			t.Fatalf("expected %q to be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusProcessing, StatusSearching} {
		if s.Terminal() {
			t.Fatalf("expected %q to be non-terminal", s)
		}
	}
}

func TestLastAssistantMessage(t *testing.T) {
	t.Parallel()

	if _, ok := LastAssistantMessage(nil); ok {
		t.Fatal("expected no assistant message in empty list")
	}

	messages := []Message{
		{ID: "m1", Role: RoleUser, Status: StatusSuccess},
		{ID: "m2", Role: RoleAssistant, Status: StatusSuccess},
		{ID: "m3", Role: RoleUser, Status: StatusSuccess},
		{ID: "m4", Role: RoleAssistant, Status: StatusProcessing},
	}
	last, ok := LastAssistantMessage(messages)
	if !ok {
		t.Fatal("expected an assistant message")
	}
	if last.ID != "m4" {
		t.Fatalf("expected the newest assistant message: got %q", last.ID)
	}
}
