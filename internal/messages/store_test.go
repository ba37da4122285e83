package messages

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/glossa/internal/assistant"
	"horse.fit/glossa/internal/db"
)

type stubStorage struct {
	mu       sync.Mutex
	topics   map[string]db.InsertTopicParams
	rows     []db.MessageRow
	failList bool
}

func newStubStorage() *stubStorage {
	return &stubStorage{topics: make(map[string]db.InsertTopicParams)}
}

func (s *stubStorage) InsertTopic(_ context.Context, row db.InsertTopicParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics[row.TopicID] = row
	return nil
}

func (s *stubStorage) UpdateTopicTargetLang(_ context.Context, topicID, targetLang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.topics[topicID]
	if !ok {
		return db.ErrNoRows
	}
	row.TargetLang = targetLang
	s.topics[topicID] = row
	return nil
}

func (s *stubStorage) InsertMessage(_ context.Context, row db.InsertMessageParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, db.MessageRow{
		MessageID:  row.MessageID,
		TopicID:    row.TopicID,
		Role:       row.Role,
		Status:     row.Status,
		Content:    row.Content,
		ModelName:  row.ModelName,
		SourceLang: row.SourceLang,
		TargetLang: row.TargetLang,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	})
	return nil
}

func (s *stubStorage) UpdateMessageStatus(_ context.Context, messageID, status string) error {
	return s.mutate(messageID, func(row *db.MessageRow) {
		row.Status = status
	})
}

func (s *stubStorage) AppendMessageContent(_ context.Context, messageID, chunk string) error {
	return s.mutate(messageID, func(row *db.MessageRow) {
		row.Content += chunk
	})
}

func (s *stubStorage) SetMessageContent(_ context.Context, messageID, content, status string) error {
	return s.mutate(messageID, func(row *db.MessageRow) {
		row.Content = content
		row.Status = status
		row.ErrorText = nil
	})
}

func (s *stubStorage) SetMessageError(_ context.Context, messageID, errorText string) error {
	return s.mutate(messageID, func(row *db.MessageRow) {
		row.Status = "error"
		row.ErrorText = &errorText
	})
}

func (s *stubStorage) ListMessagesByTopic(_ context.Context, topicID string) ([]db.MessageRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList {
		return nil, fmt.Errorf("list failed")
	}
	items := make([]db.MessageRow, 0, len(s.rows))
	for _, row := range s.rows {
		if row.TopicID == topicID {
			items = append(items, row)
		}
	}
	return items, nil
}

func (s *stubStorage) mutate(messageID string, fn func(*db.MessageRow)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].MessageID == messageID {
			fn(&s.rows[i])
			s.rows[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return db.ErrNoRows
}

func receiveList(t *testing.T, ch <-chan []assistant.Message) []assistant.Message {
	t.Helper()
	select {
	case items := <-ch:
		return items
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message list")
		return nil
	}
}

func TestAppendNotifiesSubscribers(t *testing.T) {
	t.Parallel()

	store := NewStoreWithStorage(newStubStorage(), zerolog.Nop())
	ch, cancel := store.Subscribe("t1")
	defer cancel()

	err := store.Append(context.Background(), assistant.Message{
		ID:         "m1",
		TopicID:    "t1",
		Role:       assistant.RoleUser,
		Status:     assistant.StatusSuccess,
		Content:    "hello",
		TargetLang: "de",
	})
	if err != nil {
		t.Fatalf("unexpected append error: %v", err)
	}

	items := receiveList(t, ch)
	if len(items) != 1 {
		t.Fatalf("unexpected list length: got %d want 1", len(items))
	}
	if items[0].ID != "m1" || items[0].Content != "hello" {
		t.Fatalf("unexpected message: %+v", items[0])
	}
}

func TestStatusAndContentUpdatesFlow(t *testing.T) {
	t.Parallel()

	store := NewStoreWithStorage(newStubStorage(), zerolog.Nop())
	ctx := context.Background()

	seed := assistant.Message{
		ID:         "m1",
		TopicID:    "t1",
		Role:       assistant.RoleAssistant,
		Status:     assistant.StatusPending,
		TargetLang: "fr",
	}
	if err := store.Append(ctx, seed); err != nil {
		t.Fatalf("unexpected append error: %v", err)
	}

	ch, cancel := store.Subscribe("t1")
	defer cancel()

	if err := store.SetStatus(ctx, "t1", "m1", assistant.StatusProcessing); err != nil {
		t.Fatalf("unexpected status error: %v", err)
	}
	items := receiveList(t, ch)
	if items[0].Status != assistant.StatusProcessing {
		t.Fatalf("unexpected status: %q", items[0].Status)
	}

	if err := store.AppendContent(ctx, "t1", "m1", "Bon"); err != nil {
		t.Fatalf("unexpected append content error: %v", err)
	}
	if err := store.AppendContent(ctx, "t1", "m1", "jour"); err != nil {
		t.Fatalf("unexpected append content error: %v", err)
	}
	receiveList(t, ch)
	items = receiveList(t, ch)
	if items[0].Content != "Bonjour" {
		t.Fatalf("unexpected accumulated content: %q", items[0].Content)
	}

	if err := store.SetContent(ctx, "t1", "m1", "Bonjour!", assistant.StatusSuccess); err != nil {
		t.Fatalf("unexpected set content error: %v", err)
	}
	items = receiveList(t, ch)
	if items[0].Status != assistant.StatusSuccess || items[0].Content != "Bonjour!" {
		t.Fatalf("unexpected final message: %+v", items[0])
	}
}

func TestSetErrorRecordsMessageError(t *testing.T) {
	t.Parallel()

	store := NewStoreWithStorage(newStubStorage(), zerolog.Nop())
	ctx := context.Background()

	if err := store.Append(ctx, assistant.Message{ID: "m1", TopicID: "t1", Role: assistant.RoleAssistant, Status: assistant.StatusPending, TargetLang: "de"}); err != nil {
		t.Fatalf("unexpected append error: %v", err)
	}
	if err := store.SetError(ctx, "t1", "m1", "endpoint unreachable"); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}

	items, err := store.ListByTopic(ctx, "t1")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if items[0].Status != assistant.StatusError {
		t.Fatalf("unexpected status: %q", items[0].Status)
	}
	if items[0].ErrorText != "endpoint unreachable" {
		t.Fatalf("unexpected error text: %q", items[0].ErrorText)
	}
}

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	t.Parallel()

	store := NewStoreWithStorage(newStubStorage(), zerolog.Nop())
	ch, cancel := store.Subscribe("t1")
	cancel()

	if _, open := <-ch; open {
		t.Fatal("expected channel to close after cancel")
	}

	// Cancel twice must be safe.
	cancel()
}

func TestSlowSubscriberDoesNotBlockWrites(t *testing.T) {
	t.Parallel()

	store := NewStoreWithStorage(newStubStorage(), zerolog.Nop())
	_, cancel := store.Subscribe("t1")
	defer cancel()

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 32; i++ {
			msg := assistant.Message{
				ID:         fmt.Sprintf("m%d", i),
				TopicID:    "t1",
				Role:       assistant.RoleUser,
				Status:     assistant.StatusSuccess,
				TargetLang: "de",
			}
			if err := store.Append(ctx, msg); err != nil {
				t.Errorf("unexpected append error: %v", err)
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writes blocked on a slow subscriber")
	}
}
