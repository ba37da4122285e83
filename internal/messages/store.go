package messages

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"horse.fit/glossa/internal/assistant"
	"horse.fit/glossa/internal/db"
)

// storage is the slice of db.Pool the store depends on.
type storage interface {
	InsertTopic(ctx context.Context, row db.InsertTopicParams) error
	UpdateTopicTargetLang(ctx context.Context, topicID, targetLang string) error
	InsertMessage(ctx context.Context, row db.InsertMessageParams) error
	UpdateMessageStatus(ctx context.Context, messageID, status string) error
	AppendMessageContent(ctx context.Context, messageID, chunk string) error
	SetMessageContent(ctx context.Context, messageID, content, status string) error
	SetMessageError(ctx context.Context, messageID, errorText string) error
	ListMessagesByTopic(ctx context.Context, topicID string) ([]db.MessageRow, error)
}

// Store persists topics and messages and republishes a topic's refreshed
// message list to its subscribers after every write. The database stays the
// source of truth; subscriptions only signal change.
type Store struct {
	storage storage
	logger  zerolog.Logger

	mu          sync.Mutex
	subscribers map[string]map[*subscriber]struct{}
	closed      bool
}

type subscriber struct {
	ch chan []assistant.Message
}

func NewStore(pool *db.Pool, logger zerolog.Logger) *Store {
	return NewStoreWithStorage(pool, logger)
}

// NewStoreWithStorage wires an explicit storage implementation.
func NewStoreWithStorage(st storage, logger zerolog.Logger) *Store {
	return &Store{
		storage:     st,
		logger:      logger,
		subscribers: make(map[string]map[*subscriber]struct{}),
	}
}

func (s *Store) CreateTopic(ctx context.Context, topic assistant.Topic) error {
	if s == nil || s.storage == nil {
		return fmt.Errorf("message store is not initialized")
	}
	err := s.storage.InsertTopic(ctx, db.InsertTopicParams{
		TopicID:     topic.ID,
		AssistantID: topic.AssistantID,
		Name:        topic.Name,
		TargetLang:  topic.TargetLang,
	})
	if err != nil {
		return fmt.Errorf("create topic: %w", err)
	}
	return nil
}

func (s *Store) SetTopicTargetLang(ctx context.Context, topicID, targetLang string) error {
	if s == nil || s.storage == nil {
		return fmt.Errorf("message store is not initialized")
	}
	if err := s.storage.UpdateTopicTargetLang(ctx, topicID, targetLang); err != nil {
		return fmt.Errorf("set topic target language: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, msg assistant.Message) error {
	if s == nil || s.storage == nil {
		return fmt.Errorf("message store is not initialized")
	}

	var modelName *string
	if msg.Model != "" {
		modelName = &msg.Model
	}
	err := s.storage.InsertMessage(ctx, db.InsertMessageParams{
		MessageID:  msg.ID,
		TopicID:    msg.TopicID,
		Role:       string(msg.Role),
		Status:     string(msg.Status),
		Content:    msg.Content,
		ModelName:  modelName,
		SourceLang: msg.SourceLang,
		TargetLang: msg.TargetLang,
	})
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	s.notify(ctx, msg.TopicID)
	return nil
}

func (s *Store) SetStatus(ctx context.Context, topicID, messageID string, status assistant.Status) error {
	if s == nil || s.storage == nil {
		return fmt.Errorf("message store is not initialized")
	}
	if err := s.storage.UpdateMessageStatus(ctx, messageID, string(status)); err != nil {
		return fmt.Errorf("set message status: %w", err)
	}
	s.notify(ctx, topicID)
	return nil
}

// AppendContent adds one streamed chunk to a message body.
func (s *Store) AppendContent(ctx context.Context, topicID, messageID, chunk string) error {
	if s == nil || s.storage == nil {
		return fmt.Errorf("message store is not initialized")
	}
	if chunk == "" {
		return nil
	}
	if err := s.storage.AppendMessageContent(ctx, messageID, chunk); err != nil {
		return fmt.Errorf("append message content: %w", err)
	}
	s.notify(ctx, topicID)
	return nil
}

func (s *Store) SetContent(ctx context.Context, topicID, messageID, content string, status assistant.Status) error {
	if s == nil || s.storage == nil {
		return fmt.Errorf("message store is not initialized")
	}
	if err := s.storage.SetMessageContent(ctx, messageID, content, string(status)); err != nil {
		return fmt.Errorf("set message content: %w", err)
	}
	s.notify(ctx, topicID)
	return nil
}

func (s *Store) SetError(ctx context.Context, topicID, messageID, errorText string) error {
	if s == nil || s.storage == nil {
		return fmt.Errorf("message store is not initialized")
	}
	if err := s.storage.SetMessageError(ctx, messageID, errorText); err != nil {
		return fmt.Errorf("set message error: %w", err)
	}
	s.notify(ctx, topicID)
	return nil
}

func (s *Store) ListByTopic(ctx context.Context, topicID string) ([]assistant.Message, error) {
	if s == nil || s.storage == nil {
		return nil, fmt.Errorf("message store is not initialized")
	}
	rows, err := s.storage.ListMessagesByTopic(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("list topic messages: %w", err)
	}

	items := make([]assistant.Message, 0, len(rows))
	for _, row := range rows {
		items = append(items, messageFromRow(row))
	}
	return items, nil
}

// Subscribe returns a channel carrying the topic's full ordered message list
// after every write, plus a cancel function. Slow receivers miss intermediate
// snapshots; the latest write always lands eventually.
func (s *Store) Subscribe(topicID string) (<-chan []assistant.Message, func()) {
	if s == nil {
		ch := make(chan []assistant.Message)
		close(ch)
		return ch, func() {}
	}

	sub := &subscriber{ch: make(chan []assistant.Message, 8)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	set, ok := s.subscribers[topicID]
	if !ok {
		set = make(map[*subscriber]struct{})
		s.subscribers[topicID] = set
	}
	set[sub] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		set, ok := s.subscribers[topicID]
		if !ok {
			return
		}
		if _, exists := set[sub]; !exists {
			return
		}
		delete(set, sub)
		if len(set) == 0 {
			delete(s.subscribers, topicID)
		}
		close(sub.ch)
	}
	return sub.ch, cancel
}

// Close drops all subscriptions.
func (s *Store) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for topicID, set := range s.subscribers {
		for sub := range set {
			close(sub.ch)
		}
		delete(s.subscribers, topicID)
	}
}

func (s *Store) notify(ctx context.Context, topicID string) {
	s.mu.Lock()
	count := len(s.subscribers[topicID])
	s.mu.Unlock()
	if count == 0 {
		return
	}

	items, err := s.ListByTopic(ctx, topicID)
	if err != nil {
		s.logger.Warn().Err(err).Str("topic_id", topicID).Msg("Failed to refresh topic messages for subscribers")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subscribers[topicID] {
		select {
		case sub.ch <- items:
		default:
		}
	}
}

func messageFromRow(row db.MessageRow) assistant.Message {
	msg := assistant.Message{
		ID:         row.MessageID,
		TopicID:    row.TopicID,
		Role:       assistant.Role(row.Role),
		Status:     assistant.Status(row.Status),
		Content:    row.Content,
		SourceLang: row.SourceLang,
		TargetLang: row.TargetLang,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	if row.ErrorText != nil {
		msg.ErrorText = *row.ErrorText
	}
	if row.ModelName != nil {
		msg.Model = *row.ModelName
	}
	return msg
}
