package trace

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "horse.fit/glossa/translate"

var (
	attrTopicKey   = attribute.Key("glossa_topic_id")
	attrRequestKey = attribute.Key("glossa_request_id")
	attrTargetKey  = attribute.Key("glossa_target_lang")
	attrPausedKey  = attribute.Key("glossa_paused")
)

// Service keeps one live span per translation topic so pause and completion
// signals can be attached after the span was opened.
type Service struct {
	tracer trace.Tracer
	logger zerolog.Logger

	mu    sync.Mutex
	spans map[string]trace.Span
}

func NewService(logger zerolog.Logger) *Service {
	return &Service{
		tracer: otel.Tracer(tracerName),
		logger: logger,
		spans:  make(map[string]trace.Span),
	}
}

// StartTopic opens the span covering one topic's translation activity and
// registers it for later pause/end signals. A prior live span for the same
// topic is ended first.
func (s *Service) StartTopic(ctx context.Context, topicID, targetLang string) context.Context {
	if s == nil {
		return ctx
	}

	spanCtx, span := s.tracer.Start(ctx, "translate.topic", trace.WithAttributes(
		attrTopicKey.String(topicID),
		attrTargetKey.String(targetLang),
	))

	s.mu.Lock()
	prev := s.spans[topicID]
	s.spans[topicID] = span
	s.mu.Unlock()

	if prev != nil {
		prev.End()
	}
	return spanCtx
}

// PauseTrace marks the topic's live span paused and reports whether one was
// found. Topics without a live span are a quiet no-op.
func (s *Service) PauseTrace(topicID string) bool {
	if s == nil {
		return false
	}

	s.mu.Lock()
	span, ok := s.spans[topicID]
	s.mu.Unlock()
	if !ok {
		s.logger.Debug().Str("topic_id", topicID).Msg("No live span for paused topic")
		return false
	}

	span.AddEvent("paused")
	span.SetAttributes(attrPausedKey.Bool(true))
	return true
}

// EndTopic closes and deregisters the topic's span.
func (s *Service) EndTopic(topicID string, err error) {
	if s == nil {
		return
	}

	s.mu.Lock()
	span, ok := s.spans[topicID]
	delete(s.spans, topicID)
	s.mu.Unlock()
	if !ok {
		return
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// StartRequest opens a child span for one completion exchange.
func (s *Service) StartRequest(ctx context.Context, topicID, requestID string) (context.Context, trace.Span) {
	if s == nil {
		return ctx, nil
	}
	return s.tracer.Start(ctx, "translate.request", trace.WithAttributes(
		attrTopicKey.String(topicID),
		attrRequestKey.String(requestID),
	))
}

// EndRequest closes a request span with its outcome.
func (s *Service) EndRequest(span trace.Span, err error) {
	if s == nil || span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// LiveTopics reports how many topic spans are currently registered.
func (s *Service) LiveTopics() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spans)
}
