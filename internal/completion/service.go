package completion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"horse.fit/glossa/internal/assistant"
	"horse.fit/glossa/internal/messages"
	"horse.fit/glossa/internal/trace"
)

const (
	// DefaultEndpoint points to a local OpenAI-compatible completion endpoint.
	DefaultEndpoint = "http://127.0.0.1:8845/v1"
	// DefaultModel is the default HY-MT model name.
	DefaultModel = "tencent/HY-MT1.5-7B"
)

// Callbacks observe one submitted request. Any member may be nil.
type Callbacks struct {
	OnRequest func(requestID string)
	OnStart   func()
	OnFinish  func(content string)
	OnError   func(err error)
}

// Options configures the completion service.
type Options struct {
	Endpoint string
	Model    string
	APIKey   string
	Client   *http.Client
}

// Service streams chat completions from an OpenAI-compatible endpoint and
// mirrors each request's lifecycle into the message store. Cancellation is
// armed per request before any callback fires.
type Service struct {
	endpointURL string
	model       string
	apiKey      string
	client      *http.Client
	store       *messages.Store
	tracer      *trace.Service
	logger      zerolog.Logger

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

func NewService(opts Options, store *messages.Store, tracer *trace.Service, logger zerolog.Logger) *Service {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: 120 * time.Second,
		}
	}
	return &Service{
		endpointURL: chatCompletionsURL(normalizeEndpoint(opts.Endpoint)),
		model:       model,
		apiKey:      strings.TrimSpace(opts.APIKey),
		client:      client,
		store:       store,
		tracer:      tracer,
		logger:      logger,
		inflight:    make(map[string]context.CancelFunc),
	}
}

// ModelName returns the configured model identifier.
func (s *Service) ModelName() string {
	if s == nil {
		return ""
	}
	return s.model
}

// CreateTopic persists the conversation scope for an assistant and opens its
// trace span.
func (s *Service) CreateTopic(ctx context.Context, a assistant.Assistant) (assistant.Topic, error) {
	if s == nil {
		return assistant.Topic{}, fmt.Errorf("completion service is not initialized")
	}

	topic := assistant.NewTopic(a)
	if s.store != nil {
		if err := s.store.CreateTopic(ctx, topic); err != nil {
			return assistant.Topic{}, fmt.Errorf("create completion topic: %w", err)
		}
	}
	if s.tracer != nil {
		s.tracer.StartTopic(ctx, topic.ID, topic.TargetLang)
	}
	return topic, nil
}

// Submit issues one streaming completion request over an existing topic.
// The request id reaches the caller through cb.OnRequest before any network
// activity; Cancel with that id aborts the stream and parks the assistant
// message as paused with whatever content arrived.
func (s *Service) Submit(ctx context.Context, a assistant.Assistant, topic assistant.Topic, content string, cb Callbacks) error {
	if s == nil {
		return fmt.Errorf("completion service is not initialized")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("prompt content is required")
	}
	if strings.TrimSpace(topic.ID) == "" {
		return fmt.Errorf("topic is required")
	}

	requestID := xid.New().String()
	reqCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.inflight == nil {
		s.inflight = make(map[string]context.CancelFunc)
	}
	s.inflight[requestID] = cancel
	s.mu.Unlock()

	if cb.OnRequest != nil {
		cb.OnRequest(requestID)
	}

	// Store writes must survive request cancellation.
	writeCtx := context.WithoutCancel(ctx)

	userContent := strings.TrimSpace(a.Text)
	if userContent == "" {
		userContent = content
	}
	assistantMessageID := xid.New().String()
	s.persistExchange(writeCtx, a, topic, userContent, assistantMessageID)

	go s.run(reqCtx, writeCtx, runParams{
		requestID:          requestID,
		assistantMessageID: assistantMessageID,
		topicID:            topic.ID,
		content:            content,
		callbacks:          cb,
	})

	return nil
}

// Cancel aborts an in-flight request. Unknown or finished ids report false.
func (s *Service) Cancel(requestID string) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	cancel, ok := s.inflight[requestID]
	if ok {
		delete(s.inflight, requestID)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	return true
}

// Close cancels every in-flight request.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.inflight))
	for id, cancel := range s.inflight {
		cancels = append(cancels, cancel)
		delete(s.inflight, id)
	}
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

func (s *Service) persistExchange(ctx context.Context, a assistant.Assistant, topic assistant.Topic, userContent, assistantMessageID string) {
	if s.store == nil {
		return
	}

	userMessage := assistant.Message{
		ID:         xid.New().String(),
		TopicID:    topic.ID,
		Role:       assistant.RoleUser,
		Status:     assistant.StatusSuccess,
		Content:    userContent,
		SourceLang: a.SourceLang,
		TargetLang: a.TargetLang.Code,
	}
	if err := s.store.Append(ctx, userMessage); err != nil {
		s.logger.Warn().Err(err).Str("topic_id", topic.ID).Msg("Failed to persist user message")
	}

	assistantMessage := assistant.Message{
		ID:         assistantMessageID,
		TopicID:    topic.ID,
		Role:       assistant.RoleAssistant,
		Status:     assistant.StatusPending,
		Model:      s.model,
		SourceLang: a.SourceLang,
		TargetLang: a.TargetLang.Code,
	}
	if err := s.store.Append(ctx, assistantMessage); err != nil {
		s.logger.Warn().Err(err).Str("topic_id", topic.ID).Msg("Failed to persist assistant message")
	}
}

type runParams struct {
	requestID          string
	assistantMessageID string
	topicID            string
	content            string
	callbacks          Callbacks
}

func (s *Service) run(ctx, writeCtx context.Context, params runParams) {
	defer s.release(params.requestID)

	spanCtx, span := s.tracer.StartRequest(ctx, params.topicID, params.requestID)

	result, err := s.stream(spanCtx, writeCtx, params)
	switch {
	case err == nil:
		s.finish(writeCtx, params, result)
		s.tracer.EndRequest(span, nil)
	case ctx.Err() != nil:
		// Cancelled mid-stream: park the partial result as paused.
		s.pause(writeCtx, params, result)
		s.tracer.EndRequest(span, nil)
	default:
		s.fail(writeCtx, params, err)
		s.tracer.EndRequest(span, err)
	}
}

func (s *Service) release(requestID string) {
	s.mu.Lock()
	cancel, ok := s.inflight[requestID]
	if ok {
		delete(s.inflight, requestID)
	}
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

type streamResult struct {
	content string
	started bool
}

func (s *Service) stream(ctx, writeCtx context.Context, params runParams) (streamResult, error) {
	var result streamResult

	body, err := json.Marshal(chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{
				Role:    "user",
				Content: params.content,
			},
		},
		Temperature: 0.7,
		TopP:        0.6,
		Stream:      true,
	})
	if err != nil {
		return result, fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpointURL, bytes.NewReader(body))
	if err != nil {
		return result, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return result, fmt.Errorf("send completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr != nil {
			return result, fmt.Errorf("completion endpoint status %d", resp.StatusCode)
		}
		var errPayload chatErrorResponse
		if unmarshalErr := json.Unmarshal(respBody, &errPayload); unmarshalErr == nil {
			if msg := strings.TrimSpace(errPayload.Error.Message); msg != "" {
				return result, fmt.Errorf("completion endpoint status %d: %s", resp.StatusCode, msg)
			}
		}
		return result, fmt.Errorf("completion endpoint status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/event-stream") {
		return s.consumePlain(writeCtx, params, resp.Body)
	}
	return s.consumeStream(writeCtx, params, resp.Body)
}

// consumeStream reads "data:"-framed chunks until [DONE] or the body ends.
func (s *Service) consumeStream(writeCtx context.Context, params runParams, body io.Reader) (streamResult, error) {
	var result streamResult
	var builder strings.Builder

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			result.content = builder.String()
			return result, fmt.Errorf("decode completion chunk: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}

		if !result.started {
			result.started = true
			s.markProcessing(writeCtx, params)
			if params.callbacks.OnStart != nil {
				params.callbacks.OnStart()
			}
		}
		builder.WriteString(delta)
		if s.store != nil {
			if err := s.store.AppendContent(writeCtx, params.topicID, params.assistantMessageID, delta); err != nil {
				s.logger.Warn().Err(err).Str("message_id", params.assistantMessageID).Msg("Failed to append streamed chunk")
			}
		}
	}

	result.content = builder.String()
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("read completion stream: %w", err)
	}
	if strings.TrimSpace(result.content) == "" {
		return result, fmt.Errorf("completion stream was empty")
	}
	return result, nil
}

// consumePlain handles endpoints that answer with a single JSON completion.
func (s *Service) consumePlain(writeCtx context.Context, params runParams, body io.Reader) (streamResult, error) {
	var result streamResult

	respBody, err := io.ReadAll(io.LimitReader(body, 8<<20))
	if err != nil {
		return result, fmt.Errorf("read completion response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return result, fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return result, fmt.Errorf("completion response missing choices")
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return result, fmt.Errorf("completion response was empty")
	}

	result.started = true
	s.markProcessing(writeCtx, params)
	if params.callbacks.OnStart != nil {
		params.callbacks.OnStart()
	}

	result.content = content
	if s.store != nil {
		if err := s.store.AppendContent(writeCtx, params.topicID, params.assistantMessageID, content); err != nil {
			s.logger.Warn().Err(err).Str("message_id", params.assistantMessageID).Msg("Failed to append completion content")
		}
	}
	return result, nil
}

func (s *Service) markProcessing(writeCtx context.Context, params runParams) {
	if s.store == nil {
		return
	}
	if err := s.store.SetStatus(writeCtx, params.topicID, params.assistantMessageID, assistant.StatusProcessing); err != nil {
		s.logger.Warn().Err(err).Str("message_id", params.assistantMessageID).Msg("Failed to mark message processing")
	}
}

func (s *Service) finish(writeCtx context.Context, params runParams, result streamResult) {
	if s.store != nil {
		if err := s.store.SetContent(writeCtx, params.topicID, params.assistantMessageID, result.content, assistant.StatusSuccess); err != nil {
			s.logger.Warn().Err(err).Str("message_id", params.assistantMessageID).Msg("Failed to finalize message")
		}
	}
	if params.callbacks.OnFinish != nil {
		params.callbacks.OnFinish(result.content)
	}
}

func (s *Service) pause(writeCtx context.Context, params runParams, result streamResult) {
	if s.store != nil {
		if err := s.store.SetStatus(writeCtx, params.topicID, params.assistantMessageID, assistant.StatusPaused); err != nil {
			s.logger.Warn().Err(err).Str("message_id", params.assistantMessageID).Msg("Failed to mark message paused")
		}
	}
	if params.callbacks.OnFinish != nil {
		params.callbacks.OnFinish(result.content)
	}
}

func (s *Service) fail(writeCtx context.Context, params runParams, err error) {
	s.logger.Error().Err(err).Str("request_id", params.requestID).Str("topic_id", params.topicID).Msg("Completion request failed")
	if s.store != nil {
		if storeErr := s.store.SetError(writeCtx, params.topicID, params.assistantMessageID, err.Error()); storeErr != nil {
			s.logger.Warn().Err(storeErr).Str("message_id", params.assistantMessageID).Msg("Failed to record message error")
		}
	}
	if params.callbacks.OnError != nil {
		params.callbacks.OnError(err)
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func normalizeEndpoint(raw string) string {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return DefaultEndpoint
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}

	parsed, err := url.Parse(endpoint)
	if err != nil || strings.TrimSpace(parsed.Host) == "" {
		return DefaultEndpoint
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	if parsed.Path == "" {
		parsed.Path = "/v1"
	}
	return parsed.String()
}

func chatCompletionsURL(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err != nil || strings.TrimSpace(parsed.Host) == "" {
		return DefaultEndpoint + "/chat/completions"
	}

	path := strings.TrimRight(parsed.Path, "/")
	switch {
	case strings.HasSuffix(path, "/chat/completions"):
		parsed.Path = path
	case strings.HasSuffix(path, "/v1"):
		parsed.Path = path + "/chat/completions"
	case path == "":
		parsed.Path = "/v1/chat/completions"
	default:
		parsed.Path = path + "/v1/chat/completions"
	}

	return parsed.String()
}
