package translate

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"horse.fit/glossa/internal/assistant"
	"horse.fit/glossa/internal/catalog"
	"horse.fit/glossa/internal/completion"
	"horse.fit/glossa/internal/settings"
)

// Status is the view-facing controller state.
type Status string

const (
	StatusPreparing Status = "preparing"
	StatusStreaming Status = "streaming"
	StatusFinished  Status = "finished"
)

// Catalog resolves target languages once its table is loaded.
type Catalog interface {
	Ready() bool
	WaitReady(ctx context.Context) error
	Resolve(code string) catalog.Language
}

// PreferenceStore persists the last chosen target language.
type PreferenceStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

// Engine creates conversation topics and streams completion requests.
type Engine interface {
	CreateTopic(ctx context.Context, a assistant.Assistant) (assistant.Topic, error)
	Submit(ctx context.Context, a assistant.Assistant, topic assistant.Topic, content string, cb completion.Callbacks) error
	Cancel(requestID string) bool
}

// MessageFeed exposes a topic's live ordered message list.
type MessageFeed interface {
	Subscribe(topicID string) (<-chan []assistant.Message, func())
}

// Tracer receives pause signals for a topic's telemetry span.
type Tracer interface {
	PauseTrace(topicID string) bool
}

// Deps are the controller's collaborators.
type Deps struct {
	Catalog     Catalog
	Preferences PreferenceStore
	Engine      Engine
	Feed        MessageFeed
	Tracer      Tracer
	Logger      zerolog.Logger
}

// Options fix the controller's per-session inputs.
type Options struct {
	// Selection is the text being translated. Empty selection leaves the
	// controller permanently uninitialized.
	Selection string
	// SourceLang is the detected selection language, may be empty.
	SourceLang string
	// UILanguage seeds the initial target language resolution.
	UILanguage string
	// OnStreamStart runs when the first streamed token arrives.
	OnStreamStart func()
}

// Snapshot is one externally visible controller state.
type Snapshot struct {
	Status      Status           `json:"status"`
	Content     string           `json:"content"`
	ErrorText   string           `json:"error_text,omitempty"`
	TargetLang  catalog.Language `json:"target_lang"`
	Initialized bool             `json:"initialized"`
	RequestID   string           `json:"request_id,omitempty"`
	Event       string           `json:"event,omitempty"`
}

// Controller sequences one selection's translation workflow: gated one-time
// initialization, re-issuable fetches, pause and regenerate, durable target
// language preference, and message-stream status synchronization.
type Controller struct {
	deps Deps

	selection     string
	sourceLang    string
	uiLanguage    string
	onStreamStart func()

	mu           sync.Mutex
	initialized  bool
	initializing bool
	initFailed   bool
	targetLang   catalog.Language
	assistantCtx *assistant.Assistant
	topic        *assistant.Topic
	requestID    string
	status       Status
	content      string
	errorText    string
	feedCancel   func()
	started      bool

	// langMirror is the non-reactive side-cell async closures read, updated
	// in lockstep with targetLang so a stale closure never resurrects an
	// older language.
	langMirror atomic.Pointer[catalog.Language]

	subsMu      sync.Mutex
	subscribers map[*stateSubscriber]struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

type stateSubscriber struct {
	ch chan Snapshot
}

func New(opts Options, deps Deps) *Controller {
	c := &Controller{
		deps:          deps,
		selection:     opts.Selection,
		sourceLang:    opts.SourceLang,
		uiLanguage:    opts.UILanguage,
		onStreamStart: opts.OnStreamStart,
		status:        StatusPreparing,
		subscribers:   make(map[*stateSubscriber]struct{}),
		closed:        make(chan struct{}),
	}
	c.setTargetLocked(catalog.Unknown)
	return c
}

// Start kicks the asynchronous initialization chain: wait for the catalog,
// initialize once, apply the persisted language preference, watch the topic's
// message stream, then issue the first fetch.
func (c *Controller) Start(ctx context.Context) {
	if c == nil {
		return
	}

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go c.runInit(ctx)
}

func (c *Controller) runInit(ctx context.Context) {
	if err := c.deps.Catalog.WaitReady(ctx); err != nil {
		c.deps.Logger.Warn().Err(err).Msg("Language catalog never became ready")
		return
	}
	if !c.Initialize(ctx) {
		return
	}
	c.applyPersistedLanguage(ctx)

	c.mu.Lock()
	var topicID string
	if c.topic != nil {
		topicID = c.topic.ID
	}
	c.mu.Unlock()
	if topicID != "" {
		go c.watchMessages(ctx, topicID)
	}

	c.Fetch(ctx)
}

// Initialize resolves the target language and creates the assistant/topic
// pair exactly once. Safe to call repeatedly: catalog-not-ready and
// already-initialized are quiet no-ops. A missing selection is a caller
// contract breach that leaves the controller permanently uninitialized.
func (c *Controller) Initialize(ctx context.Context) bool {
	if c == nil {
		return false
	}

	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return true
	}
	if c.initFailed || c.initializing {
		c.mu.Unlock()
		return false
	}
	if !c.deps.Catalog.Ready() {
		c.mu.Unlock()
		return false
	}
	if strings.TrimSpace(c.selection) == "" {
		c.initFailed = true
		c.mu.Unlock()
		c.deps.Logger.Error().Msg("Selection text is missing; translation controller left uninitialized")
		return false
	}

	c.initializing = true
	target := c.resolveInitialTarget()
	c.setTargetLocked(target)
	a := assistant.Build(target, c.sourceLang, c.selection)
	c.assistantCtx = &a
	c.mu.Unlock()

	topic, err := c.deps.Engine.CreateTopic(ctx, a)

	c.mu.Lock()
	c.initializing = false
	if err != nil {
		c.assistantCtx = nil
		c.mu.Unlock()
		c.deps.Logger.Error().Err(err).Msg("Failed to create translation topic")
		return false
	}
	c.topic = &topic
	c.initialized = true
	c.mu.Unlock()

	c.publish("init")
	return true
}

// resolveInitialTarget maps the interface language onto the catalog, falling
// back to the default target with a warning when it has no entry.
func (c *Controller) resolveInitialTarget() catalog.Language {
	lang := c.deps.Catalog.Resolve(c.uiLanguage)
	if !lang.IsUnknown() {
		return lang
	}

	c.deps.Logger.Warn().
		Str("ui_language", c.uiLanguage).
		Str("fallback", catalog.DefaultTargetCode).
		Msg("Interface language has no catalog entry; using default target language")

	lang = c.deps.Catalog.Resolve(catalog.DefaultTargetCode)
	if lang.IsUnknown() {
		lang = catalog.Language{Code: catalog.DefaultTargetCode, Label: "English"}
	}
	return lang
}

// applyPersistedLanguage overwrites the session target language with the
// durable preference, when one exists and resolves.
func (c *Controller) applyPersistedLanguage(ctx context.Context) {
	if c == nil || !c.deps.Catalog.Ready() {
		return
	}

	value, found, err := c.deps.Preferences.Get(ctx, settings.TargetLanguageKey)
	if err != nil {
		c.deps.Logger.Warn().Err(err).Msg("Failed to read persisted target language")
		return
	}
	if !found || strings.TrimSpace(value) == "" {
		return
	}

	lang := c.deps.Catalog.Resolve(value)
	if lang.IsUnknown() {
		c.deps.Logger.Warn().Str("persisted", value).Msg("Persisted target language has no catalog entry")
		return
	}

	c.mu.Lock()
	c.setTargetLocked(lang)
	c.mu.Unlock()
	c.publish("language")
}

// Fetch issues a brand-new completion request over the existing topic,
// rebuilding the assistant from the current target language. No-op until
// initialization completes. Prior in-flight requests are left running.
func (c *Controller) Fetch(ctx context.Context) {
	if c == nil {
		return
	}

	target := c.mirrorTarget()

	c.mu.Lock()
	if !c.initialized || c.assistantCtx == nil || c.topic == nil || strings.TrimSpace(c.selection) == "" {
		c.mu.Unlock()
		c.deps.Logger.Warn().Msg("Fetch skipped; controller is not initialized")
		return
	}
	a := assistant.Build(target, c.sourceLang, c.selection)
	c.assistantCtx = &a
	topic := *c.topic
	c.mu.Unlock()

	cb := completion.Callbacks{
		OnRequest: func(id string) {
			c.mu.Lock()
			c.requestID = id
			c.mu.Unlock()
			c.publish("request")
		},
		OnStart: func() {
			c.mu.Lock()
			c.status = StatusStreaming
			c.mu.Unlock()
			if c.onStreamStart != nil {
				c.onStreamStart()
			}
			c.publish("stream-start")
		},
		OnFinish: func(content string) {
			c.mu.Lock()
			c.status = StatusFinished
			c.content = content
			c.errorText = ""
			c.mu.Unlock()
			c.publish("finish")
		},
		OnError: func(err error) {
			c.mu.Lock()
			c.status = StatusFinished
			c.errorText = err.Error()
			c.mu.Unlock()
			c.publish("error")
		},
	}

	if err := c.deps.Engine.Submit(ctx, a, topic, a.Prompt, cb); err != nil {
		c.deps.Logger.Error().Err(err).Msg("Failed to submit translation request")
		c.mu.Lock()
		c.status = StatusFinished
		c.errorText = err.Error()
		c.mu.Unlock()
		c.publish("error")
	}
}

// ChangeLanguage switches the session target language, persists it
// fire-and-forget, and triggers exactly one new fetch. No-op before
// initialization.
func (c *Controller) ChangeLanguage(ctx context.Context, code string) {
	if c == nil {
		return
	}

	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		c.deps.Logger.Warn().Str("language", code).Msg("Language change ignored; controller is not initialized")
		return
	}
	lang := c.deps.Catalog.Resolve(code)
	if lang.IsUnknown() {
		c.mu.Unlock()
		c.deps.Logger.Warn().Str("language", code).Msg("Language change ignored; code has no catalog entry")
		return
	}
	c.setTargetLocked(lang)
	c.mu.Unlock()
	c.publish("language")

	// Fire-and-forget: the write must survive the caller's request context.
	writeCtx := context.WithoutCancel(ctx)
	go func() {
		if err := c.deps.Preferences.Put(writeCtx, settings.TargetLanguageKey, lang.Code); err != nil {
			c.deps.Logger.Warn().Err(err).Str("language", lang.Code).Msg("Failed to persist target language")
		}
	}()

	c.Fetch(ctx)
}

// Pause requests best-effort cancellation of the in-flight request and marks
// the topic's trace paused. With no armed request this is a silent no-op.
func (c *Controller) Pause() {
	if c == nil {
		return
	}

	c.mu.Lock()
	requestID := c.requestID
	var topicID string
	if c.topic != nil {
		topicID = c.topic.ID
	}
	c.mu.Unlock()

	if requestID != "" {
		if !c.deps.Engine.Cancel(requestID) {
			c.deps.Logger.Debug().Str("request_id", requestID).Msg("Pause found no armed request")
		}
	}
	if topicID != "" {
		c.deps.Tracer.PauseTrace(topicID)
	}
	c.publish("pause")
}

// Regenerate clears the stored result text and restarts the translation
// over the same topic.
func (c *Controller) Regenerate(ctx context.Context) {
	if c == nil {
		return
	}

	c.mu.Lock()
	c.content = ""
	c.mu.Unlock()
	c.publish("regenerate")

	c.Fetch(ctx)
}

// watchMessages mirrors the newest assistant-role message status onto the
// controller status until the controller closes.
func (c *Controller) watchMessages(ctx context.Context, topicID string) {
	feed, cancel := c.deps.Feed.Subscribe(topicID)

	c.mu.Lock()
	c.feedCancel = cancel
	c.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			cancel()
			return
		case <-c.closed:
			cancel()
			return
		case items, ok := <-feed:
			if !ok {
				return
			}
			c.syncStatus(items)
		}
	}
}

func (c *Controller) syncStatus(items []assistant.Message) {
	last, ok := assistant.LastAssistantMessage(items)
	if !ok {
		return
	}

	mapped, known := mapMessageStatus(last.Status)
	if !known {
		c.deps.Logger.Warn().
			Str("status", string(last.Status)).
			Str("message_id", last.ID).
			Msg("Unexpected message status; controller status left unchanged")
		return
	}

	c.mu.Lock()
	c.status = mapped
	// The durable stream owns the terminal content and error text.
	switch last.Status {
	case assistant.StatusSuccess:
		c.content = last.Content
		c.errorText = ""
	case assistant.StatusError:
		if last.ErrorText != "" {
			c.errorText = last.ErrorText
		}
	case assistant.StatusPaused:
		if last.Content != "" {
			c.content = last.Content
		}
	}
	c.mu.Unlock()
	c.publish("message-status")
}

func mapMessageStatus(s assistant.Status) (Status, bool) {
	switch s {
	case assistant.StatusPending, assistant.StatusProcessing, assistant.StatusSearching:
		return StatusStreaming, true
	case assistant.StatusPaused, assistant.StatusError, assistant.StatusSuccess:
		return StatusFinished, true
	default:
		return "", false
	}
}

// Snapshot returns the current externally visible state.
func (c *Controller) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{Status: StatusPreparing, TargetLang: catalog.Unknown}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Status:      c.status,
		Content:     c.content,
		ErrorText:   c.errorText,
		TargetLang:  c.targetLang,
		Initialized: c.initialized,
		RequestID:   c.requestID,
	}
}

// Subscribe returns a channel of state snapshots plus a cancel function.
// Slow receivers miss intermediate snapshots.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	if c == nil {
		ch := make(chan Snapshot)
		close(ch)
		return ch, func() {}
	}

	sub := &stateSubscriber{ch: make(chan Snapshot, 8)}

	c.subsMu.Lock()
	c.subscribers[sub] = struct{}{}
	c.subsMu.Unlock()

	cancel := func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		if _, ok := c.subscribers[sub]; !ok {
			return
		}
		delete(c.subscribers, sub)
		close(sub.ch)
	}
	return sub.ch, cancel
}

// Close stops the message watcher and drops all state subscribers.
func (c *Controller) Close() {
	if c == nil {
		return
	}

	c.closeOnce.Do(func() {
		close(c.closed)

		c.mu.Lock()
		cancel := c.feedCancel
		c.feedCancel = nil
		c.mu.Unlock()
		if cancel != nil {
			cancel()
		}

		c.subsMu.Lock()
		for sub := range c.subscribers {
			delete(c.subscribers, sub)
			close(sub.ch)
		}
		c.subsMu.Unlock()
	})
}

// TopicID returns the conversation scope id, empty before initialization.
func (c *Controller) TopicID() string {
	if c == nil {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.topic == nil {
		return ""
	}
	return c.topic.ID
}

func (c *Controller) publish(event string) {
	snap := c.Snapshot()
	snap.Event = event

	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for sub := range c.subscribers {
		select {
		case sub.ch <- snap:
		default:
		}
	}
}

func (c *Controller) setTargetLocked(lang catalog.Language) {
	c.targetLang = lang
	mirrored := lang
	c.langMirror.Store(&mirrored)
}

// mirrorTarget reads the non-reactive language mirror used by async paths.
func (c *Controller) mirrorTarget() catalog.Language {
	if p := c.langMirror.Load(); p != nil {
		return *p
	}
	return catalog.Unknown
}
