package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/xid"

	"horse.fit/glossa/internal/assistant"
	"horse.fit/glossa/internal/globaltime"
	"horse.fit/glossa/internal/translate"
)

const sessionHeartbeatInterval = 15 * time.Second

// liveSession owns one translation controller and the long-lived context its
// streams run under. The context outlives individual HTTP requests.
type liveSession struct {
	id         string
	ctrl       *translate.Controller
	ctx        context.Context
	cancel     context.CancelFunc
	sourceLang string
	createdAt  time.Time

	mu         sync.Mutex
	lastSeenAt time.Time
}

func (ls *liveSession) touch(now time.Time) {
	ls.mu.Lock()
	ls.lastSeenAt = now
	ls.mu.Unlock()
}

func (ls *liveSession) seenAt() time.Time {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.lastSeenAt
}

type sessionRegistry struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*liveSession
}

func newSessionRegistry(ttl time.Duration) *sessionRegistry {
	return &sessionRegistry{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*liveSession),
	}
}

// add registers the session and returns any sessions evicted by TTL.
func (r *sessionRegistry) add(ls *liveSession) []*liveSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := r.pruneLocked()
	r.sessions[ls.id] = ls
	return evicted
}

func (r *sessionRegistry) get(id string) (*liveSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ls, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	ls.touch(r.now())
	return ls, true
}

func (r *sessionRegistry) remove(id string) (*liveSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ls, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	delete(r.sessions, id)
	return ls, true
}

func (r *sessionRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// drain empties the registry, returning every live session for cleanup.
func (r *sessionRegistry) drain() []*liveSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	drained := make([]*liveSession, 0, len(r.sessions))
	for id, ls := range r.sessions {
		delete(r.sessions, id)
		drained = append(drained, ls)
	}
	return drained
}

func (r *sessionRegistry) pruneLocked() []*liveSession {
	cutoff := r.now().Add(-r.ttl)
	var evicted []*liveSession
	for id, ls := range r.sessions {
		if ls.seenAt().Before(cutoff) {
			delete(r.sessions, id)
			evicted = append(evicted, ls)
		}
	}
	return evicted
}

type sessionResponse struct {
	SessionID  string             `json:"session_id"`
	TopicID    string             `json:"topic_id,omitempty"`
	SourceLang string             `json:"source_language"`
	Model      string             `json:"model,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	State      translate.Snapshot `json:"state"`
}

func (s *Server) handleCreateSession(c echo.Context) error {
	body, err := readBodyLimited(c)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	req, err := validateSessionRequest(body)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	selection := req.Text
	if selection == "" {
		fetched, fetchErr := s.fetchSelection(c.Request().Context(), req.URL)
		if fetchErr != nil {
			s.logger.Warn().Err(fetchErr).Str("url", req.URL).Msg("Selection fetch failed")
			return fail(c, http.StatusUnprocessableEntity, "Failed to extract text from url", nil)
		}
		selection = fetched
	}
	if strings.TrimSpace(selection) == "" {
		return failValidation(c, map[string]string{"text": "is required"})
	}

	sourceLang := req.SourceLanguage
	if sourceLang == "" {
		sourceLang = s.detectLanguage(selection)
	}

	uiLanguage := req.Language
	if uiLanguage == "" {
		uiLanguage = s.opts.UILanguage
	}

	sessionCtx, cancel := context.WithCancel(context.Background())
	ctrl := s.newController(translate.Options{
		Selection:  selection,
		SourceLang: sourceLang,
		UILanguage: uiLanguage,
	})

	if !ctrl.Initialize(sessionCtx) {
		ctrl.Close()
		cancel()
		if !s.catalog.Ready() {
			return fail(c, http.StatusServiceUnavailable, "Language catalog is not ready", nil)
		}
		return internalError(c, "Failed to initialize translation session")
	}
	ctrl.Start(sessionCtx)

	now := globaltime.UTC()
	ls := &liveSession{
		id:         xid.New().String(),
		ctrl:       ctrl,
		ctx:        sessionCtx,
		cancel:     cancel,
		sourceLang: sourceLang,
		createdAt:  now,
		lastSeenAt: now,
	}

	for _, evictedSession := range s.sessions.add(ls) {
		s.closeSession(evictedSession)
	}

	return successWithStatus(c, http.StatusCreated, map[string]any{
		"session": s.buildSessionResponse(ls),
	})
}

func (s *Server) handleGetSession(c echo.Context) error {
	ls, ok := s.lookupSession(c)
	if !ok {
		return failNotFound(c, "Session not found")
	}
	return success(c, map[string]any{
		"session": s.buildSessionResponse(ls),
	})
}

func (s *Server) handleSessionEvents(c echo.Context) error {
	ls, ok := s.lookupSession(c)
	if !ok {
		return failNotFound(c, "Session not found")
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-store")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	updates, cancelSub := ls.ctrl.Subscribe()
	defer cancelSub()

	if err := writeStateEvent(resp, ls.ctrl.Snapshot()); err != nil {
		return nil
	}

	heartbeat := time.NewTicker(sessionHeartbeatInterval)
	defer heartbeat.Stop()

	reqCtx := c.Request().Context()
	for {
		select {
		case <-reqCtx.Done():
			return nil
		case <-ls.ctx.Done():
			return nil
		case snap, open := <-updates:
			if !open {
				return nil
			}
			if err := writeStateEvent(resp, snap); err != nil {
				return nil
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(resp, ": keep-alive\n\n"); err != nil {
				return nil
			}
			resp.Flush()
		}
	}
}

func writeStateEvent(resp *echo.Response, snap translate.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(resp, "event: state\ndata: %s\n\n", payload); err != nil {
		return err
	}
	resp.Flush()
	return nil
}

func (s *Server) handleSessionMessages(c echo.Context) error {
	ls, ok := s.lookupSession(c)
	if !ok {
		return failNotFound(c, "Session not found")
	}

	topicID := ls.ctrl.TopicID()
	if topicID == "" {
		return success(c, map[string]any{"items": []assistant.Message{}})
	}

	items, err := s.messages.ListByTopic(c.Request().Context(), topicID)
	if err != nil {
		s.logger.Error().Err(err).Str("topic_id", topicID).Msg("query session messages failed")
		return internalError(c, "Failed to load session messages")
	}
	return success(c, map[string]any{"items": items})
}

func (s *Server) handleChangeLanguage(c echo.Context) error {
	ls, ok := s.lookupSession(c)
	if !ok {
		return failNotFound(c, "Session not found")
	}

	var req struct {
		Language string `json:"language"`
	}
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	lang := s.catalog.Resolve(req.Language)
	if lang.IsUnknown() {
		return failValidation(c, map[string]string{"language": "is not supported"})
	}

	// The session context keeps the resulting fetch alive after this
	// request returns.
	ls.ctrl.ChangeLanguage(ls.ctx, lang.Code)

	if topicID := ls.ctrl.TopicID(); topicID != "" {
		if err := s.messages.SetTopicTargetLang(c.Request().Context(), topicID, lang.Code); err != nil {
			s.logger.Warn().Err(err).Str("topic_id", topicID).Msg("Failed to record topic target language")
		}
	}

	return success(c, map[string]any{
		"session": s.buildSessionResponse(ls),
	})
}

func (s *Server) handlePauseSession(c echo.Context) error {
	ls, ok := s.lookupSession(c)
	if !ok {
		return failNotFound(c, "Session not found")
	}

	ls.ctrl.Pause()
	return success(c, map[string]any{
		"session": s.buildSessionResponse(ls),
	})
}

func (s *Server) handleRegenerateSession(c echo.Context) error {
	ls, ok := s.lookupSession(c)
	if !ok {
		return failNotFound(c, "Session not found")
	}

	ls.ctrl.Regenerate(ls.ctx)
	return success(c, map[string]any{
		"session": s.buildSessionResponse(ls),
	})
}

func (s *Server) handleDeleteSession(c echo.Context) error {
	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		return failValidation(c, map[string]string{"session_id": "is required"})
	}

	ls, ok := s.sessions.remove(sessionID)
	if !ok {
		return failNotFound(c, "Session not found")
	}

	s.closeSession(ls)
	return success(c, map[string]any{"closed": true})
}

func (s *Server) lookupSession(c echo.Context) (*liveSession, bool) {
	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		return nil, false
	}
	return s.sessions.get(sessionID)
}

func (s *Server) buildSessionResponse(ls *liveSession) sessionResponse {
	resp := sessionResponse{
		SessionID:  ls.id,
		TopicID:    ls.ctrl.TopicID(),
		SourceLang: ls.sourceLang,
		CreatedAt:  ls.createdAt,
		State:      ls.ctrl.Snapshot(),
	}
	if s.engine != nil {
		resp.Model = s.engine.ModelName()
	}
	return resp
}

func (s *Server) closeSession(ls *liveSession) {
	if ls == nil {
		return
	}

	topicID := ls.ctrl.TopicID()
	ls.ctrl.Close()
	ls.cancel()
	if topicID != "" {
		s.tracer.EndTopic(topicID, nil)
	}
	s.logger.Debug().Str("session_id", ls.id).Str("topic_id", topicID).Msg("Translation session closed")
}

func (s *Server) closeAllSessions() {
	for _, ls := range s.sessions.drain() {
		s.closeSession(ls)
	}
}
