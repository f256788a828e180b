package internal

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	msgContentLoaded  = "Transcript loaded. You can now ask questions."
	msgAlreadyLoaded  = "Transcript already loaded. You can keep asking questions."
	defaultSessionTTL = 2 * time.Hour
)

// ContentAcquirer obtains the text a conversation is about
type ContentAcquirer interface {
	Acquire(ctx context.Context, ref VideoReference) (string, error)
}

// Answerer answers a question against content. Failures come back as text.
type Answerer interface {
	Answer(ctx context.Context, content, question string) string
}

// ResetPolicy decides when loading a URL discards the current conversation
type ResetPolicy int

const (
	// ResetAlways clears content and log on every load
	ResetAlways ResetPolicy = iota
	// ResetOnURLChange clears only when the URL differs from the last one seen
	ResetOnURLChange
)

// Pipeline wires a content source and an answer source into one app variant
type Pipeline struct {
	Variant  string
	Acquirer ContentAcquirer
	Answerer Answerer
	Reset    ResetPolicy
	Logger   *slog.Logger
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Session is one user's conversation. Operations are serialized so a session
// only ever has one pending load or question.
type Session struct {
	ID string

	pipeline *Pipeline
	mu       sync.Mutex
	conv     *Conversation
	lastURL  string
	lastSeen atomic.Int64 // unix nanos, read without holding mu
}

// NewSession creates a session bound to pipeline
func NewSession(id string, pipeline *Pipeline) *Session {
	s := &Session{
		ID:       id,
		pipeline: pipeline,
		conv:     NewConversation(),
	}
	s.touch()
	return s
}

// Load resolves rawURL and acquires its content. Errors never escape: they end
// up in the returned snapshot's banner.
func (s *Session) Load(ctx context.Context, rawURL string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	log := s.pipeline.logger().With(slog.String("session", s.ID))
	rawURL = strings.TrimSpace(rawURL)

	ref, err := ResolveVideo(rawURL)
	if err != nil {
		log.Info("rejected video url", slog.String("url", rawURL))
		s.conv.Banner = Banner{Kind: BannerError, Text: UserMessage(err)}
		return s.conv.Snapshot()
	}

	sameURL := rawURL == s.lastURL
	if s.pipeline.Reset == ResetOnURLChange && sameURL && s.conv.HasContent() {
		log.Debug("same url, keeping conversation", slog.String("video_id", ref.ID))
		s.conv.State = StateReady
		s.conv.Banner = Banner{Kind: BannerSuccess, Text: msgAlreadyLoaded}
		return s.conv.Snapshot()
	}

	if s.pipeline.Reset == ResetAlways || !sameURL {
		s.conv.Reset()
	}
	s.lastURL = rawURL
	s.conv.URL = ref.URL
	s.conv.VideoID = ref.ID
	s.conv.Content = ""
	s.conv.State = StateLoading

	start := time.Now()
	log.Info("loading video", slog.String("video_id", ref.ID), slog.String("variant", s.pipeline.Variant))

	content, err := s.pipeline.Acquirer.Acquire(ctx, ref)
	if err == nil && strings.TrimSpace(content) == "" {
		err = Wrap(ErrTranscriptionFailed, "no text for "+ref.ID, nil)
	}
	if err != nil {
		log.Error("loading video failed", slog.String("video_id", ref.ID), slog.Any("error", err))
		s.conv.State = StateError
		s.conv.Banner = Banner{Kind: BannerError, Text: UserMessage(err)}
		return s.conv.Snapshot()
	}

	s.conv.Content = content
	s.conv.State = StateReady
	s.conv.Banner = Banner{Kind: BannerSuccess, Text: msgContentLoaded}
	log.Info("video loaded",
		slog.String("video_id", ref.ID),
		slog.Int("chars", len(content)),
		slog.Duration("took", time.Since(start)))

	return s.conv.Snapshot()
}

// Ask answers question against the loaded content and appends the exchange.
// Nothing is recorded for a blank question or when no content is loaded.
func (s *Session) Ask(ctx context.Context, question string) (Exchange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	question = strings.TrimSpace(question)
	if question == "" || !s.conv.HasContent() {
		return Exchange{}, false
	}

	// the load banner belongs to the load that produced it
	s.conv.Banner = Banner{}
	answer := s.pipeline.Answerer.Answer(ctx, s.conv.Content, question)
	ex := s.conv.Append(question, answer)
	s.pipeline.logger().Debug("question answered",
		slog.String("session", s.ID),
		slog.Int("exchanges", s.conv.Len()))
	return ex, true
}

// Clear forgets the loaded video and the log
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv.Reset()
	s.lastURL = ""
}

// Snapshot returns the current conversation state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.Snapshot()
}

func (s *Session) touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// SessionStore keeps sessions apart; nothing is shared between them
type SessionStore struct {
	pipeline *Pipeline
	ttl      time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionStore creates a store whose sessions expire after ttl of inactivity
func NewSessionStore(pipeline *Pipeline, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{
		pipeline: pipeline,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for id if it exists
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

// GetOrCreate returns the session for id, creating a fresh one with a new id
// when it is unknown. The boolean reports whether a session was created.
func (st *SessionStore) GetOrCreate(id string) (*Session, bool) {
	if s, ok := st.Get(id); ok {
		return s, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.pruneLocked(time.Now())

	s := NewSession(uuid.NewString(), st.pipeline)
	st.sessions[s.ID] = s
	return s, true
}

// Len returns the number of live sessions
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *SessionStore) pruneLocked(now time.Time) {
	for id, s := range st.sessions {
		if s.idleSince(now) > st.ttl {
			delete(st.sessions, id)
		}
	}
}
