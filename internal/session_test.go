package internal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAcquirer struct {
	mu      sync.Mutex
	calls   []VideoReference
	content map[string]string
	err     error
}

func (f *fakeAcquirer) Acquire(ctx context.Context, ref VideoReference) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ref)
	if f.err != nil {
		return "", f.err
	}
	if text, ok := f.content[ref.ID]; ok {
		return text, nil
	}
	return "transcript of " + ref.ID, nil
}

func (f *fakeAcquirer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeAnswerer struct {
	mu        sync.Mutex
	questions []string
	contents  []string
}

func (f *fakeAnswerer) Answer(ctx context.Context, content, question string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, question)
	f.contents = append(f.contents, content)
	return fmt.Sprintf("answer to %q", question)
}

func newTestSession(reset ResetPolicy, acq *fakeAcquirer) (*Session, *fakeAnswerer) {
	ans := &fakeAnswerer{}
	return NewSession("test", &Pipeline{Variant: VariantLocal, Acquirer: acq, Answerer: ans, Reset: reset}), ans
}

func TestSessionLoadAndAsk(t *testing.T) {
	ctx := context.Background()
	acq := &fakeAcquirer{content: map[string]string{"dQw4w9WgXcQ": "never gonna give you up"}}
	s, ans := newTestSession(ResetAlways, acq)

	snap := s.Load(ctx, "https://youtu.be/dQw4w9WgXcQ")
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, BannerSuccess, snap.Banner.Kind)
	assert.Equal(t, msgContentLoaded, snap.Banner.Text)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", snap.URL)
	assert.Equal(t, "dQw4w9WgXcQ", snap.VideoID)
	assert.True(t, snap.HasContent)

	ex, ok := s.Ask(ctx, "  what is it about?  ")
	require.True(t, ok)
	assert.Equal(t, "what is it about?", ex.Question)
	assert.Equal(t, `answer to "what is it about?"`, ex.Answer)
	assert.Equal(t, []string{"never gonna give you up"}, ans.contents)

	_, ok = s.Ask(ctx, "and then?")
	require.True(t, ok)

	snap = s.Snapshot()
	require.Len(t, snap.Exchanges, 2)
	assert.Equal(t, "what is it about?", snap.Exchanges[0].Question)
	assert.Equal(t, "and then?", snap.Exchanges[1].Question)
}

func TestSessionEndToEndLocal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	source := &fakeSource{dir: dir, audioSize: 32}
	transcriber := &fakeTranscriber{text: "T"}
	model := &fakeModel{reply: "It is about T."}
	s := NewSession("e2e", &Pipeline{
		Variant:  VariantLocal,
		Acquirer: NewLocalAcquirer(source, transcriber, nil, WithTranscriptCache(filepath.Join(dir, "transcripts"))),
		Answerer: NewAnswerGenerator(model, NewPromptManager("", ""), 0, nil),
		Reset:    ResetAlways,
	})

	snap := s.Load(ctx, "https://www.youtube.com/watch?v=ABC123DEF45")
	require.Equal(t, StateReady, snap.State)
	assert.Equal(t, "ABC123DEF45", snap.VideoID)
	assert.Equal(t, "T", snap.Content)
	assert.Empty(t, snap.Exchanges)
	assert.Equal(t, []string{filepath.Join(dir, "ABC123DEF45.mp3")}, transcriber.files)

	ex, ok := s.Ask(ctx, "What is this about?")
	require.True(t, ok)
	assert.Equal(t, "What is this about?", ex.Question)
	assert.Equal(t, "It is about T.", ex.Answer)

	snap = s.Snapshot()
	assert.Equal(t, []Exchange{ex}, snap.Exchanges)
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "T")
	assert.Contains(t, model.prompts[0], "What is this about?")
}

func TestSessionAskClearsLoadBanner(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(ResetAlways, &fakeAcquirer{})

	snap := s.Load(ctx, "https://youtu.be/abc")
	require.Equal(t, msgContentLoaded, snap.Banner.Text)

	s.Ask(ctx, "q")
	assert.Equal(t, Banner{}, s.Snapshot().Banner)
}

func TestSessionRejectsPathLikeIDs(t *testing.T) {
	ctx := context.Background()
	acq := &fakeAcquirer{}
	s, _ := newTestSession(ResetAlways, acq)

	snap := s.Load(ctx, "https://youtu.be/../../secret")
	assert.Equal(t, BannerError, snap.Banner.Kind)
	assert.False(t, snap.HasContent)
	assert.Zero(t, acq.callCount())
}

func TestSessionInvalidURLNeverCallsPipeline(t *testing.T) {
	ctx := context.Background()
	acq := &fakeAcquirer{}
	s, _ := newTestSession(ResetAlways, acq)

	s.Load(ctx, "https://youtu.be/abc")
	s.Ask(ctx, "q")

	snap := s.Load(ctx, "https://example.com/nothing-here")
	assert.Equal(t, 1, acq.callCount())
	assert.Equal(t, BannerError, snap.Banner.Kind)
	assert.Equal(t, "Invalid YouTube URL. Please try again.", snap.Banner.Text)
	// the loaded video and its log survive a rejected URL
	assert.True(t, snap.HasContent)
	assert.Len(t, snap.Exchanges, 1)
}

func TestSessionNewURLResetsLog(t *testing.T) {
	for _, reset := range []ResetPolicy{ResetAlways, ResetOnURLChange} {
		ctx := context.Background()
		s, _ := newTestSession(reset, &fakeAcquirer{})

		s.Load(ctx, "https://youtu.be/first")
		s.Ask(ctx, "q1")
		s.Ask(ctx, "q2")

		snap := s.Load(ctx, "https://youtu.be/second")
		assert.Empty(t, snap.Exchanges)
		assert.Equal(t, "second", snap.VideoID)
		assert.Equal(t, "transcript of second", snap.Content)
	}
}

func TestSessionSameURLKeepsLogOnURLChangePolicy(t *testing.T) {
	ctx := context.Background()
	acq := &fakeAcquirer{}
	s, _ := newTestSession(ResetOnURLChange, acq)

	s.Load(ctx, "https://www.youtube.com/watch?v=abc")
	s.Ask(ctx, "q1")

	snap := s.Load(ctx, "https://www.youtube.com/watch?v=abc")
	assert.Len(t, snap.Exchanges, 1)
	assert.Equal(t, msgAlreadyLoaded, snap.Banner.Text)
	assert.Equal(t, 1, acq.callCount(), "same url must not re-acquire")
}

func TestSessionSameURLResetsOnAlwaysPolicy(t *testing.T) {
	ctx := context.Background()
	acq := &fakeAcquirer{}
	s, _ := newTestSession(ResetAlways, acq)

	s.Load(ctx, "https://www.youtube.com/watch?v=abc")
	s.Ask(ctx, "q1")

	snap := s.Load(ctx, "https://www.youtube.com/watch?v=abc")
	assert.Empty(t, snap.Exchanges)
	assert.Equal(t, 2, acq.callCount())
}

func TestSessionSameURLWithoutContentRetries(t *testing.T) {
	ctx := context.Background()
	acq := &fakeAcquirer{err: Wrap(ErrNotFound, "video", nil)}
	s, _ := newTestSession(ResetOnURLChange, acq)

	snap := s.Load(ctx, "https://youtu.be/abc")
	assert.Equal(t, StateError, snap.State)

	acq.err = nil
	snap = s.Load(ctx, "https://youtu.be/abc")
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, 2, acq.callCount())
}

func TestSessionAskWithoutContent(t *testing.T) {
	ctx := context.Background()
	s, ans := newTestSession(ResetAlways, &fakeAcquirer{})

	_, ok := s.Ask(ctx, "anything?")
	assert.False(t, ok)
	assert.Empty(t, ans.questions)
	assert.Empty(t, s.Snapshot().Exchanges)
}

func TestSessionBlankQuestion(t *testing.T) {
	ctx := context.Background()
	s, ans := newTestSession(ResetAlways, &fakeAcquirer{})
	s.Load(ctx, "https://youtu.be/abc")

	_, ok := s.Ask(ctx, "   ")
	assert.False(t, ok)
	assert.Empty(t, ans.questions)
}

func TestSessionAcquisitionFailure(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		banner string
	}{
		{"download", Wrap(ErrDownloadFailed, "yt-dlp", errors.New("403")), "Failed to download or process the video."},
		{"metadata", Wrap(ErrNotFound, "video abc", nil), "Failed to retrieve video details."},
		{"timeout", Wrap(ErrTimeout, "job", nil), "Transcription did not finish in time. Please try again later."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			acq := &fakeAcquirer{}
			s, _ := newTestSession(ResetOnURLChange, acq)

			s.Load(ctx, "https://youtu.be/first")
			s.Ask(ctx, "q")

			acq.err = tt.err
			snap := s.Load(ctx, "https://youtu.be/second")
			assert.Equal(t, StateError, snap.State)
			assert.Equal(t, BannerError, snap.Banner.Kind)
			assert.Equal(t, tt.banner, snap.Banner.Text)
			assert.False(t, snap.HasContent)
			assert.Empty(t, snap.Exchanges)

			// still usable afterwards
			acq.err = nil
			snap = s.Load(ctx, "https://youtu.be/third")
			assert.Equal(t, StateReady, snap.State)
			_, ok := s.Ask(ctx, "q")
			assert.True(t, ok)
		})
	}
}

func TestSessionEmptyContentIsAnError(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(ResetAlways, &fakeAcquirer{content: map[string]string{"abc": "   "}})

	snap := s.Load(ctx, "https://youtu.be/abc")
	assert.Equal(t, StateError, snap.State)
	assert.False(t, snap.HasContent)
}

func TestSessionClear(t *testing.T) {
	ctx := context.Background()
	acq := &fakeAcquirer{}
	s, _ := newTestSession(ResetOnURLChange, acq)

	s.Load(ctx, "https://youtu.be/abc")
	s.Ask(ctx, "q")
	s.Clear()

	snap := s.Snapshot()
	assert.False(t, snap.HasContent)
	assert.Empty(t, snap.Exchanges)

	// after a clear the same url is loaded again
	s.Load(ctx, "https://youtu.be/abc")
	assert.Equal(t, 2, acq.callCount())
}

func TestSessionStoreIsolation(t *testing.T) {
	ctx := context.Background()
	pipeline := &Pipeline{Acquirer: &fakeAcquirer{}, Answerer: &fakeAnswerer{}, Reset: ResetAlways}
	store := NewSessionStore(pipeline, time.Hour)

	a, created := store.GetOrCreate("")
	require.True(t, created)
	b, created := store.GetOrCreate("unknown-id")
	require.True(t, created)
	assert.NotEqual(t, a.ID, b.ID)

	a.Load(ctx, "https://youtu.be/abc")
	a.Ask(ctx, "q")

	assert.Empty(t, b.Snapshot().Exchanges)
	assert.False(t, b.Snapshot().HasContent)

	again, created := store.GetOrCreate(a.ID)
	assert.False(t, created)
	assert.Same(t, a, again)
	assert.Equal(t, 2, store.Len())
}

func TestSessionStorePrunesIdleSessions(t *testing.T) {
	pipeline := &Pipeline{Acquirer: &fakeAcquirer{}, Answerer: &fakeAnswerer{}}
	store := NewSessionStore(pipeline, time.Minute)

	old, _ := store.GetOrCreate("")
	old.lastSeen.Store(time.Now().Add(-2 * time.Minute).UnixNano())

	store.GetOrCreate("")

	_, ok := store.Get(old.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, store.Len())
}

func TestSessionSerializesOperations(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(ResetAlways, &fakeAcquirer{})
	s.Load(ctx, "https://youtu.be/abc")

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Ask(ctx, fmt.Sprintf("q%d", i))
		}()
	}
	wg.Wait()

	assert.Len(t, s.Snapshot().Exchanges, 20)
}
