package service

import (
	"TodayInHistory/backend/go/internal/fact_service/store"
	"TodayInHistory/backend/go/internal/llm"
	"TodayInHistory/backend/go/internal/models"
	"TodayInHistory/backend/go/pkg/logger"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLLM 依次返回预设的结果，用尽后重复最后一个。
type scriptedLLM struct {
	mu      sync.Mutex
	replies []reply
	calls   int
	prompts []string
}

type reply struct {
	text string
	err  error
}

func (s *scriptedLLM) GenerateContent(_ context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	s.calls++
	s.prompts = append(s.prompts, req.Prompt)
	r := s.replies[i]
	if r.err != nil {
		return nil, r.err
	}
	return &models.GenerateContentResponse{Text: r.text}, nil
}

func (s *scriptedLLM) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type failingStore struct{ store.Store }

func (failingStore) MarkUsed(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

const (
	factA = "1947: India gained independence from British rule on August 15."
	factB = "1983: India won its first Cricket World Cup at Lord's."
)

var fixedNow = time.Date(2026, 8, 15, 10, 7, 0, 0, time.UTC)

func testProviderConfig() ProviderConfig {
	return ProviderConfig{
		MaxAttempts:       2,
		RetryDelay:        time.Second,
		MinLength:         20,
		FingerprintLength: 40,
		MaxNewTokens:      100,
		Temperature:       0.8,
		TopP:              0.9,
	}
}

func newMemoryStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewMemoryStore(100, time.Hour, time.Now)
	require.NoError(t, err)
	return s
}

// newTestProvider 返回一个使用固定时钟并记录等待时长的 Provider。
func newTestProvider(client llm.LLM, st store.Store) (*Provider, *[]time.Duration) {
	var waits []time.Duration
	p := NewProvider(client, st, testProviderConfig(),
		WithProviderClock(func() time.Time { return fixedNow }),
		WithProviderLogger(logger.Discard()),
	)
	p.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return p, &waits
}

func TestProvider_AcceptsFirstValidFact(t *testing.T) {
	client := &scriptedLLM{replies: []reply{{text: "  " + factA + "  "}}}
	st := newMemoryStore(t)
	p, waits := newTestProvider(client, st)

	fact, err := p.Fetch(context.Background(), 8, 15)
	require.NoError(t, err)
	assert.Equal(t, factA, fact.Text)
	assert.Equal(t, models.OriginGenerated, fact.Origin)
	assert.Equal(t, 1, client.Calls())
	assert.Empty(t, *waits)
	assert.Equal(t, BuildPrompt(8, 15), client.prompts[0])

	stats, _ := st.Stats(context.Background())
	assert.Equal(t, 1, stats.UsedFactsCount)
}

func TestProvider_RetriesAfterErrorWithDelay(t *testing.T) {
	client := &scriptedLLM{replies: []reply{{err: llm.ErrModelLoading}, {text: factA}}}
	p, waits := newTestProvider(client, newMemoryStore(t))

	fact, err := p.Fetch(context.Background(), 8, 15)
	require.NoError(t, err)
	assert.Equal(t, factA, fact.Text)
	assert.Equal(t, 2, client.Calls())
	assert.Equal(t, []time.Duration{time.Second}, *waits)
}

func TestProvider_FallsBackWhenAttemptsExhausted(t *testing.T) {
	client := &scriptedLLM{replies: []reply{{err: errors.New("HTTP 500")}}}
	st := newMemoryStore(t)
	p, waits := newTestProvider(client, st)

	fact, err := p.Fetch(context.Background(), 8, 15)
	require.NoError(t, err)
	assert.Equal(t, models.OriginFallback, fact.Origin)
	assert.Equal(t, SelectFallback(8, 15, 7), fact.Text)
	assert.Equal(t, 2, client.Calls(), "never more than maxAttempts calls")
	assert.Len(t, *waits, 1, "no wait after the last attempt")

	stats, _ := st.Stats(context.Background())
	assert.Equal(t, 0, stats.UsedFactsCount, "fallback facts are not fingerprinted")
}

func TestProvider_ShortOutputIsRetryable(t *testing.T) {
	client := &scriptedLLM{replies: []reply{{text: "too short"}, {text: "exactly twenty chars"}}}
	p, _ := newTestProvider(client, newMemoryStore(t))

	fact, err := p.Fetch(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, models.OriginFallback, fact.Origin)
	assert.Equal(t, 2, client.Calls())
}

func TestProvider_DuplicateRetriesImmediately(t *testing.T) {
	client := &scriptedLLM{replies: []reply{{text: factA}, {text: factB}}}
	st := newMemoryStore(t)
	_, err := st.MarkUsed(context.Background(), Fingerprint(factA, 40))
	require.NoError(t, err)
	p, waits := newTestProvider(client, st)

	fact, err := p.Fetch(context.Background(), 8, 15)
	require.NoError(t, err)
	assert.Equal(t, factB, fact.Text)
	assert.Equal(t, 2, client.Calls())
	assert.Empty(t, *waits, "duplicate retries do not wait")
}

func TestProvider_DuplicateOnLastAttemptIsAccepted(t *testing.T) {
	client := &scriptedLLM{replies: []reply{{text: factA}}}
	st := newMemoryStore(t)
	_, _ = st.MarkUsed(context.Background(), Fingerprint(factA, 40))
	p, _ := newTestProvider(client, st)

	fact, err := p.Fetch(context.Background(), 8, 15)
	require.NoError(t, err)
	assert.Equal(t, factA, fact.Text)
	assert.Equal(t, models.OriginGenerated, fact.Origin)
	assert.Equal(t, 2, client.Calls())
}

func TestProvider_StoreFailureIsHard(t *testing.T) {
	client := &scriptedLLM{replies: []reply{{text: factA}}}
	p, _ := newTestProvider(client, failingStore{newMemoryStore(t)})

	_, err := p.Fetch(context.Background(), 8, 15)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestProvider_CancelledWhileWaiting(t *testing.T) {
	client := &scriptedLLM{replies: []reply{{err: errors.New("timeout")}}}
	p := NewProvider(client, newMemoryStore(t), ProviderConfig{MaxAttempts: 2, RetryDelay: time.Hour, MinLength: 20},
		WithProviderLogger(logger.Discard()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Fetch(ctx, 8, 15)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrServiceUnavailable)
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not return after cancellation")
	}
	assert.Equal(t, 1, client.Calls())
}

func TestCleanFact(t *testing.T) {
	prompt := BuildPrompt(8, 15)
	cases := map[string]string{
		prompt + " : - 1947: Independence.": "1947: Independence.",
		"-- India won the match.":          "India won the match.",
		"\n:\tTagore wins Nobel":           "Tagore wins Nobel",
		"Plain fact stays as is":           "Plain fact stays as is",
		prompt:                             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanFact(in, prompt), "input %q", in)
	}
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "1947: india gained independence from bri", Fingerprint(factA, 40))
	assert.Equal(t, "short", Fingerprint("SHORT", 40))
	assert.Equal(t, "नमस्", Fingerprint("नमस्ते", 4))
	assert.Equal(t, Fingerprint(factA, 40), Fingerprint(factA+" extra tail", 40))
}

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t,
		"On 1/9, an important event in Indian history occurred. Tell me about a significant Indian historical event, scientific achievement, sports victory, or famous personality birth on this date.",
		BuildPrompt(1, 9))
}
