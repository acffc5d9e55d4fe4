package search

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu      sync.Mutex
	calls   []string
	respond func(ctx context.Context, query string, numResults int) (json.RawMessage, error)
}

func (f *fakeProvider) CallSearch(ctx context.Context, query string, numResults int) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	f.mu.Unlock()
	return f.respond(ctx, query, numResults)
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordedEvent struct {
	channel string
	event   string
	payload StatusPayload
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, channel, event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{channel: channel, event: event, payload: payload.(StatusPayload)})
	return f.err
}

func (f *fakeBroadcaster) statuses() []Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Status, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.payload.Status)
	}
	return out
}

func respondWith(body string) func(context.Context, string, int) (json.RawMessage, error) {
	return func(context.Context, string, int) (json.RawMessage, error) {
		return json.RawMessage(body), nil
	}
}

const twoResults = `{"requestId":"r1","resolvedSearchType":"neural","results":[
	{"id":"1","url":"https://a.example.com","title":"A","text":"Alpha."},
	{"id":"2","url":"https://b.example.com","title":"B","text":"Beta.","score":0.5}
]}`

func TestSearch_DecodesResults(t *testing.T) {
	provider := &fakeProvider{respond: func(_ context.Context, query string, n int) (json.RawMessage, error) {
		assert.Equal(t, "go modules", query)
		assert.Equal(t, DefaultNumResults, n)
		return json.RawMessage(twoResults), nil
	}}
	svc := NewService(provider, nil, ServiceConfig{})

	resp, err := svc.Search(context.Background(), "go modules", 0)
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "https://b.example.com", resp.Results[1].URL)
	require.NotNil(t, resp.Results[1].Score)
	assert.InDelta(t, 0.5, *resp.Results[1].Score, 1e-9)
}

func TestSearch_EmptyQuery(t *testing.T) {
	provider := &fakeProvider{respond: respondWith(twoResults)}
	svc := NewService(provider, nil, ServiceConfig{})

	_, err := svc.Search(context.Background(), "   ", 5)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
	assert.Equal(t, 0, provider.callCount())
}

func TestSearch_ValidatesShape(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "plain text"},
		{"array", `[1,2,3]`},
		{"missing results", `{"requestId":"r"}`},
		{"results not array", `{"results":"nope"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&fakeProvider{respond: respondWith(tt.body)}, nil, ServiceConfig{})
			_, err := svc.Search(context.Background(), "q", 1)
			require.Error(t, err)
			assert.True(t, IsKind(err, KindValidation))

			var searchErr *SearchError
			require.ErrorAs(t, err, &searchErr)
			assert.Equal(t, "q", searchErr.Query)
		})
	}
}

func TestSearch_TimesOutAndCancelsCall(t *testing.T) {
	cancelled := make(chan struct{})
	provider := &fakeProvider{respond: func(ctx context.Context, _ string, _ int) (json.RawMessage, error) {
		<-ctx.Done()
		close(cancelled)
		return nil, ctx.Err()
	}}
	svc := NewService(provider, nil, ServiceConfig{Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := svc.Search(context.Background(), "slow", 1)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, IsKind(err, KindTimeout))
	assert.Equal(t, "Search request timed out after 50ms", err.Error())
	assert.Less(t, elapsed, 2*time.Second)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("in-flight call was not cancelled")
	}
}

func TestSearch_TimesOutWhenProviderIgnoresContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	provider := &fakeProvider{respond: func(context.Context, string, int) (json.RawMessage, error) {
		<-release
		return json.RawMessage(twoResults), nil
	}}
	svc := NewService(provider, nil, ServiceConfig{Timeout: 30 * time.Millisecond})

	_, err := svc.Search(context.Background(), "stuck", 1)
	assert.True(t, IsKind(err, KindTimeout))
}

func TestSearch_ParentCancelIsNotTimeout(t *testing.T) {
	provider := &fakeProvider{respond: func(ctx context.Context, _ string, _ int) (json.RawMessage, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	svc := NewService(provider, nil, ServiceConfig{Timeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := svc.Search(ctx, "q", 1)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSearch))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearch_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     ErrorKind
		contains string
	}{
		{"connection refused", errors.New("dial unix: connection refused"), KindConnection, "Failed to connect to search service"},
		{"missing binary", errors.New(`exec: "websearch-provider": executable file not found in $PATH`), KindConnection, "Failed to connect"},
		{"eof", errors.New("unexpected EOF"), KindConnection, "Failed to connect"},
		{"generic", errors.New("quota exhausted"), KindSearch, "Search failed: quota exhausted"},
		{"protocol passthrough", NewProtocolError("q", CodeInvalidParams, "Query must be a non-empty string"), KindProtocol, "Query must be a non-empty string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{respond: func(context.Context, string, int) (json.RawMessage, error) {
				return nil, tt.err
			}}
			svc := NewService(provider, nil, ServiceConfig{})

			_, err := svc.Search(context.Background(), "q", 1)
			require.Error(t, err)
			assert.True(t, IsKind(err, tt.kind), "kind for %v", err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestEnrich_NoTriggerLeavesPromptAlone(t *testing.T) {
	provider := &fakeProvider{respond: respondWith(twoResults)}
	broadcaster := &fakeBroadcaster{}
	svc := NewService(provider, broadcaster, ServiceConfig{})

	prompt := svc.EnrichPromptWithWebResults(context.Background(), Session{ID: "s1"}, "just chatting")

	assert.Equal(t, "just chatting", prompt)
	assert.Equal(t, 0, provider.callCount())
	assert.Empty(t, broadcaster.statuses())
}

func TestEnrich_Success(t *testing.T) {
	provider := &fakeProvider{respond: respondWith(twoResults)}
	broadcaster := &fakeBroadcaster{}
	svc := NewService(provider, broadcaster, ServiceConfig{})

	prompt := svc.EnrichPromptWithWebResults(context.Background(), Session{ID: "s1"}, "@web go modules")

	assert.Contains(t, prompt, `Web search results for "go modules"`)
	assert.Contains(t, prompt, "[Result 2]")
	assert.Contains(t, prompt, "Original request: @web go modules")
	assert.Equal(t, []Status{StatusSearching, StatusComplete}, broadcaster.statuses())

	for _, e := range broadcaster.events {
		assert.Equal(t, "session:s1", e.channel)
		assert.Equal(t, StatusEvent, e.event)
		assert.Equal(t, "go modules", e.payload.Query)
	}
}

func TestEnrich_FailureBroadcastsOneError(t *testing.T) {
	provider := &fakeProvider{respond: func(context.Context, string, int) (json.RawMessage, error) {
		return nil, errors.New("connection reset by peer")
	}}
	broadcaster := &fakeBroadcaster{}
	svc := NewService(provider, broadcaster, ServiceConfig{})

	prompt := svc.EnrichPromptWithWebResults(context.Background(), Session{ID: "s2"}, "look at https://example.com/x")

	assert.Equal(t, "look at https://example.com/x", prompt)
	require.Equal(t, []Status{StatusSearching, StatusError}, broadcaster.statuses())
	assert.Equal(t, "Failed to connect to search service", broadcaster.events[1].payload.Error)
	assert.Equal(t, "https://example.com/x", broadcaster.events[1].payload.Query)
}

func TestEnrich_TimeoutFallsBack(t *testing.T) {
	provider := &fakeProvider{respond: func(ctx context.Context, _ string, _ int) (json.RawMessage, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	broadcaster := &fakeBroadcaster{}
	svc := NewService(provider, broadcaster, ServiceConfig{Timeout: 20 * time.Millisecond})

	prompt := svc.EnrichPromptWithWebResults(context.Background(), Session{ID: "s3"}, "@web slow thing")

	assert.Equal(t, "@web slow thing", prompt)
	require.Equal(t, []Status{StatusSearching, StatusError}, broadcaster.statuses())
	assert.Equal(t, "Search request timed out after 20ms", broadcaster.events[1].payload.Error)
}

func TestEnrich_PanicFallsBack(t *testing.T) {
	provider := &fakeProvider{respond: respondWith(twoResults)}
	broadcaster := &panickyBroadcaster{}
	svc := NewService(provider, broadcaster, ServiceConfig{})

	var prompt string
	require.NotPanics(t, func() {
		prompt = svc.EnrichPromptWithWebResults(context.Background(), Session{ID: "s4"}, "@web boom")
	})
	assert.Equal(t, "@web boom", prompt)
	assert.Equal(t, unknownErrorMessage, broadcaster.lastError)
}

func TestEnrich_BroadcastFailureDoesNotAbort(t *testing.T) {
	provider := &fakeProvider{respond: respondWith(twoResults)}
	broadcaster := &fakeBroadcaster{err: errors.New("hub closed")}
	svc := NewService(provider, broadcaster, ServiceConfig{})

	prompt := svc.EnrichPromptWithWebResults(context.Background(), Session{ID: "s5"}, "@web go")

	assert.Contains(t, prompt, "Original request: @web go")
	assert.Equal(t, []Status{StatusSearching, StatusComplete}, broadcaster.statuses())
}

// panickyBroadcaster panics on the completion status and records the error status.
type panickyBroadcaster struct {
	lastError string
}

func (p *panickyBroadcaster) Broadcast(_ context.Context, _, _ string, payload any) error {
	status := payload.(StatusPayload)
	switch status.Status {
	case StatusComplete:
		panic("subscriber map corrupted")
	case StatusError:
		p.lastError = status.Error
	}
	return nil
}

func TestSearch_ReportsOutcome(t *testing.T) {
	var outcomes []string
	observe := func(outcome string, elapsed time.Duration) {
		assert.GreaterOrEqual(t, elapsed, time.Duration(0))
		outcomes = append(outcomes, outcome)
	}

	ok := NewService(&fakeProvider{respond: respondWith(twoResults)}, nil, ServiceConfig{OnSearch: observe})
	_, err := ok.Search(context.Background(), "go", 1)
	require.NoError(t, err)

	bad := NewService(&fakeProvider{respond: respondWith(`{"nope":1}`)}, nil, ServiceConfig{OnSearch: observe})
	_, err = bad.Search(context.Background(), "go", 1)
	require.Error(t, err)

	failing := NewService(&fakeProvider{respond: func(context.Context, string, int) (json.RawMessage, error) {
		return nil, errors.New("connection refused")
	}}, nil, ServiceConfig{OnSearch: observe})
	_, err = failing.Search(context.Background(), "go", 1)
	require.Error(t, err)

	assert.Equal(t, []string{"ok", "validation", "connection"}, outcomes)
}
