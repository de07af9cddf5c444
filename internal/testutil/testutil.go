package testutil

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yourorg/arxivmcp/internal/arxiv"
	"github.com/yourorg/arxivmcp/internal/repository"
	"github.com/yourorg/arxivmcp/pkg/metrics"
	"github.com/yourorg/arxivmcp/pkg/model"
)

// MockLogger is a test logger that captures log calls for verification
type MockLogger struct {
	InfoCalls  []LogCall
	ErrorCalls []LogCall
}

// LogCall represents a single log method invocation
type LogCall struct {
	Msg  string
	Args []any
}

// Info implements logger.Logger
func (m *MockLogger) Info(msg string, args ...any) {
	m.InfoCalls = append(m.InfoCalls, LogCall{Msg: msg, Args: args})
}

// Error implements logger.Logger
func (m *MockLogger) Error(msg string, args ...any) {
	m.ErrorCalls = append(m.ErrorCalls, LogCall{Msg: msg, Args: args})
}

// Reset clears all captured log calls
func (m *MockLogger) Reset() {
	m.InfoCalls = nil
	m.ErrorCalls = nil
}

// AssertInfoCount verifies the number of Info calls
func (m *MockLogger) AssertInfoCount(t *testing.T, expected int) {
	t.Helper()
	if len(m.InfoCalls) != expected {
		t.Errorf("expected %d Info calls, got %d", expected, len(m.InfoCalls))
	}
}

// AssertErrorCount verifies the number of Error calls
func (m *MockLogger) AssertErrorCount(t *testing.T, expected int) {
	t.Helper()
	if len(m.ErrorCalls) != expected {
		t.Errorf("expected %d Error calls, got %d", expected, len(m.ErrorCalls))
	}
}

// Attr is one captured slog attribute
type Attr struct {
	Key   string
	Value any
}

// Record is one captured slog record with its attributes resolved
type Record struct {
	Msg   string
	Attrs []Attr
}

// CaptureHandler is a slog.Handler that records everything it receives,
// split by level, for assertions on structured log output
type CaptureHandler struct {
	mu         sync.Mutex
	InfoCalls  []Record
	WarnCalls  []Record
	ErrorCalls []Record
	DebugCalls []Record
}

// NewTestLogger returns an slog logger wired to a capture handler
func NewTestLogger() (*slog.Logger, *CaptureHandler) {
	h := &CaptureHandler{}
	return slog.New(h), h
}

// Enabled implements slog.Handler; everything is captured
func (h *CaptureHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

// Handle implements slog.Handler
func (h *CaptureHandler) Handle(_ context.Context, r slog.Record) error {
	rec := Record{Msg: r.Message}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs = append(rec.Attrs, Attr{Key: a.Key, Value: a.Value.Any()})
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	switch r.Level {
	case slog.LevelDebug:
		h.DebugCalls = append(h.DebugCalls, rec)
	case slog.LevelWarn:
		h.WarnCalls = append(h.WarnCalls, rec)
	case slog.LevelError:
		h.ErrorCalls = append(h.ErrorCalls, rec)
	default:
		h.InfoCalls = append(h.InfoCalls, rec)
	}
	return nil
}

// WithAttrs implements slog.Handler; attrs are dropped since tests attach
// attributes per call
func (h *CaptureHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

// WithGroup implements slog.Handler
func (h *CaptureHandler) WithGroup(_ string) slog.Handler {
	return h
}

// AssertInfoCount verifies the number of info records captured
func (h *CaptureHandler) AssertInfoCount(t *testing.T, expected int) {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.InfoCalls) != expected {
		t.Errorf("expected %d info records, got %d", expected, len(h.InfoCalls))
	}
}

// AssertErrorCount verifies the number of error records captured
func (h *CaptureHandler) AssertErrorCount(t *testing.T, expected int) {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.ErrorCalls) != expected {
		t.Errorf("expected %d error records, got %d", expected, len(h.ErrorCalls))
	}
}

// NewTestMetrics returns a Metrics instance on a private registry so tests
// never collide on the default registry
func NewTestMetrics() *metrics.Metrics {
	return metrics.NewWithRegistry("test", prometheus.NewRegistry())
}

// MockMCPServer is a test MCP HTTP server
type MockMCPServer struct {
	ServeHTTPFunc func(http.ResponseWriter, *http.Request)
}

// ServeHTTP implements http.Handler
func (m *MockMCPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Handle nil receiver (shouldn't happen in practice, but tests may pass nil)
	if m == nil {
		http.Error(w, "MockMCPServer is nil", http.StatusInternalServerError)
		return
	}

	if m.ServeHTTPFunc != nil {
		m.ServeHTTPFunc(w, r)
	} else {
		// Default behavior if no func is set
		w.WriteHeader(http.StatusOK)
	}
}

// FakeSearcher is a scripted arxiv.Searcher. It records the queries it
// receives and returns the configured result or error.
type FakeSearcher struct {
	Result  *arxiv.Result
	Err     error
	Queries []arxiv.Query
}

// Search implements arxiv.Searcher
func (f *FakeSearcher) Search(_ context.Context, q arxiv.Query) (*arxiv.Result, error) {
	f.Queries = append(f.Queries, q)
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Result != nil {
		return f.Result, nil
	}
	return &arxiv.Result{}, nil
}

// LastQuery returns the most recent query, failing the test when none was made
func (f *FakeSearcher) LastQuery(t *testing.T) arxiv.Query {
	t.Helper()
	if len(f.Queries) == 0 {
		t.Fatal("expected at least one arXiv query, got none")
	}
	return f.Queries[len(f.Queries)-1]
}

// FakePaperRepository is an in-memory repository.PaperRepository for
// service and handler tests. Behavior can be overridden per method via the
// func fields.
type FakePaperRepository struct {
	SaveResultsFunc func(ctx context.Context, topic string, papers []*model.Paper) (int, error)
	GetByIDFunc     func(ctx context.Context, paperID string) (*model.Paper, error)
	ListByTopicFunc func(ctx context.Context, topic string) ([]*model.Paper, error)
	ListTopicsFunc  func(ctx context.Context) ([]model.TopicInfo, error)

	mu     sync.Mutex
	papers map[string][]*model.Paper // topic -> papers
}

// SaveResults implements repository.PaperRepository
func (f *FakePaperRepository) SaveResults(ctx context.Context, topic string, papers []*model.Paper) (int, error) {
	if f.SaveResultsFunc != nil {
		return f.SaveResultsFunc(ctx, topic, papers)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.papers == nil {
		f.papers = make(map[string][]*model.Paper)
	}

	newPapers := 0
	for _, p := range papers {
		exists := false
		for _, stored := range f.papers[topic] {
			if stored.PaperID == p.PaperID {
				exists = true
				break
			}
		}
		if !exists {
			f.papers[topic] = append(f.papers[topic], p)
			newPapers++
		}
	}
	return newPapers, nil
}

// GetByID implements repository.PaperRepository
func (f *FakePaperRepository) GetByID(ctx context.Context, paperID string) (*model.Paper, error) {
	if f.GetByIDFunc != nil {
		return f.GetByIDFunc(ctx, paperID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, papers := range f.papers {
		for _, p := range papers {
			if p.PaperID == paperID {
				return p, nil
			}
		}
	}
	return nil, repository.ErrPaperNotFound
}

// ListByTopic implements repository.PaperRepository
func (f *FakePaperRepository) ListByTopic(ctx context.Context, topic string) ([]*model.Paper, error) {
	if f.ListByTopicFunc != nil {
		return f.ListByTopicFunc(ctx, topic)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	papers := f.papers[topic]
	if len(papers) == 0 {
		return nil, repository.ErrTopicNotFound
	}
	return papers, nil
}

// ListTopics implements repository.PaperRepository
func (f *FakePaperRepository) ListTopics(ctx context.Context) ([]model.TopicInfo, error) {
	if f.ListTopicsFunc != nil {
		return f.ListTopicsFunc(ctx)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	topics := make([]model.TopicInfo, 0, len(f.papers))
	for name, papers := range f.papers {
		topics = append(topics, model.TopicInfo{Name: name, PaperCount: len(papers)})
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })
	return topics, nil
}
