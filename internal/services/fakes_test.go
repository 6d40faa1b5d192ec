package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Conceptual-Machines/midigen-api/internal/apperr"
	"github.com/Conceptual-Machines/midigen-api/internal/llm"
	"github.com/Conceptual-Machines/midigen-api/internal/models"
	"github.com/Conceptual-Machines/midigen-api/internal/storage"
)

type mockProvider struct {
	completeFunc func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error)
	requests     []*llm.CompletionRequest
}

func (m *mockProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.requests = append(m.requests, req)
	return m.completeFunc(ctx, req)
}

func (m *mockProvider) Name() string { return "mock" }

func respondWith(text string) *mockProvider {
	return &mockProvider{completeFunc: func(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{
			Text:  text,
			Model: "gpt-4o-mini",
			Usage: llm.Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30},
		}, nil
	}}
}

type memoryStore struct {
	mu        sync.Mutex
	records   map[string]*models.Generation
	createErr error
	clock     time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		records: map[string]*models.Generation{},
		clock:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memoryStore) Create(_ context.Context, g *models.Generation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.clock = m.clock.Add(time.Second)
	g.CreatedAt = m.clock
	g.UpdatedAt = m.clock
	stored := *g
	m.records[g.ID] = &stored
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (*models.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.records[id]
	if !ok {
		return nil, apperr.Newf(apperr.NotFound, "generation %s not found", id)
	}
	out := *g
	return &out, nil
}

func (m *memoryStore) ListByUser(_ context.Context, userID string) ([]models.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Generation{}
	for _, g := range m.records {
		if g.UserID == userID {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) UpdateMetadata(ctx context.Context, id string, name, description *string) (*models.Generation, error) {
	m.mu.Lock()
	g, ok := m.records[id]
	if ok {
		if name != nil {
			g.Name = *name
		}
		if description != nil {
			g.Description = *description
		}
	}
	m.mu.Unlock()
	return m.Get(ctx, id)
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return apperr.Newf(apperr.NotFound, "generation %s not found", id)
	}
	delete(m.records, id)
	return nil
}

type memoryObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putFunc   func(ctx context.Context) error
	deleteErr error
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}}
}

func (m *memoryObjects) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if m.putFunc != nil {
		if err := m.putFunc(ctx); err != nil {
			return "", err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return key, nil
}

func (m *memoryObjects) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (m *memoryObjects) Delete(_ context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

type recordingMetrics struct {
	mu          sync.Mutex
	outcomes    []string
	tokens      int
	encodes     int
	batches     map[string][2]int
	lastDropped int
	lastFallbck bool
}

func (r *recordingMetrics) RecordGeneration(_ context.Context, _ time.Duration, outcome string, dropped int, fallback bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
	r.lastDropped = dropped
	r.lastFallbck = fallback
}

func (r *recordingMetrics) RecordTokenUsage(_ context.Context, _ string, total, _, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens += total
}

func (r *recordingMetrics) RecordMidiEncoded(context.Context, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.encodes++
}

func (r *recordingMetrics) RecordBatch(_ context.Context, operation string, succeeded, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.batches == nil {
		r.batches = map[string][2]int{}
	}
	r.batches[operation] = [2]int{succeeded, failed}
}
