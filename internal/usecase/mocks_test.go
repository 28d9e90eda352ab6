package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/chaniweb/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu          sync.Mutex
	data        map[string]string
	getError    error
	setError    error
	deleteError error
	pingError   error
	setCalls    int
	deleteCalls []string
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string]string),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return "", m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return "", domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls = append(m.deleteCalls, key)
	if m.deleteError != nil {
		return m.deleteError
	}
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Ping(ctx context.Context) error {
	return m.pingError
}

func (m *MockCacheRepository) deleted(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.deleteCalls {
		if k == key {
			return true
		}
	}
	return false
}

// MockProductRepository is an in-memory implementation of
// domain.ProductRepository enforcing the (name, source) natural key the way
// the Postgres unique index does.
type MockProductRepository struct {
	mu          sync.Mutex
	products    []domain.Product
	nextID      int64
	upsertErr   error
	listErr     error
	upsertCalls int
}

func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{nextID: 1}
}

func (m *MockProductRepository) Upsert(ctx context.Context, p *domain.Product) (domain.UpsertOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	if m.upsertErr != nil {
		return "", m.upsertErr
	}
	for i := range m.products {
		existing := &m.products[i]
		if strings.EqualFold(existing.Name, p.Name) && strings.EqualFold(existing.Source, p.Source) {
			existing.Price = p.Price
			existing.Quantity = p.Quantity
			existing.Unit = p.Unit
			existing.StandardPrice = p.StandardPrice
			if p.ExternalID != "" {
				existing.ExternalID = p.ExternalID
			}
			if p.ImageURL != "" {
				existing.ImageURL = p.ImageURL
			}
			existing.UpdatedAt = p.UpdatedAt
			p.ID = existing.ID
			return domain.OutcomeUpdated, nil
		}
	}
	p.ID = m.nextID
	m.nextID++
	m.products = append(m.products, *p)
	return domain.OutcomeInserted, nil
}

func (m *MockProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Product, len(m.products))
	copy(out, m.products)
	return out, nil
}

func (m *MockProductRepository) Ping(ctx context.Context) error { return nil }

func (m *MockProductRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products)
}

func (m *MockProductRepository) byKey(name, source string) (domain.Product, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if strings.EqualFold(p.Name, name) && strings.EqualFold(p.Source, source) {
			return p, true
		}
	}
	return domain.Product{}, false
}
