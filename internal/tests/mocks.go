package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"bookpay/internal/domain"
	"bookpay/internal/redis"
	"bookpay/internal/repository"
	"bookpay/internal/service"
)

// ──────────────────────────────────────────────
// MOCK BOOKING REPOSITORY
// ──────────────────────────────────────────────

// MockBookingRepository is a mock implementation of BookingRepository.
type MockBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking

	// Counters for verification
	UpdateStateCallCount int32

	// Error injection
	CreateError      error
	GetError         error
	UpdateStateError error
}

// NewMockBookingRepository creates a new mock booking repository.
func NewMockBookingRepository() *MockBookingRepository {
	return &MockBookingRepository{
		bookings: make(map[string]*domain.Booking),
	}
}

// AddBooking adds a booking to the mock repository.
func (m *MockBookingRepository) AddBooking(booking *domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[booking.ID] = booking
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[booking.ID]; ok {
		return repository.ErrDuplicate
	}
	m.bookings[booking.ID] = booking
	return nil
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	booking, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *booking
	return &copy, nil
}

func (m *MockBookingRepository) GetAll(ctx context.Context) ([]*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		copy := *b
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockBookingRepository) UpdatePaymentState(ctx context.Context, id string, status domain.PaymentStatus, eventRef string, expectedRef *string, updatedAt time.Time) error {
	atomic.AddInt32(&m.UpdateStateCallCount, 1)
	if m.UpdateStateError != nil {
		return m.UpdateStateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !refsEqual(booking.LastEventReference, expectedRef) {
		return repository.ErrStaleState
	}
	booking.PaymentStatus = status
	booking.LastEventReference = &eventRef
	booking.PaymentUpdatedAt = updatedAt
	return nil
}

// GetBooking returns a booking for test assertions.
func (m *MockBookingRepository) GetBooking(id string) *domain.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bookings[id]
}

func (m *MockBookingRepository) snapshot() map[string]*domain.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(map[string]*domain.Booking, len(m.bookings))
	for id, b := range m.bookings {
		copy := *b
		snap[id] = &copy
	}
	return snap
}

func (m *MockBookingRepository) restore(snap map[string]*domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings = snap
}

func refsEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ──────────────────────────────────────────────
// MOCK PAYMENT EVENT REPOSITORY
// ──────────────────────────────────────────────

// observationKey identifies one provider observation, mirroring the unique
// index on (reference, provider_status).
type observationKey struct {
	reference string
	status    domain.ProviderStatus
}

// MockPaymentEventRepository is a mock implementation of PaymentEventRepository.
type MockPaymentEventRepository struct {
	mu     sync.RWMutex
	events map[observationKey]*domain.PaymentEvent

	CreateCallCount int32

	CreateError error
}

// NewMockPaymentEventRepository creates a new mock payment event repository.
func NewMockPaymentEventRepository() *MockPaymentEventRepository {
	return &MockPaymentEventRepository{
		events: make(map[observationKey]*domain.PaymentEvent),
	}
}

func (m *MockPaymentEventRepository) Create(ctx context.Context, event *domain.PaymentEvent) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := observationKey{reference: event.Reference, status: event.ProviderStatus}
	if _, ok := m.events[key]; ok {
		return repository.ErrDuplicate
	}
	copy := *event
	m.events[key] = &copy
	return nil
}

func (m *MockPaymentEventRepository) ListByBooking(ctx context.Context, bookingID string) ([]*domain.PaymentEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.PaymentEvent
	for _, e := range m.events {
		if e.BookingID == bookingID {
			copy := *e
			result = append(result, &copy)
		}
	}
	return result, nil
}

// CountEvents returns the number of stored events.
func (m *MockPaymentEventRepository) CountEvents() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

func (m *MockPaymentEventRepository) snapshot() map[observationKey]*domain.PaymentEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(map[observationKey]*domain.PaymentEvent, len(m.events))
	for key, e := range m.events {
		copy := *e
		snap[key] = &copy
	}
	return snap
}

func (m *MockPaymentEventRepository) restore(snap map[observationKey]*domain.PaymentEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = snap
}

// ──────────────────────────────────────────────
// MOCK UNIT OF WORK
// ──────────────────────────────────────────────

// MockUnitOfWork hands the in-memory repositories to fn and restores their
// previous state when fn fails, mirroring a database rollback.
type MockUnitOfWork struct {
	Bookings *MockBookingRepository
	Events   *MockPaymentEventRepository

	BeginError error
}

// NewMockUnitOfWork creates a new mock unit of work over the given mocks.
func NewMockUnitOfWork(bookings *MockBookingRepository, events *MockPaymentEventRepository) *MockUnitOfWork {
	return &MockUnitOfWork{Bookings: bookings, Events: events}
}

func (m *MockUnitOfWork) WithinTx(ctx context.Context, fn func(bookings repository.BookingRepository, events repository.PaymentEventRepository) error) error {
	if m.BeginError != nil {
		return m.BeginError
	}

	bookingSnap := m.Bookings.snapshot()
	eventSnap := m.Events.snapshot()

	if err := fn(m.Bookings, m.Events); err != nil {
		m.Bookings.restore(bookingSnap)
		m.Events.restore(eventSnap)
		return err
	}

	return nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is an in-memory implementation of the booking lock store.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool

	AcquireCallCount int32
	ReleaseCallCount int32

	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]bool)}
}

func (m *MockLockStore) AcquireBookingLock(ctx context.Context, bookingID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[bookingID] {
		return false, nil
	}
	m.locks[bookingID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseBookingLock(ctx context.Context, bookingID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, bookingID)
	return nil
}

// Hold marks a booking lock as held by someone else.
func (m *MockLockStore) Hold(bookingID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[bookingID] = true
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is an in-memory implementation of the cache/counter store.
type MockCacheStore struct {
	mu            sync.Mutex
	confirmations map[string]*redis.CachedConfirmation
	counters      map[string]int64
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		confirmations: make(map[string]*redis.CachedConfirmation),
		counters:      make(map[string]int64),
	}
}

func (m *MockCacheStore) GetConfirmation(ctx context.Context, reference string) (*redis.CachedConfirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirmations[reference], nil
}

func (m *MockCacheStore) SetConfirmation(ctx context.Context, confirmation *redis.CachedConfirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations[confirmation.Reference] = confirmation
	return nil
}

func (m *MockCacheStore) IncrementPendingChecks(ctx context.Context, reference string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[reference]++
	return m.counters[reference], nil
}

func (m *MockCacheStore) ClearPendingChecks(ctx context.Context, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counters, reference)
	return nil
}

// PendingChecks returns the counter for test assertions.
func (m *MockCacheStore) PendingChecks(reference string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[reference]
}

// DropConfirmation evicts a cached confirmation, simulating TTL expiry.
func (m *MockCacheStore) DropConfirmation(reference string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.confirmations, reference)
}

// ──────────────────────────────────────────────
// MOCK PROVIDER GATEWAY
// ──────────────────────────────────────────────

// MockProviderGateway is a mock implementation of ProviderGateway.
type MockProviderGateway struct {
	mu sync.Mutex

	Confirmation *service.ProviderConfirmation
	ConfirmError error

	ConfirmCallCount int32
}

// NewMockProviderGateway creates a new mock provider gateway.
func NewMockProviderGateway() *MockProviderGateway {
	return &MockProviderGateway{}
}

func (m *MockProviderGateway) Confirm(ctx context.Context, reference string) (*service.ProviderConfirmation, error) {
	atomic.AddInt32(&m.ConfirmCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ConfirmError != nil {
		return nil, m.ConfirmError
	}
	if m.Confirmation == nil {
		return nil, service.ErrInvalidReference
	}
	copy := *m.Confirmation
	if copy.Reference == "" {
		copy.Reference = reference
	}
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK NOTIFIER
// ──────────────────────────────────────────────

// MockNotifier records operator alerts for test assertions.
type MockNotifier struct {
	mu     sync.Mutex
	alerts []service.Alert
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, alert service.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
	return nil
}

// Alerts returns a snapshot of recorded alerts.
func (m *MockNotifier) Alerts() []service.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]service.Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}
