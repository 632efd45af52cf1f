package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"digital_legacy_echo/internal/models"
	"digital_legacy_echo/internal/testutil"
)

type testEnv struct {
	db       *gorm.DB
	orders   *OrderService
	cash     *CashService
	payments *PaymentService
	users    *UserService
	listener *recordingListener
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t, AutoMigrate)
	logger := testutil.Logger()

	users := NewUserService(db, logger, nil)
	orders := NewOrderService(db, logger, users, "VND")
	listener := &recordingListener{}
	orders.OnCompleted(listener)
	cash := NewCashService(db, logger, "VND")

	return &testEnv{
		db:       db,
		orders:   orders,
		cash:     cash,
		payments: NewPaymentService(db, logger, orders, cash),
		users:    users,
		listener: listener,
	}
}

func (e *testEnv) paymentsFor(t *testing.T, orderID uint) []models.Payment {
	t.Helper()
	var payments []models.Payment
	if err := e.db.Where("order_id = ?", orderID).Find(&payments).Error; err != nil {
		t.Fatalf("load payments: %v", err)
	}
	return payments
}

func (e *testEnv) reloadOrder(t *testing.T, id uint) models.Order {
	t.Helper()
	var order models.Order
	if err := e.db.First(&order, id).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	return order
}

type recordingListener struct {
	mu     sync.Mutex
	orders []uint
}

func (l *recordingListener) OrderCompleted(tx *gorm.DB, order *models.Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders = append(l.orders, order.ID)
	return nil
}

// memoryReplay is an in-process ReplayStore
type memoryReplay struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemoryReplay() *memoryReplay {
	return &memoryReplay{keys: map[string]bool{}}
}

func (m *memoryReplay) SetNX(_ context.Context, key string, _ interface{}, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryReplay) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

type fakeIdentity struct {
	created []string
}

func (f *fakeIdentity) CreateUser(_ context.Context, email, _, _ string) (string, error) {
	f.created = append(f.created, email)
	return "uid-" + email, nil
}
