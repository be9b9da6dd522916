// Package store provides billing.Store implementations.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps everything in maps plus insertion-order slices, so list
// reads are deterministic the way aggregations expect. All reads return
// copies; callers never share backing arrays with the store.
type Memory struct {
	mu sync.RWMutex

	tenants    map[billing.TenantID]billing.Tenant
	tenantIDs  []billing.TenantID
	properties map[billing.PropertyID]billing.Property
	propIDs    []billing.PropertyID
	payments   map[billing.PaymentID]billing.Payment
	paymentIDs []billing.PaymentID
}

func NewMemory() *Memory {
	return &Memory{
		tenants:    make(map[billing.TenantID]billing.Tenant),
		properties: make(map[billing.PropertyID]billing.Property),
		payments:   make(map[billing.PaymentID]billing.Payment),
	}
}

func (m *Memory) Close() error { return nil }

// =============================================================================
// TENANTS
// =============================================================================

func (m *Memory) PutTenant(_ context.Context, t billing.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tenants[t.ID]; !exists {
		m.tenantIDs = append(m.tenantIDs, t.ID)
	}
	m.tenants[t.ID] = t
	return nil
}

func (m *Memory) Tenant(_ context.Context, id billing.TenantID) (*billing.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tenants[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", billing.ErrTenantNotFound, id)
	}
	return &t, nil
}

func (m *Memory) Tenants(_ context.Context, includeArchived bool) ([]billing.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]billing.Tenant, 0, len(m.tenantIDs))
	for _, id := range m.tenantIDs {
		t := m.tenants[id]
		if t.Archived && !includeArchived {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *Memory) SetDueBalance(_ context.Context, id billing.TenantID, balance ledger.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[id]
	if !ok {
		return fmt.Errorf("%w: %s", billing.ErrTenantNotFound, id)
	}
	t.DueBalance = balance
	m.tenants[id] = t
	return nil
}

func (m *Memory) ArchiveTenant(_ context.Context, id billing.TenantID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[id]
	if !ok {
		return fmt.Errorf("%w: %s", billing.ErrTenantNotFound, id)
	}
	t.Archived = true
	t.ArchivedAt = &at
	m.tenants[id] = t
	return nil
}

// =============================================================================
// PROPERTIES
// =============================================================================

func (m *Memory) PutProperty(_ context.Context, p billing.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.properties[p.ID]; !exists {
		m.propIDs = append(m.propIDs, p.ID)
	}
	m.properties[p.ID] = cloneProperty(p)
	return nil
}

func (m *Memory) Property(_ context.Context, id billing.PropertyID) (*billing.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.properties[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", billing.ErrPropertyNotFound, id)
	}
	out := cloneProperty(p)
	return &out, nil
}

func (m *Memory) Properties(_ context.Context) ([]billing.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]billing.Property, 0, len(m.propIDs))
	for _, id := range m.propIDs {
		out = append(out, cloneProperty(m.properties[id]))
	}
	return out, nil
}

func (m *Memory) AddUnit(_ context.Context, id billing.PropertyID, u billing.Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.properties[id]
	if !ok {
		return fmt.Errorf("%w: %s", billing.ErrPropertyNotFound, id)
	}
	if p.FindUnit(u.Name) != nil {
		return fmt.Errorf("%w: %s/%s", billing.ErrDuplicateUnit, id, u.Name)
	}
	p.Units = append(p.Units, u)
	m.properties[id] = p
	return nil
}

func (m *Memory) UpdateUnit(_ context.Context, id billing.PropertyID, u billing.Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.properties[id]
	if !ok {
		return fmt.Errorf("%w: %s", billing.ErrPropertyNotFound, id)
	}
	for i := range p.Units {
		if p.Units[i].Name == u.Name {
			p.Units[i] = u
			m.properties[id] = p
			return nil
		}
	}
	return fmt.Errorf("%w: %s/%s", billing.ErrUnitNotFound, id, u.Name)
}

func cloneProperty(p billing.Property) billing.Property {
	out := p
	out.Units = append([]billing.Unit(nil), p.Units...)
	return out
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (m *Memory) AddPayment(_ context.Context, p billing.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.payments[p.ID]; exists {
		return fmt.Errorf("payment %s already exists", p.ID)
	}
	m.payments[p.ID] = p
	m.paymentIDs = append(m.paymentIDs, p.ID)
	return nil
}

func (m *Memory) Payment(_ context.Context, id billing.PaymentID) (*billing.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.payments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", billing.ErrPaymentNotFound, id)
	}
	return &p, nil
}

func (m *Memory) PaymentsByTenant(_ context.Context, id billing.TenantID) ([]billing.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []billing.Payment
	for _, pid := range m.paymentIDs {
		if p := m.payments[pid]; p.TenantID == id {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) Payments(_ context.Context) ([]billing.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]billing.Payment, 0, len(m.paymentIDs))
	for _, pid := range m.paymentIDs {
		out = append(out, m.payments[pid])
	}
	return out, nil
}

func (m *Memory) SetPaymentStatus(_ context.Context, id billing.PaymentID, status billing.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payments[id]
	if !ok {
		return fmt.Errorf("%w: %s", billing.ErrPaymentNotFound, id)
	}
	p.Status = status
	m.payments[id] = p
	return nil
}

func (m *Memory) DeletePayment(_ context.Context, id billing.PaymentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.payments[id]; !ok {
		return fmt.Errorf("%w: %s", billing.ErrPaymentNotFound, id)
	}
	delete(m.payments, id)
	for i, pid := range m.paymentIDs {
		if pid == id {
			m.paymentIDs = append(m.paymentIDs[:i], m.paymentIDs[i+1:]...)
			break
		}
	}
	return nil
}

// Compile-time check that Memory implements the full store surface.
var _ billing.Store = (*Memory)(nil)
