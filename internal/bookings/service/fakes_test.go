package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	bookingserrors "unistay/internal/bookings/errors"
	propertieserrors "unistay/internal/properties/errors"
	mongotx "unistay/pkg/db/mongo"
	"unistay/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
	nextID   int
	writes   int
	// beforeUpdate runs before a conditional write, to simulate a racing request.
	beforeUpdate func(stored *model.Booking)
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: map[string]*model.Booking{}}
}

func (r *fakeBookingRepo) put(b *model.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.bookings[b.ID] = &cp
}

func (r *fakeBookingRepo) get(id string) *model.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.bookings[id]
	return &cp
}

func (r *fakeBookingRepo) Create(_ context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	b.ID = fmt.Sprintf("%024x", r.nextID)
	b.UpdatedAt = b.CreatedAt
	cp := *b
	r.bookings[b.ID] = &cp
	r.writes++
	return nil
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id string) (*model.Booking, error) {
	if _, err := mongotx.ObjectID(id); err != nil {
		return nil, bookingserrors.ErrInvalidID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBookingRepo) FindByPaymentOrderID(_ context.Context, orderID string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.PaymentOrderID == orderID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, bookingserrors.ErrNotFound
}

func (r *fakeBookingRepo) FindActive(_ context.Context, studentID, propertyID string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.StudentID == studentID && b.PropertyID == propertyID && b.Status.IsActive() {
			cp := *b
			return &cp, nil
		}
	}
	return nil, bookingserrors.ErrNotFound
}

func (r *fakeBookingRepo) Find(_ context.Context, f model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Booking{}
	for _, b := range r.bookings {
		if matches(b, f) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) Count(_ context.Context, f model.BookingFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, b := range r.bookings {
		if matches(b, f) {
			n++
		}
	}
	return n, nil
}

func matches(b *model.Booking, f model.BookingFilter) bool {
	return (f.StudentID == "" || b.StudentID == f.StudentID) &&
		(f.OwnerID == "" || b.OwnerID == f.OwnerID) &&
		(f.PropertyID == "" || b.PropertyID == f.PropertyID) &&
		(f.Status == "" || b.Status == f.Status)
}

func (r *fakeBookingRepo) UpdateStatus(_ context.Context, b *model.Booking, expected model.BookingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bookings[b.ID]
	if !ok {
		return bookingserrors.ErrNotFound
	}
	if r.beforeUpdate != nil {
		r.beforeUpdate(stored)
	}
	if stored.Status != expected {
		return bookingserrors.ErrConflict
	}
	if b.Status.IsActive() {
		for id, other := range r.bookings {
			if id != b.ID && other.Status.IsActive() && other.StudentID == b.StudentID && other.PropertyID == b.PropertyID {
				return bookingserrors.ErrDuplicateActive
			}
		}
	}
	cp := *b
	r.bookings[b.ID] = &cp
	r.writes++
	return nil
}

func (r *fakeBookingRepo) SetPaymentOrder(_ context.Context, id, orderID string, expected model.BookingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bookings[id]
	if !ok {
		return bookingserrors.ErrNotFound
	}
	if stored.Status != expected {
		return bookingserrors.ErrConflict
	}
	stored.PaymentOrderID = orderID
	r.writes++
	return nil
}

func (r *fakeBookingRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[id]; !ok {
		return bookingserrors.ErrNotFound
	}
	delete(r.bookings, id)
	r.writes++
	return nil
}

func (r *fakeBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type fakeLocks struct {
	mu    sync.Mutex
	held  map[string]string
	token int
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{held: map[string]string{}}
}

func (l *fakeLocks) Acquire(_ context.Context, id string, _ time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[id]; ok {
		return "", bookingserrors.ErrLockHeld
	}
	l.token++
	holder := fmt.Sprintf("holder-%d", l.token)
	l.held[id] = holder
	return holder, nil
}

func (l *fakeLocks) Release(_ context.Context, id, holder string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[id] == holder {
		delete(l.held, id)
	}
	return nil
}

type fakeProperties struct {
	mu         sync.Mutex
	properties map[string]*model.Property
}

func (p *fakeProperties) FindByID(_ context.Context, id string) (*model.Property, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prop, ok := p.properties[id]
	if !ok {
		return nil, propertieserrors.ErrNotFound
	}
	cp := *prop
	return &cp, nil
}

func (p *fakeProperties) AdjustOccupancy(_ context.Context, id string, delta int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	prop, ok := p.properties[id]
	if !ok {
		return propertieserrors.ErrNotFound
	}
	next := prop.LiveStats.OccupiedRooms + delta
	if delta > 0 && next > prop.TotalRooms {
		return propertieserrors.ErrNoCapacity
	}
	if delta < 0 && next < 0 {
		return propertieserrors.ErrNoOccupancy
	}
	prop.LiveStats.OccupiedRooms = next
	return nil
}

func (p *fakeProperties) occupied(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.properties[id].LiveStats.OccupiedRooms
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.BookingEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e model.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Action
	}
	return out
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, e model.AuditLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

type stubGateway struct {
	order *model.PaymentOrder
	err   error
	calls int
}

func (g *stubGateway) CreateOrder(_ context.Context, bookingID string, amount float64, currency string) (*model.PaymentOrder, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	order := *g.order
	order.BookingID = bookingID
	order.Amount = amount
	order.Currency = currency
	return &order, nil
}
