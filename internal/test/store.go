package test

import (
	"context"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/domain/repository"
)

const (
	eventNew     = "NEW"
	eventSending = "SENDING"
	eventSent    = "PUBLISHED"
)

// MemoryStore is an in-memory repository factory with transactional
// semantics: a transaction works on a copy that replaces the live state on
// commit. Transactions and standalone calls are serialized by one mutex.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState

	Now        func() time.Time
	PendingTTL time.Duration

	// Fail is consulted before every repository call with an operation name
	// such as "orders.create"; a non-nil result is returned as the error.
	Fail func(op string) error
	// BeforeOrderCreate runs inside Orders().Create before constraints are checked.
	BeforeOrderCreate func(order *model.Order) error

	commits   int
	rollbacks int
}

type storedEvent struct {
	event  model.OrderEvent
	status string
}

type idemKey struct{ key, op string }

type memState struct {
	staff       map[int64]model.Staff
	nextStaff   int64
	orders      map[int64]model.Order
	nextOrder   int64
	nextPayment int64
	kiosk       map[string]model.PendingOrder
	idem        map[idemKey]model.IdempotencyRecord
	movements   []model.CashMovement
	nextMove    int64
	sessions    map[int64]model.WorkSession
	nextSession int64
	products    map[int64]model.Product
	events      []storedEvent
	nextEvent   int64
}

// NewMemoryStore creates an empty store with a 30 minute pending TTL.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{
			staff:    make(map[int64]model.Staff),
			orders:   make(map[int64]model.Order),
			kiosk:    make(map[string]model.PendingOrder),
			idem:     make(map[idemKey]model.IdempotencyRecord),
			sessions: make(map[int64]model.WorkSession),
			products: make(map[int64]model.Product),
		},
		Now:        time.Now,
		PendingTTL: 30 * time.Minute,
	}
}

var (
	_ repository.Factory    = (*MemoryStore)(nil)
	_ repository.Transactor = (*MemoryStore)(nil)
)

func (s *memState) clone() *memState {
	c := *s
	c.staff = make(map[int64]model.Staff, len(s.staff))
	for k, v := range s.staff {
		c.staff[k] = v
	}
	c.orders = make(map[int64]model.Order, len(s.orders))
	for k, v := range s.orders {
		c.orders[k] = cloneOrder(v)
	}
	c.kiosk = make(map[string]model.PendingOrder, len(s.kiosk))
	for k, v := range s.kiosk {
		c.kiosk[k] = v.Clone()
	}
	c.idem = make(map[idemKey]model.IdempotencyRecord, len(s.idem))
	for k, v := range s.idem {
		c.idem[k] = v
	}
	c.movements = append([]model.CashMovement(nil), s.movements...)
	c.sessions = make(map[int64]model.WorkSession, len(s.sessions))
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	c.products = make(map[int64]model.Product, len(s.products))
	for k, v := range s.products {
		c.products[k] = v
	}
	c.events = append([]storedEvent(nil), s.events...)
	return &c
}

func cloneOrder(o model.Order) model.Order {
	c := o
	c.Items = append([]model.LineItem(nil), o.Items...)
	c.Payments = append([]model.PaymentEntry(nil), o.Payments...)
	return c
}

// WithinTransaction runs fn on a private copy committed only on success.
func (s *MemoryStore) WithinTransaction(ctx context.Context, fn func(repository.Factory) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&memFactory{store: s, tx: work}); err != nil {
		s.rollbacks++
		return err
	}
	s.state = work
	s.commits++
	return nil
}

// Commits reports how many transactions committed.
func (s *MemoryStore) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// Rollbacks reports how many transactions rolled back.
func (s *MemoryStore) Rollbacks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollbacks
}

// AddProduct seeds the catalog.
func (s *MemoryStore) AddProduct(p model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[p.ID] = p
}

// AllOrders returns committed orders sorted by id.
func (s *MemoryStore) AllOrders() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Order, 0, len(s.state.orders))
	for _, o := range s.state.orders {
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllMovements returns every ledger entry in insertion order.
func (s *MemoryStore) AllMovements() []model.CashMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.CashMovement(nil), s.state.movements...)
}

// AllEvents returns every outbox event in insertion order.
func (s *MemoryStore) AllEvents() []model.OrderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OrderEvent, 0, len(s.state.events))
	for _, e := range s.state.events {
		out = append(out, e.event)
	}
	return out
}

// PublishedEvents counts events marked as published.
func (s *MemoryStore) PublishedEvents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.state.events {
		if e.status == eventSent {
			n++
		}
	}
	return n
}

// KioskLen reports the number of durable pending rows.
func (s *MemoryStore) KioskLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.kiosk)
}

func (s *MemoryStore) Staff() repository.StaffRepository  { return (&memFactory{store: s}).Staff() }
func (s *MemoryStore) Orders() repository.OrderRepository { return (&memFactory{store: s}).Orders() }
func (s *MemoryStore) KioskQueue() repository.PendingQueue {
	return (&memFactory{store: s}).KioskQueue()
}
func (s *MemoryStore) Idempotency() repository.IdempotencyRepository {
	return (&memFactory{store: s}).Idempotency()
}
func (s *MemoryStore) Ledger() repository.LedgerRepository { return (&memFactory{store: s}).Ledger() }
func (s *MemoryStore) Sessions() repository.SessionRepository {
	return (&memFactory{store: s}).Sessions()
}
func (s *MemoryStore) Catalog() repository.CatalogRepository {
	return (&memFactory{store: s}).Catalog()
}
func (s *MemoryStore) Events() repository.EventRepository { return (&memFactory{store: s}).Events() }

type memFactory struct {
	store *MemoryStore
	tx    *memState
}

func (f *memFactory) Staff() repository.StaffRepository             { return &memStaff{f} }
func (f *memFactory) Orders() repository.OrderRepository            { return &memOrders{f} }
func (f *memFactory) KioskQueue() repository.PendingQueue           { return &memKiosk{f} }
func (f *memFactory) Idempotency() repository.IdempotencyRepository { return &memIdempotency{f} }
func (f *memFactory) Ledger() repository.LedgerRepository           { return &memLedger{f} }
func (f *memFactory) Sessions() repository.SessionRepository        { return &memSessions{f} }
func (f *memFactory) Catalog() repository.CatalogRepository         { return &memCatalog{f} }
func (f *memFactory) Events() repository.EventRepository            { return &memEvents{f} }

func (f *memFactory) with(op string, fn func(st *memState) error) error {
	if f.store.Fail != nil {
		if err := f.store.Fail(op); err != nil {
			return err
		}
	}
	if f.tx != nil {
		return fn(f.tx)
	}
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return fn(f.store.state)
}

func (f *memFactory) now() time.Time {
	if f.store.Now != nil {
		return f.store.Now()
	}
	return time.Now()
}

// --- staff ---

type memStaff struct{ f *memFactory }

func (r *memStaff) Create(_ context.Context, login, passwordHash string, role model.StaffRole) (*model.Staff, error) {
	var out model.Staff
	err := r.f.with("staff.create", func(st *memState) error {
		for _, u := range st.staff {
			if u.Login == login {
				return domainErrors.ErrAlreadyExists
			}
		}
		st.nextStaff++
		out = model.Staff{ID: st.nextStaff, Login: login, PasswordHash: passwordHash, Role: role, CreatedAt: r.f.now()}
		st.staff[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *memStaff) GetByLogin(_ context.Context, login string) (*model.Staff, error) {
	var out *model.Staff
	err := r.f.with("staff.get_by_login", func(st *memState) error {
		for _, u := range st.staff {
			if u.Login == login {
				u := u
				out = &u
				return nil
			}
		}
		return domainErrors.ErrNotFound
	})
	return out, err
}

func (r *memStaff) GetByID(_ context.Context, id int64) (*model.Staff, error) {
	var out *model.Staff
	err := r.f.with("staff.get_by_id", func(st *memState) error {
		u, ok := st.staff[id]
		if !ok {
			return domainErrors.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

// --- orders ---

type memOrders struct{ f *memFactory }

func (r *memOrders) MaxNumber(_ context.Context) (model.OrderNumber, error) {
	var max model.OrderNumber
	err := r.f.with("orders.max_number", func(st *memState) error {
		for _, o := range st.orders {
			if o.Number > max {
				max = o.Number
			}
		}
		return nil
	})
	return max, err
}

func (r *memOrders) Create(_ context.Context, order *model.Order) error {
	return r.f.with("orders.create", func(st *memState) error {
		if hook := r.f.store.BeforeOrderCreate; hook != nil {
			if err := hook(order); err != nil {
				return err
			}
		}
		for _, o := range st.orders {
			if o.Number == order.Number {
				return domainErrors.ErrDuplicateOrderNumber
			}
			if o.PendingID == order.PendingID {
				return domainErrors.ErrAlreadyExists
			}
		}
		st.nextOrder++
		order.ID = st.nextOrder
		for i := range order.Payments {
			st.nextPayment++
			order.Payments[i].ID = st.nextPayment
		}
		st.orders[order.ID] = cloneOrder(*order)
		return nil
	})
}

func (r *memOrders) GetByID(_ context.Context, id int64) (*model.Order, error) {
	var out *model.Order
	err := r.f.with("orders.get_by_id", func(st *memState) error {
		o, ok := st.orders[id]
		if !ok {
			return domainErrors.ErrNotFound
		}
		c := cloneOrder(o)
		out = &c
		return nil
	})
	return out, err
}

func (r *memOrders) GetByPendingID(_ context.Context, pendingID string) (*model.Order, error) {
	var out *model.Order
	err := r.f.with("orders.get_by_pending_id", func(st *memState) error {
		for _, o := range st.orders {
			if o.PendingID == pendingID {
				c := cloneOrder(o)
				out = &c
				return nil
			}
		}
		return domainErrors.ErrNotFound
	})
	return out, err
}

func (r *memOrders) ListByStatus(_ context.Context, statuses []model.OrderStatus) ([]model.Order, error) {
	var out []model.Order
	err := r.f.with("orders.list_by_status", func(st *memState) error {
		for _, o := range st.orders {
			for _, s := range statuses {
				if o.Status == s {
					out = append(out, cloneOrder(o))
					break
				}
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
		return nil
	})
	return out, err
}

func (r *memOrders) UpdateStatus(_ context.Context, id int64, from, to model.OrderStatus) error {
	return r.f.with("orders.update_status", func(st *memState) error {
		o, ok := st.orders[id]
		if !ok {
			return domainErrors.ErrNotFound
		}
		if o.Status != from {
			return domainErrors.ErrInvalidTransition
		}
		o.Status = to
		o.UpdatedAt = r.f.now()
		st.orders[id] = o
		return nil
	})
}

func (r *memOrders) AddPayments(_ context.Context, orderID int64, payments []model.PaymentEntry) ([]model.PaymentEntry, error) {
	out := append([]model.PaymentEntry(nil), payments...)
	err := r.f.with("orders.add_payments", func(st *memState) error {
		o, ok := st.orders[orderID]
		if !ok {
			return domainErrors.ErrNotFound
		}
		for i := range out {
			st.nextPayment++
			out[i].ID = st.nextPayment
		}
		o.Payments = append(append([]model.PaymentEntry(nil), o.Payments...), out...)
		st.orders[orderID] = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *memOrders) UpdatePaymentTender(_ context.Context, payment model.PaymentEntry) error {
	return r.f.with("orders.update_payment_tender", func(st *memState) error {
		for id, o := range st.orders {
			for i, p := range o.Payments {
				if p.ID != payment.ID {
					continue
				}
				payments := append([]model.PaymentEntry(nil), o.Payments...)
				payments[i].Tendered = payment.Tendered
				payments[i].Change = payment.Change
				o.Payments = payments
				st.orders[id] = o
				return nil
			}
		}
		return domainErrors.ErrNotFound
	})
}

// --- kiosk queue ---

type memKiosk struct{ f *memFactory }

func (r *memKiosk) live(st *memState, id string) (model.PendingOrder, bool) {
	p, ok := st.kiosk[id]
	if !ok || p.Origin != model.OriginKiosk || p.Expired(r.f.now(), r.f.store.PendingTTL) {
		return model.PendingOrder{}, false
	}
	return p, true
}

func (r *memKiosk) Enqueue(_ context.Context, order model.PendingOrder) error {
	return r.f.with("kiosk.enqueue", func(st *memState) error {
		if _, exists := st.kiosk[order.ID]; exists {
			return domainErrors.ErrAlreadyExists
		}
		st.kiosk[order.ID] = order.Clone()
		return nil
	})
}

func (r *memKiosk) ListPending(_ context.Context) ([]model.PendingOrder, error) {
	var out []model.PendingOrder
	err := r.f.with("kiosk.list", func(st *memState) error {
		now := r.f.now()
		for id, p := range st.kiosk {
			if p.Expired(now, r.f.store.PendingTTL) {
				delete(st.kiosk, id)
				continue
			}
			out = append(out, p.Clone())
		}
		sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
		return nil
	})
	return out, err
}

func (r *memKiosk) Peek(_ context.Context, id string) (*model.PendingOrder, error) {
	var out *model.PendingOrder
	err := r.f.with("kiosk.peek", func(st *memState) error {
		p, ok := r.live(st, id)
		if !ok {
			return domainErrors.ErrNotFound
		}
		c := p.Clone()
		out = &c
		return nil
	})
	return out, err
}

func (r *memKiosk) TakeAtomically(_ context.Context, id string) (*model.PendingOrder, error) {
	var out *model.PendingOrder
	err := r.f.with("kiosk.take", func(st *memState) error {
		p, ok := r.live(st, id)
		if !ok {
			return domainErrors.ErrNotFound
		}
		delete(st.kiosk, id)
		out = &p
		return nil
	})
	return out, err
}

func (r *memKiosk) Remove(_ context.Context, id string) error {
	return r.f.with("kiosk.remove", func(st *memState) error {
		if _, ok := st.kiosk[id]; !ok {
			return domainErrors.ErrNotFound
		}
		delete(st.kiosk, id)
		return nil
	})
}

func (r *memKiosk) ExpireOlderThan(_ context.Context, age time.Duration) (int, error) {
	removed := 0
	err := r.f.with("kiosk.expire", func(st *memState) error {
		now := r.f.now()
		for id, p := range st.kiosk {
			if p.Expired(now, age) {
				delete(st.kiosk, id)
				removed++
			}
		}
		return nil
	})
	return removed, err
}

// --- idempotency ---

type memIdempotency struct{ f *memFactory }

func (r *memIdempotency) Reserve(_ context.Context, key, operation string, lease time.Duration) (bool, error) {
	won := false
	err := r.f.with("idempotency.reserve", func(st *memState) error {
		k := idemKey{key, operation}
		now := r.f.now()
		if rec, exists := st.idem[k]; exists {
			if rec.State != model.IdempotencyInFlight || !rec.CreatedAt.Before(now.Add(-lease)) {
				return nil
			}
		}
		st.idem[k] = model.IdempotencyRecord{Key: key, Operation: operation, State: model.IdempotencyInFlight, CreatedAt: now}
		won = true
		return nil
	})
	return won, err
}

func (r *memIdempotency) Get(_ context.Context, key, operation string) (*model.IdempotencyRecord, error) {
	var out *model.IdempotencyRecord
	err := r.f.with("idempotency.get", func(st *memState) error {
		rec, ok := st.idem[idemKey{key, operation}]
		if !ok {
			return domainErrors.ErrNotFound
		}
		out = &rec
		return nil
	})
	return out, err
}

func (r *memIdempotency) Complete(_ context.Context, key, operation string, payload []byte) error {
	return r.f.with("idempotency.complete", func(st *memState) error {
		k := idemKey{key, operation}
		rec, ok := st.idem[k]
		if !ok {
			return domainErrors.ErrNotFound
		}
		rec.State = model.IdempotencyCompleted
		rec.Payload = append([]byte(nil), payload...)
		st.idem[k] = rec
		return nil
	})
}

func (r *memIdempotency) Release(_ context.Context, key, operation string) error {
	return r.f.with("idempotency.release", func(st *memState) error {
		k := idemKey{key, operation}
		if rec, ok := st.idem[k]; ok && rec.State == model.IdempotencyInFlight {
			delete(st.idem, k)
		}
		return nil
	})
}

// --- ledger ---

type memLedger struct{ f *memFactory }

func (r *memLedger) Append(_ context.Context, m model.CashMovement) (model.CashMovement, error) {
	err := r.f.with("ledger.append", func(st *memState) error {
		st.nextMove++
		m.ID = st.nextMove
		if m.CreatedAt.IsZero() {
			m.CreatedAt = r.f.now()
		}
		st.movements = append(st.movements, m)
		return nil
	})
	return m, err
}

func (r *memLedger) ListBySession(_ context.Context, sessionID int64) ([]model.CashMovement, error) {
	var out []model.CashMovement
	err := r.f.with("ledger.list", func(st *memState) error {
		for _, m := range st.movements {
			if m.SessionID == sessionID {
				out = append(out, m)
			}
		}
		return nil
	})
	return out, err
}

func (r *memLedger) CanceledOrderIDs(_ context.Context, sessionID int64) ([]int64, error) {
	var out []int64
	err := r.f.with("ledger.canceled", func(st *memState) error {
		seen := make(map[int64]bool)
		for _, m := range st.movements {
			if m.SessionID != sessionID || m.OrderID == nil || seen[*m.OrderID] {
				continue
			}
			if o, ok := st.orders[*m.OrderID]; ok && o.Status == model.OrderStatusCanceled {
				seen[*m.OrderID] = true
				out = append(out, *m.OrderID)
			}
		}
		return nil
	})
	return out, err
}

// --- sessions ---

type memSessions struct{ f *memFactory }

func (r *memSessions) Create(_ context.Context, session *model.WorkSession) error {
	return r.f.with("sessions.create", func(st *memState) error {
		for _, s := range st.sessions {
			if s.Active() {
				return domainErrors.ErrSessionAlreadyActive
			}
		}
		st.nextSession++
		session.ID = st.nextSession
		st.sessions[session.ID] = *session
		return nil
	})
}

func (r *memSessions) Active(_ context.Context) (*model.WorkSession, error) {
	var out *model.WorkSession
	err := r.f.with("sessions.active", func(st *memState) error {
		for _, s := range st.sessions {
			if s.Active() {
				s := s
				out = &s
				return nil
			}
		}
		return domainErrors.ErrNotFound
	})
	return out, err
}

func (r *memSessions) GetByID(_ context.Context, id int64) (*model.WorkSession, error) {
	var out *model.WorkSession
	err := r.f.with("sessions.get_by_id", func(st *memState) error {
		s, ok := st.sessions[id]
		if !ok {
			return domainErrors.ErrNotFound
		}
		out = &s
		return nil
	})
	return out, err
}

func (r *memSessions) NextNumber(_ context.Context, businessDate time.Time) (int, error) {
	next := 1
	err := r.f.with("sessions.next_number", func(st *memState) error {
		for _, s := range st.sessions {
			if s.BusinessDate.Equal(businessDate) && s.Number >= next {
				next = s.Number + 1
			}
		}
		return nil
	})
	return next, err
}

func (r *memSessions) Transition(_ context.Context, session *model.WorkSession, from model.SessionStatus) error {
	return r.f.with("sessions.transition", func(st *memState) error {
		stored, ok := st.sessions[session.ID]
		if !ok {
			return domainErrors.ErrNotFound
		}
		if stored.Status != from {
			return domainErrors.ErrInvalidTransition
		}
		stored.Status = session.Status
		stored.EndedAt = session.EndedAt
		stored.ClosingCount = session.ClosingCount
		st.sessions[session.ID] = stored
		return nil
	})
}

func (r *memSessions) LastClosed(ctx context.Context) (*model.WorkSession, error) {
	closed, err := r.ListClosed(ctx)
	if err != nil {
		return nil, err
	}
	if len(closed) == 0 {
		return nil, domainErrors.ErrNotFound
	}
	last := closed[len(closed)-1]
	return &last, nil
}

func (r *memSessions) ListClosed(_ context.Context) ([]model.WorkSession, error) {
	var out []model.WorkSession
	err := r.f.with("sessions.list_closed", func(st *memState) error {
		for _, s := range st.sessions {
			if s.Status == model.SessionClosed {
				out = append(out, s)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

// --- catalog ---

type memCatalog struct{ f *memFactory }

func (r *memCatalog) GetProductByID(_ context.Context, id int64) (*model.Product, error) {
	var out *model.Product
	err := r.f.with("catalog.get", func(st *memState) error {
		p, ok := st.products[id]
		if !ok {
			return domainErrors.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

// --- events ---

type memEvents struct{ f *memFactory }

func (r *memEvents) Append(_ context.Context, event model.OrderEvent) error {
	return r.f.with("events.append", func(st *memState) error {
		st.nextEvent++
		event.ID = st.nextEvent
		if event.CreatedAt.IsZero() {
			event.CreatedAt = r.f.now()
		}
		st.events = append(st.events, storedEvent{event: event, status: eventNew})
		return nil
	})
}

func (r *memEvents) ClaimBatch(_ context.Context, limit int) ([]model.OrderEvent, error) {
	var out []model.OrderEvent
	err := r.f.with("events.claim", func(st *memState) error {
		for i := range st.events {
			if len(out) >= limit {
				break
			}
			if st.events[i].status == eventNew {
				st.events[i].status = eventSending
				out = append(out, st.events[i].event)
			}
		}
		return nil
	})
	return out, err
}

func (r *memEvents) MarkPublished(_ context.Context, id int64) error {
	return r.f.with("events.mark_published", func(st *memState) error {
		return setEventStatus(st, id, eventSent)
	})
}

func (r *memEvents) Release(_ context.Context, id int64) error {
	return r.f.with("events.release", func(st *memState) error {
		return setEventStatus(st, id, eventNew)
	})
}

func setEventStatus(st *memState, id int64, status string) error {
	for i := range st.events {
		if st.events[i].event.ID == id {
			st.events[i].status = status
			return nil
		}
	}
	return domainErrors.ErrNotFound
}
