package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/domain/apperr"
	"github.com/garyjia/trip-finance/internal/domain/entity"
)

// memRepo is an in-memory implementation of every repository port.
// Set the func fields to inject failures.
type memRepo struct {
	mu          sync.Mutex
	trips       map[string]*entity.Trip
	costs       map[string]*entity.CostEntry
	edits       []*entity.TripEditRecord
	deletions   []*entity.TripDeletionRecord
	invoices    map[string]*entity.Invoice
	followUps   []*entity.FollowUp
	attachments map[string]*entity.Attachment
	sequences   map[string]int
	ops         []string

	updateTripFunc     func(ctx context.Context, trip *entity.Trip) error
	createDeletionFunc func(ctx context.Context, rec *entity.TripDeletionRecord) error
	createEditFunc     func(ctx context.Context, rec *entity.TripEditRecord) error
}

func newMemRepo() *memRepo {
	return &memRepo{
		trips:       make(map[string]*entity.Trip),
		costs:       make(map[string]*entity.CostEntry),
		invoices:    make(map[string]*entity.Invoice),
		attachments: make(map[string]*entity.Attachment),
		sequences:   make(map[string]int),
	}
}

func (m *memRepo) record(op string) {
	m.ops = append(m.ops, op)
}

func cloneTrip(t *entity.Trip) *entity.Trip {
	c := *t
	c.Costs = nil
	c.EditHistory = nil
	c.ProofOfDelivery = append([]string(nil), t.ProofOfDelivery...)
	return &c
}

func cloneCost(c *entity.CostEntry) *entity.CostEntry {
	out := *c
	out.Attachments = append([]string(nil), c.Attachments...)
	return &out
}

// trip repository

type memTrips struct{ *memRepo }

func (m memTrips) Create(ctx context.Context, trip *entity.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = cloneTrip(trip)
	m.record("trip.create")
	return nil
}

func (m memTrips) GetByID(ctx context.Context, id string) (*entity.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return nil, apperr.NotFound("trip", id)
	}
	return cloneTrip(t), nil
}

func (m memTrips) List(ctx context.Context, filter port.TripFilter) ([]*entity.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Trip
	for _, t := range m.trips {
		if filter.Status == "" || t.Status == filter.Status {
			out = append(out, cloneTrip(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memTrips) Update(ctx context.Context, trip *entity.Trip) error {
	if m.updateTripFunc != nil {
		if err := m.updateTripFunc(ctx, trip); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[trip.ID]; !ok {
		return apperr.NotFound("trip", trip.ID)
	}
	m.trips[trip.ID] = cloneTrip(trip)
	m.record("trip.update")
	return nil
}

func (m memTrips) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[id]; !ok {
		return apperr.NotFound("trip", id)
	}
	delete(m.trips, id)
	for cid, c := range m.costs {
		if c.TripID == id {
			delete(m.costs, cid)
		}
	}
	delete(m.invoices, id)
	m.record("trip.delete")
	return nil
}

// cost repository

type memCosts struct{ *memRepo }

func (m memCosts) Create(ctx context.Context, cost *entity.CostEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.costs[cost.ID] = cloneCost(cost)
	m.record("cost.create")
	return nil
}

func (m memCosts) GetByID(ctx context.Context, id string) (*entity.CostEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.costs[id]
	if !ok {
		return nil, apperr.NotFound("cost entry", id)
	}
	return cloneCost(c), nil
}

func (m memCosts) ListByTrip(ctx context.Context, tripID string) ([]*entity.CostEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.CostEntry
	for _, c := range m.costs {
		if c.TripID == tripID {
			out = append(out, cloneCost(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memCosts) Update(ctx context.Context, cost *entity.CostEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.costs[cost.ID] = cloneCost(cost)
	m.record("cost.update")
	return nil
}

func (m memCosts) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.costs, id)
	m.record("cost.delete")
	return nil
}

func (m memCosts) ReplaceSystemCosts(ctx context.Context, tripID string, costs []*entity.CostEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.costs {
		if c.TripID == tripID && c.IsSystemGenerated {
			delete(m.costs, id)
		}
	}
	for _, c := range costs {
		m.costs[c.ID] = cloneCost(c)
	}
	m.record("cost.replace_system")
	return nil
}

func (m memCosts) ListFlagged(ctx context.Context, status string, limit, offset int) ([]*entity.CostEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.CostEntry
	for _, c := range m.costs {
		if c.IsFlagged && (status == "" || c.InvestigationStatus == status) {
			out = append(out, cloneCost(c))
		}
	}
	return out, nil
}

// audit repository

type memAudits struct{ *memRepo }

func (m memAudits) CreateEdit(ctx context.Context, rec *entity.TripEditRecord) error {
	if m.createEditFunc != nil {
		if err := m.createEditFunc(ctx, rec); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, rec)
	m.record("audit.edit")
	return nil
}

func (m memAudits) ListEdits(ctx context.Context, tripID string) ([]*entity.TripEditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.TripEditRecord
	for _, r := range m.edits {
		if r.TripID == tripID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m memAudits) CreateDeletion(ctx context.Context, rec *entity.TripDeletionRecord) error {
	if m.createDeletionFunc != nil {
		if err := m.createDeletionFunc(ctx, rec); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletions = append(m.deletions, rec)
	m.record("audit.deletion")
	return nil
}

func (m memAudits) GetDeletion(ctx context.Context, tripID string) (*entity.TripDeletionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.deletions {
		if r.TripID == tripID {
			return r, nil
		}
	}
	return nil, apperr.NotFound("deletion record", tripID)
}

func (m memAudits) ListDeletions(ctx context.Context, limit, offset int) ([]*entity.TripDeletionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entity.TripDeletionRecord(nil), m.deletions...), nil
}

// invoice repository, keyed by trip id

type memInvoices struct{ *memRepo }

func (m memInvoices) Create(ctx context.Context, inv *entity.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.invoices {
		if existing.InvoiceNumber == inv.InvoiceNumber || existing.TripID == inv.TripID {
			return apperr.Conflict("invoice %s already exists", inv.InvoiceNumber)
		}
	}
	c := *inv
	m.invoices[inv.TripID] = &c
	m.record("invoice.create")
	return nil
}

func (m memInvoices) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invoices {
		if inv.ID == id {
			c := *inv
			return &c, nil
		}
	}
	return nil, apperr.NotFound("invoice", id)
}

func (m memInvoices) GetByTripID(ctx context.Context, tripID string) (*entity.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[tripID]
	if !ok {
		return nil, apperr.NotFound("invoice for trip", tripID)
	}
	c := *inv
	return &c, nil
}

func (m memInvoices) Update(ctx context.Context, inv *entity.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *inv
	m.invoices[inv.TripID] = &c
	m.record("invoice.update")
	return nil
}

func (m memInvoices) ListUnpaid(ctx context.Context) ([]*entity.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Invoice
	for _, inv := range m.invoices {
		if !inv.IsPaid() {
			c := *inv
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m memInvoices) NextSequence(ctx context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.sequences[prefix] + 1
	for _, inv := range m.invoices {
		if seq, err := strconv.Atoi(strings.TrimPrefix(inv.InvoiceNumber, prefix)); err == nil &&
			strings.HasPrefix(inv.InvoiceNumber, prefix) && seq >= next {
			next = seq + 1
		}
	}
	m.sequences[prefix] = next
	return next, nil
}

func (m memInvoices) CreateFollowUp(ctx context.Context, f *entity.FollowUp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followUps = append(m.followUps, f)
	return nil
}

func (m memInvoices) ListFollowUps(ctx context.Context, invoiceID string) ([]*entity.FollowUp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.FollowUp
	for _, f := range m.followUps {
		if f.InvoiceID == invoiceID {
			out = append(out, f)
		}
	}
	return out, nil
}

// attachment repository

type memAttachments struct{ *memRepo }

func (m memAttachments) Create(ctx context.Context, att *entity.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attachments[att.ID] = att
	return nil
}

func (m memAttachments) GetByID(ctx context.Context, id string) (*entity.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	att, ok := m.attachments[id]
	if !ok {
		return nil, apperr.NotFound("attachment", id)
	}
	return att, nil
}

func (m memAttachments) ListByOwner(ctx context.Context, ownerType, ownerID string) ([]*entity.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Attachment
	for _, att := range m.attachments {
		if att.OwnerType == ownerType && att.OwnerID == ownerID {
			out = append(out, att)
		}
	}
	return out, nil
}

func (m memAttachments) DeleteByOwner(ctx context.Context, ownerType, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, att := range m.attachments {
		if att.OwnerType == ownerType && att.OwnerID == ownerID {
			delete(m.attachments, id)
		}
	}
	return nil
}

// mockTxManager runs fn directly. Set failAfter to make the commit fail.
type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMockStorage() *mockStorage {
	return &mockStorage{files: make(map[string][]byte)}
}

func (m *mockStorage) Save(ctx context.Context, path string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = content
	return nil
}

func (m *mockStorage) Read(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[path]
	if !ok {
		return nil, apperr.NotFound("file", path)
	}
	return content, nil
}

func (m *mockStorage) Exists(ctx context.Context, path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

func (m *mockStorage) GetFullPath(relativePath string) string {
	return "/mem/" + relativePath
}

type mockFolders struct {
	created []string
	deleted []string
}

func (m *mockFolders) CreateFolder(ctx context.Context, name string) (string, error) {
	m.created = append(m.created, name)
	return "/mem/" + name, nil
}

func (m *mockFolders) GetPath(name string) string { return "/mem/" + name }
func (m *mockFolders) Exists(name string) bool    { return true }

func (m *mockFolders) Delete(ctx context.Context, name string) error {
	m.deleted = append(m.deleted, name)
	return nil
}

func (m *mockFolders) SanitizeName(name string) string { return name }

type mockNotifier struct {
	notices []port.PaymentNotice
	err     error
}

func (m *mockNotifier) NotifyPayment(ctx context.Context, notice port.PaymentNotice) error {
	if m.err != nil {
		return m.err
	}
	m.notices = append(m.notices, notice)
	return nil
}

type mockMetrics struct {
	transitions []string
	flagged     int
	resolved    int
	audits      []string
	invoices    []string
}

func (m *mockMetrics) WorkflowTransition(from, to string) {
	m.transitions = append(m.transitions, from+">"+to)
}
func (m *mockMetrics) CostFlagged(category string) { m.flagged++ }
func (m *mockMetrics) FlagResolved()               { m.resolved++ }
func (m *mockMetrics) AuditRecorded(kind string)   { m.audits = append(m.audits, kind) }
func (m *mockMetrics) InvoiceEvent(event string)   { m.invoices = append(m.invoices, event) }

type mockLogger struct {
	warnings []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {}
func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {
	m.warnings = append(m.warnings, msg)
}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
