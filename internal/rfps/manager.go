// Package rfps implements the RFP lifecycle: content edits, vendor
// assignment and the status state machine.
package rfps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"procurement/db"
	"procurement/internal/apperr"
	"procurement/internal/events"
	"procurement/models"

	"go.uber.org/zap"
)

type Store interface {
	CreateRFP(ctx context.Context, r *models.RFP) error
	GetRFP(ctx context.Context, id string) (*models.RFP, error)
	UpdateRFP(ctx context.Context, r *models.RFP) error
	DeleteDraftRFP(ctx context.Context, id string) (bool, error)
	SetRFPStatus(ctx context.Context, id string, from, to models.RFPStatus, at time.Time) (bool, error)
	ListRFPs(ctx context.Context, f models.RFPFilter, limit, offset int) ([]models.RFP, int, error)
	GetVendorsByIDs(ctx context.Context, ids []string) ([]models.Vendor, error)
	ListProposals(ctx context.Context, f models.ProposalFilter, limit, offset int) ([]models.Proposal, int, error)
}

type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

const (
	DefaultPage  = 1
	DefaultLimit = 10

	msgNotFound = "RFP not found"
)

type Manager struct {
	store  Store
	events Publisher
	logger *zap.Logger
	now    func() time.Time
}

func NewManager(store Store, pub Publisher, logger *zap.Logger) *Manager {
	return &Manager{
		store:  store,
		events: pub,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe wires the manager to the events it reacts to.
func (m *Manager) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.ProposalCreated, func(ctx context.Context, e events.Event) error {
		return m.AdvanceOnProposal(ctx, e.RFPID)
	})
}

func (m *Manager) Create(ctx context.Context, in models.RFPInput) (*models.RFPView, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" {
		return nil, apperr.Validation("Title and description are required")
	}

	now := m.now()
	r := &models.RFP{
		ID:              models.NewID(),
		Title:           title,
		Description:     description,
		StructuredData:  normalizeStructuredData(in.StructuredData),
		Budget:          in.Budget,
		Items:           normalizeItems(in.Items),
		Terms:           normalizeTerms(in.Terms),
		Status:          models.RFPDraft,
		CreatedBy:       strings.TrimSpace(in.CreatedBy),
		AssignedVendors: dedupe(in.AssignedVendors),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if r.CreatedBy == "" {
		r.CreatedBy = models.DefaultCreatedBy
	}
	if in.Deadline != nil && strings.TrimSpace(*in.Deadline) != "" {
		d, err := parseDeadline(*in.Deadline)
		if err != nil {
			return nil, err
		}
		r.Deadline = &d
	}
	if err := validate(r); err != nil {
		return nil, err
	}
	vendors, err := m.checkAssignable(ctx, r.AssignedVendors)
	if err != nil {
		return nil, err
	}

	if err := m.store.CreateRFP(ctx, r); err != nil {
		return nil, apperr.Unexpected("Failed to create RFP", err)
	}
	m.logger.Info("rfp created",
		zap.String("rfp_id", r.ID),
		zap.Int("assigned_vendors", len(r.AssignedVendors)),
	)
	return view(r, vendors), nil
}

// Update applies the fields present in p. The status never changes here.
func (m *Manager) Update(ctx context.Context, id string, p models.RFPPatch) (*models.RFPView, error) {
	r, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Title != nil {
		r.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		r.Description = strings.TrimSpace(*p.Description)
	}
	if p.StructuredData != nil {
		r.StructuredData = normalizeStructuredData(p.StructuredData)
	}
	if p.Budget.Set {
		if p.Budget.Null {
			r.Budget = nil
		} else {
			b := p.Budget.Value
			r.Budget = &b
		}
	}
	if p.Deadline.Set {
		if p.Deadline.Null || strings.TrimSpace(p.Deadline.Value) == "" {
			r.Deadline = nil
		} else {
			d, err := parseDeadline(p.Deadline.Value)
			if err != nil {
				return nil, err
			}
			r.Deadline = &d
		}
	}
	if p.Items != nil {
		r.Items = normalizeItems(*p.Items)
	}
	if p.Terms != nil {
		r.Terms = normalizeTerms(p.Terms)
	}
	if err := validate(r); err != nil {
		return nil, err
	}

	var vendors []models.Vendor
	if p.AssignedVendors != nil {
		r.AssignedVendors = dedupe(*p.AssignedVendors)
		if vendors, err = m.checkAssignable(ctx, r.AssignedVendors); err != nil {
			return nil, err
		}
	} else if vendors, err = m.store.GetVendorsByIDs(ctx, r.AssignedVendors); err != nil {
		return nil, apperr.Unexpected("Failed to update RFP", err)
	}

	r.UpdatedAt = m.now()
	if err := m.store.UpdateRFP(ctx, r); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.NotFound(msgNotFound)
		}
		return nil, apperr.Unexpected("Failed to update RFP", err)
	}
	return view(r, vendors), nil
}

// Delete removes a draft RFP together with any proposals attached to it.
func (m *Manager) Delete(ctx context.Context, id string) error {
	r, err := m.load(ctx, id)
	if err != nil {
		return err
	}
	if r.Status != models.RFPDraft {
		return apperr.Validation("Only draft RFPs can be deleted")
	}
	deleted, err := m.store.DeleteDraftRFP(ctx, id)
	if err != nil {
		return apperr.Unexpected("Failed to delete RFP", err)
	}
	if !deleted {
		// Sent or removed between the read and the delete.
		return apperr.Validation("Only draft RFPs can be deleted")
	}
	m.logger.Info("rfp deleted", zap.String("rfp_id", id))
	return nil
}

// ChangeStatus moves the RFP along the transition table.
func (m *Manager) ChangeStatus(ctx context.Context, id string, to models.RFPStatus) (*models.RFPView, error) {
	if !to.Valid() {
		return nil, apperr.Validation("Valid status is required: draft, sent, in_progress, or closed")
	}
	r, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	from := r.Status
	if !CanTransition(from, to) {
		return nil, apperr.Validation("Cannot change status from %s to %s", from, to)
	}
	if to == models.RFPSent && len(r.AssignedVendors) == 0 {
		return nil, apperr.Validation("Cannot send RFP without assigned vendors")
	}

	at := m.now()
	changed, err := m.store.SetRFPStatus(ctx, id, from, to, at)
	if err != nil {
		return nil, apperr.Unexpected("Failed to update RFP status", err)
	}
	if !changed {
		return nil, apperr.Conflict("RFP status was changed by another request", nil)
	}
	r.Status = to
	r.UpdatedAt = at
	m.statusChanged(ctx, id, from, to, at)

	vendors, err := m.store.GetVendorsByIDs(ctx, r.AssignedVendors)
	if err != nil {
		return nil, apperr.Unexpected("Failed to update RFP status", err)
	}
	return view(r, vendors), nil
}

// AdvanceOnProposal moves a sent RFP to in_progress. Any other status is
// left alone.
func (m *Manager) AdvanceOnProposal(ctx context.Context, rfpID string) error {
	at := m.now()
	changed, err := m.store.SetRFPStatus(ctx, rfpID, models.RFPSent, models.RFPInProgress, at)
	if err != nil {
		return fmt.Errorf("advance rfp %s: %w", rfpID, err)
	}
	if changed {
		m.statusChanged(ctx, rfpID, models.RFPSent, models.RFPInProgress, at)
	}
	return nil
}

// Get returns the RFP with its assigned vendors resolved. When
// withDetails is set the proposals submitted against it are included.
func (m *Manager) Get(ctx context.Context, id string, withDetails bool) (*models.RFPView, error) {
	r, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	vendors, err := m.store.GetVendorsByIDs(ctx, r.AssignedVendors)
	if err != nil {
		return nil, apperr.Unexpected("Failed to fetch RFP", err)
	}
	v := view(r, vendors)
	if !withDetails {
		return v, nil
	}

	proposals, _, err := m.store.ListProposals(ctx, models.ProposalFilter{RFPID: id}, 0, 0)
	if err != nil {
		return nil, apperr.Unexpected("Failed to fetch RFP", err)
	}
	ids := make([]string, 0, len(proposals))
	for _, p := range proposals {
		ids = append(ids, p.VendorID)
	}
	senders, err := m.store.GetVendorsByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Unexpected("Failed to fetch RFP", err)
	}
	byID := indexVendors(senders)
	v.Proposals = make([]models.ProposalView, 0, len(proposals))
	for _, p := range proposals {
		pv := models.ProposalView{Proposal: p}
		if vendor, ok := byID[p.VendorID]; ok {
			pv.Vendor = &models.VendorRef{ID: vendor.ID, Name: vendor.Name, Email: vendor.Email}
		}
		v.Proposals = append(v.Proposals, pv)
	}
	return v, nil
}

// List returns one page of RFPs, newest first.
func (m *Manager) List(ctx context.Context, f models.RFPFilter, page, limit int) ([]models.RFPView, models.Pagination, error) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	f.Search = strings.TrimSpace(f.Search)
	pg := models.NewPagination(page, limit, 0)

	rfps, total, err := m.store.ListRFPs(ctx, f, limit, pg.Offset())
	if err != nil {
		return nil, pg, apperr.Unexpected("Failed to fetch RFPs", err)
	}
	pg = models.NewPagination(page, limit, total)

	var ids []string
	for _, r := range rfps {
		ids = append(ids, r.AssignedVendors...)
	}
	vendors, err := m.store.GetVendorsByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, pg, apperr.Unexpected("Failed to fetch RFPs", err)
	}
	byID := indexVendors(vendors)

	views := make([]models.RFPView, 0, len(rfps))
	for i := range rfps {
		v := models.RFPView{RFP: rfps[i], VendorCount: len(rfps[i].AssignedVendors), Vendors: []models.VendorRef{}}
		for _, id := range rfps[i].AssignedVendors {
			if vendor, ok := byID[id]; ok {
				v.Vendors = append(v.Vendors, models.VendorRef{ID: vendor.ID, Name: vendor.Name, Email: vendor.Email})
			}
		}
		views = append(views, v)
	}
	return views, pg, nil
}

func (m *Manager) load(ctx context.Context, id string) (*models.RFP, error) {
	if !models.IsValidID(id) {
		return nil, apperr.Validation("Invalid RFP ID format")
	}
	r, err := m.store.GetRFP(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.NotFound(msgNotFound)
		}
		return nil, apperr.Unexpected("Failed to fetch RFP", err)
	}
	return r, nil
}

// checkAssignable verifies every id names an active vendor and returns them.
func (m *Manager) checkAssignable(ctx context.Context, ids []string) ([]models.Vendor, error) {
	if len(ids) == 0 {
		return []models.Vendor{}, nil
	}
	var lookup []string
	for _, id := range ids {
		if models.IsValidID(id) {
			lookup = append(lookup, id)
		}
	}
	vendors, err := m.store.GetVendorsByIDs(ctx, lookup)
	if err != nil {
		return nil, apperr.Unexpected("Failed to validate vendors", err)
	}
	active := make(map[string]bool, len(vendors))
	for _, v := range vendors {
		if v.IsActive {
			active[v.ID] = true
		}
	}
	invalid := []string{}
	for _, id := range ids {
		if !active[id] {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		return nil, apperr.Validation("Some vendor IDs are invalid or inactive").
			WithDetail("invalidVendorIds", invalid)
	}
	return vendors, nil
}

func (m *Manager) statusChanged(ctx context.Context, id string, from, to models.RFPStatus, at time.Time) {
	m.logger.Info("rfp status changed",
		zap.String("rfp_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	err := m.events.Publish(ctx, events.Event{
		Topic: events.RFPStatusChanged,
		RFPID: id,
		From:  string(from),
		To:    string(to),
		At:    at,
	})
	if err != nil {
		m.logger.Warn("rfp status event handler failed", zap.String("rfp_id", id), zap.Error(err))
	}
}

func indexVendors(vendors []models.Vendor) map[string]*models.Vendor {
	out := make(map[string]*models.Vendor, len(vendors))
	for i := range vendors {
		out[vendors[i].ID] = &vendors[i]
	}
	return out
}

// view resolves the assigned vendors of r, preserving assignment order.
func view(r *models.RFP, vendors []models.Vendor) *models.RFPView {
	byID := indexVendors(vendors)
	v := &models.RFPView{RFP: *r, VendorCount: len(r.AssignedVendors), Vendors: []models.VendorRef{}}
	for _, id := range r.AssignedVendors {
		if vendor, ok := byID[id]; ok {
			v.Vendors = append(v.Vendors, vendor.Ref())
		}
	}
	return v
}
