// Package proposals handles vendor proposals: manual creation, email
// intake, evaluation edits and ranking.
package proposals

import (
	"context"
	"errors"
	"strings"
	"time"

	"procurement/db"
	"procurement/internal/ai"
	"procurement/internal/apperr"
	"procurement/internal/events"
	"procurement/models"

	"go.uber.org/zap"
)

type Store interface {
	GetRFP(ctx context.Context, id string) (*models.RFP, error)
	GetRFPsByIDs(ctx context.Context, ids []string) ([]models.RFP, error)
	ListActiveRFPsForVendor(ctx context.Context, vendorID string) ([]models.RFP, error)
	GetVendor(ctx context.Context, id string) (*models.Vendor, error)
	GetVendorByEmail(ctx context.Context, email string) (*models.Vendor, error)
	GetVendorsByIDs(ctx context.Context, ids []string) ([]models.Vendor, error)
	CreateProposal(ctx context.Context, p *models.Proposal) error
	GetProposal(ctx context.Context, id string) (*models.Proposal, error)
	GetProposalByPair(ctx context.Context, rfpID, vendorID string) (*models.Proposal, error)
	UpdateProposal(ctx context.Context, p *models.Proposal) error
	ListProposals(ctx context.Context, f models.ProposalFilter, limit, offset int) ([]models.Proposal, int, error)
}

type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// Analyzer scores proposal text. *ai.Client satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*ai.Analysis, error)
}

const (
	DefaultPage  = 1
	DefaultLimit = 10

	msgNotFound      = "Proposal not found"
	msgDuplicate     = "Proposal already exists for this vendor and RFP"
	msgInvalidStatus = "Valid status is required: pending, received, evaluated, or rejected"
)

type Manager struct {
	store    Store
	events   Publisher
	analyzer Analyzer
	logger   *zap.Logger
	now      func() time.Time
}

// NewManager builds a Manager. analyzer may be nil, in which case Analyze
// reports that AI analysis is unavailable.
func NewManager(store Store, pub Publisher, analyzer Analyzer, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		events:   pub,
		analyzer: analyzer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create records a proposal for a vendor assigned to the RFP. The checks
// run in a fixed order and each fails with its own error.
func (m *Manager) Create(ctx context.Context, in models.ProposalInput) (*models.ProposalView, error) {
	rfpID := strings.TrimSpace(in.RFPID)
	vendorID := strings.TrimSpace(in.VendorID)
	if rfpID == "" || vendorID == "" {
		return nil, apperr.Validation("RFP ID and Vendor ID are required")
	}
	if !models.IsValidID(rfpID) {
		return nil, apperr.Validation("Invalid RFP ID format")
	}
	if !models.IsValidID(vendorID) {
		return nil, apperr.Validation("Invalid vendor ID format")
	}

	r, err := m.store.GetRFP(ctx, rfpID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.NotFound("RFP not found")
		}
		return nil, apperr.Unexpected("Failed to create proposal", err)
	}
	if !r.IsAssigned(vendorID) {
		return nil, apperr.Validation("Vendor is not assigned to this RFP")
	}
	v, err := m.activeVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	existing, err := m.store.GetProposalByPair(ctx, rfpID, vendorID)
	switch {
	case err == nil:
		return nil, apperr.Conflict(msgDuplicate, m.bare(existing))
	case !errors.Is(err, db.ErrNotFound):
		return nil, apperr.Unexpected("Failed to create proposal", err)
	}

	now := m.now()
	p := &models.Proposal{
		ID:              models.NewID(),
		RFPID:           rfpID,
		VendorID:        vendorID,
		Status:          models.ProposalPending,
		RawEmailContent: models.ManualProposalContent,
		RawAttachments:  NormalizeAttachments(in.RawAttachments),
		ExtractedData:   models.DefaultExtractedData(),
		AIAnalysis:      normalizeAnalysis(in.AIAnalysis),
		ReceivedAt:      now,
		EvaluatorNotes:  strings.TrimSpace(in.EvaluatorNotes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if strings.TrimSpace(in.RawEmailContent) != "" {
		p.Status = models.ProposalReceived
		p.RawEmailContent = in.RawEmailContent
	}
	if in.ExtractedData != nil {
		p.ExtractedData = in.ExtractedData.Resolve()
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	if err := m.insert(ctx, p); err != nil {
		return nil, err
	}
	return m.view(ctx, p, v, false)
}

// insert stores p and announces it. A lost race on the (rfp, vendor) pair
// surfaces as a conflict carrying the winner.
func (m *Manager) insert(ctx context.Context, p *models.Proposal) error {
	if err := m.store.CreateProposal(ctx, p); err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			existing, getErr := m.store.GetProposalByPair(ctx, p.RFPID, p.VendorID)
			if getErr != nil {
				return apperr.Conflict(msgDuplicate, nil)
			}
			return apperr.Conflict(msgDuplicate, m.bare(existing))
		}
		return apperr.Unexpected("Failed to create proposal", err)
	}
	m.logger.Info("proposal created",
		zap.String("proposal_id", p.ID),
		zap.String("rfp_id", p.RFPID),
		zap.String("vendor_id", p.VendorID),
		zap.String("status", string(p.Status)),
	)
	m.publish(ctx, events.ProposalCreated, p)
	return nil
}

// UpdateFields applies the fields present in patch.
func (m *Manager) UpdateFields(ctx context.Context, id string, patch models.ProposalPatch) (*models.ProposalView, error) {
	p, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := m.now()

	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, apperr.Validation(msgInvalidStatus)
		}
		m.setStatus(p, *patch.Status, now)
	}
	if patch.AIAnalysis != nil {
		a := normalizeAnalysis(patch.AIAnalysis)
		a.LastUpdated = p.AIAnalysis.LastUpdated
		p.AIAnalysis = a
	}
	if patch.ExtractedData != nil {
		p.ExtractedData = patch.ExtractedData.Resolve()
		if !patch.ExtractedData.Empty() {
			p.AIAnalysis.LastUpdated = &now
		}
	}
	if patch.EvaluatorNotes != nil {
		p.EvaluatorNotes = strings.TrimSpace(*patch.EvaluatorNotes)
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	if err := m.save(ctx, p, now); err != nil {
		return nil, err
	}
	return m.view(ctx, p, nil, false)
}

// ChangeStatus sets any status. Notes are only applied when non-empty.
func (m *Manager) ChangeStatus(ctx context.Context, id string, status models.ProposalStatus, notes string) (*models.ProposalView, error) {
	if !status.Valid() {
		return nil, apperr.Validation(msgInvalidStatus)
	}
	p, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := m.now()
	from := p.Status
	m.setStatus(p, status, now)
	if notes = strings.TrimSpace(notes); notes != "" {
		p.EvaluatorNotes = notes
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	if err := m.save(ctx, p, now); err != nil {
		return nil, err
	}
	m.logger.Info("proposal status changed",
		zap.String("proposal_id", p.ID),
		zap.String("from", string(from)),
		zap.String("to", string(status)),
	)
	return m.view(ctx, p, nil, false)
}

// Analyze scores the proposal's raw content and stores the result.
func (m *Manager) Analyze(ctx context.Context, id string) (*models.ProposalView, error) {
	p, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.analyzer == nil {
		return nil, apperr.Unexpected("AI analysis is not configured", errors.New("no analyzer"))
	}
	res, err := m.analyzer.Analyze(ctx, p.RawEmailContent)
	if err != nil {
		m.logger.Warn("proposal analysis failed", zap.String("proposal_id", id), zap.Error(err))
		return nil, apperr.Unexpected("Failed to analyze proposal", err)
	}
	return m.UpdateFields(ctx, id, models.ProposalPatch{AIAnalysis: &models.AIAnalysis{
		Score:           res.Score,
		Summary:         res.Summary,
		Strengths:       res.Strengths,
		Weaknesses:      res.Weaknesses,
		Recommendations: res.Recommendations,
		ComparisonData:  p.AIAnalysis.ComparisonData,
	}})
}

// Get returns the proposal with its raw content, vendor and RFP details.
func (m *Manager) Get(ctx context.Context, id string) (*models.ProposalView, error) {
	p, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.view(ctx, p, nil, true)
}

// List returns one page of proposals, best score first.
func (m *Manager) List(ctx context.Context, f models.ProposalFilter, page, limit int) ([]models.ProposalView, models.Pagination, error) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	pg := models.NewPagination(page, limit, 0)
	if f.RFPID != "" && !models.IsValidID(f.RFPID) {
		return nil, pg, apperr.Validation("Invalid RFP ID format")
	}
	if f.VendorID != "" && !models.IsValidID(f.VendorID) {
		return nil, pg, apperr.Validation("Invalid vendor ID format")
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, pg, apperr.Validation(msgInvalidStatus)
	}

	list, total, err := m.store.ListProposals(ctx, f, limit, pg.Offset())
	if err != nil {
		return nil, pg, apperr.Unexpected("Failed to fetch proposals", err)
	}
	pg = models.NewPagination(page, limit, total)

	var vendorIDs, rfpIDs []string
	for _, p := range list {
		vendorIDs = append(vendorIDs, p.VendorID)
		rfpIDs = append(rfpIDs, p.RFPID)
	}
	vendors, err := m.store.GetVendorsByIDs(ctx, vendorIDs)
	if err != nil {
		return nil, pg, apperr.Unexpected("Failed to fetch proposals", err)
	}
	rfps, err := m.store.GetRFPsByIDs(ctx, rfpIDs)
	if err != nil {
		return nil, pg, apperr.Unexpected("Failed to fetch proposals", err)
	}
	vendorByID := make(map[string]models.Vendor, len(vendors))
	for _, v := range vendors {
		vendorByID[v.ID] = v
	}
	rfpByID := make(map[string]models.RFP, len(rfps))
	for _, r := range rfps {
		rfpByID[r.ID] = r
	}

	views := make([]models.ProposalView, 0, len(list))
	for _, p := range list {
		pv := models.ProposalView{Proposal: p}
		pv.RawEmailContent = ""
		if v, ok := vendorByID[p.VendorID]; ok {
			pv.Vendor = &models.VendorRef{ID: v.ID, Name: v.Name, Email: v.Email, ContactPerson: v.ContactPerson}
		}
		if r, ok := rfpByID[p.RFPID]; ok {
			ref := r.Ref()
			pv.RFP = &ref
		}
		views = append(views, pv)
	}
	return views, pg, nil
}

// setStatus stamps evaluatedAt the first time a proposal is evaluated.
func (m *Manager) setStatus(p *models.Proposal, status models.ProposalStatus, now time.Time) {
	p.Status = status
	if status == models.ProposalEvaluated && p.EvaluatedAt == nil {
		at := now
		p.EvaluatedAt = &at
	}
}

func (m *Manager) save(ctx context.Context, p *models.Proposal, now time.Time) error {
	p.UpdatedAt = now
	if err := m.store.UpdateProposal(ctx, p); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperr.NotFound(msgNotFound)
		}
		return apperr.Unexpected("Failed to update proposal", err)
	}
	return nil
}

func (m *Manager) load(ctx context.Context, id string) (*models.Proposal, error) {
	if !models.IsValidID(id) {
		return nil, apperr.Validation("Invalid proposal ID format")
	}
	p, err := m.store.GetProposal(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.NotFound(msgNotFound)
		}
		return nil, apperr.Unexpected("Failed to fetch proposal", err)
	}
	return p, nil
}

func (m *Manager) activeVendor(ctx context.Context, id string) (*models.Vendor, error) {
	v, err := m.store.GetVendor(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.NotFound("Vendor not found or inactive")
		}
		return nil, apperr.Unexpected("Failed to fetch vendor", err)
	}
	if !v.IsActive {
		return nil, apperr.NotFound("Vendor not found or inactive")
	}
	return v, nil
}

func (m *Manager) publish(ctx context.Context, topic events.Topic, p *models.Proposal) {
	err := m.events.Publish(ctx, events.Event{
		Topic:      topic,
		RFPID:      p.RFPID,
		VendorID:   p.VendorID,
		ProposalID: p.ID,
		At:         m.now(),
	})
	if err != nil {
		m.logger.Warn("proposal event handler failed",
			zap.String("topic", string(topic)),
			zap.String("proposal_id", p.ID),
			zap.Error(err),
		)
	}
}

// bare strips the raw content from p for conflict responses.
func (m *Manager) bare(p *models.Proposal) *models.ProposalView {
	pv := &models.ProposalView{Proposal: *p}
	pv.RawEmailContent = ""
	return pv
}

// view populates the vendor and RFP of p. vendor may be passed when the
// caller already holds it. The RFP is always reread so its status reflects
// any change made by event subscribers.
func (m *Manager) view(ctx context.Context, p *models.Proposal, vendor *models.Vendor, full bool) (*models.ProposalView, error) {
	pv := &models.ProposalView{Proposal: *p}
	if !full {
		pv.RawEmailContent = ""
	}
	if vendor == nil {
		v, err := m.store.GetVendor(ctx, p.VendorID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return nil, apperr.Unexpected("Failed to fetch proposal", err)
		}
		vendor = v
	}
	if vendor != nil {
		ref := models.VendorRef{ID: vendor.ID, Name: vendor.Name, Email: vendor.Email}
		if full {
			ref = vendor.Ref()
		}
		pv.Vendor = &ref
	}
	r, err := m.store.GetRFP(ctx, p.RFPID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, apperr.Unexpected("Failed to fetch proposal", err)
	}
	if r != nil {
		ref := r.Ref()
		if full {
			ref = r.DetailRef()
		}
		pv.RFP = &ref
	}
	return pv, nil
}
