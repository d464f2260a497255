package proposals

import (
	"context"
	"errors"
	"strings"

	"procurement/db"
	"procurement/internal/apperr"
	"procurement/internal/events"
	"procurement/models"

	"go.uber.org/zap"
)

// EmailSubmission is an inbound vendor email reduced to what a proposal
// needs. Attachments are expected to be normalized already.
type EmailSubmission struct {
	From        string
	Subject     string
	Text        string
	HTML        string
	Attachments []models.Attachment
}

// UpsertFromEmail binds the email to the sender's most recent active RFP
// and creates or overwrites the proposal for that pair. The bool reports
// whether a new proposal was created.
func (m *Manager) UpsertFromEmail(ctx context.Context, e EmailSubmission) (*models.ProposalView, bool, error) {
	email := strings.ToLower(strings.TrimSpace(e.From))
	if email == "" {
		return nil, false, apperr.Validation("Missing sender email (from field)")
	}

	v, err := m.store.GetVendorByEmail(ctx, email)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, false, apperr.Unexpected("Failed to process email", err)
	}
	if v == nil || !v.IsActive {
		return nil, false, apperr.NotFound("Vendor not found or inactive for email: %s", email).
			WithDetail("receivedEmail", email)
	}

	active, err := m.store.ListActiveRFPsForVendor(ctx, v.ID)
	if err != nil {
		return nil, false, apperr.Unexpected("Failed to process email", err)
	}
	if len(active) == 0 {
		return nil, false, apperr.NotFound("No active RFPs found for this vendor").
			WithDetail("vendorName", v.Name)
	}
	r := active[0]

	content := emailContent(e.Text, e.HTML)
	attachments := NormalizeAttachments(e.Attachments)
	log := m.logger.With(
		zap.String("vendor_id", v.ID),
		zap.String("rfp_id", r.ID),
		zap.String("subject", e.Subject),
	)

	existing, err := m.store.GetProposalByPair(ctx, r.ID, v.ID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, false, apperr.Unexpected("Failed to process email", err)
	}
	if existing == nil {
		now := m.now()
		p := &models.Proposal{
			ID:              models.NewID(),
			RFPID:           r.ID,
			VendorID:        v.ID,
			Status:          models.ProposalReceived,
			RawEmailContent: content,
			RawAttachments:  attachments,
			ExtractedData:   models.DefaultExtractedData(),
			AIAnalysis:      models.DefaultAIAnalysis(),
			ReceivedAt:      now,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		err := m.insert(ctx, p)
		if err == nil {
			log.Info("proposal created from email", zap.String("proposal_id", p.ID))
			pv, err := m.view(ctx, p, v, false)
			return pv, true, err
		}
		if !apperr.IsConflict(err) {
			return nil, false, err
		}
		// Another delivery for the same pair won the insert.
		if existing, err = m.store.GetProposalByPair(ctx, r.ID, v.ID); err != nil {
			return nil, false, apperr.Unexpected("Failed to process email", err)
		}
	}

	now := m.now()
	existing.RawEmailContent = content
	existing.RawAttachments = attachments
	existing.Status = models.ProposalReceived
	existing.ReceivedAt = now
	if err := m.save(ctx, existing, now); err != nil {
		return nil, false, err
	}
	log.Info("proposal updated from email", zap.String("proposal_id", existing.ID))
	m.publish(ctx, events.ProposalReceived, existing)

	pv, err := m.view(ctx, existing, v, false)
	return pv, false, err
}
