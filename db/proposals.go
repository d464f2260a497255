package db

import (
	"context"
	"fmt"

	"procurement/models"
)

func (s *Storage) CreateProposal(ctx context.Context, p *models.Proposal) error {
	row, err := newProposalRow(p)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO proposal (id, rfp_id, vendor_id, status, raw_email_content, raw_attachments, extracted_data,
		                      ai_analysis, received_at, evaluated_at, evaluator_notes, created_at, updated_at)
		VALUES (:id, :rfp_id, :vendor_id, :status, :raw_email_content, :raw_attachments, :extracted_data,
		        :ai_analysis, :received_at, :evaluated_at, :evaluator_notes, :created_at, :updated_at)`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("insert proposal: %w", translate(err))
	}
	return nil
}

func (s *Storage) GetProposal(ctx context.Context, id string) (*models.Proposal, error) {
	var row proposalRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+proposalColumns+` FROM proposal WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("get proposal %s: %w", id, translate(err))
	}
	return row.model()
}

// GetProposalByPair looks a proposal up by its unique (rfp, vendor) key.
func (s *Storage) GetProposalByPair(ctx context.Context, rfpID, vendorID string) (*models.Proposal, error) {
	var row proposalRow
	query := `SELECT ` + proposalColumns + ` FROM proposal WHERE rfp_id = $1 AND vendor_id = $2`
	if err := s.db.GetContext(ctx, &row, query, rfpID, vendorID); err != nil {
		return nil, fmt.Errorf("get proposal for rfp %s and vendor %s: %w", rfpID, vendorID, translate(err))
	}
	return row.model()
}

// UpdateProposal overwrites every mutable column. The rfp/vendor pair is fixed.
func (s *Storage) UpdateProposal(ctx context.Context, p *models.Proposal) error {
	row, err := newProposalRow(p)
	if err != nil {
		return err
	}
	query := `
		UPDATE proposal
		SET status = :status, raw_email_content = :raw_email_content, raw_attachments = :raw_attachments,
		    extracted_data = :extracted_data, ai_analysis = :ai_analysis, received_at = :received_at,
		    evaluated_at = :evaluated_at, evaluator_notes = :evaluator_notes, updated_at = :updated_at
		WHERE id = :id`
	res, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("update proposal %s: %w", p.ID, translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update proposal %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

// ListProposals returns one page of proposals ranked by AI score, then by
// most recent receipt. A non-positive limit returns every match.
func (s *Storage) ListProposals(ctx context.Context, f models.ProposalFilter, limit, offset int) ([]models.Proposal, int, error) {
	var w whereBuilder
	if f.RFPID != "" {
		w.add("rfp_id = " + w.arg(f.RFPID))
	}
	if f.VendorID != "" {
		w.add("vendor_id = " + w.arg(f.VendorID))
	}
	if f.Status != "" {
		w.add("status = " + w.arg(f.Status))
	}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM proposal`+w.String(), w.args...); err != nil {
		return nil, 0, fmt.Errorf("count proposals: %w", err)
	}

	query := `SELECT ` + proposalColumns + ` FROM proposal` + w.String() +
		` ORDER BY COALESCE((ai_analysis->>'score')::int, 0) DESC, received_at DESC, id ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	}
	var rows []proposalRow
	if err := s.db.SelectContext(ctx, &rows, query, w.args...); err != nil {
		return nil, 0, fmt.Errorf("list proposals: %w", err)
	}
	proposals := make([]models.Proposal, 0, len(rows))
	for i := range rows {
		p, err := rows[i].model()
		if err != nil {
			return nil, 0, err
		}
		proposals = append(proposals, *p)
	}
	return proposals, total, nil
}
