package db

import (
	"context"
	"fmt"
	"time"

	"procurement/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func (s *Storage) CreateRFP(ctx context.Context, r *models.RFP) error {
	row, err := newRFPRow(r)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO rfp (id, title, description, structured_data, budget, deadline, items, terms, status, created_by, created_at, updated_at)
			VALUES (:id, :title, :description, :structured_data, :budget, :deadline, :items, :terms, :status, :created_by, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("insert rfp: %w", translate(err))
		}
		return replaceAssignments(ctx, tx, r.ID, r.AssignedVendors)
	})
}

func (s *Storage) GetRFP(ctx context.Context, id string) (*models.RFP, error) {
	var row rfpRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+rfpColumns+` FROM rfp WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("get rfp %s: %w", id, translate(err))
	}
	rfps, err := s.withAssignments(ctx, []rfpRow{row})
	if err != nil {
		return nil, err
	}
	return &rfps[0], nil
}

// UpdateRFP overwrites the RFP content columns and its vendor assignments.
// Status is written only through SetRFPStatus.
func (s *Storage) UpdateRFP(ctx context.Context, r *models.RFP) error {
	row, err := newRFPRow(r)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			UPDATE rfp
			SET title = :title, description = :description, structured_data = :structured_data,
			    budget = :budget, deadline = :deadline, items = :items, terms = :terms, updated_at = :updated_at
			WHERE id = :id`
		res, err := tx.NamedExecContext(ctx, query, row)
		if err != nil {
			return fmt.Errorf("update rfp %s: %w", r.ID, translate(err))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("update rfp %s: %w", r.ID, ErrNotFound)
		}
		return replaceAssignments(ctx, tx, r.ID, r.AssignedVendors)
	})
}

// DeleteDraftRFP removes the RFP if it is still a draft. It reports false
// when no draft with that id exists.
func (s *Storage) DeleteDraftRFP(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rfp WHERE id = $1 AND status = $2`, id, models.RFPDraft)
	if err != nil {
		return false, fmt.Errorf("delete rfp %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete rfp %s: %w", id, err)
	}
	return n > 0, nil
}

// SetRFPStatus moves the RFP from one status to another only if it is
// currently in from. It reports whether the row changed.
func (s *Storage) SetRFPStatus(ctx context.Context, id string, from, to models.RFPStatus, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rfp SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, at, id, from)
	if err != nil {
		return false, fmt.Errorf("set rfp %s status: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set rfp %s status: %w", id, err)
	}
	return n > 0, nil
}

// ListRFPs returns one page of RFPs, newest first, with the total match count.
// A non-positive limit returns every match.
func (s *Storage) ListRFPs(ctx context.Context, f models.RFPFilter, limit, offset int) ([]models.RFP, int, error) {
	var w whereBuilder
	if f.Status != "" {
		w.add("status = " + w.arg(f.Status))
	}
	if f.Search != "" {
		p := w.arg(containsPattern(f.Search))
		w.add(fmt.Sprintf("(title ILIKE %[1]s OR description ILIKE %[1]s)", p))
	}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM rfp`+w.String(), w.args...); err != nil {
		return nil, 0, fmt.Errorf("count rfps: %w", err)
	}

	query := `SELECT ` + rfpColumns + ` FROM rfp` + w.String() + ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	}
	var rows []rfpRow
	if err := s.db.SelectContext(ctx, &rows, query, w.args...); err != nil {
		return nil, 0, fmt.Errorf("list rfps: %w", err)
	}
	rfps, err := s.withAssignments(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return rfps, total, nil
}

// ListActiveRFPsForVendor returns the sent or in-progress RFPs the vendor is
// assigned to, newest first.
func (s *Storage) ListActiveRFPsForVendor(ctx context.Context, vendorID string) ([]models.RFP, error) {
	query := `
		SELECT r.id, r.title, r.description, r.structured_data, r.budget, r.deadline, r.items, r.terms,
		       r.status, r.created_by, r.created_at, r.updated_at
		FROM rfp r
		JOIN rfp_vendor rv ON rv.rfp_id = r.id
		WHERE rv.vendor_id = $1 AND r.status IN ($2, $3)
		ORDER BY r.created_at DESC, r.id DESC`
	var rows []rfpRow
	if err := s.db.SelectContext(ctx, &rows, query, vendorID, models.RFPSent, models.RFPInProgress); err != nil {
		return nil, fmt.Errorf("list active rfps for vendor %s: %w", vendorID, err)
	}
	return s.withAssignments(ctx, rows)
}

func (s *Storage) GetRFPsByIDs(ctx context.Context, ids []string) ([]models.RFP, error) {
	if len(ids) == 0 {
		return []models.RFP{}, nil
	}
	var rows []rfpRow
	query := `SELECT ` + rfpColumns + ` FROM rfp WHERE id = ANY($1::uuid[])`
	if err := s.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("get rfps by ids: %w", err)
	}
	return s.withAssignments(ctx, rows)
}

type assignmentRow struct {
	RFPID    string `db:"rfp_id"`
	VendorID string `db:"vendor_id"`
}

// withAssignments converts rows to models and fills AssignedVendors in position order.
func (s *Storage) withAssignments(ctx context.Context, rows []rfpRow) ([]models.RFP, error) {
	rfps := make([]models.RFP, 0, len(rows))
	if len(rows) == 0 {
		return rfps, nil
	}
	ids := make([]string, 0, len(rows))
	index := make(map[string]int, len(rows))
	for i := range rows {
		r, err := rows[i].model()
		if err != nil {
			return nil, err
		}
		index[r.ID] = len(rfps)
		rfps = append(rfps, *r)
		ids = append(ids, r.ID)
	}

	var assigned []assignmentRow
	query := `SELECT rfp_id, vendor_id FROM rfp_vendor WHERE rfp_id = ANY($1::uuid[]) ORDER BY rfp_id, position`
	if err := s.db.SelectContext(ctx, &assigned, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load rfp vendors: %w", err)
	}
	for _, a := range assigned {
		i := index[a.RFPID]
		rfps[i].AssignedVendors = append(rfps[i].AssignedVendors, a.VendorID)
	}
	return rfps, nil
}

func replaceAssignments(ctx context.Context, tx *sqlx.Tx, rfpID string, vendorIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM rfp_vendor WHERE rfp_id = $1`, rfpID); err != nil {
		return fmt.Errorf("clear rfp vendors: %w", err)
	}
	for pos, vendorID := range vendorIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO rfp_vendor (rfp_id, vendor_id, position) VALUES ($1, $2, $3)`,
			rfpID, vendorID, pos)
		if err != nil {
			return fmt.Errorf("assign vendor %s: %w", vendorID, translate(err))
		}
	}
	return nil
}
