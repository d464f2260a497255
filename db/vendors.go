package db

import (
	"context"
	"fmt"

	"procurement/models"

	"github.com/lib/pq"
)

func (s *Storage) CreateVendor(ctx context.Context, v *models.Vendor) error {
	query := `
		INSERT INTO vendor (id, name, email, contact_person, phone, category, notes, rating, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := s.db.ExecContext(ctx, query,
		v.ID, v.Name, v.Email, v.ContactPerson, v.Phone, pq.Array(v.Category),
		v.Notes, v.Rating, v.IsActive, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert vendor: %w", translate(err))
	}
	return nil
}

func (s *Storage) GetVendor(ctx context.Context, id string) (*models.Vendor, error) {
	var row vendorRow
	err := s.db.GetContext(ctx, &row, `SELECT `+vendorColumns+` FROM vendor WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get vendor %s: %w", id, translate(err))
	}
	return row.model(), nil
}

// GetVendorByEmail matches case-insensitively, regardless of the active flag.
func (s *Storage) GetVendorByEmail(ctx context.Context, email string) (*models.Vendor, error) {
	var row vendorRow
	err := s.db.GetContext(ctx, &row, `SELECT `+vendorColumns+` FROM vendor WHERE lower(email) = lower($1)`, email)
	if err != nil {
		return nil, fmt.Errorf("get vendor by email: %w", translate(err))
	}
	return row.model(), nil
}

// UpdateVendor overwrites every mutable column of the vendor row.
func (s *Storage) UpdateVendor(ctx context.Context, v *models.Vendor) error {
	query := `
		UPDATE vendor
		SET name = $1, email = $2, contact_person = $3, phone = $4, category = $5,
		    notes = $6, rating = $7, is_active = $8, updated_at = $9
		WHERE id = $10`
	res, err := s.db.ExecContext(ctx, query,
		v.Name, v.Email, v.ContactPerson, v.Phone, pq.Array(v.Category),
		v.Notes, v.Rating, v.IsActive, v.UpdatedAt, v.ID)
	if err != nil {
		return fmt.Errorf("update vendor %s: %w", v.ID, translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update vendor %s: %w", v.ID, ErrNotFound)
	}
	return nil
}

func (s *Storage) ListVendors(ctx context.Context, f models.VendorFilter) ([]models.Vendor, error) {
	var w whereBuilder
	if f.ActiveOnly {
		w.add("is_active = TRUE")
	}
	if f.Category != "" {
		w.add(w.arg(f.Category) + " = ANY(category)")
	}
	if f.Search != "" {
		p := w.arg(containsPattern(f.Search))
		w.add(fmt.Sprintf("(name ILIKE %[1]s OR email ILIKE %[1]s OR contact_person ILIKE %[1]s)", p))
	}

	var rows []vendorRow
	query := `SELECT ` + vendorColumns + ` FROM vendor` + w.String() + ` ORDER BY name ASC, id ASC`
	if err := s.db.SelectContext(ctx, &rows, query, w.args...); err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	vendors := make([]models.Vendor, 0, len(rows))
	for i := range rows {
		vendors = append(vendors, *rows[i].model())
	}
	return vendors, nil
}

// GetVendorsByIDs returns the vendors among ids that exist, in no particular order.
func (s *Storage) GetVendorsByIDs(ctx context.Context, ids []string) ([]models.Vendor, error) {
	if len(ids) == 0 {
		return []models.Vendor{}, nil
	}
	var rows []vendorRow
	query := `SELECT ` + vendorColumns + ` FROM vendor WHERE id = ANY($1::uuid[])`
	if err := s.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("get vendors by ids: %w", err)
	}
	vendors := make([]models.Vendor, 0, len(rows))
	for i := range rows {
		vendors = append(vendors, *rows[i].model())
	}
	return vendors, nil
}
