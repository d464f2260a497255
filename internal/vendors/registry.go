// Package vendors implements the vendor registry.
package vendors

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"procurement/db"
	"procurement/internal/apperr"
	"procurement/models"

	"go.uber.org/zap"
)

type Store interface {
	CreateVendor(ctx context.Context, v *models.Vendor) error
	GetVendor(ctx context.Context, id string) (*models.Vendor, error)
	GetVendorByEmail(ctx context.Context, email string) (*models.Vendor, error)
	UpdateVendor(ctx context.Context, v *models.Vendor) error
	ListVendors(ctx context.Context, f models.VendorFilter) ([]models.Vendor, error)
}

const (
	msgNotFound      = "Vendor not found"
	msgEmailConflict = "Vendor with this email already exists"
)

var (
	emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
)

type Registry struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewRegistry(store Store, logger *zap.Logger) *Registry {
	return &Registry{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func (r *Registry) Register(ctx context.Context, in models.VendorInput) (*models.Vendor, error) {
	now := r.now()
	v := &models.Vendor{
		ID:            models.NewID(),
		Name:          strings.TrimSpace(in.Name),
		Email:         NormalizeEmail(in.Email),
		ContactPerson: strings.TrimSpace(in.ContactPerson),
		Phone:         strings.TrimSpace(in.Phone),
		Category:      normalizeCategories(in.Category),
		Notes:         strings.TrimSpace(in.Notes),
		Rating:        models.DefaultRating,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.Rating != nil {
		v.Rating = *in.Rating
	}
	if in.IsActive != nil {
		v.IsActive = *in.IsActive
	}
	if err := validate(v); err != nil {
		return nil, err
	}

	if err := r.store.CreateVendor(ctx, v); err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			return nil, apperr.Conflict(msgEmailConflict, r.existingByEmail(ctx, v.Email))
		}
		return nil, apperr.Unexpected("Failed to create vendor", err)
	}
	r.logger.Info("vendor registered", zap.String("vendor_id", v.ID), zap.String("email", v.Email))
	return v, nil
}

// Update applies the fields present in p. Absent fields keep their value.
func (r *Registry) Update(ctx context.Context, id string, p models.VendorPatch) (*models.Vendor, error) {
	v, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		v.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		v.Email = NormalizeEmail(*p.Email)
	}
	if p.ContactPerson != nil {
		v.ContactPerson = strings.TrimSpace(*p.ContactPerson)
	}
	if p.Phone != nil {
		v.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Category != nil {
		v.Category = normalizeCategories(p.Category)
	}
	if p.Notes != nil {
		v.Notes = strings.TrimSpace(*p.Notes)
	}
	if p.Rating != nil {
		v.Rating = *p.Rating
	}
	if p.IsActive != nil {
		v.IsActive = *p.IsActive
	}
	if err := validate(v); err != nil {
		return nil, err
	}
	return r.save(ctx, v)
}

// SetActive activates or deactivates a vendor. Deactivated vendors can no
// longer be assigned to RFPs or matched by inbound email.
func (r *Registry) SetActive(ctx context.Context, id string, active bool) (*models.Vendor, error) {
	v, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.IsActive == active {
		return v, nil
	}
	v.IsActive = active
	out, err := r.save(ctx, v)
	if err != nil {
		return nil, err
	}
	r.logger.Info("vendor activation changed", zap.String("vendor_id", id), zap.Bool("active", active))
	return out, nil
}

func (r *Registry) List(ctx context.Context, f models.VendorFilter) ([]models.Vendor, error) {
	f.Search = strings.TrimSpace(f.Search)
	vendors, err := r.store.ListVendors(ctx, f)
	if err != nil {
		return nil, apperr.Unexpected("Failed to fetch vendors", err)
	}
	return vendors, nil
}

func (r *Registry) Get(ctx context.Context, id string) (*models.Vendor, error) {
	if !models.IsValidID(id) {
		return nil, apperr.Validation("Invalid vendor ID format")
	}
	v, err := r.store.GetVendor(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.NotFound(msgNotFound)
		}
		return nil, apperr.Unexpected("Failed to fetch vendor", err)
	}
	return v, nil
}

func (r *Registry) save(ctx context.Context, v *models.Vendor) (*models.Vendor, error) {
	v.UpdatedAt = r.now()
	if err := r.store.UpdateVendor(ctx, v); err != nil {
		switch {
		case errors.Is(err, db.ErrUniqueViolation):
			return nil, apperr.Conflict(msgEmailConflict, r.existingByEmail(ctx, v.Email))
		case errors.Is(err, db.ErrNotFound):
			return nil, apperr.NotFound(msgNotFound)
		default:
			return nil, apperr.Unexpected("Failed to update vendor", err)
		}
	}
	return v, nil
}

// existingByEmail loads the vendor a conflict collided with, or nil.
func (r *Registry) existingByEmail(ctx context.Context, email string) *models.Vendor {
	v, err := r.store.GetVendorByEmail(ctx, email)
	if err != nil {
		return nil
	}
	return v
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeCategories drops duplicates, keeping first-seen order. An empty
// set becomes the default category.
func normalizeCategories(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		return []string{models.DefaultCategory}
	}
	return out
}

func validate(v *models.Vendor) error {
	var errs []string
	switch n := len([]rune(v.Name)); {
	case n == 0:
		errs = append(errs, "Vendor name is required")
	case n < 2:
		errs = append(errs, "Vendor name must be at least 2 characters")
	case n > 100:
		errs = append(errs, "Vendor name cannot exceed 100 characters")
	}
	switch {
	case v.Email == "":
		errs = append(errs, "Email is required")
	case !emailPattern.MatchString(v.Email):
		errs = append(errs, "Please provide a valid email")
	}
	if len([]rune(v.ContactPerson)) > 100 {
		errs = append(errs, "Contact person name cannot exceed 100 characters")
	}
	if v.Phone != "" && !phonePattern.MatchString(v.Phone) {
		errs = append(errs, "Please provide a valid phone number")
	}
	for _, c := range v.Category {
		if !models.IsVendorCategory(c) {
			errs = append(errs, "Invalid category: "+c)
		}
	}
	if len([]rune(v.Notes)) > 500 {
		errs = append(errs, "Notes cannot exceed 500 characters")
	}
	if v.Rating < 1 || v.Rating > 5 {
		errs = append(errs, "Rating must be between 1 and 5")
	}
	if len(errs) > 0 {
		return apperr.Invalid(errs)
	}
	return nil
}
