package vendors

import (
	"context"
	"sync"
	"testing"

	"procurement/internal/apperr"
	"procurement/internal/memstore"
	"procurement/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ptr[T any](v T) *T { return &v }

func newRegistry() *Registry {
	return NewRegistry(memstore.New(), zap.NewNop())
}

func TestRegisterDefaults(t *testing.T) {
	r := newRegistry()
	v, err := r.Register(context.Background(), models.VendorInput{
		Name:  "  Acme Corp ",
		Email: " Sales@Acme.COM ",
	})
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", v.Name)
	require.Equal(t, "sales@acme.com", v.Email)
	require.Equal(t, []string{"Other"}, v.Category)
	require.Equal(t, 3, v.Rating)
	require.True(t, v.IsActive)
	require.True(t, models.IsValidID(v.ID))
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	r := newRegistry()
	first, err := r.Register(context.Background(), models.VendorInput{Name: "Acme", Email: "sales@acme.com"})
	require.NoError(t, err)

	_, err = r.Register(context.Background(), models.VendorInput{Name: "Acme Two", Email: "SALES@acme.com "})
	require.True(t, apperr.IsConflict(err))

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	existing, ok := appErr.Existing.(*models.Vendor)
	require.True(t, ok)
	require.Equal(t, first.ID, existing.ID)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		in   models.VendorInput
	}{
		{"missing name", models.VendorInput{Email: "a@b.com"}},
		{"short name", models.VendorInput{Name: "A", Email: "a@b.com"}},
		{"missing email", models.VendorInput{Name: "Acme"}},
		{"bad email", models.VendorInput{Name: "Acme", Email: "bad-email"}},
		{"rating too high", models.VendorInput{Name: "Acme", Email: "a@b.com", Rating: ptr(6)}},
		{"rating zero", models.VendorInput{Name: "Acme", Email: "a@b.com", Rating: ptr(0)}},
		{"bad phone", models.VendorInput{Name: "Acme", Email: "a@b.com", Phone: "012-345"}},
		{"unknown category", models.VendorInput{Name: "Acme", Email: "a@b.com", Category: []string{"Weapons"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newRegistry().Register(context.Background(), tt.in)
			require.True(t, apperr.IsValidation(err), "got %v", err)
		})
	}
}

func TestRegisterCollapsesDuplicateCategories(t *testing.T) {
	v, err := newRegistry().Register(context.Background(), models.VendorInput{
		Name:     "Acme",
		Email:    "a@b.com",
		Phone:    "+14155550100",
		Category: []string{"Software", "IT Equipment", "Software"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Software", "IT Equipment"}, v.Category)
}

func TestUpdatePartial(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	v, err := r.Register(ctx, models.VendorInput{Name: "Acme", Email: "a@b.com", ContactPerson: "Jo", Rating: ptr(4)})
	require.NoError(t, err)

	updated, err := r.Update(ctx, v.ID, models.VendorPatch{Notes: ptr("Preferred supplier")})
	require.NoError(t, err)
	require.Equal(t, "Preferred supplier", updated.Notes)
	require.Equal(t, "Jo", updated.ContactPerson)
	require.Equal(t, 4, updated.Rating)
	require.Equal(t, "a@b.com", updated.Email)
}

func TestUpdateEmailCollision(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	_, err := r.Register(ctx, models.VendorInput{Name: "Acme", Email: "a@b.com"})
	require.NoError(t, err)
	other, err := r.Register(ctx, models.VendorInput{Name: "Globex", Email: "g@b.com"})
	require.NoError(t, err)

	_, err = r.Update(ctx, other.ID, models.VendorPatch{Email: ptr("A@B.com")})
	require.True(t, apperr.IsConflict(err))

	same, err := r.Update(ctx, other.ID, models.VendorPatch{Email: ptr("G@B.com")})
	require.NoError(t, err)
	require.Equal(t, "g@b.com", same.Email)
}

func TestUpdateUnknownVendor(t *testing.T) {
	_, err := newRegistry().Update(context.Background(), models.NewID(), models.VendorPatch{Name: ptr("Acme")})
	require.True(t, apperr.IsNotFound(err))

	_, err = newRegistry().Get(context.Background(), "not-a-uuid")
	require.True(t, apperr.IsValidation(err))
}

func TestSetActive(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	v, err := r.Register(ctx, models.VendorInput{Name: "Acme", Email: "a@b.com"})
	require.NoError(t, err)

	off, err := r.SetActive(ctx, v.ID, false)
	require.NoError(t, err)
	require.False(t, off.IsActive)

	active, err := r.List(ctx, models.VendorFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Empty(t, active)

	on, err := r.SetActive(ctx, v.ID, true)
	require.NoError(t, err)
	require.True(t, on.IsActive)
}

func TestListFiltersAndSorts(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	for _, in := range []models.VendorInput{
		{Name: "Zeta Supplies", Email: "z@zeta.com", Category: []string{"Office Supplies"}},
		{Name: "Alpha Tech", Email: "sales@alpha.com", ContactPerson: "Maria Lopez", Category: []string{"IT Equipment"}},
		{Name: "Beta Systems", Email: "hello@beta.io", Category: []string{"IT Equipment", "Software"}, IsActive: ptr(false)},
	} {
		_, err := r.Register(ctx, in)
		require.NoError(t, err)
	}

	all, err := r.List(ctx, models.VendorFilter{})
	require.NoError(t, err)
	require.Equal(t, []string{"Alpha Tech", "Beta Systems", "Zeta Supplies"}, names(all))

	it, err := r.List(ctx, models.VendorFilter{ActiveOnly: true, Category: "IT Equipment"})
	require.NoError(t, err)
	require.Equal(t, []string{"Alpha Tech"}, names(it))

	byContact, err := r.List(ctx, models.VendorFilter{Search: "LOPEZ"})
	require.NoError(t, err)
	require.Equal(t, []string{"Alpha Tech"}, names(byContact))

	byEmail, err := r.List(ctx, models.VendorFilter{Search: "beta.io"})
	require.NoError(t, err)
	require.Equal(t, []string{"Beta Systems"}, names(byEmail))
}

func TestConcurrentRegistrationSameEmail(t *testing.T) {
	r := newRegistry()
	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Register(context.Background(), models.VendorInput{Name: "Acme", Email: "race@acme.com"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.True(t, apperr.IsConflict(err))
	}
	require.Equal(t, 1, succeeded)
}

func names(vs []models.Vendor) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Name)
	}
	return out
}
