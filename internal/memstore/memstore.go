// Package memstore is an in-memory implementation of the procurement
// storage used by tests. It enforces the same unique constraints as the
// PostgreSQL schema and reports them with the db package sentinels.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"procurement/db"
	"procurement/models"
)

type Store struct {
	mu        sync.Mutex
	vendors   map[string]models.Vendor
	rfps      map[string]models.RFP
	proposals map[string]models.Proposal

	// PingErr is returned by Ping when set.
	PingErr error
}

func New() *Store {
	return &Store{
		vendors:   make(map[string]models.Vendor),
		rfps:      make(map[string]models.RFP),
		proposals: make(map[string]models.Proposal),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.PingErr
}

func (s *Store) CreateVendor(ctx context.Context, v *models.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTaken(v.Email, v.ID) {
		return fmt.Errorf("insert vendor: %w: vendor_email_lower_idx", db.ErrUniqueViolation)
	}
	s.vendors[v.ID] = cloneVendor(*v)
	return nil
}

func (s *Store) GetVendor(ctx context.Context, id string) (*models.Vendor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vendors[id]
	if !ok {
		return nil, fmt.Errorf("get vendor %s: %w", id, db.ErrNotFound)
	}
	out := cloneVendor(v)
	return &out, nil
}

func (s *Store) GetVendorByEmail(ctx context.Context, email string) (*models.Vendor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.vendors {
		if strings.EqualFold(v.Email, email) {
			out := cloneVendor(v)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("get vendor by email: %w", db.ErrNotFound)
}

func (s *Store) UpdateVendor(ctx context.Context, v *models.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vendors[v.ID]; !ok {
		return fmt.Errorf("update vendor %s: %w", v.ID, db.ErrNotFound)
	}
	if s.emailTaken(v.Email, v.ID) {
		return fmt.Errorf("update vendor %s: %w: vendor_email_lower_idx", v.ID, db.ErrUniqueViolation)
	}
	s.vendors[v.ID] = cloneVendor(*v)
	return nil
}

func (s *Store) ListVendors(ctx context.Context, f models.VendorFilter) ([]models.Vendor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	search := strings.ToLower(f.Search)
	out := []models.Vendor{}
	for _, v := range s.vendors {
		if f.ActiveOnly && !v.IsActive {
			continue
		}
		if f.Category != "" && !contains(v.Category, f.Category) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(v.Name), search) &&
			!strings.Contains(strings.ToLower(v.Email), search) &&
			!strings.Contains(strings.ToLower(v.ContactPerson), search) {
			continue
		}
		out = append(out, cloneVendor(v))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetVendorsByIDs(ctx context.Context, ids []string) ([]models.Vendor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Vendor{}
	seen := map[string]bool{}
	for _, id := range ids {
		if v, ok := s.vendors[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, cloneVendor(v))
		}
	}
	return out, nil
}

func (s *Store) CreateRFP(ctx context.Context, r *models.RFP) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rfps[r.ID]; ok {
		return fmt.Errorf("insert rfp: %w: rfp_pkey", db.ErrUniqueViolation)
	}
	s.rfps[r.ID] = cloneRFP(*r)
	return nil
}

func (s *Store) GetRFP(ctx context.Context, id string) (*models.RFP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rfps[id]
	if !ok {
		return nil, fmt.Errorf("get rfp %s: %w", id, db.ErrNotFound)
	}
	out := cloneRFP(r)
	return &out, nil
}

// UpdateRFP writes everything except the status, like the SQL store.
func (s *Store) UpdateRFP(ctx context.Context, r *models.RFP) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rfps[r.ID]
	if !ok {
		return fmt.Errorf("update rfp %s: %w", r.ID, db.ErrNotFound)
	}
	next := cloneRFP(*r)
	next.Status = cur.Status
	next.CreatedAt = cur.CreatedAt
	next.CreatedBy = cur.CreatedBy
	s.rfps[r.ID] = next
	return nil
}

func (s *Store) DeleteDraftRFP(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rfps[id]
	if !ok || r.Status != models.RFPDraft {
		return false, nil
	}
	delete(s.rfps, id)
	for pid, p := range s.proposals {
		if p.RFPID == id {
			delete(s.proposals, pid)
		}
	}
	return true, nil
}

func (s *Store) SetRFPStatus(ctx context.Context, id string, from, to models.RFPStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rfps[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = at
	s.rfps[id] = r
	return true, nil
}

func (s *Store) ListRFPs(ctx context.Context, f models.RFPFilter, limit, offset int) ([]models.RFP, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	search := strings.ToLower(f.Search)
	matched := []models.RFP{}
	for _, r := range s.rfps {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(r.Title), search) &&
			!strings.Contains(strings.ToLower(r.Description), search) {
			continue
		}
		matched = append(matched, cloneRFP(r))
	}
	sortNewestFirst(matched)
	return page(matched, limit, offset), len(matched), nil
}

func (s *Store) ListActiveRFPsForVendor(ctx context.Context, vendorID string) ([]models.RFP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.RFP{}
	for _, r := range s.rfps {
		if r.Status != models.RFPSent && r.Status != models.RFPInProgress {
			continue
		}
		if contains(r.AssignedVendors, vendorID) {
			out = append(out, cloneRFP(r))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) GetRFPsByIDs(ctx context.Context, ids []string) ([]models.RFP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.RFP{}
	seen := map[string]bool{}
	for _, id := range ids {
		if r, ok := s.rfps[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, cloneRFP(r))
		}
	}
	return out, nil
}

func (s *Store) CreateProposal(ctx context.Context, p *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.proposals {
		if existing.RFPID == p.RFPID && existing.VendorID == p.VendorID {
			return fmt.Errorf("insert proposal: %w: proposal_rfp_vendor_key", db.ErrUniqueViolation)
		}
	}
	if _, ok := s.rfps[p.RFPID]; !ok {
		return fmt.Errorf("insert proposal: rfp %s does not exist", p.RFPID)
	}
	s.proposals[p.ID] = cloneProposal(*p)
	return nil
}

func (s *Store) GetProposal(ctx context.Context, id string) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok {
		return nil, fmt.Errorf("get proposal %s: %w", id, db.ErrNotFound)
	}
	out := cloneProposal(p)
	return &out, nil
}

func (s *Store) GetProposalByPair(ctx context.Context, rfpID, vendorID string) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.proposals {
		if p.RFPID == rfpID && p.VendorID == vendorID {
			out := cloneProposal(p)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("get proposal for rfp %s and vendor %s: %w", rfpID, vendorID, db.ErrNotFound)
}

func (s *Store) UpdateProposal(ctx context.Context, p *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.proposals[p.ID]
	if !ok {
		return fmt.Errorf("update proposal %s: %w", p.ID, db.ErrNotFound)
	}
	next := cloneProposal(*p)
	next.RFPID = cur.RFPID
	next.VendorID = cur.VendorID
	next.CreatedAt = cur.CreatedAt
	s.proposals[p.ID] = next
	return nil
}

func (s *Store) ListProposals(ctx context.Context, f models.ProposalFilter, limit, offset int) ([]models.Proposal, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := []models.Proposal{}
	for _, p := range s.proposals {
		if f.RFPID != "" && p.RFPID != f.RFPID {
			continue
		}
		if f.VendorID != "" && p.VendorID != f.VendorID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		matched = append(matched, cloneProposal(p))
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.AIAnalysis.Score != b.AIAnalysis.Score {
			return a.AIAnalysis.Score > b.AIAnalysis.Score
		}
		if !a.ReceivedAt.Equal(b.ReceivedAt) {
			return a.ReceivedAt.After(b.ReceivedAt)
		}
		return a.ID < b.ID
	})
	return page(matched, limit, offset), len(matched), nil
}

// emailTaken reports whether another vendor already uses email. Callers hold mu.
func (s *Store) emailTaken(email, exceptID string) bool {
	for id, v := range s.vendors {
		if id != exceptID && strings.EqualFold(v.Email, email) {
			return true
		}
	}
	return false
}

func sortNewestFirst(rfps []models.RFP) {
	sort.Slice(rfps, func(i, j int) bool {
		if !rfps[i].CreatedAt.Equal(rfps[j].CreatedAt) {
			return rfps[i].CreatedAt.After(rfps[j].CreatedAt)
		}
		return rfps[i].ID > rfps[j].ID
	})
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		return items
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func cloneVendor(v models.Vendor) models.Vendor {
	v.Category = append([]string(nil), v.Category...)
	return v
}

func cloneRFP(r models.RFP) models.RFP {
	r.AssignedVendors = append([]string{}, r.AssignedVendors...)
	r.Items = append([]models.RFPItem{}, r.Items...)
	return r
}

func cloneProposal(p models.Proposal) models.Proposal {
	p.RawAttachments = append([]models.Attachment{}, p.RawAttachments...)
	return p
}
