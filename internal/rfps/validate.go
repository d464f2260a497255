package rfps

import (
	"fmt"
	"strings"
	"time"

	"procurement/internal/apperr"
	"procurement/models"
)

// transitions lists the statuses reachable from each status.
var transitions = map[models.RFPStatus][]models.RFPStatus{
	models.RFPDraft:      {models.RFPSent, models.RFPClosed},
	models.RFPSent:       {models.RFPInProgress, models.RFPClosed},
	models.RFPInProgress: {models.RFPClosed},
	models.RFPClosed:     {},
}

func CanTransition(from, to models.RFPStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

var deadlineLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperr.Validation("Invalid deadline format, expected YYYY-MM-DD or RFC 3339")
}

// normalizeTerms fills blank terms with their defaults.
func normalizeTerms(t *models.RFPTerms) models.RFPTerms {
	def := models.DefaultTerms()
	if t == nil {
		return def
	}
	out := models.RFPTerms{
		Payment:  strings.TrimSpace(t.Payment),
		Warranty: strings.TrimSpace(t.Warranty),
		Delivery: strings.TrimSpace(t.Delivery),
		Other:    t.Other,
	}
	if out.Payment == "" {
		out.Payment = def.Payment
	}
	if out.Warranty == "" {
		out.Warranty = def.Warranty
	}
	if out.Delivery == "" {
		out.Delivery = def.Delivery
	}
	if out.Other == nil {
		out.Other = models.Mixed{}
	}
	return out
}

func normalizeItems(items []models.RFPItem) []models.RFPItem {
	out := make([]models.RFPItem, 0, len(items))
	for _, it := range items {
		it.Name = strings.TrimSpace(it.Name)
		if it.Specifications == nil {
			it.Specifications = models.Mixed{}
		}
		out = append(out, it)
	}
	return out
}

func normalizeStructuredData(sd *models.StructuredData) models.StructuredData {
	if sd == nil {
		return models.DefaultStructuredData()
	}
	out := *sd
	if out.ExtractedItems == nil {
		out.ExtractedItems = []models.RFPItem{}
	}
	out.ExtractedItems = normalizeItems(out.ExtractedItems)
	out.ExtractedTerms = normalizeTerms(&out.ExtractedTerms)
	if out.OtherDetails == nil {
		out.OtherDetails = models.Mixed{}
	}
	return out
}

// dedupe collapses repeated IDs, keeping first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func validate(r *models.RFP) error {
	var errs []string
	if n := len([]rune(r.Title)); n < 5 {
		errs = append(errs, "Title must be at least 5 characters")
	} else if n > 200 {
		errs = append(errs, "Title cannot exceed 200 characters")
	}
	if len([]rune(r.Description)) < 20 {
		errs = append(errs, "Description must be at least 20 characters")
	}
	if r.Budget != nil && *r.Budget < 0 {
		errs = append(errs, "Budget cannot be negative")
	}
	if b := r.StructuredData.Budget; b != nil && *b < 0 {
		errs = append(errs, "Budget cannot be negative")
	}
	errs = append(errs, itemErrors("Item", r.Items)...)
	errs = append(errs, itemErrors("Extracted item", r.StructuredData.ExtractedItems)...)
	if len(errs) > 0 {
		return apperr.Invalid(errs)
	}
	return nil
}

func itemErrors(label string, items []models.RFPItem) []string {
	var errs []string
	for i, it := range items {
		if it.Name == "" {
			errs = append(errs, fmt.Sprintf("%s %d: name is required", label, i+1))
		}
		if it.Quantity < 1 {
			errs = append(errs, fmt.Sprintf("%s %d: quantity must be at least 1", label, i+1))
		}
	}
	return errs
}
