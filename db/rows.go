package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"procurement/models"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

const vendorColumns = `id, name, email, contact_person, phone, category, notes, rating, is_active, created_at, updated_at`

type vendorRow struct {
	ID            string         `db:"id"`
	Name          string         `db:"name"`
	Email         string         `db:"email"`
	ContactPerson string         `db:"contact_person"`
	Phone         string         `db:"phone"`
	Category      pq.StringArray `db:"category"`
	Notes         string         `db:"notes"`
	Rating        int            `db:"rating"`
	IsActive      bool           `db:"is_active"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r *vendorRow) model() *models.Vendor {
	return &models.Vendor{
		ID:            r.ID,
		Name:          r.Name,
		Email:         r.Email,
		ContactPerson: r.ContactPerson,
		Phone:         r.Phone,
		Category:      []string(r.Category),
		Notes:         r.Notes,
		Rating:        r.Rating,
		IsActive:      r.IsActive,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

const rfpColumns = `id, title, description, structured_data, budget, deadline, items, terms, status, created_by, created_at, updated_at`

type rfpRow struct {
	ID             string          `db:"id"`
	Title          string          `db:"title"`
	Description    string          `db:"description"`
	StructuredData types.JSONText  `db:"structured_data"`
	Budget         sql.NullFloat64 `db:"budget"`
	Deadline       sql.NullTime    `db:"deadline"`
	Items          types.JSONText  `db:"items"`
	Terms          types.JSONText  `db:"terms"`
	Status         string          `db:"status"`
	CreatedBy      string          `db:"created_by"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func newRFPRow(r *models.RFP) (*rfpRow, error) {
	row := &rfpRow{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Status:      string(r.Status),
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Budget != nil {
		row.Budget = sql.NullFloat64{Float64: *r.Budget, Valid: true}
	}
	if r.Deadline != nil {
		row.Deadline = sql.NullTime{Time: *r.Deadline, Valid: true}
	}
	var err error
	if row.StructuredData, err = marshalJSON(r.StructuredData); err != nil {
		return nil, fmt.Errorf("encode structured data: %w", err)
	}
	items := r.Items
	if items == nil {
		items = []models.RFPItem{}
	}
	if row.Items, err = marshalJSON(items); err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	if row.Terms, err = marshalJSON(r.Terms); err != nil {
		return nil, fmt.Errorf("encode terms: %w", err)
	}
	return row, nil
}

func (r *rfpRow) model() (*models.RFP, error) {
	out := &models.RFP{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Status:          models.RFPStatus(r.Status),
		CreatedBy:       r.CreatedBy,
		AssignedVendors: []string{},
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.Budget.Valid {
		b := r.Budget.Float64
		out.Budget = &b
	}
	if r.Deadline.Valid {
		d := r.Deadline.Time
		out.Deadline = &d
	}
	if err := r.StructuredData.Unmarshal(&out.StructuredData); err != nil {
		return nil, fmt.Errorf("decode structured data of rfp %s: %w", r.ID, err)
	}
	if err := r.Items.Unmarshal(&out.Items); err != nil {
		return nil, fmt.Errorf("decode items of rfp %s: %w", r.ID, err)
	}
	if err := r.Terms.Unmarshal(&out.Terms); err != nil {
		return nil, fmt.Errorf("decode terms of rfp %s: %w", r.ID, err)
	}
	return out, nil
}

const proposalColumns = `id, rfp_id, vendor_id, status, raw_email_content, raw_attachments, extracted_data, ai_analysis, received_at, evaluated_at, evaluator_notes, created_at, updated_at`

type proposalRow struct {
	ID              string         `db:"id"`
	RFPID           string         `db:"rfp_id"`
	VendorID        string         `db:"vendor_id"`
	Status          string         `db:"status"`
	RawEmailContent string         `db:"raw_email_content"`
	RawAttachments  types.JSONText `db:"raw_attachments"`
	ExtractedData   types.JSONText `db:"extracted_data"`
	AIAnalysis      types.JSONText `db:"ai_analysis"`
	ReceivedAt      time.Time      `db:"received_at"`
	EvaluatedAt     sql.NullTime   `db:"evaluated_at"`
	EvaluatorNotes  string         `db:"evaluator_notes"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func newProposalRow(p *models.Proposal) (*proposalRow, error) {
	row := &proposalRow{
		ID:              p.ID,
		RFPID:           p.RFPID,
		VendorID:        p.VendorID,
		Status:          string(p.Status),
		RawEmailContent: p.RawEmailContent,
		ReceivedAt:      p.ReceivedAt,
		EvaluatorNotes:  p.EvaluatorNotes,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if p.EvaluatedAt != nil {
		row.EvaluatedAt = sql.NullTime{Time: *p.EvaluatedAt, Valid: true}
	}
	attachments := p.RawAttachments
	if attachments == nil {
		attachments = []models.Attachment{}
	}
	var err error
	if row.RawAttachments, err = marshalJSON(attachments); err != nil {
		return nil, fmt.Errorf("encode attachments: %w", err)
	}
	if row.ExtractedData, err = marshalJSON(p.ExtractedData); err != nil {
		return nil, fmt.Errorf("encode extracted data: %w", err)
	}
	if row.AIAnalysis, err = marshalJSON(p.AIAnalysis); err != nil {
		return nil, fmt.Errorf("encode ai analysis: %w", err)
	}
	return row, nil
}

func (r *proposalRow) model() (*models.Proposal, error) {
	out := &models.Proposal{
		ID:              r.ID,
		RFPID:           r.RFPID,
		VendorID:        r.VendorID,
		Status:          models.ProposalStatus(r.Status),
		RawEmailContent: r.RawEmailContent,
		ReceivedAt:      r.ReceivedAt,
		EvaluatorNotes:  r.EvaluatorNotes,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.EvaluatedAt.Valid {
		t := r.EvaluatedAt.Time
		out.EvaluatedAt = &t
	}
	if err := r.RawAttachments.Unmarshal(&out.RawAttachments); err != nil {
		return nil, fmt.Errorf("decode attachments of proposal %s: %w", r.ID, err)
	}
	if err := r.ExtractedData.Unmarshal(&out.ExtractedData); err != nil {
		return nil, fmt.Errorf("decode extracted data of proposal %s: %w", r.ID, err)
	}
	if err := r.AIAnalysis.Unmarshal(&out.AIAnalysis); err != nil {
		return nil, fmt.Errorf("decode ai analysis of proposal %s: %w", r.ID, err)
	}
	return out, nil
}

func marshalJSON(v any) (types.JSONText, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return types.JSONText(b), nil
}
