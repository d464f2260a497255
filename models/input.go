package models

import (
	"bytes"
	"encoding/json"
)

// Field is an optional patch value that distinguishes "absent" from an
// explicit null.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func SetField[T any](v T) Field[T] { return Field[T]{Set: true, Value: v} }

func NullField[T any]() Field[T] { return Field[T]{Set: true, Null: true} }

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}

type VendorInput struct {
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	ContactPerson string   `json:"contactPerson"`
	Phone         string   `json:"phone"`
	Category      []string `json:"category"`
	Notes         string   `json:"notes"`
	Rating        *int     `json:"rating"`
	IsActive      *bool    `json:"isActive"`
}

// VendorPatch lists every updatable vendor field. Nil means unchanged.
type VendorPatch struct {
	Name          *string  `json:"name"`
	Email         *string  `json:"email"`
	ContactPerson *string  `json:"contactPerson"`
	Phone         *string  `json:"phone"`
	Category      []string `json:"category"`
	Notes         *string  `json:"notes"`
	Rating        *int     `json:"rating"`
	IsActive      *bool    `json:"isActive"`
}

type VendorFilter struct {
	ActiveOnly bool
	Category   string
	Search     string
}

type RFPInput struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	StructuredData  *StructuredData `json:"structuredData"`
	Budget          *float64        `json:"budget"`
	Deadline        *string         `json:"deadline"`
	Items           []RFPItem       `json:"items"`
	Terms           *RFPTerms       `json:"terms"`
	AssignedVendors []string        `json:"assignedVendors"`
	CreatedBy       string          `json:"createdBy"`
}

// RFPPatch lists every updatable RFP field. Status is deliberately absent:
// it only moves through the status transition operation.
type RFPPatch struct {
	Title           *string         `json:"title"`
	Description     *string         `json:"description"`
	StructuredData  *StructuredData `json:"structuredData"`
	Budget          Field[float64]  `json:"budget"`
	Deadline        Field[string]   `json:"deadline"`
	Items           *[]RFPItem      `json:"items"`
	Terms           *RFPTerms       `json:"terms"`
	AssignedVendors *[]string       `json:"assignedVendors"`
}

type RFPFilter struct {
	Status RFPStatus
	Search string
}

// ExtractedDataInput is the client-supplied form of ExtractedData; omitted
// fields take their defaults.
type ExtractedDataInput struct {
	TotalPrice      *float64 `json:"totalPrice"`
	DeliveryDays    *int     `json:"deliveryDays"`
	Warranty        *string  `json:"warranty"`
	PaymentTerms    *string  `json:"paymentTerms"`
	Specifications  Mixed    `json:"specifications"`
	Notes           *string  `json:"notes"`
	ComplianceScore *int     `json:"complianceScore"`
}

func (in ExtractedDataInput) Empty() bool {
	return in.TotalPrice == nil && in.DeliveryDays == nil && in.Warranty == nil &&
		in.PaymentTerms == nil && len(in.Specifications) == 0 && in.Notes == nil &&
		in.ComplianceScore == nil
}

func (in ExtractedDataInput) Resolve() ExtractedData {
	out := DefaultExtractedData()
	if in.TotalPrice != nil {
		out.TotalPrice = *in.TotalPrice
	}
	if in.DeliveryDays != nil {
		out.DeliveryDays = *in.DeliveryDays
	}
	if in.Warranty != nil {
		out.Warranty = *in.Warranty
	}
	if in.PaymentTerms != nil {
		out.PaymentTerms = *in.PaymentTerms
	}
	if in.Specifications != nil {
		out.Specifications = in.Specifications
	}
	if in.Notes != nil {
		out.Notes = *in.Notes
	}
	if in.ComplianceScore != nil {
		out.ComplianceScore = *in.ComplianceScore
	}
	return out
}

type ProposalInput struct {
	RFPID           string              `json:"rfpId"`
	VendorID        string              `json:"vendorId"`
	ExtractedData   *ExtractedDataInput `json:"extractedData"`
	AIAnalysis      *AIAnalysis         `json:"aiAnalysis"`
	RawEmailContent string              `json:"rawEmailContent"`
	RawAttachments  []Attachment        `json:"rawAttachments"`
	EvaluatorNotes  string              `json:"evaluatorNotes"`
}

type ProposalPatch struct {
	Status         *ProposalStatus     `json:"status"`
	ExtractedData  *ExtractedDataInput `json:"extractedData"`
	AIAnalysis     *AIAnalysis         `json:"aiAnalysis"`
	EvaluatorNotes *string             `json:"evaluatorNotes"`
}

type ProposalFilter struct {
	RFPID    string
	VendorID string
	Status   ProposalStatus
}
