package models

import "time"

type (
	RFPStatus      string
	ProposalStatus string
)

const (
	RFPDraft      RFPStatus = "draft"
	RFPSent       RFPStatus = "sent"
	RFPInProgress RFPStatus = "in_progress"
	RFPClosed     RFPStatus = "closed"

	ProposalPending   ProposalStatus = "pending"
	ProposalReceived  ProposalStatus = "received"
	ProposalEvaluated ProposalStatus = "evaluated"
	ProposalRejected  ProposalStatus = "rejected"
)

// RFPStatuses lists every RFP status in lifecycle order.
var RFPStatuses = []RFPStatus{RFPDraft, RFPSent, RFPInProgress, RFPClosed}

var ProposalStatuses = []ProposalStatus{ProposalPending, ProposalReceived, ProposalEvaluated, ProposalRejected}

func (s RFPStatus) Valid() bool {
	for _, v := range RFPStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s ProposalStatus) Valid() bool {
	for _, v := range ProposalStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// VendorCategories is the fixed set of tags a vendor may carry.
var VendorCategories = []string{
	"IT Equipment",
	"Office Supplies",
	"Software",
	"Services",
	"Furniture",
	"Consulting",
	"Other",
}

const (
	DefaultCategory  = "Other"
	DefaultRating    = 3
	DefaultCreatedBy = "admin@example.com"

	DefaultWarranty     = "Not specified"
	DefaultPaymentTerms = "Not specified"
	DefaultDeliveryDays = 30

	ManualProposalContent = "Manually created proposal"
	EmptyEmailContent     = "No content"
)

// DefaultTerms returns the terms every RFP starts with when none are given.
func DefaultTerms() RFPTerms {
	return RFPTerms{
		Payment:  "Net 30",
		Warranty: "1 year",
		Delivery: "Within 30 days",
		Other:    Mixed{},
	}
}

func IsVendorCategory(c string) bool {
	for _, v := range VendorCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Vendor entity
type Vendor struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	ContactPerson string    `json:"contactPerson,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Category      []string  `json:"category"`
	Notes         string    `json:"notes,omitempty"`
	Rating        int       `json:"rating"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// VendorRef is the populated view of a vendor embedded in RFPs and proposals.
type VendorRef struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	ContactPerson string   `json:"contactPerson,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Category      []string `json:"category,omitempty"`
	Rating        int      `json:"rating,omitempty"`
}

func (v *Vendor) Ref() VendorRef {
	return VendorRef{
		ID:            v.ID,
		Name:          v.Name,
		Email:         v.Email,
		ContactPerson: v.ContactPerson,
		Phone:         v.Phone,
		Category:      v.Category,
		Rating:        v.Rating,
	}
}

type RFPItem struct {
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	Specifications Mixed  `json:"specifications"`
}

type RFPTerms struct {
	Payment  string `json:"payment"`
	Warranty string `json:"warranty"`
	Delivery string `json:"delivery"`
	Other    Mixed  `json:"other"`
}

// StructuredData holds the AI-parsed reading of the RFP description. It is kept
// apart from the authoritative Items/Terms and is never promoted into them.
type StructuredData struct {
	ExtractedItems []RFPItem `json:"extractedItems"`
	ExtractedTerms RFPTerms  `json:"extractedTerms"`
	Budget         *float64  `json:"budget,omitempty"`
	Deadline       string    `json:"deadline,omitempty"`
	OtherDetails   Mixed     `json:"otherDetails"`
}

func DefaultStructuredData() StructuredData {
	return StructuredData{
		ExtractedItems: []RFPItem{},
		ExtractedTerms: DefaultTerms(),
		OtherDetails:   Mixed{},
	}
}

// RFP entity
type RFP struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	StructuredData  StructuredData `json:"structuredData"`
	Budget          *float64       `json:"budget,omitempty"`
	Deadline        *time.Time     `json:"deadline,omitempty"`
	Items           []RFPItem      `json:"items"`
	Terms           RFPTerms       `json:"terms"`
	Status          RFPStatus      `json:"status"`
	CreatedBy       string         `json:"createdBy"`
	AssignedVendors []string       `json:"assignedVendors"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// IsAssigned reports whether vendorID is in the RFP's assigned vendor set.
func (r *RFP) IsAssigned(vendorID string) bool {
	for _, id := range r.AssignedVendors {
		if id == vendorID {
			return true
		}
	}
	return false
}

type RFPRef struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Status      RFPStatus  `json:"status"`
	Description string     `json:"description,omitempty"`
	Budget      *float64   `json:"budget,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Items       []RFPItem  `json:"items,omitempty"`
	Terms       *RFPTerms  `json:"terms,omitempty"`
}

func (r *RFP) Ref() RFPRef {
	return RFPRef{ID: r.ID, Title: r.Title, Status: r.Status}
}

// DetailRef carries the RFP fields needed to evaluate a proposal against it.
func (r *RFP) DetailRef() RFPRef {
	terms := r.Terms
	return RFPRef{
		ID:          r.ID,
		Title:       r.Title,
		Status:      r.Status,
		Description: r.Description,
		Budget:      r.Budget,
		Deadline:    r.Deadline,
		Items:       r.Items,
		Terms:       &terms,
	}
}

// RFPView is an RFP with its references resolved.
type RFPView struct {
	RFP
	VendorCount int            `json:"vendorCount"`
	Vendors     []VendorRef    `json:"vendors"`
	Proposals   []ProposalView `json:"proposals,omitempty"`
}

type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
}

type ExtractedData struct {
	TotalPrice      float64 `json:"totalPrice"`
	DeliveryDays    int     `json:"deliveryDays"`
	Warranty        string  `json:"warranty"`
	PaymentTerms    string  `json:"paymentTerms"`
	Specifications  Mixed   `json:"specifications"`
	Notes           string  `json:"notes"`
	ComplianceScore int     `json:"complianceScore"`
}

func DefaultExtractedData() ExtractedData {
	return ExtractedData{
		DeliveryDays:   DefaultDeliveryDays,
		Warranty:       DefaultWarranty,
		PaymentTerms:   DefaultPaymentTerms,
		Specifications: Mixed{},
	}
}

// AIAnalysis is the opaque payload produced by the AI collaborator.
type AIAnalysis struct {
	Score           int        `json:"score"`
	Summary         string     `json:"summary"`
	Strengths       []string   `json:"strengths"`
	Weaknesses      []string   `json:"weaknesses"`
	Recommendations []string   `json:"recommendations"`
	ComparisonData  Mixed      `json:"comparisonData"`
	LastUpdated     *time.Time `json:"lastUpdated,omitempty"`
}

func DefaultAIAnalysis() AIAnalysis {
	return AIAnalysis{
		Strengths:       []string{},
		Weaknesses:      []string{},
		Recommendations: []string{},
		ComparisonData:  Mixed{},
	}
}

// Proposal entity. At most one exists per (RFPID, VendorID).
type Proposal struct {
	ID              string         `json:"id"`
	RFPID           string         `json:"rfpId"`
	VendorID        string         `json:"vendorId"`
	Status          ProposalStatus `json:"status"`
	RawEmailContent string         `json:"rawEmailContent,omitempty"`
	RawAttachments  []Attachment   `json:"rawAttachments"`
	ExtractedData   ExtractedData  `json:"extractedData"`
	AIAnalysis      AIAnalysis     `json:"aiAnalysis"`
	ReceivedAt      time.Time      `json:"receivedAt"`
	EvaluatedAt     *time.Time     `json:"evaluatedAt,omitempty"`
	EvaluatorNotes  string         `json:"evaluatorNotes,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

type ProposalView struct {
	Proposal
	Vendor *VendorRef `json:"vendor,omitempty"`
	RFP    *RFPRef    `json:"rfp,omitempty"`
}

// Pagination describes a page of a list result.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// Offset returns the number of rows to skip for the page.
func (p Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}
