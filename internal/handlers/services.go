package handlers

import (
	"context"

	"procurement/internal/ai"
	"procurement/internal/intake"
	"procurement/models"
)

type VendorService interface {
	Register(ctx context.Context, in models.VendorInput) (*models.Vendor, error)
	Update(ctx context.Context, id string, p models.VendorPatch) (*models.Vendor, error)
	SetActive(ctx context.Context, id string, active bool) (*models.Vendor, error)
	List(ctx context.Context, f models.VendorFilter) ([]models.Vendor, error)
	Get(ctx context.Context, id string) (*models.Vendor, error)
}

type RFPService interface {
	Create(ctx context.Context, in models.RFPInput) (*models.RFPView, error)
	Update(ctx context.Context, id string, p models.RFPPatch) (*models.RFPView, error)
	Delete(ctx context.Context, id string) error
	ChangeStatus(ctx context.Context, id string, to models.RFPStatus) (*models.RFPView, error)
	Get(ctx context.Context, id string, withDetails bool) (*models.RFPView, error)
	List(ctx context.Context, f models.RFPFilter, page, limit int) ([]models.RFPView, models.Pagination, error)
}

type ProposalService interface {
	Create(ctx context.Context, in models.ProposalInput) (*models.ProposalView, error)
	UpdateFields(ctx context.Context, id string, p models.ProposalPatch) (*models.ProposalView, error)
	ChangeStatus(ctx context.Context, id string, status models.ProposalStatus, notes string) (*models.ProposalView, error)
	Analyze(ctx context.Context, id string) (*models.ProposalView, error)
	Get(ctx context.Context, id string) (*models.ProposalView, error)
	List(ctx context.Context, f models.ProposalFilter, page, limit int) ([]models.ProposalView, models.Pagination, error)
}

type EmailReceiver interface {
	Receive(ctx context.Context, e intake.Email) (*models.ProposalView, bool, error)
}

type AIChecker interface {
	HealthCheck(ctx context.Context) ai.Health
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups everything the handlers call into. AI may be nil.
type Services struct {
	Vendors   VendorService
	RFPs      RFPService
	Proposals ProposalService
	Intake    EmailReceiver
	AI        AIChecker
	Store     Pinger
}
