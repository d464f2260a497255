package db

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"procurement/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	require.Nil(t, translate(nil))
	require.ErrorIs(t, translate(sql.ErrNoRows), ErrNotFound)
	require.ErrorIs(t, translate(fmt.Errorf("scan: %w", sql.ErrNoRows)), ErrNotFound)

	err := translate(&pq.Error{Code: "23505", Constraint: "proposal_rfp_vendor_key"})
	require.ErrorIs(t, err, ErrUniqueViolation)
	require.Contains(t, err.Error(), "proposal_rfp_vendor_key")

	other := &pq.Error{Code: "23503"}
	require.Equal(t, other, translate(other))

	plain := errors.New("connection reset")
	require.Equal(t, plain, translate(plain))
}

func TestWhereBuilder(t *testing.T) {
	var w whereBuilder
	require.Equal(t, "", w.String())

	w.add("status = " + w.arg("sent"))
	p := w.arg(containsPattern("laptop"))
	w.add(fmt.Sprintf("(title ILIKE %[1]s OR description ILIKE %[1]s)", p))

	require.Equal(t, " WHERE status = $1 AND (title ILIKE $2 OR description ILIKE $2)", w.String())
	require.Equal(t, []any{"sent", "%laptop%"}, w.args)
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
	require.Equal(t, `%50\%\_off%`, containsPattern("50%_off"))
	require.Equal(t, `%a\\b%`, containsPattern(`a\b`))
}

func TestRFPRowConversion(t *testing.T) {
	budget := 5000.0
	deadline := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	in := &models.RFP{
		ID:             "6f1d2c3b-0000-4000-8000-000000000001",
		Title:          "Laptops for the sales team",
		Description:    "Twenty laptops with 16GB RAM and a three year warranty.",
		StructuredData: models.DefaultStructuredData(),
		Budget:         &budget,
		Deadline:       &deadline,
		Items: []models.RFPItem{{
			Name:           "Laptop",
			Quantity:       20,
			Specifications: models.Mixed{"ram": models.String("16GB")},
		}},
		Terms:     models.DefaultTerms(),
		Status:    models.RFPDraft,
		CreatedBy: models.DefaultCreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	row, err := newRFPRow(in)
	require.NoError(t, err)
	require.True(t, row.Budget.Valid)
	require.True(t, row.Deadline.Valid)

	out, err := row.model()
	require.NoError(t, err)
	require.Equal(t, in.Title, out.Title)
	require.Equal(t, budget, *out.Budget)
	require.True(t, deadline.Equal(*out.Deadline))
	require.Equal(t, in.Items, out.Items)
	require.Equal(t, in.Terms, out.Terms)
	require.Empty(t, out.AssignedVendors)
}

func TestRFPRowWithoutOptionalFields(t *testing.T) {
	row, err := newRFPRow(&models.RFP{ID: "x", Terms: models.DefaultTerms(), StructuredData: models.DefaultStructuredData()})
	require.NoError(t, err)
	require.False(t, row.Budget.Valid)
	require.False(t, row.Deadline.Valid)
	require.JSONEq(t, `[]`, string(row.Items))
}

func TestProposalRowConversion(t *testing.T) {
	evaluated := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	in := &models.Proposal{
		ID:              "p1",
		RFPID:           "r1",
		VendorID:        "v1",
		Status:          models.ProposalEvaluated,
		RawEmailContent: "We can deliver in 14 days.",
		ExtractedData:   models.DefaultExtractedData(),
		AIAnalysis:      models.DefaultAIAnalysis(),
		EvaluatedAt:     &evaluated,
	}
	in.AIAnalysis.Score = 82

	row, err := newProposalRow(in)
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(row.RawAttachments))

	out, err := row.model()
	require.NoError(t, err)
	require.Equal(t, 82, out.AIAnalysis.Score)
	require.Equal(t, models.DefaultWarranty, out.ExtractedData.Warranty)
	require.True(t, evaluated.Equal(*out.EvaluatedAt))
	require.Empty(t, out.RawAttachments)
}
