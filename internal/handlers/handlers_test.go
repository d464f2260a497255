package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"procurement/internal/ai"
	"procurement/internal/events"
	"procurement/internal/handlers"
	"procurement/internal/handlers/testutils"
	"procurement/internal/intake"
	"procurement/internal/memstore"
	"procurement/internal/proposals"
	"procurement/internal/rfps"
	"procurement/internal/vendors"
	"procurement/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type apiResponse struct {
	Success          bool               `json:"success"`
	Message          string             `json:"message"`
	Data             json.RawMessage    `json:"data"`
	Errors           []string           `json:"errors"`
	Error            string             `json:"error"`
	Count            *int               `json:"count"`
	Pagination       *models.Pagination `json:"pagination"`
	InvalidVendorIDs []string           `json:"invalidVendorIds"`
}

type stubAI struct{ health ai.Health }

func (s stubAI) HealthCheck(ctx context.Context) ai.Health { return s.health }

type server struct {
	router http.Handler
	store  *memstore.Store
	h      *handlers.Handler
}

func newServer(t *testing.T, production bool, checker handlers.AIChecker) *server {
	t.Helper()
	logger := zap.NewNop()
	store := memstore.New()
	bus := events.NewBus()

	rfpManager := rfps.NewManager(store, bus, logger)
	rfpManager.Subscribe(bus)
	proposalManager := proposals.NewManager(store, bus, nil, logger)

	h := handlers.NewHandler(handlers.Services{
		Vendors:   vendors.NewRegistry(store, logger),
		RFPs:      rfpManager,
		Proposals: proposalManager,
		Intake:    intake.NewAdapter(proposalManager, store, nil, logger),
		AI:        checker,
		Store:     store,
	}, logger, production)

	r := chi.NewRouter()
	h.Mount(r)
	return &server{router: r, store: store, h: h}
}

func (s *server) do(t *testing.T, method, path, body string) (int, apiResponse) {
	t.Helper()
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, testutils.JSONRequest(method, path, body))
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return rr.Code, resp
}

func decodeData[T any](t *testing.T, resp apiResponse) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

type idStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *server) createVendor(t *testing.T, email string) string {
	t.Helper()
	code, resp := s.do(t, http.MethodPost, "/api/vendors",
		`{"name":"Vendor `+email+`","email":"`+email+`","category":["IT Equipment"]}`)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	return decodeData[idStatus](t, resp).ID
}

func (s *server) createRFP(t *testing.T, vendorIDs ...string) string {
	t.Helper()
	ids, err := json.Marshal(vendorIDs)
	require.NoError(t, err)
	code, resp := s.do(t, http.MethodPost, "/api/rfps", `{
		"title": "Laptops for sales",
		"description": "Twenty laptops with 16GB RAM, delivery within a month",
		"budget": 50000,
		"deadline": "2025-03-31",
		"items": [{"name": "Laptop", "quantity": 20, "specifications": {"ram": "16GB"}}],
		"assignedVendors": `+string(ids)+`
	}`)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	rfp := decodeData[idStatus](t, resp)
	require.Equal(t, "draft", rfp.Status)
	return rfp.ID
}

func TestPingHandler(t *testing.T) {
	s := newServer(t, false, nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestVendorEndpoints(t *testing.T) {
	s := newServer(t, false, nil)
	id := s.createVendor(t, "sales@acme.com")

	code, resp := s.do(t, http.MethodPost, "/api/vendors", `{"name":"Acme Again","email":"SALES@acme.com"}`)
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "Vendor with this email already exists", resp.Message)
	require.Equal(t, id, decodeData[idStatus](t, resp).ID)

	code, resp = s.do(t, http.MethodPost, "/api/vendors", `{"name":"Bad","email":"bad-email"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.False(t, resp.Success)

	code, _ = s.do(t, http.MethodPost, "/api/vendors", `{"name":"Too Good","email":"good@acme.com","rating":6}`)
	require.Equal(t, http.StatusBadRequest, code)

	code, resp = s.do(t, http.MethodPut, "/api/vendors/"+id, `{"phone":"+14155550100","rating":5}`)
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, resp = s.do(t, http.MethodPatch, "/api/vendors/"+id+"/active", `{"isActive":false}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Vendor deactivated", resp.Message)

	code, resp = s.do(t, http.MethodGet, "/api/vendors", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 0, *resp.Count)

	code, resp = s.do(t, http.MethodGet, "/api/vendors?active=false&search=acme", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, *resp.Count)

	code, _ = s.do(t, http.MethodGet, "/api/vendors/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, code)
	code, resp = s.do(t, http.MethodGet, "/api/vendors/"+models.NewID(), "")
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "Vendor not found", resp.Message)
}

func TestRFPAndProposalFlow(t *testing.T) {
	s := newServer(t, false, nil)
	v1 := s.createVendor(t, "v1@acme.com")
	r1 := s.createRFP(t, v1)

	code, resp := s.do(t, http.MethodPatch, "/api/rfps/"+r1+"/status", `{"status":"in_progress"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Cannot change status from draft to in_progress", resp.Message)

	code, resp = s.do(t, http.MethodPatch, "/api/rfps/"+r1+"/status", `{"status":"sent"}`)
	require.Equal(t, http.StatusOK, code, resp.Message)
	require.Equal(t, "RFP status updated to sent", resp.Message)

	code, resp = s.do(t, http.MethodPost, "/api/proposals", `{"rfpId":"`+r1+`","vendorId":"`+v1+`"}`)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	proposal := decodeData[idStatus](t, resp)
	require.Equal(t, "pending", proposal.Status)

	code, resp = s.do(t, http.MethodPost, "/api/proposals", `{"rfpId":"`+r1+`","vendorId":"`+v1+`"}`)
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, proposal.ID, decodeData[idStatus](t, resp).ID)

	code, resp = s.do(t, http.MethodGet, "/api/rfps/"+r1, "")
	require.Equal(t, http.StatusOK, code)
	detail := decodeData[struct {
		Status    string     `json:"status"`
		Vendors   []idStatus `json:"vendors"`
		Proposals []idStatus `json:"proposals"`
	}](t, resp)
	require.Equal(t, "in_progress", detail.Status)
	require.Len(t, detail.Vendors, 1)
	require.Len(t, detail.Proposals, 1)

	code, _ = s.do(t, http.MethodPatch, "/api/rfps/"+r1+"/status", `{"status":"closed"}`)
	require.Equal(t, http.StatusOK, code)
	code, resp = s.do(t, http.MethodPatch, "/api/rfps/"+r1+"/status", `{"status":"sent"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Cannot change status from closed to sent", resp.Message)

	code, resp = s.do(t, http.MethodDelete, "/api/rfps/"+r1, "")
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Only draft RFPs can be deleted", resp.Message)
}

func TestSendRequiresVendors(t *testing.T) {
	s := newServer(t, false, nil)
	r := s.createRFP(t)

	code, resp := s.do(t, http.MethodPatch, "/api/rfps/"+r+"/status", `{"status":"sent"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Cannot send RFP without assigned vendors", resp.Message)

	code, _ = s.do(t, http.MethodPatch, "/api/rfps/"+r+"/status", `{"status":"archived"}`)
	require.Equal(t, http.StatusBadRequest, code)

	code, resp = s.do(t, http.MethodDelete, "/api/rfps/"+r, "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "RFP deleted successfully", resp.Message)

	code, _ = s.do(t, http.MethodGet, "/api/rfps/"+r, "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestCreateRFPRejectsUnknownVendors(t *testing.T) {
	s := newServer(t, false, nil)
	missing := models.NewID()

	code, resp := s.do(t, http.MethodPost, "/api/rfps", `{
		"title": "Office chairs",
		"description": "Fifty ergonomic chairs for the new office floor",
		"assignedVendors": ["`+missing+`"]
	}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Some vendor IDs are invalid or inactive", resp.Message)
	require.Equal(t, []string{missing}, resp.InvalidVendorIDs)

	code, resp = s.do(t, http.MethodPost, "/api/rfps", `{"title":"Desk"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Title and description are required", resp.Message)

	code, resp = s.do(t, http.MethodPost, "/api/rfps", `{"title":"Desk","description":"too short"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Validation error", resp.Message)
	require.NotEmpty(t, resp.Errors)
}

func TestListRFPsPagination(t *testing.T) {
	s := newServer(t, false, nil)
	for i := 0; i < 3; i++ {
		s.createRFP(t)
	}

	code, resp := s.do(t, http.MethodGet, "/api/rfps?status=all&page=2&limit=2", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, models.Pagination{Page: 2, Limit: 2, Total: 3, Pages: 2}, *resp.Pagination)
	require.Len(t, decodeData[[]idStatus](t, resp), 1)

	code, resp = s.do(t, http.MethodGet, "/api/rfps?status=sent", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 0, resp.Pagination.Total)
	require.Equal(t, "[]", string(resp.Data))
}

func TestEmailWebhook(t *testing.T) {
	s := newServer(t, false, nil)

	code, resp := s.do(t, http.MethodPost, "/api/email-webhook", `{"subject":"hi"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Missing sender email (from field)", resp.Message)

	code, resp = s.do(t, http.MethodPost, "/api/email-webhook", `{"from":"Ghost@Example.com","text":"hi"}`)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "Vendor not found or inactive for email: ghost@example.com", resp.Message)

	v1 := s.createVendor(t, "v1@acme.com")
	code, resp = s.do(t, http.MethodPost, "/api/email-webhook", `{"from":"v1@acme.com","text":"hi"}`)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "No active RFPs found for this vendor", resp.Message)

	r1 := s.createRFP(t, v1)
	code, _ = s.do(t, http.MethodPatch, "/api/rfps/"+r1+"/status", `{"status":"sent"}`)
	require.Equal(t, http.StatusOK, code)

	body := `{"from":" V1@acme.com ","subject":"Quote","text":"Price 42000 USD","attachments":[{"filename":"quote.pdf"}]}`
	code, resp = s.do(t, http.MethodPost, "/api/email-webhook", body)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	require.Equal(t, "Proposal created from email", resp.Message)
	created := decodeData[idStatus](t, resp)
	require.Equal(t, "received", created.Status)

	code, resp = s.do(t, http.MethodPost, "/api/email-webhook", body)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Proposal updated from email", resp.Message)
	require.Equal(t, created.ID, decodeData[idStatus](t, resp).ID)

	code, resp = s.do(t, http.MethodGet, "/api/proposals?rfpId="+r1+"&status=all", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, resp.Pagination.Total)

	code, resp = s.do(t, http.MethodGet, "/api/proposals/"+created.ID, "")
	require.Equal(t, http.StatusOK, code)
	full := decodeData[struct {
		RawEmailContent string `json:"rawEmailContent"`
		RFP             struct {
			Status string `json:"status"`
		} `json:"rfp"`
	}](t, resp)
	require.Equal(t, "Price 42000 USD", full.RawEmailContent)
	require.Equal(t, "in_progress", full.RFP.Status)
}

func TestProposalUpdates(t *testing.T) {
	s := newServer(t, false, nil)
	v1 := s.createVendor(t, "v1@acme.com")
	r1 := s.createRFP(t, v1)
	_, resp := s.do(t, http.MethodPost, "/api/proposals", `{"rfpId":"`+r1+`","vendorId":"`+v1+`","rawEmailContent":"Offer"}`)
	id := decodeData[idStatus](t, resp).ID

	code, resp := s.do(t, http.MethodPut, "/api/proposals/"+id, `{"extractedData":{"totalPrice":31000,"deliveryDays":14}}`)
	require.Equal(t, http.StatusOK, code, resp.Message)
	updated := decodeData[struct {
		ExtractedData struct {
			TotalPrice   float64 `json:"totalPrice"`
			DeliveryDays int     `json:"deliveryDays"`
			Warranty     string  `json:"warranty"`
		} `json:"extractedData"`
		AIAnalysis struct {
			LastUpdated *time.Time `json:"lastUpdated"`
		} `json:"aiAnalysis"`
	}](t, resp)
	require.Equal(t, 31000.0, updated.ExtractedData.TotalPrice)
	require.Equal(t, 14, updated.ExtractedData.DeliveryDays)
	require.Equal(t, "Not specified", updated.ExtractedData.Warranty)
	require.NotNil(t, updated.AIAnalysis.LastUpdated)

	code, resp = s.do(t, http.MethodPatch, "/api/proposals/"+id+"/status", `{"status":"evaluated","evaluatorNotes":"Strong offer"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Proposal status updated to evaluated", resp.Message)
	evaluated := decodeData[struct {
		EvaluatedAt    *time.Time `json:"evaluatedAt"`
		EvaluatorNotes string     `json:"evaluatorNotes"`
	}](t, resp)
	require.NotNil(t, evaluated.EvaluatedAt)
	require.Equal(t, "Strong offer", evaluated.EvaluatorNotes)

	code, resp = s.do(t, http.MethodPatch, "/api/proposals/"+id+"/status", `{"status":"won"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Valid status is required: pending, received, evaluated, or rejected", resp.Message)

	code, resp = s.do(t, http.MethodPost, "/api/proposals/"+id+"/analyze", "")
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, "AI analysis is not configured", resp.Message)
}

func TestMalformedBodies(t *testing.T) {
	s := newServer(t, false, nil)

	code, resp := s.do(t, http.MethodPost, "/api/vendors", `{"name":`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Invalid JSON format", resp.Message)

	big := `{"name":"` + strings.Repeat("a", 2<<20) + `"}`
	code, resp = s.do(t, http.MethodPost, "/api/vendors", big)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Request body too large", resp.Message)
}

func TestHealthHidesCauseInProduction(t *testing.T) {
	dev := newServer(t, false, nil)
	code, resp := dev.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, code)
	require.True(t, resp.Success)

	dev.store.PingErr = errors.New("connection refused")
	code, resp = dev.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, "Database connection failed", resp.Message)
	require.Equal(t, "connection refused", resp.Error)

	prod := newServer(t, true, nil)
	prod.store.PingErr = errors.New("connection refused")
	code, resp = prod.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusInternalServerError, code)
	require.Empty(t, resp.Error)
}

func TestAIHealthHandler(t *testing.T) {
	code, _ := newServer(t, false, nil).do(t, http.MethodGet, "/api/ai/health", "")
	require.Equal(t, http.StatusServiceUnavailable, code)

	healthy := stubAI{health: ai.Health{Healthy: true, Model: "stub", Message: "AI service is working"}}
	code, resp := newServer(t, false, healthy).do(t, http.MethodGet, "/api/ai/health", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "stub", decodeData[ai.Health](t, resp).Model)

	broken := stubAI{health: ai.Health{Model: "stub", Message: "AI service error: timeout"}}
	code, resp = newServer(t, false, broken).do(t, http.MethodGet, "/api/ai/health", "")
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, "AI service health check failed", resp.Message)
}

func TestGetVendorHandlerWithURLParams(t *testing.T) {
	s := newServer(t, false, nil)
	id := s.createVendor(t, "direct@acme.com")

	req := httptest.NewRequest(http.MethodGet, "/api/vendors/"+id, nil)
	req = testutils.WithChiURLParams(req, map[string]string{"id": id})
	rr := httptest.NewRecorder()
	s.h.GetVendorHandler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, id, decodeData[idStatus](t, resp).ID)
}
