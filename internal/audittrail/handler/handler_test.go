package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"chainaudit/internal/audittrail/handler/mocks"
	"chainaudit/internal/audittrail/models"
	"chainaudit/internal/audittrail/service"
	id "chainaudit/pkg/domain"
	dErrors "chainaudit/pkg/domain-errors"
	"chainaudit/pkg/platform/middleware/requestid"
	"chainaudit/pkg/testutil"
)

// =============================================================================
// Handler Test Suite
// =============================================================================
// Justification for unit tests: The handler maps service outcomes and error
// codes onto HTTP statuses. The service is mocked; the full router is used so
// middleware and routing are exercised too.

type HandlerSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	factomizer  *mocks.MockFactomizer
	provisioner *mocks.MockIdentityProvisioner
	router      http.Handler
	healthErr   error
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.factomizer = mocks.NewMockFactomizer(s.ctrl)
	s.provisioner = mocks.NewMockIdentityProvisioner(s.ctrl)
	s.healthErr = nil

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.factomizer, s.provisioner, logger)
	checks := map[string]HealthCheck{
		"postgres": func(context.Context) error { return s.healthErr },
	}
	s.router = NewRouter(h, prometheus.NewRegistry(), checks, logger)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), method, path, body))
}

func decodeBody[T any](s *HandlerSuite, rec *httptest.ResponseRecorder) T {
	var v T
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&v))
	return v
}

// =============================================================================
// Factomize Endpoint Tests
// =============================================================================

func (s *HandlerSuite) TestFactomize() {
	s.Run("appended entry returns 200 with outcome", func() {
		s.factomizer.EXPECT().
			Factomize(gomock.Any(), service.Request{
				Model:      "Patient",
				Body:       map[string]any{"doctor_id": "D1", "name": "Alice"},
				Method:     "POST",
				ForeignKey: "doctor_id",
			}).
			Return(models.Outcome{Status: models.OutcomeAppended, OwnerID: "D1", Action: id.MethodPost}, nil)

		rec := s.do(http.MethodPost, "/v1/factomize",
			`{"model":" Patient ","body":{"doctor_id":"D1","name":"Alice"},"method":"POST","foreign_key":"doctor_id"}`)

		s.Equal(http.StatusOK, rec.Code)
		s.NotEmpty(rec.Header().Get(requestid.Header))
		resp := decodeBody[OutcomeResponse](s, rec)
		s.Equal(OutcomeResponse{Status: "appended", OwnerID: "D1", Action: "POST"}, resp)
	})

	s.Run("numeric foreign keys reach the service unrounded", func() {
		s.factomizer.EXPECT().
			Factomize(gomock.Any(), service.Request{
				Model:      "Patient",
				Body:       map[string]any{"doctor_id": json.Number("9007199254740993"), "age": json.Number("42")},
				Method:     "POST",
				ForeignKey: "doctor_id",
			}).
			Return(models.Outcome{Status: models.OutcomeAppended, OwnerID: "9007199254740993", Action: id.MethodPost}, nil)

		rec := s.do(http.MethodPost, "/v1/factomize",
			`{"model":"Patient","body":{"doctor_id":9007199254740993,"age":42},"method":"POST","foreign_key":"doctor_id"}`)

		s.Equal(http.StatusOK, rec.Code)
		s.Equal("9007199254740993", decodeBody[OutcomeResponse](s, rec).OwnerID)
	})

	s.Run("queued entry returns 202", func() {
		s.factomizer.EXPECT().Factomize(gomock.Any(), gomock.Any()).
			Return(models.Outcome{Status: models.OutcomeQueued, OwnerID: "D1", Action: id.MethodDelete}, nil)

		rec := s.do(http.MethodPost, "/v1/factomize", `{"model":"Patient","method":"DELETE","current_id":"P1"}`)
		s.Equal(http.StatusAccepted, rec.Code)
	})

	s.Run("logged build failure is reported in the body", func() {
		s.factomizer.EXPECT().Factomize(gomock.Any(), gomock.Any()).
			Return(models.Outcome{
				Status:  models.OutcomeFailed,
				OwnerID: "D3",
				Action:  id.MethodPost,
				Err:     dErrors.New(dErrors.CodeIdentityNotFound, "identity missing"),
			}, nil)

		rec := s.do(http.MethodPost, "/v1/factomize", `{"model":"Patient","method":"POST","body":{"doctor_id":"D3"}}`)
		s.Equal(http.StatusOK, rec.Code)
		resp := decodeBody[OutcomeResponse](s, rec)
		s.Equal("failed", resp.Status)
		s.Equal("identity_not_found", resp.Error)
	})

	s.Run("validation errors map to their status", func() {
		cases := []struct {
			err    error
			status int
		}{
			{service.ErrInvalidHTTPMethod, http.StatusBadRequest},
			{service.ErrInvalidModel, http.StatusUnprocessableEntity},
			{service.ErrInvalidCurrentModelID, http.StatusUnprocessableEntity},
			{service.ErrLedgerAppendFailed, http.StatusInternalServerError},
		}
		for _, tc := range cases {
			s.factomizer.EXPECT().Factomize(gomock.Any(), gomock.Any()).Return(models.Outcome{}, tc.err)
			rec := s.do(http.MethodPost, "/v1/factomize", `{"model":"Patient","method":"PUT"}`)
			s.Equal(tc.status, rec.Code, dErrors.CodeOf(tc.err))
		}
	})

	s.Run("malformed json is rejected before the service", func() {
		rec := s.do(http.MethodPost, "/v1/factomize", `{"model":`)
		testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "bad_request")
	})

	s.Run("unknown top level fields are rejected", func() {
		rec := s.do(http.MethodPost, "/v1/factomize", `{"model":"Patient","verb":"POST"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

// =============================================================================
// Identity Endpoint Tests
// =============================================================================

func (s *HandlerSuite) TestCreateIdentity() {
	s.Run("returns public material only", func() {
		s.provisioner.EXPECT().CreateAuditedIdentity(gomock.Any()).Return(
			models.Identity{ID: "I1", ChainID: "IC1", KeyPairs: []models.KeyPair{{PrivateKey: "idsec_secret", PublicKey: "idpub_public"}}},
			models.Chain{ID: "C1", ChainID: "LEDGER1"},
			nil,
		)

		rec := s.do(http.MethodPost, "/v1/identities", "")
		s.Equal(http.StatusCreated, rec.Code)
		s.NotContains(rec.Body.String(), "idsec_secret")
		resp := decodeBody[IdentityResponse](s, rec)
		s.Equal([]string{"idpub_public"}, resp.PublicKeys)
		s.Equal("LEDGER1", resp.AuditChain.ChainID)
	})

	s.Run("failure is internal", func() {
		s.provisioner.EXPECT().CreateAuditedIdentity(gomock.Any()).
			Return(models.Identity{}, models.Chain{}, dErrors.Wrap(errors.New("insert failed"), dErrors.CodeInternal, "failed to create identity"))

		rec := s.do(http.MethodPost, "/v1/identities", "")
		s.Equal(http.StatusInternalServerError, rec.Code)
		s.NotContains(rec.Body.String(), "insert failed")
	})
}

func (s *HandlerSuite) TestProvisionAuditChain() {
	s.provisioner.EXPECT().ProvisionAuditChain(gomock.Any(), "I1").Return(models.Chain{ID: "C1", ChainID: "LEDGER1"}, true, nil)
	rec := s.do(http.MethodPut, "/v1/identities/I1/audit-chain", "")
	s.Equal(http.StatusCreated, rec.Code)

	s.provisioner.EXPECT().ProvisionAuditChain(gomock.Any(), "I1").Return(models.Chain{ID: "C1", ChainID: "LEDGER1"}, false, nil)
	rec = s.do(http.MethodPut, "/v1/identities/I1/audit-chain", "")
	s.Equal(http.StatusOK, rec.Code)

	s.provisioner.EXPECT().ProvisionAuditChain(gomock.Any(), "I2").Return(models.Chain{}, false, service.ErrAmbiguousAuditChain)
	rec = s.do(http.MethodPut, "/v1/identities/I2/audit-chain", "")
	s.Equal(http.StatusConflict, rec.Code)
}

// =============================================================================
// Operational Endpoint Tests
// =============================================================================

func (s *HandlerSuite) TestHealthz() {
	rec := s.do(http.MethodGet, "/healthz", "")
	s.Equal(http.StatusOK, rec.Code)

	s.healthErr = errors.New("connection refused")
	rec = s.do(http.MethodGet, "/healthz", "")
	s.Equal(http.StatusServiceUnavailable, rec.Code)
	s.Equal(map[string]string{"postgres": "connection refused"}, decodeBody[map[string]string](s, rec))
}

func (s *HandlerSuite) TestMetricsEndpoint() {
	rec := s.do(http.MethodGet, "/metrics", "")
	s.Equal(http.StatusOK, rec.Code)
}
