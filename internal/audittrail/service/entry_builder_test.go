package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"chainaudit/internal/audittrail/metrics"
	"chainaudit/internal/audittrail/mocks"
	"chainaudit/internal/audittrail/models"
	id "chainaudit/pkg/domain"
	dErrors "chainaudit/pkg/domain-errors"
	"chainaudit/pkg/platform/sentinel"
)

// =============================================================================
// Entry Builder Test Suite
// =============================================================================
// Justification for unit tests: The builder walks owner -> identity -> chain
// and each hop has its own failure code. Mocked lookups let every hop fail in
// isolation.

type EntryBuilderSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	repo    *mocks.MockRepository
	ledger  *mocks.MockLedger
	metrics *metrics.Metrics
	builder *Builder
}

func TestEntryBuilderSuite(t *testing.T) {
	suite.Run(t, new(EntryBuilderSuite))
}

func (s *EntryBuilderSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.repo = mocks.NewMockRepository(s.ctrl)
	s.ledger = mocks.NewMockLedger(s.ctrl)
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())

	var err error
	s.builder, err = NewBuilder(s.repo, s.ledger, testSchema(),
		WithBuilderLogger(discardLogger()),
		WithBuilderMetrics(s.metrics),
	)
	s.Require().NoError(err)
}

func (s *EntryBuilderSuite) TearDownTest() {
	s.ctrl.Finish()
}

var buildReq = models.BuildRequest{
	OwnerID:    "D1",
	OwnerModel: "Doctor",
	Content: models.EntryContent{
		Record: map[string]any{"doctor_id": "D1", "name": "Alice"},
		Action: id.MethodPost,
	},
}

func (s *EntryBuilderSuite) expectOwner(row models.Row, err error) {
	s.repo.EXPECT().FindByID(gomock.Any(), "Doctor", "D1").Return(row, err)
}

func (s *EntryBuilderSuite) expectIdentity(row models.Row, err error) {
	s.repo.EXPECT().
		FindOne(gomock.Any(), "Identity", models.Filter{"_id": "I1"}).
		Return(row, err)
}

func (s *EntryBuilderSuite) expectChains(rows []models.Row, err error) {
	s.repo.EXPECT().
		FindMany(gomock.Any(), "Chain", models.Filter{"identity": "I1", "content": models.AuditChainContent}, 2).
		Return(rows, err)
}

func identityRow() models.Row {
	return models.Row{
		"_id":      "I1",
		"chain_id": "IDCHAIN1",
		"key_pairs": []any{
			map[string]any{"private_key": "idsec_first", "public_key": "idpub_first"},
			map[string]any{"private_key": "idsec_second", "public_key": "idpub_second"},
		},
	}
}

func chainRow() models.Row {
	return models.Row{"_id": "C1", "chain_id": "LEDGER1", "identity": "I1", "content": models.AuditChainContent}
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *EntryBuilderSuite) TestNewBuilder() {
	s.Run("nil repository returns error", func() {
		_, err := NewBuilder(nil, s.ledger, testSchema())
		s.ErrorContains(err, "repository is required")
	})

	s.Run("nil ledger returns error", func() {
		_, err := NewBuilder(s.repo, nil, testSchema())
		s.ErrorContains(err, "ledger is required")
	})
}

// =============================================================================
// Resolution Tests
// =============================================================================

func (s *EntryBuilderSuite) TestAppendsToAuditChainWithFirstKeyPair() {
	s.expectOwner(models.Row{"_id": "D1", "identity": "I1"}, nil)
	s.expectIdentity(identityRow(), nil)
	s.expectChains([]models.Row{chainRow()}, nil)
	s.ledger.EXPECT().
		AppendEntry(gomock.Any(), models.AppendRequest{
			ChainID:          "LEDGER1",
			SignerPrivateKey: "idsec_first",
			SignerChainID:    "IDCHAIN1",
			Content:          buildReq.Content,
			ParentRef:        "C1",
		}).
		Return(models.Entry{ID: "E1", ChainID: "LEDGER1"}, nil)

	entry, err := s.builder.BuildEntry(context.Background(), buildReq)
	s.Require().NoError(err)
	s.Equal("E1", entry.ID)
	s.Equal(0, promtestutil.CollectAndCount(s.metrics.EntryBuildFailures))
}

func (s *EntryBuilderSuite) TestFailureCodes() {
	boom := errors.New("connection reset")

	tests := []struct {
		name       string
		ownerModel string
		setup      func()
		want       error
		code       dErrors.Code
	}{
		{
			name:       "owner model not registered",
			ownerModel: "Clinic",
			setup:      func() {},
			code:       dErrors.CodeInvalidModel,
		},
		{
			name:  "owner not found",
			setup: func() { s.expectOwner(nil, sentinel.ErrNotFound) },
			want:  ErrOwnerNotFound,
		},
		{
			name:  "owner lookup fails",
			setup: func() { s.expectOwner(nil, boom) },
			code:  dErrors.CodeInternal,
		},
		{
			name:  "owner has no identity",
			setup: func() { s.expectOwner(models.Row{"_id": "D1", "identity": nil}, nil) },
			want:  ErrMissingIdentity,
		},
		{
			name: "identity reference does not resolve",
			setup: func() {
				s.expectOwner(models.Row{"_id": "D1", "identity": "I1"}, nil)
				s.expectIdentity(nil, sentinel.ErrNotFound)
			},
			want: ErrIdentityNotFound,
		},
		{
			name: "no audit chain",
			setup: func() {
				s.expectOwner(models.Row{"_id": "D1", "identity": "I1"}, nil)
				s.expectIdentity(identityRow(), nil)
				s.expectChains(nil, nil)
			},
			want: ErrMissingAuditChain,
		},
		{
			name: "several audit chains",
			setup: func() {
				s.expectOwner(models.Row{"_id": "D1", "identity": "I1"}, nil)
				s.expectIdentity(identityRow(), nil)
				s.expectChains([]models.Row{chainRow(), chainRow()}, nil)
			},
			want: ErrAmbiguousAuditChain,
		},
		{
			name: "identity without key pairs",
			setup: func() {
				s.expectOwner(models.Row{"_id": "D1", "identity": "I1"}, nil)
				s.expectIdentity(models.Row{"_id": "I1", "chain_id": "IDCHAIN1", "key_pairs": []any{}}, nil)
				s.expectChains([]models.Row{chainRow()}, nil)
			},
			want: ErrMissingKeyPair,
		},
		{
			name: "unreadable key pairs",
			setup: func() {
				s.expectOwner(models.Row{"_id": "D1", "identity": "I1"}, nil)
				s.expectIdentity(models.Row{"_id": "I1", "key_pairs": "not json"}, nil)
				s.expectChains([]models.Row{chainRow()}, nil)
			},
			want: ErrMissingKeyPair,
		},
		{
			name: "ledger append fails",
			setup: func() {
				s.expectOwner(models.Row{"_id": "D1", "identity": "I1"}, nil)
				s.expectIdentity(identityRow(), nil)
				s.expectChains([]models.Row{chainRow()}, nil)
				s.ledger.EXPECT().AppendEntry(gomock.Any(), gomock.Any()).Return(models.Entry{}, sentinel.ErrUnavailable)
			},
			want: ErrLedgerAppendFailed,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			tt.setup()
			req := buildReq
			if tt.ownerModel != "" {
				req.OwnerModel = tt.ownerModel
			}

			_, err := s.builder.BuildEntry(context.Background(), req)
			s.Require().Error(err)
			failures := s.metrics.EntryBuildFailures.WithLabelValues(string(dErrors.CodeOf(err)))
			if tt.want != nil {
				s.ErrorIs(err, tt.want)
			}
			if tt.code != "" {
				s.Equal(tt.code, dErrors.CodeOf(err))
			}
			s.GreaterOrEqual(promtestutil.ToFloat64(failures), 1.0)
		})
	}
}
