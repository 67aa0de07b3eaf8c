package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"chainaudit/internal/audittrail/metrics"
	"chainaudit/internal/audittrail/mocks"
	"chainaudit/internal/audittrail/models"
	"chainaudit/internal/audittrail/ports"
	"chainaudit/internal/audittrail/registry"
	id "chainaudit/pkg/domain"
	dErrors "chainaudit/pkg/domain-errors"
	"chainaudit/pkg/platform/sentinel"
)

// =============================================================================
// Factomize Test Suite
// =============================================================================
// Justification for unit tests: Factomize owns the validation contract and
// decides which owner an entry is attributed to. The repository and entry
// builder are mocked so each test can assert exactly which lookups and builds
// happen, including that rejected requests touch nothing.

type FactomizeSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	repo    *mocks.MockRepository
	builder *mocks.MockEntryBuilder
	tracker *mocks.MockErrorTracker
	metrics *metrics.Metrics
	reg     *registry.Registry
	service *Service
}

func TestFactomizeSuite(t *testing.T) {
	suite.Run(t, new(FactomizeSuite))
}

func testSchema() registry.Schema {
	schema := registry.Schema{
		Tracked: map[string]registry.Tracked{
			"Patient": {Entity: registry.Entity{Table: "patients"}, Factomized: "Doctor", ForeignKey: "doctor_id"},
			"Visit":   {Entity: registry.Entity{Table: "visits"}, Factomized: "Doctor"},
		},
		Owners: map[string]registry.Owner{
			"Doctor": {Entity: registry.Entity{Table: "doctors"}},
		},
	}
	schema.ApplyDefaults()
	return schema
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *FactomizeSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.repo = mocks.NewMockRepository(s.ctrl)
	s.builder = mocks.NewMockEntryBuilder(s.ctrl)
	s.tracker = mocks.NewMockErrorTracker(s.ctrl)
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())

	var err error
	s.reg, err = registry.New(testSchema(), s.repo)
	s.Require().NoError(err)
	s.service = s.newService()
}

func (s *FactomizeSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *FactomizeSuite) newService(opts ...Option) *Service {
	base := []Option{
		WithLogger(discardLogger()),
		WithMetrics(s.metrics),
		WithErrorTracker(s.tracker),
	}
	svc, err := New(s.reg, s.builder, append(base, opts...)...)
	s.Require().NoError(err)
	return svc
}

func (s *FactomizeSuite) expectStored(currentID string, row models.Row) {
	s.repo.EXPECT().
		FindOne(gomock.Any(), "Patient", models.Filter{"_id": currentID}).
		Return(row, nil)
}

func (s *FactomizeSuite) expectBuild(ownerID string, method id.Method, record any) {
	s.builder.EXPECT().
		BuildEntry(gomock.Any(), models.BuildRequest{
			OwnerID:    ownerID,
			OwnerModel: "Doctor",
			Content:    models.EntryContent{Record: record, Action: method},
		}).
		Return(models.Entry{ID: "E1"}, nil)
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *FactomizeSuite) TestNew() {
	s.Run("nil registry returns error", func() {
		_, err := New(nil, s.builder)
		s.ErrorContains(err, "model registry is required")
	})

	s.Run("nil builder returns error", func() {
		_, err := New(s.reg, nil)
		s.ErrorContains(err, "entry builder is required")
	})

	s.Run("defaults to an in-process locker", func() {
		svc, err := New(s.reg, s.builder)
		s.Require().NoError(err)
		s.NotNil(svc.locker)
		s.Equal(FailurePolicyLog, svc.failurePolicy)
		s.Equal(PatchPolicySkip, svc.patchPolicy)
	})
}

// =============================================================================
// Validation Tests
// =============================================================================
// Justification: Validation errors are the caller-facing contract. Every
// rejection must precede any store access or entry build, which the mocks
// enforce by failing on unexpected calls.

func (s *FactomizeSuite) TestRejectsUnsupportedMethodBeforeStoreAccess() {
	for _, method := range []string{"GET", "get", "HEAD", "OPTIONS", "", "P0ST", "PUTS"} {
		s.Run(method, func() {
			_, err := s.service.Factomize(context.Background(), Request{
				Model:      "Nurse",
				Method:     method,
				ForeignKey: "doctor_id",
				CurrentID:  "P1",
			})
			s.ErrorIs(err, ErrInvalidHTTPMethod)
		})
	}
}

func (s *FactomizeSuite) TestMethodIsCaseInsensitive() {
	body := map[string]any{"doctor_id": "D1"}
	s.expectBuild("D1", id.MethodPost, body)

	outcome, err := s.service.Factomize(context.Background(), Request{
		Model: "Patient", Body: body, Method: "post", ForeignKey: "doctor_id",
	})
	s.Require().NoError(err)
	s.Equal(id.MethodPost, outcome.Action)
}

func (s *FactomizeSuite) TestRejectsUnknownModel() {
	for _, model := range []string{"Nurse", "patient", "Doctor", ""} {
		s.Run(model, func() {
			_, err := s.service.Factomize(context.Background(), Request{
				Model:      model,
				Body:       map[string]any{"doctor_id": "D1"},
				Method:     "POST",
				ForeignKey: "doctor_id",
			})
			s.ErrorIs(err, ErrInvalidModel)
		})
	}
}

func (s *FactomizeSuite) TestPostRequiresOwnerInBody() {
	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "absent", body: map[string]any{"name": "Alice"}},
		{name: "empty", body: map[string]any{"doctor_id": ""}},
		{name: "null", body: map[string]any{"doctor_id": nil}},
		{name: "nil body", body: nil},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.Factomize(context.Background(), Request{
				Model: "Patient", Body: tt.body, Method: "POST", ForeignKey: "doctor_id",
			})
			s.ErrorIs(err, ErrIdentityModelFKNotValid)
		})
	}
}

func (s *FactomizeSuite) TestPostWithoutConfiguredKey() {
	_, err := s.service.Factomize(context.Background(), Request{
		Model: "Visit", Body: map[string]any{"doctor_id": "D1"}, Method: "POST",
	})
	s.ErrorIs(err, ErrIdentityModelFKNotValid)
}

func (s *FactomizeSuite) TestPutRequiresCurrentID() {
	_, err := s.service.Factomize(context.Background(), Request{
		Model: "Patient", Body: map[string]any{"doctor_id": "D2"}, Method: "PUT", ForeignKey: "doctor_id",
	})
	s.ErrorIs(err, ErrInvalidCurrentModelID)
}

func (s *FactomizeSuite) TestPutRequiresForeignKeyName() {
	_, err := s.service.Factomize(context.Background(), Request{
		Model: "Visit", Body: map[string]any{}, Method: "PUT", CurrentID: "V1",
	})
	s.ErrorIs(err, ErrInvalidIdentityModelFK)
}

func (s *FactomizeSuite) TestPutStoredRowLacksForeignKey() {
	s.expectStored("P1", models.Row{"_id": "P1", "name": "Alice"})

	_, err := s.service.Factomize(context.Background(), Request{
		Model: "Patient", Body: map[string]any{"doctor_id": "D2"}, Method: "PUT", ForeignKey: "doctor_id", CurrentID: "P1",
	})
	s.ErrorIs(err, ErrInvalidIdentityModelFK)
}

func (s *FactomizeSuite) TestStoredOwnerEmpty() {
	for _, method := range []string{"PUT", "PATCH", "DELETE"} {
		s.Run(method, func() {
			s.expectStored("P1", models.Row{"_id": "P1", "doctor_id": nil})

			_, err := s.service.Factomize(context.Background(), Request{
				Model: "Patient", Body: map[string]any{}, Method: method, ForeignKey: "doctor_id", CurrentID: "P1",
			})
			s.ErrorIs(err, ErrIdentityModelFKNotValid)
		})
	}
}

func (s *FactomizeSuite) TestPutClearedOwnerInBodyIsBuiltAgainstEmptyOwner() {
	for name, cleared := range map[string]any{"empty string": "", "null": nil} {
		s.Run(name, func() {
			body := map[string]any{"doctor_id": cleared}
			s.expectStored("P1", models.Row{"_id": "P1", "doctor_id": "D1"})
			buildErr := dErrors.New(dErrors.CodeOwnerNotFound, `Doctor "" not found`)
			s.builder.EXPECT().
				BuildEntry(gomock.Any(), models.BuildRequest{
					OwnerID:    "",
					OwnerModel: "Doctor",
					Content:    models.EntryContent{Record: body, Action: id.MethodPut},
				}).
				Return(models.Entry{}, buildErr)
			s.tracker.EXPECT().Capture(gomock.Any(), buildErr, gomock.Any())

			outcome, err := s.service.Factomize(context.Background(), Request{
				Model: "Patient", Body: body, Method: "PUT", ForeignKey: "doctor_id", CurrentID: "P1",
			})
			s.Require().NoError(err)
			s.Equal(models.OutcomeFailed, outcome.Status)
			s.ErrorIs(outcome.Err, ErrOwnerNotFound)
		})
	}
}

func (s *FactomizeSuite) TestStoredRecordLookupFailure() {
	s.Run("record missing", func() {
		s.repo.EXPECT().FindOne(gomock.Any(), "Patient", gomock.Any()).
			Return(nil, sentinel.ErrNotFound)

		_, err := s.service.Factomize(context.Background(), Request{
			Model: "Patient", Method: "DELETE", ForeignKey: "doctor_id", CurrentID: "P9",
		})
		s.ErrorIs(err, ErrInvalidModel)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("store unavailable", func() {
		boom := errors.New("connection refused")
		s.repo.EXPECT().FindOne(gomock.Any(), "Patient", gomock.Any()).Return(nil, boom)

		_, err := s.service.Factomize(context.Background(), Request{
			Model: "Patient", Method: "PUT", ForeignKey: "doctor_id", CurrentID: "P1",
		})
		s.ErrorIs(err, ErrInvalidModel)
		s.ErrorIs(err, boom)
	})
}

func (s *FactomizeSuite) TestDeleteAndPatchWithoutCurrentIDAreInvalidModel() {
	for _, method := range []string{"DELETE", "PATCH"} {
		s.Run(method, func() {
			_, err := s.service.Factomize(context.Background(), Request{
				Model: "Patient", Method: method, ForeignKey: "doctor_id",
			})
			s.ErrorIs(err, ErrInvalidModel)
			s.NotErrorIs(err, ErrInvalidCurrentModelID)
		})
	}
}

func (s *FactomizeSuite) TestAuditedPatchRequiresCurrentID() {
	svc := s.newService(WithPatchPolicy(PatchPolicyAudit))

	_, err := svc.Factomize(context.Background(), Request{
		Model: "Patient", Method: "PATCH", ForeignKey: "doctor_id",
	})
	s.ErrorIs(err, ErrInvalidCurrentModelID)
}

func (s *FactomizeSuite) TestForeignKeyFallsBackToRegistry() {
	body := map[string]any{"doctor_id": "D1", "name": "Alice"}
	s.expectBuild("D1", id.MethodPost, body)

	outcome, err := s.service.Factomize(context.Background(), Request{
		Model: "Patient", Body: body, Method: "POST",
	})
	s.Require().NoError(err)
	s.Equal(models.OutcomeAppended, outcome.Status)
}

// =============================================================================
// Attribution Tests
// =============================================================================
// Justification: The owner an entry is attributed to is the observable
// behavior; it is asserted through the request handed to the entry builder.

func (s *FactomizeSuite) TestPostAttributesToBodyOwner() {
	body := map[string]any{"doctor_id": "D1", "name": "Alice"}
	s.expectBuild("D1", id.MethodPost, body)

	outcome, err := s.service.Factomize(context.Background(), Request{
		Model: "Patient", Body: body, Method: "POST", ForeignKey: "doctor_id",
	})
	s.Require().NoError(err)
	s.Equal(models.Outcome{Status: models.OutcomeAppended, OwnerID: "D1", Action: id.MethodPost}, outcome)
}

func (s *FactomizeSuite) TestPutReassignedAttributesToNewOwner() {
	body := map[string]any{"doctor_id": "D2"}
	s.expectStored("P1", models.Row{"_id": "P1", "doctor_id": "D1"})
	s.expectBuild("D2", id.MethodPut, body)

	outcome, err := s.service.Factomize(context.Background(), Request{
		Model: "Patient", Body: body, Method: "PUT", ForeignKey: "doctor_id", CurrentID: "P1",
	})
	s.Require().NoError(err)
	s.Equal("D2", outcome.OwnerID)
}

func (s *FactomizeSuite) TestPutUnchangedOwnerAttributesToStoredOwner() {
	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "same value", body: map[string]any{"doctor_id": "D1", "name": "Alicia"}},
		{name: "field omitted", body: map[string]any{"name": "Alicia"}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.expectStored("P1", models.Row{"_id": "P1", "doctor_id": "D1"})
			s.expectBuild("D1", id.MethodPut, tt.body)

			outcome, err := s.service.Factomize(context.Background(), Request{
				Model: "Patient", Body: tt.body, Method: "PUT", ForeignKey: "doctor_id", CurrentID: "P1",
			})
			s.Require().NoError(err)
			s.Equal("D1", outcome.OwnerID)
		})
	}
}

func (s *FactomizeSuite) TestDeletePayloadIsCurrentID() {
	s.expectStored("P1", models.Row{"_id": "P1", "doctor_id": "D1"})
	s.expectBuild("D1", id.MethodDelete, map[string]any{"id": "P1"})

	outcome, err := s.service.Factomize(context.Background(), Request{
		Model:      "Patient",
		Body:       map[string]any{"name": "Alice", "doctor_id": "D7"},
		Method:     "DELETE",
		ForeignKey: "doctor_id",
		CurrentID:  "P1",
	})
	s.Require().NoError(err)
	s.Equal(models.OutcomeAppended, outcome.Status)
	s.Equal("D1", outcome.OwnerID)
}

func (s *FactomizeSuite) TestPatchBuildsNothingByDefault() {
	s.expectStored("P1", models.Row{"_id": "P1", "doctor_id": "D1"})
	s.builder.EXPECT().BuildEntry(gomock.Any(), gomock.Any()).Times(0)

	outcome, err := s.service.Factomize(context.Background(), Request{
		Model: "Patient", Body: map[string]any{"doctor_id": "D2"}, Method: "PATCH", ForeignKey: "doctor_id", CurrentID: "P1",
	})
	s.Require().NoError(err)
	s.Equal(models.Outcome{Status: models.OutcomeSkipped, OwnerID: "D1", Action: id.MethodPatch}, outcome)
}

func (s *FactomizeSuite) TestPatchAuditPolicyBehavesLikePut() {
	svc := s.newService(WithPatchPolicy(PatchPolicyAudit))
	body := map[string]any{"doctor_id": "D2"}
	s.expectStored("P1", models.Row{"_id": "P1", "doctor_id": "D1"})
	s.expectBuild("D2", id.MethodPatch, body)

	outcome, err := svc.Factomize(context.Background(), Request{
		Model: "Patient", Body: body, Method: "PATCH", ForeignKey: "doctor_id", CurrentID: "P1",
	})
	s.Require().NoError(err)
	s.Equal(models.OutcomeAppended, outcome.Status)
	s.Equal(id.MethodPatch, outcome.Action)

	s.Run("stored row lacking the key is rejected like PUT", func() {
		s.expectStored("P2", models.Row{"_id": "P2"})
		_, err := svc.Factomize(context.Background(), Request{
			Model: "Patient", Body: body, Method: "PATCH", ForeignKey: "doctor_id", CurrentID: "P2",
		})
		s.ErrorIs(err, ErrInvalidIdentityModelFK)
	})
}

// =============================================================================
// Failure Policy Tests
// =============================================================================
// Justification: Build failures are swallowed by default for compatibility
// but must stay observable through the outcome, logs and error tracker.

func (s *FactomizeSuite) TestBuildFailureIsReportedNotRaised() {
	buildErr := dErrors.New(dErrors.CodeIdentityNotFound, `identity "I404" not found`)
	s.builder.EXPECT().BuildEntry(gomock.Any(), gomock.Any()).Return(models.Entry{}, buildErr)
	s.tracker.EXPECT().Capture(gomock.Any(), buildErr, map[string]string{
		"owner_model": "Doctor",
		"action":      "POST",
		"code":        string(dErrors.CodeIdentityNotFound),
	})

	outcome, err := s.service.Factomize(context.Background(), Request{
		Model: "Patient", Body: map[string]any{"doctor_id": "D1"}, Method: "POST", ForeignKey: "doctor_id",
	})
	s.Require().NoError(err)
	s.Equal(models.OutcomeFailed, outcome.Status)
	s.ErrorIs(outcome.Err, ErrIdentityNotFound)
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.FactomizeTotal.WithLabelValues("POST", "failed")))
}

func (s *FactomizeSuite) TestPropagatePolicyReturnsBuildFailure() {
	svc := s.newService(WithFailurePolicy(FailurePolicyPropagate))
	buildErr := dErrors.New(dErrors.CodeLedgerAppendFailed, "ledger down")
	s.builder.EXPECT().BuildEntry(gomock.Any(), gomock.Any()).Return(models.Entry{}, buildErr)
	s.tracker.EXPECT().Capture(gomock.Any(), buildErr, gomock.Any())

	outcome, err := svc.Factomize(context.Background(), Request{
		Model: "Patient", Body: map[string]any{"doctor_id": "D1"}, Method: "POST", ForeignKey: "doctor_id",
	})
	s.ErrorIs(err, ErrLedgerAppendFailed)
	s.Equal(models.OutcomeFailed, outcome.Status)
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.FactomizeTotal.WithLabelValues("POST", string(dErrors.CodeLedgerAppendFailed))))
}

func (s *FactomizeSuite) TestValidationErrorsAreCountedByCode() {
	_, err := s.service.Factomize(context.Background(), Request{Model: "Patient", Method: "TRACE"})
	s.Require().Error(err)
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.FactomizeTotal.WithLabelValues("invalid", string(dErrors.CodeInvalidHTTPMethod))))
}

// =============================================================================
// Locking and Async Tests
// =============================================================================

type recordingLocker struct {
	keys     []string
	released int
	err      error
}

func (l *recordingLocker) Lock(_ context.Context, key string) (ports.Unlock, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.keys = append(l.keys, key)
	return func(context.Context) error {
		l.released++
		return nil
	}, nil
}

type captureQueue struct {
	jobs   []func(context.Context)
	refuse bool
}

func (q *captureQueue) Submit(_ context.Context, job func(context.Context)) bool {
	if q.refuse {
		return false
	}
	q.jobs = append(q.jobs, job)
	return true
}

func (s *FactomizeSuite) TestRecordLockIsHeldAcrossBuild() {
	locker := &recordingLocker{}
	svc := s.newService(WithLocker(locker))
	s.expectStored("P1", models.Row{"_id": "P1", "doctor_id": "D1"})
	s.builder.EXPECT().BuildEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.BuildRequest) (models.Entry, error) {
			s.Equal(0, locker.released, "lock released before the entry was built")
			return models.Entry{}, nil
		})

	_, err := svc.Factomize(context.Background(), Request{
		Model: "Patient", Method: "DELETE", ForeignKey: "doctor_id", CurrentID: "P1",
	})
	s.Require().NoError(err)
	s.Equal([]string{"Patient:P1"}, locker.keys)
	s.Equal(1, locker.released)
}

func (s *FactomizeSuite) TestLockReleasedOnValidationFailure() {
	locker := &recordingLocker{}
	svc := s.newService(WithLocker(locker))
	s.expectStored("P1", models.Row{"_id": "P1"})

	_, err := svc.Factomize(context.Background(), Request{
		Model: "Patient", Method: "PUT", ForeignKey: "doctor_id", CurrentID: "P1",
	})
	s.ErrorIs(err, ErrInvalidIdentityModelFK)
	s.Equal(1, locker.released)
}

func (s *FactomizeSuite) TestLockFailureIsUnavailable() {
	svc := s.newService(WithLocker(&recordingLocker{err: sentinel.ErrUnavailable}))

	_, err := svc.Factomize(context.Background(), Request{
		Model: "Patient", Method: "DELETE", ForeignKey: "doctor_id", CurrentID: "P1",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *FactomizeSuite) TestAsyncEntriesAreQueued() {
	queue := &captureQueue{}
	locker := &recordingLocker{}
	svc := s.newService(WithAsyncEntries(queue), WithLocker(locker))
	s.expectStored("P1", models.Row{"_id": "P1", "doctor_id": "D1"})

	outcome, err := svc.Factomize(context.Background(), Request{
		Model: "Patient", Method: "DELETE", ForeignKey: "doctor_id", CurrentID: "P1",
	})
	s.Require().NoError(err)
	s.Equal(models.OutcomeQueued, outcome.Status)
	s.Require().Len(queue.jobs, 1)
	s.Equal(0, locker.released, "queued job owns the lock")

	s.expectBuild("D1", id.MethodDelete, map[string]any{"id": "P1"})
	queue.jobs[0](context.Background())
	s.Equal(1, locker.released)
}

func (s *FactomizeSuite) TestAsyncJobFailureIsTracked() {
	queue := &captureQueue{}
	svc := s.newService(WithAsyncEntries(queue))
	buildErr := dErrors.New(dErrors.CodeMissingAuditChain, "no chain")
	s.builder.EXPECT().BuildEntry(gomock.Any(), gomock.Any()).Return(models.Entry{}, buildErr)
	s.tracker.EXPECT().Capture(gomock.Any(), buildErr, gomock.Any())

	outcome, err := svc.Factomize(context.Background(), Request{
		Model: "Patient", Body: map[string]any{"doctor_id": "D1"}, Method: "POST", ForeignKey: "doctor_id",
	})
	s.Require().NoError(err)
	s.Equal(models.OutcomeQueued, outcome.Status)
	s.Require().Len(queue.jobs, 1)
	queue.jobs[0](context.Background())
}

func (s *FactomizeSuite) TestFullQueueFails() {
	locker := &recordingLocker{}
	svc := s.newService(WithAsyncEntries(&captureQueue{refuse: true}), WithLocker(locker))
	s.expectStored("P1", models.Row{"_id": "P1", "doctor_id": "D1"})
	s.tracker.EXPECT().Capture(gomock.Any(), ErrQueueFull, gomock.Any())

	outcome, err := svc.Factomize(context.Background(), Request{
		Model: "Patient", Method: "DELETE", ForeignKey: "doctor_id", CurrentID: "P1",
	})
	s.Require().NoError(err)
	s.Equal(models.OutcomeFailed, outcome.Status)
	s.ErrorIs(outcome.Err, ErrQueueFull)
	s.Equal(1, locker.released)
}
