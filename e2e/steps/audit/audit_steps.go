package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	Get(name string) string
	Set(name, value string)
	Exec(ctx context.Context, query string, args ...any) error
}

// RegisterSteps registers record mutation steps. Seeding steps write
// directly to postgres and are pending when no DSN is configured.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &auditSteps{tc: tc}

	ctx.Step(`^a doctor "([^"]*)" owned by identity "([^"]*)"$`, steps.seedDoctor)
	ctx.Step(`^a doctor "([^"]*)" without an identity$`, steps.seedDoctorWithoutIdentity)
	ctx.Step(`^a patient "([^"]*)" of doctor "([^"]*)"$`, steps.seedPatient)
	ctx.Step(`^I record a ([A-Za-z]+) of "([^"]*)" with body:$`, steps.recordWithBody)
	ctx.Step(`^I record a ([A-Za-z]+) of "([^"]*)" "([^"]*)" with body:$`, steps.recordCurrentWithBody)
	ctx.Step(`^I record a ([A-Za-z]+) of "([^"]*)" "([^"]*)"$`, steps.recordCurrent)
}

type auditSteps struct {
	tc TestContext
}

// scoped makes seeded ids unique per scenario run.
func (s *auditSteps) scoped(_ context.Context, alias string) string {
	if id := s.tc.Get("row:" + alias); id != "" {
		return id
	}
	id := alias + "-" + s.tc.Get("run")
	s.tc.Set("row:"+alias, id)
	return id
}

func (s *auditSteps) seedDoctor(ctx context.Context, alias, identityAlias string) error {
	identityID := s.tc.Get(identityAlias)
	if identityID == "" {
		return fmt.Errorf("identity %q was not created", identityAlias)
	}
	return s.exec(ctx, `INSERT INTO doctors (_id, name, identity) VALUES ($1, $2, $3)`,
		s.scoped(ctx, alias), alias, identityID)
}

func (s *auditSteps) seedDoctorWithoutIdentity(ctx context.Context, alias string) error {
	return s.exec(ctx, `INSERT INTO doctors (_id, name) VALUES ($1, $2)`, s.scoped(ctx, alias), alias)
}

func (s *auditSteps) seedPatient(ctx context.Context, alias, doctorAlias string) error {
	return s.exec(ctx, `INSERT INTO patients (_id, name, doctor_id) VALUES ($1, $2, $3)`,
		s.scoped(ctx, alias), alias, s.scoped(ctx, doctorAlias))
}

func (s *auditSteps) exec(ctx context.Context, query string, args ...any) error {
	if err := s.tc.Exec(ctx, query, args...); err != nil {
		if strings.Contains(err.Error(), "no database configured") {
			return godog.ErrPending
		}
		return err
	}
	return nil
}

func (s *auditSteps) recordWithBody(ctx context.Context, method, model string, doc *godog.DocString) error {
	return s.record(ctx, method, model, "", doc)
}

func (s *auditSteps) recordCurrentWithBody(ctx context.Context, method, model, current string, doc *godog.DocString) error {
	return s.record(ctx, method, model, current, doc)
}

func (s *auditSteps) recordCurrent(ctx context.Context, method, model, current string) error {
	return s.record(ctx, method, model, current, nil)
}

// record posts a mutation. Body values written as <alias> are replaced by the
// seeded row id.
func (s *auditSteps) record(ctx context.Context, method, model, current string, doc *godog.DocString) error {
	req := map[string]any{"model": model, "method": method}
	if current != "" {
		req["current_id"] = s.scoped(ctx, current)
	}
	if doc != nil {
		body, err := parseBody(doc.Content, func(alias string) string { return s.scoped(ctx, alias) })
		if err != nil {
			return err
		}
		req["body"] = body
	}
	return s.tc.POST("/v1/factomize", req)
}

// parseBody reads "key: value" lines.
func parseBody(content string, resolve func(string) string) (map[string]any, error) {
	body := map[string]any{}
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("body line %q is not key: value", line)
		}
		value = strings.TrimSpace(value)
		if strings.HasPrefix(value, "<") && strings.HasSuffix(value, ">") {
			value = resolve(strings.Trim(value, "<>"))
		}
		body[strings.TrimSpace(key)] = value
	}
	return body, nil
}
