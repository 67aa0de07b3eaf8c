package identity

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	PUT(path string, body any) error
	Status() int
	GetResponseField(field string) (any, error)
	Set(name, value string)
	Get(name string) string
}

// RegisterSteps registers identity provisioning steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &identitySteps{tc: tc}

	ctx.Step(`^I create an audited identity "([^"]*)"$`, steps.createAuditedIdentity)
	ctx.Step(`^I provision the audit chain of identity "([^"]*)"$`, steps.provisionAuditChain)
	ctx.Step(`^I provision the audit chain of unknown identity "([^"]*)"$`, steps.provisionUnknownAuditChain)
	ctx.Step(`^the audit chain of identity "([^"]*)" should be unchanged$`, steps.auditChainUnchanged)
}

type identitySteps struct {
	tc TestContext
}

func (s *identitySteps) createAuditedIdentity(_ context.Context, alias string) error {
	if err := s.tc.POST("/v1/identities", nil); err != nil {
		return err
	}
	if s.tc.Status() != 201 {
		return fmt.Errorf("create identity: status %d", s.tc.Status())
	}
	for name, field := range map[string]string{
		alias:                 "id",
		alias + ".audit_chain": "audit_chain.chain_id",
	} {
		v, err := s.tc.GetResponseField(field)
		if err != nil {
			return err
		}
		s.tc.Set(name, fmt.Sprint(v))
	}
	return nil
}

func (s *identitySteps) provisionAuditChain(_ context.Context, alias string) error {
	return s.tc.PUT("/v1/identities/"+s.tc.Get(alias)+"/audit-chain", nil)
}

func (s *identitySteps) provisionUnknownAuditChain(_ context.Context, identityID string) error {
	return s.tc.PUT("/v1/identities/"+identityID+"/audit-chain", nil)
}

func (s *identitySteps) auditChainUnchanged(_ context.Context, alias string) error {
	v, err := s.tc.GetResponseField("chain_id")
	if err != nil {
		return err
	}
	if want := s.tc.Get(alias + ".audit_chain"); fmt.Sprint(v) != want {
		return fmt.Errorf("audit chain changed: want %s, got %v", want, v)
	}
	return nil
}
