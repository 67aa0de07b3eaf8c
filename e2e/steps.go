package e2e

import (
	"github.com/cucumber/godog"

	"chainaudit/e2e/steps/audit"
	"chainaudit/e2e/steps/common"
	"chainaudit/e2e/steps/identity"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Generic requests and assertions
	common.RegisterSteps(ctx, tc)

	// Identity and audit chain provisioning
	identity.RegisterSteps(ctx, tc)

	// Record mutations and their entries
	audit.RegisterSteps(ctx, tc)
}
