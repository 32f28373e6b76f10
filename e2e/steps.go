package e2e

import (
	"github.com/cucumber/godog"

	"activitylog/e2e/steps/activity"
	"activitylog/e2e/steps/common"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (authentication, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register activity log specific steps
	activity.RegisterSteps(ctx, tc)
}
