package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"
)

func TestFeatures(t *testing.T) {
	format := "pretty"
	if os.Getenv("GODOG_FORMAT") != "" {
		format = os.Getenv("GODOG_FORMAT")
	}

	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   format,
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

// InitializeScenario gives every scenario its own server and store.
func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := NewTestContext()
	RegisterSteps(ctx, tc)

	ctx.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		tc.Close()
		return ctx, err
	})
}
