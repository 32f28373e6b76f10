package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	Authenticate(email, role string) error
	ClearAuthentication()
	SetClientAddress(ip string)
	LastStatus() int
	ResponseField(field string) (any, error)
}

// RegisterSteps registers authentication, request and response steps shared
// by every feature.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I am authenticated as "([^"]*)" with role "([^"]*)"$`, steps.authenticate)
	ctx.Step(`^I am not authenticated$`, steps.notAuthenticated)
	ctx.Step(`^my client address is "([^"]*)"$`, steps.clientAddress)

	ctx.Step(`^I GET "([^"]*)"$`, steps.get)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) authenticate(_ context.Context, email, role string) error {
	return s.tc.Authenticate(email, role)
}

func (s *commonSteps) notAuthenticated(context.Context) error {
	s.tc.ClearAuthentication()
	return nil
}

func (s *commonSteps) clientAddress(_ context.Context, ip string) error {
	s.tc.SetClientAddress(ip)
	return nil
}

func (s *commonSteps) get(_ context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) statusShouldBe(_ context.Context, expected int) error {
	if got := s.tc.LastStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d", expected, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(_ context.Context, field, expected string) error {
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != expected {
		return fmt.Errorf("expected %s=%q, got %q", field, expected, got)
	}
	return nil
}
