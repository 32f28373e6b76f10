package activity

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cucumber/godog"

	audit "activitylog/pkg/platform/audit"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	Seed(ctx context.Context, event audit.Event) error
	LastEvents() []audit.Event
}

// RegisterSteps registers activity log step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &activitySteps{tc: tc}

	// Setup steps
	ctx.Step(`^the following activity exists:$`, steps.seedActivity)

	// Recording steps
	ctx.Step(`^I record a "([^"]*)" event with status "([^"]*)" and details "([^"]*)"$`, steps.recordEvent)

	// Result steps
	ctx.Step(`^I should receive (\d+) events?$`, steps.shouldReceive)
	ctx.Step(`^the events should be ordered newest first$`, steps.orderedNewestFirst)
	ctx.Step(`^event (\d+) should have action "([^"]*)"$`, steps.eventHasAction)
	ctx.Step(`^every event should have (actorEmail|actorRole|action|status) "([^"]*)"$`, steps.everyEventHas)
}

type activitySteps struct {
	tc TestContext
}

// seedActivity expects columns email, name, role, action, details, status
// and hours_ago.
func (s *activitySteps) seedActivity(ctx context.Context, table *godog.Table) error {
	if len(table.Rows) < 2 {
		return fmt.Errorf("activity table needs a header and at least one row")
	}
	header := table.Rows[0].Cells
	now := time.Now().UTC()

	for _, row := range table.Rows[1:] {
		values := make(map[string]string, len(header))
		for i, cell := range row.Cells {
			values[header[i].Value] = cell.Value
		}
		hours, err := strconv.Atoi(values["hours_ago"])
		if err != nil {
			return fmt.Errorf("hours_ago: %w", err)
		}
		err = s.tc.Seed(ctx, audit.Event{
			Timestamp:  now.Add(-time.Duration(hours) * time.Hour),
			ActorEmail: values["email"],
			ActorName:  values["name"],
			ActorRole:  values["role"],
			Action:     values["action"],
			Details:    values["details"],
			Status:     audit.Status(values["status"]),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *activitySteps) recordEvent(_ context.Context, action, status, details string) error {
	return s.tc.POST("/api/audit-logs/events", map[string]string{
		"action":  action,
		"status":  status,
		"details": details,
	})
}

func (s *activitySteps) shouldReceive(_ context.Context, n int) error {
	if got := len(s.tc.LastEvents()); got != n {
		return fmt.Errorf("expected %d events, got %d", n, got)
	}
	return nil
}

func (s *activitySteps) orderedNewestFirst(context.Context) error {
	events := s.tc.LastEvents()
	for i := 1; i < len(events); i++ {
		if audit.NewestFirst(events[i-1], events[i]) > 0 {
			return fmt.Errorf("event %d (id %d) sorts before event %d (id %d)",
				i+1, events[i].ID, i, events[i-1].ID)
		}
	}
	return nil
}

func (s *activitySteps) eventHasAction(_ context.Context, position int, action string) error {
	events := s.tc.LastEvents()
	if position < 1 || position > len(events) {
		return fmt.Errorf("no event at position %d (have %d)", position, len(events))
	}
	if got := events[position-1].Action; got != action {
		return fmt.Errorf("event %d: expected action %q, got %q", position, action, got)
	}
	return nil
}

func (s *activitySteps) everyEventHas(_ context.Context, field, expected string) error {
	for _, e := range s.tc.LastEvents() {
		var got string
		switch field {
		case "actorEmail":
			got = e.ActorEmail
		case "actorRole":
			got = e.ActorRole
		case "action":
			got = e.Action
		case "status":
			got = string(e.Status)
		}
		if got != expected {
			return fmt.Errorf("event %d: expected %s %q, got %q", e.ID, field, expected, got)
		}
	}
	return nil
}
