package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"activitylog/internal/platform/config"
	"activitylog/internal/storage"
	audit "activitylog/pkg/platform/audit"
	"activitylog/pkg/platform/audit/store/memory"
)

type CLISuite struct {
	suite.Suite
	store *memory.InMemoryStore
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	s.T().Chdir(s.T().TempDir())
	s.store = memory.NewInMemoryStore()

	now := time.Now().UTC()
	seed := []audit.Event{
		{ActorEmail: "alice@example.com", ActorName: "Alice", ActorRole: "Subscriber", Action: audit.ActionUserSignup, Details: "User signed up successfully", Status: audit.StatusSuccess, Timestamp: now.Add(-40 * 24 * time.Hour)},
		{ActorEmail: "alice@example.com", ActorName: "Alice", ActorRole: "Subscriber", Action: audit.ActionUserLogin, Details: "User logged in successfully", Status: audit.StatusSuccess, Timestamp: now.Add(-2 * time.Hour)},
		{ActorEmail: "bob@example.com", ActorName: "Unknown", ActorRole: "Unknown", Action: audit.ActionLoginFailed, Details: "Failed login attempt: invalid password", Status: audit.StatusFailed, Timestamp: now.Add(-time.Hour)},
	}
	for _, e := range seed {
		_, err := s.store.Append(context.Background(), e)
		s.Require().NoError(err)
	}
}

func (s *CLISuite) run(args ...string) (string, error) {
	var out bytes.Buffer
	open := func(context.Context, *config.Config, *slog.Logger) (*storage.Handle, error) {
		return &storage.Handle{Store: s.store, Driver: config.DriverMemory}, nil
	}
	root := NewRootCommand(&out, open)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (s *CLISuite) events(args ...string) []audit.Event {
	out, err := s.run(args...)
	s.Require().NoError(err)
	var events []audit.Event
	s.Require().NoError(json.Unmarshal([]byte(out), &events))
	return events
}

func (s *CLISuite) TestQueries() {
	s.Len(s.events("all"), 3)
	s.Len(s.events("recent", "-n", "2"), 2)
	s.Len(s.events("user", "alice@example.com"), 2)
	s.Len(s.events("action", audit.ActionLoginFailed), 1)
	s.Len(s.events("role", "Subscriber"), 2)
	s.Len(s.events("range"), 2)
	s.Len(s.events("range", "90days"), 3)
	s.Len(s.events("filter", "--status", "failed"), 1)
	s.Len(s.events("filter", "--role", "Subscriber", "--range", "90days"), 2)
	s.Len(s.events("search", "LOGIN"), 2)
	s.Len(s.events("search"), 3)

	all := s.events("all")
	s.Equal(audit.ActionLoginFailed, all[0].Action)
}

func (s *CLISuite) TestRecord() {
	out, err := s.run("record",
		"--email", "ops@example.com",
		"--name", "Ops",
		"--role", "Admin",
		"--action", audit.ActionDomainAdded,
		"--details", "Added new domain: example.com",
		"--compact",
	)
	s.Require().NoError(err)

	var e audit.Event
	s.Require().NoError(json.Unmarshal([]byte(out), &e))
	s.Equal(int64(4), e.ID)
	s.Equal(audit.StatusSuccess, e.Status)
	s.Equal(4, s.store.Len())
}

func (s *CLISuite) TestRecordDerivesNameFromEmail() {
	out, err := s.run("record",
		"--email", "jane.doe@example.com",
		"--role", "Subscriber",
		"--action", audit.ActionUserLogin,
		"--failed",
	)
	s.Require().NoError(err)

	var e audit.Event
	s.Require().NoError(json.Unmarshal([]byte(out), &e))
	s.Equal("Jane Doe", e.ActorName)
	s.Equal(audit.StatusFailed, e.Status)
}

func (s *CLISuite) TestRecordRequiresActor() {
	_, err := s.run("record", "--action", audit.ActionUserLogin)
	s.Error(err)
	s.Equal(3, s.store.Len())
}

func (s *CLISuite) TestToken() {
	out, err := s.run("token", "--email", "ops@example.com")
	s.Require().NoError(err)

	var resp map[string]string
	s.Require().NoError(json.Unmarshal([]byte(out), &resp))
	s.NotEmpty(resp["access_token"])
	s.Equal("Bearer", resp["token_type"])
}
