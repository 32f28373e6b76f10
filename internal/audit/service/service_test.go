package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	audit "activitylog/pkg/platform/audit"
	"activitylog/pkg/platform/audit/store/memory"
	"activitylog/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	store   *memory.InMemoryStore
	service *Service
	now     time.Time
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = memory.NewInMemoryStore(memory.WithClock(func() time.Time { return s.now }))
	s.service = New(s.store)
}

func (s *ServiceSuite) seed(age time.Duration, email, role, action, details string, status audit.Status) audit.Event {
	stored, err := s.store.Append(context.Background(), audit.Event{
		Timestamp:  s.now.Add(-age),
		ActorEmail: email,
		ActorName:  "Name of " + email,
		ActorRole:  role,
		Action:     action,
		Details:    details,
		Status:     status,
	})
	s.Require().NoError(err)
	return stored
}

func (s *ServiceSuite) seedFive() {
	s.seed(40*24*time.Hour, "old@example.com", "Subscriber", audit.ActionUserSignup, "User signed up successfully", audit.StatusSuccess)
	s.seed(3*24*time.Hour, "alice@example.com", "Subscriber", audit.ActionUserLogin, "User logged in successfully", audit.StatusSuccess)
	s.seed(20*time.Hour, "bob@example.com", "Admin", audit.ActionDomainAdded, "Added new domain: Finance", audit.StatusSuccess)
	s.seed(2*time.Hour, "mallory@example.com", "Unknown", audit.ActionLoginFailed, "Failed login attempt: bad password", audit.StatusFailed)
	s.seed(time.Minute, "bob@example.com", "Admin", audit.ActionDomainUpdated, "Updated domain: Finance", audit.StatusSuccess)
}

func actions(events []audit.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func (s *ServiceSuite) TestAllLogsNewestFirst() {
	s.seedFive()
	all, err := s.service.AllLogs(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{
		audit.ActionDomainUpdated,
		audit.ActionLoginFailed,
		audit.ActionDomainAdded,
		audit.ActionUserLogin,
		audit.ActionUserSignup,
	}, actions(all))
}

func (s *ServiceSuite) TestEmptyStoreReturnsEmptySlices() {
	all, err := s.service.AllLogs(s.ctx)
	s.Require().NoError(err)
	s.NotNil(all)
	s.Empty(all)

	found, err := s.service.SearchLogs(s.ctx, "anything")
	s.Require().NoError(err)
	s.NotNil(found)
	s.Empty(found)
}

func (s *ServiceSuite) TestRecentLogs() {
	s.seedFive()

	s.Run("limit smaller than log", func() {
		recent, err := s.service.RecentLogs(s.ctx, 3)
		s.Require().NoError(err)
		s.Equal([]string{audit.ActionDomainUpdated, audit.ActionLoginFailed, audit.ActionDomainAdded}, actions(recent))
	})

	s.Run("limit larger than log", func() {
		recent, err := s.service.RecentLogs(s.ctx, 1000)
		s.Require().NoError(err)
		s.Len(recent, 5)
	})

	s.Run("non positive limit", func() {
		recent, err := s.service.RecentLogs(s.ctx, 0)
		s.Require().NoError(err)
		s.Empty(recent)
		recent, err = s.service.RecentLogs(s.ctx, -5)
		s.Require().NoError(err)
		s.Empty(recent)
	})

	s.Run("store without pushdown", func() {
		svc := New(allOnlyStore{s.store})
		recent, err := svc.RecentLogs(s.ctx, 2)
		s.Require().NoError(err)
		s.Equal([]string{audit.ActionDomainUpdated, audit.ActionLoginFailed}, actions(recent))
	})
}

func (s *ServiceSuite) TestExactMatchQueries() {
	s.seedFive()

	byUser, err := s.service.LogsByUser(s.ctx, "bob@example.com")
	s.Require().NoError(err)
	s.Equal([]string{audit.ActionDomainUpdated, audit.ActionDomainAdded}, actions(byUser))

	byUpper, err := s.service.LogsByUser(s.ctx, "BOB@example.com")
	s.Require().NoError(err)
	s.Empty(byUpper)

	byAction, err := s.service.LogsByAction(s.ctx, audit.ActionUserLogin)
	s.Require().NoError(err)
	s.Len(byAction, 1)

	byRole, err := s.service.LogsByRole(s.ctx, "Subscriber")
	s.Require().NoError(err)
	s.Equal([]string{audit.ActionUserLogin, audit.ActionUserSignup}, actions(byRole))
}

func (s *ServiceSuite) TestLogsByDateRange() {
	s.seedFive()
	// 23:59 yesterday is outside today but inside 7days
	s.seed(18*time.Hour+time.Minute, "carol@example.com", "Subscriber", audit.ActionUserLogin, "", audit.StatusSuccess)

	tests := []struct {
		token string
		want  int
	}{
		{"today", 2},
		{"7days", 5},
		{"30days", 5},
		{"90days", 6},
		{"bogus", 5},
		{"", 5},
		{" TODAY ", 2},
	}
	for _, tt := range tests {
		s.Run(tt.token, func() {
			events, err := s.service.LogsByDateRange(s.ctx, tt.token)
			s.Require().NoError(err)
			s.Len(events, tt.want)
			for _, e := range events {
				s.False(e.Timestamp.After(s.now))
			}
		})
	}

	s.Run("today starts at utc midnight", func() {
		events, err := s.service.LogsByDateRange(s.ctx, "today")
		s.Require().NoError(err)
		midnight := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
		for _, e := range events {
			s.False(e.Timestamp.Before(midnight))
		}
	})
}

func (s *ServiceSuite) TestLogsWithFilters() {
	s.seedFive()

	s.Run("sentinels are ignored", func() {
		events, err := s.service.LogsWithFilters(s.ctx, Filters{
			Role:      AllUsers,
			Action:    AllActions,
			Status:    AllStatus,
			DateRange: "7days",
		})
		s.Require().NoError(err)
		s.Len(events, 4)
	})

	s.Run("all users with a concrete action", func() {
		events, err := s.service.LogsWithFilters(s.ctx, Filters{
			Role:      AllUsers,
			Action:    audit.ActionDomainAdded,
			DateRange: "30days",
		})
		s.Require().NoError(err)
		s.Equal([]string{audit.ActionDomainAdded}, actions(events))
	})

	s.Run("fields are and combined", func() {
		events, err := s.service.LogsWithFilters(s.ctx, Filters{
			Role:      "Admin",
			Status:    "SUCCESS",
			DateRange: "today",
		})
		s.Require().NoError(err)
		s.Equal([]string{audit.ActionDomainUpdated}, actions(events))
	})

	s.Run("missing date range defaults to seven days", func() {
		events, err := s.service.LogsWithFilters(s.ctx, Filters{Status: string(audit.StatusFailed)})
		s.Require().NoError(err)
		s.Equal([]string{audit.ActionLoginFailed}, actions(events))
	})

	s.Run("unknown status matches nothing", func() {
		events, err := s.service.LogsWithFilters(s.ctx, Filters{Status: "pending"})
		s.Require().NoError(err)
		s.Empty(events)
	})
}

func (s *ServiceSuite) TestSearchLogs() {
	s.seedFive()

	s.Run("matches action and details case insensitively", func() {
		events, err := s.service.SearchLogs(s.ctx, "LOGIN")
		s.Require().NoError(err)
		s.Equal([]string{audit.ActionLoginFailed, audit.ActionUserLogin}, actions(events))
	})

	s.Run("matches email and name", func() {
		events, err := s.service.SearchLogs(s.ctx, "  mallory ")
		s.Require().NoError(err)
		s.Equal([]string{audit.ActionLoginFailed}, actions(events))

		events, err = s.service.SearchLogs(s.ctx, "name of old")
		s.Require().NoError(err)
		s.Equal([]string{audit.ActionUserSignup}, actions(events))
	})

	s.Run("role is not searched", func() {
		events, err := s.service.SearchLogs(s.ctx, "subscriber")
		s.Require().NoError(err)
		s.Empty(events)
	})

	s.Run("blank term returns everything", func() {
		all, err := s.service.AllLogs(s.ctx)
		s.Require().NoError(err)
		for _, term := range []string{"", "   "} {
			events, err := s.service.SearchLogs(s.ctx, term)
			s.Require().NoError(err)
			s.Equal(all, events)
		}
	})

	s.Run("blank term honors configured cap", func() {
		svc := New(s.store, WithBlankSearchLimit(2))
		events, err := svc.SearchLogs(s.ctx, "")
		s.Require().NoError(err)
		s.Equal([]string{audit.ActionDomainUpdated, audit.ActionLoginFailed}, actions(events))
	})
}

func (s *ServiceSuite) TestReadsAreIdempotent() {
	s.seedFive()
	first, err := s.service.LogsWithFilters(s.ctx, Filters{Role: "Admin", DateRange: "30days"})
	s.Require().NoError(err)
	second, err := s.service.LogsWithFilters(s.ctx, Filters{Role: "Admin", DateRange: "30days"})
	s.Require().NoError(err)
	s.Equal(first, second)
}

func (s *ServiceSuite) TestStoreErrorsPropagate() {
	svc := New(brokenStore{})
	_, err := svc.AllLogs(s.ctx)
	s.Require().Error(err)
	s.True(audit.IsStorageError(err))

	_, err = svc.SearchLogs(s.ctx, "x")
	s.True(audit.IsStorageError(err))
}

// allOnlyStore hides the Recent pushdown of the wrapped store.
type allOnlyStore struct {
	inner audit.Store
}

func (a allOnlyStore) Append(ctx context.Context, e audit.Event) (audit.Event, error) {
	return a.inner.Append(ctx, e)
}

func (a allOnlyStore) All(ctx context.Context) ([]audit.Event, error) { return a.inner.All(ctx) }

func (a allOnlyStore) FindBy(ctx context.Context, p audit.Predicate) ([]audit.Event, error) {
	return a.inner.FindBy(ctx, p)
}

type brokenStore struct{}

func (brokenStore) Append(context.Context, audit.Event) (audit.Event, error) {
	return audit.Event{}, audit.NewStorageError("append", errors.New("down"))
}

func (brokenStore) All(context.Context) ([]audit.Event, error) {
	return nil, audit.NewStorageError("all", errors.New("down"))
}

func (brokenStore) FindBy(context.Context, audit.Predicate) ([]audit.Event, error) {
	return nil, audit.NewStorageError("find", errors.New("down"))
}
