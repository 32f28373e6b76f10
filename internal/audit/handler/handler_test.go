package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"activitylog/internal/audit/handler/mocks"
	"activitylog/internal/audit/service"
	audit "activitylog/pkg/platform/audit"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	events  []audit.Event
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	s.router.Route("/api/audit-logs", New(s.service, logger, 0).Register)

	s.events = []audit.Event{{
		ID:         2,
		Timestamp:  time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
		ActorEmail: "alice@example.com",
		ActorName:  "Alice",
		ActorRole:  "Subscriber",
		Action:     audit.ActionUserLogin,
		Details:    "User logged in successfully",
		Status:     audit.StatusSuccess,
	}}
}

func (s *HandlerSuite) get(target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerSuite) decode(w *httptest.ResponseRecorder) []map[string]any {
	var body []map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (s *HandlerSuite) TestAll() {
	s.service.EXPECT().AllLogs(gomock.Any()).Return(s.events, nil)

	w := s.get("/api/audit-logs/")
	s.Equal(http.StatusOK, w.Code)
	s.Equal("application/json", w.Header().Get("Content-Type"))

	body := s.decode(w)
	s.Require().Len(body, 1)
	s.Equal("alice@example.com", body[0]["actorEmail"])
	s.Equal("USER_LOGIN", body[0]["action"])
	s.Equal("success", body[0]["status"])
	s.Equal("2024-06-15T12:00:00Z", body[0]["timestamp"])
	s.NotContains(body[0], "sourceAddress")
}

func (s *HandlerSuite) TestRecentLimit() {
	s.Run("explicit limit", func() {
		s.service.EXPECT().RecentLogs(gomock.Any(), 5).Return(s.events, nil)
		s.Equal(http.StatusOK, s.get("/api/audit-logs/recent?limit=5").Code)
	})

	s.Run("missing limit uses default", func() {
		s.service.EXPECT().RecentLogs(gomock.Any(), DefaultRecentLimit).Return(s.events, nil)
		s.Equal(http.StatusOK, s.get("/api/audit-logs/recent").Code)
	})

	s.Run("bad limit uses default", func() {
		s.service.EXPECT().RecentLogs(gomock.Any(), DefaultRecentLimit).Return(s.events, nil)
		s.Equal(http.StatusOK, s.get("/api/audit-logs/recent?limit=abc").Code)
	})
}

func (s *HandlerSuite) TestPathQueries() {
	s.service.EXPECT().LogsByUser(gomock.Any(), "alice@example.com").Return(s.events, nil)
	s.Equal(http.StatusOK, s.get("/api/audit-logs/user/alice@example.com").Code)

	s.service.EXPECT().LogsByAction(gomock.Any(), "DOMAIN_ADDED").Return(nil, nil)
	w := s.get("/api/audit-logs/action/DOMAIN_ADDED")
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`[]`, w.Body.String())

	s.service.EXPECT().LogsByRole(gomock.Any(), "Admin").Return(s.events, nil)
	s.Equal(http.StatusOK, s.get("/api/audit-logs/role/Admin").Code)

	s.service.EXPECT().LogsByDateRange(gomock.Any(), "30days").Return(s.events, nil)
	s.Equal(http.StatusOK, s.get("/api/audit-logs/date-range/30days").Code)
}

func (s *HandlerSuite) TestFilter() {
	s.Run("all parameters", func() {
		s.service.EXPECT().LogsWithFilters(gomock.Any(), service.Filters{
			Role:      "All Users",
			Action:    "USER_LOGIN",
			Status:    "failed",
			DateRange: "today",
		}).Return(s.events, nil)

		w := s.get("/api/audit-logs/filter?userRole=All+Users&action=USER_LOGIN&status=failed&dateRange=today")
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("date range defaults to seven days", func() {
		s.service.EXPECT().LogsWithFilters(gomock.Any(), service.Filters{DateRange: "7days"}).Return(nil, nil)
		s.Equal(http.StatusOK, s.get("/api/audit-logs/filter").Code)
	})
}

func (s *HandlerSuite) TestSearch() {
	s.service.EXPECT().SearchLogs(gomock.Any(), " login ").Return(s.events, nil)
	s.Equal(http.StatusOK, s.get("/api/audit-logs/search?searchTerm=%20login%20").Code)

	s.service.EXPECT().SearchLogs(gomock.Any(), "").Return(s.events, nil)
	s.Equal(http.StatusOK, s.get("/api/audit-logs/search").Code)
}

func (s *HandlerSuite) TestStorageErrorIsInternal() {
	s.service.EXPECT().AllLogs(gomock.Any()).Return(nil, audit.NewStorageError("all", errors.New("connection refused")))

	w := s.get("/api/audit-logs/")
	s.Equal(http.StatusInternalServerError, w.Code)
	s.JSONEq(`{"error":"internal_error"}`, w.Body.String())
}
