package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "activitylog/pkg/platform/audit"
	"activitylog/pkg/requestcontext"
	"activitylog/pkg/testutil"
)

const eventsPath = "/api/audit-logs/events"

type recorderFunc func(ctx context.Context, email, name, role, action, details string, status audit.Status) audit.Event

func (f recorderFunc) Record(ctx context.Context, email, name, role, action, details string, status audit.Status) audit.Event {
	return f(ctx, email, name, role, action, details, status)
}

func TestRecordHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var got []audit.Event
	var nextID int64
	var lastCtx context.Context
	rec := recorderFunc(func(ctx context.Context, email, name, role, action, details string, status audit.Status) audit.Event {
		e := audit.Event{ActorEmail: email, ActorName: name, ActorRole: role, Action: action, Details: details, Status: status}
		got = append(got, e)
		lastCtx = ctx
		e.ID = nextID
		return e
	})

	router := chi.NewRouter()
	router.Route("/api/audit-logs", NewRecordHandler(rec, logger).Register)

	login := RecordRequest{
		ActorEmail: "a@example.com",
		ActorName:  "A",
		ActorRole:  "Subscriber",
		Action:     audit.ActionUserLogin,
		Details:    "User logged in successfully",
		Status:     "SUCCESS",
	}

	testutil.Given(t, "a recorder that stores events", func(t *testing.T) {
		got, nextID = nil, 7

		testutil.When(t, "a complete event is posted", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, eventsPath, login))

			testutil.Then(t, "it responds 201 with the stored event", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusCreated)
				e := testutil.UnmarshalResponse[audit.Event](t, rr)
				assert.Equal(t, int64(7), e.ID)
				require.Len(t, got, 1)
				assert.Equal(t, audit.StatusSuccess, got[0].Status)
			})
		})
	})

	testutil.Given(t, "a recorder that drops or queues events", func(t *testing.T) {
		got, nextID = nil, 0
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, eventsPath, login))

		testutil.Then(t, "it responds 202", func(t *testing.T) {
			testutil.AssertStatus(t, rr, http.StatusAccepted)
		})
	})

	testutil.Given(t, "an authenticated caller", func(t *testing.T) {
		got, nextID = nil, 1
		req := testutil.NewJSONRequest(t, http.MethodPost, eventsPath, RecordRequest{
			Action:  audit.ActionDomainAdded,
			Details: "Added new domain: example.com",
			Status:  "success",
		})
		req = testutil.WithCaller(req, "ops@example.com", "Ops", "Admin")
		rr := testutil.DoRequest(router, req)

		testutil.Then(t, "missing actor fields come from the caller", func(t *testing.T) {
			testutil.AssertStatus(t, rr, http.StatusCreated)
			require.Len(t, got, 1)
			assert.Equal(t, "ops@example.com", got[0].ActorEmail)
			assert.Equal(t, "Ops", got[0].ActorName)
			assert.Equal(t, "Admin", got[0].ActorRole)
		})
		testutil.And(t, "details are passed through", func(t *testing.T) {
			require.Len(t, got, 1)
			assert.Equal(t, "Added new domain: example.com", got[0].Details)
		})
	})

	testutil.Given(t, "request metadata in the context", func(t *testing.T) {
		got, nextID = nil, 2
		at := time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)
		req := testutil.NewJSONRequest(t, http.MethodPost, eventsPath, login)
		req = testutil.WithClientIP(testutil.WithRequestTime(req, at), "198.51.100.4")
		testutil.DoRequest(router, req)

		testutil.Then(t, "the recorder sees the request clock and client address", func(t *testing.T) {
			require.NotNil(t, lastCtx)
			assert.Equal(t, at, requestcontext.Now(lastCtx))
			assert.Equal(t, "198.51.100.4", requestcontext.ClientIP(lastCtx))
		})
	})

	testutil.When(t, "the body is invalid", func(t *testing.T) {
		got = nil

		rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, eventsPath, `{`))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")

		bad := login
		bad.Status = "maybe"
		rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, eventsPath, bad))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

		bad = login
		bad.Action = ""
		rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, eventsPath, bad))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

		testutil.Then(t, "nothing is recorded", func(t *testing.T) {
			assert.Empty(t, got)
		})
	})
}
