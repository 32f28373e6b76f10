// Package e2e runs the Gherkin scenarios in features/ against the full HTTP
// stack served from an in-process test server.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"activitylog/internal/audit/handler"
	"activitylog/internal/audit/service"
	httpapi "activitylog/internal/http"
	jwttoken "activitylog/internal/jwt_token"
	audit "activitylog/pkg/platform/audit"
	"activitylog/pkg/platform/audit/recorder"
	"activitylog/pkg/platform/audit/store/memory"
)

const adminRole = "Admin"

// TestContext holds per-scenario state shared by the step packages.
type TestContext struct {
	server *httptest.Server
	client *http.Client
	jwt    *jwttoken.JWTService
	store  *memory.InMemoryStore

	accessToken  string
	lastStatus   int
	lastBody     []byte
	lastEvents   []audit.Event
	clientHeader string
}

// NewTestContext starts a fresh server backed by an empty in-memory store.
func NewTestContext() *TestContext {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewInMemoryStore()
	jwt := jwttoken.NewJWTService("e2e-signing-key", "activitylog", "activitylog-api")

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:    logger,
		Validator: jwttoken.NewJWTServiceAdapter(jwt),
		AdminRole: adminRole,
		AuditLogs: handler.New(service.New(store, service.WithLogger(logger)), logger, 0),
		Events:    handler.NewRecordHandler(recorder.New(store, recorder.WithLogger(logger)), logger),
	})

	return &TestContext{
		server: httptest.NewServer(router),
		client: &http.Client{Timeout: 5 * time.Second},
		jwt:    jwt,
		store:  store,
	}
}

// Close stops the server.
func (tc *TestContext) Close() {
	tc.server.Close()
}

// Authenticate mints a token for the given role and uses it on later requests.
func (tc *TestContext) Authenticate(email, role string) error {
	token, err := tc.jwt.GenerateAccessToken(email, "E2E "+role, role, time.Hour)
	if err != nil {
		return err
	}
	tc.accessToken = token
	return nil
}

func (tc *TestContext) ClearAuthentication() {
	tc.accessToken = ""
}

// SetClientAddress sends X-Forwarded-For on later requests.
func (tc *TestContext) SetClientAddress(ip string) {
	tc.clientHeader = ip
}

// Seed appends an event directly to the store, bypassing HTTP.
func (tc *TestContext) Seed(ctx context.Context, event audit.Event) error {
	_, err := tc.store.Append(ctx, event)
	return err
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) POST(path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return tc.do(http.MethodPost, path, bytes.NewReader(payload))
}

func (tc *TestContext) do(method, path string, body io.Reader) error {
	req, err := http.NewRequest(method, tc.server.URL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.accessToken)
	}
	if tc.clientHeader != "" {
		req.Header.Set("X-Forwarded-For", tc.clientHeader)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastEvents = nil
	if resp.StatusCode == http.StatusOK && bytes.HasPrefix(bytes.TrimSpace(tc.lastBody), []byte("[")) {
		if err := json.Unmarshal(tc.lastBody, &tc.lastEvents); err != nil {
			return fmt.Errorf("decode events: %w", err)
		}
	}
	return nil
}

func (tc *TestContext) LastStatus() int {
	return tc.lastStatus
}

// LastEvents returns the events decoded from the last 200 list response.
func (tc *TestContext) LastEvents() []audit.Event {
	return tc.lastEvents
}

// ResponseField reads a top-level field from the last JSON object response.
func (tc *TestContext) ResponseField(field string) (any, error) {
	var obj map[string]any
	if err := json.Unmarshal(tc.lastBody, &obj); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	v, ok := obj[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response: %s", field, tc.lastBody)
	}
	return v, nil
}
