package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	dErrors "activitylog/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})

	t.Run("plain errors are treated as internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("boom"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})
}

func TestQueryInt(t *testing.T) {
	cases := map[string]int{
		"/recent":            100,
		"/recent?limit=3":    3,
		"/recent?limit=-1":   -1,
		"/recent?limit=abc":  100,
		"/recent?limit=%20":  100,
		"/recent?limit=1000": 1000,
	}
	for target, want := range cases {
		r := httptest.NewRequest(http.MethodGet, target, nil)
		if got := QueryInt(r, "limit", 100); got != want {
			t.Fatalf("%s: expected %d, got %d", target, want, got)
		}
	}
}

func TestQueryString(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/filter?action=%20DOMAIN_ADDED%20&status=%20", nil)
	if got := QueryString(r, "action", ""); got != "DOMAIN_ADDED" {
		t.Fatalf("expected trimmed action, got %q", got)
	}
	if got := QueryString(r, "status", "All Status"); got != "All Status" {
		t.Fatalf("expected default for blank parameter, got %q", got)
	}
	if got := QueryString(r, "dateRange", "7days"); got != "7days" {
		t.Fatalf("expected default for absent parameter, got %q", got)
	}
}
