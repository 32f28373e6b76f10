package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "activitylog/pkg/domain-errors"
	audit "activitylog/pkg/platform/audit"
	"activitylog/pkg/platform/httputil"
	"activitylog/pkg/requestcontext"
)

const maxRecordBody = 16 << 10

// Recorder is the write side used by collaborators running out of process.
type Recorder interface {
	Record(ctx context.Context, actorEmail, actorName, actorRole, action, details string, status audit.Status) audit.Event
}

// RecordRequest is the body of POST /events. Missing actor fields are taken
// from the authenticated caller.
type RecordRequest struct {
	ActorEmail string `json:"actorEmail"`
	ActorName  string `json:"actorName"`
	ActorRole  string `json:"actorRole"`
	Action     string `json:"action"`
	Details    string `json:"details"`
	Status     string `json:"status"`
}

// RecordHandler accepts activity events over HTTP.
type RecordHandler struct {
	recorder Recorder
	logger   *slog.Logger
}

func NewRecordHandler(recorder Recorder, logger *slog.Logger) *RecordHandler {
	return &RecordHandler{recorder: recorder, logger: logger}
}

func (h *RecordHandler) Register(r chi.Router) {
	r.Post("/events", h.handleRecord)
}

// handleRecord responds 201 with the stored event, or 202 when the event was
// queued or dropped by the recorder.
func (h *RecordHandler) handleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RecordRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBody)).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON body"))
		return
	}

	if caller, ok := requestcontext.Actor(ctx); ok {
		req.ActorEmail = firstNonEmpty(req.ActorEmail, caller.Email)
		req.ActorName = firstNonEmpty(req.ActorName, caller.Name)
		req.ActorRole = firstNonEmpty(req.ActorRole, caller.Role)
	}
	status, ok := audit.ParseStatus(req.Status)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "status must be success or failed"))
		return
	}
	if err := audit.Validate(audit.Event{
		ActorEmail: req.ActorEmail,
		ActorName:  req.ActorName,
		ActorRole:  req.ActorRole,
		Action:     req.Action,
		Status:     status,
	}); err != nil {
		httputil.WriteError(w, err)
		return
	}

	event := h.recorder.Record(ctx, req.ActorEmail, req.ActorName, req.ActorRole, req.Action, req.Details, status)
	if event.ID == 0 {
		h.logger.InfoContext(ctx, "activity event accepted without id",
			"request_id", requestcontext.RequestID(ctx),
			"action", event.Action,
		)
		httputil.WriteJSON(w, http.StatusAccepted, event)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, event)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
