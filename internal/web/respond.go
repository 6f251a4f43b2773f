package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/applicheck/internal/check"
	"github.com/vbonduro/applicheck/internal/domain"
	"github.com/vbonduro/applicheck/internal/logging"
	"github.com/vbonduro/applicheck/internal/service"
)

const (
	headerUser = "X-User"
	headerOrg  = "X-Org"
)

// Error codes returned in the "code" field of error bodies.
const (
	codeNotFound        = "not_found"
	codeNoSession       = "no_session"
	codeInvalid         = "invalid"
	codeForbidden       = "forbidden"
	codeUnauthenticated = "unauthenticated"
	codeInProgress      = "check_in_progress"
	codeRedirect        = "redirect"
	codeUnavailable     = "unavailable"
	codeInternal        = "internal"
)

type errorBody struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Marker *domain.CheckMarker `json:"marker,omitempty"`
	View   *check.View         `json:"view,omitempty"`
}

type identityKey struct{}

// identify resolves the caller from request headers. The user is required;
// the organisation falls back to the server default.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get(headerUser))
		if user == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: headerUser + " header required", Code: codeUnauthenticated})
			return
		}
		org := strings.TrimSpace(r.Header.Get(headerOrg))
		if org == "" {
			org = s.defaultOrg
		}
		id := service.Identity{OrgID: org, User: user}
		ctx := context.WithValue(r.Context(), identityKey{}, id)
		ctx = logging.WithLogger(ctx, s.log(r).With("user", user, "org_id", org))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identity(r *http.Request) service.Identity {
	id, _ := r.Context().Value(identityKey{}).(service.Identity)
	return id
}

func (s *Server) log(r *http.Request) *slog.Logger {
	return logging.FromContext(r.Context(), s.logger)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg, Code: codeInvalid})
}

// writeError maps service and check errors onto HTTP statuses. Unexpected
// errors are logged and reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var inProgress *service.InProgressError
	switch {
	case errors.As(err, &inProgress):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: codeInProgress, Marker: inProgress.Marker})
	case errors.Is(err, service.ErrNoSession):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error(), Code: codeNoSession})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error(), Code: codeNotFound})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error(), Code: codeForbidden})
	case errors.Is(err, service.ErrVisionUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error(), Code: codeUnavailable})
	case service.IsValidationError(err):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Code: codeInvalid})
	case service.IsModelError(err):
		body := errorBody{Error: err.Error(), Code: codeRedirect}
		if v, verr := s.checks.View(r.Context(), identity(r), chi.URLParam(r, "id")); verr == nil {
			body.View = v
		}
		writeJSON(w, http.StatusConflict, body)
	default:
		s.log(r).Error(op+" failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: op + " failed", Code: codeInternal})
	}
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
