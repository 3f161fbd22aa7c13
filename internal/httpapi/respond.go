package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kitbuilder587/agentbots/internal/agent"
	"github.com/kitbuilder587/agentbots/internal/domain"
	"github.com/kitbuilder587/agentbots/internal/llm"
	"github.com/kitbuilder587/agentbots/internal/schema"
)

type errorBody struct {
	Detail string `json:"detail"`
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, errorBody{Detail: message})
}

// handleError maps domain errors to status codes. Anything unrecognised is
// logged in full and answered with a generic 500.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var schemaErr *schema.ValidationError

	switch {
	case errors.Is(err, domain.ErrBotAlreadyRunning):
		s.errorResponse(w, http.StatusBadRequest, "Bot is already running.")
	case errors.Is(err, domain.ErrBotNotFound):
		s.errorResponse(w, http.StatusNotFound, "Bot not found.")
	case errors.Is(err, domain.ErrBotNotRunning):
		s.errorResponse(w, http.StatusNotFound, "Bot is not running.")
	case errors.Is(err, domain.ErrWebhookRemoval):
		s.errorResponse(w, http.StatusConflict, "Bot stopped, but its webhook could not be removed.")
	case errors.As(err, &schemaErr),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrEmptyIdentity),
		errors.Is(err, domain.ErrEmptyAgentName),
		errors.Is(err, domain.ErrNoCredential):
		s.errorResponse(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, agent.ErrInvalidOutput):
		s.errorResponse(w, http.StatusBadGateway, "Agent returned output that does not match the schema.")
	case errors.Is(err, llm.ErrAuthFailed),
		errors.Is(err, llm.ErrRateLimit),
		errors.Is(err, llm.ErrRequestFailed),
		errors.Is(err, llm.ErrEmptyResponse):
		s.logger.Warn("llm upstream failure",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		s.errorResponse(w, http.StatusBadGateway, "LLM request failed.")
	case errors.Is(err, domain.ErrUpstream):
		s.logger.Error("upstream failure",
			zap.String("method", r.Method),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		s.errorResponse(w, http.StatusInternalServerError, "Upstream service failed.")
	default:
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		s.errorResponse(w, http.StatusInternalServerError, "Internal server error.")
	}
}

// decodeJSON writes the error response itself and reports whether the
// handler should continue.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		msg := "Invalid JSON body."
		if errors.Is(err, io.EOF) {
			msg = "Request body is empty."
		}
		s.errorResponse(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

func (s *Server) validateBody(w http.ResponseWriter, v any) bool {
	err := s.validate.Struct(v)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		s.errorResponse(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s: failed %q", jsonFieldName(fe), fe.Tag()))
	}
	s.errorResponse(w, http.StatusUnprocessableEntity, strings.Join(problems, "; "))
	return false
}

func jsonFieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

// identityParam is trimmed the same way BotConfig.Normalize trims on start,
// so every route addresses the stored record.
func identityParam(r *http.Request) string {
	v := chi.URLParam(r, "identity")
	if u, err := url.PathUnescape(v); err == nil {
		v = u
	}
	return strings.TrimSpace(v)
}
