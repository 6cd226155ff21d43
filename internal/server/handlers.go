package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/ig-profile-proxy/pkg/metrics"
	"github.com/Sternrassler/ig-profile-proxy/pkg/profile"
)

// usernamePattern matches Instagram handles: letters, digits, '.' and '_'.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._]+$`)

const usernameRules = "required,max=30,ig_username"

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("ig_username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// errorResponse maps a lookup error to a status and client-facing detail.
func errorResponse(err error) (int, string) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusGatewayTimeout, "Request timed out"
	}

	switch profile.KindOf(err) {
	case profile.KindNotFound:
		return http.StatusNotFound, "User not found"
	case profile.KindPrivate:
		return http.StatusForbidden, "Profile is private"
	case profile.KindUpstreamUnavailable:
		return http.StatusBadGateway, "Error fetching Instagram data"
	case profile.KindMalformedResponse:
		return http.StatusBadGateway, "Error parsing Instagram data"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	logger := zerolog.Ctx(r.Context())

	if err := s.validate.Var(username, usernameRules); err != nil {
		logger.Debug().Str("username", username).Err(err).Msg("Rejected username")
		writeError(w, http.StatusBadRequest, "Invalid username")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	rec, err := s.config.Profiles.GetProfile(ctx, username)
	if err != nil {
		status, detail := errorResponse(err)
		logger.Info().
			Str("username", username).
			Str("error_kind", string(profile.KindOf(err))).
			Int("status", status).
			Err(err).
			Msg("Lookup failed")
		writeError(w, status, detail)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.config.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := s.config.Health.Ping(ctx); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Cache not ready")
			writeError(w, http.StatusServiceUnavailable, "Cache unavailable")
			return
		}
	}
	handleHealth(w, r)
}

func metricsHandler() http.Handler {
	return metrics.Handler()
}
