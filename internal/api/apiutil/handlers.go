package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Rollcall/internal/api/authz"
	"github.com/codr1/Rollcall/internal/apperr"
)

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

type errorResponse struct {
	Error string `json:"error"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// StatusForError maps the apperr kinds onto HTTP status codes.
func StatusForError(err error) int {
	var handlerErr HandlerError
	switch {
	case errors.As(err, &handlerErr):
		return handlerErr.Status
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError logs err and writes it as a JSON error body. Server errors get a
// generic message so stored content never leaks to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusForError(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = http.StatusText(status)
		log.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("Request failed")
	} else {
		log.Ctx(r.Context()).Debug().Err(err).Int("status", status).Msg("Request rejected")
	}
	if writeErr := WriteJSON(w, status, errorResponse{Error: message}); writeErr != nil {
		log.Ctx(r.Context()).Error().Err(writeErr).Msg("Failed to write error response")
	}
}

func RequireTeamManager(w http.ResponseWriter, r *http.Request, roles authz.RoleLookup, teamID int64) bool {
	logger := log.Ctx(r.Context())
	user := authz.UserFromContext(r.Context())
	if err := authz.RequireTeamManager(r.Context(), roles, teamID); err != nil {
		switch {
		case errors.Is(err, authz.ErrUnauthenticated):
			logger.Warn().Int64("team_id", teamID).Msg("Team access denied: unauthenticated")
			WriteError(w, r, HandlerError{Status: http.StatusUnauthorized, Message: "Unauthorized", Err: err})
		case errors.Is(err, authz.ErrForbidden):
			logEvent := logger.Warn().Int64("team_id", teamID)
			if user != nil {
				logEvent = logEvent.Int64("user_id", user.ID)
			}
			logEvent.Msg("Team access denied: not a manager")
			WriteError(w, r, HandlerError{Status: http.StatusForbidden, Message: "Forbidden", Err: err})
		default:
			logEvent := logger.Error().Int64("team_id", teamID).Err(err)
			if user != nil {
				logEvent = logEvent.Int64("user_id", user.ID)
			}
			logEvent.Msg("Team access denied: error")
			WriteError(w, r, HandlerError{Status: http.StatusInternalServerError, Message: "Failed to authorize request", Err: err})
		}
		return false
	}
	return true
}
