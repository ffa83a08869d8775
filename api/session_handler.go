package api

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/inkwell/errs"
	"github.com/rpupo63/inkwell/session"
)

type sessionHandler struct {
	responder Responder
	logger    zerolog.Logger
	gate      *session.Gate
	tokens    tokenIssuer
}

func newSessionHandler(gate *session.Gate, tokens tokenIssuer) sessionHandler {
	logger := log.With().Str("handlerName", "sessionHandler").Logger()

	return sessionHandler{
		responder: NewResponder(logger),
		logger:    logger,
		gate:      gate,
		tokens:    tokens,
	}
}

// getSession describes the caller's session
// @Summary Get session
// @Description Reports whether the caller holds a current admin token and whether an admin password has been set
// @Tags Session
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error reading credential"
// @Router /session [get]
func (h sessionHandler) getSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exists, err := h.gate.CredentialExists(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, SessionResponse{
			IsAdmin:          ctxIsAdmin(r.Context()),
			CredentialExists: exists,
		})
	}
}

// login authenticates the admin. The first login ever sets the password.
// @Summary Log in
// @Tags Session
// @Accept json
// @Produce json
// @Param login body LoginRequest true "Admin password"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse "Bad Request - Missing password"
// @Failure 401 {object} ErrorResponse "Unauthorized - Wrong password"
// @Failure 429 {object} ErrorResponse "Too Many Requests"
// @Router /session/login [post]
func (h sessionHandler) login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if req.Password == "" {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("password"))
			return
		}

		ok, err := h.gate.Login(r.Context(), req.Password)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if !ok {
			h.logger.Warn().Str("remote_addr", r.RemoteAddr).Msg("Failed admin login")
			h.responder.WriteError(w, errs.NewInvalidCredentialError())
			return
		}

		token, expiresAt, err := h.tokens.issue(h.gate.Epoch())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.logger.Info().Msg("Admin logged in")
		h.responder.WriteJSON(w, LoginResponse{Token: token, ExpiresAt: expiresAt.UTC()})
	}
}

// logout ends the admin session and invalidates every issued token
// @Summary Log out
// @Tags Session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} StatusResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /session/logout [post]
func (h sessionHandler) logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.gate.Logout()
		h.logger.Info().Msg("Admin logged out")
		h.responder.WriteJSON(w, StatusResponse{Status: "ok"})
	}
}
