package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/middleware"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type renewRequest struct {
	Email string `json:"email"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

// SessionView is the data of GET /auth/session.
type SessionView struct {
	Subject   string    `json:"subject"`
	Roles     []string  `json:"roles"`
	TokenID   string    `json:"tokenId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !decodeBody(w, r, &body, false) {
		return
	}

	tok, err := h.svc.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	goSession.WriteResponse(w, http.StatusOK, goSession.OK(tok.Token))
}

func (h *handlers) renew(w http.ResponseWriter, r *http.Request) {
	bearer, ok := middleware.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		goSession.WriteError(w, http.StatusUnauthorized, "Missing bearer token")
		return
	}

	var body renewRequest
	if !decodeBody(w, r, &body, true) {
		return
	}

	tok, err := h.svc.Renew(r.Context(), bearer, body.Email)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	goSession.WriteResponse(w, http.StatusOK, goSession.OK(tok.Token))
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if !decodeBody(w, r, &body, false) {
		return
	}

	view, err := h.svc.Register(r.Context(), goSession.RegisterRequest{
		Email:    body.Email,
		Password: body.Password,
		FullName: body.FullName,
	})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	goSession.WriteResponse(w, http.StatusCreated, goSession.OK(view))
}

func (h *handlers) session(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		goSession.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	goSession.WriteResponse(w, http.StatusOK, goSession.OK(SessionView{
		Subject:   res.Subject,
		Roles:     res.Roles,
		TokenID:   res.TokenID,
		ExpiresAt: res.ExpiresAt,
	}))
}

// decodeBody reads a JSON body into dst. An empty body is accepted only when
// allowEmpty is set. It writes the 400 response itself and reports false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		goSession.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return false
	}
	goSession.WriteError(w, http.StatusBadRequest, "Malformed JSON body")
	return false
}

func (h *handlers) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, messages := failureResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	goSession.WriteError(w, status, messages...)
}

// failureResponse maps engine errors onto status codes and client-safe messages.
func failureResponse(err error) (int, []string) {
	var verr *goSession.ValidationError
	switch {
	case errors.As(err, &verr):
		if len(verr.Messages) == 0 {
			return http.StatusBadRequest, []string{"Invalid request"}
		}
		return http.StatusBadRequest, verr.Messages
	case errors.Is(err, goSession.ErrInvalidCredentials):
		return http.StatusUnauthorized, []string{"Invalid email or password"}
	case errors.Is(err, goSession.ErrIdentityMismatch):
		return http.StatusUnauthorized, []string{"Token does not belong to this account"}
	case errors.Is(err, goSession.ErrUnauthorized):
		return http.StatusUnauthorized, []string{"Invalid token"}
	case errors.Is(err, goSession.ErrForbidden):
		return http.StatusForbidden, []string{"Insufficient permissions"}
	case errors.Is(err, goSession.ErrIdentityNotFound):
		return http.StatusNotFound, []string{"Account not found"}
	case errors.Is(err, goSession.ErrIdentityExists):
		return http.StatusConflict, []string{"An account with this email already exists"}
	case errors.Is(err, goSession.ErrAccountCreationDisabled):
		return http.StatusForbidden, []string{"Registration is disabled"}
	case errors.Is(err, goSession.ErrLoginRateLimited),
		errors.Is(err, goSession.ErrRenewRateLimited):
		return http.StatusTooManyRequests, []string{"Too many attempts, try again later"}
	case errors.Is(err, goSession.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, []string{"Service unavailable"}
	default:
		return http.StatusInternalServerError, []string{"Internal server error"}
	}
}
