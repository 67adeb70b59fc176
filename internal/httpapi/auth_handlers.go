package httpapi

import (
	"net/http"
	"time"

	"gatehouse.org/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, expiresAt, err := a.auth.Authenticate(r.Context(), req.Username, req.Password, originFrom(r))
	if err != nil {
		failAuth(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresAt: expiresAt,
	})
}

type refreshRequest struct {
	Token string `json:"token"`
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		// Fall back to the Authorization header for clients that refresh
		// with their current bearer token.
		tok, hdrErr := extractBearerToken(r.Header.Get(authHeader))
		if hdrErr != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		req.Token = tok
	}

	token, expiresAt, err := a.auth.Refresh(r.Context(), req.Token, originFrom(r))
	if err != nil {
		failAuth(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresAt: expiresAt,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, id)
}
