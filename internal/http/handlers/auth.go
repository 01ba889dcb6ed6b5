package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/azielinski/slotwatch/internal/http/middleware"
	"github.com/azielinski/slotwatch/internal/medicover"
	"github.com/azielinski/slotwatch/pkg/logging"
)

// AuthHandler exchanges portal credentials for an owner token. The
// credentials are used once to establish the portal session and are never
// stored server-side.
type AuthHandler struct {
	pool     *ClientPool
	factory  ClientFactory
	secret   string
	tokenTTL time.Duration
	logger   *logging.Logger
}

func NewAuthHandler(pool *ClientPool, factory ClientFactory, secret string, tokenTTL time.Duration, logger *logging.Logger) *AuthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &AuthHandler{
		pool:     pool,
		factory:  factory,
		secret:   secret,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	OwnerID   string    `json:"ownerId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login verifies the credentials against the portal and hands out an owner
// JWT bound to a live client.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	client := h.factory(medicover.Credentials{Username: req.Username, Password: req.Password})
	if err := client.SignIn(r.Context()); err != nil {
		if errors.Is(err, medicover.ErrIncorrectLogin) {
			h.logger.Warn("login rejected by portal", "username", req.Username)
			writeError(w, http.StatusUnauthorized, "incorrect username or password")
			return
		}
		h.logger.Error("portal login failed", "error", err)
		writeError(w, http.StatusBadGateway, "portal login failed")
		return
	}

	ownerID := uuid.NewString()
	token, expires, err := middleware.IssueOwnerToken(h.secret, ownerID, h.tokenTTL)
	if err != nil {
		h.logger.Error("token signing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	h.pool.Bind(ownerID, client, expires)
	h.logger.Info("owner logged in", "owner", ownerID)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, OwnerID: ownerID, ExpiresAt: expires})
}
