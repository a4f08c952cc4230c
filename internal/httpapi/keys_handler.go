package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ai_gateway/internal/auth"
	"ai_gateway/internal/middleware"
	"ai_gateway/internal/models"
	"ai_gateway/internal/storage"
	"ai_gateway/internal/utils"
)

// KeyStore is the credential store contract the handler needs.
type KeyStore interface {
	Replace(ctx context.Context, key *models.APIKey) error
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.APIKey, error)
	DeleteByAccountID(ctx context.Context, accountID uuid.UUID) error
}

// KeysHandler handles the per-account credential management endpoints.
type KeysHandler struct {
	keys   KeyStore
	logger *utils.Logger
}

// NewKeysHandler creates a new keys handler
func NewKeysHandler(keys KeyStore) *KeysHandler {
	return &KeysHandler{
		keys:   keys,
		logger: utils.NewLogger("keys", utils.Info),
	}
}

// GenerateKeyResponse carries the plaintext exactly once; it is not
// reconstructable from stored state afterwards.
type GenerateKeyResponse struct {
	Message   string `json:"message"`
	APIKey    string `json:"apiKey"`
	MaskedKey string `json:"maskedKey"`
}

// CurrentKeyResponse never exposes the secret or its hash.
type CurrentKeyResponse struct {
	HasKey    bool       `json:"hasKey"`
	MaskedKey *string    `json:"maskedKey"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Generate handles POST /api/keys/generate - issue or rotate the
// account's credential. Any prior credential is invalidated in the same
// transaction that stores the new one.
func (h *KeysHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	plaintext, err := auth.GenerateAPIKey()
	if err != nil {
		h.logger.Error("key generation failed", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate API key")
		return
	}

	hash, err := auth.HashAPIKey(plaintext)
	if err != nil {
		h.logger.Error("key hashing failed", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate API key")
		return
	}

	key := &models.APIKey{
		AccountID: accountID,
		KeyHash:   hash,
		KeyPrefix: auth.KeyPrefix(plaintext),
		KeySuffix: auth.KeySuffix(plaintext),
	}

	if err := h.keys.Replace(r.Context(), key); err != nil {
		h.logger.Error("key replacement failed", "account", accountID, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate API key")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, GenerateKeyResponse{
		Message:   "API key generated successfully",
		APIKey:    plaintext,
		MaskedKey: key.Masked(),
	})
}

// Current handles GET and DELETE on /api/keys/current.
func (h *KeysHandler) Current(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.current(w, r)
	case http.MethodDelete:
		h.revoke(w, r)
	default:
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// current returns whether a credential exists and its masked display form.
func (h *KeysHandler) current(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	key, err := h.keys.GetByAccountID(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, storage.ErrAPIKeyNotFound) {
			utils.RespondWithJSON(w, http.StatusOK, CurrentKeyResponse{
				HasKey:    false,
				MaskedKey: nil,
			})
			return
		}
		h.logger.Error("key lookup failed", "account", accountID, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve API key")
		return
	}

	masked := key.Masked()
	utils.RespondWithJSON(w, http.StatusOK, CurrentKeyResponse{
		HasKey:    true,
		MaskedKey: &masked,
		CreatedAt: &key.CreatedAt,
	})
}

// revoke deletes the account's credential if present. Idempotent.
func (h *KeysHandler) revoke(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	if err := h.keys.DeleteByAccountID(r.Context(), accountID); err != nil {
		h.logger.Error("key deletion failed", "account", accountID, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete API key")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// requireAccountID pulls the session account ID from the context and
// parses it, rejecting the request if either step fails.
func requireAccountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr, ok := middleware.GetAccountID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing session")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid session")
		return uuid.Nil, false
	}
	return id, true
}
