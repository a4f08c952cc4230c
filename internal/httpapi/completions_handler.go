package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"ai_gateway/internal/auth"
	"ai_gateway/internal/logging"
	"ai_gateway/internal/metering"
	"ai_gateway/internal/models"
	"ai_gateway/internal/ratelimit"
	"ai_gateway/internal/utils"
)

// MaxPromptLength is the upper bound on prompt size, in characters.
const MaxPromptLength = 5000

// CompletionsHandler serves the protected completion endpoint. It
// sequences request validation, credential verification, the metering
// transaction and the stub compute.
//
// There is no idempotency key: a request that times out after the debit
// committed was charged, and a caller retry is a fresh charge.
type CompletionsHandler struct {
	keys      auth.APIKeyStore
	metering  metering.Service
	limiter   ratelimit.Limiter
	accessLog *logging.AccessLogger
	logger    *utils.Logger
}

// NewCompletionsHandler creates the protected completions handler.
func NewCompletionsHandler(keys auth.APIKeyStore, meteringService metering.Service, limiter ratelimit.Limiter, accessLog *logging.AccessLogger) *CompletionsHandler {
	return &CompletionsHandler{
		keys:      keys,
		metering:  meteringService,
		limiter:   limiter,
		accessLog: accessLog,
		logger:    utils.NewLogger("completions", utils.Info),
	}
}

// CompletionRequest is the body of POST /v1/chat/completions
type CompletionRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// CompletionResponse is the success body, carrying the post-debit balance.
type CompletionResponse struct {
	ID               string `json:"id"`
	Model            string `json:"model"`
	Reply            string `json:"reply"`
	CreditsRemaining int    `json:"credits_remaining"`
}

// ServeHTTP handles POST /v1/chat/completions
func (h *CompletionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status, accountID := h.handle(w, r)

	if h.accessLog != nil {
		h.accessLog.Log(logging.AccessEntry{
			Method:     r.Method,
			Path:       r.URL.Path,
			Status:     status,
			AccountID:  accountID,
			DurationMS: time.Since(start).Milliseconds(),
		})
	}
}

// handle runs the request pipeline and returns the response status and
// the resolved account id (empty before verification) for access logging.
func (h *CompletionsHandler) handle(w http.ResponseWriter, r *http.Request) (int, string) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return http.StatusMethodNotAllowed, ""
	}

	// Bearer header shape is checked before touching the body or the store.
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
		return http.StatusUnauthorized, ""
	}
	apiKey := strings.TrimPrefix(authHeader, "Bearer ")
	if apiKey == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "API key is required")
		return http.StatusUnauthorized, ""
	}

	var req CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return http.StatusBadRequest, ""
	}

	if req.Model == "" || req.Prompt == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Model and prompt are required")
		return http.StatusBadRequest, ""
	}
	if strings.TrimSpace(req.Prompt) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Prompt must be a non-empty string")
		return http.StatusBadRequest, ""
	}

	// Computed once here; the same value flows unchanged into the audit
	// entry on every path below.
	promptLength := utf8.RuneCountInString(req.Prompt)
	if promptLength > MaxPromptLength {
		utils.RespondWithError(w, http.StatusBadRequest, "Prompt is too long (max 5000 characters)")
		return http.StatusBadRequest, ""
	}

	// Credential verification: one-way comparison against the stored
	// credential set. Past this point every outcome is audited.
	account, err := h.keys.Lookup(r.Context(), apiKey)
	if err != nil {
		if errors.Is(err, auth.ErrKeyNotFound) {
			h.metering.RecordDenied(r.Context(), models.UnknownAccountID, req.Model, promptLength)
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid API key")
			return http.StatusUnauthorized, ""
		}
		h.logger.Error("credential lookup failed", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to process request")
		return http.StatusInternalServerError, ""
	}
	accountID := account.ID.String()

	allowed, err := h.limiter.Allow(r.Context(), accountID)
	if err != nil {
		// A limiter outage must not take the gateway down with it.
		h.logger.Warn("rate limit check failed", "account", accountID, "error", err)
		allowed = true
	}
	if !allowed {
		h.metering.RecordDenied(r.Context(), accountID, req.Model, promptLength)
		utils.RespondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return http.StatusTooManyRequests, accountID
	}

	result, err := h.metering.Charge(r.Context(), account.ID, req.Model, promptLength)
	if err != nil {
		var insufficient *metering.InsufficientCreditsError
		if errors.As(err, &insufficient) {
			utils.RespondWithErrorDetails(w, http.StatusPaymentRequired, "Insufficient credits", map[string]any{
				"credits_required":  insufficient.Required,
				"credits_available": insufficient.Available,
			})
			return http.StatusPaymentRequired, accountID
		}
		h.logger.Error("metering transaction failed", "account", accountID, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to process request")
		return http.StatusInternalServerError, accountID
	}

	// Downstream compute stub.
	resp := CompletionResponse{
		ID:               "chatcmpl-" + uuid.New().String(),
		Model:            req.Model,
		Reply:            "Echo: " + req.Prompt,
		CreditsRemaining: result.Remaining,
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
	return http.StatusOK, accountID
}
