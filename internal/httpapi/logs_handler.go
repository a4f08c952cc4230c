package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ai_gateway/internal/models"
	"ai_gateway/internal/storage"
	"ai_gateway/internal/utils"
)

// recentLogLimit is how many audit entries the dashboard gets per query.
const recentLogLimit = 20

// LogReader lists audit entries for an account.
type LogReader interface {
	ListRecentByAccount(ctx context.Context, accountID string, limit int) ([]*models.RequestLog, error)
}

// AccountReader loads account details.
type AccountReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// LogsHandler serves the audit query and account info endpoints.
type LogsHandler struct {
	logs     LogReader
	accounts AccountReader
	logger   *utils.Logger
}

// NewLogsHandler creates a new logs handler
func NewLogsHandler(logs LogReader, accounts AccountReader) *LogsHandler {
	return &LogsHandler{
		logs:     logs,
		accounts: accounts,
		logger:   utils.NewLogger("logs", utils.Info),
	}
}

// LogEntryResponse is one audit entry as returned to the dashboard.
type LogEntryResponse struct {
	ID           string    `json:"id"`
	Model        string    `json:"model"`
	PromptLength int       `json:"promptLength"`
	Cost         int       `json:"cost"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
}

// LogsResponse wraps the audit entry list.
type LogsResponse struct {
	Logs []LogEntryResponse `json:"logs"`
}

// AccountResponse is the account info body.
type AccountResponse struct {
	User struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Credits int    `json:"credits"`
	} `json:"user"`
}

// List handles GET /api/logs - the most recent audit entries for the
// authenticated account, newest first.
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	entries, err := h.logs.ListRecentByAccount(r.Context(), accountID.String(), recentLogLimit)
	if err != nil {
		h.logger.Error("log listing failed", "account", accountID, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve logs")
		return
	}

	resp := LogsResponse{Logs: make([]LogEntryResponse, 0, len(entries))}
	for _, entry := range entries {
		resp.Logs = append(resp.Logs, LogEntryResponse{
			ID:           entry.ID.String(),
			Model:        entry.Model,
			PromptLength: entry.PromptLength,
			Cost:         entry.Cost,
			Status:       entry.Status,
			Timestamp:    entry.CreatedAt,
		})
	}

	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// Account handles GET /api/logs/user - account id, contact identifier
// and current balance.
func (h *LogsHandler) Account(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	account, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("account lookup failed", "account", accountID, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve user info")
		return
	}

	var resp AccountResponse
	resp.User.ID = account.ID.String()
	resp.User.Email = account.Email
	resp.User.Credits = account.Credits
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
