package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/qurancoach/notifier/internal/api/respond"
)

// dispatchRequest is the optional invocation body.
type dispatchRequest struct {
	Test bool `json:"test"`
}

// Dispatch runs one notification cycle. Invoked by the external cron
// trigger; an optional {"test": true} body bypasses all window logic and
// sends one fixed notification to every subscriber.
// @Summary Run a dispatch cycle
// @Tags notifications
// @Accept json
// @Produce json
// @Param request body dispatchRequest false "Invocation options"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} respond.ErrorResponse
// @Router /notifications/dispatch [post]
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Malformed JSON body")
		return
	}

	result, err := h.runner.Run(r.Context(), req.Test)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "DISPATCH_FAILED", "Dispatch run failed", err.Error())
		return
	}

	body := map[string]interface{}{
		"ok":    true,
		"sent":  result.Sent,
		"total": result.Total,
	}
	if req.Test {
		body["test"] = true
	}
	respond.WriteJSONObject(w, http.StatusOK, body)
}
