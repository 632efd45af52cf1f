package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"digital_legacy_echo/internal/services"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	webhooks *services.WebhookService
	apiKey   string
}

// NewWebhookHandler creates the SePay webhook endpoint. An empty apiKey accepts
// unauthenticated notifications.
func NewWebhookHandler(webhooks *services.WebhookService, apiKey string) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, apiKey: apiKey}
}

func webhookReply(c echo.Context, code int, success bool, message string) error {
	return c.JSON(code, map[string]interface{}{
		"success": success,
		"message": message,
	})
}

// HandleSepay confirms the order referenced by a SePay bank transfer notification.
func (h *WebhookHandler) HandleSepay(c echo.Context) error {
	if !h.authorized(c.Request()) {
		return webhookReply(c, http.StatusUnauthorized, false, "Unauthorized")
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return webhookReply(c, http.StatusBadRequest, false, "Invalid body")
	}

	var payload services.SepayPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return webhookReply(c, http.StatusBadRequest, false, "Invalid JSON payload")
	}

	result, err := h.webhooks.IngestSepay(c.Request().Context(), raw, payload)
	if err != nil {
		switch services.KindOf(err) {
		case services.KindValidation:
			return webhookReply(c, http.StatusBadRequest, false, services.MessageOf(err, ""))
		case services.KindNotFound:
			return webhookReply(c, http.StatusNotFound, false, services.MessageOf(err, ""))
		case services.KindConflict:
			return webhookReply(c, http.StatusConflict, false, services.MessageOf(err, ""))
		}
		c.Logger().Errorf("SePay webhook failed: %v", err)
		return webhookReply(c, http.StatusInternalServerError, false, "Internal server error")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      result.Message,
		"outcome":      result.Outcome,
		"order_id":     result.OrderID,
		"order_number": result.OrderNumber,
	})
}

// authorized checks "Authorization: Apikey <key>" when a key is configured.
func (h *WebhookHandler) authorized(r *http.Request) bool {
	if h.apiKey == "" {
		return true
	}
	header := r.Header.Get("Authorization")
	const prefix = "apikey "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return false
	}
	given := strings.TrimSpace(header[len(prefix):])
	return subtle.ConstantTimeCompare([]byte(given), []byte(h.apiKey)) == 1
}
