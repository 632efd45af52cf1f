package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"digital_legacy_echo/internal/models"
)

// SepayClient requests dynamic QR codes from the SePay API configured on a payment account
type SepayClient struct {
	client *http.Client
}

func NewSepayClient() *SepayClient {
	return &SepayClient{client: &http.Client{Timeout: 10 * time.Second}}
}

type sepayQRRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	MerchantID   string `json:"merchant_id"`
	OrderCode    string `json:"order_code"`
	Amount       int64  `json:"amount"`
	Description  string `json:"description"`
	BankID       string `json:"bank_id,omitempty"`
}

type sepayQRResponse struct {
	Data struct {
		QRDataURL string `json:"qr_data_url"`
	} `json:"data"`
}

// CreateQR posts the order to SePay and returns the QR image URL it generated.
func (c *SepayClient) CreateQR(ctx context.Context, account models.PaymentAccount, orderNumber string, amount decimal.Decimal, description string) (string, error) {
	payload := sepayQRRequest{
		ClientID:     account.SepayClientID,
		ClientSecret: account.SepayClientSecret,
		MerchantID:   account.SepayMerchantID,
		OrderCode:    orderNumber,
		Amount:       amount.Round(0).IntPart(),
		Description:  description,
		BankID:       account.SepayBankID,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, account.SepayAPIURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var out sepayQRResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Data.QRDataURL == "" {
		return "", fmt.Errorf("response has no qr_data_url")
	}
	return out.Data.QRDataURL, nil
}
