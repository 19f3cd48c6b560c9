package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrInvalidSignature = errors.New("Webhook署名の検証に失敗しました")
	ErrGatewayFailure   = errors.New("決済ゲートウェイとの通信に失敗しました")
)

// Config は決済ゲートウェイ設定
type Config struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession はゲートウェイ上に作成された決済セッション
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateSessionInput は決済セッション作成のパラメータ
type CreateSessionInput struct {
	AmountCents     int64  `json:"amount"`
	Currency        string `json:"currency"`
	ProductName     string `json:"product_name"`
	ClientReference string `json:"client_reference_id"`
	SuccessURL      string `json:"success_url"`
	CancelURL       string `json:"cancel_url"`
}

// Gateway は外部決済ゲートウェイのインターフェース
// プロバイダ固有のSDKには依存せず、セッション作成と署名検証だけを扱う
type Gateway interface {
	// CreateCheckoutSession は決済セッションを作成する
	CreateCheckoutSession(ctx context.Context, input CreateSessionInput) (*CheckoutSession, error)

	// VerifySignature はWebhookペイロードの署名を検証する
	VerifySignature(payload []byte, signature string) error
}

// HTTPGateway は HTTP/JSON で通信するゲートウェイ実装
type HTTPGateway struct {
	cfg    *Config
	client *http.Client
}

// NewHTTPGateway は新しいHTTPGatewayを作成する
func NewHTTPGateway(cfg *Config) *HTTPGateway {
	return &HTTPGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateCheckoutSession は決済セッションを作成する
// 定員を変更するトランザクションの外で呼ぶこと
func (g *HTTPGateway) CreateCheckoutSession(ctx context.Context, input CreateSessionInput) (*CheckoutSession, error) {
	if input.SuccessURL == "" {
		input.SuccessURL = g.cfg.SuccessURL
	}
	if input.CancelURL == "" {
		input.CancelURL = g.cfg.CancelURL
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("リクエスト生成に失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("リクエスト生成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: status=%d", ErrGatewayFailure, resp.StatusCode)
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("レスポンス解析に失敗: %w", err)
	}
	return &session, nil
}

// VerifySignature はHMAC-SHA256でWebhook署名を検証する
func (g *HTTPGateway) VerifySignature(payload []byte, signature string) error {
	mac := hmac.New(sha256.New, []byte(g.cfg.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	sig, err := hex.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}
	expectedRaw, _ := hex.DecodeString(expected)
	if !hmac.Equal(sig, expectedRaw) {
		return ErrInvalidSignature
	}
	return nil
}

var _ Gateway = (*HTTPGateway)(nil)
