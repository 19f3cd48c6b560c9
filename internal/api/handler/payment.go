package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/api/middleware"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/application"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/order"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/reservation"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/infrastructure/payment"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/pkg/logger"
)

// SignatureHeader は決済ゲートウェイがWebhookに付ける署名ヘッダー
const SignatureHeader = "X-Payment-Signature"

type PaymentHandler struct {
	service CheckoutServiceInterface
}

func NewPaymentHandler(s CheckoutServiceInterface) *PaymentHandler {
	return &PaymentHandler{service: s}
}

type CheckoutResponse struct {
	GatewaySessionID string `json:"gateway_session_id"`
	CheckoutURL      string `json:"checkout_url"`
}

// webhookEvent は決済ゲートウェイから届くイベント
type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		SessionID     string `json:"session_id"`
		PaymentID     string `json:"payment_id"`
		PaymentStatus string `json:"payment_status"`
		AmountCents   int64  `json:"amount"`
		Currency      string `json:"currency"`
		Customer      struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Phone string `json:"phone"`
		} `json:"customer"`
	} `json:"data"`
}

type OrderResponse struct {
	ID            string `json:"id"`
	ReservationID string `json:"reservation_id"`
	OrderNumber   string `json:"order_number" example:"20260828-1234"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency" example:"CAD"`
	PaymentStatus string `json:"payment_status" example:"paid"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

func toOrderResponse(o *order.Order) OrderResponse {
	return OrderResponse{
		ID: o.ID, ReservationID: o.ReservationID, OrderNumber: o.OrderNumber,
		AmountCents: o.AmountCents, Currency: o.Currency, PaymentStatus: o.PaymentStatus,
		CustomerName: o.Customer.Name, CustomerEmail: o.Customer.Email,
	}
}

// StartCheckout godoc
// @Summary 決済セッションを開始
// @Description カートの合計金額で決済ゲートウェイのセッションを作成します
// @Tags payment
// @Produce json
// @Success 200 {object} CheckoutResponse
// @Failure 400 {object} map[string]string "カートが空"
// @Router /checkout [post]
func (h *PaymentHandler) StartCheckout(c echo.Context) error {
	sessionID := middleware.SessionIDFrom(c)
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "セッションIDが必要です")
	}

	session, err := h.service.StartCheckout(c.Request().Context(), sessionID)
	if err != nil {
		if errors.Is(err, application.ErrEmptyCart) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if errors.Is(err, payment.ErrGatewayFailure) {
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, CheckoutResponse{
		GatewaySessionID: session.ID,
		CheckoutURL:      session.URL,
	})
}

// Webhook godoc
// @Summary 決済完了Webhook
// @Description ゲートウェイからの決済完了通知を検証し、仮予約を確定します
// @Tags payment
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "署名検証失敗"
// @Router /webhooks/payment [post]
func (h *PaymentHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの読み取りに失敗")
	}

	if err := h.service.VerifyWebhook(body, c.Request().Header.Get(SignatureHeader)); err != nil {
		logger.Warn("Webhook署名の検証に失敗", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "署名が不正です")
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "イベントの解析に失敗")
	}

	// 完了イベント以外は受領だけ返す
	if event.Type != "checkout.completed" {
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}

	orders, err := h.service.CompletePayment(c.Request().Context(), paymentDetailsFrom(event))
	if err != nil {
		return completePaymentError(err)
	}

	resp := make([]OrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok", "orders": resp})
}

// ConfirmFallback godoc
// @Summary 決済成功ページからの確定フォールバック
// @Description Webhookが遅延・欠落した場合に成功ページから確定を再試行します
// Webhookと同じ冪等な確定処理を通るため、二重に呼ばれても注文は増えません
// @Tags payment
// @Produce json
// @Param session_id query string true "ゲートウェイセッションID"
// @Success 200 {array} OrderResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /payment-success [get]
func (h *PaymentHandler) ConfirmFallback(c echo.Context) error {
	gatewaySessionID := c.QueryParam("session_id")
	if gatewaySessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_idが必要です")
	}

	orders, err := h.service.CompletePayment(c.Request().Context(), reservation.PaymentDetails{
		GatewaySessionID: gatewaySessionID,
		PaymentStatus:    "paid",
	})
	if err != nil {
		return completePaymentError(err)
	}

	resp := make([]OrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	return c.JSON(http.StatusOK, resp)
}

func paymentDetailsFrom(event webhookEvent) reservation.PaymentDetails {
	return reservation.PaymentDetails{
		GatewaySessionID: event.Data.SessionID,
		PaymentID:        event.Data.PaymentID,
		PaymentStatus:    event.Data.PaymentStatus,
		AmountCents:      event.Data.AmountCents,
		Currency:         event.Data.Currency,
		Customer: reservation.CustomerInfo{
			Name:  event.Data.Customer.Name,
			Email: event.Data.Customer.Email,
			Phone: event.Data.Customer.Phone,
		},
	}
}

func completePaymentError(err error) error {
	switch {
	case errors.Is(err, application.ErrUnknownGatewaySession):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, reservation.ErrInvalidTransition),
		errors.Is(err, application.ErrConcurrencyConflict):
		// 期限切れ・キャンセル後に決済だけ成立したケース。返金はサポート対応になる
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
