package application

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/order"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/reservation"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/infrastructure/payment"
	redisinfra "github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/infrastructure/redis"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/pkg/logger"
)

var (
	ErrEmptyCart             = errors.New("カートが空です")
	ErrUnknownGatewaySession = errors.New("決済セッションに対応する予約が見つかりません")
)

// CheckoutService はカートから決済セッションを作り、完了通知で予約を確定する
type CheckoutService struct {
	cartSvc         *CartService
	reservationSvc  *ReservationService
	reservationRepo reservation.Repository
	gateway         payment.Gateway
	promoStore      redisinfra.PromoStoreInterface
}

func NewCheckoutService(
	cart *CartService,
	rs *ReservationService,
	rr reservation.Repository,
	gw payment.Gateway,
	ps redisinfra.PromoStoreInterface,
) *CheckoutService {
	return &CheckoutService{
		cartSvc:         cart,
		reservationSvc:  rs,
		reservationRepo: rr,
		gateway:         gw,
		promoStore:      ps,
	}
}

// StartCheckout はカートの合計金額で決済セッションを作成し、
// カート内の各予約にゲートウェイセッションIDを紐付ける
// 定員は一切動かさない。ホールドは既に取得済みである
func (s *CheckoutService) StartCheckout(ctx context.Context, sessionID string) (*payment.CheckoutSession, error) {
	cart, err := s.cartSvc.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.CreateSessionInput{
		AmountCents:     cart.TotalCents,
		Currency:        "cad",
		ProductName:     productName(cart),
		ClientReference: sessionID,
	})
	if err != nil {
		return nil, err
	}

	for _, item := range cart.Items {
		if err := s.reservationRepo.SetGatewaySessionID(ctx, item.ReservationID, session.ID); err != nil {
			return nil, fmt.Errorf("決済セッションの紐付けに失敗: %w", err)
		}
	}

	logger.Info("決済セッションを作成",
		zap.String("session_id", sessionID),
		zap.String("gateway_session_id", session.ID),
		zap.Int64("amount_cents", cart.TotalCents))
	return session, nil
}

// CompletePayment は決済完了通知（Webhookまたは成功ページのフォールバック）を処理し、
// ゲートウェイセッションに紐づく仮予約をすべて確定する
// 同じ通知が二度届いても結果は変わらない
func (s *CheckoutService) CompletePayment(ctx context.Context, details reservation.PaymentDetails) ([]*order.Order, error) {
	reservations, err := s.reservationRepo.GetByGatewaySessionID(ctx, details.GatewaySessionID)
	if err != nil {
		return nil, err
	}
	if len(reservations) == 0 {
		return nil, ErrUnknownGatewaySession
	}

	orders := make([]*order.Order, 0, len(reservations))
	for _, res := range reservations {
		_, ord, err := s.reservationSvc.ConfirmHold(ctx, res.ID, details)
		if err != nil {
			return nil, err
		}
		orders = append(orders, ord)
	}

	// 使用済みのプロモコードを片付ける。失敗しても確定自体は成立している
	if s.promoStore != nil && len(reservations) > 0 {
		if err := s.promoStore.Clear(ctx, reservations[0].SessionID); err != nil {
			logger.Warn("プロモコードの削除に失敗",
				zap.String("session_id", reservations[0].SessionID),
				zap.Error(err))
		}
	}
	return orders, nil
}

// VerifyWebhook はWebhookペイロードの署名を検証する
func (s *CheckoutService) VerifyWebhook(payload []byte, signature string) error {
	return s.gateway.VerifySignature(payload, signature)
}

func productName(cart *Cart) string {
	if len(cart.Items) == 1 {
		return cart.Items[0].ClassTitle
	}
	return fmt.Sprintf("Pottery classes (%d items)", len(cart.Items))
}
