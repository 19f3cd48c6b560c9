package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/class"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/reservation"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/slot"
	redisinfra "github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/infrastructure/redis"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/pkg/logger"
)

var ErrInvalidPromoCode = errors.New("無効なプロモコードです")

// hstRate はオンタリオ州HST（13%）
const hstRate = 13

// promoCodes は有効なプロモコードと割引率（%）
var promoCodes = map[string]int{
	"WELCOME10": 10,
	"FRIEND15":  15,
	"POTTERY20": 20,
	"SUMMER25":  25,
}

// CartItem はカートの1行（1件の仮予約に対応する）
type CartItem struct {
	ReservationID  string    `json:"reservation_id"`
	SlotID         string    `json:"slot_id"`
	ClassID        string    `json:"class_id"`
	ClassTitle     string    `json:"class_title"`
	SlotLabel      string    `json:"slot_label"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	LineTotalCents int64     `json:"line_total_cents"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Cart はセッションの仮予約から導出されるカート
// カートはストアを持たない。真実は常に予約テーブル側にある
type Cart struct {
	SessionID       string     `json:"session_id"`
	Items           []CartItem `json:"items"`
	PromoCode       string     `json:"promo_code,omitempty"`
	DiscountPercent int        `json:"discount_percent"`
	SubtotalCents   int64      `json:"subtotal_cents"`
	DiscountCents   int64      `json:"discount_cents"`
	TaxCents        int64      `json:"tax_cents"`
	TotalCents      int64      `json:"total_cents"`
}

// IsEmpty はカートが空かを返す
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// CartService はセッションの仮予約をカートとして投影する
type CartService struct {
	reservationRepo reservation.Repository
	slotRepo        slot.Repository
	classRepo       class.Repository
	promoStore      redisinfra.PromoStoreInterface
	reservationSvc  *ReservationService
}

func NewCartService(
	rr reservation.Repository,
	sr slot.Repository,
	cr class.Repository,
	ps redisinfra.PromoStoreInterface,
	rs *ReservationService,
) *CartService {
	return &CartService{
		reservationRepo: rr,
		slotRepo:        sr,
		classRepo:       cr,
		promoStore:      ps,
		reservationSvc:  rs,
	}
}

// GetCart はセッションの仮予約からカートを組み立てる
// 期限切れの仮予約は遅延判定でその場で expired にし、カートから除外する
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*Cart, error) {
	active, err := s.reservationRepo.GetActiveBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("カートの取得に失敗: %w", err)
	}

	cart := &Cart{SessionID: sessionID, Items: []CartItem{}}
	for _, res := range active {
		if res.Status != reservation.StatusTemporary {
			continue
		}
		if res.IsExpired() {
			// 掃除ワーカーを待たずにここで期限切れにする
			if _, err := s.reservationSvc.ExpireHold(ctx, res.ID); err != nil {
				logger.Warn("期限切れ予約の処理に失敗",
					zap.String("reservation_id", res.ID),
					zap.Error(err))
			}
			continue
		}

		item, err := s.buildItem(ctx, res)
		if err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items, *item)
		cart.SubtotalCents += item.LineTotalCents
	}

	if err := s.applyTotals(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) buildItem(ctx context.Context, res *reservation.Reservation) (*CartItem, error) {
	sl, err := s.slotRepo.GetByID(ctx, res.SlotID)
	if err != nil {
		return nil, fmt.Errorf("開催枠の取得に失敗: %w", err)
	}
	cl, err := s.classRepo.GetByID(ctx, sl.ClassID)
	if err != nil {
		return nil, fmt.Errorf("クラスの取得に失敗: %w", err)
	}

	unitPrice := int64(cl.PriceCents)
	return &CartItem{
		ReservationID:  res.ID,
		SlotID:         sl.ID,
		ClassID:        cl.ID,
		ClassTitle:     cl.Title,
		SlotLabel:      sl.Label,
		Quantity:       res.Quantity,
		UnitPriceCents: unitPrice,
		LineTotalCents: unitPrice * int64(res.Quantity),
		ExpiresAt:      res.ExpiresAt,
	}, nil
}

// applyTotals はプロモ割引とHSTを計算する
// 割引は小計に対して適用し、税は割引後の金額に掛ける
func (s *CartService) applyTotals(ctx context.Context, cart *Cart) error {
	if s.promoStore != nil {
		code, err := s.promoStore.Get(ctx, cart.SessionID)
		if err == nil {
			if percent, ok := promoCodes[code]; ok {
				cart.PromoCode = code
				cart.DiscountPercent = percent
			}
		} else if !errors.Is(err, redisinfra.ErrPromoNotFound) {
			return fmt.Errorf("プロモコードの取得に失敗: %w", err)
		}
	}

	cart.DiscountCents = roundPercent(cart.SubtotalCents, cart.DiscountPercent)
	discounted := cart.SubtotalCents - cart.DiscountCents
	cart.TaxCents = roundPercent(discounted, hstRate)
	cart.TotalCents = discounted + cart.TaxCents
	return nil
}

// ApplyPromo はセッションにプロモコードを適用し、再計算したカートを返す
func (s *CartService) ApplyPromo(ctx context.Context, sessionID, code string) (*Cart, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if _, ok := promoCodes[normalized]; !ok {
		return nil, ErrInvalidPromoCode
	}
	if err := s.promoStore.Set(ctx, sessionID, normalized); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, sessionID)
}

// RemovePromo はセッションのプロモコードを外す
func (s *CartService) RemovePromo(ctx context.Context, sessionID string) (*Cart, error) {
	if err := s.promoStore.Clear(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, sessionID)
}

// roundPercent は amount の percent % を四捨五入で返す
func roundPercent(amount int64, percent int) int64 {
	if percent <= 0 || amount <= 0 {
		return 0
	}
	return (amount*int64(percent) + 50) / 100
}
