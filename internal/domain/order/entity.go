package order

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/reservation"
)

// Order は決済確定後に記録される注文エンティティ
type Order struct {
	ID               string
	ReservationID    string
	OrderNumber      string // YYYYMMDD-XXXX 形式
	AmountCents      int64
	Currency         string
	GatewaySessionID string
	PaymentID        string
	PaymentStatus    string
	Customer         reservation.CustomerInfo
	CreatedAt        time.Time
}

// NewOrder は確定した予約から新しい注文を作成する
func NewOrder(reservationID string, details reservation.PaymentDetails) *Order {
	currency := details.Currency
	if currency == "" {
		currency = "CAD"
	}
	return &Order{
		ReservationID:    reservationID,
		OrderNumber:      GenerateOrderNumber(time.Now()),
		AmountCents:      details.AmountCents,
		Currency:         currency,
		GatewaySessionID: details.GatewaySessionID,
		PaymentID:        details.PaymentID,
		PaymentStatus:    details.PaymentStatus,
		Customer:         details.Customer,
		CreatedAt:        time.Now(),
	}
}

// GenerateOrderNumber は YYYYMMDD-XXXX 形式の注文番号を生成する
func GenerateOrderNumber(now time.Time) string {
	return fmt.Sprintf("%s-%04d", now.Format("20060102"), 1000+rand.Intn(9000))
}

// Validate は注文の検証を行う
func (o *Order) Validate() error {
	if o.ReservationID == "" {
		return ErrReservationIDRequired
	}
	if o.AmountCents < 0 {
		return ErrInvalidAmount
	}
	return nil
}
