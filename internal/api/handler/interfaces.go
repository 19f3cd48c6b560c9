package handler

import (
	"context"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/application"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/class"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/order"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/reservation"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/infrastructure/payment"
)

// ReservationServiceInterface はホールド操作のインターフェース
type ReservationServiceInterface interface {
	CreateOrRenewHold(ctx context.Context, input application.HoldInput) (*reservation.Reservation, error)
	GetHold(ctx context.Context, id string) (*reservation.Reservation, error)
	CancelHold(ctx context.Context, id string) (*reservation.Reservation, error)
	GetAvailability(ctx context.Context, slotID string) (int, error)
}

// CatalogServiceInterface はクラスと開催枠の閲覧インターフェース
type CatalogServiceInterface interface {
	ListClasses(ctx context.Context, limit, offset int) ([]*class.Class, error)
	GetClassBySlug(ctx context.Context, slug string) (*class.Class, error)
	ListSlots(ctx context.Context, classID string) ([]*application.SlotAvailability, error)
	GetSlotAvailability(ctx context.Context, slotID string) (*application.SlotAvailability, error)
}

// CartServiceInterface はカート操作のインターフェース
type CartServiceInterface interface {
	GetCart(ctx context.Context, sessionID string) (*application.Cart, error)
	ApplyPromo(ctx context.Context, sessionID, code string) (*application.Cart, error)
	RemovePromo(ctx context.Context, sessionID string) (*application.Cart, error)
}

// CheckoutServiceInterface は決済フローのインターフェース
type CheckoutServiceInterface interface {
	StartCheckout(ctx context.Context, sessionID string) (*payment.CheckoutSession, error)
	CompletePayment(ctx context.Context, details reservation.PaymentDetails) ([]*order.Order, error)
	VerifyWebhook(payload []byte, signature string) error
}
