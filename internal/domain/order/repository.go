package order

import (
	"context"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/transaction"
)

// Repository は注文リポジトリのインターフェース
type Repository interface {
	// Create は新しい注文を作成する（予約確定と同一トランザクションで実行する）
	Create(ctx context.Context, tx transaction.Tx, o *Order) error

	// GetByReservationID は予約IDから注文を取得する
	GetByReservationID(ctx context.Context, reservationID string) (*Order, error)

	// GetByOrderNumber は注文番号から注文を取得する
	GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
}
