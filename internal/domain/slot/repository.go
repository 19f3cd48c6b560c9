package slot

import (
	"context"
	"time"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/transaction"
)

// Repository は開催枠リポジトリのインターフェース
type Repository interface {
	// Create は新しい開催枠を作成する
	Create(ctx context.Context, s *ClassSlot) error

	// GetByID はIDから開催枠を取得する
	GetByID(ctx context.Context, id string) (*ClassSlot, error)

	// GetByIDForUpdate はIDから開催枠を行ロック付きで取得する（トランザクション必須）
	GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*ClassSlot, error)

	// ListByClassID はクラスIDから有効な開催枠一覧を取得する（after 以降に開始するもの）
	ListByClassID(ctx context.Context, classID string, after time.Time) ([]*ClassSlot, error)

	// AdjustBooked は予約数に delta を加算する（下限0、トランザクション必須）
	AdjustBooked(ctx context.Context, tx transaction.Tx, id string, delta int) error

	// Deactivate は開催枠を無効化する（物理削除はしない）
	Deactivate(ctx context.Context, id string) error
}
