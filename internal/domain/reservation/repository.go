package reservation

import (
	"context"
	"time"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約を作成する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, r *Reservation) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Reservation, error)

	// GetByIDForUpdate はIDから予約を行ロック付きで取得する（トランザクション必須）
	// 確定とキャンセルの競合を直列化するために使う
	GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Reservation, error)

	// GetActiveBySlotAndSession は (枠, セッション) のアクティブな予約を
	// 行ロック付きで取得する（トランザクション必須）
	GetActiveBySlotAndSession(ctx context.Context, tx transaction.Tx, slotID, sessionID string) (*Reservation, error)

	// GetActiveBySessionID はセッションのアクティブな予約一覧を取得する（カート投影用）
	GetActiveBySessionID(ctx context.Context, sessionID string) ([]*Reservation, error)

	// GetByGatewaySessionID は決済ゲートウェイのセッションIDから予約一覧を取得する
	GetByGatewaySessionID(ctx context.Context, gatewaySessionID string) ([]*Reservation, error)

	// Update は予約を更新する（トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, r *Reservation) error

	// SetGatewaySessionID はチェックアウト開始時にゲートウェイセッションIDを紐付ける
	SetGatewaySessionID(ctx context.Context, id, gatewaySessionID string) error

	// GetExpiredTemporary は now 時点で期限切れの仮予約を取得する
	GetExpiredTemporary(ctx context.Context, now time.Time) ([]*Reservation, error)
}
