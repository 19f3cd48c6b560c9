package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/order"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/reservation"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/slot"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/transaction"
	redisinfra "github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/infrastructure/redis"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/pkg/logger"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/pkg/metrics"
)

// ErrConcurrencyConflict はリトライ後も解消しなかった同時実行競合を表す
// 呼び出し側はそのまま再試行を促してよい
var ErrConcurrencyConflict = errors.New("同時アクセスが競合しました。もう一度お試しください")

// HoldInput はホールド作成・更新のパラメータ
type HoldInput struct {
	SlotID    string
	SessionID string
	Quantity  int
}

// ReservationService は開催枠ホールドのライフサイクルを管理する
// 定員の増減と予約の状態遷移は必ず同一トランザクションで行う
type ReservationService struct {
	txManager       transaction.Manager
	reservationRepo reservation.Repository
	slotRepo        slot.Repository
	orderRepo       order.Repository
	cache           redisinfra.AvailabilityCacheInterface
	holdTTL         time.Duration
	cacheTTL        time.Duration
	metrics         *metrics.Metrics
}

func NewReservationService(
	tm transaction.Manager,
	rr reservation.Repository,
	sr slot.Repository,
	or order.Repository,
	cache redisinfra.AvailabilityCacheInterface,
	holdTTL time.Duration,
	cacheTTL time.Duration,
	m *metrics.Metrics,
) *ReservationService {
	if holdTTL <= 0 {
		holdTTL = reservation.DefaultTTL
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Second
	}
	return &ReservationService{
		txManager:       tm,
		reservationRepo: rr,
		slotRepo:        sr,
		orderRepo:       or,
		cache:           cache,
		holdTTL:         holdTTL,
		cacheTTL:        cacheTTL,
		metrics:         m,
	}
}

// CreateOrRenewHold は開催枠の席を仮押さえする
// 同一 (枠, セッション) の仮予約が既にあれば数量を差分調整し、有効期限を更新する
func (s *ReservationService) CreateOrRenewHold(ctx context.Context, input HoldInput) (*reservation.Reservation, error) {
	if input.Quantity < 1 {
		return nil, reservation.ErrInvalidQuantity
	}

	res, err := s.withConflictRetry(ctx, func() (*reservation.Reservation, error) {
		return s.createOrRenewHoldTx(ctx, input)
	})
	if err != nil {
		s.countHold("create", resultLabel(err))
		return nil, err
	}

	s.invalidateCache(ctx, input.SlotID)
	s.countHold("create", "success")
	return res, nil
}

func (s *ReservationService) createOrRenewHoldTx(ctx context.Context, input HoldInput) (*reservation.Reservation, error) {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	// 枠の行ロックを最初に取る
	// 以降この枠に触るトランザクションはここで直列化される
	sl, err := s.slotRepo.GetByIDForUpdate(ctx, tx, input.SlotID)
	if err != nil {
		return nil, err
	}
	if !sl.IsActive {
		return nil, slot.ErrSlotInactive
	}

	existing, err := s.reservationRepo.GetActiveBySlotAndSession(ctx, tx, input.SlotID, input.SessionID)
	if err != nil && !errors.Is(err, reservation.ErrReservationNotFound) {
		return nil, err
	}

	if existing != nil {
		if existing.Status == reservation.StatusConfirmed {
			return nil, reservation.ErrInvalidTransition
		}
		delta := input.Quantity - existing.Quantity
		if delta > 0 && !sl.CanBook(delta) {
			return nil, slot.ErrCapacityExceeded
		}
		if err := existing.Renew(input.Quantity, s.holdTTL); err != nil {
			return nil, err
		}
		if delta != 0 {
			if err := s.slotRepo.AdjustBooked(ctx, tx, sl.ID, delta); err != nil {
				return nil, err
			}
		}
		if err := s.reservationRepo.Update(ctx, tx, existing); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return existing, nil
	}

	if !sl.CanBook(input.Quantity) {
		return nil, slot.ErrCapacityExceeded
	}

	res := reservation.NewReservation(input.SlotID, input.SessionID, input.Quantity, s.holdTTL)
	if err := res.Validate(); err != nil {
		return nil, err
	}
	if err := s.reservationRepo.Create(ctx, tx, res); err != nil {
		return nil, err
	}
	if err := s.slotRepo.AdjustBooked(ctx, tx, sl.ID, input.Quantity); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

// ConfirmHold は決済完了通知を受けて仮予約を確定し、同一トランザクションで注文を記録する
// 確定済みへの再確定は冪等（既存の注文を返す）。定員には一切触れない
func (s *ReservationService) ConfirmHold(ctx context.Context, reservationID string, details reservation.PaymentDetails) (*reservation.Reservation, *order.Order, error) {
	var res *reservation.Reservation
	var ord *order.Order

	_, err := s.withConflictRetry(ctx, func() (*reservation.Reservation, error) {
		var err error
		res, ord, err = s.confirmHoldTx(ctx, reservationID, details)
		return res, err
	})
	if err != nil {
		s.countHold("confirm", resultLabel(err))
		return nil, nil, err
	}

	s.countHold("confirm", "success")
	return res, ord, nil
}

func (s *ReservationService) confirmHoldTx(ctx context.Context, reservationID string, details reservation.PaymentDetails) (*reservation.Reservation, *order.Order, error) {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	res, err := s.reservationRepo.GetByIDForUpdate(ctx, tx, reservationID)
	if err != nil {
		return nil, nil, err
	}

	// Webhookと成功ページのフォールバックが二重に届くことがある
	// 先勝ちで確定し、後続には既存の注文をそのまま返す
	if res.Status == reservation.StatusConfirmed {
		ord, err := s.orderRepo.GetByReservationID(ctx, res.ID)
		if err != nil {
			return nil, nil, err
		}
		return res, ord, nil
	}

	if err := res.Confirm(details); err != nil {
		return nil, nil, err
	}
	if err := s.reservationRepo.Update(ctx, tx, res); err != nil {
		return nil, nil, err
	}

	ord := order.NewOrder(res.ID, details)
	if err := ord.Validate(); err != nil {
		return nil, nil, err
	}
	if err := s.orderRepo.Create(ctx, tx, ord); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return res, ord, nil
}

// CancelHold は予約をキャンセルし、アクティブだった分の定員を解放する
// キャンセル済みへの再キャンセルは冪等
func (s *ReservationService) CancelHold(ctx context.Context, reservationID string) (*reservation.Reservation, error) {
	res, err := s.withConflictRetry(ctx, func() (*reservation.Reservation, error) {
		return s.cancelHoldTx(ctx, reservationID)
	})
	if err != nil {
		s.countHold("cancel", resultLabel(err))
		return nil, err
	}

	s.invalidateCache(ctx, res.SlotID)
	s.countHold("cancel", "success")
	return res, nil
}

func (s *ReservationService) cancelHoldTx(ctx context.Context, reservationID string) (*reservation.Reservation, error) {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	res, err := s.reservationRepo.GetByIDForUpdate(ctx, tx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.Status == reservation.StatusCancelled {
		return res, nil
	}

	wasActive := res.IsActive()
	if err := res.Cancel(); err != nil {
		return nil, err
	}
	if err := s.reservationRepo.Update(ctx, tx, res); err != nil {
		return nil, err
	}
	if wasActive {
		// 解放はSQL側で下限0にクランプされる
		if err := s.slotRepo.AdjustBooked(ctx, tx, res.SlotID, -res.Quantity); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

// ExpireHold は期限切れの仮予約を expired にし、定員を解放する
// 掃除ワーカーと遅延判定の両方から呼ばれる。既に temporary でなければ何もしない
func (s *ReservationService) ExpireHold(ctx context.Context, reservationID string) (*reservation.Reservation, error) {
	res, err := s.withConflictRetry(ctx, func() (*reservation.Reservation, error) {
		return s.expireHoldTx(ctx, reservationID)
	})
	if err != nil {
		return nil, err
	}
	if res != nil {
		s.invalidateCache(ctx, res.SlotID)
	}
	return res, nil
}

func (s *ReservationService) expireHoldTx(ctx context.Context, reservationID string) (*reservation.Reservation, error) {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	res, err := s.reservationRepo.GetByIDForUpdate(ctx, tx, reservationID)
	if err != nil {
		return nil, err
	}
	// ロック取得までの間に確定・キャンセルされていたら手を出さない
	if res.Status != reservation.StatusTemporary || !res.IsExpired() {
		return res, nil
	}

	if err := res.Expire(); err != nil {
		return nil, err
	}
	if err := s.reservationRepo.Update(ctx, tx, res); err != nil {
		return nil, err
	}
	if err := s.slotRepo.AdjustBooked(ctx, tx, res.SlotID, -res.Quantity); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

// SweepExpired は期限切れの仮予約をまとめて expired にする
// 1件ずつ独立したトランザクションで処理し、失敗してもログを残して続行する
func (s *ReservationService) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.reservationRepo.GetExpiredTemporary(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("期限切れ予約の取得に失敗: %w", err)
	}

	swept := 0
	for _, res := range expired {
		updated, err := s.ExpireHold(ctx, res.ID)
		if err != nil {
			logger.Warn("期限切れ処理に失敗",
				zap.String("reservation_id", res.ID),
				zap.Error(err))
			continue
		}
		if updated.Status == reservation.StatusExpired {
			swept++
		}
	}

	if s.metrics != nil && swept > 0 {
		s.metrics.SweptReservationsTotal.Add(float64(swept))
	}
	return swept, nil
}

// GetAvailability は開催枠の残席数を返す（キャッシュ優先）
func (s *ReservationService) GetAvailability(ctx context.Context, slotID string) (int, error) {
	if s.cache != nil {
		count, err := s.cache.GetAvailableCount(ctx, slotID)
		if err == nil {
			return count, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("残席キャッシュの取得に失敗", zap.Error(err))
		}
	}

	sl, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		return 0, err
	}
	available := sl.AvailableSlots()

	if s.cache != nil {
		if err := s.cache.SetAvailableCount(ctx, slotID, available, s.cacheTTL); err != nil {
			logger.Warn("残席キャッシュの保存に失敗", zap.Error(err))
		}
	}
	return available, nil
}

// GetHold はIDから予約を取得する
func (s *ReservationService) GetHold(ctx context.Context, id string) (*reservation.Reservation, error) {
	return s.reservationRepo.GetByID(ctx, id)
}

// withConflictRetry は直列化失敗・デッドロック時に一度だけリトライする
// それでも競合するなら ErrConcurrencyConflict として呼び出し側に返す
func (s *ReservationService) withConflictRetry(ctx context.Context, fn func() (*reservation.Reservation, error)) (*reservation.Reservation, error) {
	res, err := fn()
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, transaction.ErrConflict) {
		return nil, err
	}

	logger.Debug("トランザクション競合を検出、リトライします", zap.Error(err))
	res, err = fn()
	if err == nil {
		return res, nil
	}
	if errors.Is(err, transaction.ErrConflict) {
		return nil, ErrConcurrencyConflict
	}
	return nil, err
}

func (s *ReservationService) invalidateCache(ctx context.Context, slotID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, slotID); err != nil {
		logger.Warn("残席キャッシュの無効化に失敗",
			zap.String("slot_id", slotID),
			zap.Error(err))
	}
}

func (s *ReservationService) countHold(operation, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.HoldsTotal.WithLabelValues(operation, result).Inc()
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, slot.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrConcurrencyConflict):
		return "conflict"
	case errors.Is(err, reservation.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, slot.ErrSlotNotFound), errors.Is(err, reservation.ErrReservationNotFound):
		return "not_found"
	default:
		return "error"
	}
}
