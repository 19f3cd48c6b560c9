package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/infrastructure/redis"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/pkg/logger"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/pkg/metrics"
)

// sweepLockKey は多重起動時にスイープを1インスタンスに限定するためのロックキー
const sweepLockKey = "sweep:expired-holds"

// HoldSweeper は期限切れホールドを解放するインターフェース
type HoldSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// ExpirySweeper は期限切れの仮予約を定期的に解放するワーカー
type ExpirySweeper struct {
	reservationService HoldSweeper
	lockManager        redis.LockManagerInterface
	interval           time.Duration
	metrics            *metrics.Metrics
	stopCh             chan struct{}
	doneCh             chan struct{}
}

// NewExpirySweeper は新しいスイーパーを作成
func NewExpirySweeper(
	rs HoldSweeper,
	lm redis.LockManagerInterface,
	interval time.Duration,
	m *metrics.Metrics,
) *ExpirySweeper {
	return &ExpirySweeper{
		reservationService: rs,
		lockManager:        lm,
		interval:           interval,
		metrics:            m,
		stopCh:             make(chan struct{}),
		doneCh:             make(chan struct{}),
	}
}

// Start はスイーパーを開始
func (s *ExpirySweeper) Start(ctx context.Context) {
	logger.Info("期限切れホールドスイーパー開始",
		zap.Duration("interval", s.interval),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("期限切れホールドスイーパー停止（コンテキストキャンセル）")
			return
		case <-s.stopCh:
			logger.Info("期限切れホールドスイーパー停止（シグナル受信）")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop はスイーパーを停止
func (s *ExpirySweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

// sweep は分散ロックを取得してから期限切れホールドを解放する
// ロックが取れない場合は別インスタンスが処理中とみなしてスキップする
func (s *ExpirySweeper) sweep(ctx context.Context) {
	log := logger.Get()
	log.Debug("期限切れホールドのスイープ開始")

	if s.lockManager != nil {
		lock, err := s.lockManager.AcquireLock(ctx, sweepLockKey, s.interval)
		if err != nil {
			if errors.Is(err, redis.ErrLockNotAcquired) {
				log.Debug("スイープロックを取得できず、今回はスキップ")
				return
			}
			log.Error("スイープロックの取得に失敗", zap.Error(err))
			return
		}
		defer func() {
			if err := lock.Release(ctx); err != nil {
				log.Warn("スイープロックの解放に失敗", zap.Error(err))
			}
		}()
	}

	start := time.Now()
	count, err := s.reservationService.SweepExpired(ctx)
	if s.metrics != nil {
		s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		log.Error("期限切れホールドのスイープ失敗", zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("期限切れホールドを解放", zap.Int("count", count))
	} else {
		log.Debug("期限切れホールドなし")
	}
}
