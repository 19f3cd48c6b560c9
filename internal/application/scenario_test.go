package application

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/config"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/class"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/reservation"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/slot"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/infrastructure/postgres"
	redisinfra "github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/infrastructure/redis"
)

type scenarioEnv struct {
	service   *ReservationService
	cartSvc   *CartService
	slotRepo  slot.Repository
	classRepo class.Repository
	cleanup   func()
}

func setupScenarioEnv(t *testing.T, holdTTL time.Duration) *scenarioEnv {
	t.Helper()
	cfg := config.Load()

	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		t.Skipf("DB接続エラー: %v", err)
	}

	redisClient, err := redisinfra.NewClient(&redisinfra.Config{
		Host: cfg.Redis.Host, Port: cfg.Redis.Port,
	})
	if err != nil {
		db.Close()
		t.Skipf("Redis接続エラー: %v", err)
	}

	txManager := postgres.NewTxManager(db)
	reservationRepo := postgres.NewReservationRepository(db)
	slotRepo := postgres.NewSlotRepository(db)
	classRepo := postgres.NewClassRepository(db)
	orderRepo := postgres.NewOrderRepository(db)
	cache := redisinfra.NewAvailabilityCache(redisClient)
	promoStore := redisinfra.NewPromoStore(redisClient)

	service := NewReservationService(txManager, reservationRepo, slotRepo, orderRepo, cache, holdTTL, time.Second, nil)
	cartSvc := NewCartService(reservationRepo, slotRepo, classRepo, promoStore, service)

	cleanup := func() {
		db.Exec("DELETE FROM orders")
		db.Exec("DELETE FROM reservations")
		db.Exec("DELETE FROM class_slots")
		db.Exec("DELETE FROM classes")
		redisClient.Close()
		db.Close()
	}

	return &scenarioEnv{
		service:   service,
		cartSvc:   cartSvc,
		slotRepo:  slotRepo,
		classRepo: classRepo,
		cleanup:   cleanup,
	}
}

func (e *scenarioEnv) createSlot(t *testing.T, ctx context.Context, total int) *slot.ClassSlot {
	t.Helper()

	cl := class.NewClass("wheel-throwing-"+uuid.NewString()[:8], "Wheel Throwing", 29500)
	require.NoError(t, e.classRepo.Create(ctx, cl))

	sl := slot.NewClassSlot(cl.ID, time.Now().AddDate(0, 0, 7), time.Now().AddDate(0, 0, 28), total)
	sl.Label = "Monday evenings"
	require.NoError(t, e.slotRepo.Create(ctx, sl))
	return sl
}

// TestScenario_FullBookingFlow は ホールド → カート → 決済確定 の一連の流れ
func TestScenario_FullBookingFlow(t *testing.T) {
	env := setupScenarioEnv(t, 20*time.Minute)
	defer env.cleanup()
	ctx := context.Background()

	t.Run("ホールドから確定までの完全なフロー", func(t *testing.T) {
		sl := env.createSlot(t, ctx, 8)
		sessionID := "sess-" + uuid.NewString()

		// 1. ホールドを作成
		res, err := env.service.CreateOrRenewHold(ctx, HoldInput{
			SlotID: sl.ID, SessionID: sessionID, Quantity: 2,
		})
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusTemporary, res.Status)

		// 2. 残席が減っている
		available, err := env.service.GetAvailability(ctx, sl.ID)
		require.NoError(t, err)
		assert.Equal(t, 6, available)

		// 3. カートに反映されている
		cart, err := env.cartSvc.GetCart(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, int64(59000), cart.SubtotalCents)

		// 4. 決済完了で確定
		confirmed, ord, err := env.service.ConfirmHold(ctx, res.ID, reservation.PaymentDetails{
			GatewaySessionID: "cs-" + uuid.NewString(),
			PaymentID:        "pi-" + uuid.NewString(),
			PaymentStatus:    "paid",
			AmountCents:      cart.TotalCents,
			Currency:         "CAD",
			Customer:         reservation.CustomerInfo{Name: "Test Customer", Email: "test@example.com"},
		})
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusConfirmed, confirmed.Status)
		assert.NotEmpty(t, ord.OrderNumber)

		// 5. 確定後も残席は変わらない
		available, err = env.service.GetAvailability(ctx, sl.ID)
		require.NoError(t, err)
		assert.Equal(t, 6, available)
	})
}

// TestScenario_CompetingSessions は最後の1席を複数セッションが奪い合うシナリオ
func TestScenario_CompetingSessions(t *testing.T) {
	env := setupScenarioEnv(t, 20*time.Minute)
	defer env.cleanup()
	ctx := context.Background()

	t.Run("20セッションが最後の1席を競合", func(t *testing.T) {
		sl := env.createSlot(t, ctx, 1)

		const numSessions = 20
		var successCount int32
		var fullCount int32
		var otherCount int32
		var wg sync.WaitGroup

		for i := 0; i < numSessions; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.service.CreateOrRenewHold(ctx, HoldInput{
					SlotID: sl.ID, SessionID: "sess-" + uuid.NewString(), Quantity: 1,
				})
				switch {
				case err == nil:
					atomic.AddInt32(&successCount, 1)
				case err == slot.ErrCapacityExceeded, err == ErrConcurrencyConflict:
					atomic.AddInt32(&fullCount, 1)
				default:
					atomic.AddInt32(&otherCount, 1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), successCount, "1セッションだけが席を取れる")
		assert.Equal(t, int32(numSessions-1), fullCount+otherCount)
		t.Logf("成功: %d, 満席/競合: %d, その他: %d", successCount, fullCount, otherCount)

		// 過剰販売は起きていない
		current, err := env.slotRepo.GetByID(ctx, sl.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, current.BookedSlots)
	})
}

// TestScenario_CancelAndRebook はキャンセルで解放された席を別セッションが取るシナリオ
func TestScenario_CancelAndRebook(t *testing.T) {
	env := setupScenarioEnv(t, 20*time.Minute)
	defer env.cleanup()
	ctx := context.Background()

	t.Run("キャンセル後に別セッションが予約できる", func(t *testing.T) {
		sl := env.createSlot(t, ctx, 1)

		first, err := env.service.CreateOrRenewHold(ctx, HoldInput{
			SlotID: sl.ID, SessionID: "sess-first", Quantity: 1,
		})
		require.NoError(t, err)

		// 満席なので2人目は失敗
		_, err = env.service.CreateOrRenewHold(ctx, HoldInput{
			SlotID: sl.ID, SessionID: "sess-second", Quantity: 1,
		})
		assert.ErrorIs(t, err, slot.ErrCapacityExceeded)

		// キャンセルで席が解放される
		_, err = env.service.CancelHold(ctx, first.ID)
		require.NoError(t, err)

		second, err := env.service.CreateOrRenewHold(ctx, HoldInput{
			SlotID: sl.ID, SessionID: "sess-second", Quantity: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusTemporary, second.Status)
	})
}

// TestScenario_RenewRefreshesHold は同一セッションの再ホールドが数量と期限を更新するシナリオ
func TestScenario_RenewRefreshesHold(t *testing.T) {
	env := setupScenarioEnv(t, 20*time.Minute)
	defer env.cleanup()
	ctx := context.Background()

	t.Run("同じセッションの再ホールドは新規行を作らない", func(t *testing.T) {
		sl := env.createSlot(t, ctx, 8)
		sessionID := "sess-" + uuid.NewString()

		first, err := env.service.CreateOrRenewHold(ctx, HoldInput{
			SlotID: sl.ID, SessionID: sessionID, Quantity: 1,
		})
		require.NoError(t, err)

		second, err := env.service.CreateOrRenewHold(ctx, HoldInput{
			SlotID: sl.ID, SessionID: sessionID, Quantity: 3,
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 3, second.Quantity)

		current, err := env.slotRepo.GetByID(ctx, sl.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, current.BookedSlots, "定員は差分だけ動く")
	})
}

// TestScenario_SweepReleasesExpiredHolds は期限切れホールドの掃除シナリオ
func TestScenario_SweepReleasesExpiredHolds(t *testing.T) {
	env := setupScenarioEnv(t, 1*time.Second)
	defer env.cleanup()
	ctx := context.Background()

	t.Run("期限切れホールドが掃除され席が戻る", func(t *testing.T) {
		sl := env.createSlot(t, ctx, 2)

		res, err := env.service.CreateOrRenewHold(ctx, HoldInput{
			SlotID: sl.ID, SessionID: "sess-expiring", Quantity: 2,
		})
		require.NoError(t, err)

		time.Sleep(1500 * time.Millisecond)

		swept, err := env.service.SweepExpired(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, swept, 1)

		expired, err := env.service.GetHold(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusExpired, expired.Status)

		current, err := env.slotRepo.GetByID(ctx, sl.ID)
		require.NoError(t, err)
		assert.Zero(t, current.BookedSlots)

		// 期限切れ後の確定は拒否される
		_, _, err = env.service.ConfirmHold(ctx, res.ID, reservation.PaymentDetails{
			GatewaySessionID: "cs-late", PaymentStatus: "paid",
		})
		assert.ErrorIs(t, err, reservation.ErrInvalidTransition)
	})
}
