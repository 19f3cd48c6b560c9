package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/class"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/slot"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/pkg/logger"
)

// SlotAvailability は開催枠と残席数をまとめた表示用データ
type SlotAvailability struct {
	Slot      *slot.ClassSlot `json:"slot"`
	Available int             `json:"available"`
	IsFull    bool            `json:"is_full"`
}

// CatalogService はクラスと開催枠の閲覧系操作を提供する
type CatalogService struct {
	classRepo      class.Repository
	slotRepo       slot.Repository
	reservationSvc *ReservationService
}

func NewCatalogService(cr class.Repository, sr slot.Repository, rs *ReservationService) *CatalogService {
	return &CatalogService{classRepo: cr, slotRepo: sr, reservationSvc: rs}
}

// ListClasses は有効なクラス一覧を返す
func (s *CatalogService) ListClasses(ctx context.Context, limit, offset int) ([]*class.Class, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.classRepo.List(ctx, limit, offset)
}

// GetClassBySlug はスラッグからクラスを取得する
func (s *CatalogService) GetClassBySlug(ctx context.Context, slug string) (*class.Class, error) {
	return s.classRepo.GetBySlug(ctx, slug)
}

// ListSlots はクラスの今後の開催枠を残席数付きで返す
// 残席数はキャッシュ経由なので、枠ごとのDB読み込みにはならない
func (s *CatalogService) ListSlots(ctx context.Context, classID string) ([]*SlotAvailability, error) {
	if _, err := s.classRepo.GetByID(ctx, classID); err != nil {
		return nil, err
	}

	slots, err := s.slotRepo.ListByClassID(ctx, classID, time.Now())
	if err != nil {
		return nil, err
	}

	result := make([]*SlotAvailability, 0, len(slots))
	for _, sl := range slots {
		available, err := s.reservationSvc.GetAvailability(ctx, sl.ID)
		if err != nil {
			// キャッシュもDBも読めない枠はエンティティの値で代用する
			logger.Warn("残席数の取得に失敗",
				zap.String("slot_id", sl.ID),
				zap.Error(err))
			available = sl.AvailableSlots()
		}
		result = append(result, &SlotAvailability{
			Slot:      sl,
			Available: available,
			IsFull:    available <= 0,
		})
	}
	return result, nil
}

// GetSlotAvailability は単一の開催枠の残席数を返す
func (s *CatalogService) GetSlotAvailability(ctx context.Context, slotID string) (*SlotAvailability, error) {
	sl, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	available, err := s.reservationSvc.GetAvailability(ctx, slotID)
	if err != nil {
		return nil, err
	}
	return &SlotAvailability{Slot: sl, Available: available, IsFull: available <= 0}, nil
}
