package slot

import "time"

// ClassSlot はクラスの開催枠（定員付きの時間枠）を表すエンティティ
type ClassSlot struct {
	ID          string
	ClassID     string
	StartDate   time.Time
	EndDate     time.Time
	TimeStart   string // "6:00 PM"
	TimeEnd     string // "8:00 PM"
	DayOfWeek   string // "Monday" など
	Label       string // "Monday April 7 – April 28" など
	TotalSlots  int
	BookedSlots int
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewClassSlot は新しい開催枠を作成する
func NewClassSlot(classID string, startDate, endDate time.Time, totalSlots int) *ClassSlot {
	now := time.Now()
	return &ClassSlot{
		ClassID:     classID,
		StartDate:   startDate,
		EndDate:     endDate,
		TotalSlots:  totalSlots,
		BookedSlots: 0,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AvailableSlots は残席数を返す
func (s *ClassSlot) AvailableSlots() int {
	return s.TotalSlots - s.BookedSlots
}

// IsFull は満席かを返す
func (s *ClassSlot) IsFull() bool {
	return s.AvailableSlots() <= 0
}

// CanBook は追加で quantity 席を予約できるかを返す
func (s *ClassSlot) CanBook(quantity int) bool {
	return s.BookedSlots+quantity <= s.TotalSlots
}

// Book は予約数を quantity 席増やす
// 不変条件 0 <= BookedSlots <= TotalSlots は予約サービスがトランザクション内で守る
func (s *ClassSlot) Book(quantity int) error {
	if !s.CanBook(quantity) {
		return ErrCapacityExceeded
	}
	s.BookedSlots += quantity
	s.UpdatedAt = time.Now()
	return nil
}

// Release は予約数を quantity 席減らす（下限0でクランプ）
func (s *ClassSlot) Release(quantity int) {
	s.BookedSlots -= quantity
	if s.BookedSlots < 0 {
		s.BookedSlots = 0
	}
	s.UpdatedAt = time.Now()
}

// Validate は開催枠の検証を行う
func (s *ClassSlot) Validate() error {
	if s.ClassID == "" {
		return ErrClassIDRequired
	}
	if s.TotalSlots < 0 {
		return ErrInvalidCapacity
	}
	if s.BookedSlots < 0 || s.BookedSlots > s.TotalSlots {
		return ErrInvalidCapacity
	}
	if s.EndDate.Before(s.StartDate) {
		return ErrInvalidDateRange
	}
	return nil
}
