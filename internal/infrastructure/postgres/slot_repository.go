package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/slot"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/transaction"
)

type slotRow struct {
	ID          string    `db:"id"`
	ClassID     string    `db:"class_id"`
	StartDate   time.Time `db:"start_date"`
	EndDate     time.Time `db:"end_date"`
	TimeStart   string    `db:"time_start"`
	TimeEnd     string    `db:"time_end"`
	DayOfWeek   string    `db:"day_of_week"`
	Label       string    `db:"label"`
	TotalSlots  int       `db:"total_slots"`
	BookedSlots int       `db:"booked_slots"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *slotRow) toEntity() *slot.ClassSlot {
	return &slot.ClassSlot{
		ID: r.ID, ClassID: r.ClassID,
		StartDate: r.StartDate, EndDate: r.EndDate,
		TimeStart: r.TimeStart, TimeEnd: r.TimeEnd,
		DayOfWeek: r.DayOfWeek, Label: r.Label,
		TotalSlots: r.TotalSlots, BookedSlots: r.BookedSlots,
		IsActive: r.IsActive, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const slotColumns = `id, class_id, start_date, end_date, time_start, time_end, day_of_week, label, total_slots, booked_slots, is_active, created_at, updated_at`

type SlotRepository struct{ db *sqlx.DB }

func NewSlotRepository(db *sqlx.DB) *SlotRepository { return &SlotRepository{db: db} }

func (r *SlotRepository) Create(ctx context.Context, s *slot.ClassSlot) error {
	query := `INSERT INTO class_slots (class_id, start_date, end_date, time_start, time_end, day_of_week, label, total_slots, booked_slots, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query,
		s.ClassID, s.StartDate, s.EndDate, s.TimeStart, s.TimeEnd, s.DayOfWeek, s.Label,
		s.TotalSlots, s.BookedSlots, s.IsActive, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID); err != nil {
		return fmt.Errorf("開催枠作成に失敗: %w", err)
	}
	return nil
}

func (r *SlotRepository) GetByID(ctx context.Context, id string) (*slot.ClassSlot, error) {
	var row slotRow
	query := `SELECT ` + slotColumns + ` FROM class_slots WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, slot.ErrSlotNotFound
		}
		return nil, fmt.Errorf("開催枠取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

// GetByIDForUpdate は行ロック付きで開催枠を取得する
// 定員の read-modify-write はこのロック下で直列化される
func (r *SlotRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*slot.ClassSlot, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, fmt.Errorf("トランザクションが必要です")
	}
	var row slotRow
	query := `SELECT ` + slotColumns + ` FROM class_slots WHERE id = $1 FOR UPDATE`
	if err := sqlxTx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, slot.ErrSlotNotFound
		}
		return nil, wrapConflict(fmt.Errorf("開催枠のロック取得に失敗: %w", err))
	}
	return row.toEntity(), nil
}

func (r *SlotRepository) ListByClassID(ctx context.Context, classID string, after time.Time) ([]*slot.ClassSlot, error) {
	var rows []slotRow
	query := `SELECT ` + slotColumns + ` FROM class_slots WHERE class_id = $1 AND is_active = TRUE AND start_date >= $2 ORDER BY start_date`
	if err := r.db.SelectContext(ctx, &rows, query, classID, after); err != nil {
		return nil, fmt.Errorf("開催枠一覧取得に失敗: %w", err)
	}
	slots := make([]*slot.ClassSlot, len(rows))
	for i, row := range rows {
		slots[i] = row.toEntity()
	}
	return slots, nil
}

// AdjustBooked は予約数に delta を加算する（下限0でクランプ）
// 呼び出し側が同一トランザクションで FOR UPDATE を取得していること
func (r *SlotRepository) AdjustBooked(ctx context.Context, tx transaction.Tx, id string, delta int) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが必要です")
	}
	query := `UPDATE class_slots SET booked_slots = GREATEST(0, booked_slots + $1), updated_at = NOW() WHERE id = $2`
	result, err := sqlxTx.ExecContext(ctx, query, delta, id)
	if err != nil {
		return wrapConflict(fmt.Errorf("予約数の更新に失敗: %w", err))
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return slot.ErrSlotNotFound
	}
	return nil
}

func (r *SlotRepository) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE class_slots SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("開催枠の無効化に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return slot.ErrSlotNotFound
	}
	return nil
}

var _ slot.Repository = (*SlotRepository)(nil)
