package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/reservation"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/transaction"
)

type reservationRow struct {
	ID               string     `db:"id"`
	SlotID           string     `db:"slot_id"`
	SessionID        string     `db:"session_id"`
	Quantity         int        `db:"quantity"`
	Status           string     `db:"status"`
	ExpiresAt        time.Time  `db:"expires_at"`
	ConfirmedAt      *time.Time `db:"confirmed_at"`
	CancelledAt      *time.Time `db:"cancelled_at"`
	GatewaySessionID *string    `db:"gateway_session_id"`
	PaymentID        *string    `db:"payment_id"`
	PaymentStatus    *string    `db:"payment_status"`
	CustomerName     string     `db:"customer_name"`
	CustomerEmail    string     `db:"customer_email"`
	CustomerPhone    string     `db:"customer_phone"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

func (r *reservationRow) toEntity() *reservation.Reservation {
	res := &reservation.Reservation{
		ID: r.ID, SlotID: r.SlotID, SessionID: r.SessionID,
		Quantity: r.Quantity, Status: reservation.Status(r.Status),
		ExpiresAt: r.ExpiresAt, ConfirmedAt: r.ConfirmedAt, CancelledAt: r.CancelledAt,
		Customer: reservation.CustomerInfo{
			Name: r.CustomerName, Email: r.CustomerEmail, Phone: r.CustomerPhone,
		},
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
	if r.GatewaySessionID != nil {
		res.GatewaySessionID = *r.GatewaySessionID
	}
	if r.PaymentID != nil {
		res.PaymentID = *r.PaymentID
	}
	if r.PaymentStatus != nil {
		res.PaymentStatus = *r.PaymentStatus
	}
	return res
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

const reservationColumns = `id, slot_id, session_id, quantity, status, expires_at, confirmed_at, cancelled_at, gateway_session_id, payment_id, payment_status, customer_name, customer_email, customer_phone, created_at, updated_at`

type ReservationRepository struct{ db *sqlx.DB }

func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Create(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが必要です")
	}
	query := `INSERT INTO reservations (slot_id, session_id, quantity, status, expires_at, customer_name, customer_email, customer_phone, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	if err := sqlxTx.QueryRowContext(ctx, query,
		res.SlotID, res.SessionID, res.Quantity, string(res.Status), res.ExpiresAt,
		res.Customer.Name, res.Customer.Email, res.Customer.Phone,
		res.CreatedAt, res.UpdatedAt,
	).Scan(&res.ID); err != nil {
		// 部分一意インデックス uq_reservations_active_slot_session との競合は
		// 同一 (slot, session) への同時リクエストを意味する
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", transaction.ErrConflict, err)
		}
		return wrapConflict(fmt.Errorf("予約作成に失敗: %w", err))
	}
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	var row reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *ReservationRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*reservation.Reservation, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, fmt.Errorf("トランザクションが必要です")
	}
	var row reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`
	if err := sqlxTx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, wrapConflict(fmt.Errorf("予約取得に失敗: %w", err))
	}
	return row.toEntity(), nil
}

func (r *ReservationRepository) GetActiveBySlotAndSession(ctx context.Context, tx transaction.Tx, slotID, sessionID string) (*reservation.Reservation, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, fmt.Errorf("トランザクションが必要です")
	}
	var row reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE slot_id = $1 AND session_id = $2 AND status IN ('temporary', 'confirmed') FOR UPDATE`
	if err := sqlxTx.GetContext(ctx, &row, query, slotID, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, wrapConflict(fmt.Errorf("予約取得に失敗: %w", err))
	}
	return row.toEntity(), nil
}

func (r *ReservationRepository) GetActiveBySessionID(ctx context.Context, sessionID string) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE session_id = $1 AND status IN ('temporary', 'confirmed') ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	result := make([]*reservation.Reservation, len(rows))
	for i, row := range rows {
		result[i] = row.toEntity()
	}
	return result, nil
}

func (r *ReservationRepository) GetByGatewaySessionID(ctx context.Context, gatewaySessionID string) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE gateway_session_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &rows, query, gatewaySessionID); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	result := make([]*reservation.Reservation, len(rows))
	for i, row := range rows {
		result[i] = row.toEntity()
	}
	return result, nil
}

func (r *ReservationRepository) Update(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが必要です")
	}
	query := `UPDATE reservations SET quantity = $1, status = $2, expires_at = $3, confirmed_at = $4, cancelled_at = $5, gateway_session_id = $6, payment_id = $7, payment_status = $8, customer_name = $9, customer_email = $10, customer_phone = $11, updated_at = $12 WHERE id = $13`
	result, err := sqlxTx.ExecContext(ctx, query,
		res.Quantity, string(res.Status), res.ExpiresAt, res.ConfirmedAt, res.CancelledAt,
		nullable(res.GatewaySessionID), nullable(res.PaymentID), nullable(res.PaymentStatus),
		res.Customer.Name, res.Customer.Email, res.Customer.Phone,
		res.UpdatedAt, res.ID,
	)
	if err != nil {
		return wrapConflict(fmt.Errorf("予約更新に失敗: %w", err))
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return reservation.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) SetGatewaySessionID(ctx context.Context, id, gatewaySessionID string) error {
	query := `UPDATE reservations SET gateway_session_id = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, gatewaySessionID, id)
	if err != nil {
		return fmt.Errorf("ゲートウェイセッションIDの紐付けに失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return reservation.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) GetExpiredTemporary(ctx context.Context, now time.Time) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE status = 'temporary' AND expires_at < $1 ORDER BY expires_at`
	if err := r.db.SelectContext(ctx, &rows, query, now); err != nil {
		return nil, fmt.Errorf("期限切れ予約取得に失敗: %w", err)
	}
	result := make([]*reservation.Reservation, len(rows))
	for i, row := range rows {
		result[i] = row.toEntity()
	}
	return result, nil
}

var _ reservation.Repository = (*ReservationRepository)(nil)
