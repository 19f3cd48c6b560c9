package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/order"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/reservation"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/transaction"
)

type orderRow struct {
	ID               string    `db:"id"`
	ReservationID    string    `db:"reservation_id"`
	OrderNumber      string    `db:"order_number"`
	AmountCents      int64     `db:"amount_cents"`
	Currency         string    `db:"currency"`
	GatewaySessionID *string   `db:"gateway_session_id"`
	PaymentID        *string   `db:"payment_id"`
	PaymentStatus    string    `db:"payment_status"`
	CustomerName     string    `db:"customer_name"`
	CustomerEmail    string    `db:"customer_email"`
	CustomerPhone    string    `db:"customer_phone"`
	CreatedAt        time.Time `db:"created_at"`
}

func (r *orderRow) toEntity() *order.Order {
	o := &order.Order{
		ID: r.ID, ReservationID: r.ReservationID, OrderNumber: r.OrderNumber,
		AmountCents: r.AmountCents, Currency: r.Currency, PaymentStatus: r.PaymentStatus,
		Customer: reservation.CustomerInfo{
			Name: r.CustomerName, Email: r.CustomerEmail, Phone: r.CustomerPhone,
		},
		CreatedAt: r.CreatedAt,
	}
	if r.GatewaySessionID != nil {
		o.GatewaySessionID = *r.GatewaySessionID
	}
	if r.PaymentID != nil {
		o.PaymentID = *r.PaymentID
	}
	return o
}

const orderColumns = `id, reservation_id, order_number, amount_cents, currency, gateway_session_id, payment_id, payment_status, customer_name, customer_email, customer_phone, created_at`

type OrderRepository struct{ db *sqlx.DB }

func NewOrderRepository(db *sqlx.DB) *OrderRepository { return &OrderRepository{db: db} }

func (r *OrderRepository) Create(ctx context.Context, tx transaction.Tx, o *order.Order) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが必要です")
	}
	query := `INSERT INTO orders (reservation_id, order_number, amount_cents, currency, gateway_session_id, payment_id, payment_status, customer_name, customer_email, customer_phone, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	if err := sqlxTx.QueryRowContext(ctx, query,
		o.ReservationID, o.OrderNumber, o.AmountCents, o.Currency,
		nullable(o.GatewaySessionID), nullable(o.PaymentID), o.PaymentStatus,
		o.Customer.Name, o.Customer.Email, o.Customer.Phone, o.CreatedAt,
	).Scan(&o.ID); err != nil {
		// 注文番号の衝突は競合として扱い、トランザクションごとやり直させる
		// （再実行時に NewOrder が新しい番号を振る）
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", transaction.ErrConflict, err)
		}
		return wrapConflict(fmt.Errorf("注文作成に失敗: %w", err))
	}
	return nil
}

func (r *OrderRepository) GetByReservationID(ctx context.Context, reservationID string) (*order.Order, error) {
	var row orderRow
	query := `SELECT ` + orderColumns + ` FROM orders WHERE reservation_id = $1`
	if err := r.db.GetContext(ctx, &row, query, reservationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("注文取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *OrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	var row orderRow
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`
	if err := r.db.GetContext(ctx, &row, query, orderNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("注文取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

var _ order.Repository = (*OrderRepository)(nil)
