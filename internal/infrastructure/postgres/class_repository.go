package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/class"
)

type classRow struct {
	ID           string    `db:"id"`
	Slug         string    `db:"slug"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	PriceCents   int       `db:"price_cents"`
	Currency     string    `db:"currency"`
	PriceDisplay string    `db:"price_display"`
	Image        string    `db:"image"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r *classRow) toEntity() *class.Class {
	return &class.Class{
		ID: r.ID, Slug: r.Slug, Title: r.Title, Description: r.Description,
		PriceCents: r.PriceCents, Currency: r.Currency, PriceDisplay: r.PriceDisplay,
		Image: r.Image, IsActive: r.IsActive,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const classColumns = `id, slug, title, description, price_cents, currency, price_display, image, is_active, created_at, updated_at`

type ClassRepository struct{ db *sqlx.DB }

func NewClassRepository(db *sqlx.DB) *ClassRepository { return &ClassRepository{db: db} }

func (r *ClassRepository) Create(ctx context.Context, c *class.Class) error {
	query := `INSERT INTO classes (slug, title, description, price_cents, currency, price_display, image, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query,
		c.Slug, c.Title, c.Description, c.PriceCents, c.Currency, c.PriceDisplay,
		c.Image, c.IsActive, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID); err != nil {
		return fmt.Errorf("クラス作成に失敗: %w", err)
	}
	return nil
}

func (r *ClassRepository) GetByID(ctx context.Context, id string) (*class.Class, error) {
	var row classRow
	query := `SELECT ` + classColumns + ` FROM classes WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, class.ErrClassNotFound
		}
		return nil, fmt.Errorf("クラス取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *ClassRepository) GetBySlug(ctx context.Context, slug string) (*class.Class, error) {
	var row classRow
	query := `SELECT ` + classColumns + ` FROM classes WHERE slug = $1`
	if err := r.db.GetContext(ctx, &row, query, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, class.ErrClassNotFound
		}
		return nil, fmt.Errorf("クラス取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *ClassRepository) List(ctx context.Context, limit, offset int) ([]*class.Class, error) {
	var rows []classRow
	query := `SELECT ` + classColumns + ` FROM classes WHERE is_active = TRUE ORDER BY title LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("クラス一覧取得に失敗: %w", err)
	}
	classes := make([]*class.Class, len(rows))
	for i, row := range rows {
		classes[i] = row.toEntity()
	}
	return classes, nil
}

var _ class.Repository = (*ClassRepository)(nil)
