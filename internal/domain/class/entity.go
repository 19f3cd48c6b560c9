package class

import "time"

// Class は陶芸クラス（カタログ上の商品）を表すエンティティ
// 予約コアにとってはカート表示用の外部データであり、ここでは読み取りが中心
type Class struct {
	ID           string
	Slug         string
	Title        string
	Description  string
	PriceCents   int
	Currency     string // "CAD"
	PriceDisplay string // "$295 + tax" のような表示形式
	Image        string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewClass は新しいクラスを作成する
func NewClass(slug, title string, priceCents int) *Class {
	now := time.Now()
	return &Class{
		Slug:       slug,
		Title:      title,
		PriceCents: priceCents,
		Currency:   "CAD",
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Validate はクラスの検証を行う
func (c *Class) Validate() error {
	if c.Slug == "" {
		return ErrSlugRequired
	}
	if c.Title == "" {
		return ErrTitleRequired
	}
	if c.PriceCents < 0 {
		return ErrInvalidPrice
	}
	return nil
}
