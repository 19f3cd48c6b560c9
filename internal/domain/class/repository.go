package class

import "context"

// Repository はクラスリポジトリのインターフェース
type Repository interface {
	// Create は新しいクラスを作成する
	Create(ctx context.Context, c *Class) error

	// GetByID はIDからクラスを取得する
	GetByID(ctx context.Context, id string) (*Class, error)

	// GetBySlug はスラッグからクラスを取得する
	GetBySlug(ctx context.Context, slug string) (*Class, error)

	// List は有効なクラス一覧を取得する
	List(ctx context.Context, limit, offset int) ([]*Class, error)
}
