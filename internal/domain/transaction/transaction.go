package transaction

import (
	"context"
	"errors"
)

// ErrConflict は同時実行の競合（直列化失敗・デッドロック）を表す
// インフラ層が検出し、アプリケーション層がリトライ判定に使う
var ErrConflict = errors.New("トランザクションが競合しました")

// Tx はトランザクションを表すインターフェース
// ドメイン層がインフラ層（sqlx等）に依存しないようにするための抽象化
type Tx interface {
	// Commit はトランザクションをコミットする
	Commit() error
	// Rollback はトランザクションをロールバックする
	Rollback() error
}

// Manager はトランザクションを管理するインターフェース
type Manager interface {
	// Begin は新しいトランザクションを開始する
	Begin(ctx context.Context) (Tx, error)
}
