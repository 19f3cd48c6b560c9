package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/transaction"
)

// PostgreSQL のエラーコード
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// IsSerializationError は直列化失敗・デッドロックによるエラーかを返す
func IsSerializationError(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}

// IsUniqueViolation は一意制約違反かを返す
func IsUniqueViolation(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation
	}
	return false
}

// wrapConflict は競合系のエラーを transaction.ErrConflict で包む
// アプリケーション層はこのセンチネルだけを見てリトライを判断する
func wrapConflict(err error) error {
	if err == nil {
		return nil
	}
	if IsSerializationError(err) {
		return fmt.Errorf("%w: %v", transaction.ErrConflict, err)
	}
	return err
}
