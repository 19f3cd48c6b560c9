package order

import "errors"

// Order ドメインのエラー定義
var (
	ErrOrderNotFound         = errors.New("注文が見つかりません")
	ErrReservationIDRequired = errors.New("予約IDは必須です")
	ErrInvalidAmount         = errors.New("注文金額の値が不正です")
)
