package reservation

import "errors"

// Reservation ドメインのエラー定義
var (
	ErrReservationNotFound = errors.New("予約が見つかりません")
	ErrInvalidTransition   = errors.New("終端状態の予約に対する操作はできません")
	ErrAlreadyCancelled    = errors.New("予約は既にキャンセルされています")
	ErrInvalidQuantity     = errors.New("予約数量は1以上である必要があります")
	ErrSlotIDRequired      = errors.New("開催枠IDは必須です")
	ErrSessionIDRequired   = errors.New("セッションIDは必須です")
)
