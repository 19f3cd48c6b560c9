package slot

import "errors"

// Slot ドメインのエラー定義
var (
	ErrSlotNotFound     = errors.New("開催枠が見つかりません")
	ErrSlotInactive     = errors.New("開催枠は現在有効ではありません")
	ErrCapacityExceeded = errors.New("残席数を超える予約はできません")
	ErrInvalidCapacity  = errors.New("定員の値が不正です")
	ErrInvalidDateRange = errors.New("開催期間の指定が不正です")
	ErrClassIDRequired  = errors.New("クラスIDは必須です")
)
