package class

import "errors"

// Class ドメインのエラー定義
var (
	ErrClassNotFound = errors.New("クラスが見つかりません")
	ErrSlugRequired  = errors.New("スラッグは必須です")
	ErrTitleRequired = errors.New("タイトルは必須です")
	ErrInvalidPrice  = errors.New("価格の値が不正です")
)
