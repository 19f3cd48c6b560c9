package reservation

import "time"

// Status は予約の状態を表す
type Status string

const (
	StatusTemporary Status = "temporary"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// DefaultTTL は仮予約の有効期限（デフォルト20分）
const DefaultTTL = 20 * time.Minute

// CustomerInfo は予約者の連絡先情報
type CustomerInfo struct {
	Name  string
	Email string
	Phone string
}

// PaymentDetails は決済ゲートウェイから届く確定情報
type PaymentDetails struct {
	GatewaySessionID string
	PaymentID        string
	PaymentStatus    string
	AmountCents      int64
	Currency         string
	Customer         CustomerInfo
}

// Reservation は開催枠に対する仮押さえまたは確定済み予約を表すエンティティ
type Reservation struct {
	ID               string
	SlotID           string
	SessionID        string
	Quantity         int
	Status           Status
	ExpiresAt        time.Time
	ConfirmedAt      *time.Time
	CancelledAt      *time.Time
	GatewaySessionID string
	PaymentID        string
	PaymentStatus    string
	Customer         CustomerInfo
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewReservation は新しい仮予約を作成する
func NewReservation(slotID, sessionID string, quantity int, ttl time.Duration) *Reservation {
	now := time.Now()
	return &Reservation{
		SlotID:    slotID,
		SessionID: sessionID,
		Quantity:  quantity,
		Status:    StatusTemporary,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsExpired は有効期限が過ぎているかを返す
func (r *Reservation) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// IsValid は仮予約として有効（temporary かつ期限内）かを返す
func (r *Reservation) IsValid() bool {
	return r.Status == StatusTemporary && !r.IsExpired()
}

// IsActive は枠の定員に反映されている状態（temporary / confirmed）かを返す
func (r *Reservation) IsActive() bool {
	return r.Status == StatusTemporary || r.Status == StatusConfirmed
}

// IsTerminal は終端状態かを返す（終端状態からの遷移は存在しない）
func (r *Reservation) IsTerminal() bool {
	return r.Status == StatusConfirmed || r.Status == StatusCancelled || r.Status == StatusExpired
}

// Renew は数量を更新し有効期限を refresh する
func (r *Reservation) Renew(quantity int, ttl time.Duration) error {
	if r.Status != StatusTemporary {
		return ErrInvalidTransition
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	now := time.Now()
	r.Quantity = quantity
	r.ExpiresAt = now.Add(ttl)
	r.UpdatedAt = now
	return nil
}

// Confirm は予約を確定する（temporary からのみ遷移可能）
// 重複配送の冪等性はアプリケーション層で吸収する
func (r *Reservation) Confirm(details PaymentDetails) error {
	if r.Status != StatusTemporary {
		return ErrInvalidTransition
	}
	now := time.Now()
	r.Status = StatusConfirmed
	r.ConfirmedAt = &now
	r.GatewaySessionID = details.GatewaySessionID
	r.PaymentID = details.PaymentID
	r.PaymentStatus = details.PaymentStatus
	r.Customer = details.Customer
	r.UpdatedAt = now
	return nil
}

// Cancel は予約をキャンセルする
// expired からの遷移は不可（定員は既に解放済み）
func (r *Reservation) Cancel() error {
	if r.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	if r.Status == StatusExpired {
		return ErrInvalidTransition
	}
	now := time.Now()
	r.Status = StatusCancelled
	r.CancelledAt = &now
	r.UpdatedAt = now
	return nil
}

// Expire は期限切れの仮予約を expired にする
func (r *Reservation) Expire() error {
	if r.Status != StatusTemporary {
		return ErrInvalidTransition
	}
	r.Status = StatusExpired
	r.UpdatedAt = time.Now()
	return nil
}

// Validate は予約の検証を行う
func (r *Reservation) Validate() error {
	if r.SlotID == "" {
		return ErrSlotIDRequired
	}
	if r.SessionID == "" {
		return ErrSessionIDRequired
	}
	if r.Quantity < 1 {
		return ErrInvalidQuantity
	}
	return nil
}
