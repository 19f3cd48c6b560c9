package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestReservation(t *testing.T) *Reservation {
	t.Helper()
	r := NewReservation("slot-1", "session-1", 2, DefaultTTL)
	require.NoError(t, r.Validate())
	return r
}

func testPaymentDetails() PaymentDetails {
	return PaymentDetails{
		GatewaySessionID: "cs_test_123",
		PaymentID:        "pi_test_456",
		PaymentStatus:    "completed",
		AmountCents:      29500,
		Currency:         "CAD",
		Customer:         CustomerInfo{Name: "Taro Yamada", Email: "taro@example.com", Phone: "000-0000"},
	}
}

func TestNewReservation(t *testing.T) {
	tests := []struct {
		name        string
		slotID      string
		sessionID   string
		quantity    int
		wantErr     bool
		errExpected error
	}{
		{name: "正常な仮予約作成", slotID: "slot-1", sessionID: "sess-1", quantity: 1, wantErr: false},
		{name: "開催枠ID未指定", slotID: "", sessionID: "sess-1", quantity: 1, wantErr: true, errExpected: ErrSlotIDRequired},
		{name: "セッションID未指定", slotID: "slot-1", sessionID: "", quantity: 1, wantErr: true, errExpected: ErrSessionIDRequired},
		{name: "数量0は不正", slotID: "slot-1", sessionID: "sess-1", quantity: 0, wantErr: true, errExpected: ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReservation(tt.slotID, tt.sessionID, tt.quantity, DefaultTTL)
			err := r.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, tt.errExpected)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusTemporary, r.Status)
			assert.Equal(t, tt.quantity, r.Quantity)
			assert.WithinDuration(t, time.Now().Add(DefaultTTL), r.ExpiresAt, 2*time.Second)
			assert.True(t, r.IsValid())
			assert.True(t, r.IsActive())
		})
	}
}

func TestReservation_Renew(t *testing.T) {
	r := createTestReservation(t)
	oldExpiry := r.ExpiresAt

	time.Sleep(10 * time.Millisecond)
	err := r.Renew(5, DefaultTTL)
	require.NoError(t, err)
	assert.Equal(t, 5, r.Quantity)
	assert.True(t, r.ExpiresAt.After(oldExpiry))
}

func TestReservation_Renew_NotTemporary(t *testing.T) {
	r := createTestReservation(t)
	require.NoError(t, r.Confirm(testPaymentDetails()))

	err := r.Renew(3, DefaultTTL)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReservation_Confirm(t *testing.T) {
	r := createTestReservation(t)
	details := testPaymentDetails()

	err := r.Confirm(details)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, r.Status)
	assert.NotNil(t, r.ConfirmedAt)
	assert.Equal(t, details.PaymentID, r.PaymentID)
	assert.Equal(t, details.GatewaySessionID, r.GatewaySessionID)
	assert.Equal(t, details.Customer, r.Customer)
	assert.True(t, r.IsActive())
	assert.True(t, r.IsTerminal())
}

func TestReservation_Confirm_Terminal(t *testing.T) {
	tests := []struct {
		name   string
		status Status
	}{
		{name: "キャンセル済みは確定できない", status: StatusCancelled},
		{name: "期限切れは確定できない", status: StatusExpired},
		{name: "確定済みはエンティティ上は再確定できない", status: StatusConfirmed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := createTestReservation(t)
			r.Status = tt.status
			err := r.Confirm(testPaymentDetails())
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestReservation_Cancel(t *testing.T) {
	r := createTestReservation(t)
	err := r.Cancel()
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, r.Status)
	assert.NotNil(t, r.CancelledAt)
	assert.False(t, r.IsActive())
}

func TestReservation_Cancel_Confirmed(t *testing.T) {
	// 確定済み予約のキャンセルは許可される（返金・管理操作の経路）
	r := createTestReservation(t)
	require.NoError(t, r.Confirm(testPaymentDetails()))

	err := r.Cancel()
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, r.Status)
}

func TestReservation_Cancel_AlreadyCancelled(t *testing.T) {
	r := createTestReservation(t)
	require.NoError(t, r.Cancel())

	err := r.Cancel()
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
}

func TestReservation_Cancel_Expired(t *testing.T) {
	r := createTestReservation(t)
	r.Status = StatusExpired

	err := r.Cancel()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReservation_Expire(t *testing.T) {
	r := createTestReservation(t)
	err := r.Expire()
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, r.Status)
	assert.False(t, r.IsActive())
}

func TestReservation_Expire_NotTemporary(t *testing.T) {
	r := createTestReservation(t)
	require.NoError(t, r.Confirm(testPaymentDetails()))

	err := r.Expire()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReservation_IsValid(t *testing.T) {
	r := createTestReservation(t)
	assert.True(t, r.IsValid())

	r.ExpiresAt = time.Now().Add(-1 * time.Minute)
	assert.False(t, r.IsValid())
	assert.True(t, r.IsExpired())

	// 期限内でも terminal なら無効
	r2 := createTestReservation(t)
	require.NoError(t, r2.Cancel())
	assert.False(t, r2.IsValid())
}
