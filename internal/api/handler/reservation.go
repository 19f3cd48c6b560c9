package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/api/middleware"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/application"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/reservation"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/slot"
)

type ReservationHandler struct {
	service ReservationServiceInterface
}

func NewReservationHandler(s ReservationServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: s}
}

type CreateHoldRequest struct {
	SlotID   string `json:"slot_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	Quantity int    `json:"quantity" validate:"required,min=1" example:"2"`
}

type HoldResponse struct {
	ID          string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	SlotID      string     `json:"slot_id"`
	Quantity    int        `json:"quantity" example:"2"`
	Status      string     `json:"status" example:"temporary"`
	ExpiresAt   time.Time  `json:"expires_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toHoldResponse(r *reservation.Reservation) HoldResponse {
	return HoldResponse{
		ID: r.ID, SlotID: r.SlotID,
		Quantity: r.Quantity, Status: string(r.Status),
		ExpiresAt: r.ExpiresAt, ConfirmedAt: r.ConfirmedAt, CreatedAt: r.CreatedAt,
	}
}

// CreateOrRenew godoc
// @Summary 席をホールド
// @Description 開催枠の席を仮押さえします。同じ枠を再度ホールドすると数量と期限が更新されます
// @Tags holds
// @Accept json
// @Produce json
// @Param request body CreateHoldRequest true "ホールド情報"
// @Success 201 {object} HoldResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "満席または競合"
// @Router /holds [post]
func (h *ReservationHandler) CreateOrRenew(c echo.Context) error {
	sessionID := middleware.SessionIDFrom(c)
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "セッションIDが必要です")
	}
	var req CreateHoldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	r, err := h.service.CreateOrRenewHold(c.Request().Context(), application.HoldInput{
		SlotID: req.SlotID, SessionID: sessionID, Quantity: req.Quantity,
	})
	if err != nil {
		return holdError(err)
	}
	return c.JSON(http.StatusCreated, toHoldResponse(r))
}

// GetByID godoc
// @Summary ホールドを取得
// @Tags holds
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} HoldResponse
// @Failure 404 {object} map[string]string
// @Router /holds/{id} [get]
func (h *ReservationHandler) GetByID(c echo.Context) error {
	r, err := h.service.GetHold(c.Request().Context(), c.Param("id"))
	if err != nil {
		return holdError(err)
	}
	return c.JSON(http.StatusOK, toHoldResponse(r))
}

// Cancel godoc
// @Summary ホールドをキャンセル
// @Description ホールドをキャンセルし、席を解放します
// @Tags holds
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} HoldResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /holds/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c echo.Context) error {
	r, err := h.service.CancelHold(c.Request().Context(), c.Param("id"))
	if err != nil {
		return holdError(err)
	}
	return c.JSON(http.StatusOK, toHoldResponse(r))
}

// holdError はドメインエラーをHTTPステータスに対応付ける
func holdError(err error) error {
	switch {
	case errors.Is(err, reservation.ErrReservationNotFound),
		errors.Is(err, slot.ErrSlotNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, slot.ErrCapacityExceeded),
		errors.Is(err, slot.ErrSlotInactive),
		errors.Is(err, reservation.ErrInvalidTransition),
		errors.Is(err, reservation.ErrAlreadyCancelled),
		errors.Is(err, application.ErrConcurrencyConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, reservation.ErrInvalidQuantity):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
