package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/api/middleware"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/application"
)

type CartHandler struct {
	service CartServiceInterface
}

func NewCartHandler(s CartServiceInterface) *CartHandler {
	return &CartHandler{service: s}
}

type ApplyPromoRequest struct {
	Code string `json:"code" validate:"required" example:"WELCOME10"`
}

// Get godoc
// @Summary カートを取得
// @Description セッションの仮予約から組み立てたカートを返します
// @Tags cart
// @Produce json
// @Success 200 {object} application.Cart
// @Router /cart [get]
func (h *CartHandler) Get(c echo.Context) error {
	sessionID := middleware.SessionIDFrom(c)
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "セッションIDが必要です")
	}
	cart, err := h.service.GetCart(c.Request().Context(), sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cart)
}

// ApplyPromo godoc
// @Summary プロモコードを適用
// @Tags cart
// @Accept json
// @Produce json
// @Param request body ApplyPromoRequest true "プロモコード"
// @Success 200 {object} application.Cart
// @Failure 400 {object} map[string]string "無効なコード"
// @Router /cart/promo [post]
func (h *CartHandler) ApplyPromo(c echo.Context) error {
	sessionID := middleware.SessionIDFrom(c)
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "セッションIDが必要です")
	}
	var req ApplyPromoRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	cart, err := h.service.ApplyPromo(c.Request().Context(), sessionID, req.Code)
	if err != nil {
		if errors.Is(err, application.ErrInvalidPromoCode) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cart)
}

// RemovePromo godoc
// @Summary プロモコードを外す
// @Tags cart
// @Produce json
// @Success 200 {object} application.Cart
// @Router /cart/promo [delete]
func (h *CartHandler) RemovePromo(c echo.Context) error {
	sessionID := middleware.SessionIDFrom(c)
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "セッションIDが必要です")
	}
	cart, err := h.service.RemovePromo(c.Request().Context(), sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cart)
}
