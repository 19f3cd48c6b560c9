package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/class"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/domain/slot"
)

type CatalogHandler struct {
	service CatalogServiceInterface
}

func NewCatalogHandler(s CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: s}
}

type ClassResponse struct {
	ID           string `json:"id"`
	Slug         string `json:"slug" example:"wheel-throwing"`
	Title        string `json:"title" example:"Wheel Throwing"`
	Description  string `json:"description,omitempty"`
	PriceCents   int    `json:"price_cents" example:"29500"`
	Currency     string `json:"currency" example:"CAD"`
	PriceDisplay string `json:"price_display,omitempty" example:"$295 + tax"`
	Image        string `json:"image,omitempty"`
}

type SlotResponse struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"class_id"`
	Label     string    `json:"label" example:"Monday April 7 – April 28"`
	DayOfWeek string    `json:"day_of_week,omitempty" example:"Monday"`
	TimeStart string    `json:"time_start,omitempty" example:"6:00 PM"`
	TimeEnd   string    `json:"time_end,omitempty" example:"8:00 PM"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Available int       `json:"available" example:"5"`
	IsFull    bool      `json:"is_full"`
}

func toClassResponse(cl *class.Class) ClassResponse {
	return ClassResponse{
		ID: cl.ID, Slug: cl.Slug, Title: cl.Title, Description: cl.Description,
		PriceCents: cl.PriceCents, Currency: cl.Currency,
		PriceDisplay: cl.PriceDisplay, Image: cl.Image,
	}
}

func toSlotResponse(sl *slot.ClassSlot, available int) SlotResponse {
	return SlotResponse{
		ID: sl.ID, ClassID: sl.ClassID, Label: sl.Label,
		DayOfWeek: sl.DayOfWeek, TimeStart: sl.TimeStart, TimeEnd: sl.TimeEnd,
		StartDate: sl.StartDate, EndDate: sl.EndDate,
		Available: available, IsFull: available <= 0,
	}
}

// ListClasses godoc
// @Summary クラス一覧を取得
// @Tags catalog
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} ClassResponse
// @Router /classes [get]
func (h *CatalogHandler) ListClasses(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	classes, err := h.service.ListClasses(c.Request().Context(), limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]ClassResponse, len(classes))
	for i, cl := range classes {
		resp[i] = toClassResponse(cl)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetClass godoc
// @Summary クラス詳細を取得
// @Tags catalog
// @Produce json
// @Param slug path string true "クラスのスラッグ"
// @Success 200 {object} ClassResponse
// @Failure 404 {object} map[string]string
// @Router /classes/{slug} [get]
func (h *CatalogHandler) GetClass(c echo.Context) error {
	cl, err := h.service.GetClassBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, class.ErrClassNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toClassResponse(cl))
}

// ListSlots godoc
// @Summary クラスの開催枠一覧を残席数付きで取得
// @Tags catalog
// @Produce json
// @Param id path string true "クラスID"
// @Success 200 {array} SlotResponse
// @Failure 404 {object} map[string]string
// @Router /classes/{id}/slots [get]
func (h *CatalogHandler) ListSlots(c echo.Context) error {
	slots, err := h.service.ListSlots(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, class.ErrClassNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]SlotResponse, len(slots))
	for i, sa := range slots {
		resp[i] = toSlotResponse(sa.Slot, sa.Available)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetAvailability godoc
// @Summary 開催枠の残席数を取得
// @Tags catalog
// @Produce json
// @Param id path string true "開催枠ID"
// @Success 200 {object} SlotResponse
// @Failure 404 {object} map[string]string
// @Router /slots/{id}/availability [get]
func (h *CatalogHandler) GetAvailability(c echo.Context) error {
	sa, err := h.service.GetSlotAvailability(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, slot.ErrSlotNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toSlotResponse(sa.Slot, sa.Available))
}
