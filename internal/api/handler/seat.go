package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-reservation/internal/application"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
)

type SeatHandler struct {
	service SeatServiceInterface
}

func NewSeatHandler(s SeatServiceInterface) *SeatHandler {
	return &SeatHandler{service: s}
}

type CreateSeatsRequest struct {
	Labels []string `json:"labels" validate:"required,min=1,max=5000,dive,required,max=64" example:"A-1,A-2"`
}

type SeatResponse struct {
	ID     string `json:"id"`
	ShowID string `json:"show_id"`
	Label  string `json:"label"`
	Status string `json:"status"`
}

type AvailableCountResponse struct {
	ShowID string `json:"show_id"`
	Count  int    `json:"available_count"`
}

func toSeatResponse(s *seat.Seat) SeatResponse {
	return SeatResponse{ID: s.ID, ShowID: s.ShowID, Label: s.Label, Status: string(s.Status)}
}

func toSeatResponses(seats []*seat.Seat) []SeatResponse {
	resp := make([]SeatResponse, len(seats))
	for i, s := range seats {
		resp[i] = toSeatResponse(s)
	}
	return resp
}

// Create godoc
// @Summary 座席を一括登録
// @Tags seats
// @Accept json
// @Produce json
// @Param show_id path string true "公演ID"
// @Param request body CreateSeatsRequest true "座席ラベル"
// @Success 201 {array} SeatResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "ラベルが既に存在する"
// @Router /shows/{show_id}/seats [post]
func (h *SeatHandler) Create(c echo.Context) error {
	var req CreateSeatsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	seats, err := h.service.CreateSeats(c.Request().Context(), application.CreateSeatsInput{
		ShowID: c.Param("show_id"), Labels: req.Labels,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toSeatResponses(seats))
}

// GetByShow godoc
// @Summary 公演の座席一覧を取得
// @Tags seats
// @Produce json
// @Param show_id path string true "公演ID"
// @Param available query bool false "空席のみ"
// @Success 200 {array} SeatResponse
// @Router /shows/{show_id}/seats [get]
func (h *SeatHandler) GetByShow(c echo.Context) error {
	availableOnly := c.QueryParam("available") == "true"
	seats, err := h.service.GetSeatsByShow(c.Request().Context(), c.Param("show_id"), availableOnly)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSeatResponses(seats))
}

// CountAvailable godoc
// @Summary 空席数を取得
// @Tags seats
// @Produce json
// @Param show_id path string true "公演ID"
// @Success 200 {object} AvailableCountResponse
// @Router /shows/{show_id}/seats/available/count [get]
func (h *SeatHandler) CountAvailable(c echo.Context) error {
	showID := c.Param("show_id")
	count, err := h.service.CountAvailableSeats(c.Request().Context(), showID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AvailableCountResponse{ShowID: showID, Count: count})
}
