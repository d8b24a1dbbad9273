package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-reservation/internal/application"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/reservation"
)

const userIDHeader = "X-User-ID"

type ReservationHandler struct {
	service ReservationServiceInterface
}

func NewReservationHandler(s ReservationServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: s}
}

type CreateReservationRequest struct {
	ShowID     string   `json:"show_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	SeatLabels []string `json:"seat_labels" validate:"required,min=1" example:"A-1,A-2"`
}

type ReservationResponse struct {
	ID        string    `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	ShowID    string    `json:"show_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	UserID    *string   `json:"user_id,omitempty" example:"user-123"`
	SeatIDs   []string  `json:"seat_ids"`
	Status    string    `json:"status" example:"PENDING"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID: r.ID, ShowID: r.ShowID, UserID: r.UserID,
		SeatIDs: r.SeatIDs, Status: string(r.Status),
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// optionalUserID はヘッダーのユーザーIDを返す。未指定なら nil
func optionalUserID(c echo.Context) *string {
	userID := strings.TrimSpace(c.Request().Header.Get(userIDHeader))
	if userID == "" {
		return nil
	}
	return &userID
}

// Create godoc
// @Summary 座席をまとめて予約
// @Description 指定ラベルの座席を全て確保するか、何も確保しない
// @Tags reservations
// @Accept json
// @Produce json
// @Param X-User-ID header string false "ユーザーID"
// @Param request body CreateReservationRequest true "予約情報"
// @Success 201 {object} ReservationResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse "存在しない座席ラベル"
// @Failure 409 {object} api.ErrorResponse "座席が既に確保済み"
// @Failure 503 {object} api.ErrorResponse
// @Router /reservations [post]
func (h *ReservationHandler) Create(c echo.Context) error {
	var req CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	r, err := h.service.Reserve(c.Request().Context(), application.ReserveInput{
		ShowID: req.ShowID, SeatLabels: req.SeatLabels, UserID: optionalUserID(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toReservationResponse(r))
}

// GetByID godoc
// @Summary 予約を取得
// @Tags reservations
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /reservations/{id} [get]
func (h *ReservationHandler) GetByID(c echo.Context) error {
	r, err := h.service.GetReservation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// GetUserReservations godoc
// @Summary ユーザーの予約一覧を取得
// @Tags reservations
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} ReservationResponse
// @Failure 401 {object} api.ErrorResponse
// @Router /reservations [get]
func (h *ReservationHandler) GetUserReservations(c echo.Context) error {
	userID := optionalUserID(c)
	if userID == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	reservations, err := h.service.GetUserReservations(c.Request().Context(), *userID, limit, offset)
	if err != nil {
		return err
	}
	resp := make([]ReservationResponse, len(reservations))
	for i, r := range reservations {
		resp[i] = toReservationResponse(r)
	}
	return c.JSON(http.StatusOK, resp)
}

// Confirm godoc
// @Summary 予約を確定
// @Description 保留中の予約を確定する。確定後はリコンサイラーの対象外
// @Tags reservations
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "保留中ではない"
// @Router /reservations/{id}/confirm [post]
func (h *ReservationHandler) Confirm(c echo.Context) error {
	r, err := h.service.ConfirmReservation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}
