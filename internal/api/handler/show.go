package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-reservation/internal/application"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/show"
)

type ShowHandler struct {
	service ShowServiceInterface
}

func NewShowHandler(s ShowServiceInterface) *ShowHandler {
	return &ShowHandler{service: s}
}

type CreateShowRequest struct {
	Name     string     `json:"name" validate:"required,max=255" example:"夜公演"`
	StartsAt *time.Time `json:"starts_at,omitempty"`
}

type ShowResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	StartsAt  *string `json:"starts_at,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func toShowResponse(s *show.Show) ShowResponse {
	resp := ShowResponse{
		ID:        s.ID,
		Name:      s.Name,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
	if s.StartsAt != nil {
		startsAt := s.StartsAt.Format(time.RFC3339)
		resp.StartsAt = &startsAt
	}
	return resp
}

// Create godoc
// @Summary 公演を作成
// @Tags shows
// @Accept json
// @Produce json
// @Param request body CreateShowRequest true "公演情報"
// @Success 201 {object} ShowResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /shows [post]
func (h *ShowHandler) Create(c echo.Context) error {
	var req CreateShowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	s, err := h.service.CreateShow(c.Request().Context(), application.CreateShowInput{
		Name: req.Name, StartsAt: req.StartsAt,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toShowResponse(s))
}

// GetByID godoc
// @Summary 公演を取得
// @Tags shows
// @Produce json
// @Param show_id path string true "公演ID"
// @Success 200 {object} ShowResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /shows/{show_id} [get]
func (h *ShowHandler) GetByID(c echo.Context) error {
	s, err := h.service.GetShow(c.Request().Context(), c.Param("show_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toShowResponse(s))
}
