package handler

import "github.com/labstack/echo/v4"

// Handlers はルーティングに登録するハンドラーの集合
type Handlers struct {
	Health      *HealthHandler
	Show        *ShowHandler
	Seat        *SeatHandler
	Reservation *ReservationHandler
}

// RegisterRoutes はAPIルートを登録する
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/health", h.Health.Check)

	v1 := e.Group("/api/v1")

	shows := v1.Group("/shows")
	shows.POST("", h.Show.Create)
	shows.GET("/:show_id", h.Show.GetByID)
	shows.POST("/:show_id/seats", h.Seat.Create)
	shows.GET("/:show_id/seats", h.Seat.GetByShow)
	shows.GET("/:show_id/seats/available/count", h.Seat.CountAvailable)

	reservations := v1.Group("/reservations")
	reservations.POST("", h.Reservation.Create)
	reservations.GET("", h.Reservation.GetUserReservations)
	reservations.GET("/:id", h.Reservation.GetByID)
	reservations.POST("/:id/confirm", h.Reservation.Confirm)
}
