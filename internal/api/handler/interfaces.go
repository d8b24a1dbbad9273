package handler

import (
	"context"

	"github.com/sanosuguru/go-seat-reservation/internal/application"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/show"
)

// ShowServiceInterface は公演サービスのインターフェース
type ShowServiceInterface interface {
	CreateShow(ctx context.Context, input application.CreateShowInput) (*show.Show, error)
	GetShow(ctx context.Context, id string) (*show.Show, error)
}

// SeatServiceInterface は座席サービスのインターフェース
type SeatServiceInterface interface {
	CreateSeats(ctx context.Context, input application.CreateSeatsInput) ([]*seat.Seat, error)
	GetSeatsByShow(ctx context.Context, showID string, availableOnly bool) ([]*seat.Seat, error)
	CountAvailableSeats(ctx context.Context, showID string) (int, error)
}

// ReservationServiceInterface は予約サービスのインターフェース
type ReservationServiceInterface interface {
	Reserve(ctx context.Context, input application.ReserveInput) (*reservation.Reservation, error)
	GetReservation(ctx context.Context, id string) (*reservation.Reservation, error)
	GetUserReservations(ctx context.Context, userID string, limit, offset int) ([]*reservation.Reservation, error)
	ConfirmReservation(ctx context.Context, id string) (*reservation.Reservation, error)
}

// Pinger は依存先の疎通確認を行う
// *sqlx.DB がそのまま満たす
type Pinger interface {
	PingContext(ctx context.Context) error
}
