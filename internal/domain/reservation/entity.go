package reservation

import (
	"time"

	"github.com/google/uuid"
)

// Status は予約の状態を表す
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusFailed    Status = "FAILED"
)

// IsTerminal は終端状態かを返す
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// Reservation は予約エンティティを表す
// SeatIDs は作成時に確定し、以降変更しない
type Reservation struct {
	ID        string
	ShowID    string
	UserID    *string
	SeatIDs   []string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewReservation は新しい保留中の予約を作成する
func NewReservation(showID string, userID *string, seatIDs []string) *Reservation {
	now := time.Now()
	ids := make([]string, len(seatIDs))
	copy(ids, seatIDs)
	return &Reservation{
		ID:        uuid.NewString(),
		ShowID:    showID,
		UserID:    userID,
		SeatIDs:   ids,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsPending は予約が保留中かを返す
func (r *Reservation) IsPending() bool {
	return r.Status == StatusPending
}

// IsStale は保留中のまま staleAfter を過ぎたかを返す
func (r *Reservation) IsStale(now time.Time, staleAfter time.Duration) bool {
	return r.IsPending() && r.CreatedAt.Before(now.Add(-staleAfter))
}

// Confirm は予約を確定する
func (r *Reservation) Confirm() error {
	if r.Status != StatusPending {
		return ErrReservationNotPending
	}
	r.Status = StatusConfirmed
	r.UpdatedAt = time.Now()
	return nil
}

// Fail は予約を失敗にする
func (r *Reservation) Fail() error {
	if r.Status != StatusPending {
		return ErrReservationNotPending
	}
	r.Status = StatusFailed
	r.UpdatedAt = time.Now()
	return nil
}

// Validate は予約の検証を行う
func (r *Reservation) Validate() error {
	if r.ShowID == "" {
		return ErrShowIDRequired
	}
	if len(r.SeatIDs) == 0 {
		return ErrSeatIDsRequired
	}
	return nil
}
