package reservation

import "time"

// EventType は予約のライフサイクルイベントの種類
type EventType string

const (
	EventCreated   EventType = "reservation.created"
	EventConfirmed EventType = "reservation.confirmed"
	EventExpired   EventType = "reservation.expired"
)

// Event はコミット後に外部へ通知される予約イベント
// 配信は best-effort で、欠落しても予約の状態には影響しない
type Event struct {
	Type          EventType `json:"type"`
	ReservationID string    `json:"reservation_id"`
	ShowID        string    `json:"show_id"`
	UserID        *string   `json:"user_id,omitempty"`
	SeatIDs       []string  `json:"seat_ids"`
	Status        Status    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewEvent は予約の現在の状態からイベントを作成する
func NewEvent(t EventType, r *Reservation) Event {
	return Event{
		Type:          t,
		ReservationID: r.ID,
		ShowID:        r.ShowID,
		UserID:        r.UserID,
		SeatIDs:       r.SeatIDs,
		Status:        r.Status,
		OccurredAt:    time.Now().UTC(),
	}
}
