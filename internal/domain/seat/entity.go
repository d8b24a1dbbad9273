package seat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status は座席の状態を表す
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusHeld      Status = "HELD"
)

// Seat は座席エンティティを表す
// ラベルは公演内で一意
type Seat struct {
	ID        string
	ShowID    string
	Label     string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSeat は新しい座席を作成する
func NewSeat(showID, label string) *Seat {
	now := time.Now()
	return &Seat{
		ID:        uuid.NewString(),
		ShowID:    showID,
		Label:     strings.TrimSpace(label),
		Status:    StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAvailable は座席が予約可能かを返す
func (s *Seat) IsAvailable() bool {
	return s.Status == StatusAvailable
}

// Validate は座席の検証を行う
func (s *Seat) Validate() error {
	if s.ShowID == "" {
		return ErrShowIDRequired
	}
	if s.Label == "" {
		return ErrLabelRequired
	}
	return nil
}

// NormalizeLabels は前後の空白を除去し、空ラベルと重複を取り除く
// 並び順は最初に現れた順を保つ
func NormalizeLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// FirstUnavailable はラベル順で最初に見つかった予約不可の座席を返す
// 全席が空いていれば nil
func FirstUnavailable(labels []string, seats []*Seat) *Seat {
	byLabel := make(map[string]*Seat, len(seats))
	for _, s := range seats {
		byLabel[s.Label] = s
	}
	for _, l := range labels {
		if s, ok := byLabel[l]; ok && !s.IsAvailable() {
			return s
		}
	}
	return nil
}

// IDsInLabelOrder は座席IDをラベルの指定順に並べて返す
func IDsInLabelOrder(labels []string, seats []*Seat) []string {
	byLabel := make(map[string]string, len(seats))
	for _, s := range seats {
		byLabel[s.Label] = s.ID
	}
	ids := make([]string, 0, len(labels))
	for _, l := range labels {
		if id, ok := byLabel[l]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
