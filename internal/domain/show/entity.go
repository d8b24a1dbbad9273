package show

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Show は公演エンティティを表す
// 座席の集合を所有する予約対象の単位
type Show struct {
	ID        string
	Name      string
	StartsAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewShow は新しい公演を作成する
func NewShow(name string, startsAt *time.Time) *Show {
	now := time.Now()
	return &Show{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		StartsAt:  startsAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate は公演の検証を行う
func (s *Show) Validate() error {
	if s.Name == "" {
		return ErrShowNameRequired
	}
	return nil
}
