package seat

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSeat(t *testing.T) {
	s := NewSeat("show-123", "  A-1 ")

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "show-123", s.ShowID)
	assert.Equal(t, "A-1", s.Label)
	assert.Equal(t, StatusAvailable, s.Status)
	assert.NotZero(t, s.CreatedAt)
}

func TestSeat_IsAvailable(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		expected bool
	}{
		{"利用可能", StatusAvailable, true},
		{"確保済み", StatusHeld, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Seat{Status: tt.status}
			assert.Equal(t, tt.expected, s.IsAvailable())
		})
	}
}

func TestSeat_Validate(t *testing.T) {
	tests := []struct {
		name        string
		seat        *Seat
		expectedErr error
	}{
		{"有効な座席", &Seat{ShowID: "show-1", Label: "A-1"}, nil},
		{"公演IDなし", &Seat{Label: "A-1"}, ErrShowIDRequired},
		{"ラベルなし", &Seat{ShowID: "show-1"}, ErrLabelRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedErr, tt.seat.Validate())
		})
	}
}

func TestNormalizeLabels(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"空白を除去する", []string{" 1", "2 "}, []string{"1", "2"}},
		{"重複を除去し順序を保つ", []string{"2", "1", "2", " 1 "}, []string{"2", "1"}},
		{"空ラベルは捨てる", []string{"", "  ", "3"}, []string{"3"}},
		{"全て空なら空スライス", []string{" ", ""}, []string{}},
		{"nil入力", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeLabels(tt.input))
		})
	}
}

func TestFirstUnavailable(t *testing.T) {
	seats := []*Seat{
		{ID: "s1", Label: "1", Status: StatusAvailable},
		{ID: "s2", Label: "2", Status: StatusHeld},
		{ID: "s3", Label: "3", Status: StatusHeld},
	}

	t.Run("ラベル順で最初の確保済み座席を返す", func(t *testing.T) {
		got := FirstUnavailable([]string{"3", "1", "2"}, seats)
		if assert.NotNil(t, got) {
			assert.Equal(t, "3", got.Label)
		}
	})

	t.Run("全席空いていれば nil", func(t *testing.T) {
		assert.Nil(t, FirstUnavailable([]string{"1"}, seats))
	})
}

func TestIDsInLabelOrder(t *testing.T) {
	seats := []*Seat{
		{ID: "s1", Label: "1"},
		{ID: "s2", Label: "2"},
	}
	assert.Equal(t, []string{"s2", "s1"}, IDsInLabelOrder([]string{"2", "1"}, seats))
}

func TestUnavailableError(t *testing.T) {
	var err error = &UnavailableError{Label: "2"}
	wrapped := fmt.Errorf("予約失敗: %w", err)

	assert.True(t, errors.Is(wrapped, ErrSeatUnavailable))
	assert.False(t, errors.Is(wrapped, ErrSeatNotFound))

	var ue *UnavailableError
	if assert.True(t, errors.As(wrapped, &ue)) {
		assert.Equal(t, "2", ue.Label)
	}
	assert.Contains(t, err.Error(), "2")
}
