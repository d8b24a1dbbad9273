package seat

import (
	"errors"
	"fmt"
)

// Seat ドメインのエラー定義
var (
	ErrSeatNotFound    = errors.New("座席が見つかりません")
	ErrSeatUnavailable = errors.New("座席は予約できません")
	ErrShowIDRequired  = errors.New("公演IDは必須です")
	ErrLabelRequired   = errors.New("座席ラベルは必須です")
	ErrLabelsRequired  = errors.New("座席ラベルを1つ以上指定してください")
	ErrDuplicateLabel  = errors.New("座席ラベルが重複しています")
)

// UnavailableError は予約できなかった座席のラベルを保持する
type UnavailableError struct {
	Label string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSeatUnavailable.Error(), e.Label)
}

// Is により errors.Is(err, ErrSeatUnavailable) が成立する
func (e *UnavailableError) Is(target error) bool {
	return target == ErrSeatUnavailable
}
