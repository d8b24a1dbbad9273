package reservation

import "errors"

// Reservation ドメインのエラー定義
var (
	ErrReservationNotFound   = errors.New("予約が見つかりません")
	ErrReservationNotPending = errors.New("予約は保留中ではありません")
	ErrShowIDRequired        = errors.New("公演IDは必須です")
	ErrSeatIDsRequired       = errors.New("座席IDは必須です")
	ErrUserIDRequired        = errors.New("ユーザーIDは必須です")
)
