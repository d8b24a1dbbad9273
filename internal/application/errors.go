package application

import (
	"errors"
	"fmt"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/show"
)

// ErrStoreFailure はストア（DB）の操作が失敗したことを表す
// 呼び出し側は errors.Is で判定でき、元のドライバーエラーも辿れる
var ErrStoreFailure = errors.New("ストアの操作に失敗しました")

// domainErrors はストア層から返ってもそのまま呼び出し側へ返すエラー
var domainErrors = []error{
	seat.ErrSeatNotFound,
	seat.ErrSeatUnavailable,
	seat.ErrDuplicateLabel,
	reservation.ErrReservationNotFound,
	reservation.ErrReservationNotPending,
	show.ErrShowNotFound,
}

// storeError はドメインエラー以外を ErrStoreFailure で包む
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, de := range domainErrors {
		if errors.Is(err, de) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreFailure, op, err)
}

// IsValidationError は入力検証エラーかを返す
func IsValidationError(err error) bool {
	return errors.Is(err, seat.ErrLabelsRequired) ||
		errors.Is(err, seat.ErrLabelRequired) ||
		errors.Is(err, seat.ErrShowIDRequired) ||
		errors.Is(err, reservation.ErrShowIDRequired) ||
		errors.Is(err, reservation.ErrSeatIDsRequired) ||
		errors.Is(err, reservation.ErrUserIDRequired) ||
		errors.Is(err, show.ErrShowNameRequired)
}
