package postgres

import (
	"errors"

	"github.com/lib/pq"
)

const (
	// invalid_text_representation: UUID列に不正な文字列を渡した場合など
	pqInvalidTextRepresentation = "22P02"
	pqUniqueViolation           = "23505"
)

// isInvalidInput はIDの形式不正によるエラーかを返す
// 形式が不正なIDは存在しないIDとして扱う
func isInvalidInput(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqInvalidTextRepresentation
	}
	return false
}

// isUniqueViolation は一意制約違反かを返す
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}
