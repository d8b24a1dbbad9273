package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/application"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/show"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
// ハンドラーが返したドメインエラーをHTTPステータスに変換する
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	resp := ToErrorResponse(err)

	// エラーログを出力（5xx エラーの場合）
	if resp.Code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", resp.Code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	// JSONレスポンスを返す
	if err := c.JSON(resp.Code, resp); err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}

// ToErrorResponse はエラーをステータスコードとレスポンスに変換する
func ToErrorResponse(err error) ErrorResponse {
	var (
		he *echo.HTTPError
		ue *seat.UnavailableError
	)
	switch {
	case errors.As(err, &he):
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			message = m
		}
		return ErrorResponse{Error: message, Code: he.Code}

	case application.IsValidationError(err):
		return ErrorResponse{Error: err.Error(), Code: http.StatusBadRequest}

	case errors.Is(err, seat.ErrSeatNotFound),
		errors.Is(err, reservation.ErrReservationNotFound),
		errors.Is(err, show.ErrShowNotFound):
		return ErrorResponse{Error: err.Error(), Code: http.StatusNotFound}

	case errors.As(err, &ue):
		return ErrorResponse{Error: seat.ErrSeatUnavailable.Error(), Code: http.StatusConflict, Details: ue.Label}

	case errors.Is(err, seat.ErrSeatUnavailable),
		errors.Is(err, seat.ErrDuplicateLabel),
		errors.Is(err, reservation.ErrReservationNotPending):
		return ErrorResponse{Error: err.Error(), Code: http.StatusConflict}

	case errors.Is(err, application.ErrStoreFailure),
		errors.Is(err, context.DeadlineExceeded):
		// 結果が確定していない可能性がある。内部の詳細は返さない
		return ErrorResponse{Error: "一時的に処理できません。予約IDで状態を確認してください", Code: http.StatusServiceUnavailable}

	default:
		return ErrorResponse{Error: "内部サーバーエラー", Code: http.StatusInternalServerError}
	}
}
