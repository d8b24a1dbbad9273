package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sanosuguru/go-seat-reservation/internal/pkg/metrics"
)

// 予約リクエストは小さいので大きなボディは受け付けない
const bodyLimit = "1M"

// SetupMiddleware は共通ミドルウェアを設定する
// m が nil の場合はHTTPメトリクスを収集しない
func SetupMiddleware(e *echo.Echo, m *metrics.Metrics) {
	// リクエストID
	e.Use(middleware.RequestID())

	// 構造化リクエストログ（zap）
	e.Use(RequestLogger())

	// パニックリカバリー
	e.Use(middleware.Recover())

	// CORS
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.POST},
		AllowHeaders: []string{echo.HeaderContentType, "X-User-ID"},
	}))

	e.Use(middleware.BodyLimit(bodyLimit))

	if m != nil {
		e.Use(PrometheusMiddleware(m))
	}
}
