package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/danielgtaylor/huma/v2"
	"github.com/labstack/echo/v4"

	"github.com/donaldgifford/wishlist-tracker/internal/metrics"
)

const stackBufSize = 8 << 10

// Recovery returns Echo middleware that turns a handler panic into a logged
// stack trace and a problem+json 500, the same error shape the API's Huma
// operations return. http.ErrAbortHandler is re-raised so net/http can abort
// the connection.
func Recovery(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				stack := make([]byte, stackBufSize)
				stack = stack[:runtime.Stack(stack, false)]
				reqID := RequestIDFromContext(c.Request().Context())

				metrics.HTTPPanicsTotal.Inc()
				log.Error("panic recovered",
					"error", fmt.Sprint(r),
					"method", c.Request().Method,
					"path", c.Request().URL.Path,
					"request_id", reqID,
					"stack", string(stack),
				)

				if c.Response().Committed {
					return
				}

				detail := "internal server error"
				if reqID != "" {
					detail += " (request " + reqID + ")"
				}
				problem := &huma.ErrorModel{
					Title:  http.StatusText(http.StatusInternalServerError),
					Status: http.StatusInternalServerError,
					Detail: detail,
				}
				c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
				err = c.JSON(http.StatusInternalServerError, problem)
			}()
			return next(c)
		}
	}
}
