package controllers

import (
	"errors"
	"net/http"

	"stylemateapi/apperr"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// respondError writes err using the status its apperr kind maps to.
// Unclassified errors are reported to sentry and answered with 500.
func respondError(c echo.Context, err error) error {
	message := apperr.MessageOf(err, "Internal server error")
	switch apperr.KindOf(err) {
	case apperr.KindUserInput, apperr.KindConflict:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": message})
	case apperr.KindNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": message})
	case apperr.KindForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"message": message})
	case apperr.KindRateLimited:
		return c.JSON(http.StatusTooManyRequests, echo.Map{"message": message})
	default:
		captureError(c, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": message, "error": err.Error()})
	}
}

func captureError(c echo.Context, err error) {
	loggerFrom(c).Error("request failed",
		zap.String("path", c.Path()),
		zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		zap.Error(err),
	)
	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

// httpErrorHandler answers errors returned from handlers and middleware.
// echo errors keep their status; everything else goes through respondError.
func httpErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			if he.Internal != nil {
				logger.Debug("http error", zap.Int("status", he.Code), zap.Error(he.Internal))
			}
			message := he.Message
			if s, ok := message.(string); ok {
				message = echo.Map{"message": s}
			} else if m, ok := message.(error); ok {
				message = echo.Map{"message": m.Error()}
			}
			if c.Request().Method == http.MethodHead {
				err = c.NoContent(he.Code)
			} else {
				err = c.JSON(he.Code, message)
			}
		} else {
			err = respondError(c, err)
		}
		if err != nil {
			logger.Error("failed to write error response", zap.Error(err))
		}
	}
}

func loggerFrom(c echo.Context) *zap.Logger {
	if logger, ok := c.Get("__logger").(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}
