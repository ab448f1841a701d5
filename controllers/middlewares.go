package controllers

import (
	"errors"

	"stylemateapi/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserMiddleware loads the account behind an access token into
// "currentUser". Refresh tokens are rejected.
func UserMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		db := c.Get("__db").(*gorm.DB)
		userRaw := c.Get("user")
		if userRaw == nil {
			return echo.ErrUnauthorized
		}
		token, ok := userRaw.(*jwt.Token)
		if !ok {
			return echo.ErrUnauthorized
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return echo.ErrUnauthorized
		}
		if typ, _ := claims["typ"].(string); typ == tokenTypeRefresh {
			return echo.ErrUnauthorized
		}
		userId, _ := claims["sub"].(string)
		if userId == "" {
			loggerFrom(c).Warn("token without subject")
			return echo.ErrUnauthorized
		}

		var currentUser models.UserAccount
		result := db.Where("id = ?", userId).Take(&currentUser)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return echo.ErrUnauthorized
		}
		if result.Error != nil {
			loggerFrom(c).Error("failed to load current user", zap.String("user_id", userId), zap.Error(result.Error))
			return echo.ErrInternalServerError
		}
		c.Set("currentUser", currentUser)
		return next(c)
	}
}

func currentUser(c echo.Context) (models.UserAccount, bool) {
	user, ok := c.Get("currentUser").(models.UserAccount)
	return user, ok
}

func dbFrom(c echo.Context) *gorm.DB {
	return c.Get("__db").(*gorm.DB).WithContext(c.Request().Context())
}
