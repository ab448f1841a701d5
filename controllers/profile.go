package controllers

import (
	"errors"
	"net/http"
	"strings"

	"stylemateapi/config"
	"stylemateapi/models"
	"stylemateapi/services"
	"stylemateapi/tasks"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProfileController struct {
	Config   *config.Config
	Storage  services.AWSServiceProvider
	URLCache services.URLCacheServiceProvider
	Tasks    tasks.Enqueuer
}

func (controller *ProfileController) ProfileRoutes(g *echo.Group, m ...echo.MiddlewareFunc) {
	g.GET("/profile", controller.GetProfile, m...)
	g.PATCH("/profile", controller.UpdateProfile, m...)
	g.POST("/avatar", controller.UploadAvatar, m...)
}

func (controller *ProfileController) GetProfile(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	return c.JSON(http.StatusOK, controller.withAvatarURL(c, user))
}

func (controller *ProfileController) UpdateProfile(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	var req models.ProfileUpdateIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		req.Username = &trimmed
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	db := dbFrom(c)
	updates := map[string]interface{}{}
	if req.Username != nil && *req.Username != user.Username {
		var taken int64
		if err := db.Model(&models.UserAccount{}).
			Where("username = ? AND id <> ?", *req.Username, user.ID).
			Count(&taken).Error; err != nil {
			return respondError(c, err)
		}
		if taken > 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Username is already taken"})
		}
		updates["username"] = *req.Username
		user.Username = *req.Username
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
		user.Bio = *req.Bio
	}
	if len(updates) > 0 {
		if err := db.Model(&models.UserAccount{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return c.JSON(http.StatusBadRequest, echo.Map{"message": "Username is already taken"})
			}
			return respondError(c, err)
		}
	}
	return c.JSON(http.StatusOK, controller.withAvatarURL(c, user))
}

// UploadAvatar stores a fresh object key for the avatar and hands back a
// presigned upload URL. The previous avatar object is deleted in the
// background.
func (controller *ProfileController) UploadAvatar(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	var req models.AvatarUploadIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	key, err := services.ObjectKey("avatars", user.ID, req.FileName)
	if err != nil {
		return respondError(c, err)
	}
	ctx := c.Request().Context()
	bucket := controller.Config.Storage.Bucket
	uploadUrl, err := controller.Storage.PresignLink(ctx, bucket, key)
	if err != nil {
		return respondError(c, err)
	}

	previous := user.AvatarURL
	if err := dbFrom(c).Model(&models.UserAccount{}).Where("id = ?", user.ID).Update("avatar_url", key).Error; err != nil {
		return respondError(c, err)
	}
	user.AvatarURL = key
	if previous != "" {
		logger := loggerFrom(c)
		if err := controller.URLCache.Invalidate(ctx, previous); err != nil {
			logger.Warn("failed to invalidate avatar url", zap.Error(err))
		}
		enqueueObjectDelete(logger, controller.Tasks, bucket, &previous)
	}
	return c.JSON(http.StatusOK, models.AvatarUploadOut{
		User:          controller.withAvatarURL(c, user),
		FileUploadUrl: uploadUrl,
	})
}

func (controller *ProfileController) withAvatarURL(c echo.Context, user models.UserAccount) models.UserAccount {
	if user.AvatarURL == "" {
		return user
	}
	if url := readURL(c.Request().Context(), loggerFrom(c), controller.URLCache, &user.AvatarURL); url != nil {
		user.AvatarURL = *url
	} else {
		user.AvatarURL = ""
	}
	return user
}
