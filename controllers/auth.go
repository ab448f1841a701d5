package controllers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"stylemateapi/config"
	"stylemateapi/models"
	"stylemateapi/services"
	"stylemateapi/tasks"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const resetTokenTTL = time.Hour

var (
	hasLetter = regexp.MustCompile(`[a-zA-Z]`)
	hasDigit  = regexp.MustCompile(`\d`)
)

type AuthController struct {
	Config *config.Config
	Tasks  tasks.Enqueuer
}

// AuthRoutes registers the public account routes. limiter guards the
// credential endpoints.
func (controller *AuthController) AuthRoutes(g *echo.Group, limiter echo.MiddlewareFunc) {
	g.POST("/signup", controller.Signup, limiter)
	g.POST("/login", controller.Login, limiter)
	g.POST("/refresh-token", controller.RefreshToken)
	g.GET("/verify-email/:token", controller.VerifyEmail)
	g.POST("/forgot-password", controller.ForgotPassword, limiter)
	g.POST("/reset-password/:token", controller.ResetPassword)
}

func (controller *AuthController) Signup(c echo.Context) error {
	var req models.SignupIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if err := c.Validate(req); err != nil {
		return err
	}
	if !hasLetter.MatchString(req.Password) || !hasDigit.MatchString(req.Password) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Password must contain at least one letter and one number"})
	}

	db := dbFrom(c)
	var existing []models.UserAccount
	if err := db.Where("email = ? OR username = ?", req.Email, req.Username).Find(&existing).Error; err != nil {
		return respondError(c, err)
	}
	if len(existing) > 0 {
		details := echo.Map{"email": nil, "username": nil}
		for _, u := range existing {
			if u.Email == req.Email {
				details["email"] = "Email is already registered"
			}
			if u.Username == req.Username {
				details["username"] = "Username is already taken"
			}
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Account already exists", "details": details})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return respondError(c, err)
	}
	verificationToken, err := RandomToken(32)
	if err != nil {
		return respondError(c, err)
	}
	user := models.UserAccount{
		Email:             req.Email,
		Username:          req.Username,
		Password:          string(hash),
		LastIp:            c.RealIP(),
		VerificationToken: &verificationToken,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Account already exists"})
		}
		return respondError(c, err)
	}

	controller.sendEmail(c, services.Email{
		To:       user.Email,
		Subject:  "Verify your email",
		Template: services.TemplateVerifyEmail,
		Data: map[string]any{
			"Username": user.Username,
			"Link":     controller.Config.Server.FrontendURL + "/verify-email/" + verificationToken,
		},
	})

	pair, err := GenerateTokenPair(UIntToStr(user.ID), controller.Config.JWT)
	if err != nil {
		return respondError(c, err)
	}
	loggerFrom(c).Info("user signed up", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusCreated, models.AuthOut{TokenPair: pair, User: user})
}

func (controller *AuthController) Login(c echo.Context) error {
	var req models.LoginIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Email and password are required"})
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	db := dbFrom(c)
	var user models.UserAccount
	result := db.Where("email = ?", req.Email).Take(&user)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid credentials"})
	}
	if result.Error != nil {
		return respondError(c, result.Error)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid credentials"})
	}

	if err := db.Model(&user).Update("last_ip", c.RealIP()).Error; err != nil {
		loggerFrom(c).Warn("failed to record login ip", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	pair, err := GenerateTokenPair(UIntToStr(user.ID), controller.Config.JWT)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.AuthOut{TokenPair: pair, User: user})
}

func (controller *AuthController) RefreshToken(c echo.Context) error {
	var req models.RefreshTokenIn
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Refresh token is required"})
	}
	userId, err := ParseRefreshToken(req.RefreshToken, controller.Config.JWT.Secret)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid refresh token"})
	}

	var user models.UserAccount
	result := dbFrom(c).Where("id = ?", userId).Take(&user)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid refresh token"})
	}
	if result.Error != nil {
		return respondError(c, result.Error)
	}
	pair, err := GenerateTokenPair(UIntToStr(user.ID), controller.Config.JWT)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.AuthOut{TokenPair: pair, User: user})
}

func (controller *AuthController) VerifyEmail(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid or expired verification token"})
	}
	result := dbFrom(c).Model(&models.UserAccount{}).
		Where("verification_token = ?", token).
		Updates(map[string]interface{}{"is_verified": true, "verification_token": nil})
	if result.Error != nil {
		return respondError(c, result.Error)
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid or expired verification token"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Email verified successfully"})
}

func (controller *AuthController) ForgotPassword(c echo.Context) error {
	var req models.ForgotPasswordIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := c.Validate(req); err != nil {
		return err
	}

	db := dbFrom(c)
	var user models.UserAccount
	result := db.Where("email = ?", req.Email).Take(&user)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "User not found"})
	}
	if result.Error != nil {
		return respondError(c, result.Error)
	}

	token, err := RandomToken(32)
	if err != nil {
		return respondError(c, err)
	}
	expiresAt := time.Now().Add(resetTokenTTL)
	if err := db.Model(&user).Updates(map[string]interface{}{
		"reset_token":            token,
		"reset_token_expires_at": expiresAt,
	}).Error; err != nil {
		return respondError(c, err)
	}

	controller.sendEmail(c, services.Email{
		To:       user.Email,
		Subject:  "Reset your password",
		Template: services.TemplateResetPassword,
		Data: map[string]any{
			"Username": user.Username,
			"Link":     controller.Config.Server.FrontendURL + "/reset-password/" + token,
		},
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "Password reset email sent"})
}

func (controller *AuthController) ResetPassword(c echo.Context) error {
	var req models.ResetPasswordIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	if !hasLetter.MatchString(req.Password) || !hasDigit.MatchString(req.Password) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Password must contain at least one letter and one number"})
	}

	db := dbFrom(c)
	var user models.UserAccount
	result := db.Where("reset_token = ? AND reset_token_expires_at > ?", c.Param("token"), time.Now()).Take(&user)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid or expired reset token"})
	}
	if result.Error != nil {
		return respondError(c, result.Error)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return respondError(c, err)
	}
	if err := db.Model(&user).Updates(map[string]interface{}{
		"password":               string(hash),
		"reset_token":            nil,
		"reset_token_expires_at": nil,
	}).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password reset successfully"})
}

// sendEmail enqueues delivery. A broken queue must not fail the account
// operation that triggered the email, so errors are only reported.
func (controller *AuthController) sendEmail(c echo.Context, email services.Email) {
	task, err := tasks.NewSendEmailTask(email)
	if err := enqueue(loggerFrom(c), controller.Tasks, task, err); err != nil {
		loggerFrom(c).Error("failed to enqueue email", zap.String("template", email.Template), zap.Error(err))
		sentry.CaptureException(err)
	}
}
