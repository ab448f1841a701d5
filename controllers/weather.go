package controllers

import (
	"net/http"
	"strings"

	"stylemateapi/apperr"
	"stylemateapi/models"
	"stylemateapi/weather"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

var errWeatherNotConfigured = apperr.New(apperr.KindDependency, "Weather service is not configured")

type WeatherController struct {
	Weather weather.Provider
}

func (controller *WeatherController) WeatherRoutes(g *echo.Group) {
	g.GET("/current", controller.Current)
	g.GET("/forecast", controller.Forecast)
	g.GET("/preferences", controller.GetPreferences)
	g.PUT("/preferences", controller.UpdatePreferences)
}

func (controller *WeatherController) Current(c echo.Context) error {
	city := strings.TrimSpace(c.QueryParam("city"))
	if city == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "City parameter is required", "example": "?city=London"})
	}
	if controller.Weather == nil {
		return respondError(c, errWeatherNotConfigured)
	}
	report, err := controller.Weather.Current(c.Request().Context(), city)
	if err != nil {
		return controller.weatherError(c, city, err)
	}
	return c.JSON(http.StatusOK, report)
}

func (controller *WeatherController) Forecast(c echo.Context) error {
	city := strings.TrimSpace(c.QueryParam("city"))
	if city == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "City parameter is required", "example": "?city=London"})
	}
	if controller.Weather == nil {
		return respondError(c, errWeatherNotConfigured)
	}
	forecast, err := controller.Weather.Forecast(c.Request().Context(), city)
	if err != nil {
		return controller.weatherError(c, city, err)
	}
	return c.JSON(http.StatusOK, forecast)
}

func (controller *WeatherController) weatherError(c echo.Context, city string, err error) error {
	loggerFrom(c).Warn("weather lookup failed", zap.String("city", city), zap.Error(err))
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{
			"message":    apperr.MessageOf(err, "City not found"),
			"suggestion": "Try using a valid city name without special characters or extra spaces",
		})
	case apperr.KindRateLimited:
		return c.JSON(http.StatusTooManyRequests, echo.Map{
			"message":    apperr.MessageOf(err, "Too many requests"),
			"suggestion": "Please wait a few minutes before trying again",
		})
	}
	return respondError(c, err)
}

func (controller *WeatherController) GetPreferences(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	prefs, err := loadPreferences(dbFrom(c), user.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences upserts the single preference row of the user.
func (controller *WeatherController) UpdatePreferences(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	var req models.WeatherPreferenceIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	if *req.MinTemperature > *req.MaxTemperature {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Minimum temperature must not exceed maximum temperature"})
	}
	conditions := req.PreferredConditions
	if conditions == nil {
		conditions = []string{}
	}
	pref := models.WeatherPreference{
		UserAccountID:       user.ID,
		MinTemperature:      *req.MinTemperature,
		MaxTemperature:      *req.MaxTemperature,
		PreferredConditions: conditions,
	}
	err := dbFrom(c).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"min_temperature", "max_temperature", "preferred_conditions", "updated_at"}),
	}).Create(&pref).Error
	if err != nil {
		return respondError(c, err)
	}
	prefs, err := loadPreferences(dbFrom(c), user.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, prefs)
}
