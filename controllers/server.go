package controllers

import (
	"context"
	"net/http"
	"time"

	"stylemateapi/config"
	"stylemateapi/logging"
	"stylemateapi/metrics"
	"stylemateapi/models"
	"stylemateapi/recommend"
	"stylemateapi/services"
	"stylemateapi/tasks"
	"stylemateapi/weather"

	"github.com/go-playground/validator"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterValidation("condition", models.ValidateCondition)
	v.RegisterValidation("username", models.ValidateUsername)
	return &CustomValidator{validator: v}
}

// Dependencies are built once in main and shared by every request.
type Dependencies struct {
	DB       *gorm.DB
	Config   *config.Config
	Logger   *zap.Logger
	Storage  services.AWSServiceProvider
	URLCache services.URLCacheServiceProvider
	// nil when no upstream weather API is configured
	Weather weather.Provider
	Tasks   tasks.Enqueuer
	Engine  *recommend.Engine
}

func SetupServer(deps Dependencies) *echo.Echo {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Engine == nil {
		deps.Engine = recommend.New()
	}
	cfg := deps.Config

	if err := deps.Storage.InitPresignClient(context.Background()); err != nil {
		deps.Logger.Fatal("failed to initialize object storage", zap.Error(err))
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = httpErrorHandler(deps.Logger)

	e.Use(middleware.RequestID())
	e.Use(logging.Middleware(deps.Logger))
	e.Use(metrics.Middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__db", deps.DB)
			c.Set("__logger", deps.Logger)
			return next(c)
		}
	})
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "time": time.Now().UTC()})
	})
	e.GET("/metrics", metrics.Handler())

	api := e.Group("/api", rateLimiter(cfg.RateLimit.APIRequests, cfg.RateLimit.APIWindow))
	authRequired := []echo.MiddlewareFunc{echojwt.JWT([]byte(cfg.JWT.Secret)), UserMiddleware}

	authController := AuthController{Config: cfg, Tasks: deps.Tasks}
	profileController := ProfileController{Config: cfg, Storage: deps.Storage, URLCache: deps.URLCache, Tasks: deps.Tasks}
	authGroup := api.Group("/auth")
	authController.AuthRoutes(authGroup, rateLimiter(cfg.RateLimit.AuthRequests, cfg.RateLimit.AuthWindow))
	profileController.ProfileRoutes(authGroup, authRequired...)

	wardrobeController := WardrobeController{Config: cfg, Storage: deps.Storage, URLCache: deps.URLCache, Tasks: deps.Tasks}
	wardrobeController.WardrobeRoutes(api.Group("/wardrobe", authRequired...))

	outfitController := OutfitController{
		Config:         cfg,
		Storage:        deps.Storage,
		URLCache:       deps.URLCache,
		Tasks:          deps.Tasks,
		Engine:         deps.Engine,
		Weather:        deps.Weather,
		DefaultWeather: weather.Fixed{Temperature: cfg.Weather.DefaultTemp, Condition: cfg.Weather.DefaultState},
		Store:          services.NewOutfitStore(deps.DB),
	}
	outfitController.OutfitRoutes(api.Group("/outfits", authRequired...))

	weatherController := WeatherController{Weather: deps.Weather}
	weatherController.WeatherRoutes(api.Group("/weather", authRequired...))

	chatbotController := ChatbotController{}
	chatbotController.ChatbotRoutes(api.Group("/chatbot", authRequired...))

	return e
}

// rateLimiter allows requests per window per client IP and answers 429
// with the number of seconds to wait.
func rateLimiter(requests int, window time.Duration) echo.MiddlewareFunc {
	if requests <= 0 || window <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(requests) / window.Seconds()),
		Burst:     requests,
		ExpiresIn: window,
	})
	retryAfter := int(window.Seconds())
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, echo.Map{"message": "Unable to identify client"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"message":    "Too many requests, please try again later",
				"retryAfter": retryAfter,
			})
		},
	})
}
