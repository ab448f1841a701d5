package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"stylemateapi/apperr"
	"stylemateapi/config"
	"stylemateapi/metrics"
	"stylemateapi/models"
	"stylemateapi/recommend"
	"stylemateapi/services"
	"stylemateapi/tasks"
	"stylemateapi/weather"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OutfitController struct {
	Config   *config.Config
	Storage  services.AWSServiceProvider
	URLCache services.URLCacheServiceProvider
	Tasks    tasks.Enqueuer
	Engine   *recommend.Engine
	Store    *services.OutfitStore
	// Weather is the live provider used when a city is requested; nil
	// means only DefaultWeather is available.
	Weather        weather.Provider
	DefaultWeather weather.Fixed
}

func (controller *OutfitController) OutfitRoutes(g *echo.Group) {
	g.GET("", controller.ListOutfits)
	g.POST("", controller.CreateOutfit)
	g.GET("/stats", controller.Stats)
	g.GET("/recommendations", controller.Recommendations)
	g.GET("/saved", controller.ListSaved)
	g.POST("/saved", controller.SaveOutfit)
	g.DELETE("/saved", controller.RemoveSaved)
	g.PUT("/:id", controller.UpdateOutfit)
	g.DELETE("/:id", controller.DeleteOutfit)
	g.PUT("/:id/favorite", controller.ToggleFavorite)
	g.PUT("/:id/save", controller.SaveForLater)
}

// Recommendations builds up to four weather-appropriate combinations from
// the user's wardrobe. With ?city= the live weather provider is asked,
// otherwise the configured default weather is used.
func (controller *OutfitController) Recommendations(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	ctx := c.Request().Context()
	logger := loggerFrom(c)
	db := dbFrom(c)

	var wardrobe []models.WardrobeItem
	if err := db.Preload("Category").Where("user_account_id = ?", user.ID).Find(&wardrobe).Error; err != nil {
		metrics.Recommendations.WithLabelValues("error").Inc()
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Error generating recommendations", "error": err.Error()})
	}

	if len(wardrobe) == 0 {
		metrics.Recommendations.WithLabelValues("empty_wardrobe").Inc()
		return c.JSON(http.StatusNotFound, echo.Map{"message": apperr.MessageOf(recommend.ErrEmptyWardrobe, "")})
	}

	snapshot, err := controller.currentWeather(ctx, c.QueryParam("city"))
	if err != nil {
		metrics.Recommendations.WithLabelValues("weather_error").Inc()
		return respondError(c, err)
	}

	prefs, err := loadPreferences(db, user.ID)
	if err != nil {
		metrics.Recommendations.WithLabelValues("error").Inc()
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Error generating recommendations", "error": err.Error()})
	}

	items := make([]recommend.Item, 0, len(wardrobe))
	for _, it := range wardrobe {
		items = append(items, recommend.Item{
			ID:       it.ID,
			Name:     it.Name,
			Category: it.Category.Name,
			ImageURL: it.ImageURL,
		})
	}

	candidates, err := controller.Engine.Recommend(items, snapshot, &prefs)
	switch {
	case errors.Is(err, recommend.ErrEmptyWardrobe):
		metrics.Recommendations.WithLabelValues("empty_wardrobe").Inc()
		return c.JSON(http.StatusNotFound, echo.Map{"message": apperr.MessageOf(err, "")})
	case errors.Is(err, recommend.ErrNoViableOutfits):
		metrics.Recommendations.WithLabelValues("no_viable").Inc()
		return c.JSON(http.StatusNotFound, echo.Map{"message": apperr.MessageOf(err, "")})
	case err != nil:
		metrics.Recommendations.WithLabelValues("error").Inc()
		logger.Error("recommendation failed", zap.Uint("user_id", user.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Error generating recommendations", "error": err.Error()})
	}

	metrics.Recommendations.WithLabelValues("ok").Inc()
	metrics.RecommendationCandidates.Observe(float64(len(candidates)))
	controller.presignCandidates(ctx, logger, candidates)
	return c.JSON(http.StatusOK, candidates)
}

func (controller *OutfitController) currentWeather(ctx context.Context, city string) (recommend.Weather, error) {
	city = strings.TrimSpace(city)
	var provider weather.Provider = controller.DefaultWeather
	if city != "" && controller.Weather != nil {
		provider = controller.Weather
	}
	report, err := provider.Current(ctx, city)
	if err != nil {
		return recommend.Weather{}, err
	}
	return report.Snapshot(), nil
}

// presignCandidates swaps the object keys on candidate items for read URLs.
func (controller *OutfitController) presignCandidates(ctx context.Context, logger *zap.Logger, candidates []recommend.CandidateOutfit) {
	var keys []*string
	for _, candidate := range candidates {
		for _, item := range candidate.Items {
			keys = append(keys, item.ImageURL)
		}
	}
	urls := readURLs(ctx, logger, controller.URLCache, keys)
	n := 0
	for i := range candidates {
		for j := range candidates[i].Items {
			candidates[i].Items[j].ImageURL = urls[n]
			n++
		}
	}
}

func (controller *OutfitController) SaveOutfit(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	var req models.SaveOutfitIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.ID == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Outfit id and name are required"})
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ref, err := saveRef(req)
	if err != nil {
		metrics.SavedOutfits.WithLabelValues("save", "invalid").Inc()
		return respondError(c, err)
	}
	saved, err := controller.Store.SaveOutfit(c.Request().Context(), user.ID, ref, services.SaveMeta{
		Name:        req.Name,
		Description: req.Description,
		Occasion:    req.Occasion,
		Season:      req.Season,
		Weather:     req.Weather,
		Rating:      req.Rating,
	})
	if errors.Is(err, services.ErrAlreadySaved) {
		metrics.SavedOutfits.WithLabelValues("save", "duplicate").Inc()
		return respondError(c, err)
	}
	if err != nil {
		metrics.SavedOutfits.WithLabelValues("save", "error").Inc()
		return respondError(c, err)
	}
	metrics.SavedOutfits.WithLabelValues("save", "ok").Inc()
	loggerFrom(c).Info("outfit saved", zap.Uint("user_id", user.ID), zap.String("ref", ref.String()))
	return c.JSON(http.StatusCreated, echo.Map{
		"message":     "Outfit saved successfully",
		"savedOutfit": controller.toSavedOut(c, *saved),
	})
}

// saveRef resolves what the client is saving. An explicit kind wins;
// otherwise numeric ids are stored outfits and anything else is a
// recommendation candidate.
func saveRef(req models.SaveOutfitIn) (services.OutfitRef, error) {
	numericID, numeric := req.ID.Uint()
	kind := req.Kind
	if kind == "" {
		kind = models.RefKindCandidate
		if numeric {
			kind = models.RefKindPersisted
		}
	}
	if kind == models.RefKindPersisted {
		if !numeric {
			return services.OutfitRef{}, apperr.UserInput("Invalid outfit id")
		}
		return services.PersistedRef(numericID), nil
	}

	candidate := recommend.CandidateOutfit{
		ID:    req.ID.String(),
		Name:  req.Name,
		Items: make([]recommend.ItemSummary, 0, len(req.Items)),
	}
	if req.Description != nil {
		candidate.Description = *req.Description
	}
	if req.Weather != nil {
		candidate.Weather = *req.Weather
	}
	for _, item := range req.Items {
		candidate.Items = append(candidate.Items, recommend.ItemSummary{ID: item.ID, Name: item.Name})
	}
	return services.CandidateRef(candidate), nil
}

func (controller *OutfitController) RemoveSaved(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	var req models.RemoveSavedOutfitIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	if req.ID == "" {
		req.ID = models.FlexibleID(strings.TrimSpace(c.QueryParam("id")))
	}
	if req.ID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Outfit id is required"})
	}

	ref := services.CandidateIDRef(req.ID.String())
	if id, ok := req.ID.Uint(); ok {
		ref = services.PersistedRef(id)
	}
	if err := controller.Store.RemoveSavedOutfit(c.Request().Context(), user.ID, ref); err != nil {
		metrics.SavedOutfits.WithLabelValues("remove", "error").Inc()
		return respondError(c, err)
	}
	metrics.SavedOutfits.WithLabelValues("remove", "ok").Inc()
	return c.JSON(http.StatusOK, echo.Map{"message": "Outfit removed from saved"})
}

func (controller *OutfitController) ListSaved(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	saved, err := controller.Store.ListSavedOutfits(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]models.SavedOutfitOut, 0, len(saved))
	for _, s := range saved {
		out = append(out, controller.toSavedOut(c, s))
	}
	return c.JSON(http.StatusOK, out)
}

func (controller *OutfitController) ListOutfits(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	outfits, err := controller.Store.ListOutfits(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]models.OutfitOut, 0, len(outfits))
	for _, o := range outfits {
		out = append(out, controller.toOutfitOut(c, o))
	}
	return c.JSON(http.StatusOK, out)
}

func (controller *OutfitController) CreateOutfit(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	req, err := bindOutfitIn(c)
	if err != nil {
		return err
	}
	data, uploadUrl, err := controller.outfitData(c, user.ID, req)
	if err != nil {
		return respondError(c, err)
	}
	outfit, err := controller.Store.CreateOutfit(c.Request().Context(), user.ID, data)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, models.OutfitCreatedOut{
		Outfit:        controller.toOutfitOut(c, *outfit),
		FileUploadUrl: uploadUrl,
	})
}

func (controller *OutfitController) UpdateOutfit(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	id, err := outfitID(c)
	if err != nil {
		return respondError(c, err)
	}
	req, err := bindOutfitIn(c)
	if err != nil {
		return err
	}
	data, uploadUrl, err := controller.outfitData(c, user.ID, req)
	if err != nil {
		return respondError(c, err)
	}
	outfit, replaced, err := controller.Store.UpdateOutfit(c.Request().Context(), user.ID, id, data)
	if err != nil {
		return respondError(c, err)
	}
	controller.forgetImage(c, replaced)
	return c.JSON(http.StatusOK, models.OutfitCreatedOut{
		Outfit:        controller.toOutfitOut(c, *outfit),
		FileUploadUrl: uploadUrl,
	})
}

func (controller *OutfitController) DeleteOutfit(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	id, err := outfitID(c)
	if err != nil {
		return respondError(c, err)
	}
	image, err := controller.Store.DeleteOutfit(c.Request().Context(), user.ID, id)
	if err != nil {
		return respondError(c, err)
	}
	controller.forgetImage(c, image)
	return c.JSON(http.StatusOK, echo.Map{"message": "Outfit deleted successfully"})
}

func (controller *OutfitController) ToggleFavorite(c echo.Context) error {
	return controller.toggle(c, controller.Store.ToggleFavorite)
}

func (controller *OutfitController) SaveForLater(c echo.Context) error {
	return controller.toggle(c, controller.Store.SaveForLater)
}

func (controller *OutfitController) toggle(c echo.Context, flip func(ctx context.Context, userID, outfitID uint) (*models.Outfit, error)) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	id, err := outfitID(c)
	if err != nil {
		return respondError(c, err)
	}
	outfit, err := flip(c.Request().Context(), user.ID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, controller.toOutfitOut(c, *outfit))
}

func (controller *OutfitController) Stats(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	stats, err := controller.Store.OutfitStats(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func bindOutfitIn(c echo.Context) (models.OutfitIn, error) {
	var req models.OutfitIn
	if err := c.Bind(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := c.Validate(req); err != nil {
		return req, err
	}
	return req, nil
}

// outfitData converts the request and, when a file name is given, reserves
// an object key and a presigned upload URL for the outfit image.
func (controller *OutfitController) outfitData(c echo.Context, userID uint, req models.OutfitIn) (services.OutfitData, string, error) {
	data := services.OutfitData{
		Name:        req.Name,
		Description: req.Description,
		Occasion:    req.Occasion,
		Weather:     req.Weather,
		ItemIDs:     req.ItemIDs,
	}
	if req.FileName == nil || *req.FileName == "" {
		return data, "", nil
	}
	key, err := services.ObjectKey("outfits", userID, *req.FileName)
	if err != nil {
		return data, "", err
	}
	uploadUrl, err := controller.Storage.PresignLink(c.Request().Context(), controller.Config.Storage.Bucket, key)
	if err != nil {
		return data, "", apperr.Dependency("Error while creating outfit with attachment", err)
	}
	data.ImageKey = &key
	return data, uploadUrl, nil
}

func (controller *OutfitController) forgetImage(c echo.Context, key *string) {
	if key == nil || *key == "" {
		return
	}
	logger := loggerFrom(c)
	if err := controller.URLCache.Invalidate(c.Request().Context(), *key); err != nil {
		logger.Warn("failed to invalidate read url", zap.String("key", *key), zap.Error(err))
	}
	enqueueObjectDelete(logger, controller.Tasks, controller.Config.Storage.Bucket, key)
}

func (controller *OutfitController) toOutfitOut(c echo.Context, o models.Outfit) models.OutfitOut {
	ctx := c.Request().Context()
	logger := loggerFrom(c)
	keys := make([]*string, 0, len(o.Items)+1)
	keys = append(keys, o.ImageURL)
	for _, it := range o.Items {
		keys = append(keys, it.WardrobeItem.ImageURL)
	}
	urls := readURLs(ctx, logger, controller.URLCache, keys)

	items := make([]models.ItemSnapshot, 0, len(o.Items))
	for i, it := range o.Items {
		items = append(items, models.ItemSnapshot{
			ID:           it.WardrobeItem.ID,
			Name:         it.WardrobeItem.Name,
			ImageURL:     urls[i+1],
			CategoryName: it.WardrobeItem.Category.Name,
		})
	}
	return models.OutfitOut{
		ID:            o.ID,
		Name:          o.Name,
		Description:   o.Description,
		ImageURL:      urls[0],
		Occasion:      o.Occasion,
		Weather:       o.Weather,
		IsFavorite:    o.IsFavorite,
		SavedForLater: o.SavedForLater,
		Items:         items,
		CreatedAt:     formatTime(o.CreatedAt),
	}
}

func (controller *OutfitController) toSavedOut(c echo.Context, s models.SavedOutfit) models.SavedOutfitOut {
	ctx := c.Request().Context()
	logger := loggerFrom(c)
	keys := make([]*string, 0, len(s.Items)+1)
	keys = append(keys, s.Outfit.ImageURL)
	for _, it := range s.Items {
		keys = append(keys, it.ImageURL)
	}
	urls := readURLs(ctx, logger, controller.URLCache, keys)

	items := make([]models.ItemSnapshot, len(s.Items))
	for i, it := range s.Items {
		it.ImageURL = urls[i+1]
		items[i] = it
	}
	return models.SavedOutfitOut{
		ID:          s.ID,
		OutfitID:    s.OutfitID,
		Name:        s.Name,
		Description: s.Description,
		Occasion:    s.Occasion,
		Season:      s.Season,
		Weather:     s.Weather,
		Rating:      s.Rating,
		Items:       items,
		ImageURL:    urls[0],
		SavedAt:     s.SavedAt,
	}
}

func outfitID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.UserInput("Invalid outfit id")
	}
	return uint(id), nil
}

// loadPreferences returns the user's weather preferences or the defaults.
func loadPreferences(db *gorm.DB, userID uint) (recommend.Preferences, error) {
	var pref models.WeatherPreference
	err := db.Where("user_account_id = ?", userID).Take(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return recommend.DefaultPreferences(), nil
	}
	if err != nil {
		return recommend.Preferences{}, err
	}
	return recommend.Preferences{
		MinTemperature:      pref.MinTemperature,
		MaxTemperature:      pref.MaxTemperature,
		PreferredConditions: pref.PreferredConditions,
	}, nil
}
