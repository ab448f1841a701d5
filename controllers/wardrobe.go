package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"stylemateapi/apperr"
	"stylemateapi/config"
	"stylemateapi/models"
	"stylemateapi/services"
	"stylemateapi/tasks"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type WardrobeController struct {
	Config   *config.Config
	Storage  services.AWSServiceProvider
	URLCache services.URLCacheServiceProvider
	Tasks    tasks.Enqueuer
}

func (controller *WardrobeController) WardrobeRoutes(g *echo.Group) {
	g.GET("", controller.ListItems)
	g.GET("/stats", controller.Stats)
	g.POST("", controller.CreateItem)
	g.PUT("/:id", controller.UpdateItem)
	g.DELETE("/:id", controller.DeleteItem)
}

func (controller *WardrobeController) ListItems(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	var items []models.WardrobeItem
	if err := dbFrom(c).Preload("Category").
		Where("user_account_id = ?", user.ID).
		Order("created_at DESC").Order("id DESC").
		Find(&items).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, controller.populatePresignedItemImages(c.Request().Context(), loggerFrom(c), items))
}

func (controller *WardrobeController) Stats(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	var items []models.WardrobeItem
	if err := dbFrom(c).Preload("Category").Where("user_account_id = ?", user.ID).Find(&items).Error; err != nil {
		return respondError(c, err)
	}
	categories, colors, seasons := services.NewTally(), services.NewTally(), services.NewTally()
	for _, item := range items {
		categories.Add(item.Category.Name, "uncategorized")
		color := ""
		if item.Color != nil {
			color = *item.Color
		}
		colors.Add(color, "other")
		for _, season := range item.Seasons {
			seasons.Add(season, "other")
		}
	}
	return c.JSON(http.StatusOK, models.WardrobeStatsOut{
		Categories: categories.Entries(),
		Colors:     colors.Entries(),
		Seasons:    seasons.Entries(),
		TotalItems: len(items),
	})
}

func (controller *WardrobeController) CreateItem(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	var req models.CreateWardrobeItemIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := c.Validate(req); err != nil {
		return err
	}

	db := dbFrom(c)
	category, err := findCategory(db, req.Category)
	if err != nil {
		return respondError(c, err)
	}
	key, err := services.ObjectKey("wardrobe", user.ID, *req.FileName)
	if err != nil {
		return respondError(c, err)
	}
	uploadUrl, err := controller.Storage.PresignLink(c.Request().Context(), controller.Config.Storage.Bucket, key)
	if err != nil {
		return respondError(c, apperr.Dependency("Error while creating item with attachment", err))
	}

	item := models.WardrobeItem{
		UserAccountID: user.ID,
		CategoryID:    category.ID,
		Category:      *category,
		Name:          req.Name,
		Description:   req.Description,
		Color:         req.Color,
		Brand:         req.Brand,
		Seasons:       req.Seasons,
		ImageURL:      &key,
	}
	if err := db.Omit("Category").Create(&item).Error; err != nil {
		return respondError(c, err)
	}
	loggerFrom(c).Info("wardrobe item created", zap.Uint("user_id", user.ID), zap.Uint("item_id", item.ID))
	return c.JSON(http.StatusCreated, models.WardrobeItemCreatedOut{
		Item:          toItemOut(item, nil),
		FileUploadUrl: uploadUrl,
	})
}

func (controller *WardrobeController) UpdateItem(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	var req models.UpdateWardrobeItemIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	db := dbFrom(c)
	item, err := ownedItem(db, c.Param("id"), user.ID)
	if err != nil {
		return respondError(c, err)
	}

	if req.Category != nil {
		category, err := findCategory(db, *req.Category)
		if err != nil {
			return respondError(c, err)
		}
		item.CategoryID = category.ID
		item.Category = *category
	}
	if req.Name != nil {
		item.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		item.Description = req.Description
	}
	if req.Color != nil {
		item.Color = req.Color
	}
	if req.Brand != nil {
		item.Brand = req.Brand
	}
	if req.Seasons != nil {
		item.Seasons = req.Seasons
	}

	ctx := c.Request().Context()
	var uploadUrl string
	var replaced *string
	if req.FileName != nil {
		key, err := services.ObjectKey("wardrobe", user.ID, *req.FileName)
		if err != nil {
			return respondError(c, err)
		}
		uploadUrl, err = controller.Storage.PresignLink(ctx, controller.Config.Storage.Bucket, key)
		if err != nil {
			return respondError(c, apperr.Dependency("Error while updating item attachment", err))
		}
		replaced = item.ImageURL
		item.ImageURL = &key
	}

	if err := db.Omit("Category", "UserAccount").Save(item).Error; err != nil {
		return respondError(c, err)
	}
	if replaced != nil {
		controller.forgetImage(ctx, loggerFrom(c), replaced)
	}

	var imageUrl *string
	if uploadUrl == "" {
		imageUrl = readURL(ctx, loggerFrom(c), controller.URLCache, item.ImageURL)
	}
	return c.JSON(http.StatusOK, models.WardrobeItemCreatedOut{
		Item:          toItemOut(*item, imageUrl),
		FileUploadUrl: uploadUrl,
	})
}

// DeleteItem removes the item and every outfit link to it in one
// transaction, then schedules the image for deletion.
func (controller *WardrobeController) DeleteItem(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	db := dbFrom(c)
	item, err := ownedItem(db, c.Param("id"), user.ID)
	if err != nil {
		return respondError(c, err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("wardrobe_item_id = ?", item.ID).Delete(&models.OutfitItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.WardrobeItem{}, item.ID).Error
	})
	if err != nil {
		return respondError(c, err)
	}
	controller.forgetImage(c.Request().Context(), loggerFrom(c), item.ImageURL)
	return c.JSON(http.StatusOK, echo.Map{"message": "Item deleted successfully"})
}

func (controller *WardrobeController) forgetImage(ctx context.Context, logger *zap.Logger, key *string) {
	if key == nil || *key == "" {
		return
	}
	if err := controller.URLCache.Invalidate(ctx, *key); err != nil {
		logger.Warn("failed to invalidate read url", zap.String("key", *key), zap.Error(err))
	}
	enqueueObjectDelete(logger, controller.Tasks, controller.Config.Storage.Bucket, key)
}

// populatePresignedItemImages maps items to responses with read URLs
// resolved concurrently through the URL cache.
func (controller *WardrobeController) populatePresignedItemImages(ctx context.Context, logger *zap.Logger, items []models.WardrobeItem) []models.WardrobeItemOut {
	keys := make([]*string, len(items))
	for i := range items {
		keys[i] = items[i].ImageURL
	}
	urls := readURLs(ctx, logger, controller.URLCache, keys)
	out := make([]models.WardrobeItemOut, len(items))
	for i, item := range items {
		out[i] = toItemOut(item, urls[i])
	}
	return out
}

func toItemOut(item models.WardrobeItem, imageUrl *string) models.WardrobeItemOut {
	seasons := item.Seasons
	if seasons == nil {
		seasons = []string{}
	}
	return models.WardrobeItemOut{
		ID:           item.ID,
		Name:         item.Name,
		CategoryName: item.Category.Name,
		Description:  item.Description,
		Color:        item.Color,
		Brand:        item.Brand,
		Seasons:      seasons,
		ImageURL:     imageUrl,
		CreatedAt:    formatTime(item.CreatedAt),
		UpdatedAt:    formatTime(item.UpdatedAt),
	}
}

func findCategory(db *gorm.DB, name string) (*models.Category, error) {
	var category models.Category
	err := db.Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).Take(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.UserInput("Invalid category %q", name)
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// ownedItem loads an item for editing: unknown ids are NotFound, items of
// another user are Forbidden.
func ownedItem(db *gorm.DB, rawID string, userID uint) (*models.WardrobeItem, error) {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return nil, apperr.UserInput("Invalid item id")
	}
	var item models.WardrobeItem
	err = db.Preload("Category").Where("id = ?", id).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Item not found")
	}
	if err != nil {
		return nil, err
	}
	if item.UserAccountID != userID {
		return nil, apperr.New(apperr.KindForbidden, "Not authorized to modify this item")
	}
	return &item, nil
}
