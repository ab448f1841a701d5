package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stylemateapi/apperr"
	"stylemateapi/models"
	"stylemateapi/recommend"

	"gorm.io/gorm"
)

var (
	ErrAlreadySaved        = apperr.New(apperr.KindConflict, "Outfit is already saved")
	ErrSavedOutfitNotFound = apperr.New(apperr.KindNotFound, "Saved outfit not found")
	ErrOutfitNotFound      = apperr.New(apperr.KindNotFound, "Outfit not found")
	ErrForeignItems        = apperr.New(apperr.KindUserInput, "Outfit items must belong to your wardrobe")
	ErrNoItems             = apperr.New(apperr.KindUserInput, "Outfit must contain at least one item")
)

type refKind int

const (
	refCandidate refKind = iota + 1
	refPersisted
)

// OutfitRef points at either a recommendation candidate or a stored outfit.
// Build one with CandidateRef, CandidateIDRef or PersistedRef.
type OutfitRef struct {
	kind        refKind
	candidateID string
	candidate   *recommend.CandidateOutfit
	outfitID    uint
}

func CandidateRef(c recommend.CandidateOutfit) OutfitRef {
	return OutfitRef{kind: refCandidate, candidateID: c.ID, candidate: &c}
}

// CandidateIDRef refers to an already materialized candidate by its id.
func CandidateIDRef(id string) OutfitRef {
	return OutfitRef{kind: refCandidate, candidateID: id}
}

func PersistedRef(id uint) OutfitRef {
	return OutfitRef{kind: refPersisted, outfitID: id}
}

func (r OutfitRef) IsCandidate() bool {
	return r.kind == refCandidate
}

func (r OutfitRef) String() string {
	if r.IsCandidate() {
		return r.candidateID
	}
	return fmt.Sprintf("%d", r.outfitID)
}

type SaveMeta struct {
	Name        string
	Description *string
	Occasion    *string
	Season      *string
	Weather     *string
	Rating      *int
}

type OutfitData struct {
	Name        string
	Description *string
	Occasion    *string
	Weather     *string
	ImageKey    *string
	ItemIDs     []uint
}

// OutfitStore persists outfits and saved outfits. Every mutating call runs
// in a single transaction.
type OutfitStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewOutfitStore(db *gorm.DB) *OutfitStore {
	return &OutfitStore{db: db, now: time.Now}
}

// SaveOutfit records ref as saved by userID. Candidates are materialized
// into an outfit first; saving the same candidate twice hits the existing
// outfit and fails with ErrAlreadySaved.
func (s *OutfitStore) SaveOutfit(ctx context.Context, userID uint, ref OutfitRef, meta SaveMeta) (*models.SavedOutfit, error) {
	var saved models.SavedOutfit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		outfit, err := s.resolve(tx, userID, ref, true)
		if err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.SavedOutfit{}).
			Where("outfit_id = ? AND user_account_id = ?", outfit.ID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadySaved
		}

		name := meta.Name
		if name == "" {
			name = outfit.Name
		}
		weather := meta.Weather
		if weather == nil {
			weather = outfit.Weather
		}
		saved = models.SavedOutfit{
			OutfitID:      outfit.ID,
			UserAccountID: userID,
			Name:          name,
			Description:   meta.Description,
			Occasion:      meta.Occasion,
			Season:        meta.Season,
			Weather:       weather,
			Rating:        meta.Rating,
			Items:         snapshot(outfit.Items),
			SavedAt:       s.now(),
		}
		if err := tx.Create(&saved).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadySaved
			}
			return err
		}
		saved.Outfit = *outfit
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// RemoveSavedOutfit deletes the (outfit, user) saved row.
func (s *OutfitStore) RemoveSavedOutfit(ctx context.Context, userID uint, ref OutfitRef) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		outfitID := ref.outfitID
		if ref.IsCandidate() {
			outfit, err := s.resolve(tx, userID, ref, false)
			if errors.Is(err, ErrOutfitNotFound) {
				return ErrSavedOutfitNotFound
			}
			if err != nil {
				return err
			}
			outfitID = outfit.ID
		}
		result := tx.Where("outfit_id = ? AND user_account_id = ?", outfitID, userID).Delete(&models.SavedOutfit{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrSavedOutfitNotFound
		}
		return nil
	})
}

// ListSavedOutfits returns the user's saved outfits, newest first.
func (s *OutfitStore) ListSavedOutfits(ctx context.Context, userID uint) ([]models.SavedOutfit, error) {
	var saved []models.SavedOutfit
	err := s.db.WithContext(ctx).
		Preload("Outfit").
		Where("user_account_id = ?", userID).
		Order("saved_at DESC").Order("id DESC").
		Find(&saved).Error
	return saved, err
}

func (s *OutfitStore) ListOutfits(ctx context.Context, userID uint) ([]models.Outfit, error) {
	var outfits []models.Outfit
	err := s.db.WithContext(ctx).
		Preload("Items.WardrobeItem.Category").
		Where("user_account_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&outfits).Error
	return outfits, err
}

func (s *OutfitStore) GetOutfit(ctx context.Context, userID, outfitID uint) (*models.Outfit, error) {
	return s.resolve(s.db.WithContext(ctx), userID, PersistedRef(outfitID), false)
}

func (s *OutfitStore) CreateOutfit(ctx context.Context, userID uint, data OutfitData) (*models.Outfit, error) {
	var outfit models.Outfit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err := outfitItems(tx, userID, data.ItemIDs)
		if err != nil {
			return err
		}
		outfit = models.Outfit{
			UserAccountID: userID,
			Name:          data.Name,
			Description:   data.Description,
			Occasion:      data.Occasion,
			Weather:       data.Weather,
			ImageURL:      data.ImageKey,
			Items:         items,
		}
		if err := tx.Create(&outfit).Error; err != nil {
			return err
		}
		return preloadItems(tx, &outfit)
	})
	if err != nil {
		return nil, err
	}
	return &outfit, nil
}

// UpdateOutfit replaces the outfit's fields and items. The previous image
// key is returned when a new image replaced it.
func (s *OutfitStore) UpdateOutfit(ctx context.Context, userID, outfitID uint, data OutfitData) (*models.Outfit, *string, error) {
	var outfit *models.Outfit
	var replacedImage *string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		outfit, err = s.resolve(tx, userID, PersistedRef(outfitID), false)
		if err != nil {
			return err
		}
		items, err := outfitItems(tx, userID, data.ItemIDs)
		if err != nil {
			return err
		}
		if data.ImageKey != nil {
			replacedImage = outfit.ImageURL
			outfit.ImageURL = data.ImageKey
		}
		outfit.Name = data.Name
		outfit.Description = data.Description
		outfit.Occasion = data.Occasion
		outfit.Weather = data.Weather
		if err := tx.Omit("Items").Save(outfit).Error; err != nil {
			return err
		}
		if err := tx.Where("outfit_id = ?", outfit.ID).Delete(&models.OutfitItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OutfitID = outfit.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		return preloadItems(tx, outfit)
	})
	if err != nil {
		return nil, nil, err
	}
	return outfit, replacedImage, nil
}

// DeleteOutfit removes the outfit with its items and saved rows and returns
// its image key, if any, so the caller can clean up storage.
func (s *OutfitStore) DeleteOutfit(ctx context.Context, userID, outfitID uint) (*string, error) {
	var image *string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		outfit, err := s.resolve(tx, userID, PersistedRef(outfitID), false)
		if err != nil {
			return err
		}
		image = outfit.ImageURL
		if err := tx.Where("outfit_id = ?", outfit.ID).Delete(&models.SavedOutfit{}).Error; err != nil {
			return err
		}
		if err := tx.Where("outfit_id = ?", outfit.ID).Delete(&models.OutfitItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Outfit{}, outfit.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

func (s *OutfitStore) ToggleFavorite(ctx context.Context, userID, outfitID uint) (*models.Outfit, error) {
	return s.toggle(ctx, userID, outfitID, "is_favorite", func(o *models.Outfit) bool {
		o.IsFavorite = !o.IsFavorite
		return o.IsFavorite
	})
}

// SaveForLater marks the outfit as saved for later. Repeating the call keeps it marked.
func (s *OutfitStore) SaveForLater(ctx context.Context, userID, outfitID uint) (*models.Outfit, error) {
	return s.toggle(ctx, userID, outfitID, "saved_for_later", func(o *models.Outfit) bool {
		o.SavedForLater = true
		return true
	})
}

func (s *OutfitStore) toggle(ctx context.Context, userID, outfitID uint, column string, set func(*models.Outfit) bool) (*models.Outfit, error) {
	var outfit *models.Outfit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		outfit, err = s.resolve(tx, userID, PersistedRef(outfitID), false)
		if err != nil {
			return err
		}
		value := set(outfit)
		return tx.Model(&models.Outfit{}).Where("id = ?", outfit.ID).Update(column, value).Error
	})
	if err != nil {
		return nil, err
	}
	return outfit, nil
}

// OutfitStats summarizes occasions, favourite categories (by each favourite
// outfit's first item) and weather across the user's outfits.
func (s *OutfitStore) OutfitStats(ctx context.Context, userID uint) (*models.OutfitStatsOut, error) {
	outfits, err := s.ListOutfits(ctx, userID)
	if err != nil {
		return nil, err
	}
	occasions, favorites, weather := NewTally(), NewTally(), NewTally()
	for _, o := range outfits {
		occasions.Add(derefOr(o.Occasion, ""), "casual")
		weather.Add(derefOr(o.Weather, ""), "sunny")
		if o.IsFavorite {
			category := ""
			if len(o.Items) > 0 {
				category = o.Items[0].WardrobeItem.Category.Name
			}
			favorites.Add(category, "other")
		}
	}
	return &models.OutfitStatsOut{
		Occasions:    occasions.Entries(),
		Favorites:    favorites.Entries(),
		Weather:      weather.Entries(),
		TotalOutfits: len(outfits),
	}, nil
}

// resolve loads the referenced outfit owned by userID with its items. With
// materialize set, an unseen candidate is turned into a new outfit.
func (s *OutfitStore) resolve(tx *gorm.DB, userID uint, ref OutfitRef, materialize bool) (*models.Outfit, error) {
	var outfit models.Outfit
	q := tx.Preload("Items.WardrobeItem.Category").Where("user_account_id = ?", userID)

	switch ref.kind {
	case refPersisted:
		q = q.Where("id = ?", ref.outfitID)
	case refCandidate:
		q = q.Where("source_candidate_id = ?", ref.candidateID)
	default:
		return nil, apperr.UserInput("Outfit reference is required")
	}

	err := q.Take(&outfit).Error
	if err == nil {
		return &outfit, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if ref.kind != refCandidate || !materialize || ref.candidate == nil {
		return nil, ErrOutfitNotFound
	}
	return s.materialize(tx, userID, *ref.candidate)
}

func (s *OutfitStore) materialize(tx *gorm.DB, userID uint, c recommend.CandidateOutfit) (*models.Outfit, error) {
	ids := make([]uint, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ID)
	}
	items, err := outfitItems(tx, userID, ids)
	if err != nil {
		return nil, err
	}
	candidateID := c.ID
	outfit := models.Outfit{
		UserAccountID:     userID,
		Name:              c.Name,
		SourceCandidateID: &candidateID,
		Items:             items,
	}
	if c.Description != "" {
		outfit.Description = &c.Description
	}
	if c.Weather != "" {
		outfit.Weather = &c.Weather
	}
	if err := tx.Create(&outfit).Error; err != nil {
		return nil, err
	}
	if err := preloadItems(tx, &outfit); err != nil {
		return nil, err
	}
	return &outfit, nil
}

// outfitItems verifies that every id is a wardrobe item owned by userID and
// returns unsaved link rows in the given order, duplicates dropped.
func outfitItems(tx *gorm.DB, userID uint, ids []uint) ([]models.OutfitItem, error) {
	seen := make(map[uint]bool, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return nil, ErrNoItems
	}

	var owned int64
	if err := tx.Model(&models.WardrobeItem{}).
		Where("id IN ? AND user_account_id = ?", unique, userID).
		Count(&owned).Error; err != nil {
		return nil, err
	}
	if int(owned) != len(unique) {
		return nil, ErrForeignItems
	}

	items := make([]models.OutfitItem, 0, len(unique))
	for _, id := range unique {
		items = append(items, models.OutfitItem{WardrobeItemID: id})
	}
	return items, nil
}

func preloadItems(tx *gorm.DB, outfit *models.Outfit) error {
	outfit.Items = nil
	return tx.Preload("Items.WardrobeItem.Category").Take(outfit, outfit.ID).Error
}

func snapshot(items []models.OutfitItem) []models.ItemSnapshot {
	out := make([]models.ItemSnapshot, 0, len(items))
	for _, it := range items {
		out = append(out, models.ItemSnapshot{
			ID:           it.WardrobeItem.ID,
			Name:         it.WardrobeItem.Name,
			ImageURL:     it.WardrobeItem.ImageURL,
			CategoryName: it.WardrobeItem.Category.Name,
		})
	}
	return out
}
