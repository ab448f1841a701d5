package models

import "time"

type Outfit struct {
	JsonModel
	UserAccountID uint         `json:"user_id" gorm:"index"`
	Name          string       `json:"name"`
	Description   *string      `json:"description" gorm:"type:text"`
	ImageURL      *string      `json:"-"`
	Occasion      *string      `json:"occasion"`
	Weather       *string      `json:"weather"`
	IsFavorite    bool         `json:"is_favorite" gorm:"default:false"`
	SavedForLater bool         `json:"saved_for_later" gorm:"default:false"`
	// set when the outfit was materialized from a recommendation candidate
	SourceCandidateID *string      `json:"source_candidate_id" gorm:"index"`
	Items             []OutfitItem `json:"items"`
}

type OutfitItem struct {
	JsonModel
	OutfitID       uint         `json:"outfit_id" gorm:"index"`
	WardrobeItemID uint         `json:"wardrobe_item_id" gorm:"index"`
	WardrobeItem   WardrobeItem `json:"wardrobe_item"`
}

// ItemSnapshot is the denormalized copy of an item kept on a saved outfit.
type ItemSnapshot struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	ImageURL     *string `json:"image_url"`
	CategoryName string  `json:"category_name"`
}

type SavedOutfit struct {
	JsonModel
	OutfitID      uint           `json:"outfit_id" gorm:"uniqueIndex:idx_saved_outfit_user"`
	Outfit        Outfit         `json:"-"`
	UserAccountID uint           `json:"user_id" gorm:"uniqueIndex:idx_saved_outfit_user"`
	Name          string         `json:"name"`
	Description   *string        `json:"description" gorm:"type:text"`
	Occasion      *string        `json:"occasion"`
	Season        *string        `json:"season"`
	Weather       *string        `json:"weather"`
	Rating        *int           `json:"rating"`
	Items         []ItemSnapshot `json:"items" gorm:"serializer:json;type:text"`
	SavedAt       time.Time      `json:"saved_at" gorm:"index"`
}

type WeatherPreference struct {
	JsonModel
	UserAccountID       uint     `json:"user_id" gorm:"uniqueIndex"`
	MinTemperature      float64  `json:"min_temperature"`
	MaxTemperature      float64  `json:"max_temperature"`
	PreferredConditions []string `json:"preferred_conditions" gorm:"serializer:json;type:text"`
}

type WeatherPreferenceIn struct {
	MinTemperature      *float64 `json:"min_temperature" validate:"required,min=-50,max=60"`
	MaxTemperature      *float64 `json:"max_temperature" validate:"required,min=-50,max=60"`
	PreferredConditions []string `json:"preferred_conditions" validate:"omitempty,dive,condition"`
}

type OutfitIn struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Occasion    *string `json:"occasion" validate:"omitempty,max=50"`
	Weather     *string `json:"weather" validate:"omitempty,condition"`
	ItemIDs     []uint  `json:"item_ids" validate:"required,min=1,max=10"`
	FileName    *string `json:"file_name" validate:"omitempty,max=200"`
}

type OutfitOut struct {
	ID            uint           `json:"id"`
	Name          string         `json:"name"`
	Description   *string        `json:"description"`
	ImageURL      *string        `json:"image_url"`
	Occasion      *string        `json:"occasion"`
	Weather       *string        `json:"weather"`
	IsFavorite    bool           `json:"is_favorite"`
	SavedForLater bool           `json:"saved_for_later"`
	Items         []ItemSnapshot `json:"items"`
	CreatedAt     string         `json:"created_at"`
}

type OutfitCreatedOut struct {
	Outfit        OutfitOut `json:"outfit"`
	FileUploadUrl string    `json:"file_upload_url,omitempty"`
}

type OutfitStatsOut struct {
	Occasions    []CountEntry `json:"occasions"`
	Favorites    []CountEntry `json:"favorites"`
	Weather      []CountEntry `json:"weather"`
	TotalOutfits int          `json:"total_outfits"`
}

type SavedOutfitOut struct {
	ID          uint           `json:"id"`
	OutfitID    uint           `json:"outfit_id"`
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	Occasion    *string        `json:"occasion"`
	Season      *string        `json:"season"`
	Weather     *string        `json:"weather"`
	Rating      *int           `json:"rating"`
	Items       []ItemSnapshot `json:"items"`
	ImageURL    *string        `json:"image_url"`
	SavedAt     time.Time      `json:"saved_at"`
}
