package models

var DefaultCategories = []string{"tops", "bottoms", "outerwear", "shoes", "accessories", "dresses"}

type Category struct {
	JsonModel
	Name string `json:"name" gorm:"uniqueIndex;size:50"`
}

type WardrobeItem struct {
	JsonModel
	UserAccountID uint        `json:"user_id" gorm:"index"`
	UserAccount   UserAccount `json:"-"`
	CategoryID    uint        `json:"category_id"`
	Category      Category    `json:"category"`
	Name          string      `json:"name"`
	Description   *string     `json:"description" gorm:"type:text"`
	Color         *string     `json:"color"`
	Brand         *string     `json:"brand"`
	Seasons       []string    `json:"seasons" gorm:"serializer:json;type:text"`
	// object key in the bucket, never a full URL
	ImageURL *string `json:"-"`
}

type CreateWardrobeItemIn struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Category    string   `json:"category" validate:"required,max=50"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Color       *string  `json:"color" validate:"omitempty,max=50"`
	Brand       *string  `json:"brand" validate:"omitempty,max=100"`
	Seasons     []string `json:"seasons" validate:"omitempty,dive,oneof=spring summer fall autumn winter all"`
	FileName    *string  `json:"file_name" validate:"required,max=200"`
}

type UpdateWardrobeItemIn struct {
	Name        *string  `json:"name" validate:"omitempty,max=100"`
	Category    *string  `json:"category" validate:"omitempty,max=50"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Color       *string  `json:"color" validate:"omitempty,max=50"`
	Brand       *string  `json:"brand" validate:"omitempty,max=100"`
	Seasons     []string `json:"seasons" validate:"omitempty,dive,oneof=spring summer fall autumn winter all"`
	FileName    *string  `json:"file_name" validate:"omitempty,max=200"`
}

type WardrobeItemOut struct {
	ID           uint     `json:"id"`
	Name         string   `json:"name"`
	CategoryName string   `json:"category_name"`
	Description  *string  `json:"description"`
	Color        *string  `json:"color"`
	Brand        *string  `json:"brand"`
	Seasons      []string `json:"seasons"`
	ImageURL     *string  `json:"image_url"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

type WardrobeItemCreatedOut struct {
	Item          WardrobeItemOut `json:"item"`
	FileUploadUrl string          `json:"file_upload_url,omitempty"`
}

type CountEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type WardrobeStatsOut struct {
	Categories []CountEntry `json:"categories"`
	Colors     []CountEntry `json:"colors"`
	Seasons    []CountEntry `json:"seasons"`
	TotalItems int          `json:"total_items"`
}
