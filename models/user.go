package models

import "time"

type UserAccount struct {
	JsonModel
	Username   string `json:"username" gorm:"uniqueIndex;size:30"`
	Email      string `json:"email" gorm:"uniqueIndex"`
	Password   string `json:"-"`
	Bio        string `json:"bio" gorm:"type:text"`
	AvatarURL  string `json:"avatar_url"`
	IsVerified bool   `json:"is_verified" gorm:"default:false"`
	LastIp     string `json:"-"`

	VerificationToken   *string    `json:"-" gorm:"index"`
	ResetToken          *string    `json:"-" gorm:"index"`
	ResetTokenExpiresAt *time.Time `json:"-"`
}

type ProfileUpdateIn struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=30,username"`
	Bio      *string `json:"bio" validate:"omitempty,max=500"`
}

type AvatarUploadIn struct {
	FileName string `json:"file_name" validate:"required,max=200"`
}

type AvatarUploadOut struct {
	User          UserAccount `json:"user"`
	FileUploadUrl string      `json:"file_upload_url"`
}
