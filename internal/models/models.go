package models

import "time"

type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"       json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"           json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"           json:"email"`
	PasswordHash string    `gorm:"not null"                       json:"-"`
	PasswordSalt string    `gorm:"not null"                       json:"-"`
	IsAdmin      bool      `gorm:"not null;default:false"         json:"isAdmin"`
	CreatedAt    time.Time `json:"-"`
}

func (User) TableName() string {
	return "users"
}
