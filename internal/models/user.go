// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Username     string     `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	DisplayName  string     `json:"display_name" gorm:"size:255"`
	LastLoginAt  *time.Time `json:"last_login_at"`

	// Relationships
	Marketplaces []SellerMarketplace `json:"marketplaces,omitempty" gorm:"foreignKey:SellerID"`
	Orders       []ProductOrder      `json:"orders,omitempty" gorm:"foreignKey:BuyerID"`
	Payouts      []SellerPayout      `json:"payouts,omitempty" gorm:"foreignKey:SellerID"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
