package database

import (
	"membership-api/internal/models"
)

// CreateUser creates a subscriber account
func CreateUser(user *models.User) error {
	return DB.Create(user).Error
}

// GetUserByEmail looks up a subscriber account by normalized email
func GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := DB.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
