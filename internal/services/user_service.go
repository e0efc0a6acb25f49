package services

import (
	"context"

	"couple_compass_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserService upserts users from verified token claims and resolves linked
// partners for the invitation flow.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// CreateOrUpdateUser upserts a user row keyed by the token's auth subject,
// refreshing profile fields from the claims on every request.
func (s *UserService) CreateOrUpdateUser(ctx context.Context, authID, email, name, nickname string) (*models.User, error) {
	user := models.User{
		AuthID:   authID,
		Email:    email,
		Name:     name,
		Nickname: nickname,
	}
	result := s.db.WithContext(ctx).
		Where(models.User{AuthID: authID}).
		Assign(models.User{Email: email, Name: name, Nickname: nickname}).
		FirstOrCreate(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

func (s *UserService) GetUserByID(userID uuid.UUID) (*models.User, error) {
	var user models.User
	result := s.db.Where("id = ?", userID).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}
