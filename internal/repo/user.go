package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shop-auth/internal/models"
)

const byUsernameOrEmail = "username = ? OR email = ?"

// FindByUsernameOrEmail returns the user whose username or email is exactly identifier.
// When identifier is one user's username and another's email, the older account wins.
func (r *GormRepo) FindByUsernameOrEmail(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).
		Where(byUsernameOrEmail, identifier, identifier).
		Order("id").
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// ExistsByUsernameOrEmail reports whether any user holds username or email,
// not necessarily the same record.
func (r *GormRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where(byUsernameOrEmail, username, email).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

// Create inserts a user. The uniqueness constraints are authoritative: a
// duplicate that slipped past ExistsByUsernameOrEmail yields ErrUserAlreadyExist.
func (r *GormRepo) Create(ctx context.Context, username, email, passwordHash, passwordSalt string) (*models.User, error) {
	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		PasswordSalt: passwordSalt,
	}
	if err := r.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserAlreadyExist
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// FindByCredential returns the user matching identifier whose stored hash
// accepts password. Unknown identifiers and wrong passwords both give
// ErrInvalidCredential after the same amount of hashing work.
func (r *GormRepo) FindByCredential(ctx context.Context, identifier, password string) (*models.User, error) {
	var candidates []models.User
	if err := r.DB.WithContext(ctx).
		Where(byUsernameOrEmail, identifier, identifier).
		Order("id").
		Limit(2).
		Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("find credential: %w", err)
	}

	if len(candidates) == 0 {
		r.Hasher.Burn(password)
		return nil, ErrInvalidCredential
	}

	for i := range candidates {
		if r.Hasher.CheckPassword(candidates[i].PasswordHash, candidates[i].PasswordSalt, password) {
			return &candidates[i], nil
		}
	}
	return nil, ErrInvalidCredential
}

func (r *GormRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}
