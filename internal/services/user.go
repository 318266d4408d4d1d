package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/schofire/invoiceapi/internal/apperr"
	"github.com/schofire/invoiceapi/internal/auth"
	"github.com/schofire/invoiceapi/internal/cache"
	"github.com/schofire/invoiceapi/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService manages accounts and issues session tokens.
type UserService struct {
	db       *gorm.DB
	cache    *cache.Cache[models.User]
	cacheTTL time.Duration
	jwt      *auth.JWTManager
}

func NewUserService(db *gorm.DB, c *cache.Cache[models.User], cacheTTL time.Duration, jwt *auth.JWTManager) *UserService {
	return &UserService{db: db, cache: c, cacheTTL: cacheTTL, jwt: jwt}
}

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Name        string
	Address     string
	Email       string
	Password    string
	PhoneNumber string
}

// UserPatch carries optional field updates; nil means keep current.
type UserPatch struct {
	Name        *string
	Address     *string
	PhoneNumber *string
}

// Register creates an account. The email must be unused.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return models.User{}, fmt.Errorf("%w: name, email and password are required", apperr.ErrInvalidArgument)
	}

	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", in.Email).First(&existing).Error
	if err == nil {
		return models.User{}, fmt.Errorf("%w: email already registered", apperr.ErrConflict)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, fmt.Errorf("%w: find user: %v", apperr.ErrUnavailable, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: hash password: %v", apperr.ErrUnavailable, err)
	}
	user := models.User{
		Name:        in.Name,
		Address:     in.Address,
		Email:       in.Email,
		Password:    string(hash),
		PhoneNumber: in.PhoneNumber,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return models.User{}, fmt.Errorf("%w: create user: %v", apperr.ErrUnavailable, err)
	}
	slog.Info("user registered", "email", user.Email)
	s.cache.Set(user.Email, user, s.cacheTTL)
	return user, nil
}

// LogIn verifies credentials and returns the user with a signed token.
// A wrong password and an unknown email are indistinguishable to the caller.
func (s *UserService) LogIn(ctx context.Context, email, password string) (models.User, string, error) {
	user, err := s.findUser(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.User{}, "", fmt.Errorf("%w: invalid credentials", apperr.ErrForbidden)
		}
		return models.User{}, "", err
	}
	if err := verifySecret(user.Password, password); err != nil {
		return models.User{}, "", fmt.Errorf("%w: invalid credentials", apperr.ErrForbidden)
	}

	token, err := s.jwt.Generate(auth.UserInfo{UserID: user.ID, Email: user.Email, Name: user.Name})
	if err != nil {
		return models.User{}, "", fmt.Errorf("%w: issue token: %v", apperr.ErrUnavailable, err)
	}
	slog.Info("user logged in", "email", user.Email)
	return user, token, nil
}

// Edit applies a partial update after the password has been verified.
func (s *UserService) Edit(ctx context.Context, user auth.UserInfo, password string, patch UserPatch) (models.User, error) {
	record, err := s.requireSelf(ctx, user)
	if err != nil {
		return models.User{}, err
	}
	if err := verifySecret(record.Password, password); err != nil {
		return models.User{}, err
	}

	if patch.Name != nil {
		record.Name = *patch.Name
	}
	if patch.Address != nil {
		record.Address = *patch.Address
	}
	if patch.PhoneNumber != nil {
		record.PhoneNumber = *patch.PhoneNumber
	}

	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return models.User{}, fmt.Errorf("%w: update user: %v", apperr.ErrUnavailable, err)
	}
	slog.Info("user updated", "email", record.Email)
	s.cache.Set(record.Email, record, s.cacheTTL)
	return record, nil
}

// ChangePassword replaces the stored hash after the old password has been
// verified. The mutation proceeds only on a correct old password.
func (s *UserService) ChangePassword(ctx context.Context, user auth.UserInfo, oldPassword, newPassword string) error {
	record, err := s.requireSelf(ctx, user)
	if err != nil {
		return err
	}
	if err := verifySecret(record.Password, oldPassword); err != nil {
		return err
	}
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", apperr.ErrInvalidArgument)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("%w: hash password: %v", apperr.ErrUnavailable, err)
	}
	record.Password = string(hash)
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return fmt.Errorf("%w: update password: %v", apperr.ErrUnavailable, err)
	}
	slog.Info("password changed", "email", record.Email)
	s.cache.Set(record.Email, record, s.cacheTTL)
	return nil
}

// Delete removes the caller's account after password confirmation.
func (s *UserService) Delete(ctx context.Context, user auth.UserInfo, passwordConfirmation string) error {
	record, err := s.requireSelf(ctx, user)
	if err != nil {
		return err
	}
	if err := verifySecret(record.Password, passwordConfirmation); err != nil {
		return err
	}

	// Hard delete: the account is gone, the relations with it.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", record.ID).Delete(&models.UserCustomerRelation{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&record).Error
	})
	if err != nil {
		return fmt.Errorf("%w: delete user: %v", apperr.ErrUnavailable, err)
	}
	slog.Info("user deleted", "email", record.Email)
	s.cache.Invalidate(record.Email)
	return nil
}

// requireSelf loads the caller's own record.
func (s *UserService) requireSelf(ctx context.Context, user auth.UserInfo) (models.User, error) {
	if !user.Valid() {
		return models.User{}, apperr.ErrUnauthenticated
	}
	record, err := s.findUser(ctx, user.Email)
	if err != nil {
		return models.User{}, err
	}
	if record.ID != user.UserID {
		return models.User{}, fmt.Errorf("%w: identity mismatch", apperr.ErrForbidden)
	}
	return record, nil
}

// findUser is the single by-email read path; it consults the lookup cache
// first and re-arms it on a store hit.
func (s *UserService) findUser(ctx context.Context, email string) (models.User, error) {
	if email == "" {
		return models.User{}, fmt.Errorf("%w: email is required", apperr.ErrInvalidArgument)
	}
	if user, hit := s.cache.Get(email); hit {
		return user, nil
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, fmt.Errorf("%w: user %s", apperr.ErrNotFound, email)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%w: find user: %v", apperr.ErrUnavailable, err)
	}

	s.cache.Set(user.Email, user, s.cacheTTL)
	return user, nil
}
