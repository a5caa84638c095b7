package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

const minPasswordLength = 8

var (
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	// usernames that would shadow a route below /api/users
	reservedUsernames = map[string]bool{"me": true, "subscriptions": true, "set_password": true}
)

type UserService struct {
	db        *gorm.DB
	images    *ImageService
	presenter presenter
}

func NewUserService(db *gorm.DB, images *ImageService) *UserService {
	return &UserService{db: db, images: images, presenter: presenter{db: db, images: images}}
}

func (s *UserService) Register(ctx context.Context, req *types.RegisterRequest) (*types.UserCreatedResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	if !usernamePattern.MatchString(username) {
		return nil, validationError("username", "may contain only letters, digits and @/./+/-/_")
	}
	if reservedUsernames[strings.ToLower(username)] {
		return nil, validationError("username", "%q is reserved", username)
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	var taken models.User
	err := s.db.WithContext(ctx).Where("email = ? OR username = ?", email, username).First(&taken).Error
	switch {
	case err == nil && taken.Email == email:
		return nil, &FieldError{Field: "email", Message: "a user with this email already exists", Err: ErrAlreadyExists}
	case err == nil:
		return nil, &FieldError{Field: "username", Message: "a user with this username already exists", Err: ErrAlreadyExists}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to check existing users: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: string(hash),
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("user: %w", ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info("user registered", "user_id", user.ID, "username", user.Username)
	return &types.UserCreatedResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

func (s *UserService) List(ctx context.Context, viewerID uint, page types.PageRequest) ([]types.UserResponse, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Order("id").Offset(page.Offset()).Limit(page.Limit).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	resp, err := s.presenter.users(ctx, viewerID, users)
	if err != nil {
		return nil, 0, err
	}
	return resp, total, nil
}

func (s *UserService) Get(ctx context.Context, viewerID, id uint) (*types.UserResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp, err := s.presenter.users(ctx, viewerID, []models.User{*user})
	if err != nil {
		return nil, err
	}
	return &resp[0], nil
}

// SetPassword replaces the password after checking the current one
func (s *UserService) SetPassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return &FieldError{Field: "current_password", Message: "wrong password", Err: ErrInvalidCredentials}
	}
	if current == next {
		return validationError("new_password", "must differ from the current password")
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", string(hash)).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// SetAvatar stores a new avatar image and returns its URL
func (s *UserService) SetAvatar(ctx context.Context, userID uint, dataURI string) (string, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return "", err
	}

	key, err := s.images.Save(ctx, AvatarsFolder, dataURI)
	if err != nil {
		return "", err
	}
	old := user.Avatar
	if err := s.db.WithContext(ctx).Model(user).Update("avatar", key).Error; err != nil {
		s.images.Delete(ctx, key)
		return "", fmt.Errorf("failed to update avatar: %w", err)
	}
	s.images.Delete(ctx, old)

	return s.images.URL(key), nil
}

func (s *UserService) DeleteAvatar(ctx context.Context, userID uint) error {
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if user.Avatar == "" {
		return nil
	}

	old := user.Avatar
	if err := s.db.WithContext(ctx).Model(user).Update("avatar", "").Error; err != nil {
		return fmt.Errorf("failed to delete avatar: %w", err)
	}
	s.images.Delete(ctx, old)
	return nil
}

func (s *UserService) load(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func validatePassword(password string) error {
	if len([]rune(password)) < minPasswordLength {
		return validationError("password", "must be at least %d characters", minPasswordLength)
	}
	if strings.Trim(password, "0123456789") == "" {
		return validationError("password", "must not be entirely numeric")
	}
	return nil
}
