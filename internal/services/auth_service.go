// internal/services/auth_service.go
package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/chainmart/chainmart-backend/internal/apperrors"
	"github.com/chainmart/chainmart-backend/internal/config"
	"github.com/chainmart/chainmart-backend/internal/models"
	"github.com/chainmart/chainmart-backend/internal/utils"
)

type AuthService struct {
	db  *gorm.DB
	cfg *config.Config
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username    string `json:"username" validate:"required,username"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,strong_password"`
	DisplayName string `json:"display_name,omitempty" validate:"omitempty,max=255"`
}

type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"` // in seconds
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{
		db:  db,
		cfg: cfg,
	}
}

func (s *AuthService) Register(req *RegisterRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidation("invalid registration input", utils.FieldErrors(err))
	}

	var existingUser models.User
	if err := s.db.Where("email = ? OR username = ?", req.Email, req.Username).First(&existingUser).Error; err == nil {
		if existingUser.Email == req.Email {
			return nil, apperrors.NewConflict("user with this email already exists")
		}
		return nil, apperrors.NewConflict("username already taken")
	}

	user := &models.User{
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, apperrors.WrapInternal("failed to hash password", err)
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, apperrors.WrapInternal("failed to create user", err)
	}

	return s.authResponse(user)
}

func (s *AuthService) Login(req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidation("invalid login input", utils.FieldErrors(err))
	}

	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return nil, apperrors.NewClient("invalid email or password")
	}
	if err := user.CheckPassword(req.Password); err != nil {
		return nil, apperrors.NewClient("invalid email or password")
	}

	now := time.Now().UTC()
	if err := s.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		// The login itself succeeded; a stale timestamp is not worth
		// failing it over.
		logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to record last login time")
	} else {
		user.LastLoginAt = &now
	}

	return s.authResponse(&user)
}

func (s *AuthService) GetProfile(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewClient("user does not exist")
		}
		return nil, apperrors.WrapInternal("failed to load user", err)
	}
	return &user, nil
}

func (s *AuthService) authResponse(user *models.User) (*AuthResponse, error) {
	token, err := utils.GenerateJWT(user.ID, user.Username, s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, apperrors.WrapInternal("failed to generate access token", err)
	}

	return &AuthResponse{
		User:        user,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   s.cfg.JWT.AccessTokenTTL * 3600,
	}, nil
}
