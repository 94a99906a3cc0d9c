package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yoockh/speechrelay/internal/models"
	pgrepo "github.com/yoockh/speechrelay/internal/repositories/postgres"
	"github.com/yoockh/speechrelay/internal/storage"
	"github.com/yoockh/speechrelay/internal/utils"
)

// SupportedLanguages are the caption languages a user may pick.
var SupportedLanguages = []string{
	"en-US", "zh", "es", "ar", "it", "tr", "nl", "id", "pl", "vi", "th", "ur",
}

func IsSupportedLanguage(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	PhoneNo  string
	Language string
}

type ProfileUpdate struct {
	Name     *string
	PhoneNo  *string
	Language *string
}

type LoginResult struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Get(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*models.User, error)
	SetStatus(ctx context.Context, userID string, status models.UserStatus) error
	UploadProfileImage(ctx context.Context, userID, filename, contentType string, r io.Reader) (string, error)
}

type userService struct {
	users    pgrepo.UserRepository
	images   storage.Uploader // nil when object storage is not configured
	secret   string
	tokenTTL time.Duration
	now      func() time.Time
}

func NewUserService(users pgrepo.UserRepository, images storage.Uploader, jwtSecret string, tokenTTL time.Duration) UserService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &userService{
		users:    users,
		images:   images,
		secret:   jwtSecret,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	const op = "UserService.Register"

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "name, email and password are required", nil)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid email", err)
	}
	if len(in.Password) < 6 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "password must be at least 6 characters", nil)
	}
	if in.Language == "" {
		in.Language = "en-US"
	}
	if !IsSupportedLanguage(in.Language) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid language code", nil)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return nil, utils.E(utils.CodeInvalidArgument, op, "password too long", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to hash password", err)
	}

	u := &models.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		PhoneNo:      in.PhoneNo,
		Language:     in.Language,
		Status:       models.StatusOffline,
		Role:         models.RoleUser,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, utils.ErrDuplicate) {
			return nil, utils.E(utils.CodeConflict, op, "email already registered", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to create user", err)
	}
	return u, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	const op = "UserService.Login"

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "email and password are required", nil)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeUnauthorized, op, "invalid credentials", nil)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}
	if err := utils.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, utils.E(utils.CodeUnauthorized, op, "invalid credentials", nil)
	}

	now := s.now()
	tok, err := utils.SignAuthToken(s.secret, utils.AuthClaims{
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   string(u.Role),
	}, s.tokenTTL, now)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to sign token", err)
	}
	return &LoginResult{User: u, Token: tok, ExpiresAt: now.Add(s.tokenTTL)}, nil
}

func (s *userService) Get(ctx context.Context, userID string) (*models.User, error) {
	const op = "UserService.Get"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "user not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}
	return u, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*models.User, error) {
	const op = "UserService.UpdateProfile"

	fields := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, utils.E(utils.CodeInvalidArgument, op, "name cannot be empty", nil)
		}
		fields["name"] = name
	}
	if in.PhoneNo != nil {
		fields["phone_no"] = strings.TrimSpace(*in.PhoneNo)
	}
	if in.Language != nil {
		if !IsSupportedLanguage(*in.Language) {
			return nil, utils.E(utils.CodeInvalidArgument, op, "invalid language code", nil)
		}
		fields["language"] = *in.Language
	}
	if len(fields) == 0 {
		return s.Get(ctx, userID)
	}

	if err := s.users.Update(ctx, userID, fields); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "user not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to update profile", err)
	}
	return s.Get(ctx, userID)
}

func (s *userService) SetStatus(ctx context.Context, userID string, status models.UserStatus) error {
	const op = "UserService.SetStatus"

	if status != models.StatusOnline && status != models.StatusOffline {
		return utils.E(utils.CodeInvalidArgument, op, "status must be online or offline", nil)
	}
	if err := s.users.Update(ctx, userID, map[string]any{"status": string(status)}); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "user not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to set status", err)
	}
	return nil
}

func (s *userService) UploadProfileImage(ctx context.Context, userID, filename, contentType string, r io.Reader) (string, error) {
	const op = "UserService.UploadProfileImage"

	if s.images == nil {
		return "", utils.E(utils.CodeUnavailable, op, "image storage is not configured", nil)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", utils.E(utils.CodeInvalidArgument, op, "file must be an image", nil)
	}
	if _, err := s.Get(ctx, userID); err != nil {
		return "", err
	}

	object := fmt.Sprintf("profile-images/%s/%d-%s%s", userID, s.now().UnixMilli(), uuid.NewString()[:8], strings.ToLower(path.Ext(filename)))
	url, err := s.images.Upload(ctx, object, contentType, r)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "failed to upload image", err)
	}
	if err := s.users.Update(ctx, userID, map[string]any{"profile_image": url}); err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to save image url", err)
	}
	return url, nil
}
