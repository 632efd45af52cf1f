package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"digital_legacy_echo/internal/models"
)

var validate = validator.New()

func validEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

// IdentityProvider creates login identities and returns their uid
type IdentityProvider interface {
	CreateUser(ctx context.Context, email, password, displayName string) (string, error)
}

type UserService struct {
	db       *gorm.DB
	logger   echo.Logger
	identity IdentityProvider
}

func NewUserService(db *gorm.DB, logger echo.Logger, identity IdentityProvider) *UserService {
	return &UserService{db: db, logger: logger, identity: identity}
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

type CreateUserInput struct {
	Email    string
	Password string
	FullName string
	Role     string
}

// Create registers a login identity and its profile.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !validEmail(email) {
		return nil, Validation("Invalid email")
	}
	if len(in.Password) < 6 {
		return nil, Validation("Password must be at least 6 characters")
	}
	role := models.Role(in.Role)
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, Validation("Invalid role")
	}
	if s.identity == nil {
		return nil, fmt.Errorf("identity provider not configured")
	}

	if _, err := s.FindByEmail(ctx, email); err == nil {
		return nil, Conflict("Email already exists")
	} else if KindOf(err) != KindNotFound {
		return nil, err
	}

	uid, err := s.identity.CreateUser(ctx, email, in.Password, in.FullName)
	if err != nil {
		return nil, err
	}

	user := models.User{
		FirebaseUID: &uid,
		Email:       email,
		FullName:    strings.TrimSpace(in.FullName),
		Role:        role,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	s.logger.Infof("User %s created with role %s", email, role)
	return &user, nil
}

// ResolveCustomer returns the profile for email, creating the identity and
// profile with a random password when the customer is new.
func (s *UserService) ResolveCustomer(ctx context.Context, email, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validEmail(email) {
		return nil, Validation("Invalid email")
	}

	user, err := s.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if KindOf(err) != KindNotFound {
		return nil, err
	}

	created := models.User{Email: email, FullName: strings.TrimSpace(name), Role: models.RoleUser}
	if s.identity != nil {
		uid, err := s.identity.CreateUser(ctx, email, uuid.NewString(), name)
		if err != nil {
			return nil, err
		}
		created.FirebaseUID = &uid
	}
	if err := s.db.WithContext(ctx).Create(&created).Error; err != nil {
		return nil, err
	}
	s.logger.Infof("Customer profile created for %s", email)
	return &created, nil
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIdentity resolves a verified identity to its profile, by uid first and then by email.
func (s *UserService) FindByIdentity(ctx context.Context, uid, email string) (*models.User, error) {
	if uid != "" {
		var user models.User
		err := s.db.WithContext(ctx).Where("firebase_uid = ?", uid).First(&user).Error
		if err == nil {
			return &user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if email != "" {
		return s.FindByEmail(ctx, email)
	}
	return nil, NotFound("User not found")
}

// Promote creates or updates the profile for email with role.
func (s *UserService) Promote(ctx context.Context, email, name string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, Validation("Invalid role")
	}
	user, err := s.ResolveCustomer(ctx, email, name)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}
	if err := s.db.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}
