package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"userhub/internal/models"
	"userhub/internal/models/dto"
	"userhub/internal/repositories"
)

// EventPublisher delivers user lifecycle events to interested consumers.
type EventPublisher interface {
	PublishUserEvent(event models.UserEvent) error
}

// UserService handles business logic related to user records.
type UserService struct {
	repo       repositories.UserRepository
	publisher  EventPublisher // optional
	validate   *validator.Validate
	bcryptCost int
}

// NewUserService creates a new UserService. publisher may be nil, in which
// case no events are emitted. A bcryptCost of zero selects bcrypt.DefaultCost.
func NewUserService(repo repositories.UserRepository, publisher EventPublisher, bcryptCost int) *UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		repo:       repo,
		publisher:  publisher,
		validate:   newValidator(),
		bcryptCost: bcryptCost,
	}
}

// ListUsers returns the requested page of users matching search.
func (s *UserService) ListUsers(ctx context.Context, search string, page int) (*dto.UserPage, error) {
	p := repositories.NewPage(page)
	users, total, err := s.repo.List(ctx, repositories.NewUserFilter(search), p)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return &dto.UserPage{
		Data: users,
		Meta: dto.ListMeta{
			Page:     int(p),
			PerPage:  repositories.PerPage,
			Total:    total,
			LastPage: repositories.LastPage(total),
		},
	}, nil
}

// GetUser retrieves a single user by its ID.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

// CreateUser validates req, hashes the password and stores a new user.
func (s *UserService) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*models.User, error) {
	req.Firstname = strings.TrimSpace(req.Firstname)
	req.Lastname = strings.TrimSpace(req.Lastname)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Password = strings.TrimSpace(req.Password)

	if err := s.validate.Struct(req); err != nil {
		return nil, translateValidation(err)
	}

	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  hash,
		Status:    models.NormalizeStatus(req.Status),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publish(models.EventUserCreated, user)
	return user, nil
}

// UpdateUser applies the fields present in req to the user with the given ID.
// A provided but blank name, email or phone is rejected rather than ignored.
// A blank password leaves the stored credential untouched.
func (s *UserService) UpdateUser(ctx context.Context, id uint, req dto.UpdateUserRequest) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string)
	apply := func(name string, in *string, dst *string, rules string) {
		if in == nil {
			return
		}
		v := strings.TrimSpace(*in)
		if err := s.validate.Var(v, rules); err != nil {
			var ve validator.ValidationErrors
			if errors.As(err, &ve) && len(ve) > 0 {
				fields[name] = fieldReason(name, ve[0].Tag(), ve[0].Param())
				return
			}
			fields[name] = fieldReason(name, "required", "")
			return
		}
		*dst = v
	}
	apply("firstname", req.Firstname, &user.Firstname, "required")
	apply("lastname", req.Lastname, &user.Lastname, "required")
	apply("email", req.Email, &user.Email, "required,email")
	apply("phone", req.Phone, &user.Phone, "required")

	var password string
	if req.Password != nil && strings.TrimSpace(*req.Password) != "" {
		apply("password", req.Password, &password, "min=6,bcrypt_len")
	}
	if len(fields) > 0 {
		return nil, fieldsError(fields)
	}

	if req.Status != nil {
		user.Status = models.NormalizeStatus(*req.Status)
	}
	if password != "" {
		hash, err := s.hashPassword(password)
		if err != nil {
			return nil, err
		}
		user.Password = hash
	}

	if req.Email != nil {
		other, err := s.repo.GetByEmail(ctx, user.Email)
		switch {
		case err == nil && other.ID != user.ID:
			return nil, ErrEmailTaken
		case err != nil && !errors.Is(err, repositories.ErrNotFound):
			return nil, fmt.Errorf("check email: %w", err)
		}
	}

	if err := s.repo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repositories.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}

	s.publish(models.EventUserUpdated, user)
	return user, nil
}

// DeleteUser permanently removes the user with the given ID.
func (s *UserService) DeleteUser(ctx context.Context, id uint) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user %d: %w", id, err)
	}

	s.publish(models.EventUserDeleted, user)
	return nil
}

func (s *UserService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fieldsError(map[string]string{
				"password": fieldReason("password", "bcrypt_len", ""),
			})
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// publish is best effort: a broker failure never fails the request.
func (s *UserService) publish(eventType string, user *models.User) {
	if s.publisher == nil {
		return
	}
	event := models.UserEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     user.ID,
		Email:      user.Email,
		Status:     user.Status,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.PublishUserEvent(event); err != nil {
		log.Printf("Warning: failed to publish %s event for user %d: %v", eventType, user.ID, err)
	}
}
