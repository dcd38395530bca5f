package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"userhub/internal/models"
	"userhub/internal/models/dto"
	"userhub/internal/repositories"
	"userhub/internal/services"
)

func strPtr(s string) *string { return &s }

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func existingUser(t *testing.T) *models.User {
	return &models.User{
		ID:        5,
		Firstname: "Grace",
		Lastname:  "Hopper",
		Email:     "grace@example.com",
		Phone:     "555-0101",
		Password:  hashOf(t, "original-pw"),
		Status:    models.StatusActive,
	}
}

func validCreateRequest() dto.CreateUserRequest {
	return dto.CreateUserRequest{
		Firstname: "  Ada ",
		Lastname:  "Lovelace",
		Email:     " ada@example.com ",
		Phone:     "555-0100",
		Password:  "secret123",
	}
}

func TestUserService_CreateUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockPub := new(MockPublisher)
	service := services.NewUserService(mockRepo, mockPub, bcrypt.MinCost)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).
		Run(func(args mock.Arguments) { args.Get(1).(*models.User).ID = 7 }).
		Return(nil).Once()
	mockPub.On("PublishUserEvent", mock.MatchedBy(func(e models.UserEvent) bool {
		return e.Type == models.EventUserCreated && e.UserID == 7 && e.ID != ""
	})).Return(nil).Once()

	req := validCreateRequest()
	req.Status = "bogus"
	user, err := service.CreateUser(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, uint(7), user.ID)
	assert.Equal(t, "Ada", user.Firstname)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, models.StatusActive, user.Status)
	assert.NotEqual(t, "secret123", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret123")))
	mockRepo.AssertExpectations(t)
	mockPub.AssertExpectations(t)
}

func TestUserService_CreateUser_InactiveStatus(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := services.NewUserService(mockRepo, nil, bcrypt.MinCost)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil).Once()

	req := validCreateRequest()
	req.Status = "inactive"
	user, err := service.CreateUser(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, user.Status)
	mockRepo.AssertExpectations(t)
}

func TestUserService_CreateUser_Validation(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := services.NewUserService(mockRepo, nil, bcrypt.MinCost)

	_, err := service.CreateUser(context.Background(), dto.CreateUserRequest{
		Firstname: "Ada",
		Lastname:  "   ",
		Email:     "ada@example.com",
	})
	var validationErr *services.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.ElementsMatch(t, []string{"lastname", "phone", "password"}, mapKeys(validationErr.Fields))
	assert.Contains(t, validationErr.Error(), "lastname is required")
	assert.Contains(t, validationErr.Error(), "phone is required")
	assert.Contains(t, validationErr.Error(), "password is required")

	req := validCreateRequest()
	req.Email = "not-an-email"
	_, err = service.CreateUser(context.Background(), req)
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "email must be a valid email address", validationErr.Fields["email"])

	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUserService_CreateUser_PasswordLength(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := services.NewUserService(mockRepo, nil, bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
		reason   string
	}{
		{"too long for bcrypt", strings.Repeat("a", 73), "password must be at most 72 bytes"},
		{"multi-byte too long", strings.Repeat("é", 37), "password must be at most 72 bytes"},
		{"too short", "abc12", "password must be at least 6 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			req.Password = tt.password
			_, err := service.CreateUser(context.Background(), req)
			var validationErr *services.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, map[string]string{"password": tt.reason}, validationErr.Fields)
		})
	}
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	// Exactly 72 bytes is still accepted.
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil).Once()
	req := validCreateRequest()
	req.Password = strings.Repeat("a", 72)
	_, err := service.CreateUser(context.Background(), req)
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestUserService_CreateUser_DuplicateEmail(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockPub := new(MockPublisher)
	service := services.NewUserService(mockRepo, mockPub, bcrypt.MinCost)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(repositories.ErrDuplicateEmail).Once()

	_, err := service.CreateUser(context.Background(), validCreateRequest())
	assert.ErrorIs(t, err, services.ErrEmailTaken)
	mockPub.AssertNotCalled(t, "PublishUserEvent", mock.Anything)
}

func TestUserService_CreateUser_StoreError(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := services.NewUserService(mockRepo, nil, bcrypt.MinCost)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(errors.New("disk full")).Once()

	_, err := service.CreateUser(context.Background(), validCreateRequest())
	require.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrEmailTaken)
	assert.Contains(t, err.Error(), "disk full")
}

func TestUserService_CreateUser_PublishFailureIsIgnored(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockPub := new(MockPublisher)
	service := services.NewUserService(mockRepo, mockPub, bcrypt.MinCost)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil).Once()
	mockPub.On("PublishUserEvent", mock.Anything).Return(errors.New("broker down")).Once()

	_, err := service.CreateUser(context.Background(), validCreateRequest())
	assert.NoError(t, err)
	mockPub.AssertExpectations(t)
}

func TestUserService_ListUsers(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := services.NewUserService(mockRepo, nil, bcrypt.MinCost)

	users := []models.User{{ID: 2, Firstname: "John"}, {ID: 1, Firstname: "Johnny"}}
	mockRepo.On("List", mock.Anything, repositories.NewUserFilter("john"), repositories.Page(1)).
		Return(users, int64(12), nil).Once()

	page, err := service.ListUsers(context.Background(), "john", 0)
	require.NoError(t, err)
	assert.Equal(t, users, page.Data)
	assert.Equal(t, dto.ListMeta{Page: 1, PerPage: 10, Total: 12, LastPage: 2}, page.Meta)
	mockRepo.AssertExpectations(t)
}

func TestUserService_ListUsers_NoMatches(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := services.NewUserService(mockRepo, nil, bcrypt.MinCost)

	mockRepo.On("List", mock.Anything, repositories.NewUserFilter("nomatch"), repositories.Page(2)).
		Return([]models.User(nil), int64(0), nil).Once()

	page, err := service.ListUsers(context.Background(), "nomatch", 2)
	require.NoError(t, err)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.Equal(t, dto.ListMeta{Page: 2, PerPage: 10, Total: 0, LastPage: 1}, page.Meta)
}

func TestUserService_GetUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := services.NewUserService(mockRepo, nil, bcrypt.MinCost)

	expected := existingUser(t)
	mockRepo.On("GetByID", mock.Anything, uint(5)).Return(expected, nil).Once()
	user, err := service.GetUser(context.Background(), 5)
	assert.NoError(t, err)
	assert.Equal(t, expected, user)

	mockRepo.On("GetByID", mock.Anything, uint(99)).Return(nil, repositories.ErrNotFound).Once()
	_, err = service.GetUser(context.Background(), 99)
	assert.ErrorIs(t, err, services.ErrUserNotFound)
	mockRepo.AssertExpectations(t)
}

func TestUserService_UpdateUser_StatusOnly(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockPub := new(MockPublisher)
	service := services.NewUserService(mockRepo, mockPub, bcrypt.MinCost)

	before := existingUser(t)
	stored := *before
	mockRepo.On("GetByID", mock.Anything, uint(5)).Return(&stored, nil).Once()
	mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil).Once()
	mockPub.On("PublishUserEvent", mock.MatchedBy(func(e models.UserEvent) bool {
		return e.Type == models.EventUserUpdated && e.Status == models.StatusInactive
	})).Return(nil).Once()

	user, err := service.UpdateUser(context.Background(), 5, dto.UpdateUserRequest{Status: strPtr("inactive")})
	require.NoError(t, err)

	expected := *before
	expected.Status = models.StatusInactive
	assert.Equal(t, &expected, user)
	mockRepo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
	mockPub.AssertExpectations(t)
}

func TestUserService_UpdateUser_EmptyFieldRejected(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := services.NewUserService(mockRepo, nil, bcrypt.MinCost)

	mockRepo.On("GetByID", mock.Anything, uint(5)).Return(existingUser(t), nil)

	_, err := service.UpdateUser(context.Background(), 5, dto.UpdateUserRequest{
		Firstname: strPtr("   "),
		Email:     strPtr(""),
	})
	var validationErr *services.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.ElementsMatch(t, []string{"firstname", "email"}, mapKeys(validationErr.Fields))

	_, err = service.UpdateUser(context.Background(), 5, dto.UpdateUserRequest{Email: strPtr("nope")})
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "email must be a valid email address", validationErr.Fields["email"])

	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUserService_UpdateUser_Password(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := services.NewUserService(mockRepo, nil, bcrypt.MinCost)

	original := existingUser(t)
	originalHash := original.Password

	// Blank password keeps the stored credential.
	mockRepo.On("GetByID", mock.Anything, uint(5)).Return(original, nil).Once()
	mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil).Twice()
	user, err := service.UpdateUser(context.Background(), 5, dto.UpdateUserRequest{
		Password: strPtr("  "),
		Phone:    strPtr(" 555-2222 "),
	})
	require.NoError(t, err)
	assert.Equal(t, originalHash, user.Password)
	assert.Equal(t, "555-2222", user.Phone)

	// A new password is hashed and replaces the credential.
	mockRepo.On("GetByID", mock.Anything, uint(5)).Return(existingUser(t), nil).Once()
	user, err = service.UpdateUser(context.Background(), 5, dto.UpdateUserRequest{Password: strPtr("new-password")})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("new-password")))
	mockRepo.AssertExpectations(t)
}

func TestUserService_UpdateUser_PasswordLength(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := services.NewUserService(mockRepo, nil, bcrypt.MinCost)

	mockRepo.On("GetByID", mock.Anything, uint(5)).Return(existingUser(t), nil)

	for password, reason := range map[string]string{
		strings.Repeat("a", 73): "password must be at most 72 bytes",
		"short":                 "password must be at least 6 characters",
	} {
		_, err := service.UpdateUser(context.Background(), 5, dto.UpdateUserRequest{Password: strPtr(password)})
		var validationErr *services.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, reason, validationErr.Fields["password"])
	}
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUserService_UpdateUser_Email(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := services.NewUserService(mockRepo, nil, bcrypt.MinCost)

	// Taken by someone else.
	mockRepo.On("GetByID", mock.Anything, uint(5)).Return(existingUser(t), nil).Once()
	mockRepo.On("GetByEmail", mock.Anything, "taken@example.com").Return(&models.User{ID: 9}, nil).Once()
	_, err := service.UpdateUser(context.Background(), 5, dto.UpdateUserRequest{Email: strPtr("taken@example.com")})
	assert.ErrorIs(t, err, services.ErrEmailTaken)

	// Re-submitting the user's own email is not a conflict.
	mockRepo.On("GetByID", mock.Anything, uint(5)).Return(existingUser(t), nil).Once()
	mockRepo.On("GetByEmail", mock.Anything, "grace@example.com").Return(existingUser(t), nil).Once()
	mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil).Once()
	_, err = service.UpdateUser(context.Background(), 5, dto.UpdateUserRequest{Email: strPtr("grace@example.com")})
	assert.NoError(t, err)

	// A conflict detected only by the store is reported the same way.
	mockRepo.On("GetByID", mock.Anything, uint(5)).Return(existingUser(t), nil).Once()
	mockRepo.On("GetByEmail", mock.Anything, "fresh@example.com").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.User")).Return(repositories.ErrDuplicateEmail).Once()
	_, err = service.UpdateUser(context.Background(), 5, dto.UpdateUserRequest{Email: strPtr("fresh@example.com")})
	assert.ErrorIs(t, err, services.ErrEmailTaken)

	mockRepo.AssertExpectations(t)
}

func TestUserService_UpdateUser_NotFound(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := services.NewUserService(mockRepo, nil, bcrypt.MinCost)

	mockRepo.On("GetByID", mock.Anything, uint(42)).Return(nil, repositories.ErrNotFound).Once()
	_, err := service.UpdateUser(context.Background(), 42, dto.UpdateUserRequest{Status: strPtr("inactive")})
	assert.ErrorIs(t, err, services.ErrUserNotFound)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUserService_DeleteUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockPub := new(MockPublisher)
	service := services.NewUserService(mockRepo, mockPub, bcrypt.MinCost)

	mockRepo.On("GetByID", mock.Anything, uint(5)).Return(existingUser(t), nil).Once()
	mockRepo.On("Delete", mock.Anything, uint(5)).Return(nil).Once()
	mockPub.On("PublishUserEvent", mock.MatchedBy(func(e models.UserEvent) bool {
		return e.Type == models.EventUserDeleted && e.UserID == 5
	})).Return(nil).Once()
	assert.NoError(t, service.DeleteUser(context.Background(), 5))

	mockRepo.On("GetByID", mock.Anything, uint(99)).Return(nil, repositories.ErrNotFound).Once()
	assert.ErrorIs(t, service.DeleteUser(context.Background(), 99), services.ErrUserNotFound)

	mockRepo.AssertNotCalled(t, "Delete", mock.Anything, uint(99))
	mockRepo.AssertExpectations(t)
	mockPub.AssertExpectations(t)
}

func mapKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
