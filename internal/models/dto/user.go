package dto

import "userhub/internal/models"

// CreateUserRequest is the body accepted by POST /users and POST /register.
type CreateUserRequest struct {
	Firstname string `json:"firstname" validate:"required"`
	Lastname  string `json:"lastname" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	Password  string `json:"password" validate:"required,min=6,bcrypt_len"`
	Status    string `json:"status"`
}

// UpdateUserRequest is the body accepted by PUT/PATCH /users/:id.
// A nil field was omitted by the client and keeps its stored value.
type UpdateUserRequest struct {
	Firstname *string `json:"firstname"`
	Lastname  *string `json:"lastname"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Password  *string `json:"password"`
	Status    *string `json:"status"`
}

// ListMeta describes the page returned by GET /users.
type ListMeta struct {
	Page     int   `json:"page"`
	PerPage  int   `json:"per_page"`
	Total    int64 `json:"total"`
	LastPage int   `json:"last_page"`
}

// UserPage is a page of users with its pagination metadata.
type UserPage struct {
	Data []models.User `json:"data"`
	Meta ListMeta      `json:"meta"`
}
