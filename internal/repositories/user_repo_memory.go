package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"userhub/internal/models"
)

var _ UserRepository = (*MemoryUserRepository)(nil)

// MemoryUserRepository is an in-memory implementation of UserRepository.
// The mutex serializes writes, so of two concurrent creates with one email
// exactly one succeeds.
type MemoryUserRepository struct {
	users  map[uint]models.User
	nextID uint
	mu     sync.RWMutex
}

// NewMemoryUserRepository creates a new instance of MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:  make(map[uint]models.User),
		nextID: 1,
	}
}

// List returns one page of matching users ordered by id descending.
func (r *MemoryUserRepository) List(ctx context.Context, filter UserFilter, page Page) ([]models.User, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		if filter.Match(u) {
			matched = append(matched, u)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	start := page.Offset()
	if start < 0 || start > len(matched) {
		start = len(matched)
	}
	end := start + page.Limit()
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]models.User, end-start)
	copy(out, matched[start:end])
	return out, total, nil
}

// GetByID returns a user by its ID.
func (r *MemoryUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

// GetByEmail returns a user by exact email match.
func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

// Create adds a new user and assigns its ID.
func (r *MemoryUserRepository) Create(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(user.Email, 0) {
		return ErrDuplicateEmail
	}
	if user.Status == "" {
		user.Status = models.StatusActive
	}
	now := time.Now()
	user.ID = r.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	r.nextID++
	r.users[user.ID] = *user
	return nil
}

// Update replaces the stored user with the same ID.
func (r *MemoryUserRepository) Update(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if r.emailTaken(user.Email, user.ID) {
		return ErrDuplicateEmail
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}

// Delete removes a user by its ID.
func (r *MemoryUserRepository) Delete(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// emailTaken must be called with r.mu held.
func (r *MemoryUserRepository) emailTaken(email string, exceptID uint) bool {
	for id, u := range r.users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}
