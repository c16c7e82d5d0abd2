// Package authpw signs staff in with an e-mail address and password. Staff
// accounts are records in the users collection of the document store.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"studio/admin/internal/docstore"
	"studio/admin/internal/rbac"
)

// Collection holds one record per staff account.
const Collection = "users"

const minPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
)

// InputError reports a rejected sign-in or account field.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return e.Field + ": " + e.Message
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         rbac.Role `json:"role"`
	Disabled     bool      `json:"disabled"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserStore is the part of the document store the service needs.
type UserStore interface {
	List(ctx context.Context, scope docstore.Scope) ([]docstore.Record, error)
	Get(ctx context.Context, collection, id string) (docstore.Record, error)
	Create(ctx context.Context, collection string, fields map[string]any, order *int) (string, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
}

type Service struct {
	store UserStore
	cost  int
	// dummyHash is compared against when the e-mail is unknown so that both
	// failure paths cost one bcrypt comparison.
	dummyHash []byte
}

func NewService(store UserStore) *Service {
	return newService(store, bcrypt.DefaultCost)
}

func newService(store UserStore, cost int) *Service {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("studio-admin-placeholder"), cost)
	return &Service{store: store, cost: cost, dummyHash: dummy}
}

// SignIn returns the account matching email and password.
func (s *Service) SignIn(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return User{}, &InputError{Field: "email", Message: "email and password are required"}
	}

	user, err := s.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if user.Disabled {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

type CreateUserRequest struct {
	Email    string
	Name     string
	Password string
	Role     string
}

func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (User, error) {
	email := normalizeEmail(req.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return User{}, &InputError{Field: "email", Message: "must be a valid email address"}
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return User{}, &InputError{Field: "name", Message: "is required"}
	}
	role, ok := rbac.ParseRole(req.Role)
	if !ok {
		return User{}, &InputError{Field: "role", Message: "must be viewer, editor or admin"}
	}

	if _, err := s.FindByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return User{}, err
	}
	fields := map[string]any{
		"email":         email,
		"name":          name,
		"role":          string(role),
		"disabled":      false,
		"password_hash": hash,
	}
	id, err := s.store.Create(ctx, Collection, fields, nil)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return s.Get(ctx, id)
}

// SetPassword replaces the password of the account registered under email.
func (s *Service) SetPassword(ctx context.Context, email, password string) error {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	if err := s.store.Update(ctx, Collection, user.ID, map[string]any{"password_hash": hash}); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *Service) SetDisabled(ctx context.Context, email string, disabled bool) error {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.store.Update(ctx, Collection, user.ID, map[string]any{"disabled": disabled}); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	record, err := s.store.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return userFromRecord(record), nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (User, error) {
	records, err := s.store.List(ctx, docstore.Scope{Collection: Collection, Field: "email", Value: normalizeEmail(email)})
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	if len(records) == 0 {
		return User{}, ErrUserNotFound
	}
	return userFromRecord(records[0]), nil
}

func (s *Service) hash(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", &InputError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func userFromRecord(record docstore.Record) User {
	return User{
		ID:           record.ID,
		Email:        record.String("email"),
		Name:         record.String("name"),
		Role:         rbac.Normalize(record.String("role")),
		Disabled:     record.Bool("disabled"),
		PasswordHash: record.String("password_hash"),
		CreatedAt:    record.CreatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
