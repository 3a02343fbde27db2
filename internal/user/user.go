package user

import (
	"errors"
	"fmt"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrInvalidUser is returned when the identity fails validation.
var ErrInvalidUser = errors.New("invalid user")

const (
	defaultFirstName = "Max"
	defaultLastName  = "Mustermann"
	defaultDomain    = "example.org"
)

var validate = validator.New()

// User identifies the shopper a basket belongs to.
type User struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName" validate:"required"`
	LastName  string    `json:"lastName" validate:"required"`
	Username  string    `json:"username" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
}

// New builds a user whose username is "first.last" and whose email lives at
// domain. An empty domain defaults to example.org.
func New(firstName, lastName, domain string) (User, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if strings.TrimSpace(domain) == "" {
		domain = defaultDomain
	}
	username := strings.Join([]string{strings.ToLower(firstName), strings.ToLower(lastName)}, ".")
	u := User{
		ID:        uuid.New(),
		FirstName: firstName,
		LastName:  lastName,
		Username:  username,
		Email:     username + "@" + strings.TrimSpace(domain),
	}
	if err := validate.Struct(u); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}
	return u, nil
}

// Default returns the walk-in shopper used when no identity is supplied.
func Default() User {
	u, err := New(defaultFirstName, defaultLastName, defaultDomain)
	if err != nil {
		panic(err)
	}
	return u
}

func (u User) String() string {
	return fmt.Sprintf("User(firstname=%s, lastname=%s, username=%s, email=%s)", u.FirstName, u.LastName, u.Username, u.Email)
}
