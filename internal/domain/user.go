package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a storefront account. Accounts start inactive and are activated
// by email verification.
type User struct {
	ID          uuid.UUID
	Email       string
	FirstName   string
	LastName    string
	CompanyName string
	Phone       string
	IsActive    bool
	LastLogin   time.Time
}

// FullName returns the user's display name, falling back to the email.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// IsBusinessCustomer reports whether the account belongs to a company.
func (u *User) IsBusinessCustomer() bool {
	return strings.TrimSpace(u.CompanyName) != ""
}

// MaxAddressesPerUser caps the address book.
const MaxAddressesPerUser = 10

// Address is an entry in a user's address book. At most one address per
// user is primary, and a user with any addresses always has one.
type Address struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Label        string
	FirstName    string
	LastName     string
	Company      string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string
	Phone        string
	IsPrimary    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
