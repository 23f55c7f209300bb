package email

import "time"

// EmailTemplate defines the interface for email templates
type EmailTemplate interface {
	Subject() string
	TemplateName() string
}

// VerificationEmail asks a new customer to confirm their address.
type VerificationEmail struct {
	Email     string
	FirstName string
	VerifyURL string
	ExpiresAt time.Time
}

func (e VerificationEmail) Subject() string {
	return "Verify your Marbelle account"
}

func (e VerificationEmail) TemplateName() string {
	return "verification.html"
}

// PasswordResetEmail represents a password reset email
type PasswordResetEmail struct {
	Email     string
	FirstName string
	ResetURL  string
	ExpiresAt time.Time
}

func (e PasswordResetEmail) Subject() string {
	return "Reset your Marbelle password"
}

func (e PasswordResetEmail) TemplateName() string {
	return "password_reset.html"
}

// EmailChangeVerificationEmail goes to the requested new address.
type EmailChangeVerificationEmail struct {
	NewEmail   string
	FirstName  string
	ConfirmURL string
	ExpiresAt  time.Time
}

func (e EmailChangeVerificationEmail) Subject() string {
	return "Verify your new Marbelle email address"
}

func (e EmailChangeVerificationEmail) TemplateName() string {
	return "email_change_verification.html"
}

// EmailChangedEmail notifies the previous address after a change.
type EmailChangedEmail struct {
	OldEmail  string
	NewEmail  string
	FirstName string
}

func (e EmailChangedEmail) Subject() string {
	return "Marbelle email address changed"
}

func (e EmailChangedEmail) TemplateName() string {
	return "email_changed.html"
}
