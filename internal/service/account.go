package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/dukerupert/marbelle/internal/auth"
	"github.com/dukerupert/marbelle/internal/domain"
	"github.com/dukerupert/marbelle/internal/email"
	"github.com/dukerupert/marbelle/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	// accountTokenLength is the number of random bytes in an emailed token.
	accountTokenLength = 32

	// DefaultAccountTokenTTL is how long verification, reset and email
	// change links stay valid.
	DefaultAccountTokenTTL = 24 * time.Hour
)

// Kinds of emailed account tokens.
const (
	tokenEmailVerification = "email_verification"
	tokenPasswordReset     = "password_reset"
	tokenEmailChange       = "email_change"
)

// TokenIssuer issues and revokes session JWTs.
type TokenIssuer interface {
	IssueTokenPair(userID uuid.UUID) (auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Revoke(ctx context.Context, userID uuid.UUID, refreshToken string) error
}

// AccountMailer delivers the account emails.
type AccountMailer interface {
	SendVerification(ctx context.Context, data email.VerificationEmail) error
	SendPasswordReset(ctx context.Context, data email.PasswordResetEmail) error
	SendEmailChangeVerification(ctx context.Context, data email.EmailChangeVerificationEmail) error
	SendEmailChanged(ctx context.Context, data email.EmailChangedEmail) error
}

// RegisterParams are the fields of a new account.
type RegisterParams struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	CompanyName string
	Phone       string
}

// ProfileUpdate is a partial profile change; nil fields are left alone.
type ProfileUpdate struct {
	Email       *string
	FirstName   *string
	LastName    *string
	Phone       *string
	CompanyName *string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Tokens auth.TokenPair
	User   *domain.User
}

// AccountService manages registration, sign-in and the signed-in user's
// profile. Emailed tokens are single use and stored hashed.
type AccountService interface {
	Register(ctx context.Context, params RegisterParams) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
	VerifyEmail(ctx context.Context, token string) error
	// ResendVerification reports whether a message was sent. Unknown
	// addresses are not an error.
	ResendVerification(ctx context.Context, email string) (bool, error)
	// RequestPasswordReset never reveals whether the address is registered.
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	RequestEmailChange(ctx context.Context, userID uuid.UUID, currentPassword, newEmail string) error
	ConfirmEmailChange(ctx context.Context, token string) (*domain.User, error)
	Profile(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	// UpdateProfile silently keeps the current email when the new one is
	// already registered to someone else.
	UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*domain.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
}

// AccountConfig configures an AccountService.
type AccountConfig struct {
	// FrontendURL is the storefront base used to build emailed links.
	FrontendURL string
	// TokenTTL defaults to DefaultAccountTokenTTL.
	TokenTTL time.Duration
	Logger   *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type accountService struct {
	store       repository.Store
	tokens      TokenIssuer
	mailer      AccountMailer
	frontendURL string
	tokenTTL    time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewAccountService creates a new AccountService instance
func NewAccountService(store repository.Store, tokens TokenIssuer, mailer AccountMailer, cfg AccountConfig) AccountService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultAccountTokenTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &accountService{
		store:       store,
		tokens:      tokens,
		mailer:      mailer,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		tokenTTL:    cfg.TokenTTL,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
}

func (s *accountService) Register(ctx context.Context, params RegisterParams) (*domain.User, error) {
	const op = "account.register"

	if err := passwordPolicy("password", params.Password); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to hash password")
	}

	address := normalizeEmail(params.Email)
	var (
		row   repository.User
		token string
	)
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		taken, err := q.EmailTaken(ctx, repository.EmailTakenParams{Email: address})
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailRegistered
		}

		row, err = q.CreateUser(ctx, repository.CreateUserParams{
			Email:        address,
			FirstName:    strings.TrimSpace(params.FirstName),
			LastName:     strings.TrimSpace(params.LastName),
			CompanyName:  strings.TrimSpace(params.CompanyName),
			Phone:        strings.TrimSpace(params.Phone),
			PasswordHash: hash,
		})
		if err != nil {
			return err
		}

		token, err = s.issueAccountToken(ctx, q, row.ID, tokenEmailVerification, "")
		return err
	})
	if err != nil {
		if errors.Is(err, ErrEmailRegistered) || repository.IsUniqueViolation(err, "") {
			return nil, ErrEmailRegistered
		}
		return nil, domain.Internal(err, op, "failed to create user")
	}

	user := auth.UserFromRow(row)
	if err := s.sendVerification(ctx, user, token); err != nil {
		return nil, domain.Internal(err, op, "failed to send verification email")
	}
	return user, nil
}

func (s *accountService) Login(ctx context.Context, address, password string) (*LoginResult, error) {
	const op = "account.login"

	row, err := s.store.GetUserByEmail(ctx, normalizeEmail(address))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, domain.Internal(err, op, "failed to get user")
	}
	if !row.IsActive {
		return nil, ErrAccountInactive
	}
	if err := auth.VerifyPassword(password, row.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	user := auth.UserFromRow(row)
	tokens, err := s.tokens.IssueTokenPair(user.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to issue tokens")
	}

	if err := s.store.UpdateLastLogin(ctx, row.ID); err != nil {
		return nil, domain.Internal(err, op, "failed to record login")
	}
	user.LastLogin = s.now()

	return &LoginResult{Tokens: tokens, User: user}, nil
}

// Logout revokes the refresh token. An empty token is a no-op.
func (s *accountService) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	const op = "account.logout"

	if refreshToken == "" {
		return nil
	}
	err := s.tokens.Revoke(ctx, userID, refreshToken)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, auth.ErrInvalidToken):
		return domain.WrapError(err, domain.EINVALID, op, "Logout failed.")
	default:
		return domain.Internal(err, op, "failed to revoke refresh token")
	}
}

func (s *accountService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	const op = "account.refresh"

	access, err := s.tokens.Refresh(ctx, refreshToken)
	if err == nil {
		return access, nil
	}
	if errors.Is(err, auth.ErrMissingToken) || errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, auth.ErrRevokedToken) || errors.Is(err, auth.ErrInactiveUser) {
		return "", domain.WrapError(err, domain.EUNAUTHORIZED, op, domain.ErrorMessage(ErrInvalidRefreshToken))
	}
	return "", domain.Internal(err, op, "failed to refresh token")
}

func (s *accountService) VerifyEmail(ctx context.Context, token string) error {
	const op = "account.verify_email"

	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		row, err := s.consumeAccountToken(ctx, q, token, tokenEmailVerification)
		if err != nil {
			return err
		}
		return q.ActivateUser(ctx, row.UserID)
	})
	if err != nil {
		if errors.Is(err, errNoAccountToken) {
			return ErrInvalidVerification
		}
		return domain.Internal(err, op, "failed to verify email")
	}
	return nil
}

func (s *accountService) ResendVerification(ctx context.Context, address string) (bool, error) {
	const op = "account.resend_verification"

	var (
		row   repository.User
		token string
	)
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		row, err = q.GetUserByEmail(ctx, normalizeEmail(address))
		if err != nil {
			return err
		}
		if row.IsActive {
			return ErrAlreadyActive
		}
		token, err = s.issueAccountToken(ctx, q, row.ID, tokenEmailVerification, "")
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	case errors.Is(err, ErrAlreadyActive):
		return false, ErrAlreadyActive
	default:
		return false, domain.Internal(err, op, "failed to issue verification token")
	}

	if err := s.sendVerification(ctx, auth.UserFromRow(row), token); err != nil {
		return false, domain.Internal(err, op, "failed to send verification email")
	}
	return true, nil
}

func (s *accountService) RequestPasswordReset(ctx context.Context, address string) error {
	const op = "account.request_password_reset"

	address = normalizeEmail(address)
	if !strings.Contains(address, "@") {
		return nil
	}

	var (
		row   repository.User
		token string
	)
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		row, err = q.GetUserByEmail(ctx, address)
		if err != nil {
			return err
		}
		if !row.IsActive {
			return pgx.ErrNoRows
		}
		token, err = s.issueAccountToken(ctx, q, row.ID, tokenPasswordReset, "")
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return domain.Internal(err, op, "failed to issue reset token")
	}

	err = s.mailer.SendPasswordReset(ctx, email.PasswordResetEmail{
		Email:     row.Email,
		FirstName: row.FirstName,
		ResetURL:  s.link("/password-reset", token),
		ExpiresAt: s.now().Add(s.tokenTTL),
	})
	if err != nil {
		return domain.Internal(err, op, "failed to send password reset email")
	}
	return nil
}

func (s *accountService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	const op = "account.confirm_password_reset"

	if err := passwordPolicy("new_password", newPassword); err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return domain.Internal(err, op, "failed to hash password")
	}

	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		row, err := s.consumeAccountToken(ctx, q, token, tokenPasswordReset)
		if err != nil {
			return err
		}
		return q.UpdateUserPassword(ctx, repository.UpdateUserPasswordParams{
			ID:           row.UserID,
			PasswordHash: hash,
		})
	})
	if err != nil {
		if errors.Is(err, errNoAccountToken) {
			return ErrInvalidResetToken
		}
		return domain.Internal(err, op, "failed to reset password")
	}
	return nil
}

func (s *accountService) RequestEmailChange(ctx context.Context, userID uuid.UUID, currentPassword, newEmail string) error {
	const op = "account.request_email_change"

	newEmail = normalizeEmail(newEmail)

	var (
		row   repository.User
		token string
	)
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		row, err = q.GetUserForUpdate(ctx, repository.UUID(userID))
		if err != nil {
			return err
		}
		if auth.VerifyPassword(currentPassword, row.PasswordHash) != nil {
			return ErrIncorrectPassword
		}
		if strings.EqualFold(row.Email, newEmail) {
			return ErrSameEmail
		}
		taken, err := q.EmailTaken(ctx, repository.EmailTakenParams{Email: newEmail})
		if err != nil {
			return err
		}
		if taken {
			return ErrNewEmailTaken
		}
		token, err = s.issueAccountToken(ctx, q, row.ID, tokenEmailChange, newEmail)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, pgx.ErrNoRows):
		return ErrUserNotFound
	case errors.Is(err, ErrIncorrectPassword):
		return ErrIncorrectPassword
	case errors.Is(err, ErrSameEmail):
		return ErrSameEmail
	case errors.Is(err, ErrNewEmailTaken):
		return ErrNewEmailTaken
	default:
		return domain.Internal(err, op, "failed to issue email change token")
	}

	err = s.mailer.SendEmailChangeVerification(ctx, email.EmailChangeVerificationEmail{
		NewEmail:   newEmail,
		FirstName:  row.FirstName,
		ConfirmURL: s.link("/confirm-email-change", token),
		ExpiresAt:  s.now().Add(s.tokenTTL),
	})
	if err != nil {
		return domain.Internal(err, op, "failed to send email change verification")
	}
	return nil
}

// ConfirmEmailChange switches the account to the new address, then tells
// the old address. A failed notification is logged, not returned, because
// the change has already been committed.
func (s *accountService) ConfirmEmailChange(ctx context.Context, token string) (*domain.User, error) {
	const op = "account.confirm_email_change"

	var (
		oldEmail string
		row      repository.User
	)
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		tok, err := s.consumeAccountToken(ctx, q, token, tokenEmailChange)
		if err != nil {
			return err
		}
		row, err = q.GetUserForUpdate(ctx, tok.UserID)
		if err != nil {
			return err
		}
		taken, err := q.EmailTaken(ctx, repository.EmailTakenParams{Email: tok.NewEmail, ExcludeID: row.ID})
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailChangeConflict
		}
		if err := q.UpdateUserEmail(ctx, repository.UpdateUserEmailParams{ID: row.ID, Email: tok.NewEmail}); err != nil {
			return err
		}
		oldEmail = row.Email
		row.Email = tok.NewEmail
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, errNoAccountToken):
		return nil, ErrInvalidChangeToken
	case errors.Is(err, ErrEmailChangeConflict):
		return nil, ErrEmailChangeConflict
	default:
		return nil, domain.Internal(err, op, "failed to change email")
	}

	err = s.mailer.SendEmailChanged(ctx, email.EmailChangedEmail{
		OldEmail:  oldEmail,
		NewEmail:  row.Email,
		FirstName: row.FirstName,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to notify previous email address",
			"error", err,
			"user_id", repository.FromUUID(row.ID).String(),
		)
	}

	return auth.UserFromRow(row), nil
}

func (s *accountService) Profile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	row, err := s.store.GetActiveUser(ctx, repository.UUID(userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, domain.Internal(err, "account.profile", "failed to get user")
	}
	return auth.UserFromRow(row), nil
}

func (s *accountService) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*domain.User, error) {
	const op = "account.update_profile"

	var row repository.User
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		current, err := q.GetUserForUpdate(ctx, repository.UUID(userID))
		if err != nil {
			return err
		}

		params := repository.UpdateUserProfileParams{
			ID:          current.ID,
			Email:       current.Email,
			FirstName:   pick(update.FirstName, current.FirstName),
			LastName:    pick(update.LastName, current.LastName),
			Phone:       pick(update.Phone, current.Phone),
			CompanyName: pick(update.CompanyName, current.CompanyName),
		}
		if update.Email != nil {
			next := normalizeEmail(*update.Email)
			if next != "" && !strings.EqualFold(next, current.Email) {
				taken, err := q.EmailTaken(ctx, repository.EmailTakenParams{Email: next, ExcludeID: current.ID})
				if err != nil {
					return err
				}
				if !taken {
					params.Email = next
				}
			}
		}

		row, err = q.UpdateUserProfile(ctx, params)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, domain.Internal(err, op, "failed to update profile")
	}
	return auth.UserFromRow(row), nil
}

func (s *accountService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	const op = "account.change_password"

	if err := passwordPolicy("new_password", newPassword); err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return domain.Internal(err, op, "failed to hash password")
	}

	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		row, err := q.GetUserForUpdate(ctx, repository.UUID(userID))
		if err != nil {
			return err
		}
		if auth.VerifyPassword(currentPassword, row.PasswordHash) != nil {
			return ErrIncorrectPassword
		}
		return q.UpdateUserPassword(ctx, repository.UpdateUserPasswordParams{ID: row.ID, PasswordHash: hash})
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrUserNotFound
	case errors.Is(err, ErrIncorrectPassword):
		return ErrIncorrectPassword
	default:
		return domain.Internal(err, op, "failed to change password")
	}
}

var errNoAccountToken = errors.New("account token not found")

// issueAccountToken replaces any live token of the same kind and returns
// the raw value to email. Only its hash is stored.
func (s *accountService) issueAccountToken(ctx context.Context, q repository.Querier, userID pgtype.UUID, kind, newEmail string) (string, error) {
	raw, err := generateToken()
	if err != nil {
		return "", err
	}
	if _, err := q.InvalidateAccountTokens(ctx, repository.InvalidateAccountTokensParams{UserID: userID, Kind: kind}); err != nil {
		return "", fmt.Errorf("failed to invalidate tokens: %w", err)
	}
	err = q.CreateAccountToken(ctx, repository.CreateAccountTokenParams{
		UserID:    userID,
		Kind:      kind,
		TokenHash: hashToken(raw),
		NewEmail:  newEmail,
		ExpiresAt: repository.Timestamptz(s.now().Add(s.tokenTTL)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	return raw, nil
}

// consumeAccountToken locks a live token and marks every token of its kind
// for the user as used.
func (s *accountService) consumeAccountToken(ctx context.Context, q repository.Querier, raw, kind string) (repository.AccountToken, error) {
	if raw == "" {
		return repository.AccountToken{}, errNoAccountToken
	}
	row, err := q.GetLiveAccountTokenForUpdate(ctx, repository.GetLiveAccountTokenForUpdateParams{
		TokenHash: hashToken(raw),
		Kind:      kind,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.AccountToken{}, errNoAccountToken
		}
		return repository.AccountToken{}, err
	}
	if _, err := q.InvalidateAccountTokens(ctx, repository.InvalidateAccountTokensParams{UserID: row.UserID, Kind: kind}); err != nil {
		return repository.AccountToken{}, err
	}
	return row, nil
}

func (s *accountService) sendVerification(ctx context.Context, user *domain.User, token string) error {
	return s.mailer.SendVerification(ctx, email.VerificationEmail{
		Email:     user.Email,
		FirstName: user.FirstName,
		VerifyURL: s.link("/verify-email", token),
		ExpiresAt: s.now().Add(s.tokenTTL),
	})
}

func (s *accountService) link(path, token string) string {
	return s.frontendURL + path + "?token=" + url.QueryEscape(token)
}

// passwordPolicy reports a policy violation against field.
func passwordPolicy(field, password string) error {
	err := auth.ValidatePassword(password)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, auth.ErrPasswordTooShort):
		return domain.NewValidationError("", field, fmt.Sprintf("This password is too short. It must contain at least %d characters.", auth.MinPasswordLength))
	case errors.Is(err, auth.ErrPasswordTooLong):
		return domain.NewValidationError("", field, fmt.Sprintf("This password is too long. It must contain at most %d characters.", auth.MaxPasswordLength))
	case errors.Is(err, auth.ErrPasswordNumeric):
		return domain.NewValidationError("", field, "This password is entirely numeric.")
	default:
		return domain.NewValidationError("", field, "This password is not allowed.")
	}
}

func normalizeEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func pick(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return strings.TrimSpace(*v)
}

// generateToken creates a cryptographically secure random token
func generateToken() (string, error) {
	b := make([]byte, accountTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// hashToken creates a SHA-256 hash of a token for storage
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
