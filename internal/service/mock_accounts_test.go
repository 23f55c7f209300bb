package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/dukerupert/marbelle/internal/auth"
	"github.com/dukerupert/marbelle/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
)

var errOnePrimary = errors.New("duplicate key value violates unique constraint \"addresses_one_primary_idx\"")

// bcrypt is slow on purpose; hash each test password once.
var passwordHashes sync.Map

func hashedPassword(t *testing.T, password string) string {
	t.Helper()
	if h, ok := passwordHashes.Load(password); ok {
		return h.(string)
	}
	h, err := auth.HashPassword(password)
	require.NoError(t, err)
	passwordHashes.Store(password, h)
	return h
}

func (s *mockStore) addUser(t *testing.T, email, password string, active bool) uuid.UUID {
	t.Helper()
	hash := hashedPassword(t, password)

	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.users = append(s.users, repository.User{
		ID:           repository.UUID(id),
		Email:        email,
		FirstName:    "Ana",
		LastName:     "Marin",
		IsActive:     active,
		PasswordHash: hash,
		CreatedAt:    s.now(),
		UpdatedAt:    s.now(),
	})
	return id
}

func (s *mockStore) user(id uuid.UUID) repository.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == repository.UUID(id) {
			return u
		}
	}
	return repository.User{}
}

func (s *mockStore) addAddress(userID uuid.UUID, label string, primary bool) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.addresses = append(s.addresses, repository.Address{
		ID:           repository.UUID(id),
		UserID:       repository.UUID(userID),
		Label:        label,
		FirstName:    "Ana",
		LastName:     "Marin",
		AddressLine1: "1 Quarry Road",
		City:         "Carrara",
		State:        "MS",
		PostalCode:   "54033",
		Country:      "Italy",
		IsPrimary:    primary,
		CreatedAt:    s.now(),
		UpdatedAt:    s.now(),
	})
	return id
}

func (s *mockStore) addressByID(id uuid.UUID) (repository.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.addresses {
		if a.ID == repository.UUID(id) {
			return a, true
		}
	}
	return repository.Address{}, false
}

func (s *mockStore) primaryCount(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.addresses {
		if a.UserID == repository.UUID(userID) && a.IsPrimary {
			n++
		}
	}
	return n
}

// liveTokens counts unused tokens of kind for the user.
func (s *mockStore) liveTokens(userID uuid.UUID, kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, tok := range s.tokens {
		if tok.UserID == repository.UUID(userID) && tok.Kind == kind && !tok.UsedAt.Valid {
			n++
		}
	}
	return n
}

// Users

func (s *mockStore) ActivateUser(ctx context.Context, id pgtype.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ActivateUser"); err != nil {
		return err
	}
	for i := range s.users {
		if s.users[i].ID == id {
			s.users[i].IsActive = true
			s.users[i].UpdatedAt = s.now()
		}
	}
	return nil
}

func (s *mockStore) CreateUser(ctx context.Context, arg repository.CreateUserParams) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateUser"); err != nil {
		return repository.User{}, err
	}
	u := repository.User{
		ID:           repository.UUID(uuid.New()),
		Email:        arg.Email,
		FirstName:    arg.FirstName,
		LastName:     arg.LastName,
		CompanyName:  arg.CompanyName,
		Phone:        arg.Phone,
		PasswordHash: arg.PasswordHash,
		CreatedAt:    s.now(),
		UpdatedAt:    s.now(),
	}
	s.users = append(s.users, u)
	return u, nil
}

func (s *mockStore) EmailTaken(ctx context.Context, arg repository.EmailTakenParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("EmailTaken"); err != nil {
		return false, err
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, arg.Email) && (!arg.ExcludeID.Valid || u.ID != arg.ExcludeID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *mockStore) GetUserByEmail(ctx context.Context, email string) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetUserByEmail"); err != nil {
		return repository.User{}, err
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return repository.User{}, pgx.ErrNoRows
}

func (s *mockStore) GetUserForUpdate(ctx context.Context, id pgtype.UUID) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetUserForUpdate"); err != nil {
		return repository.User{}, err
	}
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return repository.User{}, pgx.ErrNoRows
}

func (s *mockStore) UpdateLastLogin(ctx context.Context, id pgtype.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateLastLogin"); err != nil {
		return err
	}
	for i := range s.users {
		if s.users[i].ID == id {
			s.users[i].LastLogin = s.now()
		}
	}
	return nil
}

func (s *mockStore) UpdateUserEmail(ctx context.Context, arg repository.UpdateUserEmailParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateUserEmail"); err != nil {
		return err
	}
	for i := range s.users {
		if s.users[i].ID == arg.ID {
			s.users[i].Email = arg.Email
			s.users[i].UpdatedAt = s.now()
		}
	}
	return nil
}

func (s *mockStore) UpdateUserPassword(ctx context.Context, arg repository.UpdateUserPasswordParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateUserPassword"); err != nil {
		return err
	}
	for i := range s.users {
		if s.users[i].ID == arg.ID {
			s.users[i].PasswordHash = arg.PasswordHash
			s.users[i].UpdatedAt = s.now()
		}
	}
	return nil
}

func (s *mockStore) UpdateUserProfile(ctx context.Context, arg repository.UpdateUserProfileParams) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateUserProfile"); err != nil {
		return repository.User{}, err
	}
	for i := range s.users {
		if s.users[i].ID == arg.ID {
			u := &s.users[i]
			u.Email = arg.Email
			u.FirstName = arg.FirstName
			u.LastName = arg.LastName
			u.Phone = arg.Phone
			u.CompanyName = arg.CompanyName
			u.UpdatedAt = s.now()
			return *u, nil
		}
	}
	return repository.User{}, pgx.ErrNoRows
}

// Account tokens

func (s *mockStore) CreateAccountToken(ctx context.Context, arg repository.CreateAccountTokenParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateAccountToken"); err != nil {
		return err
	}
	s.tokens = append(s.tokens, repository.AccountToken{
		ID:        repository.UUID(uuid.New()),
		UserID:    arg.UserID,
		Kind:      arg.Kind,
		TokenHash: arg.TokenHash,
		NewEmail:  arg.NewEmail,
		ExpiresAt: arg.ExpiresAt,
		CreatedAt: s.now(),
	})
	return nil
}

func (s *mockStore) GetLiveAccountTokenForUpdate(ctx context.Context, arg repository.GetLiveAccountTokenForUpdateParams) (repository.AccountToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetLiveAccountTokenForUpdate"); err != nil {
		return repository.AccountToken{}, err
	}
	for _, tok := range s.tokens {
		if tok.TokenHash == arg.TokenHash && tok.Kind == arg.Kind &&
			!tok.UsedAt.Valid && tok.ExpiresAt.Time.After(s.clock) {
			return tok, nil
		}
	}
	return repository.AccountToken{}, pgx.ErrNoRows
}

func (s *mockStore) InvalidateAccountTokens(ctx context.Context, arg repository.InvalidateAccountTokensParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InvalidateAccountTokens"); err != nil {
		return 0, err
	}
	var n int64
	for i := range s.tokens {
		tok := &s.tokens[i]
		if tok.UserID == arg.UserID && tok.Kind == arg.Kind && !tok.UsedAt.Valid {
			tok.UsedAt = s.now()
			n++
		}
	}
	return n, nil
}

// Addresses

func (s *mockStore) AddressLabelTaken(ctx context.Context, arg repository.AddressLabelTakenParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AddressLabelTaken"); err != nil {
		return false, err
	}
	for _, a := range s.addresses {
		if a.UserID == arg.UserID && a.Label == arg.Label && (!arg.ExcludeID.Valid || a.ID != arg.ExcludeID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *mockStore) ClearPrimaryAddress(ctx context.Context, userID pgtype.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ClearPrimaryAddress"); err != nil {
		return err
	}
	for i := range s.addresses {
		if s.addresses[i].UserID == userID && s.addresses[i].IsPrimary {
			s.addresses[i].IsPrimary = false
			s.addresses[i].UpdatedAt = s.now()
		}
	}
	return nil
}

func (s *mockStore) CountAddresses(ctx context.Context, userID pgtype.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CountAddresses"); err != nil {
		return 0, err
	}
	var n int64
	for _, a := range s.addresses {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

// checkPrimary mirrors addresses_one_primary_idx.
func (s *mockStore) checkPrimary(userID, except pgtype.UUID) error {
	for _, a := range s.addresses {
		if a.UserID == userID && a.IsPrimary && a.ID != except {
			return errOnePrimary
		}
	}
	return nil
}

func (s *mockStore) CreateAddress(ctx context.Context, arg repository.CreateAddressParams) (repository.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateAddress"); err != nil {
		return repository.Address{}, err
	}
	if arg.IsPrimary {
		if err := s.checkPrimary(arg.UserID, pgtype.UUID{}); err != nil {
			return repository.Address{}, err
		}
	}
	a := repository.Address{
		ID:           repository.UUID(uuid.New()),
		UserID:       arg.UserID,
		Label:        arg.Label,
		FirstName:    arg.FirstName,
		LastName:     arg.LastName,
		Company:      arg.Company,
		AddressLine1: arg.AddressLine1,
		AddressLine2: arg.AddressLine2,
		City:         arg.City,
		State:        arg.State,
		PostalCode:   arg.PostalCode,
		Country:      arg.Country,
		Phone:        arg.Phone,
		IsPrimary:    arg.IsPrimary,
		CreatedAt:    s.now(),
		UpdatedAt:    s.now(),
	}
	s.addresses = append(s.addresses, a)
	return a, nil
}

func (s *mockStore) DeleteAddress(ctx context.Context, arg repository.DeleteAddressParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteAddress"); err != nil {
		return 0, err
	}
	before := len(s.addresses)
	s.addresses = slices.DeleteFunc(s.addresses, func(a repository.Address) bool {
		return a.ID == arg.ID && a.UserID == arg.UserID
	})
	return int64(before - len(s.addresses)), nil
}

func (s *mockStore) GetAddress(ctx context.Context, arg repository.GetAddressParams) (repository.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetAddress"); err != nil {
		return repository.Address{}, err
	}
	for _, a := range s.addresses {
		if a.ID == arg.ID && a.UserID == arg.UserID {
			return a, nil
		}
	}
	return repository.Address{}, pgx.ErrNoRows
}

func (s *mockStore) ListAddresses(ctx context.Context, userID pgtype.UUID) ([]repository.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListAddresses"); err != nil {
		return nil, err
	}
	var out []repository.Address
	for _, a := range s.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b repository.Address) int {
		switch {
		case a.IsPrimary && !b.IsPrimary:
			return -1
		case b.IsPrimary && !a.IsPrimary:
			return 1
		}
		return a.CreatedAt.Time.Compare(b.CreatedAt.Time)
	})
	return out, nil
}

func (s *mockStore) SetPrimaryAddress(ctx context.Context, arg repository.SetPrimaryAddressParams) (repository.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SetPrimaryAddress"); err != nil {
		return repository.Address{}, err
	}
	if err := s.checkPrimary(arg.UserID, arg.ID); err != nil {
		return repository.Address{}, err
	}
	for i := range s.addresses {
		a := &s.addresses[i]
		if a.ID == arg.ID && a.UserID == arg.UserID {
			a.IsPrimary = true
			a.UpdatedAt = s.now()
			return *a, nil
		}
	}
	return repository.Address{}, pgx.ErrNoRows
}

func (s *mockStore) UpdateAddress(ctx context.Context, arg repository.UpdateAddressParams) (repository.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateAddress"); err != nil {
		return repository.Address{}, err
	}
	if arg.IsPrimary {
		if err := s.checkPrimary(arg.UserID, arg.ID); err != nil {
			return repository.Address{}, err
		}
	}
	for i := range s.addresses {
		a := &s.addresses[i]
		if a.ID == arg.ID && a.UserID == arg.UserID {
			a.Label = arg.Label
			a.FirstName = arg.FirstName
			a.LastName = arg.LastName
			a.Company = arg.Company
			a.AddressLine1 = arg.AddressLine1
			a.AddressLine2 = arg.AddressLine2
			a.City = arg.City
			a.State = arg.State
			a.PostalCode = arg.PostalCode
			a.Country = arg.Country
			a.Phone = arg.Phone
			a.IsPrimary = arg.IsPrimary
			a.UpdatedAt = s.now()
			return *a, nil
		}
	}
	return repository.Address{}, pgx.ErrNoRows
}
