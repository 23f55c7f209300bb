package service

import (
	"context"
	"errors"
	"strings"

	"github.com/dukerupert/marbelle/internal/domain"
	"github.com/dukerupert/marbelle/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AddressInput holds the editable fields of an address. IsPrimary only
// ever promotes; demoting happens by promoting another address.
type AddressInput struct {
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
}

// AddressService manages a user's address book. Addresses of other users
// are reported as not found.
type AddressService interface {
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]domain.Address, error)
	GetAddress(ctx context.Context, userID uuid.UUID, addressID string) (*domain.Address, error)
	CreateAddress(ctx context.Context, userID uuid.UUID, input AddressInput) (*domain.Address, error)
	UpdateAddress(ctx context.Context, userID uuid.UUID, addressID string, input AddressInput) (*domain.Address, error)
	DeleteAddress(ctx context.Context, userID uuid.UUID, addressID string) error
	SetPrimaryAddress(ctx context.Context, userID uuid.UUID, addressID string) (*domain.Address, error)
}

type addressService struct {
	store repository.Store
}

// NewAddressService creates a new AddressService instance
func NewAddressService(store repository.Store) AddressService {
	return &addressService{store: store}
}

func (s *addressService) ListAddresses(ctx context.Context, userID uuid.UUID) ([]domain.Address, error) {
	rows, err := s.store.ListAddresses(ctx, repository.UUID(userID))
	if err != nil {
		return nil, domain.Internal(err, "address.list", "failed to list addresses")
	}
	addresses := make([]domain.Address, len(rows))
	for i, row := range rows {
		addresses[i] = addressFromRow(row)
	}
	return addresses, nil
}

func (s *addressService) GetAddress(ctx context.Context, userID uuid.UUID, addressID string) (*domain.Address, error) {
	id, err := parseID(addressID, ErrAddressNotFound)
	if err != nil {
		return nil, err
	}
	row, err := s.store.GetAddress(ctx, repository.GetAddressParams{
		ID:     repository.UUID(id),
		UserID: repository.UUID(userID),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, domain.Internal(err, "address.get", "failed to get address")
	}
	address := addressFromRow(row)
	return &address, nil
}

// CreateAddress adds an address. The user's first address is always
// primary, and a new primary address demotes the previous one.
func (s *addressService) CreateAddress(ctx context.Context, userID uuid.UUID, input AddressInput) (*domain.Address, error) {
	const op = "address.create"

	input = input.trimmed()
	var row repository.Address
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		// Serialises address book changes for the user.
		if _, err := q.GetUserForUpdate(ctx, repository.UUID(userID)); err != nil {
			return err
		}

		count, err := q.CountAddresses(ctx, repository.UUID(userID))
		if err != nil {
			return err
		}
		if count >= domain.MaxAddressesPerUser {
			return ErrAddressLimit
		}
		if err := checkLabel(ctx, q, userID, uuid.Nil, input.Label); err != nil {
			return err
		}

		primary := input.IsPrimary || count == 0
		if primary && count > 0 {
			if err := q.ClearPrimaryAddress(ctx, repository.UUID(userID)); err != nil {
				return err
			}
		}

		params := input.createParams(userID)
		params.IsPrimary = primary
		row, err = q.CreateAddress(ctx, params)
		return err
	})
	if err != nil {
		return nil, addressError(err, op, "failed to create address")
	}
	address := addressFromRow(row)
	return &address, nil
}

func (s *addressService) UpdateAddress(ctx context.Context, userID uuid.UUID, addressID string, input AddressInput) (*domain.Address, error) {
	const op = "address.update"

	id, err := parseID(addressID, ErrAddressNotFound)
	if err != nil {
		return nil, err
	}

	input = input.trimmed()
	var row repository.Address
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		if _, err := q.GetUserForUpdate(ctx, repository.UUID(userID)); err != nil {
			return err
		}
		current, err := q.GetAddress(ctx, repository.GetAddressParams{
			ID:     repository.UUID(id),
			UserID: repository.UUID(userID),
		})
		if err != nil {
			return err
		}
		if err := checkLabel(ctx, q, userID, id, input.Label); err != nil {
			return err
		}

		primary := current.IsPrimary || input.IsPrimary
		if primary && !current.IsPrimary {
			if err := q.ClearPrimaryAddress(ctx, repository.UUID(userID)); err != nil {
				return err
			}
		}

		row, err = q.UpdateAddress(ctx, repository.UpdateAddressParams{
			ID:           current.ID,
			UserID:       current.UserID,
			Label:        input.Label,
			FirstName:    input.FirstName,
			LastName:     input.LastName,
			Company:      input.Company,
			AddressLine1: input.AddressLine1,
			AddressLine2: input.AddressLine2,
			City:         input.City,
			State:        input.State,
			PostalCode:   input.PostalCode,
			Country:      input.Country,
			Phone:        input.Phone,
			IsPrimary:    primary,
		})
		return err
	})
	if err != nil {
		return nil, addressError(err, op, "failed to update address")
	}
	address := addressFromRow(row)
	return &address, nil
}

// DeleteAddress removes an address. The only address cannot be deleted,
// and deleting the primary promotes the oldest remaining one.
func (s *addressService) DeleteAddress(ctx context.Context, userID uuid.UUID, addressID string) error {
	const op = "address.delete"

	id, err := parseID(addressID, ErrAddressNotFound)
	if err != nil {
		return err
	}

	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		if _, err := q.GetUserForUpdate(ctx, repository.UUID(userID)); err != nil {
			return err
		}
		current, err := q.GetAddress(ctx, repository.GetAddressParams{
			ID:     repository.UUID(id),
			UserID: repository.UUID(userID),
		})
		if err != nil {
			return err
		}

		count, err := q.CountAddresses(ctx, repository.UUID(userID))
		if err != nil {
			return err
		}
		if count <= 1 {
			return ErrOnlyAddress
		}

		if _, err := q.DeleteAddress(ctx, repository.DeleteAddressParams{ID: current.ID, UserID: current.UserID}); err != nil {
			return err
		}
		if !current.IsPrimary {
			return nil
		}

		remaining, err := q.ListAddresses(ctx, repository.UUID(userID))
		if err != nil {
			return err
		}
		oldest := remaining[0]
		for _, a := range remaining[1:] {
			if a.CreatedAt.Time.Before(oldest.CreatedAt.Time) {
				oldest = a
			}
		}
		_, err = q.SetPrimaryAddress(ctx, repository.SetPrimaryAddressParams{ID: oldest.ID, UserID: oldest.UserID})
		return err
	})
	if err != nil {
		return addressError(err, op, "failed to delete address")
	}
	return nil
}

func (s *addressService) SetPrimaryAddress(ctx context.Context, userID uuid.UUID, addressID string) (*domain.Address, error) {
	const op = "address.set_primary"

	id, err := parseID(addressID, ErrAddressNotFound)
	if err != nil {
		return nil, err
	}

	var row repository.Address
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		if _, err := q.GetUserForUpdate(ctx, repository.UUID(userID)); err != nil {
			return err
		}
		current, err := q.GetAddress(ctx, repository.GetAddressParams{
			ID:     repository.UUID(id),
			UserID: repository.UUID(userID),
		})
		if err != nil {
			return err
		}
		if current.IsPrimary {
			row = current
			return nil
		}
		if err := q.ClearPrimaryAddress(ctx, repository.UUID(userID)); err != nil {
			return err
		}
		row, err = q.SetPrimaryAddress(ctx, repository.SetPrimaryAddressParams{ID: current.ID, UserID: current.UserID})
		return err
	})
	if err != nil {
		return nil, addressError(err, op, "failed to set primary address")
	}
	address := addressFromRow(row)
	return &address, nil
}

func checkLabel(ctx context.Context, q repository.Querier, userID, exclude uuid.UUID, label string) error {
	params := repository.AddressLabelTakenParams{UserID: repository.UUID(userID), Label: label}
	if exclude != uuid.Nil {
		params.ExcludeID = repository.UUID(exclude)
	}
	taken, err := q.AddressLabelTaken(ctx, params)
	if err != nil {
		return err
	}
	if taken {
		return ErrAddressLabelTaken
	}
	return nil
}

// addressError maps transaction failures to the address book errors.
func addressError(err error, op, message string) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrAddressNotFound
	case errors.Is(err, ErrAddressLimit):
		return ErrAddressLimit
	case errors.Is(err, ErrOnlyAddress):
		return ErrOnlyAddress
	case errors.Is(err, ErrAddressLabelTaken), repository.IsUniqueViolation(err, "addresses_user_label_key"):
		return ErrAddressLabelTaken
	}
	return domain.Internal(err, op, message)
}

func (in AddressInput) trimmed() AddressInput {
	for _, f := range []*string{
		&in.Label, &in.FirstName, &in.LastName, &in.Company, &in.AddressLine1,
		&in.AddressLine2, &in.City, &in.State, &in.PostalCode, &in.Country, &in.Phone,
	} {
		*f = strings.TrimSpace(*f)
	}
	return in
}

func (in AddressInput) createParams(userID uuid.UUID) repository.CreateAddressParams {
	return repository.CreateAddressParams{
		UserID:       repository.UUID(userID),
		Label:        in.Label,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Company:      in.Company,
		AddressLine1: in.AddressLine1,
		AddressLine2: in.AddressLine2,
		City:         in.City,
		State:        in.State,
		PostalCode:   in.PostalCode,
		Country:      in.Country,
		Phone:        in.Phone,
		IsPrimary:    in.IsPrimary,
	}
}

func addressFromRow(row repository.Address) domain.Address {
	return domain.Address{
		ID:           repository.FromUUID(row.ID),
		UserID:       repository.FromUUID(row.UserID),
		Label:        row.Label,
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		Company:      row.Company,
		AddressLine1: row.AddressLine1,
		AddressLine2: row.AddressLine2,
		City:         row.City,
		State:        row.State,
		PostalCode:   row.PostalCode,
		Country:      row.Country,
		Phone:        row.Phone,
		IsPrimary:    row.IsPrimary,
		CreatedAt:    repository.Time(row.CreatedAt),
		UpdatedAt:    repository.Time(row.UpdatedAt),
	}
}
