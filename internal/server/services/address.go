package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
)

type AddressInput struct {
	AddressType   models.AddressType `json:"address_type" validate:"omitempty,oneof=home work other"`
	StreetAddress string             `json:"street_address" validate:"required,max=255"`
	City          string             `json:"city" validate:"required,max=100"`
	State         string             `json:"state" validate:"required,max=100"`
	PostalCode    string             `json:"postal_code" validate:"required,max=20"`
	Country       string             `json:"country" validate:"required,max=100"`
	IsDefault     bool               `json:"is_default"`
}

// AddressService manages the postal addresses of a user and keeps at most
// one of them marked as default.
//
// Every mutation locks the owner's users row first, so concurrent writers
// for the same user are serialized and the default flag cannot be set on
// two rows at once.
type AddressService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewAddressService(db *sql.DB, m repomanager.RepositoryManager) *AddressService {
	return &AddressService{db: db, repomanager: m}
}

func (s *AddressService) List(ctx context.Context, userID string) ([]*models.Address, error) {
	return s.repomanager.Addresses(s.db).ListByUser(ctx, userID)
}

func (s *AddressService) Get(ctx context.Context, userID, id string) (*models.Address, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.repomanager.Addresses(s.db).Get(ctx, userID, id)
}

// Create adds an address. The first address of a user always becomes the
// default one; a new default address clears the flag on the others.
func (s *AddressService) Create(ctx context.Context, userID string, in AddressInput) (*models.Address, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	a := newAddress(userID, in)

	err := s.withUserLock(ctx, userID, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Addresses(tx)

		if a.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
		} else {
			n, err := repo.CountByUser(ctx, userID)
			if err != nil {
				return err
			}
			a.IsDefault = n == 0
		}

		_, err := repo.Create(ctx, a)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Update replaces the address fields. Clearing IsDefault is allowed and
// leaves the user without a default address.
func (s *AddressService) Update(ctx context.Context, userID, id string, in AddressInput) (*models.Address, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var a *models.Address
	err := s.withUserLock(ctx, userID, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Addresses(tx)

		existing, err := repo.Get(ctx, userID, id)
		if err != nil {
			return err
		}

		a = newAddress(userID, in)
		a.ID = existing.ID
		a.CreatedAt = existing.CreatedAt

		if a.IsDefault && !existing.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
		}
		return repo.Update(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes the address. When it was the default one, the oldest
// remaining address takes over.
func (s *AddressService) Delete(ctx context.Context, userID, id string) error {
	if err := checkID(id); err != nil {
		return err
	}

	return s.withUserLock(ctx, userID, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Addresses(tx)

		wasDefault, err := repo.Delete(ctx, userID, id)
		if err != nil {
			return err
		}
		if wasDefault {
			return repo.PromoteOldest(ctx, userID)
		}
		return nil
	})
}

// SetDefault marks the address as the user's default one.
func (s *AddressService) SetDefault(ctx context.Context, userID, id string) (*models.Address, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	var a *models.Address
	err := s.withUserLock(ctx, userID, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Addresses(tx)

		var err error
		a, err = repo.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		if a.IsDefault {
			return nil
		}

		if err := repo.ClearDefault(ctx, userID); err != nil {
			return err
		}
		if err := repo.SetDefault(ctx, userID, id); err != nil {
			return err
		}
		a.IsDefault = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AddressService) withUserLock(ctx context.Context, userID string, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockForUpdate(ctx, userID); err != nil {
			return err
		}
		return fn(ctx, tx)
	})
}

func newAddress(userID string, in AddressInput) *models.Address {
	t := in.AddressType
	if t == "" {
		t = models.AddressHome
	}
	return &models.Address{
		UserID:        userID,
		AddressType:   t,
		StreetAddress: in.StreetAddress,
		City:          in.City,
		State:         in.State,
		PostalCode:    in.PostalCode,
		Country:       in.Country,
		IsDefault:     in.IsDefault,
	}
}
