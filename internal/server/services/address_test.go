package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAddressService(t *testing.T) (*AddressService, *fakeRepoManager, sqlmock.Sqlmock, string) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	rm := newFakeRepoManager()
	u := rm.u.add(&models.User{Email: "a@b.io", IsActive: true})
	return NewAddressService(db, rm), rm, mock, u.ID
}

func addrInput(city string, def bool) AddressInput {
	return AddressInput{
		StreetAddress: "1 Main St",
		City:          city,
		State:         "LV",
		PostalCode:    "1010",
		Country:       "Latvia",
		IsDefault:     def,
	}
}

func defaults(t *testing.T, s *AddressService, userID string) []string {
	t.Helper()
	list, err := s.List(context.Background(), userID)
	require.NoError(t, err)
	var out []string
	for _, a := range list {
		if a.IsDefault {
			out = append(out, a.City)
		}
	}
	return out
}

func TestAddressCreate_FirstBecomesDefault(t *testing.T) {
	s, rm, mock, userID := newAddressService(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	a, err := s.Create(context.Background(), userID, addrInput("Riga", false))
	require.NoError(t, err)
	assert.True(t, a.IsDefault)
	assert.Equal(t, models.AddressHome, a.AddressType)

	b, err := s.Create(context.Background(), userID, addrInput("Oslo", false))
	require.NoError(t, err)
	assert.False(t, b.IsDefault)

	assert.Equal(t, []string{"Riga"}, defaults(t, s, userID))
	assert.Equal(t, []string{userID, userID}, rm.u.locked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressCreate_NewDefaultClearsOthers(t *testing.T) {
	s, _, mock, userID := newAddressService(t)
	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	_, err := s.Create(context.Background(), userID, addrInput("Riga", true))
	require.NoError(t, err)
	_, err = s.Create(context.Background(), userID, addrInput("Oslo", false))
	require.NoError(t, err)
	_, err = s.Create(context.Background(), userID, addrInput("Tallinn", true))
	require.NoError(t, err)

	assert.Equal(t, []string{"Tallinn"}, defaults(t, s, userID))
}

func TestAddressCreate_ValidationAndLockErrors(t *testing.T) {
	s, rm, mock, userID := newAddressService(t)

	in := addrInput("", false)
	in.AddressType = "castle"
	_, err := s.Create(context.Background(), userID, in)
	require.ErrorIs(t, err, common.ErrorValidation)
	fields := err.(*common.ValidationError).Fields
	assert.Contains(t, fields, "city")
	assert.Contains(t, fields, "address_type")

	rm.u.lockErr = errors.New("lock timeout")
	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = s.Create(context.Background(), userID, addrInput("Riga", false))
	assert.EqualError(t, err, "lock timeout")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressUpdate(t *testing.T) {
	s, _, mock, userID := newAddressService(t)
	for i := 0; i < 4; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	_, err := s.Create(context.Background(), userID, addrInput("Riga", false))
	require.NoError(t, err)
	second, err := s.Create(context.Background(), userID, addrInput("Oslo", false))
	require.NoError(t, err)

	in := addrInput("Bergen", true)
	in.AddressType = models.AddressWork
	got, err := s.Update(context.Background(), userID, second.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Bergen", got.City)
	assert.Equal(t, models.AddressWork, got.AddressType)
	assert.Equal(t, second.CreatedAt, got.CreatedAt)
	assert.Equal(t, []string{"Bergen"}, defaults(t, s, userID))

	// clearing the flag leaves no default behind
	_, err = s.Update(context.Background(), userID, second.ID, addrInput("Bergen", false))
	require.NoError(t, err)
	assert.Empty(t, defaults(t, s, userID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressUpdate_NotFound(t *testing.T) {
	s, _, mock, userID := newAddressService(t)

	_, err := s.Update(context.Background(), userID, "not-a-uuid", addrInput("Riga", false))
	assert.ErrorIs(t, err, common.ErrorNotFound)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = s.Update(context.Background(), userID, uuid.NewString(), addrInput("Riga", false))
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressDelete_PromotesOldest(t *testing.T) {
	s, _, mock, userID := newAddressService(t)
	for i := 0; i < 4; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	_, err := s.Create(context.Background(), userID, addrInput("Riga", false))
	require.NoError(t, err)
	_, err = s.Create(context.Background(), userID, addrInput("Oslo", false))
	require.NoError(t, err)
	last, err := s.Create(context.Background(), userID, addrInput("Tallinn", true))
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), userID, last.ID))
	assert.Equal(t, []string{"Riga"}, defaults(t, s, userID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressDelete_OtherUsersAddress(t *testing.T) {
	s, rm, mock, userID := newAddressService(t)
	other := rm.u.add(&models.User{Email: "x@y.io", IsActive: true})
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	a, err := s.Create(context.Background(), userID, addrInput("Riga", false))
	require.NoError(t, err)

	err = s.Delete(context.Background(), other.ID, a.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	got, err := s.Get(context.Background(), userID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = s.Get(context.Background(), other.ID, a.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressSetDefault(t *testing.T) {
	s, _, mock, userID := newAddressService(t)
	for i := 0; i < 4; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	_, err := s.Create(context.Background(), userID, addrInput("Riga", false))
	require.NoError(t, err)
	oslo, err := s.Create(context.Background(), userID, addrInput("Oslo", false))
	require.NoError(t, err)

	got, err := s.SetDefault(context.Background(), userID, oslo.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDefault)
	assert.Equal(t, []string{"Oslo"}, defaults(t, s, userID))

	// already default: no change
	_, err = s.SetDefault(context.Background(), userID, oslo.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Oslo"}, defaults(t, s, userID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
