package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/cryptox"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/addresses"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/users"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	cryptox.PasswordCost = bcrypt.MinCost
}

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// --- users ---

type fakeUsersRepo struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	err     error
	locked  []string
	lockErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}}
}

func (f *fakeUsersRepo) add(u *models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	cp := *u
	f.byID[u.ID] = &cp
	return u
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorConflict
		}
	}
	u.CreatedAt = time.Now()
	return f.add(u), nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (f *fakeUsersRepo) UpdateProfile(ctx context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.byID[u.ID]
	if !ok {
		return common.ErrorNotFound
	}
	existing.FirstName, existing.LastName, existing.PhoneNumber = u.FirstName, u.LastName, u.PhoneNumber
	return nil
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, id string, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	existing.PasswordHash = hash
	return nil
}

func (f *fakeUsersRepo) LockForUpdate(ctx context.Context, id string) error {
	if f.lockErr != nil {
		return f.lockErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	f.locked = append(f.locked, id)
	return nil
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	tokens    map[string]*models.RefreshToken
	findErr   error
	createErr error
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return t, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	if _, ok := f.tokens[token]; !ok {
		return common.ErrorNotFound
	}
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteByUser(ctx context.Context, userID string) error {
	for k, t := range f.tokens {
		if t.UserID == userID {
			delete(f.tokens, k)
		}
	}
	return nil
}

// --- addresses ---

type fakeAddressesRepo struct {
	rows  []*models.Address
	clock time.Time
}

func newFakeAddressesRepo() *fakeAddressesRepo {
	return &fakeAddressesRepo{clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeAddressesRepo) ListByUser(ctx context.Context, userID string) ([]*models.Address, error) {
	out := make([]*models.Address, 0)
	for _, a := range f.rows {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeAddressesRepo) find(userID, id string) (int, bool) {
	for i, a := range f.rows {
		if a.ID == id && a.UserID == userID {
			return i, true
		}
	}
	return -1, false
}

func (f *fakeAddressesRepo) Get(ctx context.Context, userID, id string) (*models.Address, error) {
	i, ok := f.find(userID, id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *f.rows[i]
	return &cp, nil
}

func (f *fakeAddressesRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	for _, a := range f.rows {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeAddressesRepo) checkOneDefault(userID string) error {
	n := 0
	for _, a := range f.rows {
		if a.UserID == userID && a.IsDefault {
			n++
		}
	}
	if n > 1 {
		return errors.New("duplicate key value violates unique constraint \"addresses_one_default\"")
	}
	return nil
}

func (f *fakeAddressesRepo) Create(ctx context.Context, a *models.Address) (*models.Address, error) {
	f.clock = f.clock.Add(time.Minute)
	a.ID = uuid.NewString()
	a.CreatedAt = f.clock
	cp := *a
	f.rows = append(f.rows, &cp)
	if err := f.checkOneDefault(a.UserID); err != nil {
		f.rows = f.rows[:len(f.rows)-1]
		return nil, err
	}
	return a, nil
}

func (f *fakeAddressesRepo) Update(ctx context.Context, a *models.Address) error {
	i, ok := f.find(a.UserID, a.ID)
	if !ok {
		return common.ErrorNotFound
	}
	prev := f.rows[i]
	cp := *a
	cp.CreatedAt = prev.CreatedAt
	f.rows[i] = &cp
	if err := f.checkOneDefault(a.UserID); err != nil {
		f.rows[i] = prev
		return err
	}
	return nil
}

func (f *fakeAddressesRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	i, ok := f.find(userID, id)
	if !ok {
		return false, common.ErrorNotFound
	}
	wasDefault := f.rows[i].IsDefault
	f.rows = append(f.rows[:i], f.rows[i+1:]...)
	return wasDefault, nil
}

func (f *fakeAddressesRepo) ClearDefault(ctx context.Context, userID string) error {
	for _, a := range f.rows {
		if a.UserID == userID {
			a.IsDefault = false
		}
	}
	return nil
}

func (f *fakeAddressesRepo) SetDefault(ctx context.Context, userID, id string) error {
	i, ok := f.find(userID, id)
	if !ok {
		return common.ErrorNotFound
	}
	f.rows[i].IsDefault = true
	return f.checkOneDefault(userID)
}

func (f *fakeAddressesRepo) PromoteOldest(ctx context.Context, userID string) error {
	list, _ := f.ListByUser(ctx, userID)
	if len(list) == 0 {
		return nil
	}
	return f.SetDefault(ctx, userID, list[0].ID)
}

// --- files ---

type fakeFilesRepo struct {
	rows      []*models.File
	createErr error
	deleteErr error
	countErr  error
	emails    map[string]string
}

func newFakeFilesRepo() *fakeFilesRepo {
	return &fakeFilesRepo{emails: map[string]string{}}
}

func (f *fakeFilesRepo) Create(ctx context.Context, file *models.File) (*models.File, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	file.ID = uuid.NewString()
	if file.UploadDate.IsZero() {
		file.UploadDate = time.Now()
	}
	cp := *file
	f.rows = append(f.rows, &cp)
	return file, nil
}

func (f *fakeFilesRepo) ListByUser(ctx context.Context, userID string) ([]*models.File, error) {
	out := make([]*models.File, 0)
	for _, r := range f.rows {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadDate.After(out[j].UploadDate) })
	return out, nil
}

func (f *fakeFilesRepo) Get(ctx context.Context, userID, id string) (*models.File, error) {
	for _, r := range f.rows {
		if r.ID == id && r.UserID == userID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFilesRepo) Delete(ctx context.Context, userID, id string) (string, error) {
	if f.deleteErr != nil {
		return "", f.deleteErr
	}
	for i, r := range f.rows {
		if r.ID == id && r.UserID == userID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return r.StorageKey, nil
		}
	}
	return "", common.ErrorNotFound
}

func (f *fakeFilesRepo) CountByTypeForUser(ctx context.Context, userID string) (map[models.FileType]int64, error) {
	if f.countErr != nil {
		return nil, f.countErr
	}
	out := make(map[models.FileType]int64)
	for _, r := range f.rows {
		if r.UserID == userID {
			out[r.FileType]++
		}
	}
	return out, nil
}

func (f *fakeFilesRepo) CountByType(ctx context.Context) (map[models.FileType]int64, error) {
	if f.countErr != nil {
		return nil, f.countErr
	}
	out := make(map[models.FileType]int64)
	for _, r := range f.rows {
		out[r.FileType]++
	}
	return out, nil
}

func (f *fakeFilesRepo) CountPerUser(ctx context.Context) (map[string]int64, error) {
	if f.countErr != nil {
		return nil, f.countErr
	}
	out := make(map[string]int64)
	for _, r := range f.rows {
		out[f.emails[r.UserID]]++
	}
	return out, nil
}

// --- manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	a *fakeAddressesRepo
	f *fakeFilesRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u: newFakeUsersRepo(),
		r: newFakeRefreshRepo(),
		a: newFakeAddressesRepo(),
		f: newFakeFilesRepo(),
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Addresses(db dbx.DBTX) addresses.Repository         { return m.a }
func (m *fakeRepoManager) Files(db dbx.DBTX) files.Repository                 { return m.f }

// --- storage ---

type memStorage struct {
	objects   map[string][]byte
	putErr    error
	deleteErr error
	deleted   []string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	if m.putErr != nil {
		return 0, m.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.objects[key] = b
	return int64(len(b)), nil
}

func (m *memStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	b, ok := m.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memStorage) Delete(ctx context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, key)
	delete(m.objects, key)
	return nil
}

type presignStorage struct {
	*memStorage
	ttl time.Duration
}

func (p *presignStorage) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	p.ttl = ttl
	return "https://s3.example/" + key, nil
}
