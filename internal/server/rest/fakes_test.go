package rest

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/services"
)

var (
	regularUser = &models.User{ID: "u1", Email: "a@b.io", IsActive: true}
	adminUser   = &models.User{ID: "u2", Email: "root@b.io", IsActive: true, IsStaff: true}
)

type fakeUsers struct {
	registerIn  services.RegisterInput
	registerOut *models.User
	registerErr error

	loginOut *services.TokenPair
	loginErr error

	refreshOut *services.TokenPair
	refreshErr error

	profileIn services.ProfileInput
	addrs     []*models.Address

	changeIn  services.ChangePasswordInput
	changeErr error

	panicOnProfile bool
}

func (f *fakeUsers) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	f.registerIn = in
	return f.registerOut, f.registerErr
}

func (f *fakeUsers) Login(ctx context.Context, email, password string) (*services.TokenPair, error) {
	return f.loginOut, f.loginErr
}

func (f *fakeUsers) RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	return f.refreshOut, f.refreshErr
}

func (f *fakeUsers) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	switch accessToken {
	case "user-token":
		return regularUser, nil
	case "admin-token":
		return adminUser, nil
	case "expired-token":
		return nil, common.ErrTokenExpired
	default:
		return nil, common.ErrInvalidToken
	}
}

func (f *fakeUsers) GetProfile(ctx context.Context, userID string) (*models.User, []*models.Address, error) {
	if f.panicOnProfile {
		panic("boom")
	}
	return regularUser, f.addrs, nil
}

func (f *fakeUsers) UpdateProfile(ctx context.Context, userID string, in services.ProfileInput) (*models.User, []*models.Address, error) {
	f.profileIn = in
	u := *regularUser
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	return &u, f.addrs, nil
}

func (f *fakeUsers) ChangePassword(ctx context.Context, userID string, in services.ChangePasswordInput) error {
	f.changeIn = in
	return f.changeErr
}

type fakeAddresses struct {
	list     []*models.Address
	byID     map[string]*models.Address
	lastIn   services.AddressInput
	deleted  []string
	defaults []string
}

func (f *fakeAddresses) List(ctx context.Context, userID string) ([]*models.Address, error) {
	return f.list, nil
}

func (f *fakeAddresses) Get(ctx context.Context, userID, id string) (*models.Address, error) {
	a, ok := f.byID[id]
	if !ok || a.UserID != userID {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAddresses) Create(ctx context.Context, userID string, in services.AddressInput) (*models.Address, error) {
	f.lastIn = in
	return &models.Address{ID: "new", UserID: userID, AddressType: in.AddressType, City: in.City, IsDefault: true}, nil
}

func (f *fakeAddresses) Update(ctx context.Context, userID, id string, in services.AddressInput) (*models.Address, error) {
	if _, err := f.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	f.lastIn = in
	return &models.Address{ID: id, UserID: userID, AddressType: in.AddressType, City: in.City, IsDefault: in.IsDefault}, nil
}

func (f *fakeAddresses) Delete(ctx context.Context, userID, id string) error {
	if _, err := f.Get(ctx, userID, id); err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAddresses) SetDefault(ctx context.Context, userID, id string) (*models.Address, error) {
	a, err := f.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	f.defaults = append(f.defaults, id)
	a.IsDefault = true
	return a, nil
}

type fakeFiles struct {
	uploadPayload  string
	uploadName     string
	uploadFilename string
	uploadBody     string
	uploadErr      error

	list    []*models.File
	files   map[string]*models.File
	content map[string]string
	deleted []string

	presignURL string
	presignErr error
}

func (f *fakeFiles) Upload(ctx context.Context, userID, payloadName string, body io.Reader, filename string) (*models.File, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	b, _ := io.ReadAll(body)
	f.uploadName, f.uploadFilename, f.uploadBody = payloadName, filename, string(b)
	name := filename
	if name == "" {
		name = payloadName
	}
	return &models.File{
		ID:       "f-new",
		UserID:   userID,
		Filename: name,
		FileType: models.ClassifyFile(payloadName),
		Size:     int64(len(b)),
	}, nil
}

func (f *fakeFiles) List(ctx context.Context, userID string) ([]*models.File, error) {
	return f.list, nil
}

func (f *fakeFiles) get(userID, id string) (*models.File, error) {
	file, ok := f.files[id]
	if !ok || file.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return file, nil
}

func (f *fakeFiles) Delete(ctx context.Context, userID, id string) error {
	if _, err := f.get(userID, id); err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeFiles) Download(ctx context.Context, userID, id string) (io.ReadCloser, *models.File, error) {
	file, err := f.get(userID, id)
	if err != nil {
		return nil, nil, err
	}
	return io.NopCloser(strings.NewReader(f.content[id])), file, nil
}

func (f *fakeFiles) DownloadURL(ctx context.Context, userID, id string) (string, *models.File, error) {
	if f.presignErr != nil {
		return "", nil, f.presignErr
	}
	file, err := f.get(userID, id)
	if err != nil {
		return "", nil, err
	}
	return f.presignURL, file, nil
}

type fakeDashboards struct {
	user   *models.Dashboard
	global *models.Dashboard
	err    error
}

func (f *fakeDashboards) UserDashboard(ctx context.Context, userID string) (*models.Dashboard, error) {
	return f.user, f.err
}

func (f *fakeDashboards) GlobalDashboard(ctx context.Context, caller *models.User) (*models.Dashboard, error) {
	if !caller.IsPrivileged() {
		return nil, common.ErrorForbidden
	}
	return f.global, f.err
}

type testEnv struct {
	users      *fakeUsers
	addresses  *fakeAddresses
	files      *fakeFiles
	dashboards *fakeDashboards
	server     *Server
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	env := &testEnv{
		users:      &fakeUsers{},
		addresses:  &fakeAddresses{byID: map[string]*models.Address{}},
		files:      &fakeFiles{files: map[string]*models.File{}, content: map[string]string{}},
		dashboards: &fakeDashboards{},
	}
	env.server = NewServer("127.0.0.1:0", logging.Nop{}, env.users, env.addresses, env.files, env.dashboards, opts)
	return env
}

// do sends a request through the full handler chain. token may be empty.
func (e *testEnv) do(method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(method, target, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return e.do(method, target, token, r, "application/json")
}
