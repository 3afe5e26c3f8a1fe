// Package rest exposes the services over HTTP/JSON.
package rest

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.User, []*models.Address, error)
	UpdateProfile(ctx context.Context, userID string, in services.ProfileInput) (*models.User, []*models.Address, error)
	ChangePassword(ctx context.Context, userID string, in services.ChangePasswordInput) error
}

type AddressService interface {
	List(ctx context.Context, userID string) ([]*models.Address, error)
	Get(ctx context.Context, userID, id string) (*models.Address, error)
	Create(ctx context.Context, userID string, in services.AddressInput) (*models.Address, error)
	Update(ctx context.Context, userID, id string, in services.AddressInput) (*models.Address, error)
	Delete(ctx context.Context, userID, id string) error
	SetDefault(ctx context.Context, userID, id string) (*models.Address, error)
}

type FileService interface {
	Upload(ctx context.Context, userID, payloadName string, body io.Reader, filename string) (*models.File, error)
	List(ctx context.Context, userID string) ([]*models.File, error)
	Delete(ctx context.Context, userID, id string) error
	Download(ctx context.Context, userID, id string) (io.ReadCloser, *models.File, error)
	DownloadURL(ctx context.Context, userID, id string) (string, *models.File, error)
}

type DashboardService interface {
	UserDashboard(ctx context.Context, userID string) (*models.Dashboard, error)
	GlobalDashboard(ctx context.Context, caller *models.User) (*models.Dashboard, error)
}

// Options tune request handling.
type Options struct {
	// MaxUploadSize bounds a single uploaded file, bytes.
	MaxUploadSize int64
	// PresignDownloads redirects downloads to a presigned storage URL when
	// the backend supports it.
	PresignDownloads bool
}

type Server struct {
	address    string
	logger     logging.Logger
	users      UserService
	addresses  AddressService
	files      FileService
	dashboards DashboardService
	opts       Options
}

func NewServer(a string, l logging.Logger, us UserService, as AddressService, fs FileService,
	ds DashboardService, opts Options) *Server {
	return &Server{
		address:    a,
		logger:     l.With("module", "http_server"),
		users:      us,
		addresses:  as,
		files:      fs,
		dashboards: ds,
		opts:       opts,
	}
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *Server) serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-stopped
}
