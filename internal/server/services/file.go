package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filevault/internal/server/storage"
	"github.com/google/uuid"
)

// PresignTTL is how long a presigned download URL stays valid.
const PresignTTL = 15 * time.Minute

const (
	// maxFilenameChars matches the filename column.
	maxFilenameChars = 255
	// maxPayloadNameBytes is the usual limit of one path element on disk.
	maxPayloadNameBytes = 255
)

// ErrPresignUnsupported is returned by DownloadURL when the storage backend
// cannot hand out direct URLs.
var ErrPresignUnsupported = errors.New("storage backend does not support presigned urls")

// FileService stores payloads in blob storage and keeps their metadata in
// the files table.
type FileService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	storage       storage.Storage
	maxUploadSize int64
	log           logging.Logger
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, st storage.Storage, maxUploadSize int64, log logging.Logger) *FileService {
	return &FileService{
		db:            db,
		repomanager:   m,
		storage:       st,
		maxUploadSize: maxUploadSize,
		log:           log.With("module", "files"),
	}
}

// StorageKey builds the storage location of a new upload. The random
// segment keeps uploads with equal names apart.
func StorageKey(userID, name string) string {
	return fmt.Sprintf("user_%s/%s/%s", userID, uuid.New(), name)
}

// Upload stores body and records it for userID. payloadName is the name the
// client sent with the payload; it determines the file type and is the
// fallback for filename.
func (s *FileService) Upload(ctx context.Context, userID, payloadName string, body io.Reader, filename string) (*models.File, error) {
	name := models.BaseName(payloadName)
	if name == "" {
		return nil, common.NewValidationError("file", "No file was submitted.")
	}
	if len(name) > maxPayloadNameBytes {
		return nil, common.NewValidationError("file", "Ensure this filename is not longer than 255 bytes.")
	}

	display := models.BaseName(filename)
	if display == "" {
		display = name
	}
	if utf8.RuneCountInString(display) > maxFilenameChars {
		return nil, common.NewValidationError("filename", "Ensure this field has no more than 255 characters.")
	}

	key := StorageKey(userID, name)

	if s.maxUploadSize > 0 {
		body = io.LimitReader(body, s.maxUploadSize+1)
	}
	size, err := s.storage.Put(ctx, key, body)
	if err != nil {
		return nil, fmt.Errorf("error storing payload: %w", err)
	}
	if s.maxUploadSize > 0 && size > s.maxUploadSize {
		s.removePayload(ctx, key)
		return nil, common.NewValidationError("file",
			fmt.Sprintf("File is too large. The limit is %s.", models.HumanSize(s.maxUploadSize)))
	}

	f, err := s.repomanager.Files(s.db).Create(ctx, &models.File{
		UserID:     userID,
		StorageKey: key,
		Filename:   display,
		FileType:   models.ClassifyFile(name),
		Size:       size,
	})
	if err != nil {
		s.removePayload(ctx, key)
		return nil, fmt.Errorf("error creating file: %w", err)
	}

	s.log.Info(ctx, "file uploaded", "user_id", userID, "file_id", f.ID, "size", f.Size, "file_type", f.FileType)
	return f, nil
}

// List returns the files of userID, newest first.
func (s *FileService) List(ctx context.Context, userID string) ([]*models.File, error) {
	return s.repomanager.Files(s.db).ListByUser(ctx, userID)
}

func (s *FileService) Get(ctx context.Context, userID, id string) (*models.File, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.repomanager.Files(s.db).Get(ctx, userID, id)
}

// Delete removes the record and its payload. The record removal is rolled
// back when the payload cannot be removed. If the commit itself fails after
// the payload is gone, the record stays behind without bytes: downloads of
// it answer NotFound and deleting it again succeeds.
func (s *FileService) Delete(ctx context.Context, userID, id string) error {
	if err := checkID(id); err != nil {
		return err
	}

	var removedKey string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		key, err := s.repomanager.Files(tx).Delete(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := s.storage.Delete(ctx, key); err != nil {
			return fmt.Errorf("error removing payload: %w", err)
		}
		removedKey = key
		return nil
	})
	if err != nil {
		if removedKey != "" {
			s.log.Error(ctx, "file record kept after its payload was removed",
				"user_id", userID, "file_id", id, "storage_key", removedKey, "error", err)
		}
		return err
	}

	s.log.Info(ctx, "file deleted", "user_id", userID, "file_id", id)
	return nil
}

// Download opens the payload of a file owned by userID. The caller closes
// the reader.
func (s *FileService) Download(ctx context.Context, userID, id string) (io.ReadCloser, *models.File, error) {
	f, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.storage.Open(ctx, f.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return rc, f, nil
}

// DownloadURL returns a presigned GET URL for a file owned by userID.
func (s *FileService) DownloadURL(ctx context.Context, userID, id string) (string, *models.File, error) {
	p, ok := s.storage.(storage.Presigner)
	if !ok {
		return "", nil, ErrPresignUnsupported
	}
	f, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", nil, err
	}
	url, err := p.PresignGet(ctx, f.StorageKey, PresignTTL)
	if err != nil {
		return "", nil, fmt.Errorf("error presigning url: %w", err)
	}
	return url, f, nil
}

func (s *FileService) removePayload(ctx context.Context, key string) {
	// the request context may already be cancelled
	ctx = context.WithoutCancel(ctx)
	if err := s.storage.Delete(ctx, key); err != nil {
		s.log.Error(ctx, "failed to remove orphaned payload", "storage_key", key, "error", err)
	}
}
