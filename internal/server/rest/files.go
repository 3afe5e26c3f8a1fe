package rest

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/services"
	"github.com/gorilla/mux"
)

const (
	// multipartOverhead leaves room for boundaries and the other form fields.
	multipartOverhead = 1 << 20
	multipartMemory   = 8 << 20
)

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	caller, _ := UserFromContext(r.Context())

	if s.opts.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize+multipartOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.writeError(w, r, common.NewValidationError("file",
				fmt.Sprintf("File is too large. The limit is %s.", models.HumanSize(s.opts.MaxUploadSize))))
		case errors.Is(err, http.ErrNotMultipart):
			s.writeError(w, r, common.NewValidationError("file", "No file was submitted."))
		default:
			s.writeError(w, r, common.NewValidationError("file", "The submitted data was not a file."))
		}
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, common.NewValidationError("file", "No file was submitted."))
		return
	}
	defer file.Close()

	f, err := s.files.Upload(r.Context(), caller.ID, header.Filename, file, r.FormValue("filename"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newFileResponse(f))
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	caller, _ := UserFromContext(r.Context())

	list, err := s.files.List(r.Context(), caller.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]fileResponse, 0, len(list))
	for _, f := range list {
		out = append(out, newFileResponse(f))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	caller, _ := UserFromContext(r.Context())

	if err := s.files.Delete(r.Context(), caller.ID, mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) downloadFile(w http.ResponseWriter, r *http.Request) {
	caller, _ := UserFromContext(r.Context())
	id := mux.Vars(r)["id"]

	if s.opts.PresignDownloads {
		u, _, err := s.files.DownloadURL(r.Context(), caller.ID, id)
		switch {
		case err == nil:
			http.Redirect(w, r, u, http.StatusFound)
			return
		case !errors.Is(err, services.ErrPresignUnsupported):
			s.writeError(w, r, err)
			return
		}
	}

	rc, f, err := s.files.Download(r.Context(), caller.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer rc.Close()

	h := w.Header()
	h.Set("Content-Type", contentType(f.StorageKey))
	h.Set("Content-Disposition", attachmentDisposition(f.Filename))
	h.Set("Content-Length", strconv.FormatInt(f.Size, 10))
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		// headers are gone already, the client sees a short body
		s.logger.Warn(r.Context(), "download interrupted", "file_id", f.ID, "error", err)
	}
}

func (s *Server) userDashboard(w http.ResponseWriter, r *http.Request) {
	caller, _ := UserFromContext(r.Context())

	d, err := s.dashboards.UserDashboard(r.Context(), caller.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDashboardResponse(d))
}

func (s *Server) globalDashboard(w http.ResponseWriter, r *http.Request) {
	caller, _ := UserFromContext(r.Context())

	d, err := s.dashboards.GlobalDashboard(r.Context(), caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGlobalDashboardResponse(d))
}

func contentType(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(name))); t != "" {
		return t
	}
	return "application/octet-stream"
}

// attachmentDisposition renders a Content-Disposition header for name. Names
// that are not plain ASCII also get an RFC 5987 filename* parameter.
func attachmentDisposition(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	plain := b.String()

	v := `attachment; filename="` + plain + `"`
	if plain != name {
		v += "; filename*=UTF-8''" + url.PathEscape(name)
	}
	return v
}
