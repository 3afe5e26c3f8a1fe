package rest

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// Handler builds the routing tree. Paths are matched with or without a
// trailing slash.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.recoverMiddleware, s.logMiddleware)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found."})
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed."})
	})

	// public
	router.HandleFunc("/ping", s.ping).Methods(http.MethodGet)
	router.HandleFunc("/users/register", s.register).Methods(http.MethodPost)
	router.HandleFunc("/users/login", s.login).Methods(http.MethodPost)
	router.HandleFunc("/users/token/refresh", s.refreshToken).Methods(http.MethodPost)

	// authenticated
	users := router.PathPrefix("/users").Subrouter()
	users.Use(s.authMiddleware)
	users.HandleFunc("/profile", s.getProfile).Methods(http.MethodGet)
	users.HandleFunc("/profile", s.updateProfile).Methods(http.MethodPut, http.MethodPatch)
	users.HandleFunc("/change-password", s.changePassword).Methods(http.MethodPost, http.MethodPut)
	users.HandleFunc("/addresses", s.listAddresses).Methods(http.MethodGet)
	users.HandleFunc("/addresses", s.createAddress).Methods(http.MethodPost)
	users.HandleFunc("/addresses/{id}", s.getAddress).Methods(http.MethodGet)
	users.HandleFunc("/addresses/{id}", s.updateAddress).Methods(http.MethodPut, http.MethodPatch)
	users.HandleFunc("/addresses/{id}", s.deleteAddress).Methods(http.MethodDelete)
	users.HandleFunc("/addresses/{id}/default", s.setDefaultAddress).Methods(http.MethodPost)

	files := router.PathPrefix("/files").Subrouter()
	files.Use(s.authMiddleware)
	files.HandleFunc("/upload", s.uploadFile).Methods(http.MethodPost)
	files.HandleFunc("/list", s.listFiles).Methods(http.MethodGet)
	files.HandleFunc("/download/{id}", s.downloadFile).Methods(http.MethodGet)
	files.HandleFunc("/delete/{id}", s.deleteFile).Methods(http.MethodDelete)
	files.HandleFunc("/dashboard", s.userDashboard).Methods(http.MethodGet)
	files.Handle("/global-dashboard", s.adminMiddleware(http.HandlerFunc(s.globalDashboard))).Methods(http.MethodGet)
	files.HandleFunc("/{id}", s.deleteFile).Methods(http.MethodDelete)

	return stripTrailingSlash(router)
}

func stripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := r.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
			r.URL.Path = strings.TrimRight(p, "/")
			if r.URL.RawPath != "" {
				r.URL.RawPath = strings.TrimRight(r.URL.RawPath, "/")
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}
