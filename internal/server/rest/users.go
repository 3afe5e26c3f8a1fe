package rest

import (
	"net/http"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/services"
)

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.users.Register(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "Registered", "user_id", u.ID)
	writeJSON(w, http.StatusCreated, newUserResponse(u, nil))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.Email == "" || in.Password == "" {
		s.writeError(w, r, requiredFields(map[string]string{"email": in.Email, "password": in.Password}))
		return
	}

	tokens, err := s.users.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.Refresh == "" {
		s.writeError(w, r, requiredFields(map[string]string{"refresh": ""}))
		return
	}

	tokens, err := s.users.RefreshToken(r.Context(), in.Refresh)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	caller, _ := UserFromContext(r.Context())

	u, addrs, err := s.users.GetProfile(r.Context(), caller.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u, addrs))
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	caller, _ := UserFromContext(r.Context())

	var in services.ProfileInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, addrs, err := s.users.UpdateProfile(r.Context(), caller.ID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u, addrs))
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	caller, _ := UserFromContext(r.Context())

	var in services.ChangePasswordInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.users.ChangePassword(r.Context(), caller.ID, in); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "Password changed", "user_id", caller.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully."})
}

// requiredFields reports every empty value in fields as required.
func requiredFields(fields map[string]string) error {
	ve := &common.ValidationError{Fields: map[string]string{}}
	for name, v := range fields {
		if v == "" {
			ve.Fields[name] = "This field is required."
		}
	}
	return ve
}
