package rest

import (
	"net/http"

	"github.com/dmitrijs2005/filevault/internal/server/services"
	"github.com/gorilla/mux"
)

func (s *Server) listAddresses(w http.ResponseWriter, r *http.Request) {
	caller, _ := UserFromContext(r.Context())

	list, err := s.addresses.List(r.Context(), caller.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAddressList(list))
}

func (s *Server) createAddress(w http.ResponseWriter, r *http.Request) {
	caller, _ := UserFromContext(r.Context())

	var in services.AddressInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	a, err := s.addresses.Create(r.Context(), caller.ID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAddressResponse(a))
}

func (s *Server) getAddress(w http.ResponseWriter, r *http.Request) {
	caller, _ := UserFromContext(r.Context())

	a, err := s.addresses.Get(r.Context(), caller.ID, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAddressResponse(a))
}

func (s *Server) updateAddress(w http.ResponseWriter, r *http.Request) {
	caller, _ := UserFromContext(r.Context())
	id := mux.Vars(r)["id"]

	var in services.AddressInput
	if r.Method == http.MethodPatch {
		// PATCH starts from the stored address
		current, err := s.addresses.Get(r.Context(), caller.ID, id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		in = services.AddressInput{
			AddressType:   current.AddressType,
			StreetAddress: current.StreetAddress,
			City:          current.City,
			State:         current.State,
			PostalCode:    current.PostalCode,
			Country:       current.Country,
			IsDefault:     current.IsDefault,
		}
	}
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	a, err := s.addresses.Update(r.Context(), caller.ID, id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAddressResponse(a))
}

func (s *Server) deleteAddress(w http.ResponseWriter, r *http.Request) {
	caller, _ := UserFromContext(r.Context())

	if err := s.addresses.Delete(r.Context(), caller.ID, mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setDefaultAddress(w http.ResponseWriter, r *http.Request) {
	caller, _ := UserFromContext(r.Context())

	a, err := s.addresses.SetDefault(r.Context(), caller.ID, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAddressResponse(a))
}
