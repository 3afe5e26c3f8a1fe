package models

import "time"

// AddressType classifies a postal address.
type AddressType string

const (
	AddressHome  AddressType = "home"
	AddressWork  AddressType = "work"
	AddressOther AddressType = "other"
)

// Valid reports whether t is one of the known address types.
func (t AddressType) Valid() bool {
	switch t {
	case AddressHome, AddressWork, AddressOther:
		return true
	}
	return false
}

// Address is a postal address owned by one user. At most one address per
// user has IsDefault set.
type Address struct {
	ID            string
	UserID        string
	AddressType   AddressType
	StreetAddress string
	City          string
	State         string
	PostalCode    string
	Country       string
	IsDefault     bool
	CreatedAt     time.Time
}
