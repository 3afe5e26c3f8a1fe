package rest

import (
	"time"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type addressResponse struct {
	ID            string `json:"id"`
	AddressType   string `json:"address_type"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
	IsDefault     bool   `json:"is_default"`
}

func newAddressResponse(a *models.Address) addressResponse {
	return addressResponse{
		ID:            a.ID,
		AddressType:   string(a.AddressType),
		StreetAddress: a.StreetAddress,
		City:          a.City,
		State:         a.State,
		PostalCode:    a.PostalCode,
		Country:       a.Country,
		IsDefault:     a.IsDefault,
	}
}

func newAddressList(list []*models.Address) []addressResponse {
	out := make([]addressResponse, 0, len(list))
	for _, a := range list {
		out = append(out, newAddressResponse(a))
	}
	return out
}

type userResponse struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	PhoneNumber string            `json:"phone_number"`
	Addresses   []addressResponse `json:"addresses"`
}

func newUserResponse(u *models.User, addrs []*models.Address) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		Addresses:   newAddressList(addrs),
	}
}

type fileResponse struct {
	ID              string    `json:"id"`
	Filename        string    `json:"filename"`
	FileType        string    `json:"file_type"`
	FileTypeDisplay string    `json:"file_type_display"`
	UploadDate      time.Time `json:"upload_date"`
	Size            int64     `json:"size"`
	FileSizeDisplay string    `json:"file_size_display"`
}

func newFileResponse(f *models.File) fileResponse {
	return fileResponse{
		ID:              f.ID,
		Filename:        f.Filename,
		FileType:        string(f.FileType),
		FileTypeDisplay: f.FileType.DisplayName(),
		UploadDate:      f.UploadDate,
		Size:            f.Size,
		FileSizeDisplay: models.HumanSize(f.Size),
	}
}

type dashboardResponse struct {
	TotalFiles        int64            `json:"total_files"`
	FileTypeBreakdown map[string]int64 `json:"file_type_breakdown"`
}

type globalDashboardResponse struct {
	dashboardResponse
	FilesPerUser map[string]int64 `json:"files_per_user"`
}

func newDashboardResponse(d *models.Dashboard) dashboardResponse {
	breakdown := d.Breakdown
	if breakdown == nil {
		breakdown = map[string]int64{}
	}
	return dashboardResponse{TotalFiles: d.TotalFiles, FileTypeBreakdown: breakdown}
}

func newGlobalDashboardResponse(d *models.Dashboard) globalDashboardResponse {
	perUser := d.FilesPerUser
	if perUser == nil {
		perUser = map[string]int64{}
	}
	return globalDashboardResponse{dashboardResponse: newDashboardResponse(d), FilesPerUser: perUser}
}
