package api

import (
	"net/http"
	"time"

	"github.com/dukerupert/marbelle/internal/domain"
	"github.com/dukerupert/marbelle/internal/handler"
	"github.com/dukerupert/marbelle/internal/middleware"
	"github.com/dukerupert/marbelle/internal/service"
	"github.com/google/uuid"
)

// AddressHandler serves the signed-in user's address book.
// Routes must be wrapped in middleware.RequireAuth.
type AddressHandler struct {
	addresses service.AddressService
}

// NewAddressHandler creates a new address handler
func NewAddressHandler(addresses service.AddressService) *AddressHandler {
	return &AddressHandler{addresses: addresses}
}

type addressRequest struct {
	Label        string `json:"label" validate:"required,max=50"`
	FirstName    string `json:"first_name" validate:"required,max=100"`
	LastName     string `json:"last_name" validate:"required,max=100"`
	Company      string `json:"company" validate:"max=100"`
	AddressLine1 string `json:"address_line_1" validate:"required,max=255"`
	AddressLine2 string `json:"address_line_2" validate:"max=255"`
	City         string `json:"city" validate:"required,max=100"`
	State        string `json:"state" validate:"required,max=100"`
	PostalCode   string `json:"postal_code" validate:"required,max=20"`
	Country      string `json:"country" validate:"required,max=100"`
	Phone        string `json:"phone" validate:"omitempty,phone"`
	IsPrimary    bool   `json:"is_primary"`
}

func (req addressRequest) input() service.AddressInput {
	return service.AddressInput{
		Label:        req.Label,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Company:      req.Company,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		State:        req.State,
		PostalCode:   req.PostalCode,
		Country:      req.Country,
		Phone:        req.Phone,
		IsPrimary:    req.IsPrimary,
	}
}

type addressResponse struct {
	ID           uuid.UUID `json:"id"`
	Label        string    `json:"label"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Company      string    `json:"company"`
	AddressLine1 string    `json:"address_line_1"`
	AddressLine2 string    `json:"address_line_2"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PostalCode   string    `json:"postal_code"`
	Country      string    `json:"country"`
	Phone        string    `json:"phone"`
	IsPrimary    bool      `json:"is_primary"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newAddressResponse(a domain.Address) addressResponse {
	return addressResponse{
		ID:           a.ID,
		Label:        a.Label,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Company:      a.Company,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
		Phone:        a.Phone,
		IsPrimary:    a.IsPrimary,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// List handles GET /api/auth/addresses/
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		handler.UnauthorizedResponse(w, r)
		return
	}

	addresses, err := h.addresses.ListAddresses(r.Context(), user.ID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	out := make([]addressResponse, len(addresses))
	for i, a := range addresses {
		out[i] = newAddressResponse(a)
	}
	handler.Success(w, "Addresses retrieved successfully.", out)
}

// Create handles POST /api/auth/addresses/
func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	const failed = "Address creation failed."

	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		handler.UnauthorizedResponse(w, r)
		return
	}

	var req addressRequest
	if err := handler.DecodeJSON(r, "address.create", &req); err != nil {
		handler.FailedResponse(w, r, failed, err)
		return
	}
	address, err := h.addresses.CreateAddress(r.Context(), user.ID, req.input())
	if err != nil {
		handler.FailedResponse(w, r, failed, err)
		return
	}
	handler.Created(w, "Address created successfully.", newAddressResponse(*address))
}

// Get handles GET /api/auth/addresses/{id}/
func (h *AddressHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		handler.UnauthorizedResponse(w, r)
		return
	}

	address, err := h.addresses.GetAddress(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, "Address retrieved successfully.", newAddressResponse(*address))
}

// Update handles PUT /api/auth/addresses/{id}/
func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	const failed = "Address update failed."

	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		handler.UnauthorizedResponse(w, r)
		return
	}

	var req addressRequest
	if err := handler.DecodeJSON(r, "address.update", &req); err != nil {
		handler.FailedResponse(w, r, failed, err)
		return
	}
	address, err := h.addresses.UpdateAddress(r.Context(), user.ID, r.PathValue("id"), req.input())
	if err != nil {
		handler.FailedResponse(w, r, failed, err)
		return
	}
	handler.Success(w, "Address updated successfully.", newAddressResponse(*address))
}

// Delete handles DELETE /api/auth/addresses/{id}/
func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		handler.UnauthorizedResponse(w, r)
		return
	}

	if err := h.addresses.DeleteAddress(r.Context(), user.ID, r.PathValue("id")); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, "Address deleted successfully.", nil)
}

// SetPrimary handles POST /api/auth/addresses/{id}/set_primary/
func (h *AddressHandler) SetPrimary(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		handler.UnauthorizedResponse(w, r)
		return
	}

	address, err := h.addresses.SetPrimaryAddress(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, "Primary address updated successfully.", newAddressResponse(*address))
}
