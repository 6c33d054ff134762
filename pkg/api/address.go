package api

import (
	"github.com/google/uuid"

	"github.com/nimburion/geodir/pkg/controller"
	"github.com/nimburion/geodir/pkg/repository"
	"github.com/nimburion/geodir/pkg/server/router"
)

type addressRequest struct {
	StreetID    uuid.UUID `json:"street_id" validate:"required"`
	HouseNumber string    `json:"house_number"`
	Extra       string    `json:"extra"`
}

func (r addressRequest) address() repository.Address {
	return repository.Address{StreetID: r.StreetID, HouseNumber: r.HouseNumber, Extra: r.Extra}
}

func (h *Handler) listAddresses(c router.Context) error {
	return list(h, c, h.addresses.List)
}

func (h *Handler) getAddress(c router.Context) error {
	return get(h, c, h.addresses.FindByID)
}

func (h *Handler) createAddress(c router.Context) error {
	var req addressRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	address := req.address()
	if err := h.addresses.Create(c.Request().Context(), &address); err != nil {
		return h.fail(c, err)
	}
	return controller.Created(c, address)
}

func (h *Handler) updateAddress(c router.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req addressRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	address := req.address()
	address.ID = id
	if err := h.addresses.Update(c.Request().Context(), &address); err != nil {
		return h.fail(c, err)
	}
	return controller.Success(c, address)
}

func (h *Handler) deleteAddress(c router.Context) error {
	return remove(h, c, h.addresses.Delete)
}
