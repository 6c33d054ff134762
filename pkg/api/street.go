package api

import (
	"github.com/google/uuid"

	"github.com/nimburion/geodir/pkg/controller"
	"github.com/nimburion/geodir/pkg/repository"
	"github.com/nimburion/geodir/pkg/server/router"
)

type streetRequest struct {
	PostCodeID uuid.UUID `json:"postcode_id" validate:"required"`
	Name       string    `json:"name"`
}

func (h *Handler) listStreets(c router.Context) error {
	return list(h, c, h.streets.List)
}

func (h *Handler) getStreet(c router.Context) error {
	return get(h, c, h.streets.FindByID)
}

func (h *Handler) createStreet(c router.Context) error {
	var req streetRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	street := repository.Street{PostCodeID: req.PostCodeID, Name: req.Name}
	if err := h.streets.Create(c.Request().Context(), &street); err != nil {
		return h.fail(c, err)
	}
	return controller.Created(c, street)
}

func (h *Handler) updateStreet(c router.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req streetRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	street := repository.Street{ID: id, PostCodeID: req.PostCodeID, Name: req.Name}
	if err := h.streets.Update(c.Request().Context(), &street); err != nil {
		return h.fail(c, err)
	}
	return controller.Success(c, street)
}

func (h *Handler) deleteStreet(c router.Context) error {
	return remove(h, c, h.streets.Delete)
}

func (h *Handler) listStreetAddresses(c router.Context) error {
	return listChildren(h, c, h.addresses.ListByStreet)
}
