package api

import (
	"github.com/google/uuid"

	"github.com/nimburion/geodir/pkg/controller"
	"github.com/nimburion/geodir/pkg/repository"
	"github.com/nimburion/geodir/pkg/server/router"
)

type stateRequest struct {
	CountryID uuid.UUID `json:"country_id" validate:"required"`
	Name      string    `json:"name"`
}

func (h *Handler) listStates(c router.Context) error {
	return list(h, c, h.states.List)
}

func (h *Handler) getState(c router.Context) error {
	return get(h, c, h.states.FindByID)
}

func (h *Handler) createState(c router.Context) error {
	var req stateRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	state := repository.State{CountryID: req.CountryID, Name: req.Name}
	if err := h.states.Create(c.Request().Context(), &state); err != nil {
		return h.fail(c, err)
	}
	return controller.Created(c, state)
}

func (h *Handler) updateState(c router.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req stateRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	state := repository.State{ID: id, CountryID: req.CountryID, Name: req.Name}
	if err := h.states.Update(c.Request().Context(), &state); err != nil {
		return h.fail(c, err)
	}
	return controller.Success(c, state)
}

func (h *Handler) deleteState(c router.Context) error {
	return remove(h, c, h.states.Delete)
}

func (h *Handler) listStateCities(c router.Context) error {
	return listChildren(h, c, h.cities.ListByState)
}
