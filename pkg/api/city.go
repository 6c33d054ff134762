package api

import (
	"github.com/google/uuid"

	"github.com/nimburion/geodir/pkg/controller"
	"github.com/nimburion/geodir/pkg/repository"
	"github.com/nimburion/geodir/pkg/server/router"
)

type cityRequest struct {
	CountryID uuid.UUID `json:"country_id" validate:"required"`
	// StateID is optional; null or absent places the city directly under the country.
	StateID *uuid.UUID `json:"state_id"`
	Name    string     `json:"name"`
}

func (r cityRequest) city() repository.City {
	return repository.City{CountryID: r.CountryID, StateID: r.StateID, Name: r.Name}
}

func (h *Handler) listCities(c router.Context) error {
	return list(h, c, h.cities.List)
}

func (h *Handler) getCity(c router.Context) error {
	return get(h, c, h.cities.FindByID)
}

func (h *Handler) createCity(c router.Context) error {
	var req cityRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	city := req.city()
	if err := h.cities.Create(c.Request().Context(), &city); err != nil {
		return h.fail(c, err)
	}
	return controller.Created(c, city)
}

func (h *Handler) updateCity(c router.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req cityRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	city := req.city()
	city.ID = id
	if err := h.cities.Update(c.Request().Context(), &city); err != nil {
		return h.fail(c, err)
	}
	return controller.Success(c, city)
}

func (h *Handler) deleteCity(c router.Context) error {
	return remove(h, c, h.cities.Delete)
}

func (h *Handler) listCityPostCodes(c router.Context) error {
	return listChildren(h, c, h.postCodes.ListByCity)
}
