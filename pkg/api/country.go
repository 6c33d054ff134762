package api

import (
	"github.com/nimburion/geodir/pkg/controller"
	"github.com/nimburion/geodir/pkg/repository"
	"github.com/nimburion/geodir/pkg/server/router"
)

type countryRequest struct {
	Alpha2        string `json:"alpha2"`
	Alpha3        string `json:"alpha3"`
	Name          string `json:"name"`
	LocalizedName string `json:"localized_name"`
}

func (r countryRequest) country() repository.Country {
	return repository.Country{
		Alpha2:        r.Alpha2,
		Alpha3:        r.Alpha3,
		Name:          r.Name,
		LocalizedName: r.LocalizedName,
	}
}

func (h *Handler) listCountries(c router.Context) error {
	return list(h, c, h.countries.List)
}

func (h *Handler) getCountry(c router.Context) error {
	return get(h, c, h.countries.FindByID)
}

func (h *Handler) getCountryByAlpha2(c router.Context) error {
	return h.findCountry(c, repository.CountryKey{Alpha2: c.Param("code")})
}

func (h *Handler) getCountryByAlpha3(c router.Context) error {
	return h.findCountry(c, repository.CountryKey{Alpha3: c.Param("code")})
}

func (h *Handler) findCountry(c router.Context, key repository.CountryKey) error {
	country, err := h.countries.Find(c.Request().Context(), key)
	if err != nil {
		return h.fail(c, err)
	}
	return controller.Success(c, country)
}

func (h *Handler) createCountry(c router.Context) error {
	var req countryRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	country := req.country()
	if err := h.countries.Create(c.Request().Context(), &country); err != nil {
		return h.fail(c, err)
	}
	return controller.Created(c, country)
}

func (h *Handler) updateCountry(c router.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req countryRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	country := req.country()
	country.ID = id
	if err := h.countries.Update(c.Request().Context(), &country); err != nil {
		return h.fail(c, err)
	}
	return controller.Success(c, country)
}

func (h *Handler) deleteCountry(c router.Context) error {
	return remove(h, c, h.countries.Delete)
}

func (h *Handler) listCountryStates(c router.Context) error {
	return listChildren(h, c, h.states.ListByCountry)
}

func (h *Handler) listCountryCities(c router.Context) error {
	return listChildren(h, c, h.cities.ListByCountry)
}
