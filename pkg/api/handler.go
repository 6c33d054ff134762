// Package api exposes the address directory over REST.
package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/nimburion/geodir/pkg/controller"
	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/nimburion/geodir/pkg/repository"
	"github.com/nimburion/geodir/pkg/server/router"
)

// BasePath prefixes every directory route.
const BasePath = "/api/v1"

type countryStore interface {
	List(ctx context.Context, opts repository.ListOptions) (repository.Page[repository.Country], error)
	FindByID(ctx context.Context, id uuid.UUID) (*repository.Country, error)
	Find(ctx context.Context, key repository.CountryKey) (*repository.Country, error)
	Create(ctx context.Context, c *repository.Country) error
	Update(ctx context.Context, c *repository.Country) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type stateStore interface {
	List(ctx context.Context, opts repository.ListOptions) (repository.Page[repository.State], error)
	FindByID(ctx context.Context, id uuid.UUID) (*repository.State, error)
	ListByCountry(ctx context.Context, countryID uuid.UUID, opts repository.ListOptions) (repository.Page[repository.State], error)
	Create(ctx context.Context, s *repository.State) error
	Update(ctx context.Context, s *repository.State) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type cityStore interface {
	List(ctx context.Context, opts repository.ListOptions) (repository.Page[repository.City], error)
	FindByID(ctx context.Context, id uuid.UUID) (*repository.City, error)
	ListByCountry(ctx context.Context, countryID uuid.UUID, opts repository.ListOptions) (repository.Page[repository.City], error)
	ListByState(ctx context.Context, stateID uuid.UUID, opts repository.ListOptions) (repository.Page[repository.City], error)
	Create(ctx context.Context, c *repository.City) error
	Update(ctx context.Context, c *repository.City) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postCodeStore interface {
	List(ctx context.Context, opts repository.ListOptions) (repository.Page[repository.PostCode], error)
	FindByID(ctx context.Context, id uuid.UUID) (*repository.PostCode, error)
	ListByCity(ctx context.Context, cityID uuid.UUID, opts repository.ListOptions) (repository.Page[repository.PostCode], error)
	Create(ctx context.Context, p *repository.PostCode) error
	Update(ctx context.Context, p *repository.PostCode) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type streetStore interface {
	List(ctx context.Context, opts repository.ListOptions) (repository.Page[repository.Street], error)
	FindByID(ctx context.Context, id uuid.UUID) (*repository.Street, error)
	ListByPostCode(ctx context.Context, postCodeID uuid.UUID, opts repository.ListOptions) (repository.Page[repository.Street], error)
	Create(ctx context.Context, s *repository.Street) error
	Update(ctx context.Context, s *repository.Street) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type addressStore interface {
	List(ctx context.Context, opts repository.ListOptions) (repository.Page[repository.Address], error)
	FindByID(ctx context.Context, id uuid.UUID) (*repository.Address, error)
	ListByStreet(ctx context.Context, streetID uuid.UUID, opts repository.ListOptions) (repository.Page[repository.Address], error)
	Create(ctx context.Context, a *repository.Address) error
	Update(ctx context.Context, a *repository.Address) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Handler serves the directory routes.
type Handler struct {
	countries countryStore
	states    stateStore
	cities    cityStore
	postCodes postCodeStore
	streets   streetStore
	addresses addressStore
	logger    logger.Logger
}

// NewHandler creates a handler over the repositories of dir.
func NewHandler(dir *repository.Directory, log logger.Logger) *Handler {
	return &Handler{
		countries: dir.Countries,
		states:    dir.States,
		cities:    dir.Cities,
		postCodes: dir.PostCodes,
		streets:   dir.Streets,
		addresses: dir.Addresses,
		logger:    log,
	}
}

// Register mounts every directory route under BasePath.
func (h *Handler) Register(r router.Router) {
	v1 := r.Group(BasePath)

	countries := v1.Group("/countries")
	countries.GET("", h.listCountries)
	countries.POST("", h.createCountry)
	countries.GET("/by-alpha2/:code", h.getCountryByAlpha2)
	countries.GET("/by-alpha3/:code", h.getCountryByAlpha3)
	countries.GET("/:id", h.getCountry)
	countries.PUT("/:id", h.updateCountry)
	countries.DELETE("/:id", h.deleteCountry)
	countries.GET("/:id/states", h.listCountryStates)
	countries.GET("/:id/cities", h.listCountryCities)

	states := v1.Group("/states")
	states.GET("", h.listStates)
	states.POST("", h.createState)
	states.GET("/:id", h.getState)
	states.PUT("/:id", h.updateState)
	states.DELETE("/:id", h.deleteState)
	states.GET("/:id/cities", h.listStateCities)

	cities := v1.Group("/cities")
	cities.GET("", h.listCities)
	cities.POST("", h.createCity)
	cities.GET("/:id", h.getCity)
	cities.PUT("/:id", h.updateCity)
	cities.DELETE("/:id", h.deleteCity)
	cities.GET("/:id/postcodes", h.listCityPostCodes)

	postCodes := v1.Group("/postcodes")
	postCodes.GET("", h.listPostCodes)
	postCodes.POST("", h.createPostCode)
	postCodes.GET("/:id", h.getPostCode)
	postCodes.PUT("/:id", h.updatePostCode)
	postCodes.DELETE("/:id", h.deletePostCode)
	postCodes.GET("/:id/streets", h.listPostCodeStreets)

	streets := v1.Group("/streets")
	streets.GET("", h.listStreets)
	streets.POST("", h.createStreet)
	streets.GET("/:id", h.getStreet)
	streets.PUT("/:id", h.updateStreet)
	streets.DELETE("/:id", h.deleteStreet)
	streets.GET("/:id/addresses", h.listStreetAddresses)

	addresses := v1.Group("/addresses")
	addresses.GET("", h.listAddresses)
	addresses.POST("", h.createAddress)
	addresses.GET("/:id", h.getAddress)
	addresses.PUT("/:id", h.updateAddress)
	addresses.DELETE("/:id", h.deleteAddress)
}

// fail writes the mapped error response. Server-side failures are logged.
func (h *Handler) fail(c router.Context, err error) error {
	status, resp := controller.MapError(c.Request().Context(), err)
	if status >= http.StatusInternalServerError {
		h.logger.WithContext(c.Request().Context()).Error("request failed",
			"route", c.Route(),
			"error", err,
		)
	}
	return c.JSON(status, resp)
}

// listOptions reads the sort, page and size query parameters.
func listOptions(c router.Context) (repository.ListOptions, error) {
	p, err := repository.ParsePagination(c.Query("page"), c.Query("size"))
	if err != nil {
		return repository.ListOptions{}, err
	}
	return repository.ListOptions{Sort: c.Query("sort"), Pagination: p}, nil
}

func pathID(c router.Context) (uuid.UUID, error) {
	return controller.ParseID("id", c.Param("id"))
}

// bind decodes and validates a request body.
func bind(c router.Context, dto interface{}) error {
	if err := c.Bind(dto); err != nil {
		return err
	}
	return controller.ValidateDTO(dto)
}

func list[T any](h *Handler, c router.Context, fetch func(context.Context, repository.ListOptions) (repository.Page[T], error)) error {
	opts, err := listOptions(c)
	if err != nil {
		return h.fail(c, err)
	}
	page, err := fetch(c.Request().Context(), opts)
	if err != nil {
		return h.fail(c, err)
	}
	return controller.List(c, page)
}

func listChildren[T any](h *Handler, c router.Context, fetch func(context.Context, uuid.UUID, repository.ListOptions) (repository.Page[T], error)) error {
	parentID, err := pathID(c)
	if err != nil {
		return h.fail(c, err)
	}
	return list(h, c, func(ctx context.Context, opts repository.ListOptions) (repository.Page[T], error) {
		return fetch(ctx, parentID, opts)
	})
}

func get[T any](h *Handler, c router.Context, find func(context.Context, uuid.UUID) (*T, error)) error {
	id, err := pathID(c)
	if err != nil {
		return h.fail(c, err)
	}
	entity, err := find(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return controller.Success(c, entity)
}

func remove(h *Handler, c router.Context, del func(context.Context, uuid.UUID) error) error {
	id, err := pathID(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := del(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	return controller.NoContent(c)
}
