package repository

import (
	"github.com/nimburion/geodir/pkg/eventbus"
	"github.com/nimburion/geodir/pkg/observability/logger"
)

// Directory bundles the repositories of every hierarchy level over one store.
type Directory struct {
	Countries *CountryRepository
	States    *StateRepository
	Cities    *CityRepository
	PostCodes *PostCodeRepository
	Streets   *StreetRepository
	Addresses *AddressRepository
}

// NewDirectory creates all repositories on db. A nil publisher disables
// change events.
func NewDirectory(db DB, log logger.Logger, publisher eventbus.Publisher) *Directory {
	return &Directory{
		Countries: NewCountryRepository(db, log, publisher),
		States:    NewStateRepository(db, log, publisher),
		Cities:    NewCityRepository(db, log, publisher),
		PostCodes: NewPostCodeRepository(db, log, publisher),
		Streets:   NewStreetRepository(db, log, publisher),
		Addresses: NewAddressRepository(db, log, publisher),
	}
}
