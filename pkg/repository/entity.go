package repository

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Column widths of the schema, in characters.
const (
	maxNameLength = 255
	maxCodeLength = 32
)

// EntityType names a level of the directory hierarchy.
type EntityType string

// Entity types, root first.
const (
	EntityCountry  EntityType = "Country"
	EntityState    EntityType = "State"
	EntityCity     EntityType = "City"
	EntityPostCode EntityType = "PostCode"
	EntityStreet   EntityType = "Street"
	EntityAddress  EntityType = "Address"
)

// Country is the root of the hierarchy. Alpha2, Alpha3 and Name are each
// globally unique.
type Country struct {
	ID            uuid.UUID `json:"id"`
	Alpha2        string    `json:"alpha2"`
	Alpha3        string    `json:"alpha3"`
	Name          string    `json:"name"`
	LocalizedName string    `json:"localized_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// State belongs to a Country; its name is unique within the Country.
type State struct {
	ID        uuid.UUID `json:"id"`
	CountryID uuid.UUID `json:"country_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// City belongs to a Country and optionally to one of that Country's States.
// Its name is unique within (Country, State).
type City struct {
	ID        uuid.UUID  `json:"id"`
	CountryID uuid.UUID  `json:"country_id"`
	StateID   *uuid.UUID `json:"state_id,omitempty"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PostCode belongs to a City; its code is unique within the City.
type PostCode struct {
	ID        uuid.UUID `json:"id"`
	CityID    uuid.UUID `json:"city_id"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Street belongs to a PostCode; its name is unique within the PostCode.
type Street struct {
	ID         uuid.UUID `json:"id"`
	PostCodeID uuid.UUID `json:"postcode_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Address belongs to a Street; (HouseNumber, Extra) is unique within the
// Street. An empty Extra means no extra.
type Address struct {
	ID          uuid.UUID `json:"id"`
	StreetID    uuid.UUID `json:"street_id"`
	HouseNumber string    `json:"house_number"`
	Extra       string    `json:"extra,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *Country) normalize() error {
	c.Alpha2 = strings.ToUpper(strings.TrimSpace(c.Alpha2))
	c.Alpha3 = strings.ToUpper(strings.TrimSpace(c.Alpha3))
	c.Name = strings.TrimSpace(c.Name)
	c.LocalizedName = strings.TrimSpace(c.LocalizedName)

	if err := requireLetters(EntityCountry, "alpha2", c.Alpha2, 2); err != nil {
		return err
	}
	if err := requireLetters(EntityCountry, "alpha3", c.Alpha3, 3); err != nil {
		return err
	}
	if err := requireText(EntityCountry, "name", c.Name, maxNameLength); err != nil {
		return err
	}
	return maxLength(EntityCountry, "localized_name", c.LocalizedName, maxNameLength)
}

func (s *State) normalize() error {
	s.Name = strings.TrimSpace(s.Name)
	return requireText(EntityState, "name", s.Name, maxNameLength)
}

func (c *City) normalize() error {
	c.Name = strings.TrimSpace(c.Name)
	if c.StateID != nil && *c.StateID == uuid.Nil {
		c.StateID = nil
	}
	return requireText(EntityCity, "name", c.Name, maxNameLength)
}

func (p *PostCode) normalize() error {
	p.Code = strings.TrimSpace(p.Code)
	return requireText(EntityPostCode, "code", p.Code, maxCodeLength)
}

func (s *Street) normalize() error {
	s.Name = strings.TrimSpace(s.Name)
	return requireText(EntityStreet, "name", s.Name, maxNameLength)
}

func (a *Address) normalize() error {
	a.HouseNumber = strings.TrimSpace(a.HouseNumber)
	a.Extra = strings.TrimSpace(a.Extra)
	if err := requireText(EntityAddress, "house_number", a.HouseNumber, maxCodeLength); err != nil {
		return err
	}
	return maxLength(EntityAddress, "extra", a.Extra, maxNameLength)
}

func requireText(entity EntityType, field, value string, limit int) error {
	if value == "" {
		return &InvalidFieldError{Entity: entity, Field: field, Value: value, Reason: "must not be blank"}
	}
	return maxLength(entity, field, value, limit)
}

func maxLength(entity EntityType, field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return &InvalidFieldError{Entity: entity, Field: field, Value: value, Reason: fmt.Sprintf("must be at most %d characters", limit)}
	}
	return nil
}

func requireLetters(entity EntityType, field, value string, length int) error {
	if len([]rune(value)) != length {
		return &InvalidFieldError{Entity: entity, Field: field, Value: value, Reason: fmt.Sprintf("must be exactly %d letters", length)}
	}
	for _, r := range value {
		if !unicode.IsLetter(r) || r > unicode.MaxASCII {
			return &InvalidFieldError{Entity: entity, Field: field, Value: value, Reason: "must contain only ASCII letters"}
		}
	}
	return nil
}
