// Package seed loads fixture data into the directory.
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fixture is a tree of directory entries keyed by natural keys only; ids are
// assigned on load.
type Fixture struct {
	Countries []CountryFixture `yaml:"countries"`
}

type CountryFixture struct {
	Alpha2        string         `yaml:"alpha2"`
	Alpha3        string         `yaml:"alpha3"`
	Name          string         `yaml:"name"`
	LocalizedName string         `yaml:"localized_name,omitempty"`
	States        []StateFixture `yaml:"states,omitempty"`
	Cities        []CityFixture  `yaml:"cities,omitempty"`
}

type StateFixture struct {
	Name string `yaml:"name"`
}

// CityFixture may name one of its country's states in State.
type CityFixture struct {
	Name      string            `yaml:"name"`
	State     string            `yaml:"state,omitempty"`
	PostCodes []PostCodeFixture `yaml:"postcodes,omitempty"`
}

type PostCodeFixture struct {
	Code    string          `yaml:"code"`
	Streets []StreetFixture `yaml:"streets,omitempty"`
}

type StreetFixture struct {
	Name      string           `yaml:"name"`
	Addresses []AddressFixture `yaml:"addresses,omitempty"`
}

type AddressFixture struct {
	HouseNumber string `yaml:"house_number"`
	Extra       string `yaml:"extra,omitempty"`
}

// LoadFile reads a YAML fixture. Unknown keys are rejected.
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a YAML fixture and checks that every city state reference
// names a state of the same country.
func Parse(data []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate reports dangling state references.
func (f *Fixture) Validate() error {
	for _, c := range f.Countries {
		states := make(map[string]struct{}, len(c.States))
		for _, s := range c.States {
			states[strings.TrimSpace(s.Name)] = struct{}{}
		}
		for _, city := range c.Cities {
			ref := strings.TrimSpace(city.State)
			if ref == "" {
				continue
			}
			if _, ok := states[ref]; !ok {
				return fmt.Errorf("city %q in %s references unknown state %q", city.Name, c.Alpha2, city.State)
			}
		}
	}
	return nil
}

// DefaultFixture is the built-in sample data used when no file is given.
func DefaultFixture() *Fixture {
	return &Fixture{Countries: []CountryFixture{
		{
			Alpha2: "DE", Alpha3: "DEU", Name: "Germany", LocalizedName: "Deutschland",
			States: []StateFixture{{Name: "Bavaria"}, {Name: "Berlin"}},
			Cities: []CityFixture{
				{Name: "Munich", State: "Bavaria", PostCodes: []PostCodeFixture{
					{Code: "80331", Streets: []StreetFixture{
						{Name: "Marienplatz", Addresses: []AddressFixture{{HouseNumber: "1"}, {HouseNumber: "8", Extra: "a"}}},
					}},
				}},
				{Name: "Berlin", State: "Berlin", PostCodes: []PostCodeFixture{
					{Code: "10117", Streets: []StreetFixture{
						{Name: "Unter den Linden", Addresses: []AddressFixture{{HouseNumber: "77"}}},
					}},
				}},
			},
		},
		{
			Alpha2: "FR", Alpha3: "FRA", Name: "France",
			Cities: []CityFixture{
				{Name: "Paris", PostCodes: []PostCodeFixture{
					{Code: "75001", Streets: []StreetFixture{
						{Name: "Rue de Rivoli", Addresses: []AddressFixture{{HouseNumber: "99"}, {HouseNumber: "99", Extra: "bis"}}},
					}},
				}},
			},
		},
		{
			Alpha2: "US", Alpha3: "USA", Name: "United States",
			States: []StateFixture{{Name: "New York"}},
			Cities: []CityFixture{
				{Name: "New York City", State: "New York", PostCodes: []PostCodeFixture{
					{Code: "10001", Streets: []StreetFixture{
						{Name: "5th Avenue", Addresses: []AddressFixture{{HouseNumber: "350"}}},
					}},
				}},
			},
		},
	}}
}
