// Package form holds the ten listing attributes collected from the visitor.
// Fields are addressed by name; every update returns a new Form.
package form

import (
	"errors"
	"fmt"
	"net/url"
)

var ErrUnknownField = errors.New("unknown form field")

// Field names as they appear in the submitted JSON body
const (
	LandSize     = "land_size_m2"
	BuildingSize = "building_size_m2"
	Bedrooms     = "bedrooms"
	Bathrooms    = "bathrooms"
	BuildingAge  = "building_age"
	District     = "district"
	City         = "city"
	PropertyType = "property_type"
	Certificate  = "certificate"
	Furnishing   = "furnishing"
)

var fieldNames = []string{
	LandSize,
	BuildingSize,
	Bedrooms,
	Bathrooms,
	BuildingAge,
	District,
	City,
	PropertyType,
	Certificate,
	Furnishing,
}

type Form struct {
	LandSize     string `json:"land_size_m2"`
	BuildingSize string `json:"building_size_m2"`
	Bedrooms     string `json:"bedrooms"`
	Bathrooms    string `json:"bathrooms"`
	BuildingAge  string `json:"building_age"`
	District     string `json:"district"`
	City         string `json:"city"`
	PropertyType string `json:"property_type"`
	Certificate  string `json:"certificate"`
	Furnishing   string `json:"furnishing"`
}

// Fields returns the field names in form order
func Fields() []string {
	return append([]string(nil), fieldNames...)
}

// IsField reports whether name addresses one of the form fields
func IsField(name string) bool {
	return field(&Form{}, name) != nil
}

func field(f *Form, name string) *string {
	switch name {
	case LandSize:
		return &f.LandSize
	case BuildingSize:
		return &f.BuildingSize
	case Bedrooms:
		return &f.Bedrooms
	case Bathrooms:
		return &f.Bathrooms
	case BuildingAge:
		return &f.BuildingAge
	case District:
		return &f.District
	case City:
		return &f.City
	case PropertyType:
		return &f.PropertyType
	case Certificate:
		return &f.Certificate
	case Furnishing:
		return &f.Furnishing
	}
	return nil
}

// Set returns a copy of f with the named field replaced
func (f Form) Set(name, value string) (Form, error) {
	p := field(&f, name)
	if p == nil {
		return f, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	*p = value
	return f, nil
}

// Get returns the value of the named field
func (f Form) Get(name string) (string, error) {
	p := field(&f, name)
	if p == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return *p, nil
}

// Missing lists the empty fields in form order
func (f Form) Missing() []string {
	var missing []string
	for _, name := range fieldNames {
		if *field(&f, name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Complete reports whether every field has a value
func (f Form) Complete() bool {
	return len(f.Missing()) == 0
}

// FromValues builds a form from an urlencoded submission. Unknown keys are ignored.
func FromValues(values url.Values) Form {
	var f Form
	for _, name := range fieldNames {
		*field(&f, name) = values.Get(name)
	}
	return f
}
