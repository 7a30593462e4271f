package config

import "github.com/paulmach/orb"

// Option is one selectable value of a form dropdown
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Options groups every fixed dropdown of the listing form
type Options struct {
	Cities        []string `json:"cities"`
	PropertyTypes []Option `json:"property_types"`
	Certificates  []Option `json:"certificates"`
	Furnishings   []Option `json:"furnishings"`
}

// FallbackCenter is used when no location has been loaded (lon, lat).
var FallbackCenter = orb.Point{106.816666, -6.2}

// DefaultZoom is the initial zoom level of the map
const DefaultZoom = 11

// SupportedCities is the list of cities offered by the form
var SupportedCities = []string{
	"Bekasi",
	"Bogor",
	"Depok",
	"Jakarta Barat",
	"Jakarta Selatan",
	"Jakarta Utara",
	"Jakarta Timur",
	"Jakarta Pusat",
	"Tangerang",
}

var propertyTypes = []Option{
	{Value: "rumah", Label: "Rumah"},
}

var certificates = []Option{
	{Value: "shm - sertifikat hak milik", Label: "shm - sertifikat hak milik"},
	{Value: "hgb - hak guna bangunan", Label: "hgb - hak guna bangunan"},
	{Value: "lainnya (ppjb,girik,adat,dll)", Label: "lainnya (ppjb,girik,adat,dll)"},
	{Value: "hp - hak pakai", Label: "hp - hak pakai"},
}

var furnishings = []Option{
	{Value: "unfurnished", Label: "Unfurnished"},
	{Value: "semi furnished", Label: "Semi Furnished"},
	{Value: "furnished", Label: "Fully Furnished"},
	{Value: "baru", Label: "baru"},
}

// FormOptions returns a copy of the dropdown catalogue
func FormOptions() Options {
	return Options{
		Cities:        append([]string(nil), SupportedCities...),
		PropertyTypes: append([]Option(nil), propertyTypes...),
		Certificates:  append([]Option(nil), certificates...),
		Furnishings:   append([]Option(nil), furnishings...),
	}
}

// IsSupportedCity reports whether name is one of the selectable cities
func IsSupportedCity(name string) bool {
	for _, city := range SupportedCities {
		if city == name {
			return true
		}
	}
	return false
}
