// Package mapview turns a set of listing locations into map render descriptors.
// The view holds no state of its own; markers are produced lazily from the
// locations each time they are iterated.
package mapview

import (
	"iter"
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"rumahku/server/config"
	"rumahku/server/internal/geometry"
	"rumahku/server/internal/models"
)

const allCities = "Semua kota"

// Icon describes the marker image
type Icon struct {
	IconURL     string `json:"iconUrl"`
	ShadowURL   string `json:"shadowUrl"`
	IconSize    [2]int `json:"iconSize"`
	IconAnchor  [2]int `json:"iconAnchor"`
	PopupAnchor [2]int `json:"popupAnchor"`
	ShadowSize  [2]int `json:"shadowSize"`
}

var markerIcon = Icon{
	IconURL:     "https://unpkg.com/leaflet@1.9.4/dist/images/marker-icon.png",
	ShadowURL:   "https://unpkg.com/leaflet@1.9.4/dist/images/marker-shadow.png",
	IconSize:    [2]int{25, 41},
	IconAnchor:  [2]int{12, 41},
	PopupAnchor: [2]int{1, -34},
	ShadowSize:  [2]int{41, 41},
}

// TileLayer is the map tile source
type TileLayer struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

var osmTiles = TileLayer{
	URL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
	Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a>`,
}

// Marker is the render descriptor of one location
type Marker struct {
	Key         string  `json:"key"`
	Lat         float64 `json:"lat"`
	Long        float64 `json:"long"`
	Title       string  `json:"title"`
	Place       string  `json:"place"`
	Coordinates string  `json:"coordinates"`
	Price       string  `json:"price"`
}

type Input struct {
	Locations    []models.LocationPoint
	Center       orb.Point
	Loading      bool
	Error        string
	SelectedCity string
}

type View struct {
	locations []models.LocationPoint

	Center    orb.Point  `json:"-"`
	LatLng    [2]float64 `json:"center"`
	Zoom      int        `json:"zoom"`
	Loading   bool       `json:"loading"`
	Error     string     `json:"error,omitempty"`
	CityBadge string     `json:"city_badge"`
	Icon      Icon       `json:"icon"`
	Tiles     TileLayer  `json:"tiles"`

	// South-west and north-east corners as [lat, lng], nil without locations
	Bounds *[2][2]float64 `json:"bounds,omitempty"`
}

func New(in Input) View {
	badge := in.SelectedCity
	if badge == "" {
		badge = allCities
	}
	var bounds *[2][2]float64
	if b, ok := geometry.Bound(in.Locations); ok {
		bounds = &[2][2]float64{
			{b.Min.Lat(), b.Min.Lon()},
			{b.Max.Lat(), b.Max.Lon()},
		}
	}

	return View{
		locations: in.Locations,
		Bounds:    bounds,
		Center:    in.Center,
		LatLng:    [2]float64{in.Center.Lat(), in.Center.Lon()},
		Zoom:      config.DefaultZoom,
		Loading:   in.Loading,
		Error:     in.Error,
		CityBadge: badge,
		Icon:      markerIcon,
		Tiles:     osmTiles,
	}
}

// Count is the number of markers the view renders
func (v View) Count() int {
	return len(v.locations)
}

// HasError reports whether the error banner is shown
func (v View) HasError() bool {
	return v.Error != ""
}

// Markers yields one marker per location, in order
func (v View) Markers() iter.Seq[Marker] {
	return func(yield func(Marker) bool) {
		for i, loc := range v.locations {
			if !yield(markerFor(i, loc)) {
				return
			}
		}
	}
}

// FeatureCollection exports the markers as GeoJSON points
func (v View) FeatureCollection() *geojson.FeatureCollection {
	return geometry.FeatureCollection(v.locations, func(i int, loc models.LocationPoint, p geojson.Properties) {
		m := markerFor(i, loc)
		p["key"] = m.Key
		p["place"] = m.Place
		p["coordinates"] = m.Coordinates
		p["price"] = m.Price
	})
}

func markerFor(i int, loc models.LocationPoint) Marker {
	lat := strconv.FormatFloat(loc.Lat, 'f', -1, 64)
	long := strconv.FormatFloat(loc.Long, 'f', -1, 64)
	return Marker{
		Key:         lat + "-" + long + "-" + strconv.Itoa(i),
		Lat:         loc.Lat,
		Long:        loc.Long,
		Title:       loc.Title,
		Place:       loc.District + ", " + loc.City,
		Coordinates: "Lat: " + FormatCoordinate(loc.Lat) + ", Long: " + FormatCoordinate(loc.Long),
		Price:       FormatPrice(loc.PriceInRp),
	}
}

// FormatCoordinate renders a coordinate with four decimals
func FormatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// FormatPrice renders a rupiah amount with Indonesian digit grouping
func FormatPrice(price float64) string {
	p := message.NewPrinter(language.Indonesian)
	if price == math.Trunc(price) && math.Abs(price) < 1<<53 {
		return "Rp " + p.Sprintf("%d", int64(price))
	}
	return "Rp " + p.Sprint(number.Decimal(price, number.MaxFractionDigits(3)))
}
