package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"rumahku/server/internal/models"
)

// Point converts a listing position to an orb point. orb stores (lon, lat).
func Point(loc models.LocationPoint) orb.Point {
	return orb.Point{loc.Long, loc.Lat}
}

// Center returns the position of the first location, or fallback when there is none
func Center(locations []models.LocationPoint, fallback orb.Point) orb.Point {
	if len(locations) == 0 {
		return fallback
	}
	return Point(locations[0])
}

// Bound returns the box around all locations. ok is false for an empty slice.
func Bound(locations []models.LocationPoint) (bound orb.Bound, ok bool) {
	if len(locations) == 0 {
		return orb.Bound{}, false
	}
	mp := make(orb.MultiPoint, len(locations))
	for i, loc := range locations {
		mp[i] = Point(loc)
	}
	return mp.Bound(), true
}

// FeatureCollection builds one point feature per location, with the bounding
// box of all of them. props may add properties to each feature.
func FeatureCollection(locations []models.LocationPoint, props func(i int, loc models.LocationPoint, p geojson.Properties)) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, loc := range locations {
		feature := geojson.NewFeature(Point(loc))
		feature.Properties["title"] = loc.Title
		feature.Properties["district"] = loc.District
		feature.Properties["city"] = loc.City
		feature.Properties["price_in_rp"] = loc.PriceInRp
		if props != nil {
			props(i, loc, feature.Properties)
		}
		fc.Append(feature)
	}
	if b, ok := Bound(locations); ok {
		fc.BBox = geojson.NewBBox(b)
	}
	return fc
}
