package models

// LocationPoint is one comparable listing shown on the map
type LocationPoint struct {
	Lat       float64 `json:"lat"`
	Long      float64 `json:"long"`
	District  string  `json:"district"`
	City      string  `json:"city"`
	PriceInRp float64 `json:"price_in_rp"`
	Title     string  `json:"title"`
}

// PredictionResult is the price returned by the prediction backend
type PredictionResult struct {
	FormattedPrice string  `json:"formatted_price"`
	PredictedPrice float64 `json:"predicted_price"`
}

// IsEmpty reports whether no prediction is available
func (r PredictionResult) IsEmpty() bool {
	return r.FormattedPrice == ""
}
