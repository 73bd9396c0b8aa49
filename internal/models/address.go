package models

// Address is a geocoded address as returned by the address search API. The pair
// (Latitude, Longitude) identifies it: no two stored addresses share coordinates.
type Address struct {
	ID          int64   `json:"id"`
	Label       string  `json:"label"`
	HouseNumber *string `json:"housenumber"`
	Street      *string `json:"street"`
	Postcode    string  `json:"postcode"`
	CityCode    string  `json:"citycode"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}
