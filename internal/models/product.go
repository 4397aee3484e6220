package models

// Product is a catalog entry. The catalog is read-mostly and drives the
// cascade resolver; ProductCode is the unique key.
type Product struct {
	ProductCode        string `json:"product_code"`
	TradeName          string `json:"trade_name"`
	DeviceName         string `json:"device_name,omitempty"`
	ProductLine        string `json:"product_line"`
	Brand              string `json:"brand"`
	RegistrationNumber string `json:"registration_number,omitempty"`
}
