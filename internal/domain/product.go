package domain

// Product is a downloadable item. Price is in major currency units.
type Product struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Price        int64  `json:"price" yaml:"price"`
	DownloadLink string `json:"downloadLink" yaml:"downloadLink"`
	Image        string `json:"image" yaml:"image"`
	Description  string `json:"description" yaml:"description"`
	ReadMoreLink string `json:"readMoreLink" yaml:"readMoreLink"`
}

// AmountMinor converts the major-unit price to the minor units the gateway charges.
func (p Product) AmountMinor() int64 {
	return p.Price * 100
}
