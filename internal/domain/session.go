package domain

import "time"

// Category enumerates the supported listing categories.
type Category string

const (
	CategoryVehicle     Category = "vehicle"
	CategoryProperty    Category = "property"
	CategoryElectronics Category = "electronics"
	CategoryFurniture   Category = "furniture"
	CategoryGeneral     Category = "general"
)

var categories = map[Category]struct{}{
	CategoryVehicle:     {},
	CategoryProperty:    {},
	CategoryElectronics: {},
	CategoryFurniture:   {},
	CategoryGeneral:     {},
}

// ValidCategory reports whether c is one of the supported categories.
func ValidCategory(c Category) bool {
	_, ok := categories[c]
	return ok
}

// Session is one batch of staged listing screenshots awaiting payment and
// report generation. The metadata and every screenshot share the same
// store-enforced expiry horizon; nothing here outlives the TTL.
type Session struct {
	ID              string    `json:"id"`
	Category        Category  `json:"category"`
	ScreenshotCount int       `json:"screenshot_count"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// Screenshot is one staged upload reclaimed from the store.
type Screenshot struct {
	Data        []byte
	ContentType string
}
