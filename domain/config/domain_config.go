package config

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Sauce detail constraints
	MinNameLength         int
	MaxNameLength         int
	MaxManufacturerLength int
	MaxDescriptionLength  int
	MaxMainPepperLength   int
	MinHeat               int
	MaxHeat               int

	// Vote handling
	MaxVoteAttempts int

	// Image handling
	ImagePathSegment   string
	AllowedImageTypes  map[string]string
	MaxImageNameLength int
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MinNameLength:         1,
		MaxNameLength:         100,
		MaxManufacturerLength: 100,
		MaxDescriptionLength:  2000,
		MaxMainPepperLength:   100,
		MinHeat:               1,
		MaxHeat:               10,

		// A vote is re-evaluated when a concurrent vote changed the voter's state
		MaxVoteAttempts: 3,

		ImagePathSegment: "/images/",
		AllowedImageTypes: map[string]string{
			"image/jpg":  "jpg",
			"image/jpeg": "jpg",
			"image/png":  "png",
			"image/webp": "webp",
		},
		MaxImageNameLength: 64,
	}
}

// ExtensionFor returns the file extension for an accepted image MIME type
func (c *DomainConfig) ExtensionFor(contentType string) (string, bool) {
	ext, ok := c.AllowedImageTypes[contentType]
	return ext, ok
}
