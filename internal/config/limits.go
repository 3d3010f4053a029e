package config

const (
	// MaxItemNameLength is the maximum length for item names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (names should be short and descriptive).
	MaxItemNameLength = 255

	// MaxLinkURLLength is the maximum length for stored link targets.
	MaxLinkURLLength = 2048
)
