package domain

// Field constants shared by the JSON, YAML and frontmatter representations.
const (
	// CategoryMenuPrefix prefixes menu entries that open a whole category instead of an item.
	CategoryMenuPrefix = "CAT_"

	// DefaultEscalationEmail is the human channel used for sensitive topics.
	DefaultEscalationEmail = "recepcion@humanohoteles.com"

	// DefaultHotelName is used in prompts when the catalog does not name the property.
	DefaultHotelName = "Hotel Humano"

	// DefaultHotelCity is used in prompts when the catalog does not name the city.
	DefaultHotelCity = "Miraflores, Lima, Perú"
)
