package publication

// Platform is a publishing destination.
type Platform struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DefaultPlatforms is the fixed set of destinations seeded for every file.
var DefaultPlatforms = []Platform{
	{ID: "rezics", Name: "REZICS"},
	{ID: "kadokado", Name: "角角者"},
	{ID: "penana", Name: "Penana"},
	{ID: "popo", Name: "POPO"},
}

// LookupPlatform returns the known platform with the given id.
func LookupPlatform(id string) (Platform, bool) {
	for _, p := range DefaultPlatforms {
		if p.ID == id {
			return p, true
		}
	}
	return Platform{}, false
}

// PlatformName returns the display name for id, or id itself when unknown.
func PlatformName(id string) string {
	if p, ok := LookupPlatform(id); ok {
		return p.Name
	}
	return id
}
