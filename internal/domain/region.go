package domain

// WorldRegion is the unscoped region covering every continent.
const WorldRegion = "World"

// Projection describes how the heatmap frames a region.
type Projection struct {
	Type   string    `json:"type"`
	Scale  float64   `json:"scale,omitempty"`
	Center []float64 `json:"center,omitempty"` // [lon, lat]
}

// Region is one entry of the region selector.
type Region struct {
	Name       string     `json:"name"`
	Emoji      string     `json:"emoji"`
	Projection Projection `json:"projection"`
}

// Label is the selector text, e.g. "Europe 🌍".
func (r Region) Label() string {
	return r.Name + " " + r.Emoji
}

var regions = []Region{
	{Name: WorldRegion, Emoji: "🗺️", Projection: Projection{Type: "mercator"}},
	{Name: "Asia", Emoji: "🌏", Projection: Projection{Type: "mercator"}},
	{Name: "North America", Emoji: "🌎", Projection: Projection{Type: "mercator"}},
	{Name: "South America", Emoji: "🌎", Projection: Projection{Type: "mercator"}},
	{Name: "Africa", Emoji: "🌍", Projection: Projection{Type: "mercator"}},
	{Name: "Europe", Emoji: "🌍", Projection: Projection{Type: "mercator", Scale: 275, Center: []float64{20, 60}}},
	{Name: "Oceania", Emoji: "🌏", Projection: Projection{Type: "mercator", Scale: 400, Center: []float64{150, -30}}},
}

// Regions returns the fixed region list, World first.
func Regions() []Region {
	out := make([]Region, len(regions))
	copy(out, regions)
	return out
}

// LookupRegion finds a region by exact name.
func LookupRegion(name string) (Region, bool) {
	for _, r := range regions {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}

// Continents returns the region names other than World.
func Continents() []string {
	out := make([]string, 0, len(regions)-1)
	for _, r := range regions {
		if r.Name != WorldRegion {
			out = append(out, r.Name)
		}
	}
	return out
}
