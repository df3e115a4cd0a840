package machine

// Category classifies a dispensed mission.
type Category string

const (
	CategoryConnection    Category = "Connection"
	CategoryCreativity    Category = "Creativity"
	CategoryAdventure     Category = "Adventure"
	CategoryLearning      Category = "Learning"
	CategorySelfDiscovery Category = "Self-Discovery"
)

// Categories lists every mission category.
func Categories() []Category {
	return []Category{
		CategoryConnection,
		CategoryCreativity,
		CategoryAdventure,
		CategoryLearning,
		CategorySelfDiscovery,
	}
}

// Valid reports whether c is one of the five declared categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryConnection, CategoryCreativity, CategoryAdventure,
		CategoryLearning, CategorySelfDiscovery:
		return true
	}
	return false
}

// categoryColors maps each category to the CSS variable the front-end paints
// the mission card with.
var categoryColors = map[Category]string{
	CategoryConnection:    "var(--mission-connection)",
	CategoryCreativity:    "var(--mission-creativity)",
	CategoryAdventure:     "var(--mission-adventure)",
	CategoryLearning:      "var(--mission-learning)",
	CategorySelfDiscovery: "var(--mission-self)",
}

// Color returns the display color for the category.
func (c Category) Color() string {
	return categoryColors[c]
}

// Mission is what the serendipity dispenser hands out.
type Mission struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Color       string   `json:"color"`
}

// Transmutation is the temple's reframing of a burden.
type Transmutation struct {
	Original string `json:"original"`
	Insight  string `json:"insight"`
	Wisdom   string `json:"wisdom"`
}
