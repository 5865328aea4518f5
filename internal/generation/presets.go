package generation

// RandomRule picks Count meals tagged RequiredTag and holding none of ExcludedTags.
// Tag comparison is case-insensitive.
type RandomRule struct {
	Count        int      `mapstructure:"count" json:"count"`
	RequiredTag  string   `mapstructure:"required_tag" json:"required_tag"`
	ExcludedTags []string `mapstructure:"excluded_tags" json:"excluded_tags"`
}

// Preset is a named recipe for a week plan: meals always included by name,
// followed by tag-driven random picks evaluated in order.
type Preset struct {
	Name           string       `mapstructure:"name" json:"name"`
	Key            string       `mapstructure:"key" json:"key"`
	FixedMealNames []string     `mapstructure:"fixed_meal_names" json:"fixed_meal_names"`
	RandomRules    []RandomRule `mapstructure:"random_rules" json:"random_rules"`
}

// Catalog is an immutable, ordered set of presets.
type Catalog struct {
	presets []Preset
	byKey   map[string]int
}

// NewCatalog builds a catalog from presets. When two presets share a key the
// first one wins.
func NewCatalog(presets []Preset) *Catalog {
	c := &Catalog{
		presets: make([]Preset, 0, len(presets)),
		byKey:   make(map[string]int, len(presets)),
	}
	for _, p := range presets {
		if _, dup := c.byKey[p.Key]; dup {
			continue
		}
		c.byKey[p.Key] = len(c.presets)
		c.presets = append(c.presets, p)
	}
	return c
}

// FindPreset looks a preset up by exact key.
func (c *Catalog) FindPreset(key string) (Preset, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return Preset{}, false
	}
	return c.presets[i], true
}

// All returns the presets in declaration order.
func (c *Catalog) All() []Preset {
	out := make([]Preset, len(c.presets))
	copy(out, c.presets)
	return out
}

// Len returns the number of presets.
func (c *Catalog) Len() int {
	return len(c.presets)
}

// DefaultPresets are the household's built-in seasonal presets.
var DefaultPresets = []Preset{
	{
		Name: "Winter",
		Key:  "winter",
		FixedMealNames: []string{
			"Commande",
			"Soupe pour tous",
			"Soupe AC",
			"Soupe Y",
			"Congel AC",
			"Congel Y",
		},
		RandomRules: []RandomRule{
			{Count: 1, RequiredTag: "long", ExcludedTags: []string{"soup"}},
			{Count: 2, RequiredTag: "pasta", ExcludedTags: []string{"soup", "long"}},
			{Count: 2, RequiredTag: "rice", ExcludedTags: []string{"soup", "long", "pasta"}},
			{Count: 1, RequiredTag: "egg", ExcludedTags: []string{"soup", "long"}},
			{Count: 1, RequiredTag: "quiche", ExcludedTags: []string{"soup", "long"}},
		},
	},
	{
		Name:           "Summer",
		Key:            "summer",
		FixedMealNames: []string{"Commande", "Barbecue", "Congel AC", "Congel Y"},
		RandomRules: []RandomRule{
			{Count: 1, RequiredTag: "long", ExcludedTags: []string{}},
			{Count: 2, RequiredTag: "pasta", ExcludedTags: []string{"long"}},
			{Count: 2, RequiredTag: "rice", ExcludedTags: []string{"long", "pasta"}},
			{Count: 1, RequiredTag: "egg", ExcludedTags: []string{"long"}},
			{Count: 1, RequiredTag: "quiche", ExcludedTags: []string{"long"}},
			{Count: 1, RequiredTag: "salad", ExcludedTags: []string{"long"}},
		},
	},
}

// DefaultCatalog returns a catalog over DefaultPresets.
func DefaultCatalog() *Catalog {
	return NewCatalog(DefaultPresets)
}
