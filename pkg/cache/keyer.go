package cache

// Keyer derives cache keys for layouts.
type Keyer interface {
	// LayoutKey returns the key for a layout of the graph whose canonical
	// form hashes to graphHash, computed with opts.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string
}

// LayoutKeyOpts holds every option that influences computed coordinates.
// Two runs with equal graph hashes and equal options produce the same
// layout, so they may share a cache entry.
type LayoutKeyOpts struct {
	BaseY            float64  `json:"base_y"`
	BaseHeight       float64  `json:"base_height"`
	MaxLayers        int      `json:"max_layers"`
	MinSpacing       float64  `json:"min_spacing"`
	PreferredSpacing float64  `json:"preferred_spacing"`
	CenterX          float64  `json:"center_x"`
	Exclude          []string `json:"exclude,omitempty"`
	LayerOptimize    bool     `json:"layer_optimize"`
	GlobalOptimize   bool     `json:"global_optimize"`
}

// DefaultKeyer hashes the graph hash and the options into a "layout:" key.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey implements [Keyer].
func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", graphHash, opts)
}
