package layout

import "github.com/matzehuels/flowlayout/pkg/config"

// Params are the geometric constants shared by all layout stages.
type Params struct {
	BaseY            float64
	BaseHeight       float64
	PreferredSpacing float64
	MinSpacing       float64
	CenterX          float64
	MaxLayers        int
}

// DefaultParams returns the parameters of [config.Default].
func DefaultParams() Params {
	return ParamsFromConfig(config.Default())
}

// ParamsFromConfig extracts the layout parameters from a configuration.
func ParamsFromConfig(cfg config.Config) Params {
	return Params{
		BaseY:            cfg.Layer.BaseY,
		BaseHeight:       cfg.Layer.BaseHeight,
		PreferredSpacing: cfg.Node.PreferredSpacing,
		MinSpacing:       cfg.Node.MinSpacing,
		CenterX:          cfg.Canvas.CenterX,
		MaxLayers:        cfg.Layer.MaxLayers,
	}
}

// Enforced returns the minimum gap between neighbors of one layer.
func (p Params) Enforced() float64 {
	return max(p.MinSpacing, config.EnforcedMinSpacing)
}

// LayerY returns the y coordinate of the layer at the given bottom-up step
// (0 for the deepest layer).
func (p Params) LayerY(step int) float64 {
	return p.BaseY - float64(step)*p.BaseHeight
}
