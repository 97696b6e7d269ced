package layout

import "math"

// Config holds every tunable of the simulation. It is plain data so it can
// be loaded from the config file and compared in tests.
type Config struct {
	// Iterations is the fixed tick budget. The run never goes past it.
	Iterations int `toml:"iterations"`
	// Margin keeps seeded positions off the canvas edge.
	Margin float64 `toml:"margin"`
	// VelocityDecay is the fraction of velocity lost per tick.
	VelocityDecay float64 `toml:"velocity_decay"`
	// AlphaMin sets the cooling rate: alpha reaches AlphaMin after 300 ticks.
	AlphaMin float64 `toml:"alpha_min"`
	// StopEpsilon ends the run early once mean per-node displacement in a
	// tick drops below it. Zero disables early stopping.
	StopEpsilon float64 `toml:"stop_epsilon"`
	// SettlePasses caps the overlap cleanup that runs after the last tick
	// when collision is enabled.
	SettlePasses int `toml:"settle_passes"`

	Forces Forces `toml:"forces"`
}

// Forces configures each force by name. A zero strength disables a force.
type Forces struct {
	Charge  ChargeParams  `toml:"charge"`
	Center  CenterParams  `toml:"center"`
	LevelY  LevelParams   `toml:"level_y"`
	CenterX AxisParams    `toml:"center_x"`
	Link    LinkParams    `toml:"link"`
	Collide CollideParams `toml:"collide"`
}

// ChargeParams is the many-body force. Negative strength repels.
type ChargeParams struct {
	Strength    float64 `toml:"strength"`
	DistanceMin float64 `toml:"distance_min"`
}

// CenterParams translates the mean node position onto the canvas center.
type CenterParams struct {
	Strength float64 `toml:"strength"`
}

// LevelParams pulls a node toward the horizontal band of its level:
// y = margin + (BaseOffset + level*Spacing) mod usableHeight.
type LevelParams struct {
	Strength   float64 `toml:"strength"`
	BaseOffset float64 `toml:"base_offset"`
	Spacing    float64 `toml:"spacing"`
}

// AxisParams pulls every node toward the vertical midline.
type AxisParams struct {
	Strength float64 `toml:"strength"`
}

// LinkParams is the spring between connected nodes. PREREQ links rest
// shorter than REL links; both share Strength.
type LinkParams struct {
	Strength       float64 `toml:"strength"`
	PrereqDistance float64 `toml:"prereq_distance"`
	RelDistance    float64 `toml:"rel_distance"`
}

// CollideParams keeps nodes at least 2*Radius apart.
type CollideParams struct {
	Radius   float64 `toml:"radius"`
	Strength float64 `toml:"strength"`
}

// DefaultConfig returns the parameters tuned for personal knowledge graphs
// of tens to low hundreds of nodes.
func DefaultConfig() Config {
	return Config{
		Iterations:    90,
		Margin:        22,
		VelocityDecay: 0.4,
		AlphaMin:      0.001,
		SettlePasses:  120,
		Forces: Forces{
			Charge:  ChargeParams{Strength: -120, DistanceMin: 1},
			Center:  CenterParams{Strength: 1},
			LevelY:  LevelParams{Strength: 0.12, BaseOffset: 60, Spacing: 70},
			CenterX: AxisParams{Strength: 0.04},
			Link:    LinkParams{Strength: 0.25, PrereqDistance: 60, RelDistance: 110},
			Collide: CollideParams{Radius: 14, Strength: 0.7},
		},
	}
}

// Params flattens the force configuration into name -> parameter -> value.
func (f Forces) Params() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"charge":   {"strength": f.Charge.Strength, "distance_min": f.Charge.DistanceMin},
		"center":   {"strength": f.Center.Strength},
		"level_y":  {"strength": f.LevelY.Strength, "base_offset": f.LevelY.BaseOffset, "spacing": f.LevelY.Spacing},
		"center_x": {"strength": f.CenterX.Strength},
		"link":     {"strength": f.Link.Strength, "prereq_distance": f.Link.PrereqDistance, "rel_distance": f.Link.RelDistance},
		"collide":  {"radius": f.Collide.Radius, "strength": f.Collide.Strength},
	}
}

// alphaDecay mirrors the usual cooling schedule: alpha falls from 1 to
// AlphaMin over 300 ticks.
func (c Config) alphaDecay() float64 {
	min := c.AlphaMin
	if min <= 0 || min >= 1 {
		min = 0.001
	}
	return 1 - math.Pow(min, 1.0/300)
}

// withDefaults fills zero-valued simulation settings. Force strengths are
// left alone because zero is a legitimate "off".
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Iterations <= 0 {
		c.Iterations = d.Iterations
	}
	if c.Margin < 0 {
		c.Margin = 0
	}
	if c.VelocityDecay <= 0 || c.VelocityDecay > 1 {
		c.VelocityDecay = d.VelocityDecay
	}
	if c.SettlePasses <= 0 {
		c.SettlePasses = d.SettlePasses
	}
	if c.AlphaMin <= 0 {
		c.AlphaMin = d.AlphaMin
	}
	if c.Forces.Charge.DistanceMin <= 0 {
		c.Forces.Charge.DistanceMin = d.Forces.Charge.DistanceMin
	}
	return c
}
