package layout

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/lazypower/starfield/internal/seed"
)

// force is one term of the simulation. Velocity forces scale with alpha;
// center moves positions directly.
type force interface {
	name() string
	apply(s *simulation, alpha float64)
}

func (f Forces) build() []force {
	var out []force
	if f.Charge.Strength != 0 {
		out = append(out, chargeForce(f.Charge))
	}
	if f.Center.Strength != 0 {
		out = append(out, centerForce(f.Center))
	}
	if f.LevelY.Strength != 0 {
		out = append(out, levelForce(f.LevelY))
	}
	if f.CenterX.Strength != 0 {
		out = append(out, axisForce(f.CenterX))
	}
	if f.Link.Strength != 0 {
		out = append(out, linkForce(f.Link))
	}
	if f.Collide.Strength != 0 && f.Collide.Radius > 0 {
		out = append(out, collideForce(f.Collide))
	}
	return out
}

type chargeForce ChargeParams

func (chargeForce) name() string { return "charge" }

func (f chargeForce) apply(s *simulation, alpha float64) {
	w := f.Strength * alpha
	min2 := f.DistanceMin * f.DistanceMin
	for i := range s.bodies {
		for j := i + 1; j < len(s.bodies); j++ {
			d := r2.Sub(s.bodies[j].pos, s.bodies[i].pos)
			if d.X == 0 {
				d.X = s.jiggle(i, j, 'x')
			}
			if d.Y == 0 {
				d.Y = s.jiggle(i, j, 'y')
			}
			l := r2.Norm2(d)
			if l < min2 {
				l = math.Sqrt(min2 * l)
			}
			push := r2.Scale(w/l, d)
			s.bodies[i].vel = r2.Add(s.bodies[i].vel, push)
			s.bodies[j].vel = r2.Sub(s.bodies[j].vel, push)
		}
	}
}

type centerForce CenterParams

func (centerForce) name() string { return "center" }

func (f centerForce) apply(s *simulation, _ float64) {
	if len(s.bodies) == 0 {
		return
	}
	var sum r2.Vec
	for _, b := range s.bodies {
		sum = r2.Add(sum, b.pos)
	}
	mean := r2.Scale(1/float64(len(s.bodies)), sum)
	shift := r2.Scale(f.Strength, r2.Sub(s.center, mean))
	for i := range s.bodies {
		s.bodies[i].pos = r2.Add(s.bodies[i].pos, shift)
	}
}

type levelForce LevelParams

func (levelForce) name() string { return "level_y" }

func (f levelForce) apply(s *simulation, alpha float64) {
	k := f.Strength * alpha
	for i := range s.bodies {
		b := &s.bodies[i]
		if !b.hasLevel {
			continue
		}
		b.vel.Y += (b.targetY - b.pos.Y) * k
	}
}

// targetY is the band a level settles into. Levels wrap around the usable
// height so deep tiers reuse the canvas instead of leaving it.
func (f levelForce) targetY(level int, height, margin float64) float64 {
	usable := height - 2*margin
	if usable <= 0 {
		return height / 2
	}
	y := math.Mod(f.BaseOffset+float64(level)*f.Spacing, usable)
	if y < 0 {
		y += usable
	}
	return margin + y
}

type axisForce AxisParams

func (axisForce) name() string { return "center_x" }

func (f axisForce) apply(s *simulation, alpha float64) {
	k := f.Strength * alpha
	for i := range s.bodies {
		s.bodies[i].vel.X += (s.center.X - s.bodies[i].pos.X) * k
	}
}

type linkForce LinkParams

func (linkForce) name() string { return "link" }

func (f linkForce) apply(s *simulation, alpha float64) {
	for _, l := range s.links {
		src, dst := &s.bodies[l.source], &s.bodies[l.target]
		d := r2.Sub(r2.Add(dst.pos, dst.vel), r2.Add(src.pos, src.vel))
		if d.X == 0 {
			d.X = s.jiggle(l.source, l.target, 'X')
		}
		if d.Y == 0 {
			d.Y = s.jiggle(l.source, l.target, 'Y')
		}
		dist := r2.Norm(d)
		k := (dist - l.distance) / dist * alpha * f.Strength
		d = r2.Scale(k, d)
		dst.vel = r2.Sub(dst.vel, r2.Scale(l.bias, d))
		src.vel = r2.Add(src.vel, r2.Scale(1-l.bias, d))
	}
}

func (f linkForce) distance(t string) float64 {
	if t == "REL" {
		return f.RelDistance
	}
	return f.PrereqDistance
}

type collideForce CollideParams

func (collideForce) name() string { return "collide" }

// apply separates overlapping nodes using predicted positions. Like the
// usual collide force it is not scaled by alpha.
func (f collideForce) apply(s *simulation, _ float64) {
	r := 2 * f.Radius
	r2min := r * r
	for i := range s.bodies {
		pi := r2.Add(s.bodies[i].pos, s.bodies[i].vel)
		for j := i + 1; j < len(s.bodies); j++ {
			pj := r2.Add(s.bodies[j].pos, s.bodies[j].vel)
			d := r2.Sub(pi, pj)
			l := r2.Norm2(d)
			if l >= r2min {
				continue
			}
			if d.X == 0 {
				d.X = s.jiggle(i, j, 'c')
				l = r2.Norm2(d)
			}
			if d.Y == 0 {
				d.Y = s.jiggle(i, j, 'C')
				l = r2.Norm2(d)
			}
			l = math.Sqrt(l)
			push := r2.Scale((r-l)/l*f.Strength*0.5, d)
			s.bodies[i].vel = r2.Add(s.bodies[i].vel, push)
			s.bodies[j].vel = r2.Sub(s.bodies[j].vel, push)
		}
	}
}

// jiggle returns a tiny deterministic offset used when two nodes coincide
// on an axis. It keys on both node ids so the result does not depend on
// call order across runs.
func (s *simulation) jiggle(i, j int, axis byte) float64 {
	key := s.bodies[i].id + "|" + s.bodies[j].id + "|" + strconv.Itoa(int(axis))
	if v := (seed.Unit(key) - 0.5) * 1e-6; v != 0 {
		return v
	}
	return 1e-7
}
