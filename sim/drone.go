package sim

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/parmira/forensic"
)

// Physical truth of the flight model, in arena units per frame.
const (
	Width       = 1200
	Height      = 750
	Gravity     = 0.08
	Mass        = 2.0
	AirDensity  = 1.225
	CruiseSpeed = 0.35
	Gain        = 0.05

	// NominalVoltage is the pack voltage at full power.
	NominalVoltage = 12.0

	margin        = 50
	arrivalRadius = 5
	dragCoeff     = 0.01
	dropRate      = 0.3
	shake         = 2.0
)

type vec struct{ X, Y float64 }

func (v vec) add(o vec) vec       { return vec{v.X + o.X, v.Y + o.Y} }
func (v vec) sub(o vec) vec       { return vec{v.X - o.X, v.Y - o.Y} }
func (v vec) scale(k float64) vec { return vec{v.X * k, v.Y * k} }
func (v vec) length() float64     { return math.Hypot(v.X, v.Y) }
func (v vec) pair() [2]float64    { return [2]float64{v.X, v.Y} }
func vecOf(p [2]float64) vec      { return vec{p[0], p[1]} }
func (v vec) normalize() vec {
	if l := v.length(); l > 0 {
		return v.scale(1 / l)
	}
	return vec{}
}

// Option configures a Drone.
type Option func(*Drone)

// WithSeed makes attack noise and packet loss reproducible.
func WithSeed(seed uint64) Option {
	return func(d *Drone) {
		d.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithSpawn sets the starting position. Defaults to (100, 500).
func WithSpawn(x, y float64) Option {
	return func(d *Drone) {
		d.pos = vec{x, y}
	}
}

// WithTarget sets the mission target. Defaults to (1000, 350).
func WithTarget(x, y float64) Option {
	return func(d *Drone) {
		d.target = vec{x, y}
		d.reported = d.target
	}
}

// Drone is a simulated blackbox drone. It is not safe for concurrent use.
type Drone struct {
	pos, vel vec

	// target is the mission truth; reported is what the controller sees.
	target, reported vec
	imuBias          vec

	sensedG, sensedRho, sensedMass float64
	gain                           float64
	power                          float64
	packetLoss                     bool

	hacks  map[Hack]bool
	rng    *rand.Rand
	frame  int
	record int
}

// New creates a drone hovering at its spawn point with nominal sensors.
func New(opts ...Option) *Drone {
	d := &Drone{
		pos:    vec{100, 500},
		target: vec{1000, 350},
		hacks:  make(map[Hack]bool),
	}
	d.reported = d.target
	for _, opt := range opts {
		opt(d)
	}
	if d.rng == nil {
		d.rng = rand.New(rand.NewPCG(1, 1))
	}
	d.restore(forensic.InjectedTruth{
		G:      Gravity,
		Rho:    AirDensity,
		Mass:   Mass,
		Target: d.target.pair(),
		Gain:   Gain,
	})
	return d
}

func (d *Drone) restore(truth forensic.InjectedTruth) {
	d.sensedG = truth.G
	d.sensedRho = truth.Rho
	d.sensedMass = truth.Mass
	d.gain = truth.Gain
	d.target = vecOf(truth.Target)
	d.reported = d.target
	d.imuBias = vec{}
	d.power = 1.0
	d.packetLoss = false
	clear(d.hacks)
}

// Inject applies attacks. Injecting an active attack again has no effect.
func (d *Drone) Inject(hacks ...Hack) {
	for _, h := range hacks {
		switch h {
		case HackGPSSpoof:
			d.reported = vec{200, 100}
		case HackIMUDrift:
			d.imuBias = vec{500, -300}
		case HackGravity:
			d.sensedG = 0.5
		case HackRhoNull:
			d.sensedRho = 0
		case HackGain:
			d.gain = 0.8
		case HackGainInversion:
			d.gain = -0.06
			d.sensedG = 0.15
			d.power = 1.4
		case HackBrownout:
			d.power = 0.3
		case HackPacketLoss:
			d.packetLoss = true
		case HackMassSpoof:
			d.sensedMass = 50.0
		default:
			continue
		}
		d.hacks[h] = true
	}
}

// Apply restores ground truth from a forensic report: the drone respawns at
// the reset position at rest, sensors take the injected truth, power returns
// to nominal and every attack is cleared.
func (d *Drone) Apply(reset forensic.SimulationReset) {
	d.pos = vecOf(reset.SpawnAt)
	d.vel = vec{}
	d.restore(reset.InjectedTruth)
}

// Step advances the simulation by one frame.
func (d *Drone) Step() {
	d.frame++
	if d.packetLoss && d.rng.Float64() < dropRate {
		return
	}

	targetErr := d.reported.add(d.imuBias).sub(d.pos)
	liftReq := d.sensedMass * d.sensedG

	var steering vec
	if targetErr.length() > arrivalRadius {
		desired := targetErr.normalize().scale(CruiseSpeed)
		steering = desired.sub(d.vel).scale(d.gain)
	} else {
		steering = d.vel.scale(-0.1)
	}

	thrust := steering.add(vec{0, -liftReq}).scale(d.power)
	if d.hacks[HackGain] {
		thrust = thrust.add(vec{
			(d.rng.Float64()*2 - 1) * shake,
			(d.rng.Float64()*2 - 1) * shake,
		})
	}

	ax := (thrust.X - d.vel.X*dragCoeff*AirDensity) / Mass
	ay := (thrust.Y - d.vel.Y*dragCoeff*AirDensity + Gravity*Mass) / Mass

	d.vel = d.vel.add(vec{ax, ay})
	d.pos = d.pos.add(d.vel)
	d.pos.X = min(max(d.pos.X, margin), Width-margin)
	d.pos.Y = min(max(d.pos.Y, margin), Height-margin)
}

// Sample records the current state as the next telemetry record.
func (d *Drone) Sample() forensic.TelemetrySample {
	s := forensic.TelemetrySample{
		Index:    d.record,
		Pos:      [2]float64{round(d.pos.X, 1), round(d.pos.Y, 1)},
		SensedG:  round(d.sensedG, 3),
		Voltage:  round(d.power*NominalVoltage, 1),
		Gain:     round(d.gain, 3),
		Velocity: round(d.vel.length(), 3),
	}
	d.record++
	return s
}

// Capture steps the drone for frames frames, recording a sample before the
// first step and then every every frames.
func (d *Drone) Capture(frames, every int) []forensic.TelemetrySample {
	if every <= 0 {
		every = 1
	}
	var samples []forensic.TelemetrySample
	for i := 0; i < frames; i++ {
		if i%every == 0 {
			samples = append(samples, d.Sample())
		}
		d.Step()
	}
	return samples
}

// Position returns the drone's true position.
func (d *Drone) Position() [2]float64 {
	return d.pos.pair()
}

// DistanceToTarget returns how far the drone is from the mission target.
func (d *Drone) DistanceToTarget() float64 {
	return d.target.sub(d.pos).length()
}

// Frame returns the number of frames simulated.
func (d *Drone) Frame() int {
	return d.frame
}

// Constants returns the physical constants the controller currently
// believes, in the shape of a report's injected truth.
func (d *Drone) Constants() forensic.InjectedTruth {
	return forensic.InjectedTruth{
		G:      d.sensedG,
		Rho:    d.sensedRho,
		Mass:   d.sensedMass,
		Target: d.reported.pair(),
		Gain:   d.gain,
	}
}

// Active returns the attacks in effect, sorted by name.
func (d *Drone) Active() []Hack {
	hacks := make([]Hack, 0, len(d.hacks))
	for h := range d.hacks {
		hacks = append(hacks, h)
	}
	slices.Sort(hacks)
	return hacks
}

// Compromised reports whether any attack is in effect.
func (d *Drone) Compromised() bool {
	return len(d.hacks) > 0
}

// Flight records a nominal segment followed by an attacked one, sampling
// every every frames.
func Flight(d *Drone, nominal, attacked, every int, hacks ...Hack) []forensic.TelemetrySample {
	samples := d.Capture(nominal, every)
	d.Inject(hacks...)
	return append(samples, d.Capture(attacked, every)...)
}

// Encode formats samples as the JSON array text audits accept.
func Encode(samples []forensic.TelemetrySample) (string, error) {
	data, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
