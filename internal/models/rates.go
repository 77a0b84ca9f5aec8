package models

import "math/cmplx"

// State is a complex state vector. Real models leave the imaginary parts at
// zero.
type State []complex128

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// Rates is a continuous-time system dx/dt = f(x, t).
type Rates interface {
	Derive(s State, t float64) State
	StateDim() int
	DefaultState() []float64
	GetParams() map[string]float64
	SetParam(name string, v float64)
}

type Pendulum struct {
	Mass, Length, Damping, Gravity float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{Mass: 1.0, Length: 1.0, Damping: 0.1, Gravity: 9.81}
}

func (p *Pendulum) StateDim() int           { return 2 }
func (p *Pendulum) DefaultState() []float64 { return []float64{0.5, 0} }

func (p *Pendulum) Derive(s State, _ float64) State {
	theta, omega := s[0], s[1]
	alpha := (complex(-p.Damping, 0)*omega - complex(p.Mass*p.Gravity*p.Length, 0)*cmplx.Sin(theta)) /
		complex(p.Mass*p.Length*p.Length, 0)
	return State{omega, alpha}
}

func (p *Pendulum) GetParams() map[string]float64 {
	return map[string]float64{"mass": p.Mass, "length": p.Length, "damping": p.Damping, "gravity": p.Gravity}
}

func (p *Pendulum) SetParam(n string, v float64) {
	switch n {
	case "mass":
		p.Mass = v
	case "length":
		p.Length = v
	case "damping":
		p.Damping = v
	case "gravity":
		p.Gravity = v
	}
}

type Lorenz struct{ Sigma, Rho, Beta float64 }

func NewLorenz() *Lorenz                  { return &Lorenz{10.0, 28.0, 8.0 / 3.0} }
func (l *Lorenz) StateDim() int           { return 3 }
func (l *Lorenz) DefaultState() []float64 { return []float64{1.0, 1.0, 1.0} }

func (l *Lorenz) Derive(s State, _ float64) State {
	sigma, rho, beta := complex(l.Sigma, 0), complex(l.Rho, 0), complex(l.Beta, 0)
	return State{sigma * (s[1] - s[0]), s[0]*(rho-s[2]) - s[1], s[0]*s[1] - beta*s[2]}
}

func (l *Lorenz) GetParams() map[string]float64 {
	return map[string]float64{"sigma": l.Sigma, "rho": l.Rho, "beta": l.Beta}
}

func (l *Lorenz) SetParam(n string, v float64) {
	switch n {
	case "sigma":
		l.Sigma = v
	case "rho":
		l.Rho = v
	case "beta":
		l.Beta = v
	}
}

// VanDerPol is the Van der Pol oscillator:
//
//	dx/dt = y
//	dy/dt = μ(1 - x²)y - x
type VanDerPol struct {
	Mu float64
}

func NewVanDerPol() *VanDerPol                { return &VanDerPol{Mu: 1.0} }
func (v *VanDerPol) StateDim() int           { return 2 }
func (v *VanDerPol) DefaultState() []float64 { return []float64{2.0, 0.0} }

func (v *VanDerPol) Derive(s State, _ float64) State {
	x, y := s[0], s[1]
	return State{y, complex(v.Mu, 0)*(1-x*x)*y - x}
}

func (v *VanDerPol) GetParams() map[string]float64 { return map[string]float64{"mu": v.Mu} }

func (v *VanDerPol) SetParam(n string, val float64) {
	if n == "mu" {
		v.Mu = val
	}
}

// Duffing is a forced nonlinear oscillator with the forcing phase carried as
// a third state.
type Duffing struct {
	Alpha, Beta, Delta, Gamma, Omega float64
}

func NewDuffing() *Duffing                  { return &Duffing{-1.0, 1.0, 0.3, 0.5, 1.2} }
func (d *Duffing) StateDim() int           { return 3 }
func (d *Duffing) DefaultState() []float64 { return []float64{1.0, 0.0, 0.0} }

func (d *Duffing) Derive(s State, _ float64) State {
	x, v, phi := s[0], s[1], s[2]
	a := complex(-d.Delta, 0)*v - complex(d.Alpha, 0)*x - complex(d.Beta, 0)*x*x*x + complex(d.Gamma, 0)*cmplx.Cos(phi)
	return State{v, a, complex(d.Omega, 0)}
}

func (d *Duffing) GetParams() map[string]float64 {
	return map[string]float64{"alpha": d.Alpha, "beta": d.Beta, "delta": d.Delta, "gamma": d.Gamma, "omega": d.Omega}
}

func (d *Duffing) SetParam(n string, v float64) {
	switch n {
	case "alpha":
		d.Alpha = v
	case "beta":
		d.Beta = v
	case "delta":
		d.Delta = v
	case "gamma":
		d.Gamma = v
	case "omega":
		d.Omega = v
	}
}

const (
	DefaultMass      = 1.0
	DefaultStiffness = 10.0
	DefaultDamping   = 0.5
)

// SpringMass is a chain of masses joined by springs, fixed at both walls.
// State is [positions..., velocities...].
type SpringMass struct {
	NumMasses int
	Masses    []float64
	Stiffness []float64 // NumMasses+1 springs
	Damping   []float64
}

func NewSpringMass() *SpringMass { return NewSpringMassChain(1) }

func NewSpringMassChain(n int) *SpringMass {
	s := &SpringMass{
		NumMasses: n,
		Masses:    make([]float64, n),
		Stiffness: make([]float64, n+1),
		Damping:   make([]float64, n),
	}
	for i := 0; i < n; i++ {
		s.Masses[i] = DefaultMass
		s.Stiffness[i] = DefaultStiffness
		s.Damping[i] = DefaultDamping
	}
	s.Stiffness[n] = DefaultStiffness
	return s
}

func (s *SpringMass) StateDim() int { return s.NumMasses * 2 }

func (s *SpringMass) DefaultState() []float64 {
	x := make([]float64, s.StateDim())
	x[0] = 0.1
	return x
}

func (s *SpringMass) Derive(x State, _ float64) State {
	n := s.NumMasses
	dx := make(State, n*2)
	copy(dx[:n], x[n:])

	for i := 0; i < n; i++ {
		pos, vel := x[i], x[n+i]
		left := pos
		if i > 0 {
			left = pos - x[i-1]
		}
		right := pos
		if i < n-1 {
			right = pos - x[i+1]
		}
		force := complex(-s.Stiffness[i], 0)*left - complex(s.Stiffness[i+1], 0)*right - complex(s.Damping[i], 0)*vel
		dx[n+i] = force / complex(s.Masses[i], 0)
	}
	return dx
}

func (s *SpringMass) GetParams() map[string]float64 {
	return map[string]float64{"mass": s.Masses[0], "stiffness": s.Stiffness[0], "damping": s.Damping[0]}
}

// SetParam applies the value to every mass, spring or damper.
func (s *SpringMass) SetParam(n string, v float64) {
	var dst []float64
	switch n {
	case "mass":
		dst = s.Masses
	case "stiffness":
		dst = s.Stiffness
	case "damping":
		dst = s.Damping
	}
	for i := range dst {
		dst[i] = v
	}
}
