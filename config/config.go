// Package config provides the settings of a rigid body animation node.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

const (
	MinCachedBoundsScale = 1.0
	MaxCachedBoundsScale = 2.0

	// MaxSubstepsLimit bounds max_substeps, a frame is never split further
	MaxSubstepsLimit = 4
)

var (
	ErrUnknownSimulationSpace = errors.New("config: unknown simulation space")
	ErrInvalidSubsteps        = errors.New("config: max_substeps must be at least 1")
	ErrInvalidSubstepTime     = errors.New("config: max_substep_delta_time must be positive")
	ErrInvalidSolver          = errors.New("config: solver workers and substeps must be at least 1")
)

// SimulationSpace is the frame in which bodies are simulated
type SimulationSpace int

const (
	// ComponentSpace moves the simulation along with the component, its motion is not felt
	ComponentSpace SimulationSpace = iota
	// WorldSpace keeps bodies in world space, component motion drags them through joints
	WorldSpace
	// RootBoneSpace simulates relative to the root bone
	RootBoneSpace
)

var simulationSpaceNames = map[SimulationSpace]string{
	ComponentSpace: "component",
	WorldSpace:     "world",
	RootBoneSpace:  "root_bone",
}

func (s SimulationSpace) String() string {
	if name, ok := simulationSpaceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SimulationSpace(%d)", int(s))
}

// ParseSimulationSpace accepts the names used in the YAML files
func ParseSimulationSpace(name string) (SimulationSpace, error) {
	for space, n := range simulationSpaceNames {
		if n == name {
			return space, nil
		}
	}
	return ComponentSpace, fmt.Errorf("%q: %w", name, ErrUnknownSimulationSpace)
}

func (s *SimulationSpace) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	space, err := ParseSimulationSpace(name)
	if err != nil {
		return err
	}
	*s = space
	return nil
}

func (s SimulationSpace) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// SolverConfig tunes the rigid body solver owned by the node
type SolverConfig struct {
	Workers         int     `yaml:"workers"`
	Substeps        int     `yaml:"substeps"`         // solver substeps inside each node substep
	JointCompliance float64 `yaml:"joint_compliance"` // default for joints without their own compliance
}

// Config holds the settings of one node instance
type Config struct {
	SimulationSpace SimulationSpace `yaml:"simulation_space"`

	OverrideGravity bool       `yaml:"override_gravity"`
	Gravity         mgl64.Vec3 `yaml:"gravity"`
	WorldGravity    mgl64.Vec3 `yaml:"world_gravity"`
	GravityScale    float64    `yaml:"gravity_scale"`

	ExternalForce mgl64.Vec3 `yaml:"external_force"`

	EnableWorldGeometry bool    `yaml:"enable_world_geometry"`
	CollisionChannel    uint32  `yaml:"collision_channel"`
	CachedBoundsScale   float64 `yaml:"cached_bounds_scale"`

	TransferBoneVelocities    bool `yaml:"transfer_bone_velocities"`
	FreezeIncomingPoseOnStart bool `yaml:"freeze_incoming_pose_on_start"`

	MaxSubsteps         int     `yaml:"max_substeps"`
	MaxSubstepDeltaTime float64 `yaml:"max_substep_delta_time"`

	Solver SolverConfig `yaml:"solver"`
}

// Default returns the embedded defaults
func Default() Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return *cfg
}

// Parse overlays data on the embedded defaults. Only the fields present in data are overwritten.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads a YAML file merged with the embedded defaults. An empty path only loads the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Validate rejects unusable values, clamps MaxSubsteps to MaxSubstepsLimit and
// CachedBoundsScale into its range
func (c *Config) Validate() error {
	if _, ok := simulationSpaceNames[c.SimulationSpace]; !ok {
		return fmt.Errorf("%v: %w", c.SimulationSpace, ErrUnknownSimulationSpace)
	}
	if c.MaxSubsteps < 1 {
		return fmt.Errorf("got %d: %w", c.MaxSubsteps, ErrInvalidSubsteps)
	}
	if c.MaxSubstepDeltaTime <= 0 {
		return fmt.Errorf("got %v: %w", c.MaxSubstepDeltaTime, ErrInvalidSubstepTime)
	}
	if c.Solver.Workers < 1 || c.Solver.Substeps < 1 {
		return fmt.Errorf("workers %d, substeps %d: %w", c.Solver.Workers, c.Solver.Substeps, ErrInvalidSolver)
	}
	c.MaxSubsteps = min(c.MaxSubsteps, MaxSubstepsLimit)
	c.CachedBoundsScale = ClampBoundsScale(c.CachedBoundsScale)

	return nil
}

// ClampBoundsScale keeps a cached bounds scale in [1.0, 2.0]
func ClampBoundsScale(scale float64) float64 {
	return mgl64.Clamp(scale, MinCachedBoundsScale, MaxCachedBoundsScale)
}

// EffectiveGravity is the gravity applied to simulated bodies, in world space
func (c *Config) EffectiveGravity() mgl64.Vec3 {
	gravity := c.WorldGravity
	if c.OverrideGravity {
		gravity = c.Gravity
	}
	return gravity.Mul(c.GravityScale)
}

// WriteYAML saves the configuration
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
