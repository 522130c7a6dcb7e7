package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/akmonengine/ragdoll"
	"github.com/akmonengine/ragdoll/actor"
	"github.com/akmonengine/ragdoll/config"
	"github.com/akmonengine/ragdoll/geometry"
	"github.com/akmonengine/ragdoll/skeleton"
	"github.com/go-gl/mathgl/mgl64"
)

// SetupSkeleton creates a pelvis, spine and head chain standing 1m above the ground
func SetupSkeleton() (*skeleton.Skeleton, error) {
	s, err := skeleton.New([]skeleton.Bone{
		{Name: "pelvis", Parent: -1, Reference: actor.NewTranslation(mgl64.Vec3{0, 0, 100})},
		{Name: "spine", Parent: 0, Reference: actor.NewTranslation(mgl64.Vec3{0, 0, 30})},
		{Name: "head", Parent: 1, Reference: actor.NewTranslation(mgl64.Vec3{0, 0, 30})},
	})
	if err != nil {
		return nil, err
	}
	// far away, only the pelvis is required
	if err := s.AddLOD([]int{0}); err != nil {
		return nil, err
	}

	return s, nil
}

// SetupAsset makes the pelvis follow the animation while the spine and head fall
func SetupAsset() *ragdoll.PhysicsAsset {
	return &ragdoll.PhysicsAsset{
		Bodies: []ragdoll.BodyTemplate{
			{
				BoneName: "pelvis",
				Kind:     ragdoll.BodyKindKinematic,
				Setup:    actor.BodySetup{Shape: &actor.Box{HalfExtents: mgl64.Vec3{15, 10, 10}}, Density: 0.001},
			},
			{
				BoneName: "spine",
				Kind:     ragdoll.BodyKindSimulated,
				Setup: actor.BodySetup{
					Shape:    &actor.Box{HalfExtents: mgl64.Vec3{12, 8, 12}},
					Density:  0.001,
					Material: actor.Material{StaticFriction: 0.6, DynamicFriction: 0.4, LinearDamping: 0.1, AngularDamping: 0.1},
				},
			},
			{
				BoneName: "head",
				Kind:     ragdoll.BodyKindSimulated,
				Setup: actor.BodySetup{
					Shape:    &actor.Sphere{Radius: 10},
					Density:  0.001,
					Material: actor.Material{Restitution: 0.2, StaticFriction: 0.6, DynamicFriction: 0.4},
				},
			},
		},
		Joints: []ragdoll.JointTemplate{
			{Bone1: "pelvis", Bone2: "spine", DisableCollision: true},
			{Bone1: "spine", Bone2: "head", DisableCollision: true},
		},
		DisabledCollisions: []ragdoll.DisablePair{{BodyA: 0, BodyB: 2}},
	}
}

// SetupWorld creates the ground
func SetupWorld() (*geometry.World, error) {
	world := geometry.NewWorld(geometry.DEFAULT_CELL_SIZE, geometry.DEFAULT_NUM_CELLS)
	ground := geometry.Collider{
		ID:        1,
		Shape:     &actor.Box{HalfExtents: mgl64.Vec3{500, 500, 10}},
		Transform: actor.NewTranslation(mgl64.Vec3{0, 0, -10}),
		Channel:   geometry.AllChannels,
		Material:  actor.Material{StaticFriction: 0.8, DynamicFriction: 0.6},
	}
	if err := world.Add(ground); err != nil {
		return nil, err
	}

	return world, nil
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	csvPath := flag.String("csv", "", "Write the body trace to this CSV file")
	frames := flag.Int("frames", 180, "Number of frames to simulate")
	frameRate := flag.Float64("fps", 60, "Frames per second")
	lodSwitch := flag.Int("lod-frame", 0, "Switch to the coarsest LOD at this frame (0 = never)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("loading config", "error", err)
		os.Exit(1)
	}
	cfg.SimulationSpace = config.WorldSpace
	cfg.EnableWorldGeometry = true

	s, err := SetupSkeleton()
	if err != nil {
		logger.Error("building skeleton", "error", err)
		os.Exit(1)
	}
	world, err := SetupWorld()
	if err != nil {
		logger.Error("building world", "error", err)
		os.Exit(1)
	}

	var trace *ragdoll.TraceWriter
	if *csvPath != "" {
		f, err := os.Create(*csvPath)
		if err != nil {
			logger.Error("creating trace file", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		trace = ragdoll.NewTraceWriter(f)
	}

	node := ragdoll.NewNode(*cfg, SetupAsset(), s, ragdoll.WithLogger(logger.With("component", "ragdoll")))
	defer node.Release()

	input := skeleton.NewPose(s)
	componentToWorld := actor.NewTranslation(mgl64.Vec3{0, 0, 0})
	dt := 1.0 / *frameRate

	for frame := 1; frame <= *frames; frame++ {
		if frame == *lodSwitch {
			node.SetLOD(s.NumLODs() - 1)
		}
		if frame == *frames/2 {
			node.AddRadialForce(ragdoll.RadialForce{
				Origin:   mgl64.Vec3{-50, 0, 100},
				Radius:   200,
				Strength: 5e5,
				Falloff:  actor.RadialFalloffLinear,
			})
		}

		// the pelvis walks along X
		input.SetLocalSpaceTransform(0, actor.NewTranslation(mgl64.Vec3{float64(frame) * 0.5, 0, 100}))

		node.Update(dt, componentToWorld, world)
		output := input.Clone()
		node.Evaluate(input, output)

		if trace != nil {
			if err := trace.Write(node.Trace(frame, float64(frame)*dt)); err != nil {
				logger.Error("writing trace", "error", err)
				os.Exit(1)
			}
		}
	}

	output := input.Clone()
	node.Evaluate(input, output)
	for bone := range s.NumBones() {
		logger.Info("final pose",
			"bone", s.BoneName(bone),
			"position", output.ComponentSpaceTransform(bone).Position,
		)
	}
	logger.Info("done",
		"static_colliders", node.Geometry().NumInserted(),
		"geometry_queries", node.Geometry().Queries(),
		"active_bodies", node.NumActiveBodies(),
	)
}
