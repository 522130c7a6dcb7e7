package immediate

import (
	"math"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/akmonengine/ragdoll/constraint"
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats/scalar"
)

func vec3Near(a, b mgl64.Vec3, epsilon float64) bool {
	return scalar.EqualWithinAbs(a.X(), b.X(), epsilon) &&
		scalar.EqualWithinAbs(a.Y(), b.Y(), epsilon) &&
		scalar.EqualWithinAbs(a.Z(), b.Z(), epsilon)
}

func sphereSetup(radius float64) actor.BodySetup {
	return actor.BodySetup{Shape: &actor.Sphere{Radius: radius}, Density: 1}
}

func groundSetup() actor.BodySetup {
	return actor.BodySetup{Shape: &actor.Plane{Normal: mgl64.Vec3{0, 0, 1}}}
}

// =============================================================================
// Actor Creation Tests
// =============================================================================

func TestCreateActors_InsertionOrder(t *testing.T) {
	sim := New()
	a := sim.CreateDynamicActor(sphereSetup(1), actor.NewTranslation(mgl64.Vec3{0, 0, 0}))
	b := sim.CreateKinematicActor(sphereSetup(1), actor.NewTranslation(mgl64.Vec3{5, 0, 0}))
	ground := sim.CreateStaticActor(groundSetup(), actor.NewTransform())

	if len(sim.Bodies) != 2 || sim.Bodies[0] != a || sim.Bodies[1] != b {
		t.Fatalf("Bodies = %v, want [a b]", sim.Bodies)
	}
	if len(sim.Statics) != 1 || sim.Statics[0] != ground {
		t.Fatalf("Statics = %v, want [ground]", sim.Statics)
	}
	if a.BodyType != actor.BodyTypeDynamic || b.BodyType != actor.BodyTypeKinematic || ground.BodyType != actor.BodyTypeStatic {
		t.Errorf("unexpected body types %v %v %v", a.BodyType, b.BodyType, ground.BodyType)
	}
	if sim.NumActiveBodies() != 2 {
		t.Errorf("NumActiveBodies() = %d, want 2", sim.NumActiveBodies())
	}
}

func TestSetNumActiveBodies_Clamps(t *testing.T) {
	sim := New()
	for range 3 {
		sim.CreateDynamicActor(sphereSetup(1), actor.NewTransform())
	}

	tests := []struct {
		count int
		want  int
	}{
		{-1, 0},
		{0, 0},
		{2, 2},
		{3, 3},
		{10, 3},
	}
	for _, tt := range tests {
		sim.SetNumActiveBodies(tt.count)
		if got := sim.NumActiveBodies(); got != tt.want {
			t.Errorf("SetNumActiveBodies(%d): NumActiveBodies() = %d, want %d", tt.count, got, tt.want)
		}
	}
}

// =============================================================================
// Simulate Tests
// =============================================================================

func TestSimulate_OnlyActivePrefixMoves(t *testing.T) {
	sim := New()
	first := sim.CreateDynamicActor(sphereSetup(1), actor.NewTranslation(mgl64.Vec3{0, 0, 10}))
	second := sim.CreateDynamicActor(sphereSetup(1), actor.NewTranslation(mgl64.Vec3{10, 0, 10}))
	sim.SetNumActiveBodies(1)

	sim.Simulate(1.0/30.0, mgl64.Vec3{0, 0, -10})

	if first.Transform.Position.Z() >= 10 {
		t.Errorf("active body did not fall, at %v", first.Transform.Position)
	}
	if second.Transform.Position != (mgl64.Vec3{10, 0, 10}) {
		t.Errorf("inactive body moved to %v", second.Transform.Position)
	}
	if !sim.IsActive(first) || sim.IsActive(second) {
		t.Errorf("IsActive() = %v, %v, want true, false", sim.IsActive(first), sim.IsActive(second))
	}
}

func TestSimulate_SphereRestsOnGround(t *testing.T) {
	sim := New()
	sim.CreateStaticActor(groundSetup(), actor.NewTransform())
	ball := sim.CreateDynamicActor(sphereSetup(1), actor.NewTranslation(mgl64.Vec3{0, 0, 3}))

	for range 120 {
		sim.Simulate(1.0/60.0, mgl64.Vec3{0, 0, -9.81})
	}

	if z := ball.Transform.Position.Z(); math.Abs(z-1) > 0.05 {
		t.Errorf("ball rests at z = %v, want about 1", z)
	}
}

func TestSimulate_KinematicReachesTarget(t *testing.T) {
	sim := New()
	body := sim.CreateKinematicActor(sphereSetup(1), actor.NewTransform())
	target := actor.NewTransformFrom(mgl64.Vec3{2, 0, 0}, mgl64.QuatRotate(0.5, mgl64.Vec3{0, 1, 0}))
	body.SetKinematicTarget(target)

	sim.Simulate(0.1, mgl64.Vec3{0, 0, -10})

	if !body.Transform.ApproxEqual(target, 1e-9) {
		t.Errorf("kinematic body at %v, want %v", body.Transform, target)
	}
	// the last substep covers a quarter of the move
	want := mgl64.Vec3{0.5 / 0.025, 0, 0}
	if !vec3Near(body.Velocity, want, 1e-6) {
		t.Errorf("Velocity = %v, want %v", body.Velocity, want)
	}
}

func TestSimulate_JointHoldsChain(t *testing.T) {
	sim := New()
	anchor := sim.CreateKinematicActor(sphereSetup(0.5), actor.NewTranslation(mgl64.Vec3{0, 0, 10}))
	bob := sim.CreateDynamicActor(sphereSetup(0.5), actor.NewTranslation(mgl64.Vec3{0, 0, 8}))
	joint := sim.CreateJoint(constraint.JointSetup{
		LocalAnchorA:     mgl64.Vec3{0, 0, -2},
		DisableCollision: true,
	}, anchor, bob)

	for range 60 {
		sim.Simulate(1.0/60.0, mgl64.Vec3{0, 0, -9.81})
	}

	if joint.Separation() > 0.05 {
		t.Errorf("joint separation = %v, want about 0", joint.Separation())
	}
	if !vec3Near(anchor.Transform.Position, mgl64.Vec3{0, 0, 10}, 1e-12) {
		t.Errorf("kinematic anchor moved to %v", anchor.Transform.Position)
	}
}

func TestSimulate_InactiveJointIgnored(t *testing.T) {
	sim := New()
	a := sim.CreateDynamicActor(sphereSetup(0.5), actor.NewTranslation(mgl64.Vec3{0, 0, 0}))
	b := sim.CreateDynamicActor(sphereSetup(0.5), actor.NewTranslation(mgl64.Vec3{0, 0, 5}))
	sim.CreateJoint(constraint.JointSetup{}, a, b)
	sim.SetNumActiveBodies(1)

	sim.Simulate(1.0/60.0, mgl64.Vec3{})

	if a.Transform.Position != (mgl64.Vec3{}) {
		t.Errorf("joint to an inactive body pulled the active one to %v", a.Transform.Position)
	}
}

// =============================================================================
// Collision Filter Tests
// =============================================================================

type recordingConstraint struct {
	name  string
	calls *[]string
}

func (c recordingConstraint) SolvePosition(dt float64) {
	*c.calls = append(*c.calls, c.name+" position")
}

func (c recordingConstraint) SolveVelocity(dt float64) {
	*c.calls = append(*c.calls, c.name+" velocity")
}

func TestSolveConstraints_PositionsThenVelocities(t *testing.T) {
	var calls []string
	constraints := []constraint.Constraint{
		recordingConstraint{name: "joint", calls: &calls},
		recordingConstraint{name: "contact", calls: &calls},
	}

	solvePositions(constraints, 1.0/240)
	solveVelocities(constraints, 1.0/240)

	want := []string{"joint position", "contact position", "joint velocity", "contact velocity"}
	if !slices.Equal(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestGatherConstraints_JointsFirst(t *testing.T) {
	a := actor.NewRigidBody(actor.NewTransform(), &actor.Sphere{Radius: 1}, actor.BodyTypeDynamic, 1)
	b := actor.NewRigidBody(actor.NewTranslation(mgl64.Vec3{1, 0, 0}), &actor.Sphere{Radius: 1}, actor.BodyTypeDynamic, 1)
	contact := &constraint.ContactConstraint{BodyA: a, BodyB: b, Normal: mgl64.Vec3{1, 0, 0}}
	joint := constraint.NewJoint(constraint.JointSetup{}, a, b)

	got := gatherConstraints([]*constraint.Joint{joint}, []*constraint.ContactConstraint{contact})
	if len(got) != 2 || got[0] != constraint.Constraint(joint) || got[1] != constraint.Constraint(contact) {
		t.Errorf("gatherConstraints() = %v, want [joint contact]", got)
	}
	if got := gatherConstraints(nil, nil); len(got) != 0 {
		t.Errorf("gatherConstraints(nil, nil) = %v, want empty", got)
	}
}

func TestBroadPhase_Filters(t *testing.T) {
	overlapping := func(sim *Simulation) (*actor.RigidBody, *actor.RigidBody) {
		a := sim.CreateDynamicActor(sphereSetup(1), actor.NewTranslation(mgl64.Vec3{0, 0, 0}))
		b := sim.CreateDynamicActor(sphereSetup(1), actor.NewTranslation(mgl64.Vec3{1, 0, 0}))
		return a, b
	}

	tests := []struct {
		name  string
		setup func(sim *Simulation, a, b *actor.RigidBody)
		want  int
	}{
		{"no filter", func(sim *Simulation, a, b *actor.RigidBody) {}, 1},
		{"ignored pair", func(sim *Simulation, a, b *actor.RigidBody) {
			sim.SetIgnoreCollisionPairTable([]IgnorePair{{BodyA: b, BodyB: a}})
		}, 0},
		{"ignored actor", func(sim *Simulation, a, b *actor.RigidBody) {
			sim.SetIgnoreCollisionActors([]*actor.RigidBody{a})
		}, 0},
		{"joint without collision", func(sim *Simulation, a, b *actor.RigidBody) {
			sim.CreateJoint(constraint.JointSetup{DisableCollision: true}, a, b)
		}, 0},
		{"joint with collision", func(sim *Simulation, a, b *actor.RigidBody) {
			sim.CreateJoint(constraint.JointSetup{}, a, b)
		}, 1},
		{"table replaced", func(sim *Simulation, a, b *actor.RigidBody) {
			sim.SetIgnoreCollisionPairTable([]IgnorePair{{BodyA: a, BodyB: b}})
			sim.SetIgnoreCollisionPairTable(nil)
		}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := New()
			a, b := overlapping(sim)
			tt.setup(sim, a, b)

			if got := len(sim.BroadPhase(sim.Bodies)); got != tt.want {
				t.Errorf("BroadPhase() returned %d pairs, want %d", got, tt.want)
			}
		})
	}
}

func TestBroadPhase_KinematicPairsSkipped(t *testing.T) {
	sim := New()
	sim.CreateKinematicActor(sphereSetup(1), actor.NewTransform())
	sim.CreateKinematicActor(sphereSetup(1), actor.NewTranslation(mgl64.Vec3{0.5, 0, 0}))
	sim.CreateStaticActor(groundSetup(), actor.NewTransform())

	if pairs := sim.BroadPhase(sim.Bodies); len(pairs) != 0 {
		t.Errorf("BroadPhase() returned %d pairs without a dynamic body", len(pairs))
	}
}

func TestDestroy(t *testing.T) {
	sim := New()
	body := sim.CreateDynamicActor(sphereSetup(1), actor.NewTranslation(mgl64.Vec3{0, 0, 1}))

	sim.Destroy()
	sim.Destroy()

	if len(sim.Bodies) != 0 || sim.NumActiveBodies() != 0 {
		t.Errorf("Destroy() left %d bodies, %d active", len(sim.Bodies), sim.NumActiveBodies())
	}
	if sim.CreateDynamicActor(sphereSetup(1), actor.NewTransform()) != nil {
		t.Errorf("a destroyed simulation created an actor")
	}
	sim.Simulate(0.1, mgl64.Vec3{0, 0, -10})
	if body.Transform.Position != (mgl64.Vec3{0, 0, 1}) {
		t.Errorf("a destroyed simulation moved a body")
	}
}

func TestTask_VisitsEveryElement(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 16} {
		data := make([]int, 37)
		for i := range data {
			data[i] = i
		}

		var sum atomic.Int64
		task(workers, data, func(v int) {
			sum.Add(int64(v))
		})

		if got := sum.Load(); got != 37*36/2 {
			t.Errorf("workers %d: sum = %d, want %d", workers, got, 37*36/2)
		}
	}
}
