// Package ragdoll drives a local rigid body simulation from an animated skeleton and blends
// the simulated bones back into the pose.
//
// A Node is built from a PhysicsAsset and a BoneContainer. Every frame the host calls Update,
// which may gather static world geometry, then Evaluate, which steps the simulation and writes
// the simulated bones. Both calls of one node are strictly ordered, different nodes may be
// evaluated concurrently.
package ragdoll

import (
	"log/slog"
	"math"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/akmonengine/ragdoll/config"
	"github.com/akmonengine/ragdoll/immediate"
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats/scalar"
)

// substepEpsilon keeps a delta time of exactly n sub-steps from rounding up to n+1
const substepEpsilon = 1e-9

// minTransferDeltaTime is the smallest elapsed time a velocity is derived over
const minTransferDeltaTime = 1e-6

// SubstepCount returns in how many sub-steps deltaTime is simulated: enough for each to last at most
// maxStep, at least 1 and at most maxSubsteps. Leftover time is never carried to the next frame.
func SubstepCount(deltaTime, maxStep float64, maxSubsteps int) int {
	if deltaTime <= 0 || maxStep <= 0 {
		return 1
	}
	count := int(math.Ceil(deltaTime/maxStep - substepEpsilon))

	return min(max(count, 1), max(maxSubsteps, 1))
}

type Option func(*Node)

func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithSimulationFactory replaces the solver created on each initialization
func WithSimulationFactory(factory SimulationFactory) Option {
	return func(n *Node) {
		if factory != nil {
			n.newSimulation = factory
		}
	}
}

// Node is the rigid body animation node of one skeletal instance
type Node struct {
	cfg    config.Config
	asset  *PhysicsAsset
	bones  BoneContainer
	logger *slog.Logger

	newSimulation SimulationFactory
	sim           Simulation
	topology      *Topology
	outputBones   []OutputBoneEntry
	bodyEntries   map[int]int

	needsInit  bool
	initFailed bool
	lod        int
	appliedLOD int
	numActive  int

	frame          SpaceFrame
	deltaTime      float64
	resetSimulated bool

	capturedPose *capturedPose
	frozenPose   *capturedPose

	geometry           *WorldGeometryCache
	handoff            chan GeometryHandoff
	warnedWorldGeoConf bool

	forces forceQueue
}

// NewNode prepares a node; its simulation is built on the first Evaluate.
// An invalid cfg is replaced by config.Default.
func NewNode(cfg config.Config, asset *PhysicsAsset, bones BoneContainer, opts ...Option) *Node {
	n := &Node{
		asset:          asset,
		bones:          bones,
		logger:         slog.Default().With("component", "ragdoll"),
		needsInit:      true,
		appliedLOD:     INDEX_NONE,
		resetSimulated: true,
		handoff:        make(chan GeometryHandoff, 1),
	}
	n.newSimulation = func() Simulation {
		sim := immediate.New()
		sim.Workers = n.cfg.Solver.Workers
		sim.Substeps = n.cfg.Solver.Substeps
		return sim
	}
	for _, opt := range opts {
		opt(n)
	}

	if err := cfg.Validate(); err != nil {
		n.logger.Warn("ragdoll: invalid config, using the defaults", "error", err)
		cfg = config.Default()
	}
	n.cfg = cfg
	n.frame = SpaceFrame{Space: cfg.SimulationSpace, ComponentToWorld: actor.NewTransform(), RootBone: actor.NewTransform()}
	n.geometry = NewWorldGeometryCache(cfg.CachedBoundsScale)

	return n
}

// Config returns the validated settings of the node
func (n *Node) Config() config.Config {
	return n.cfg
}

// SetPhysicsAsset overrides the template, the simulation is rebuilt on the next Evaluate
func (n *Node) SetPhysicsAsset(asset *PhysicsAsset) {
	n.asset = asset
	n.needsInit = true
	n.initFailed = false
}

// Initialize (re)builds the simulation from the physics asset, seeding the bodies from pose.
// On failure the node passes the incoming pose through until the asset changes.
func (n *Node) Initialize(pose PoseSource) error {
	n.Release()
	n.needsInit = false
	n.warnedWorldGeoConf = false

	if n.bones == nil {
		n.initFailed = true
		n.logger.Warn("ragdoll: no bone container, passing the pose through")
		return ErrNilBones
	}
	n.updateRootBone(pose)

	if n.asset == nil {
		n.initFailed = true
		n.logger.Warn("ragdoll: no physics asset, passing the pose through")
		return ErrNilAsset
	}

	sim := n.newSimulation()
	topology, err := BuildTopology(n.asset, n.bones, pose, n.frame, sim, n.cfg.Solver.JointCompliance, n.logger)
	if err != nil {
		sim.Destroy()
		n.initFailed = true
		n.logger.Warn("ragdoll: simulation not built, passing the pose through", "error", err)
		return err
	}

	n.sim = sim
	n.topology = topology
	n.initFailed = false
	n.resetSimulated = true
	n.appliedLOD = INDEX_NONE
	n.applyLOD(pose)

	n.logger.Debug("ragdoll: simulation built",
		"bodies", len(topology.Bodies),
		"simulated", topology.NumSimulated,
		"joints", len(topology.Joints),
		"total_mass", topology.TotalMass,
		"active", n.numActive,
	)

	return nil
}

// SetLOD selects the required bone set; it takes effect on the next Evaluate
func (n *Node) SetLOD(lod int) {
	n.lod = max(lod, 0)
}

func (n *Node) LOD() int {
	return n.lod
}

// applyLOD activates the body prefix covering the required bones and rebuilds the output bones.
// Bodies entering the active range are seeded again before the next step.
func (n *Node) applyLOD(pose PoseSource) {
	if n.topology == nil || n.appliedLOD == n.lod {
		return
	}

	required := n.bones.RequiredBones(n.lod)
	numActive := n.topology.ActiveBodyCount(required)
	for i := n.numActive; i < numActive; i++ {
		n.topology.Bodies[i].TransformInitialized = false
	}
	n.numActive = numActive
	n.sim.SetNumActiveBodies(numActive)

	n.outputBones = BuildOutputBones(n.topology, n.bones, pose, required)
	n.bodyEntries = make(map[int]int, len(n.outputBones))
	for i, entry := range n.outputBones {
		if entry.BodyIndex != INDEX_NONE {
			n.bodyEntries[entry.BodyIndex] = i
		}
	}
	n.appliedLOD = n.lod
}

// ResetSimulation seeds every body from the pose again on the next Evaluate
func (n *Node) ResetSimulation() {
	n.resetSimulated = true
	n.frozenPose = nil
	if n.topology == nil {
		return
	}
	for i := range n.topology.Bodies {
		n.topology.Bodies[i].TransformInitialized = false
		n.topology.Bodies[i].TransferredVelocity = BodyVelocity{}
	}
}

// Release destroys the simulation. The next Evaluate builds a new one.
func (n *Node) Release() {
	if n.sim != nil {
		n.sim.Destroy()
	}
	n.sim = nil
	n.topology = nil
	n.outputBones = nil
	n.bodyEntries = nil
	n.numActive = 0
	n.appliedLOD = INDEX_NONE
	n.resetSimulated = true
	n.frozenPose = nil
	n.needsInit = true
	n.geometry.Reset()
	select {
	case <-n.handoff:
	default:
	}
}

// CapturePose records the pose the velocities are derived from when the simulation starts
func (n *Node) CapturePose(pose PoseSource) {
	if n.bones == nil {
		return
	}
	n.capturedPose = capturePose(pose, n.bones.NumBones())
}

// AddRadialForce queues a force applied on the next Evaluate. Safe for concurrent use.
func (n *Node) AddRadialForce(force RadialForce) {
	n.forces.push(force)
}

func (n *Node) PendingForces() int {
	return n.forces.len()
}

func (n *Node) Topology() *Topology {
	return n.topology
}

func (n *Node) OutputBones() []OutputBoneEntry {
	return n.outputBones
}

func (n *Node) NumActiveBodies() int {
	return n.numActive
}

func (n *Node) Geometry() *WorldGeometryCache {
	return n.geometry
}

// IsSimulating reports whether the bodies have been seeded and are being stepped
func (n *Node) IsSimulating() bool {
	return n.topology != nil && !n.resetSimulated
}

// Gravity is the gravity of the simulation, in simulation space
func (n *Node) Gravity() mgl64.Vec3 {
	return ConvertWorldVectorToSim(n.frame, n.cfg.EffectiveGravity())
}

// Update records the frame delta time and the component placement, then gathers the static
// geometry around the character when it left its cached bounds. The gathered colliders are
// handed to the next Evaluate; world is not used past this call.
func (n *Node) Update(deltaTime float64, componentToWorld actor.Transform, world WorldQuery) {
	n.deltaTime = deltaTime
	n.frame.ComponentToWorld = componentToWorld

	if !n.cfg.EnableWorldGeometry || world == nil || n.topology == nil {
		return
	}
	if n.cfg.SimulationSpace != WorldSpace {
		if !n.warnedWorldGeoConf {
			n.warnedWorldGeoConf = true
			n.logger.Warn("ragdoll: world geometry needs world space simulation, skipped", "space", n.cfg.SimulationSpace)
		}
		return
	}

	bounds, ok := n.bounds()
	if !ok || !n.geometry.NeedsQuery(bounds) {
		return
	}

	cached := n.geometry.CachedBounds
	handoff := GeometryHandoff{
		Bounds:    cached,
		Colliders: world.OverlapSphere(cached.Center, cached.Radius, n.cfg.CollisionChannel),
	}

	// a handoff not consumed yet is superseded
	select {
	case <-n.handoff:
	default:
	}
	n.handoff <- handoff
}

// bounds is the sphere around the active bodies, in simulation space
func (n *Node) bounds() (actor.Bounds, bool) {
	if n.numActive == 0 {
		return actor.Bounds{}, false
	}

	aabb := n.topology.Bodies[0].Actor.Shape.GetAABB()
	for _, body := range n.topology.Bodies[1:n.numActive] {
		aabb = aabb.Union(body.Actor.Shape.GetAABB())
	}

	return actor.BoundsFromAABB(aabb), true
}

// Evaluate steps the simulation with the delta time of the last Update and writes the simulated
// bones into out. Bones without a simulated body are left untouched, the whole pose is when the
// node has no usable simulation.
func (n *Node) Evaluate(in PoseSource, out OutputSink) {
	if n.needsInit && !n.initFailed {
		_ = n.Initialize(in)
	}
	if n.sim == nil || n.topology == nil {
		return
	}

	n.updateRootBone(in)
	n.applyLOD(in)
	n.consumeHandoff()

	deltaTime := n.deltaTime
	if deltaTime <= 0 {
		if !n.resetSimulated {
			n.writeBack(out)
		}
		return
	}

	if n.resetSimulated {
		n.start(in, deltaTime)
	} else {
		n.seedUninitialized(n.source(in))
	}

	n.step(n.source(in), deltaTime)
	n.writeBack(out)
}

func (n *Node) updateRootBone(pose PoseSource) {
	if n.frame.Space == RootBoneSpace && n.bones != nil && n.bones.NumBones() > 0 {
		n.frame.RootBone = pose.ComponentSpaceTransform(0)
	}
}

func (n *Node) consumeHandoff() {
	select {
	case handoff := <-n.handoff:
		if added := n.geometry.Integrate(n.sim, handoff.Colliders); added > 0 {
			n.logger.Debug("ragdoll: static geometry added", "added", added, "total", n.geometry.NumInserted())
		}
	default:
	}
}

// source is the pose the kinematic bodies follow
func (n *Node) source(in PoseSource) PoseSource {
	if n.frozenPose != nil {
		return n.frozenPose
	}
	return in
}

// start seeds every active body from the incoming pose and optionally gives the simulated bodies
// the velocity the animation had since CapturePose
func (n *Node) start(in PoseSource, deltaTime float64) {
	transfer := n.cfg.TransferBoneVelocities && n.capturedPose != nil &&
		!scalar.EqualWithinAbs(deltaTime, 0, minTransferDeltaTime)

	for i := range n.numActive {
		body := &n.topology.Bodies[i]
		current := in.ComponentSpaceTransform(body.BoneIndex)
		body.Actor.SetWorldTransform(ConvertCSTransformToSim(n.frame, current))
		body.TransformInitialized = true
		body.TransferredVelocity = BodyVelocity{}

		if transfer && body.Simulated {
			// derived in component space, only the directions change with the simulation space
			velocity := TransferVelocity(n.capturedPose.ComponentSpaceTransform(body.BoneIndex), current, deltaTime)
			body.TransferredVelocity = BodyVelocity{
				Linear:  ConvertCSVectorToSim(n.frame, velocity.Linear),
				Angular: ConvertCSVectorToSim(n.frame, velocity.Angular),
			}
			body.Actor.SetLinearVelocity(body.TransferredVelocity.Linear)
			body.Actor.SetAngularVelocity(body.TransferredVelocity.Angular)
		}
	}

	if n.cfg.FreezeIncomingPoseOnStart {
		n.frozenPose = capturePose(in, n.bones.NumBones())
	}
	n.capturedPose = nil
	n.resetSimulated = false
}

// TransferVelocity is the velocity moving a body from previous to current in deltaTime
func TransferVelocity(previous, current actor.Transform, deltaTime float64) BodyVelocity {
	if deltaTime <= 0 {
		return BodyVelocity{}
	}

	previous = actor.NewTransformFrom(previous.Position, previous.Rotation)
	current = actor.NewTransformFrom(current.Position, current.Rotation)
	linear := current.Position.Sub(previous.Position).Mul(1.0 / deltaTime)

	delta := current.Rotation.Mul(previous.Rotation.Inverse()).Normalize()
	if delta.W < 0 {
		delta = delta.Scale(-1)
	}
	var angular mgl64.Vec3
	if sin := delta.V.Len(); sin > 1e-12 {
		angle := 2 * math.Atan2(sin, delta.W)
		angular = delta.V.Mul(angle / (sin * deltaTime))
	}

	return BodyVelocity{Linear: linear, Angular: angular}
}

// seedUninitialized places the bodies activated since the last step. A simulated body keeps its
// animated offset to the body of its nearest ancestor, the other bodies are taken from the pose.
func (n *Node) seedUninitialized(source PoseSource) {
	bodies := n.topology.Bodies[:n.numActive]

	for i := range bodies {
		if !bodies[i].TransformInitialized && !bodies[i].Simulated {
			n.seedFromPose(&bodies[i], source)
		}
	}

	for _, entry := range n.outputBones {
		if entry.BodyIndex == INDEX_NONE || entry.BodyIndex >= len(bodies) {
			continue
		}
		body := &bodies[entry.BodyIndex]
		if body.TransformInitialized {
			continue
		}
		if entry.ParentBodyIndex != INDEX_NONE && entry.ParentBodyIndex < len(bodies) && bodies[entry.ParentBodyIndex].TransformInitialized {
			parent := bodies[entry.ParentBodyIndex].Actor.GetWorldTransform()
			body.Actor.SetWorldTransform(parent.Mul(entry.RelativeTransform()))
			body.TransformInitialized = true
			continue
		}
		n.seedFromPose(body, source)
	}

	// bodies active for the prefix but whose bone is not required
	for i := range bodies {
		if !bodies[i].TransformInitialized {
			n.seedFromPose(&bodies[i], source)
		}
	}
}

func (n *Node) seedFromPose(body *Body, source PoseSource) {
	body.Actor.SetWorldTransform(ConvertCSTransformToSim(n.frame, source.ComponentSpaceTransform(body.BoneIndex)))
	body.TransformInitialized = true
}

// step moves the kinematic bodies to the pose and advances the simulation in sub-steps
func (n *Node) step(source PoseSource, deltaTime float64) {
	bodies := n.topology.Bodies[:n.numActive]

	type kinematicMove struct {
		body   *actor.RigidBody
		start  actor.Transform
		target actor.Transform
	}
	var moves []kinematicMove
	for _, body := range bodies {
		if body.Simulated {
			continue
		}
		moves = append(moves, kinematicMove{
			body:   body.Actor,
			start:  body.Actor.GetWorldTransform(),
			target: ConvertCSTransformToSim(n.frame, source.ComponentSpaceTransform(body.BoneIndex)),
		})
	}

	radial := n.forces.drain()
	gravity := n.Gravity()
	numSubsteps := SubstepCount(deltaTime, n.cfg.MaxSubstepDeltaTime, n.cfg.MaxSubsteps)
	stepDeltaTime := deltaTime / float64(numSubsteps)

	for substep := range numSubsteps {
		alpha := float64(substep+1) / float64(numSubsteps)
		for _, move := range moves {
			move.body.SetKinematicTarget(interpolate(move.start, move.target, alpha))
		}
		applyForces(bodies, n.numActive, n.topology.TotalMass, n.frame, n.cfg.ExternalForce, radial)
		n.sim.Simulate(stepDeltaTime, gravity)
	}
}

func interpolate(from, to actor.Transform, alpha float64) actor.Transform {
	from = actor.NewTransformFrom(from.Position, from.Rotation)
	to = actor.NewTransformFrom(to.Position, to.Rotation)
	if alpha >= 1 {
		return to
	}
	position := from.Position.Add(to.Position.Sub(from.Position).Mul(alpha))
	return actor.NewTransformFrom(position, mgl64.QuatSlerp(from.Rotation, to.Rotation, alpha))
}

// writeBack outputs the simulated bones, parents before children
func (n *Node) writeBack(out OutputSink) {
	bodies := n.topology.Bodies[:n.numActive]

	for _, entry := range n.outputBones {
		switch {
		case entry.BodyIndex != INDEX_NONE:
			if entry.BodyIndex >= len(bodies) {
				continue
			}
			out.AddOutputBoneTransform(entry.BoneIndex, ConvertSimTransformToCS(n.frame, bodies[entry.BodyIndex].Actor.GetWorldTransform()))
		case entry.ParentBodyIndex != INDEX_NONE:
			if entry.ParentBodyIndex >= len(bodies) {
				continue
			}
			parent := ConvertSimTransformToCS(n.frame, bodies[entry.ParentBodyIndex].Actor.GetWorldTransform())
			out.AddOutputBoneTransform(entry.BoneIndex, parent.Mul(entry.RelativeTransform()))
		}
	}
}
