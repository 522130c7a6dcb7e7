package ragdoll

import (
	"cmp"
	"errors"
	"log/slog"
	"slices"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/akmonengine/ragdoll/constraint"
	"github.com/akmonengine/ragdoll/immediate"
	"github.com/go-gl/mathgl/mgl64"
)

const INDEX_NONE = -1

var (
	ErrNilAsset      = errors.New("ragdoll: no physics asset")
	ErrNilBones      = errors.New("ragdoll: no bone container")
	ErrNoBodies      = errors.New("ragdoll: physics asset has no usable body")
	ErrNilSimulation = errors.New("ragdoll: no simulation")
)

// BodyVelocity is a linear and angular velocity pair
type BodyVelocity struct {
	Linear  mgl64.Vec3
	Angular mgl64.Vec3
}

// Body is the runtime counterpart of a BodyTemplate
type Body struct {
	Actor         *actor.RigidBody
	BoneIndex     int
	TemplateIndex int
	Simulated     bool
	// TransformInitialized is false until the body has been placed from the pose
	TransformInitialized bool
	// TransferredVelocity is computed from the animation when the simulation starts
	TransferredVelocity BodyVelocity
}

func (b Body) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bone", b.BoneIndex),
		slog.Bool("simulated", b.Simulated),
		slog.Bool("initialized", b.TransformInitialized),
	)
}

// Topology is the body and joint layout of a simulation instance.
// Bodies never move once inserted: simulated bodies first, then kinematic ones,
// each partition following the bone insertion order.
type Topology struct {
	// InsertionOrder lists bone indices, bones of coarser LODs first
	InsertionOrder []int
	insertionPos   []int

	Bodies       []Body
	BoneToBody   []int
	NumSimulated int
	TotalMass    float64

	// SortedJoints are the joints with both endpoint bones present, by insertion position
	SortedJoints []JointTemplate
	Joints       []*constraint.Joint

	// CollisionDisabled lists, per body index, the bodies it never collides with
	CollisionDisabled map[int][]int
	IgnorePairs       []immediate.IgnorePair
	IgnoredActors     []*actor.RigidBody
}

// BoneInsertionOrder returns every bone required at LOD 0, bones required at a coarser
// LOD before any bone only required at a finer one
func BoneInsertionOrder(bones BoneContainer) []int {
	baseline := bones.RequiredBones(0)
	inserted := make(map[int]struct{}, len(baseline))
	order := make([]int, 0, len(baseline))

	insert := func(bone int) {
		if _, ok := inserted[bone]; !ok {
			inserted[bone] = struct{}{}
			order = append(order, bone)
		}
	}

	for lod := bones.NumLODs() - 1; lod > 0; lod-- {
		for _, bone := range bones.RequiredBones(lod) {
			insert(bone)
		}
	}
	for _, bone := range baseline {
		insert(bone)
	}

	return order
}

func insertionPositions(numBones int, order []int) []int {
	positions := make([]int, numBones)
	for i := range positions {
		positions[i] = INDEX_NONE
	}
	for pos, bone := range order {
		positions[bone] = pos
	}

	return positions
}

// InsertionPosition of a bone, INDEX_NONE when the bone was never inserted
func (t *Topology) InsertionPosition(bone int) int {
	if bone < 0 || bone >= len(t.insertionPos) {
		return INDEX_NONE
	}
	return t.insertionPos[bone]
}

// SortJoints drops the joints referencing a bone absent from the hierarchy and sorts the others by
// the insertion position of their latest endpoint. The sort is stable.
func SortJoints(joints []JointTemplate, bones BoneContainer, order []int) []JointTemplate {
	positions := insertionPositions(bones.NumBones(), order)

	type keyed struct {
		joint JointTemplate
		key   int
	}
	sorted := make([]keyed, 0, len(joints))
	for _, joint := range joints {
		bone1, ok1 := bones.BoneIndex(joint.Bone1)
		bone2, ok2 := bones.BoneIndex(joint.Bone2)
		if !ok1 || !ok2 || positions[bone1] == INDEX_NONE || positions[bone2] == INDEX_NONE {
			continue
		}
		sorted = append(sorted, keyed{joint: joint, key: max(positions[bone1], positions[bone2])})
	}

	slices.SortStableFunc(sorted, func(a, b keyed) int {
		return cmp.Compare(a.key, b.key)
	})

	result := make([]JointTemplate, len(sorted))
	for i, k := range sorted {
		result[i] = k.joint
	}

	return result
}

// topologyBuilder creates the bodies and joints of an asset inside a simulation
type topologyBuilder struct {
	asset           *PhysicsAsset
	bones           BoneContainer
	pose            PoseSource
	frame           SpaceFrame
	sim             Simulation
	jointCompliance float64
	logger          *slog.Logger
	boneToTemplate  map[int]int
	templateToBody  map[int]int
	topology        *Topology
}

// BuildTopology creates in sim one body per template whose bone exists, placed from pose, and the
// joints between them. Templates referencing unknown bones are dropped.
func BuildTopology(asset *PhysicsAsset, bones BoneContainer, pose PoseSource, frame SpaceFrame, sim Simulation, jointCompliance float64, logger *slog.Logger) (*Topology, error) {
	if asset == nil {
		return nil, ErrNilAsset
	}
	if bones == nil {
		return nil, ErrNilBones
	}
	if sim == nil {
		return nil, ErrNilSimulation
	}
	if logger == nil {
		logger = slog.Default()
	}

	order := BoneInsertionOrder(bones)
	b := &topologyBuilder{
		asset:           asset,
		bones:           bones,
		pose:            pose,
		frame:           frame,
		sim:             sim,
		jointCompliance: jointCompliance,
		logger:          logger,
		boneToTemplate:  make(map[int]int, len(asset.Bodies)),
		templateToBody:  make(map[int]int, len(asset.Bodies)),
		topology: &Topology{
			InsertionOrder:    order,
			insertionPos:      insertionPositions(bones.NumBones(), order),
			BoneToBody:        make([]int, bones.NumBones()),
			CollisionDisabled: make(map[int][]int),
		},
	}
	for i := range b.topology.BoneToBody {
		b.topology.BoneToBody[i] = INDEX_NONE
	}

	b.resolveTemplates()
	b.insertBodies(true)
	b.insertBodies(false)
	if len(b.topology.Bodies) == 0 {
		return nil, ErrNoBodies
	}
	b.buildCollisionTables()
	b.createJoints()

	return b.topology, nil
}

func (b *topologyBuilder) resolveTemplates() {
	for i, template := range b.asset.Bodies {
		bone, ok := b.bones.BoneIndex(template.BoneName)
		if !ok {
			b.logger.Warn("ragdoll: body bone not found in skeleton, body dropped", "bone", template.BoneName)
			continue
		}
		if template.Setup.Shape == nil {
			b.logger.Warn("ragdoll: body has no shape, body dropped", "bone", template.BoneName)
			continue
		}
		if previous, ok := b.boneToTemplate[bone]; ok {
			b.logger.Warn("ragdoll: bone has several bodies, first one kept", "bone", template.BoneName, "kept", previous, "dropped", i)
			continue
		}
		b.boneToTemplate[bone] = i
	}
}

// insertBodies walks the insertion order once per partition so that every simulated body
// precedes every kinematic one
func (b *topologyBuilder) insertBodies(simulatedBodies bool) {
	t := b.topology
	for _, bone := range t.InsertionOrder {
		templateIndex, ok := b.boneToTemplate[bone]
		if !ok {
			continue
		}
		template := b.asset.Bodies[templateIndex]
		simulated := template.Kind == BodyKindSimulated
		if simulated != simulatedBodies {
			continue
		}

		transform := ConvertCSTransformToSim(b.frame, b.pose.ComponentSpaceTransform(bone))

		var body *actor.RigidBody
		if simulated {
			body = b.sim.CreateDynamicActor(template.Setup, transform)
		} else {
			body = b.sim.CreateKinematicActor(template.Setup, transform)
		}
		if body == nil {
			continue
		}
		if simulated {
			t.NumSimulated++
			if inverseMass := body.GetInverseMass(); inverseMass > 0 {
				t.TotalMass += 1.0 / inverseMass
			}
		}

		bodyIndex := len(t.Bodies)
		t.Bodies = append(t.Bodies, Body{
			Actor:         body,
			BoneIndex:     bone,
			TemplateIndex: templateIndex,
			Simulated:     simulated,
		})
		t.BoneToBody[bone] = bodyIndex
		b.templateToBody[templateIndex] = bodyIndex
	}
}

func (b *topologyBuilder) buildCollisionTables() {
	t := b.topology
	for _, pair := range b.asset.DisabledCollisions {
		bodyA, okA := b.templateToBody[pair.BodyA]
		bodyB, okB := b.templateToBody[pair.BodyB]
		if !okA || !okB || bodyA == bodyB {
			continue
		}
		t.CollisionDisabled[bodyA] = append(t.CollisionDisabled[bodyA], bodyB)
		t.CollisionDisabled[bodyB] = append(t.CollisionDisabled[bodyB], bodyA)
		t.IgnorePairs = append(t.IgnorePairs, immediate.IgnorePair{BodyA: t.Bodies[bodyA].Actor, BodyB: t.Bodies[bodyB].Actor})
	}

	for _, body := range t.Bodies {
		if b.asset.Bodies[body.TemplateIndex].CollisionResponse == CollisionResponseDisabled {
			t.IgnoredActors = append(t.IgnoredActors, body.Actor)
		}
	}

	b.sim.SetIgnoreCollisionPairTable(t.IgnorePairs)
	b.sim.SetIgnoreCollisionActors(t.IgnoredActors)
}

func (b *topologyBuilder) createJoints() {
	t := b.topology
	t.SortedJoints = SortJoints(b.asset.Joints, b.bones, t.InsertionOrder)

	for _, template := range t.SortedJoints {
		bone1, _ := b.bones.BoneIndex(template.Bone1)
		bone2, _ := b.bones.BoneIndex(template.Bone2)
		index1, index2 := t.BoneToBody[bone1], t.BoneToBody[bone2]
		if index1 == INDEX_NONE || index2 == INDEX_NONE {
			b.logger.Debug("ragdoll: joint endpoint has no body, joint dropped", "bone1", template.Bone1, "bone2", template.Bone2)
			continue
		}
		body1, body2 := t.Bodies[index1], t.Bodies[index2]
		if !body1.Simulated && !body2.Simulated {
			continue
		}

		compliance := template.Compliance
		if compliance == 0 {
			compliance = b.jointCompliance
		}
		pivot := body2.Actor.Transform.Position
		setup := constraint.JointSetup{
			LocalAnchorA:     body1.Actor.Transform.InverseTransformPoint(pivot),
			LocalAnchorB:     body2.Actor.Transform.InverseTransformPoint(pivot),
			Compliance:       compliance,
			DisableCollision: template.DisableCollision,
		}
		if joint := b.sim.CreateJoint(setup, body1.Actor, body2.Actor); joint != nil {
			t.Joints = append(t.Joints, joint)
		}
	}
}

// ActiveBodyCount is the shortest prefix of the body list holding every body whose bone is in required
func (t *Topology) ActiveBodyCount(required []int) int {
	count := 0
	for _, bone := range required {
		if bone < 0 || bone >= len(t.BoneToBody) {
			continue
		}
		if index := t.BoneToBody[bone]; index != INDEX_NONE {
			count = max(count, index+1)
		}
	}

	return count
}
