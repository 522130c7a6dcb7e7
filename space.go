package ragdoll

import (
	"github.com/akmonengine/ragdoll/actor"
	"github.com/akmonengine/ragdoll/config"
	"github.com/go-gl/mathgl/mgl64"
)

type SimulationSpace = config.SimulationSpace

const (
	ComponentSpace = config.ComponentSpace
	WorldSpace     = config.WorldSpace
	RootBoneSpace  = config.RootBoneSpace
)

// SpaceFrame gathers what converting between pose space (component space) and a simulation space needs
type SpaceFrame struct {
	Space            SimulationSpace
	ComponentToWorld actor.Transform
	// RootBone is the component space transform of the root bone
	RootBone actor.Transform
}

// ConvertCSTransformToSim maps a component space transform into the simulation space
func ConvertCSTransformToSim(frame SpaceFrame, transform actor.Transform) actor.Transform {
	switch frame.Space {
	case WorldSpace:
		return frame.ComponentToWorld.Mul(transform)
	case RootBoneSpace:
		return transform.Relative(frame.RootBone)
	}
	return transform
}

// ConvertSimTransformToCS maps a simulation space transform back to component space
func ConvertSimTransformToCS(frame SpaceFrame, transform actor.Transform) actor.Transform {
	switch frame.Space {
	case WorldSpace:
		return transform.Relative(frame.ComponentToWorld)
	case RootBoneSpace:
		return frame.RootBone.Mul(transform)
	}
	return transform
}

// ConvertWorldVectorToSim maps a world space direction (gravity, forces) into the simulation space
func ConvertWorldVectorToSim(frame SpaceFrame, vector mgl64.Vec3) mgl64.Vec3 {
	switch frame.Space {
	case ComponentSpace:
		return frame.ComponentToWorld.InverseTransformVector(vector)
	case RootBoneSpace:
		return frame.RootBone.InverseTransformVector(frame.ComponentToWorld.InverseTransformVector(vector))
	}
	return vector
}

// ConvertWorldPositionToSim maps a world space position into the simulation space
func ConvertWorldPositionToSim(frame SpaceFrame, position mgl64.Vec3) mgl64.Vec3 {
	switch frame.Space {
	case ComponentSpace:
		return frame.ComponentToWorld.InverseTransformPoint(position)
	case RootBoneSpace:
		return frame.RootBone.InverseTransformPoint(frame.ComponentToWorld.InverseTransformPoint(position))
	}
	return position
}

// ConvertCSVectorToSim maps a component space direction into the simulation space
func ConvertCSVectorToSim(frame SpaceFrame, vector mgl64.Vec3) mgl64.Vec3 {
	switch frame.Space {
	case WorldSpace:
		return frame.ComponentToWorld.TransformVector(vector)
	case RootBoneSpace:
		return frame.RootBone.InverseTransformVector(vector)
	}
	return vector
}
