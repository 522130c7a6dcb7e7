package geometry

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/go-gl/mathgl/mgl64"
)

func box(id ColliderID, position mgl64.Vec3, channel uint32) Collider {
	return Collider{
		ID:        id,
		Shape:     &actor.Box{HalfExtents: mgl64.Vec3{1, 1, 1}},
		Transform: actor.NewTranslation(position),
		Channel:   channel,
	}
}

func ids(colliders []Collider) []ColliderID {
	result := make([]ColliderID, len(colliders))
	for i, c := range colliders {
		result[i] = c.ID
	}
	return result
}

func TestWorld_Add_Errors(t *testing.T) {
	world := NewWorld(10, 64)

	if err := world.Add(Collider{ID: 1}); !errors.Is(err, ErrNilShape) {
		t.Errorf("Add() without shape = %v, want ErrNilShape", err)
	}
	if err := world.Add(box(1, mgl64.Vec3{}, AllChannels)); err != nil {
		t.Fatalf("Add() = %v", err)
	}
	if err := world.Add(box(1, mgl64.Vec3{5, 0, 0}, AllChannels)); !errors.Is(err, ErrDuplicateCollider) {
		t.Errorf("Add() duplicate = %v, want ErrDuplicateCollider", err)
	}
	if world.Len() != 1 {
		t.Errorf("Len() = %d, want 1", world.Len())
	}
}

func TestWorld_OverlapSphere(t *testing.T) {
	world := NewWorld(10, 64)
	colliders := []Collider{
		box(3, mgl64.Vec3{4, 0, 0}, 0b01),
		box(1, mgl64.Vec3{0, 0, 0}, 0b01),
		box(2, mgl64.Vec3{50, 0, 0}, 0b01),
		box(4, mgl64.Vec3{0, 4, 0}, 0b10),
		{
			ID:        5,
			Shape:     &actor.Plane{Normal: mgl64.Vec3{0, 0, 1}},
			Transform: actor.NewTranslation(mgl64.Vec3{0, 0, -20}),
			Channel:   0b11,
		},
	}
	for _, c := range colliders {
		if err := world.Add(c); err != nil {
			t.Fatalf("Add(%d) = %v", c.ID, err)
		}
	}

	tests := []struct {
		name    string
		center  mgl64.Vec3
		radius  float64
		channel uint32
		want    []ColliderID
	}{
		{"channel one, sorted", mgl64.Vec3{0, 0, 0}, 5, 0b01, []ColliderID{1, 3}},
		{"channel two", mgl64.Vec3{0, 0, 0}, 5, 0b10, []ColliderID{4}},
		{"every channel", mgl64.Vec3{0, 0, 0}, 5, AllChannels, []ColliderID{1, 3, 4}},
		{"far box", mgl64.Vec3{50, 0, 3}, 2.5, AllChannels, []ColliderID{2}},
		{"reaching the plane", mgl64.Vec3{0, 0, -10}, 10, 0b10, []ColliderID{4, 5}},
		{"nothing", mgl64.Vec3{100, 100, 100}, 1, AllChannels, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(world.OverlapSphere(tt.center, tt.radius, tt.channel))
			if fmt.Sprint(got) != fmt.Sprint(tt.want) && !(len(got) == 0 && len(tt.want) == 0) {
				t.Errorf("OverlapSphere() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWorld_OverlapSphere_ReturnsCopies(t *testing.T) {
	world := NewWorld(10, 64)
	shape := &actor.Sphere{Radius: 2}
	if err := world.Add(Collider{ID: 1, Shape: shape, Transform: actor.NewTransform(), Channel: AllChannels}); err != nil {
		t.Fatalf("Add() = %v", err)
	}
	shape.Radius = 100

	got := world.OverlapSphere(mgl64.Vec3{}, 1, AllChannels)
	if len(got) != 1 {
		t.Fatalf("OverlapSphere() returned %d colliders, want 1", len(got))
	}
	if got[0].Shape.(*actor.Sphere).Radius != 2 {
		t.Errorf("the world kept a reference to the caller shape")
	}

	got[0].Shape.(*actor.Sphere).Radius = 50
	again := world.OverlapSphere(mgl64.Vec3{}, 1, AllChannels)
	if again[0].Shape.(*actor.Sphere).Radius != 2 {
		t.Errorf("a query result shares its shape with the world")
	}
}

func TestWorld_Remove(t *testing.T) {
	world := NewWorld(10, 64)
	if err := world.Add(box(1, mgl64.Vec3{}, AllChannels)); err != nil {
		t.Fatalf("Add() = %v", err)
	}

	if !world.Remove(1) {
		t.Errorf("Remove(1) = false, want true")
	}
	if world.Remove(1) {
		t.Errorf("second Remove(1) = true, want false")
	}
	if got := world.OverlapSphere(mgl64.Vec3{}, 5, AllChannels); len(got) != 0 {
		t.Errorf("OverlapSphere() = %v after removal", ids(got))
	}
}

func TestWorld_ConcurrentQueries(t *testing.T) {
	world := NewWorld(10, 64)
	for i := range 20 {
		if err := world.Add(box(ColliderID(i+1), mgl64.Vec3{float64(i) * 3, 0, 0}, AllChannels)); err != nil {
			t.Fatalf("Add() = %v", err)
		}
	}

	var wg sync.WaitGroup
	for worker := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				world.OverlapSphere(mgl64.Vec3{float64(i), 0, 0}, 5, AllChannels)
				if worker == 0 && i%10 == 0 {
					world.Add(box(ColliderID(1000+i), mgl64.Vec3{0, 50, 0}, AllChannels))
				}
			}
		}()
	}
	wg.Wait()

	if world.Len() != 25 {
		t.Errorf("Len() = %d, want 25", world.Len())
	}
}
