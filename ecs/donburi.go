package ecs

import (
	"github.com/phanxgames/grove"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// WorldEventType is the Donburi event type for grove registry events.
// Subscribe to this in your ECS systems to receive added, removed,
// selection and resync events.
var WorldEventType = events.NewEventType[grove.WorldEvent]()

// OccurrenceData is the component mirrored onto the entity of each
// registered occurrence.
type OccurrenceData struct {
	ID       uint32
	Name     string
	Selected bool
	Rendered bool
}

// Occurrence is the component type carrying OccurrenceData.
var Occurrence = donburi.NewComponentType[OccurrenceData]()

// DonburiStore is an EntityStore backed by a Donburi world. It publishes
// every registry event to WorldEventType and keeps one entity per
// registered occurrence.
type DonburiStore struct {
	world    donburi.World
	entities map[uint32]donburi.Entity
}

// NewDonburiStore creates an EntityStore backed by a Donburi world.
// Events are published to WorldEventType and can be consumed with
// events.Subscribe and ProcessEvents.
func NewDonburiStore(world donburi.World) *DonburiStore {
	return &DonburiStore{world: world, entities: make(map[uint32]donburi.Entity)}
}

// EmitEvent updates the mirrored entity and publishes e.
func (s *DonburiStore) EmitEvent(e grove.WorldEvent) {
	switch e.Type {
	case grove.EventOccurrenceAdded:
		entity := s.world.Create(Occurrence)
		s.entities[e.ID] = entity
		s.set(entity, e)
	case grove.EventOccurrenceRemoved:
		if entity, ok := s.entities[e.ID]; ok {
			if s.world.Valid(entity) {
				s.world.Remove(entity)
			}
			delete(s.entities, e.ID)
		}
	default:
		if entity, ok := s.entities[e.ID]; ok && s.world.Valid(entity) {
			s.set(entity, e)
		}
	}
	WorldEventType.Publish(s.world, e)
}

func (s *DonburiStore) set(entity donburi.Entity, e grove.WorldEvent) {
	Occurrence.SetValue(s.world.Entry(entity), OccurrenceData{
		ID:       e.ID,
		Name:     e.Name,
		Selected: e.Selected,
		Rendered: e.Rendered,
	})
}

// Entity returns the entity mirroring the occurrence with the given id.
func (s *DonburiStore) Entity(id uint32) (donburi.Entity, bool) {
	entity, ok := s.entities[id]
	return entity, ok
}

// Len returns the number of mirrored occurrences.
func (s *DonburiStore) Len() int {
	return len(s.entities)
}
