// Package ecs provides ECS adapters for grove's world registry.
//
// The primary adapter is [NewDonburiStore], which bridges grove registry
// events (occurrence added or removed, selection, resync) into a [Donburi]
// world as typed events, and mirrors every registered occurrence as an
// entity carrying the [Occurrence] component.
// Subscribe to [WorldEventType] in your ECS systems to receive the events.
//
// Usage:
//
//	store := ecs.NewDonburiStore(ecsWorld)
//	world.SetEntityStore(store)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
