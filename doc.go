// Package grove is a retained-mode 3D scene core for [Ebitengine].
//
// Grove keeps a structural graph of occurrences and a render collection in
// step, shares representation and geometry data between every instance that
// uses it, and caches compiled display lists and bounding boxes per instance
// so unchanged geometry is replayed instead of rebuilt.
//
// # Quick start
//
// The simplest way to get started is [Run], which creates a window and game
// loop for you:
//
//	dev := grove.NewEbitenDevice(grove.DeviceConfig{})
//	world := grove.NewWorld(dev)
//	rep := grove.NewRep3D(dev, "crate", "", grove.NewBoxMesh("crate", 1, 1, 1, grove.ColorWhite))
//	world.AddOccurrence(grove.NewRepOccurrence("crate", rep), false, 0)
//	world.Frame(0, nil)
//	grove.Run(world, grove.RunConfig{
//		Title: "My Viewer", Width: 640, Height: 480,
//	})
//
// For full control, implement [ebiten.Game] yourself and call
// [World.Update] and [World.Draw] directly.
//
// # Sharing
//
// A [Rep] is a handle on a reference-counted record: [Rep.Clone] and
// [Rep.Assign] share it, [Rep.Release] gives a share up, and the record is
// freed with its last handle. A [Rep3D] also holds prototype [CacheNode]s.
// Every [ViewInstance] derived from it copies those nodes: the copies share
// the [Geometry] but each has its own [DisplayList] and [BoundingBox].
//
// Counts are plain integers. Grove is single-threaded: every handle of a
// shared record, and every [Device] call, belongs to the goroutine running
// the Ebitengine loop.
//
// # Registry
//
// [World.AddOccurrence] registers an [Occurrence] and, when it carries a
// renderable representation, the matching entry of the [Collection] under
// the same id. [World.RemoveOccurrence] undoes both. Failed calls return an
// [*InvariantError] and change nothing.
//
// # Devices
//
// All display list traffic goes through a [Device]. [EbitenDevice] draws
// with [ebiten.Image.DrawTriangles] after projecting vertices on the CPU;
// [HeadlessDevice] only keeps the books, for tools and tests.
//
// Optional integrations: tweens (via [gween]), Prometheus metrics, and ECS
// events (via the [Donburi] adapter in grove/ecs).
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
// [Donburi]: https://github.com/yohamta/donburi
package grove
