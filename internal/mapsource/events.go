package mapsource

import (
	"github.com/Faultbox/midgard-terrain/internal/terrain"
)

// EventKind identifies what an EditEvent reports.
type EventKind uint8

const (
	SectionCreated EventKind = iota
	SectionDeleted
	SectionLoaded
	SectionUnloaded
	SectionLayersModified
	SectionPointHeightModified
	SectionPointLayersModified
)

var eventKindNames = [...]string{
	SectionCreated:             "SectionCreated",
	SectionDeleted:             "SectionDeleted",
	SectionLoaded:              "SectionLoaded",
	SectionUnloaded:            "SectionUnloaded",
	SectionLayersModified:      "SectionLayersModified",
	SectionPointHeightModified: "SectionPointHeightModified",
	SectionPointLayersModified: "SectionPointLayersModified",
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "EventKind(?)"
}

// EditEvent reports one mutation of the section table or a section.
// PointX and PointY are section-local and only set for point events.
// For SectionDeleted and SectionUnloaded, Section is the departing section,
// or nil when a deleted section was never loaded.
type EditEvent struct {
	Kind     EventKind
	SectionX int32
	SectionY int32
	PointX   uint32
	PointY   uint32
	Section  *terrain.Section
}

// Subscriber receives edit events synchronously on the editing goroutine.
type Subscriber func(EditEvent)

type subscription struct {
	id int
	fn Subscriber
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes it.
func (d *TerrainData) Subscribe(fn Subscriber) (unsubscribe func()) {
	d.nextSubscriberID++
	id := d.nextSubscriberID
	d.subscribers = append(d.subscribers, subscription{id: id, fn: fn})
	return func() {
		for i, s := range d.subscribers {
			if s.id == id {
				d.subscribers = append(d.subscribers[:i:i], d.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (d *TerrainData) emit(e EditEvent) {
	for _, s := range d.subscribers {
		s.fn(e)
	}
}
