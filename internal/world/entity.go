package world

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Faultbox/midgard-terrain/pkg/formats"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// Entity is a static object owned by a loaded region.
type Entity interface {
	ID() uuid.UUID
	Release()
}

// EntityLoader turns a region chunk's entity block into entities.
type EntityLoader interface {
	LoadEntities(region formats.Coord, count uint32, data []byte) ([]Entity, error)
}

// StaticEntity is a named mesh placed in the world.
type StaticEntity struct {
	id       uuid.UUID
	Name     string
	Position math.Vec3
	Yaw      float32

	owner *StaticEntityLoader
}

// NewStaticEntity creates an entity with a fresh id.
func NewStaticEntity(name string, pos math.Vec3, yaw float32) *StaticEntity {
	return &StaticEntity{id: uuid.New(), Name: name, Position: pos, Yaw: yaw}
}

// ID returns the entity id.
func (e *StaticEntity) ID() uuid.UUID { return e.id }

// Release removes the entity from its loader's live set.
func (e *StaticEntity) Release() {
	if e.owner != nil {
		e.owner.remove(e.id)
		e.owner = nil
	}
}

// staticEntityRecord is the fixed part of an encoded StaticEntity; the name
// bytes follow it.
type staticEntityRecord struct {
	ID       [16]byte
	Position [3]float32
	Yaw      float32
	NameLen  uint16
}

// EncodeStaticEntities encodes entities as a region chunk entity block.
func EncodeStaticEntities(entities []*StaticEntity) ([]byte, error) {
	var buf bytes.Buffer
	for _, e := range entities {
		if len(e.Name) > 0xffff {
			return nil, fmt.Errorf("entity %s: name too long", e.id)
		}
		rec := staticEntityRecord{
			ID:       e.id,
			Position: [3]float32{e.Position.X, e.Position.Y, e.Position.Z},
			Yaw:      e.Yaw,
			NameLen:  uint16(len(e.Name)),
		}
		if err := binary.Write(&buf, formats.ByteOrder, rec); err != nil {
			return nil, err
		}
		buf.WriteString(e.Name)
	}
	return buf.Bytes(), nil
}

// StaticEntityLoader decodes StaticEntity blocks and tracks the live set.
type StaticEntityLoader struct {
	mu   sync.Mutex
	live map[uuid.UUID]*StaticEntity
}

// NewStaticEntityLoader creates an empty loader.
func NewStaticEntityLoader() *StaticEntityLoader {
	return &StaticEntityLoader{live: make(map[uuid.UUID]*StaticEntity)}
}

// LoadEntities decodes count entities from data.
func (l *StaticEntityLoader) LoadEntities(region formats.Coord, count uint32, data []byte) ([]Entity, error) {
	r := bytes.NewReader(data)
	decoded := make([]*StaticEntity, 0, count)
	for i := range count {
		var rec staticEntityRecord
		if err := binary.Read(r, formats.ByteOrder, &rec); err != nil {
			return nil, fmt.Errorf("%w: region (%d, %d) entity %d", formats.ErrTruncated, region.X, region.Y, i)
		}
		name, err := formats.ReadBytes(r, int(rec.NameLen), "entity name")
		if err != nil {
			return nil, err
		}
		decoded = append(decoded, &StaticEntity{
			id:       rec.ID,
			Name:     string(name),
			Position: math.Vec3{X: rec.Position[0], Y: rec.Position[1], Z: rec.Position[2]},
			Yaw:      rec.Yaw,
		})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	entities := make([]Entity, len(decoded))
	for i, e := range decoded {
		e.owner = l
		l.live[e.id] = e
		entities[i] = e
	}
	return entities, nil
}

// Live returns the number of entities loaded and not yet released.
func (l *StaticEntityLoader) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.live)
}

// Lookup returns a live entity.
func (l *StaticEntityLoader) Lookup(id uuid.UUID) (*StaticEntity, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.live[id]
	return e, ok
}

func (l *StaticEntityLoader) remove(id uuid.UUID) {
	l.mu.Lock()
	delete(l.live, id)
	l.mu.Unlock()
}
