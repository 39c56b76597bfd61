package cartridge

import "go.uber.org/zap"

// Catalog indexes instantiated cartridges by id and keeps a derived reverse
// map from event name to owning cartridge.
type Catalog struct {
	games    map[string]Cartridge
	eventMap map[string]string // event name -> game id
	log      *zap.Logger
}

func NewCatalog(log *zap.Logger) *Catalog {
	return &Catalog{
		games:    make(map[string]Cartridge),
		eventMap: make(map[string]string),
		log:      log,
	}
}

// Register adds a cartridge and claims its event names. A later registration
// takes over an earlier claim to the same event name (last wins); the
// collision is logged but not fatal.
func (c *Catalog) Register(g Cartridge) {
	id := g.ID()
	if id == "" {
		c.log.Warn("cartridge has no id, skipping registration")
		return
	}
	c.games[id] = g
	c.log.Info("cartridge registered", zap.String("id", id), zap.String("name", g.Name()))

	for _, event := range g.EventNames() {
		if owner, ok := c.eventMap[event]; ok && owner != id {
			c.log.Warn("event name collision, last registered wins",
				zap.String("event", event),
				zap.String("previous", owner),
				zap.String("now", id))
		}
		c.eventMap[event] = id
	}
}

// Get returns the cartridge for an id, or nil.
func (c *Catalog) Get(id string) Cartridge {
	return c.games[id]
}

// EventOwner returns the id of the cartridge owning an event name.
func (c *Catalog) EventOwner(event string) (string, bool) {
	id, ok := c.eventMap[event]
	return id, ok
}

// AllEvents returns a copy of the event->owner map.
func (c *Catalog) AllEvents() map[string]string {
	out := make(map[string]string, len(c.eventMap))
	for event, id := range c.eventMap {
		out[event] = id
	}
	return out
}
