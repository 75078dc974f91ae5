package checkin

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// NameSource fetches every known responder name.
type NameSource interface {
	Names(ctx context.Context) ([]string, error)
}

// NameIndex holds the responder names used for autocomplete. It is loaded
// once per process and read-only afterwards.
type NameIndex struct {
	once  sync.Once
	mu    sync.RWMutex
	names []string
}

// NewNameIndex returns an index preloaded with names, mostly for tests and
// offline use. A preloaded index ignores Load.
func NewNameIndex(names ...string) *NameIndex {
	idx := &NameIndex{}
	if len(names) > 0 {
		idx.once.Do(func() {})
		idx.names = append([]string(nil), names...)
	}
	return idx
}

// Load performs the single remote read of the name list. Failures leave the
// index empty and are only logged; later calls are no-ops either way.
func (n *NameIndex) Load(ctx context.Context, src NameSource, log zerolog.Logger) {
	n.once.Do(func() {
		names, err := src.Names(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("name index unavailable, autocomplete disabled")
			return
		}
		n.mu.Lock()
		n.names = append([]string(nil), names...)
		n.mu.Unlock()
		log.Info().Int("names", len(names)).Msg("name index loaded")
	})
}

// Names returns the loaded names in index order.
func (n *NameIndex) Names() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.names
}
