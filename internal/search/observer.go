package search

import (
	"github.com/ezflow997/lol-finder/internal/api"
	"github.com/ezflow997/lol-finder/internal/domain"
)

// Observer receives live progress from a running search. PlayerFound fires
// synchronously, in acceptance order. Aborted is polled, not pushed; once
// it returns true the engine stops promptly and still returns whatever was
// accumulated.
type Observer interface {
	PlayerFound(player domain.DiscoveredPlayer)
	api.RateLimitObserver
}

// NopObserver is the default for headless or test use.
type NopObserver struct {
	api.NopObserver
}

func (NopObserver) PlayerFound(domain.DiscoveredPlayer) {}
