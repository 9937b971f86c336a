package fx

import (
	"github.com/ezflow997/lol-finder/internal/api"
	"github.com/ezflow997/lol-finder/internal/cache"
	"github.com/ezflow997/lol-finder/internal/config"
	"github.com/ezflow997/lol-finder/internal/database"
	"github.com/ezflow997/lol-finder/internal/logger"
	"github.com/ezflow997/lol-finder/internal/scout"
	"github.com/ezflow997/lol-finder/internal/search"
	"github.com/ezflow997/lol-finder/internal/store"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// persistence
	fx.Provide(cache.New),
	fx.Provide(store.NewArchive),
	// api client
	fx.Provide(api.NewClient),
	// core
	fx.Provide(search.NewEngine),
	fx.Provide(scout.NewService),
)
