package deps

import (
	"time"

	"github.com/MrSnakeDoc/proxydeck/internal/cache"
	"github.com/MrSnakeDoc/proxydeck/internal/domain"
	"github.com/MrSnakeDoc/proxydeck/internal/logger"
	"github.com/MrSnakeDoc/proxydeck/internal/titles"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string

	Cache  *cache.Cache  // snapshot cache, the single source of truth
	Titles *titles.Store // display-name overrides

	// AdminURL builds a deep link into the proxy-manager admin UI.
	// Nil when no API source is configured.
	AdminURL func(kind domain.Kind, id string) string

	IncludeRedirects bool
	IncludeStreams   bool
}
