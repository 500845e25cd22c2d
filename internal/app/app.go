package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/guiadoapostador/tipster-api/external/wordpress"
	"github.com/guiadoapostador/tipster-api/internal/config"
	"github.com/guiadoapostador/tipster-api/internal/interfaces/httpapi"
	"github.com/guiadoapostador/tipster-api/internal/platform/cache"
	idgen "github.com/guiadoapostador/tipster-api/internal/platform/id"
	"github.com/guiadoapostador/tipster-api/internal/platform/logging"
	"github.com/guiadoapostador/tipster-api/internal/platform/resilience"
	"github.com/guiadoapostador/tipster-api/internal/usecase"
)

func NewHTTPServer(cfg config.Config, appLogger *logging.Logger, httpLogger *slog.Logger) (*http.Server, error) {
	if appLogger == nil {
		appLogger = logging.Default()
	}
	if httpLogger == nil {
		httpLogger = slog.Default()
	}

	wordpressClient := wordpress.NewClient(wordpress.ClientConfig{
		BaseURL:    cfg.WordPressBaseURL,
		PostType:   cfg.WordPressPostType,
		Timeout:    cfg.WordPressTimeout,
		MaxRetries: cfg.WordPressMaxRetries,
		MaxPages:   cfg.WordPressMaxPages,
		Logger:     appLogger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.WordPressCircuitEnabled,
			FailureThreshold: cfg.WordPressCircuitFailureCount,
			OpenTimeout:      cfg.WordPressCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.WordPressCircuitHalfOpenMaxReq,
		},
	})

	var rosterCache *cache.Store
	if cfg.CacheEnabled {
		rosterCache = cache.NewStore(cfg.CacheTTL)
	}

	directorySvc := usecase.NewDirectoryService(wordpressClient, rosterCache, appLogger)
	rankingSvc := usecase.NewRankingService(wordpressClient, directorySvc, appLogger, cfg.RankingWorkers)

	handler := httpapi.NewHandler(rankingSvc, directorySvc, httpLogger)
	router := httpapi.NewRouter(handler, idgen.NewUUIDGenerator(), httpLogger, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, nil
}
