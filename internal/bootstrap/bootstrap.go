// Package bootstrap assembles the service components from configuration. Both
// the API server and the CLI build their providers here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"glowstudio/internal/adapter/repo"
	"glowstudio/internal/domain"
	"glowstudio/internal/history"
	"glowstudio/internal/imaging"
	"glowstudio/internal/infra"
	"glowstudio/internal/infra/geoip"
	"glowstudio/internal/providers/genai"
	"glowstudio/internal/providers/image"
	"glowstudio/internal/providers/prompt"
	"glowstudio/internal/session"
	"glowstudio/internal/storage"
)

// Components is everything a front end needs to drive edit sessions.
type Components struct {
	Filters   *imaging.Engine
	Generator image.Generator
	Enhancer  prompt.Enhancer
	Store     *storage.FileStore
	History   *history.Service
	Sessions  *session.Manager
	Geo       *geoip.Resolver

	pool *pgxpool.Pool
}

// Options narrows what Build wires. The CLI skips the database and GeoIP.
type Options struct {
	SkipDatabase bool
	SkipGeoIP    bool
}

// Build wires every component described by cfg. Call Close on the result.
func Build(ctx context.Context, cfg *infra.Config, logger zerolog.Logger, opts Options) (*Components, error) {
	c := &Components{}
	var err error

	if c.Filters, err = Filters(cfg, logger); err != nil {
		return nil, err
	}

	content, err := ContentClient(ctx, cfg)
	if err != nil && !errors.Is(err, genai.ErrMissingAPIKey) {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if c.Generator, err = Generator(cfg, content, logger); err != nil {
		return nil, err
	}
	if c.Enhancer, err = Enhancer(cfg, content, logger); err != nil {
		return nil, err
	}

	if c.Store, err = storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	var historyRepo domain.HistoryRepository = history.NewMemoryRepository()
	if !opts.SkipDatabase && strings.TrimSpace(cfg.DatabaseURL) != "" {
		c.pool, err = infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		pgRepo := repo.NewHistoryRepository(infra.NewSQLRunner(c.pool, logger))
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			c.Close()
			return nil, fmt.Errorf("history schema: %w", err)
		}
		historyRepo = pgRepo
	} else if !opts.SkipDatabase {
		logger.Warn().Msg("DATABASE_URL not set; edit history is kept in memory")
	}
	c.History = history.NewService(historyRepo, c.Store, cfg.HistoryLimit, logger)

	c.Sessions = session.NewManager(session.Deps{
		Filters:   c.Filters,
		Generator: c.Generator,
		Recorder:  c.History,
		Logger:    logger,
	}, cfg.SessionTTL)

	if !opts.SkipGeoIP {
		if c.Geo, err = geoip.Open(cfg.GeoIPDBPath); err != nil {
			// locale detection still works from headers
			logger.Warn().Err(err).Msg("geoip disabled")
			c.Geo = nil
		}
	}
	return c, nil
}

// Close releases the database pool and GeoIP reader and ends all sessions.
func (c *Components) Close() {
	if c.Sessions != nil {
		c.Sessions.CloseAll()
	}
	if c.Geo != nil {
		_ = c.Geo.Close()
	}
	if c.pool != nil {
		c.pool.Close()
	}
}

// Filters loads the preset catalog, overlaying FILTERS_FILE when set.
func Filters(cfg *infra.Config, logger zerolog.Logger) (*imaging.Engine, error) {
	var (
		catalog *imaging.Catalog
		err     error
	)
	if path := strings.TrimSpace(cfg.FiltersFile); path != "" {
		catalog, err = imaging.LoadCatalog(path)
	} else {
		catalog, err = imaging.DefaultCatalog()
	}
	if err != nil {
		return nil, fmt.Errorf("filter catalog: %w", err)
	}
	return imaging.NewEngine(catalog, logger), nil
}

// ContentClient returns the Gemini client, or genai.ErrMissingAPIKey when
// GEMINI_API_KEY is unset.
func ContentClient(ctx context.Context, cfg *infra.Config) (genai.ContentGenerator, error) {
	return genai.NewContentGenerator(ctx, genai.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		HTTPClient: providerHTTPClient(),
	})
}

// providerHTTPClient has no overall timeout. Image edits wait for the
// provider; the prompt enhancers bound their calls with a context deadline.
func providerHTTPClient() *http.Client {
	return &http.Client{Transport: http.DefaultTransport}
}

// Generator returns the Gemini image generator, or the synthetic one when no
// client is available.
func Generator(cfg *infra.Config, content genai.ContentGenerator, logger zerolog.Logger) (image.Generator, error) {
	if content == nil {
		logger.Warn().Msg("GEMINI_API_KEY not set; using synthetic image generator")
		return image.NewSyntheticGenerator(logger), nil
	}
	gen, err := image.NewGeminiGenerator(image.GeminiOptions{
		Client: content,
		Model:  cfg.GeminiImageModel,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("model", gen.Model()).Msg("gemini image generator ready")
	return gen, nil
}

// Enhancer builds the PROMPT_PROVIDER chain. Each remote provider falls back
// to the next and finally to the static enhancer.
func Enhancer(cfg *infra.Config, content genai.ContentGenerator, logger zerolog.Logger) (prompt.Enhancer, error) {
	log := logger.With().Str("component", "prompt_enhancer").Logger()
	onFallback := func(provider string) func(string, error) {
		return func(reason string, err error) {
			log.Warn().Err(err).Str("provider", provider).Str("reason", reason).Msg("prompt enhancer fell back")
		}
	}
	var chain prompt.Enhancer = prompt.NewStaticEnhancer()

	openAI := func(fallback prompt.Enhancer) prompt.Enhancer {
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return fallback
		}
		enh, err := prompt.NewOpenAIEnhancer(prompt.OpenAIOptions{
			APIKey:       cfg.OpenAIAPIKey,
			Model:        cfg.OpenAIModel,
			BaseURL:      cfg.OpenAIBaseURL,
			Organization: cfg.OpenAIOrg,
			Fallback:     fallback,
			OnFallback:   onFallback("openai"),
			OnWarning: func(reason, detail string) {
				log.Warn().Str("reason", reason).Str("detail", detail).Msg("openai model adjusted")
			},
		})
		if err != nil {
			log.Warn().Err(err).Msg("openai enhancer disabled")
			return fallback
		}
		return enh
	}
	gemini := func(fallback prompt.Enhancer) (prompt.Enhancer, error) {
		if content == nil {
			return fallback, nil
		}
		return prompt.NewGeminiEnhancer(prompt.GeminiOptions{
			Client:     content,
			Model:      cfg.GeminiTextModel,
			Fallback:   fallback,
			OnFallback: onFallback("gemini"),
		})
	}

	switch cfg.PromptProvider {
	case infra.PromptProviderStatic:
		return chain, nil
	case infra.PromptProviderOpenAI:
		g, err := gemini(chain)
		if err != nil {
			return nil, err
		}
		return openAI(g), nil
	default:
		return gemini(openAI(chain))
	}
}
