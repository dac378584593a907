package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"sjsage522/pricecheckworker/config"
	"sjsage522/pricecheckworker/helpers"
	"sjsage522/pricecheckworker/internal/crawler"
	"sjsage522/pricecheckworker/internal/observability"
	"sjsage522/pricecheckworker/logger"
	"sjsage522/pricecheckworker/services/cache"
	"sjsage522/pricecheckworker/services/publisher"
	"sjsage522/pricecheckworker/services/sheet"
	"sjsage522/pricecheckworker/services/worker"

	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	var inputPath, outputPath string
	flag.StringVar(&inputPath, "entrada", "", "Ruta del archivo Excel con los productos")
	flag.StringVar(&inputPath, "e", "", "Ruta del archivo Excel con los productos (corto)")
	flag.StringVar(&outputPath, "salida", "", "Ruta donde guardar el archivo con los resultados")
	flag.StringVar(&outputPath, "s", "", "Ruta donde guardar el archivo con los resultados (corto)")
	flag.Parse()

	// Load environment variables
	godotenv.Load()

	logger.Init()
	log := logger.Default

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return 1
	}

	var err error
	cfg.InputPath, cfg.OutputPath, err = resolvePaths(inputPath, outputPath, os.Stdin, os.Stdout)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read file paths")
		return 1
	}

	helpers.SetTimeout(cfg.HTTPTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	services := initializeServices(ctx, &cfg)
	defer services.Cleanup()

	searcher := crawler.NewSearcher(crawler.SearchConfig{
		BaseURL:        cfg.SearchBaseURL,
		UserAgent:      cfg.UserAgent,
		AcceptLanguage: cfg.AcceptLanguage,
		CacheTTL:       cfg.CacheTTL,
		BlockTime:      cfg.RateLimitBlock,
		Selectors:      crawler.MercadoLibreSelectors,
	}, services.Cache)

	w := worker.NewWorker(
		ctx,
		searcher,
		sheet.NewExcelStore(),
		services.Publisher,
		helpers.NewLogger(cfg.ErrorLogFile),
		worker.Options{
			CheckpointEvery: cfg.CheckpointEvery,
			MinDelay:        cfg.MinDelay,
			MaxDelay:        cfg.MaxDelay,
		},
	)

	log.Info().
		Str("environment", cfg.Environment).
		Str("input", cfg.InputPath).
		Str("output", cfg.OutputPath).
		Str("marketplace", cfg.SearchBaseURL).
		Msg("Starting price search")

	if _, err := w.Run(cfg.InputPath, cfg.OutputPath); err != nil {
		log.Error().Err(err).Msg("Price search aborted")
		return 1
	}

	return 0
}

// resolvePaths uses the flag values when both are set and prompts for both otherwise.
// Paths without a spreadsheet extension get ".xlsx".
func resolvePaths(inputPath, outputPath string, in io.Reader, out io.Writer) (string, string, error) {
	if inputPath == "" || outputPath == "" {
		reader := bufio.NewReader(in)

		var err error
		inputPath, err = prompt(reader, out, "Ingresa la ruta del archivo Excel con los productos: ")
		if err != nil {
			return "", "", err
		}
		outputPath, err = prompt(reader, out, "Ingresa la ruta donde guardar el archivo con los resultados: ")
		if err != nil {
			return "", "", err
		}
	}

	return helpers.EnsureSpreadsheetExt(inputPath), helpers.EnsureSpreadsheetExt(outputPath), nil
}

func prompt(reader *bufio.Reader, out io.Writer, question string) (string, error) {
	fmt.Fprint(out, question)
	line, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Services holds the optional backing services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices connects the services enabled in the configuration.
// A service that cannot be reached is left out and the run continues without it.
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	services := &Services{}

	if cfg.MemcacheAddr != "" {
		cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := cacheService.Ping(); err != nil {
			logger.ForCache().Warn().Err(err).Msg("Memcache unavailable, running without cache")
		} else {
			services.Cache = cacheService
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(); err != nil {
			logger.ForPublisher().Warn().Err(err).Msg("Redis unavailable, results will not be published")
			redisPublisher.Close()
		} else {
			services.Publisher = redisPublisher
			logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
				cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
		}
	}

	if cfg.MetricsPort != "" {
		if err := observability.Start(cfg.MetricsPort); err != nil {
			logger.LogError("metrics", err, "failed to start metrics server")
		} else {
			logger.Info("Serving metrics on :%s/metrics", cfg.MetricsPort)
		}
	}

	return services
}
