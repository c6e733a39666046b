// Command repokit migrates the demo schema, seeds users and prints a page of
// them through the generic repository.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ammar0144/repokit/internal/models"
	"github.com/ammar0144/repokit/internal/services"
	"github.com/ammar0144/repokit/pkg/cache"
	"github.com/ammar0144/repokit/pkg/config"
	"github.com/ammar0144/repokit/pkg/db"
	"github.com/ammar0144/repokit/pkg/i18n"
	"github.com/ammar0144/repokit/pkg/logging"
	"github.com/ammar0144/repokit/pkg/repository"
)

type options struct {
	configPath string
	envFile    string
	seed       int
	query      services.UserQuery
	lang       string
}

func main() {
	var opts options
	var direction string
	flag.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flag.StringVar(&opts.envFile, "env", ".env", "dotenv file loaded before reading the environment")
	flag.IntVar(&opts.seed, "seed", 10, "number of demo users to import (0 disables seeding)")
	flag.StringVar(&opts.query.Search, "search", "", "filter users by name or email")
	flag.IntVar(&opts.query.Page, "page", 1, "page to print")
	flag.IntVar(&opts.query.PerPage, "per-page", repository.DefaultPerPage, "users per page")
	flag.StringVar(&opts.query.SortBy, "sort", "", "sort key (field or column name)")
	flag.StringVar(&direction, "direction", "asc", "sort direction (asc or desc)")
	flag.StringVar(&opts.lang, "lang", "en", "language of validation messages (Accept-Language syntax)")
	flag.Parse()
	opts.query.Direction = repository.Direction(direction)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	if err := config.LoadEnvFiles(opts.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"app":    cfg.App.Name,
		"driver": cfg.Database.Driver,
		"cache":  cfg.Cache.Enabled,
	}).Info("starting")

	manager, err := db.NewManager(&cfg.Database, db.WithLogger(log))
	if err != nil {
		return err
	}
	defer manager.Close()

	if err := manager.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	if err := manager.Migrate(ctx, models.All()...); err != nil {
		return err
	}

	repoOpts := append(services.UserScopes(),
		repository.WithDatabase(manager),
		repository.WithLogger(log),
		repository.WithCachePrefix(cfg.Cache.KeyPrefix),
	)

	registry := prometheus.NewRegistry()
	store, err := cache.NewStore(&cfg.Cache)
	switch {
	case cache.IsCacheDisabled(err):
		log.Info("cache disabled")
	case err != nil:
		return err
	default:
		repoOpts = append(repoOpts, repository.WithCache(store))
		if metered, ok := store.(interface{ Metrics() *cache.Metrics }); ok {
			registry.MustRegister(cache.NewCollector("repokit", cfg.Cache.Backend, metered.Metrics()))
		}
		if closer, ok := store.(interface{ Close() error }); ok {
			defer closer.Close()
		}
	}

	users, err := repository.NewGenericRepository[models.User](nil, repoOpts...)
	if err != nil {
		return err
	}
	permissions, err := repository.NewGenericRepository[models.Permission](nil, repository.WithDatabase(manager), repository.WithLogger(log))
	if err != nil {
		return err
	}
	roles, err := repository.NewGenericRepository[models.Role](nil, repository.WithDatabase(manager), repository.WithLogger(log))
	if err != nil {
		return err
	}

	userSvc := services.NewUserService(users, log)
	permSvc := services.NewPermissionService(permissions, roles, manager)

	admin, err := permSvc.AssignDefaults(ctx)
	if err != nil {
		return err
	}
	log.WithField("permissions", len(admin.Permissions)).Info("default permissions assigned")

	if opts.seed > 0 {
		if _, err := userSvc.Import(ctx, demoUsers(opts.seed), repository.DefaultBatchSize); err != nil {
			return err
		}
	}

	ctx = i18n.WithLanguage(ctx, i18n.Match(opts.lang))
	opts.query.BaseURL = cfg.App.BaseURL
	page, err := userSvc.Paginate(ctx, opts.query)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(page); err != nil {
		return err
	}

	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			log.WithFields(logrus.Fields{
				"metric": family.GetName(),
				"value":  metric.GetCounter().GetValue(),
			}).Debug("cache metric")
		}
	}
	return nil
}
