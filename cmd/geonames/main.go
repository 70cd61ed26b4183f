// Command geonames loads GeoNames dumps and maintains the derived data.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alexivanou/georef/internal/config"
	"github.com/alexivanou/georef/internal/database"
	"github.com/alexivanou/georef/internal/importer"
	"github.com/alexivanou/georef/internal/model"
	"github.com/alexivanou/georef/internal/repository"
	"github.com/alexivanou/georef/internal/search"
	"github.com/alexivanou/georef/internal/service"
	"github.com/alexivanou/georef/migrations"
	"github.com/dustin/go-humanize"
	"github.com/jmoiron/sqlx"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"go.uber.org/zap"
)

func main() {
	if err := Main(); err != nil {
		fmt.Fprintln(os.Stderr, "geonames:", err)
		os.Exit(1)
	}
}

// env holds what every subcommand needs once flags are parsed
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
	store  *repository.Store
}

func (e *env) Close() {
	if e.db != nil {
		e.db.Close()
	}
	e.logger.Sync()
}

func setup(ctx context.Context, cfg *config.Config) (*env, error) {
	// progress goes to stdout next to the command output
	zcfg := zap.NewDevelopmentConfig()
	zcfg.OutputPaths = []string{"stdout"}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	e := &env{cfg: cfg, logger: logger}

	e.db, err = database.Connect(ctx, cfg.DB)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migrations.Up(e.db.DB, cfg.DB.Type); err != nil {
		e.Close()
		return nil, err
	}
	e.store = repository.NewStore(e.db, cfg.DB.Type)
	logger.Info("Connected to database", zap.String("type", string(cfg.DB.Type)))
	return e, nil
}

func (e *env) service(ctx context.Context, strategy config.SearchStrategy) (*service.Service, error) {
	s, err := search.New(ctx, strategy, e.store)
	if err != nil {
		return nil, err
	}
	return service.NewService(e.store, s, e.cfg.Search, e.cfg.Loader.SpacelessPostcodeCountries), nil
}

func Main() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	run := func(fn func(ctx context.Context, e *env, args []string) error) func(context.Context, []string) error {
		return func(ctx context.Context, args []string) error {
			e, err := setup(ctx, cfg)
			if err != nil {
				return err
			}
			defer e.Close()
			return fn(ctx, e, args)
		}
	}

	var force bool
	FS := flag.NewFlagSet("load", flag.ContinueOnError)
	FS.BoolVar(&force, "force", false, "delete the existing GeoNames rows before loading")
	FS.StringVar(&cfg.Loader.DataDir, "data-dir", cfg.Loader.DataDir, "directory holding the GeoNames dumps")
	FS.StringVar(&cfg.Loader.CitiesFile, "cities", cfg.Loader.CitiesFile, "populated places dump")
	loadCmd := &ffcli.Command{Name: "load", ShortUsage: "geonames load [-force] [-data-dir dir]", FlagSet: FS,
		ShortHelp: "load every GeoNames file in one transaction",
		Options:   []ff.Option{ff.WithEnvVarPrefix("GEONAMES")},
		Exec: run(func(ctx context.Context, e *env, args []string) error {
			res, err := importer.New(e.store, cfg.Loader, e.logger).Load(ctx, importer.Options{Force: force})
			if err != nil {
				return err
			}
			fmt.Printf("run %s: %s localities, %s alternate names, %s postcodes in %s\n",
				res.RunID, humanize.Comma(int64(res.Localities)), humanize.Comma(int64(res.AlternateNames)),
				humanize.Comma(int64(res.Postcodes)), res.Elapsed.Round(time.Millisecond))
			return nil
		}),
	}

	rebuildCmd := &ffcli.Command{Name: "rebuild", ShortUsage: "geonames rebuild",
		FlagSet:   flag.NewFlagSet("rebuild", flag.ContinueOnError),
		ShortHelp: "recompute long names, slugs and spaceless postcodes",
		Exec: run(func(ctx context.Context, e *env, args []string) error {
			svc, err := e.service(ctx, config.SearchStrategyCompute)
			if err != nil {
				return err
			}
			res, err := svc.Rebuild(ctx)
			if err != nil {
				return err
			}
			e.logger.Info("Rebuild completed",
				zap.Int("localities", res.Localities),
				zap.Int("admin2", res.Admin2),
				zap.Int64("postcodes", res.Postcodes),
			)
			return nil
		}),
	}

	var (
		lat, lon, radius float64
		limit            int
		sortByDistance   bool
		fcodes, strategy string
	)
	FS = flag.NewFlagSet("nearby", flag.ContinueOnError)
	FS.Float64Var(&lat, "lat", 0, "latitude in degrees")
	FS.Float64Var(&lon, "lon", 0, "longitude in degrees")
	FS.Float64Var(&radius, "radius", 10, "radius in miles")
	FS.IntVar(&limit, "limit", 0, "maximum number of results")
	FS.BoolVar(&sortByDistance, "sort", true, "sort by distance")
	FS.StringVar(&fcodes, "fcode", "", "comma separated feature codes")
	FS.StringVar(&strategy, "strategy", string(cfg.Search.Strategy), "auto, geometry, compute or sql")
	nearbyCmd := &ffcli.Command{Name: "nearby", ShortUsage: "geonames nearby -lat 57.15 -lon -2.1 [-radius 10]", FlagSet: FS,
		ShortHelp: "list the localities around a point",
		Exec: run(func(ctx context.Context, e *env, args []string) error {
			svc, err := e.service(ctx, config.SearchStrategy(strategy))
			if err != nil {
				return err
			}
			req := model.NearbyRequest{Lat: lat, Lon: lon, RadiusMiles: radius, Limit: limit, SortByDistance: sortByDistance}
			for _, c := range strings.Split(fcodes, ",") {
				if c = strings.TrimSpace(c); c != "" {
					req.FeatureCodes = append(req.FeatureCodes, strings.ToUpper(c))
				}
			}
			resp, err := svc.Nearby(ctx, req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}),
	}

	renameCmd := func(name, level string, rename func(*service.Service, context.Context, int64, string) (int, error)) *ffcli.Command {
		return &ffcli.Command{Name: name, ShortUsage: "geonames " + name + " <geonameid> <new name>",
			FlagSet:   flag.NewFlagSet(name, flag.ContinueOnError),
			ShortHelp: "rename an " + level + " and update the localities below it",
			Exec: run(func(ctx context.Context, e *env, args []string) error {
				if len(args) != 2 {
					return fmt.Errorf("need geonameid and new name, got %d arguments", len(args))
				}
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("parse %q as geonameid: %w", args[0], err)
				}
				svc, err := e.service(ctx, config.SearchStrategyCompute)
				if err != nil {
					return err
				}
				n, err := rename(svc, ctx, id, args[1])
				if err != nil {
					return err
				}
				e.logger.Info("Renamed "+level, zap.Int64("geonameid", id), zap.Int("localities", n))
				return nil
			}),
		}
	}

	app := ffcli.Command{Name: "geonames", ShortUsage: "geonames <subcommand> [flags]",
		FlagSet: flag.NewFlagSet("geonames", flag.ContinueOnError),
		Subcommands: []*ffcli.Command{
			loadCmd, rebuildCmd, nearbyCmd,
			renameCmd("rename-admin1", "admin1", (*service.Service).RenameAdmin1),
			renameCmd("rename-admin2", "admin2", (*service.Service).RenameAdmin2),
		},
		Exec: func(ctx context.Context, args []string) error { return flag.ErrHelp },
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := app.ParseAndRun(ctx, os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	return nil
}
