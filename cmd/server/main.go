package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iliyamo/table-allocation/internal/adjacency"
	"github.com/iliyamo/table-allocation/internal/assign"
	"github.com/iliyamo/table-allocation/internal/config"
	"github.com/iliyamo/table-allocation/internal/database"
	"github.com/iliyamo/table-allocation/internal/handler"
	"github.com/iliyamo/table-allocation/internal/layout"
	"github.com/iliyamo/table-allocation/internal/locks"
	"github.com/iliyamo/table-allocation/internal/middleware"
	"github.com/iliyamo/table-allocation/internal/queue"
	"github.com/iliyamo/table-allocation/internal/repository"
	"github.com/iliyamo/table-allocation/internal/router"
	"github.com/iliyamo/table-allocation/internal/service"
	"github.com/iliyamo/table-allocation/internal/venue"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	reg, err := loadVenue(cfg)
	if err != nil {
		log.Fatalf("venue: %v", err)
	}
	rows, cols := reg.GridSize()
	log.Printf("venue: %q, %dx%d grid, %d tables, grace %s", reg.Name(), rows, cols, len(reg.Tables()), reg.GracePeriod())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mysqlDB *sql.DB
	if cfg.NeedsMySQL() {
		mysqlDB, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("mysql: %v", err)
		}
		defer mysqlDB.Close()
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis: unavailable, rate limiting per process")
	} else {
		defer rdb.Close()
	}

	store, closeStore, err := openLayoutStore(ctx, cfg, mysqlDB, rdb)
	if err != nil {
		log.Fatalf("layout store: %v", err)
	}
	defer closeStore()

	cache := layout.New(reg, store, layout.WithDerive(adjacency.Geometric))
	if err := cache.Restore(ctx, store); err != nil {
		log.Fatalf("layout store: restore: %v", err)
	}
	log.Printf("layouts: %d entries restored from %s store", len(cache.Keys()), cfg.LayoutStore)

	var source assign.ReservationSource = assign.NewMemorySource()
	if cfg.ReservationSource == config.StoreMySQL {
		source = repository.NewReservationRepo(mysqlDB, reg.Lookup)
	}

	lockTable := locks.New()
	opts := []assign.Option{assign.WithLocation(cfg.Location)}
	if cfg.GracePeriod != nil {
		opts = append(opts, assign.WithGracePeriod(*cfg.GracePeriod))
	}
	engine := assign.NewEngine(reg, cache, lockTable, source, opts...)

	var publisher service.Publisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		publisher = service.NewAMQPPublisher(cfg.RabbitURL)
	}
	alloc := service.NewAllocator(engine, cache, lockTable, source, publisher)

	if cfg.ConsumerEnabled {
		go func() {
			if err := queue.StartAssignmentConsumer(ctx, cfg.RabbitURL, cfg.LogDir); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("assignment-consumer: stopped: %v", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.RegisterRoutes(e)
	router.RegisterAPI(e, router.Handlers{
		Assignments: &handler.AssignmentHandler{Alloc: alloc, Venue: reg},
		Layouts:     &handler.LayoutHandler{Alloc: alloc, Layouts: cache, Venue: reg, Source: source},
		Locks:       &handler.LockHandler{Locks: lockTable, Location: cfg.Location},
	}, cfg.JWTSecret, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if err := cache.Close(shutdownCtx); err != nil {
		log.Printf("layouts: final write failed: %v", err)
	}
}

func loadVenue(cfg config.Config) (*venue.Registry, error) {
	vc := venue.DefaultConfig()
	if cfg.VenueConfig != "" {
		var err error
		if vc, err = venue.ReadConfig(cfg.VenueConfig); err != nil {
			return nil, err
		}
	}
	if cfg.GracePeriod != nil {
		vc.GracePeriod = *cfg.GracePeriod
	}
	if cfg.PropagationDays > 0 {
		vc.PropagationDays = cfg.PropagationDays
	}
	return venue.New(vc)
}

// openLayoutStore returns the configured blob store and a func releasing
// any connection it opened.
func openLayoutStore(ctx context.Context, cfg config.Config, mysqlDB *sql.DB, rdb *redis.Client) (layout.BlobStore, func(), error) {
	noop := func() {}
	switch cfg.LayoutStore {
	case config.StoreMySQL:
		return repository.NewMySQLBlobStore(mysqlDB), noop, nil
	case config.StoreSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return repository.NewSQLiteBlobStore(db), func() { db.Close() }, nil
	case config.StoreRedis:
		if rdb == nil {
			return nil, noop, errors.New("redis is not reachable")
		}
		return repository.NewRedisBlobStore(rdb, cfg.RedisPrefix), noop, nil
	case config.StoreMongo:
		client, err := database.OpenMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, noop, err
		}
		coll := client.Database(cfg.MongoDB).Collection(cfg.MongoCollection)
		return repository.NewMongoBlobStore(coll), func() { disconnect(client) }, nil
	}
	return repository.NewMemoryBlobStore(), noop, nil
}

func disconnect(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Printf("mongo: disconnect: %v", err)
	}
}
