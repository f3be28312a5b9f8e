package main // Entry point package

import (
	"log"
	"time"

	"github.com/joho/godotenv"    // loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/cinetix/cinema-booking/internal/cache"
	"github.com/cinetix/cinema-booking/internal/config"
	"github.com/cinetix/cinema-booking/internal/database"
	"github.com/cinetix/cinema-booking/internal/handler"
	"github.com/cinetix/cinema-booking/internal/model"
	"github.com/cinetix/cinema-booking/internal/queue"
	"github.com/cinetix/cinema-booking/internal/repository"
	"github.com/cinetix/cinema-booking/internal/router"
	"github.com/cinetix/cinema-booking/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("store init: %v", err)
	}

	// Redis backs the seat cache and the rate limiter.  Both degrade to
	// no-ops when the client is nil.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; seat cache and rate limiting disabled")
	}
	seatCache := cache.New(rdb, cfg.SeatCacheTTL)

	// Booking events are best-effort: without a broker the publisher
	// stays nil and the service skips publishing.
	var publisher service.EventPublisher
	if cfg.RabbitURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitURL)
		go func() {
			if err := queue.StartBookingConsumer(); err != nil {
				log.Printf("booking consumer stopped: %v", err)
			}
		}()
	} else {
		log.Println("RABBITMQ_URL not set; booking events disabled")
	}

	engine := service.NewReservationService(store, publisher, seatCache)
	bookings := handler.NewBookingHandler(engine)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	router.RegisterRoutes(e, bookings)
	router.RegisterBooking(e, bookings, cfg.JWTSecret, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s store=%s)", addr, cfg.Env, cfg.StoreDriver)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// buildStore selects the storage backend.  MySQL is the production
// driver; the memory store exists for local development and demos and
// boots with a seeded set of cinemas so reservations work immediately.
func buildStore(cfg config.Config) (repository.Store, error) {
	if cfg.StoreDriver == "memory" {
		mem := repository.NewMemoryStore()
		seedDemoCinemas(mem)
		return mem, nil
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, err
	}
	return repository.NewMySQLStore(db), nil
}

func seedDemoCinemas(mem *repository.MemoryStore) {
	now := time.Now().UTC()
	for _, c := range []model.Cinema{
		{ID: 1, Name: "PVR Phoenix", Location: "Lower Parel, Mumbai", Rating: 4.5, TotalSeats: 100},
		{ID: 2, Name: "INOX Nehru Place", Location: "Nehru Place, Delhi", Rating: 4.2, TotalSeats: 100},
		{ID: 3, Name: "Cinepolis RCube", Location: "Gurugram", Rating: 4.4, TotalSeats: 100},
		{ID: 4, Name: "PVR Pavilion", Location: "Pune", Rating: 4.1, TotalSeats: 100},
	} {
		c.CreatedAt = now
		c.UpdatedAt = now
		mem.SeedCinema(c)
	}
}
