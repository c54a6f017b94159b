package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"servicehub/internal/config"
	"servicehub/internal/domain/availability"
	"servicehub/internal/domain/booking"
	"servicehub/internal/domain/ledger"
	"servicehub/internal/domain/notification"
	"servicehub/internal/domain/worker"
	"servicehub/internal/middleware"
	jwtsvc "servicehub/internal/pkg/jwt"
	"servicehub/internal/pkg/validator"
)

type Deps struct {
	Config     *config.Config
	DB         *gorm.DB
	Logger     *zap.Logger
	Dispatcher notification.Dispatcher
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// App holds the wired services and the HTTP router.
type App struct {
	Router *gin.Engine
	JWT    *jwtsvc.Service

	Workers      *worker.Service
	Availability *availability.Service
	Bookings     *booking.Service
	Ledger       *ledger.Service
}

// Models lists every table for sqlite AutoMigrate.
func Models() []any {
	models := []any{&worker.Worker{}, &booking.Booking{}}
	models = append(models, availability.Models()...)
	return append(models, ledger.Models()...)
}

func New(d Deps) *App {
	cfg, db, log := d.Config, d.DB, d.Logger

	workerRepo := worker.NewRepository(db)
	slotRepo := availability.NewRepository(db)
	bookingRepo := booking.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)

	notifs := notification.NewService(d.Dispatcher, log)

	opts := availability.Options{
		Location:   cfg.Location(),
		WindowDays: cfg.BookingWindowDays,
		Now:        d.Now,
	}

	a := &App{
		JWT:          jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL),
		Workers:      worker.NewService(workerRepo, log),
		Availability: availability.NewService(slotRepo, workerRepo, bookingRepo, log, opts),
		Bookings:     booking.NewService(bookingRepo, slotRepo, workerRepo, notifs, log, opts),
		Ledger: ledger.NewService(ledgerRepo, bookingRepo, workerRepo, notifs, log, ledger.Options{
			CommissionBPS: cfg.CommissionRateBPS,
			Now:           d.Now,
		}),
	}
	a.Router = a.routes(cfg, log)
	return a
}

func (a *App) routes(cfg *config.Config, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.RegisterGin()

	workerHandler := worker.NewHandler(a.Workers)
	availabilityHandler := availability.NewHandler(a.Availability)
	bookingHandler := booking.NewHandler(a.Bookings)
	ledgerHandler := ledger.NewHandler(a.Ledger)

	r := gin.New()
	r.Use(middleware.RequestLogger(log), middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		workerHandler.RegisterRoutes(v1)
		availabilityHandler.RegisterRoutes(v1)

		authed := v1.Group("")
		authed.Use(middleware.JWTAuth(a.JWT))
		bookingHandler.RegisterParticipantRoutes(authed)

		customers := authed.Group("")
		customers.Use(middleware.CustomerOnly())
		bookingHandler.RegisterCustomerRoutes(customers)

		workers := authed.Group("")
		workers.Use(middleware.WorkerOnly())
		availabilityHandler.RegisterWorkerRoutes(workers)
		bookingHandler.RegisterWorkerRoutes(workers)
		ledgerHandler.RegisterWorkerRoutes(workers)

		admin := authed.Group("/admin")
		admin.Use(middleware.AdminOnly())
		workerHandler.RegisterAdminRoutes(admin)
		ledgerHandler.RegisterAdminRoutes(admin)
	}

	internal := r.Group("/internal/v1")
	internal.Use(middleware.InternalTokenAuth(cfg.InternalToken, cfg.InternalAllowedIPs, log))
	ledgerHandler.RegisterInternalRoutes(internal)

	return r
}
