package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sekolah-kuliner/api/internal/config"
	"github.com/sekolah-kuliner/api/internal/database"
	"github.com/sekolah-kuliner/api/internal/enum"
	"github.com/sekolah-kuliner/api/internal/handler"
	mw "github.com/sekolah-kuliner/api/internal/middleware"
	"github.com/sekolah-kuliner/api/internal/payment"
	"github.com/sekolah-kuliner/api/internal/service"
)

// New creates a Chi router with all application routes wired up.
// Parent routes require authentication; staff routes additionally require
// the STAFF role.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Shared payment gateway client and services
	gateway := payment.NewClient(cfg.MidtransBaseURL, cfg.MidtransServerKey)

	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, queries, newOrderStore, gateway, cfg.PaymentFinishURL)

	newBatchStore := func(db database.DBTX) service.BatchPaymentStore {
		return database.New(db)
	}
	batchService := service.NewBatchPaymentService(pool, newBatchStore, gateway, cfg.PaymentFinishURL)

	menuHandler := handler.NewMenuHandler(queries)
	orderHandler := handler.NewOrderHandler(queries, orderService)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Children
		childHandler := handler.NewChildHandler(queries)
		childHandler.RegisterRoutes(r)

		// Menu browsing
		menuHandler.RegisterRoutes(r)

		// Cart
		cartHandler := handler.NewCartHandler(queries)
		cartHandler.RegisterRoutes(r)

		// Orders
		orderHandler.RegisterRoutes(r)

		// Payments
		paymentHandler := handler.NewPaymentHandler(queries, gateway, batchService, cfg.PaymentFinishURL)
		paymentHandler.RegisterRoutes(r)

		// Staff-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleStaff))

			menuHandler.RegisterStaffRoutes(r)
			orderHandler.RegisterStaffRoutes(r)

			reportHandler := handler.NewReportHandler(queries)
			reportHandler.RegisterRoutes(r)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
