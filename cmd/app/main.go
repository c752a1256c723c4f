package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/ticketbay/tb-marketplace/config"
	adminapp_event "github.com/ticketbay/tb-marketplace/internal/module/adminapp/event"
	customerapp_event "github.com/ticketbay/tb-marketplace/internal/module/customerapp/event"
	"github.com/ticketbay/tb-marketplace/internal/module/customerapp/mailer"
	"github.com/ticketbay/tb-marketplace/internal/module/customerapp/review"
	"github.com/ticketbay/tb-marketplace/internal/module/customerapp/stripe"
	customerapp_ticket "github.com/ticketbay/tb-marketplace/internal/module/customerapp/ticket"
	"github.com/ticketbay/tb-marketplace/internal/module/customerapp/waitinglist"
	"github.com/ticketbay/tb-marketplace/internal/pkg/jwt"
	internalMiddleware "github.com/ticketbay/tb-marketplace/internal/pkg/middleware"
	"github.com/ticketbay/tb-marketplace/internal/pkg/session"
	"github.com/ticketbay/tb-marketplace/internal/worker"
	"github.com/ticketbay/tb-marketplace/pkg/applogger"
	"github.com/ticketbay/tb-marketplace/pkg/gctasks"
	"github.com/ticketbay/tb-marketplace/pkg/kafka"
	"github.com/ticketbay/tb-marketplace/pkg/middleware"
	"github.com/ticketbay/tb-marketplace/pkg/monitoring"
	"github.com/ticketbay/tb-marketplace/pkg/postgresql"
	"github.com/ticketbay/tb-marketplace/pkg/pubsub"
	"github.com/ticketbay/tb-marketplace/pkg/redis"
	"github.com/ticketbay/tb-marketplace/pkg/server"
	"github.com/ticketbay/tb-marketplace/pkg/validator"
)

var c *config.Config

func init() {
	c = config.Get()
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := applogger.GetLogrus()

	mon := monitoring.NewOpenTelemetry(
		c.Application.Name,
		c.Application.Environment,
		c.GCP.ProjectID,
	)

	mon.Start(ctx)

	validate := validator.Get()

	hc := http.DefaultClient

	jsonWebToken := jwt.NewJSONWebToken(c.JWT.PrivateKey, c.JWT.PublicKey)

	psqldb := postgresql.GetDatabase()
	if err := psqldb.Ping(); err != nil {
		logger.WithContext(ctx).WithError(err).Error()
	}
	if err := postgresql.RunMigrations(psqldb); err != nil {
		logger.WithContext(ctx).WithError(err).Fatal("migrations failed")
	}

	publisher := pubsub.PublisherFromConfluentKafkaProducer(logger, kafka.NewProducer())

	rc := redis.GetClient()
	if err := rc.Ping(context.Background()).Err(); err != nil {
		logger.WithContext(ctx).WithError(err).Error()
	}

	cloudTask := gctasks.NewGCTasks(logger, c.GCP.ProjectID, c.GCP.TasksLocation, c.GCP.ServiceAccount)
	if err := cloudTask.CreateQueue(waitinglist.ExpireOfferQueueID); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("expire offer queue not created")
	}

	sessionStore := session.NewRedisSessionStore(logger, rc)

	customerSessionMiddleware := internalMiddleware.NewCustomerSessionMiddleware(jsonWebToken, sessionStore)
	adminSessionMiddleware := internalMiddleware.NewAdminSessionMiddleware(jsonWebToken, sessionStore)

	router := mux.NewRouter()
	router.Use(
		otelmux.Middleware(c.Application.Name),
		middleware.HTTPResponseTraceInjection,
		middleware.NewHTTPRequestLogger(logger, c.Application.Debug, http.StatusInternalServerError).Middleware,
	)

	// admin's app
	adminappEventRepo := adminapp_event.NewEventRepository(logger, psqldb)
	adminappAllocationRepo := adminapp_event.NewAllocationRepository(logger, psqldb)
	adminappWaitingListRepo := adminapp_event.NewWaitingListRepository(logger, psqldb)
	adminappTicketRepo := adminapp_event.NewTicketRepository(logger, psqldb)
	adminappEventUseCase := adminapp_event.NewEventUseCase(adminapp_event.EventUseCaseProperty{
		Logger:                logger,
		Timeout:               c.Application.Timeout,
		EventRepository:       adminappEventRepo,
		AllocationRepository:  adminappAllocationRepo,
		WaitingListRepository: adminappWaitingListRepo,
		TicketRepository:      adminappTicketRepo,
		Publisher:             publisher,
	})
	adminapp_event.InitHTTPHandler(router, adminSessionMiddleware, validate, adminappEventUseCase)

	// customer's app
	customerappEventRepo := customerapp_event.NewEventRepository(logger, psqldb)
	customerappAvailabilityRepo := customerapp_event.NewAvailabilityRepository(logger, psqldb)
	customerappAllocationRepo := customerapp_ticket.NewAllocationRepository(logger, psqldb)
	customerappAcquiredTicketRepo := customerapp_ticket.NewAcquiredTicketRepository(logger, psqldb)
	customerappWaitingListRepo := waitinglist.NewWaitingListRepository(logger, psqldb)
	customerappReviewRepo := review.NewReviewRepository(logger, psqldb)
	stripeRepo := stripe.NewStripeRepository(c.Stripe.BaseURL, c.Stripe.SecretKey, logger, hc)
	mailerRepo := mailer.NewMailerRepository(c.Mailer.BaseURL, c.Mailer.APIKey, c.Mailer.Sender, logger, hc)
	checkoutSessionStore := waitinglist.NewRedisCheckoutSessionStore(logger, rc)

	customerappEventUseCase := customerapp_event.NewEventUseCase(customerapp_event.EventUseCaseProperty{
		Logger:                 logger,
		Timeout:                c.Application.Timeout,
		EventRepository:        customerappEventRepo,
		AllocationRepository:   customerappAllocationRepo,
		AvailabilityRepository: customerappAvailabilityRepo,
	})
	customerapp_event.InitHTTPHandler(router, validate, customerappEventUseCase)

	customerappWaitingListUseCase := waitinglist.NewWaitingListUseCase(waitinglist.WaitingListUseCaseProperty{
		Logger:                   logger,
		Timeout:                  c.Application.Timeout,
		OfferTTL:                 c.WaitingList.OfferTTL,
		SweepBatch:               c.WaitingList.SweepBatch,
		BaseURL:                  c.Application.BaseURL,
		Currency:                 c.Stripe.Currency,
		EventRepository:          customerappEventRepo,
		AllocationRepository:     customerappAllocationRepo,
		AcquiredTicketRepository: customerappAcquiredTicketRepo,
		WaitingListRepository:    customerappWaitingListRepo,
		StripeRepository:         stripeRepo,
		MailerRepository:         mailerRepo,
		CheckoutSessionStore:     checkoutSessionStore,
		Publisher:                publisher,
		CloudTask:                cloudTask,
	})
	waitinglist.InitHTTPHandler(router, customerSessionMiddleware, validate, customerappWaitingListUseCase, c.Stripe.WebhookSecret)

	customerappTicketUseCase := customerapp_ticket.NewTicketUseCase(customerapp_ticket.TicketUseCaseProperty{
		Logger:                   logger,
		Timeout:                  c.Application.Timeout,
		AcquiredTicketRepository: customerappAcquiredTicketRepo,
	})
	customerapp_ticket.InitHTTPHandler(router, customerSessionMiddleware, validate, customerappTicketUseCase)

	customerappReviewUseCase := review.NewReviewUseCase(review.ReviewUseCaseProperty{
		Logger:                   logger,
		Timeout:                  c.Application.Timeout,
		EventRepository:          customerappEventRepo,
		AcquiredTicketRepository: customerappAcquiredTicketRepo,
		ReviewRepository:         customerappReviewRepo,
	})
	review.InitHTTPHandler(router, customerSessionMiddleware, validate, customerappReviewUseCase)

	sweepWorker := worker.NewOfferSweepWorker(logger, c.WaitingList.SweepInterval, customerappWaitingListUseCase)
	go sweepWorker.Run(ctx)

	handler := middleware.SetChain(
		router,
		cors.New(cors.Options{
			AllowedOrigins:   c.CORS.AllowedOrigins,
			AllowedMethods:   c.CORS.AllowedMethods,
			AllowedHeaders:   c.CORS.AllowedHeaders,
			ExposedHeaders:   c.CORS.ExposedHeaders,
			MaxAge:           c.CORS.MaxAge,
			AllowCredentials: c.CORS.AllowCredentials,
		}).Handler,
	)

	srv := &server.Server{
		Server: http.Server{
			Addr:    fmt.Sprintf(":%d", c.Application.Port),
			Handler: handler,
		},
		Logger: logger,
	}

	go func() {
		srv.ListenAndServe()
	}()

	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, syscall.SIGINT, syscall.SIGTERM)
	<-sigterm

	srv.Shutdown(ctx)
	cloudTask.Close()
	publisher.Close()
	psqldb.Close()
	rc.Close()
	mon.Stop(ctx)
}
