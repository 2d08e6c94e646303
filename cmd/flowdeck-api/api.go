// Package main provides the Flowdeck API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/flowdeck/flowdeck/pkg/auth"
	"github.com/flowdeck/flowdeck/pkg/billing"
	"github.com/flowdeck/flowdeck/pkg/eventbus"
	"github.com/flowdeck/flowdeck/pkg/otelhelper"
	"github.com/flowdeck/flowdeck/pkg/persistence"
	"github.com/flowdeck/flowdeck/pkg/services"
	"github.com/flowdeck/flowdeck/pkg/web"
)

type API struct {
	logger       *slog.Logger
	persistence  persistence.Persistence
	eventBus     eventbus.EventBus
	maxWorkflows int
	tracing      bool
	validate     *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	maxWorkflows int,
	tracing bool,
) *API {
	return &API{
		logger:       logger,
		persistence:  persistence,
		eventBus:     eventBus,
		maxWorkflows: maxWorkflows,
		tracing:      tracing,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App(ctx context.Context) *fiber.App {
	var entitlements billing.Entitlements = billing.Unlimited{}
	if a.maxWorkflows > 0 {
		entitlements = billing.NewQuotaEntitlements(a.persistence.WorkflowRepository(), a.maxWorkflows)
	}

	workflowService := services.NewWorkflow(a.persistence, entitlements, a.eventBus, a.logger)
	syncService := services.NewSync(a.persistence, a.eventBus, a.logger)

	handlers := web.NewAPIHandlers(workflowService, syncService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	if a.tracing {
		a.useTracing(ctx, app)
	}

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowdeck API")
	})

	handlers.RegisterRoutes(app, auth.NewHeaderAuthenticator())

	return app
}

func (a *API) useTracing(ctx context.Context, app *fiber.App) {
	tracer, err := otelhelper.NewTracer(ctx, "flowdeck-api")
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to initialize tracer, continuing without tracing", "error", err)

		return
	}

	app.Use(func(c fiber.Ctx) error {
		_, span := otelhelper.StartSpan(c.Context(), tracer, c.Method()+" "+c.Path(),
			attribute.String(otelhelper.ServiceIDKey, "flowdeck-api"))
		defer span.End()

		err := c.Next()
		if err != nil {
			otelhelper.SetError(span, err)
		}

		return err
	})
}

func (a *API) Start(ctx context.Context, port int) error {
	app := a.App(ctx)

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
