package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rastuci/api/internal/payments"
	"github.com/rastuci/api/internal/platform/config"
	"github.com/rastuci/api/internal/repositories"
	"github.com/rastuci/api/internal/services"
	"github.com/rastuci/api/internal/shipping"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Checkout      services.CheckoutService
	Orders        services.OrderService
	Webhooks      services.PaymentWebhookService
	Coupons       services.CouponService
	Catalog       services.CatalogService
	Notifications services.NotificationDispatcher
	Shipping      shipping.Service
	System        services.SystemService
}

// ContainerDeps lists the external collaborators the container cannot build
// on its own: the repository registry plus the gateway, courier, and
// notification transports constructed in main.
type ContainerDeps struct {
	Registry      repositories.Registry
	Payments      payments.Provider
	Shipping      shipping.Service
	Notifications services.NotificationPublisher
	Build         services.BuildInfo
	Clock         func() time.Time
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides real
// implementations, while tests can supply in-memory registries and stub transports.
func NewContainer(ctx context.Context, cfg config.Config, deps ContainerDeps) (*Container, error) {
	if deps.Registry == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: deps.Registry,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients, background workers, or caches.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, cfg config.Config, deps ContainerDeps) (Services, error) {
	var svc Services
	reg := deps.Registry
	if reg == nil {
		return svc, nil
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	svc.Shipping = deps.Shipping

	if productsRepo := reg.Products(); productsRepo != nil {
		catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
			Products: productsRepo,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build catalog service: %w", err)
		}
		svc.Catalog = catalogSvc
	}

	if couponsRepo := reg.Coupons(); couponsRepo != nil {
		couponSvc, err := services.NewCouponService(services.CouponServiceDeps{
			Coupons: couponsRepo,
			Clock:   clock,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build coupon service: %w", err)
		}
		svc.Coupons = couponSvc
	}

	if deps.Notifications != nil {
		dispatcher, err := services.NewNotificationDispatcher(services.NotificationDispatcherDeps{
			Publisher: deps.Notifications,
			Log:       reg.Notifications(),
			Clock:     clock,
			Logger:    deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build notification dispatcher: %w", err)
		}
		svc.Notifications = dispatcher
	}

	ordersRepo := reg.Orders()
	if ordersRepo != nil && deps.Payments != nil {
		checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
			Orders:          ordersRepo,
			Coupons:         reg.Coupons(),
			Sequences:        reg.Sequences(),
			Payments:        deps.Payments,
			SuccessURL:      cfg.MercadoPago.SuccessURL,
			PendingURL:      cfg.MercadoPago.PendingURL,
			FailureURL:      cfg.MercadoPago.FailureURL,
			NotificationURL: cfg.MercadoPago.NotificationURL,
			Clock:           clock,
			Logger:          deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build checkout service: %w", err)
		}
		svc.Checkout = checkoutSvc
	}

	if ordersRepo != nil {
		orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
			Orders:   ordersRepo,
			Shipping: deps.Shipping,
			Clock:    clock,
			Logger:   deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build order service: %w", err)
		}
		svc.Orders = orderSvc
	}

	if ordersRepo != nil && deps.Payments != nil && deps.Shipping != nil {
		webhookSvc, err := services.NewPaymentWebhookService(services.PaymentWebhookServiceDeps{
			Orders:        ordersRepo,
			Inventory:     reg.Inventory(),
			Payments:      deps.Payments,
			Shipping:      deps.Shipping,
			Notifications: svc.Notifications,
			Clock:         clock,
			Logger:        deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build webhook service: %w", err)
		}
		svc.Webhooks = webhookSvc
	}

	if healthRepo := reg.Health(); healthRepo != nil {
		build := deps.Build
		if build.Environment == "" {
			build.Environment = cfg.Security.Environment
		}
		if build.StartedAt.IsZero() {
			build.StartedAt = clock().UTC()
		}
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Sequences:         reg.Sequences(),
			Clock:            clock,
			Build:            build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}
