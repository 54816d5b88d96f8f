package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/souqline/souqline-backend/api/controllers"
	"github.com/souqline/souqline-backend/api/middleware"
	"github.com/souqline/souqline-backend/internal/branches"
	"github.com/souqline/souqline-backend/internal/coupons"
	"github.com/souqline/souqline-backend/internal/disputes"
	"github.com/souqline/souqline-backend/internal/finance"
	"github.com/souqline/souqline-backend/internal/inventory"
	"github.com/souqline/souqline-backend/internal/notifications"
	"github.com/souqline/souqline-backend/internal/onboarding"
	"github.com/souqline/souqline-backend/internal/orders"
	"github.com/souqline/souqline-backend/internal/products"
	"github.com/souqline/souqline-backend/internal/users"
	"github.com/souqline/souqline-backend/pkg/config"
	"github.com/souqline/souqline-backend/pkg/db"
	"github.com/souqline/souqline-backend/pkg/logger"
	"github.com/souqline/souqline-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	branchService branches.Service,
	couponService coupons.Service,
	disputeService disputes.Service,
	financeService finance.Service,
	inventoryService inventory.Service,
	notificationService notifications.Service,
	onboardingService onboarding.Service,
	orderService orders.Service,
	productService products.Service,
	userService users.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	// Public storefront reads.
	r.Route("/api/public/v1", func(r chi.Router) {
		r.Get("/branches", controllers.ListBranches(branchService, logg))
		r.Get("/branches/{branchID}", controllers.GetBranch(branchService, logg))
		r.Get("/branches/{branchID}/products", controllers.ListBranchProducts(productService, logg))
		r.Get("/products/{productID}", controllers.GetProduct(productService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(orderService, logg))
			r.Get("/", controllers.ListMyOrders(orderService, logg))
			r.Get("/{orderID}", controllers.GetOrder(orderService, logg))
			r.Patch("/{orderID}/status", controllers.UpdateOrderStatus(orderService, logg))
			r.Delete("/{orderID}", controllers.HideOrder(orderService, logg))
		})

		r.Route("/disputes", func(r chi.Router) {
			r.Post("/", controllers.OpenDispute(disputeService, logg))
			r.Get("/", controllers.ListMyDisputes(disputeService, logg))
			r.Get("/{disputeID}", controllers.GetDispute(disputeService, logg))
			r.Post("/{disputeID}/resolve", controllers.ResolveDispute(disputeService, logg))
			r.Post("/{disputeID}/close", controllers.CloseDispute(disputeService, logg))
		})

		r.Post("/coupons/validate", controllers.ValidateCoupon(couponService, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationService, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(notificationService, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(notificationService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationService, logg))
		})

		r.Route("/onboarding", func(r chi.Router) {
			r.Post("/requests", controllers.SubmitBranchRequest(onboardingService, logg))
		})

		// Branch-scoped management. Per-branch authorization happens in the
		// services; platform operators pass everywhere.
		r.Route("/branches/{branchID}", func(r chi.Router) {
			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ListBranchProducts(productService, logg))
				r.Post("/", controllers.CreateProduct(productService, logg))
				r.Patch("/{productID}", controllers.UpdateProduct(productService, logg))
				r.Delete("/{productID}", controllers.DeleteProduct(productService, logg))
				r.Put("/{productID}/variants", controllers.ReplaceProductVariants(productService, logg))
			})

			r.Route("/coupons", func(r chi.Router) {
				r.Get("/", controllers.ListBranchCoupons(couponService, logg))
				r.Post("/", controllers.CreateCoupon(couponService, logg))
				r.Patch("/{couponID}", controllers.UpdateCoupon(couponService, logg))
				r.Delete("/{couponID}", controllers.DeleteCoupon(couponService, logg))
			})

			r.Route("/inventory", func(r chi.Router) {
				r.Post("/adjust", controllers.AdjustStock(inventoryService, logg))
				r.Get("/logs", controllers.ListInventoryLogs(inventoryService, logg))
			})

			r.Get("/orders", controllers.ListBranchOrders(orderService, logg))
			r.Get("/disputes", controllers.ListBranchDisputes(disputeService, logg))

			r.Route("/finance", func(r chi.Router) {
				r.Get("/summary", controllers.GetFinanceSummary(financeService, logg))
				r.Get("/payments", controllers.ListBranchPayments(financeService, logg))
				r.Post("/payments", controllers.SubmitFinancePayment(financeService, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequirePlatform(logg))

		r.Route("/onboarding/requests", func(r chi.Router) {
			r.Get("/", controllers.ListPendingBranchRequests(onboardingService, logg))
			r.Get("/{requestID}", controllers.GetBranchRequest(onboardingService, logg))
			r.Post("/{requestID}/approve", controllers.ApproveBranchRequest(onboardingService, logg))
			r.Post("/{requestID}/reject", controllers.RejectBranchRequest(onboardingService, logg))
		})

		r.Route("/finance/payments", func(r chi.Router) {
			r.Get("/pending", controllers.ListPendingPayments(financeService, logg))
			r.Post("/{paymentID}/decide", controllers.DecideFinancePayment(financeService, logg))
		})

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/", controllers.GetUser(userService, logg))
			r.Post("/suspend", controllers.SuspendUser(userService, logg))
			r.Post("/reinstate", controllers.ReinstateUser(userService, logg))
			r.Put("/tax-rate", controllers.SetUserTaxRate(userService, logg))
			r.Put("/subscription", controllers.SetUserSubscription(userService, logg))
		})

		r.Put("/branches/{branchID}/status", controllers.SetBranchStatus(branchService, logg))
	})

	return r
}
