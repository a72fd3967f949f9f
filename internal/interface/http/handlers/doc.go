// Package handlers contains the reusable pieces of the HTTP interface:
// health checks, admin token verification and middleware.
//
// # Health Checks
//
// Named checks run in parallel, each under its own timeout:
//
//	checker := handlers.NewCompositeHealthChecker("0.1.0")
//	checker.AddCheck("postgres", handlers.PingCheck(conn))
//	checker.AddOptionalCheck("redis", handlers.PingCheck(cache))
//
//	status := checker.Check(ctx)
//
// # Admin Authentication
//
// Admin routes expect an HS256 bearer token whose "role" claim matches the
// configured admin role:
//
//	auth := handlers.NewAdminAuth(handlers.AuthConfig{Secret: secret, Issuer: "smcen-registrar", Role: "admin"})
//	protected := auth.Middleware(adminRoutes)
//
// # Middleware
//
//	handler := handlers.ChainHandler(
//	    mux,
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.RequestSizeLimitMiddleware(1<<20),
//	)
package handlers
