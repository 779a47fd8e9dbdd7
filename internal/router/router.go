package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-auction/internal/handler"
	"github.com/iliyamo/online-auction/internal/middleware"
	"github.com/iliyamo/online-auction/internal/model"
)

// Handlers bundles the handler set the router wires up.
type Handlers struct {
	Auth     *handler.AuthHandler
	Products *handler.ProductHandler
	Auctions *handler.AuctionHandler
	Bids     *handler.BidHandler
	Orders   *handler.OrderHandler
}

// Middleware bundles the optional cross-cutting middleware.  Nil entries
// are skipped, so the service runs fine without Redis.
type Middleware struct {
	Cache     echo.MiddlewareFunc // response cache for public reads
	RateLimit echo.MiddlewareFunc // token bucket for bid placement
}

// Register wires every route of the service onto the Echo instance.
//
// Public routes need no token: health, auth and the browse endpoints.
// Everything else goes through JWT authentication, with role
// enforcement on the endpoints that create or mutate resources.
func Register(e *echo.Echo, h Handlers, mw Middleware, jwtSecret string) {
	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	// Session management: register, login, rotate, revoke.
	ag := e.Group("/v1/auth")
	ag.POST("/register", h.Auth.Register)
	ag.POST("/login", h.Auth.Login)
	ag.POST("/refresh", h.Auth.Refresh)
	ag.POST("/logout", h.Auth.Logout)

	// Public browse endpoints.  GETs are cacheable: the short TTL keeps
	// the listed highest bid close to live.
	pub := e.Group("/v1")
	if mw.Cache != nil {
		pub.Use(mw.Cache)
	}
	pub.GET("/products/:id", h.Products.Get)
	pub.GET("/auctions", h.Auctions.List)
	pub.GET("/auctions/:id", h.Auctions.Get)
	pub.GET("/auctions/:id/bids", h.Auctions.Bids)

	// Everything below requires a valid access token.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))

	auth.GET("/me", h.Auth.Me)
	auth.GET("/orders", h.Orders.ListMine)

	// Sellers manage products and the auction lifecycle; admins may act
	// on any seller's behalf.
	sell := auth.Group("")
	sell.Use(middleware.RequireRole(model.RoleSeller, model.RoleAdmin))
	sell.POST("/products", h.Products.Create)
	sell.GET("/products", h.Products.ListMine)
	sell.PATCH("/products/:id", h.Products.Update)
	sell.POST("/auctions", h.Auctions.Create)
	sell.PATCH("/auctions/:id", h.Auctions.Update)
	sell.POST("/auctions/:id/cancel", h.Auctions.Cancel)
	sell.POST("/auctions/:id/settle", h.Auctions.Settle)

	// Bidding is open to any authenticated role except where the engine
	// forbids it (sellers on their own auctions).  Rate limited because
	// it is the hot write path.
	bid := auth.Group("")
	if mw.RateLimit != nil {
		bid.Use(mw.RateLimit)
	}
	bid.POST("/auctions/:id/bid", h.Bids.Place)
}
