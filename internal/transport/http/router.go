package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/vvany/boutique/internal/handlers"
	"github.com/vvany/boutique/internal/service/token"
)

type Deps struct {
	AuthHandler    *handlers.AuthHandler
	ProductHandler *handlers.ProductHandler
	CartHandler    *handlers.CartHandler
	OrderHandler   *handlers.OrderHandler
	ProfileHandler *handlers.ProfileHandler
	SearchHandler  *handlers.SearchHandler
	UploadHandler  *handlers.UploadHandler
	Tokens         *token.Service
	MediaDir       string
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	if d.MediaDir != "" {
		e.Static("/media", d.MediaDir)
	}

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.Logout)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	if d.SearchHandler != nil {
		v1.GET("/search", d.SearchHandler.Search)
	}

	cart := v1.Group("/cart", d.Tokens.AutoRefresh)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.DELETE("", d.CartHandler.ClearCart)
	cart.DELETE("/:index", d.CartHandler.RemoveFromCart)
	cart.POST("/checkout", d.CartHandler.CheckoutCart)

	profile := v1.Group("/profile", d.Tokens.AutoRefresh)
	profile.GET("", d.ProfileHandler.GetProfile)
	profile.PUT("", d.ProfileHandler.SaveProfile)
	profile.GET("/orders", d.ProfileHandler.MyOrders)
	profile.POST("/orders/:id/cancel", d.ProfileHandler.CancelMyOrder)
	profile.DELETE("/orders/:id", d.ProfileHandler.DeleteMyOrder)

	admin := v1.Group("/admin", d.Tokens.AdminOnly)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
	if d.UploadHandler != nil {
		admin.POST("/uploads", d.UploadHandler.Upload)
	}
	admin.GET("/orders", d.OrderHandler.ListOrders)
	admin.PATCH("/orders/:id/status", d.OrderHandler.UpdateStatus)
	admin.DELETE("/orders/:id", d.OrderHandler.DeleteOrder)
	admin.GET("/orders/stats", d.OrderHandler.Stats)
	admin.GET("/orders/feed", d.OrderHandler.Feed)
}
