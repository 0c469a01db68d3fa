package api

import (
	"github.com/gin-gonic/gin"
	"github.com/safar/b2b-ordering/internal/logging"
)

func NewRouter(handler *Handler, jwtSecret []byte) *gin.Engine {
	router := gin.New()

	router.Use(logging.RequestID())
	router.Use(logging.JSONLogger())
	router.Use(gin.Recovery())

	router.GET("/live", func(c *gin.Context) { c.Status(200) })
	router.GET("/ready", handler.Health)

	authed := router.Group("/", AuthMiddleware(jwtSecret))
	{
		authed.GET("/products", handler.ListProducts)
		authed.GET("/products/:id", handler.GetProduct)

		authed.POST("/orders", handler.CreateOrder)
		authed.GET("/orders", handler.ListOrders)
		authed.GET("/orders/:id", handler.GetOrder)
		authed.PUT("/orders/:id", handler.ModifyOrder)
		authed.DELETE("/orders/:id", handler.DeleteOrder)
		authed.POST("/orders/:id/validate", handler.ValidateOrder)
		authed.POST("/orders/:id/send", handler.SendOrder)
	}

	return router
}
