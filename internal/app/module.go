package app

import "github.com/gin-gonic/gin"

// Module defines the contract for a self-registering business module.
// public carries the API prefix and unit of work; protected additionally
// requires a valid access token.
type Module interface {
	RegisterRoutes(public *gin.RouterGroup, protected *gin.RouterGroup)
}
