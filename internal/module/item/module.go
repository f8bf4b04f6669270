package item

import "github.com/gin-gonic/gin"

// ItemModule implements the app.Module interface for the item domain.
type ItemModule struct {
	handler *ItemHandler
}

// NewModule creates a new ItemModule with the given handler.
// Panics if h is nil.
func NewModule(h *ItemHandler) *ItemModule {
	if h == nil {
		panic("item.NewModule: handler must not be nil")
	}
	return &ItemModule{handler: h}
}

// RegisterRoutes registers item routes. Reads are public; writes go on
// protected, which must require authentication.
func (m *ItemModule) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.GET("/items", m.handler.List)
	public.GET("/items/:id", m.handler.Get)

	protected.POST("/items", m.handler.Create)
	protected.POST("/items/bulk/import", m.handler.BulkImport)
	protected.PUT("/items/:id", m.handler.Update)
	protected.DELETE("/items/:id", m.handler.Delete)
}
