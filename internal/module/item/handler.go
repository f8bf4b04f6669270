package item

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/simp-lee/itemhub/internal/domain"
	"github.com/simp-lee/itemhub/internal/pkg"
)

const tableName = "items"

// ItemHandler handles REST API requests for the item resource.
type ItemHandler struct {
	svc domain.ItemService
}

// NewItemHandler creates a new ItemHandler with the given service.
func NewItemHandler(svc domain.ItemService) *ItemHandler {
	return &ItemHandler{svc: svc}
}

// List handles GET /items.
func (h *ItemHandler) List(c *gin.Context) {
	req, err := pkg.ParsePageRequest(c)
	if err != nil {
		pkg.Fail(c, err)
		return
	}

	items, total, err := h.svc.List(c.Request.Context(), req)
	if err != nil {
		pkg.Fail(c, err)
		return
	}

	pkg.List(c, "Items fetched successfully", tableName, req, total, items)
}

// Get handles GET /items/:id.
func (h *ItemHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	item, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		pkg.Fail(c, err)
		return
	}

	pkg.Success(c, http.StatusOK, "Item fetched successfully", item, pkg.WithTableName(tableName))
}

// Create handles POST /items.
func (h *ItemHandler) Create(c *gin.Context) {
	var req CreateItemRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	item, err := h.svc.Create(c.Request.Context(), req.toInput())
	if err != nil {
		pkg.Fail(c, err)
		return
	}

	pkg.Success(c, http.StatusCreated, "Item created successfully", item, pkg.WithTableName(tableName))
}

// BulkImport handles POST /items/bulk/import. The body is a JSON array of
// items; either all of them are stored or none.
func (h *ItemHandler) BulkImport(c *gin.Context) {
	var raws []json.RawMessage
	if err := c.ShouldBindJSON(&raws); err != nil {
		pkg.Fail(c, pkg.BindingError(err, nil, ""))
		return
	}

	reqs, err := decodeBulk(raws)
	if err != nil {
		pkg.Fail(c, err)
		return
	}

	inputs := make([]domain.ItemInput, len(reqs))
	for i, r := range reqs {
		inputs[i] = r.toInput()
	}

	items, err := h.svc.CreateBulk(c.Request.Context(), inputs)
	if err != nil {
		pkg.Fail(c, err)
		return
	}

	msg := fmt.Sprintf("%d items created successfully", len(items))
	pkg.Success(c, http.StatusCreated, msg, items, pkg.WithTableName(tableName))
}

// Update handles PUT /items/:id.
func (h *ItemHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateItemRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	item, err := h.svc.Update(c.Request.Context(), id, req.toPatch())
	if err != nil {
		pkg.Fail(c, err)
		return
	}

	pkg.Success(c, http.StatusOK, "Item updated successfully", item, pkg.WithTableName(tableName))
}

// Delete handles DELETE /items/:id.
func (h *ItemHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	deleted, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		pkg.Fail(c, err)
		return
	}
	if !deleted {
		pkg.Fail(c, domain.NotFound("Item"))
		return
	}

	pkg.NoContent(c)
}

// decodeBulk decodes and validates each array element on its own so that
// every detail key carries the element index, as in items[2].price.
func decodeBulk(raws []json.RawMessage) ([]CreateItemRequest, error) {
	reqs := make([]CreateItemRequest, len(raws))
	details := make(map[string]string)
	for i, raw := range raws {
		prefix := pkg.ItemsPrefix(i)
		if err := json.Unmarshal(raw, &reqs[i]); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && typeErr.Field != "" {
				details[prefix+typeErr.Field] = "type"
			} else {
				details[prefix[:len(prefix)-1]] = "type"
			}
			continue
		}
		if binding.Validator == nil {
			continue
		}
		if err := binding.Validator.ValidateStruct(&reqs[i]); err != nil {
			maps.Copy(details, pkg.ValidationDetails(err, &reqs[i], prefix))
		}
	}
	if len(details) > 0 {
		return nil, domain.NewValidationError("Validation error", details)
	}
	return reqs, nil
}

// parseID reads the :id path parameter. On failure it records a
// validation error and returns false.
func parseID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		pkg.Fail(c, domain.NewValidationError("Invalid item id", map[string]string{"id": "gte=1"}))
		return 0, false
	}
	return uint(id), true
}
