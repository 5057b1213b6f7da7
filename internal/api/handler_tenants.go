package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pgstay-backend/internal/model"
)

type createTenantRequest struct {
	Name   string `json:"name" binding:"required"`
	Phone  string `json:"phone"`
	Gender string `json:"gender"`
}

// CreateTenant handles POST /api/tenants.
func (h *Handler) CreateTenant(c *gin.Context) {
	var req createTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenant := model.Tenant{Name: req.Name, Phone: req.Phone, Gender: req.Gender}
	if err := h.store.CreateTenant(c.Request.Context(), &tenant); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tenant)
}

// GetTenant handles GET /api/tenants/:tenant_id.
func (h *Handler) GetTenant(c *gin.Context) {
	id, ok := paramID(c, "tenant_id")
	if !ok {
		return
	}
	tenant, err := h.store.GetTenant(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

// ListTenants handles GET /api/tenants.
func (h *Handler) ListTenants(c *gin.Context) {
	tenants, err := h.store.ListTenants(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tenants)
}
