package handlers

import (
	"net/http"
	"strconv"

	"subcatalog/internal/auth"
	"subcatalog/internal/dto"
	"subcatalog/internal/middleware"
	"subcatalog/internal/services"
	"subcatalog/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	*BaseHandler
	subscriptionService services.SubscriptionService
}

func NewSubscriptionHandler(base *BaseHandler, subscriptionService services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		BaseHandler:         base,
		subscriptionService: subscriptionService,
	}
}

func (h *SubscriptionHandler) RegisterRoutes(r *gin.RouterGroup) {
	subs := r.Group("/subscriptions")
	{
		// Public catalog
		subs.GET("", h.GetAll)
		subs.GET("/categories", h.GetAllCategories)
		subs.GET("/category/:category", h.GetByCategory)
		subs.GET("/search", h.Search)
		subs.GET("/:id", h.GetByID)

		// Admin surface
		admin := subs.Group("")
		admin.Use(middleware.AuthMiddleware(), middleware.RoleMiddleware(auth.RoleAdmin))
		{
			admin.POST("", h.Create)
			admin.PUT("/:id", h.Update)
			admin.DELETE("/:id", h.Deactivate)
			admin.POST("/:id/activate", h.Activate)
			admin.GET("/admin/all", h.AdminGetAll)
			admin.GET("/admin/statistics", h.Statistics)
			admin.GET("/admin/search", h.AdminSearch)
			admin.GET("/admin/:id", h.AdminGetByID)
		}
	}
}

// --- Public catalog ---

func (h *SubscriptionHandler) GetAll(c *gin.Context) {
	subscriptions, err := h.subscriptionService.GetAll(c.Request.Context())
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"subscriptions": subscriptions,
		"count":         len(subscriptions),
	})
}

func (h *SubscriptionHandler) GetByID(c *gin.Context) {
	id, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	subscription, err := h.subscriptionService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"subscription": subscription,
	})
}

func (h *SubscriptionHandler) GetByCategory(c *gin.Context) {
	category := c.Param("category")

	subscriptions, err := h.subscriptionService.GetByCategory(c.Request.Context(), category)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"subscriptions": subscriptions,
		"category":      category,
		"count":         len(subscriptions),
	})
}

func (h *SubscriptionHandler) GetAllCategories(c *gin.Context) {
	categories, err := h.subscriptionService.GetAllCategories(c.Request.Context())
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"categories": categories,
		"count":      len(categories),
	})
}

func (h *SubscriptionHandler) Search(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Query parameter 'name' is required"))
		return
	}

	subscriptions, err := h.subscriptionService.Search(c.Request.Context(), name)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"subscriptions": subscriptions,
		"searchTerm":    name,
		"count":         len(subscriptions),
	})
}

// --- Admin surface ---

func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req dto.SubscriptionRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	subscription, err := h.subscriptionService.Create(c.Request.Context(), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"message":      "Subscription created successfully",
		"subscription": subscription,
	})
}

func (h *SubscriptionHandler) Update(c *gin.Context) {
	id, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.SubscriptionRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	subscription, err := h.subscriptionService.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Subscription updated successfully",
		"subscription": subscription,
	})
}

func (h *SubscriptionHandler) Deactivate(c *gin.Context) {
	id, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.subscriptionService.Deactivate(c.Request.Context(), id); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Subscription deleted successfully",
	})
}

func (h *SubscriptionHandler) Activate(c *gin.Context) {
	id, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	subscription, err := h.subscriptionService.Activate(c.Request.Context(), id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Subscription activated successfully",
		"subscription": subscription,
	})
}

func (h *SubscriptionHandler) AdminGetAll(c *gin.Context) {
	q := dto.PageQuery{
		Page:    h.QueryInt(c, "page", 0),
		Size:    h.QueryInt(c, "size", 10),
		SortBy:  c.DefaultQuery("sortBy", "id"),
		SortDir: c.DefaultQuery("sortDir", "desc"),
	}
	if raw := c.Query("isActive"); raw != "" {
		isActive, err := strconv.ParseBool(raw)
		if err != nil {
			apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid isActive parameter"))
			return
		}
		q.IsActive = &isActive
	}

	page, err := h.subscriptionService.GetAllForAdmin(c.Request.Context(), q)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"subscriptions": page.Content,
		"currentPage":   page.CurrentPage,
		"totalItems":    page.TotalItems,
		"totalPages":    page.TotalPages,
	})
}

func (h *SubscriptionHandler) AdminGetByID(c *gin.Context) {
	id, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	subscription, err := h.subscriptionService.GetByIDForAdmin(c.Request.Context(), id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"subscription": subscription,
	})
}

func (h *SubscriptionHandler) AdminSearch(c *gin.Context) {
	term := c.Query("searchTerm")
	if term == "" {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Query parameter 'searchTerm' is required"))
		return
	}

	page, err := h.subscriptionService.SearchForAdmin(
		c.Request.Context(),
		term,
		h.QueryInt(c, "page", 0),
		h.QueryInt(c, "size", 10),
	)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"subscriptions": page.Content,
		"currentPage":   page.CurrentPage,
		"totalItems":    page.TotalItems,
		"totalPages":    page.TotalPages,
		"searchTerm":    term,
	})
}

func (h *SubscriptionHandler) Statistics(c *gin.Context) {
	statistics, err := h.subscriptionService.Statistics(c.Request.Context())
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"statistics": statistics,
	})
}
