// Package http 定价服务的 HTTP 交付层。
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	mddomain "github.com/wyfcoding/indexderivatives/internal/marketdata/domain"
	"github.com/wyfcoding/indexderivatives/internal/pricing/application"
)

// PricingHandler 按需估值接口
type PricingHandler struct {
	svc *application.ValuationService
}

// NewPricingHandler 构造处理器。
func NewPricingHandler(svc *application.ValuationService) *PricingHandler {
	return &PricingHandler{svc: svc}
}

// RegisterRoutes 注册路由。
func (h *PricingHandler) RegisterRoutes(r *gin.RouterGroup) {
	pr := r.Group("/pricing")
	{
		pr.POST("/value", h.ValueProduct)
	}
}

// ValueProduct 估值单个产品。
func (h *PricingHandler) ValueProduct(c *gin.Context) {
	var req application.ValuationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.svc.ValueProduct(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, mddomain.ErrQuoteUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
