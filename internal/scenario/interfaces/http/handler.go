// Package http 情景分析服务的 HTTP 交付层。
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/indexderivatives/internal/scenario/application"
	"github.com/wyfcoding/indexderivatives/internal/scenario/domain"
)

// ScenarioHandler 交易簿与情景分析接口
type ScenarioHandler struct {
	svc *application.ScenarioService
}

// NewScenarioHandler 构造处理器。
func NewScenarioHandler(svc *application.ScenarioService) *ScenarioHandler {
	return &ScenarioHandler{svc: svc}
}

// RegisterRoutes 注册路由。
func (h *ScenarioHandler) RegisterRoutes(r *gin.RouterGroup) {
	sc := r.Group("/scenario")
	{
		sc.POST("/trades", h.AddTrade)
		sc.GET("/trades", h.ListTrades)
		sc.DELETE("/trades/:id", h.RemoveTrade)
		sc.GET("/book", h.ValueBook)
		sc.POST("/grid", h.RunGrid)
		sc.POST("/attribution", h.Attribute)
	}
}

// AddTrade 新增交易。
func (h *ScenarioHandler) AddTrade(c *gin.Context) {
	var req application.AddTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	trade, err := h.svc.AddTrade(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, trade)
}

// ListTrades 枚举簿内交易。
func (h *ScenarioHandler) ListTrades(c *gin.Context) {
	trades, err := h.svc.ListTrades(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

// RemoveTrade 删除交易。
func (h *ScenarioHandler) RemoveTrade(c *gin.Context) {
	if err := h.svc.RemoveTrade(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, domain.ErrTradeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// ValueBook 簿估值。
func (h *ScenarioHandler) ValueBook(c *gin.Context) {
	bv, err := h.svc.ValueBook(c.Request.Context())
	if err != nil {
		c.JSON(scenarioStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, bv)
}

// RunGrid 情景网格估值。
func (h *ScenarioHandler) RunGrid(c *gin.Context) {
	var req application.GridRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.svc.RunGrid(c.Request.Context(), req)
	if err != nil {
		c.JSON(scenarioStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Attribute 损益归因。
func (h *ScenarioHandler) Attribute(c *gin.Context) {
	result, err := h.svc.Attribute(c.Request.Context())
	if err != nil {
		c.JSON(scenarioStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func scenarioStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyBook), errors.Is(err, domain.ErrNoPreviousSnapshot):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoSnapshot):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
