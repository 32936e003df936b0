// Package http 市场数据服务的 HTTP 交付层。
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/indexderivatives/internal/marketdata/application"
)

// MarketDataHandler 快照与期权链查询接口
type MarketDataHandler struct {
	query *application.MarketQueryService
}

// NewMarketDataHandler 构造处理器。
func NewMarketDataHandler(query *application.MarketQueryService) *MarketDataHandler {
	return &MarketDataHandler{query: query}
}

// RegisterRoutes 注册路由。
func (h *MarketDataHandler) RegisterRoutes(r *gin.RouterGroup) {
	md := r.Group("/marketdata")
	{
		md.GET("/snapshot", h.GetSnapshot)
		md.GET("/chain", h.GetChain)
		md.GET("/term-structure", h.GetTermStructure)
	}
}

// GetSnapshot 返回当前市场快照。
func (h *MarketDataHandler) GetSnapshot(c *gin.Context) {
	snap, err := h.query.GetSnapshot()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetChain 返回当前期权链。
func (h *MarketDataHandler) GetChain(c *gin.Context) {
	chain, err := h.query.GetChain()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, chain)
}

// GetTermStructure 按 tte 查询参数采样平值期限结构。
func (h *MarketDataHandler) GetTermStructure(c *gin.Context) {
	var ttes []float64
	for _, raw := range c.QueryArray("tte") {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tte: " + raw})
			return
		}
		ttes = append(ttes, v)
	}

	points, err := h.query.GetTermStructure(ttes)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}
