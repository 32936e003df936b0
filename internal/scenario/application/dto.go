// Package application 情景分析服务的应用层：交易簿管理、网格估值与归因编排。
package application

import (
	"time"

	"github.com/shopspring/decimal"
)

// AddTradeRequest 新增交易请求
type AddTradeRequest struct {
	TradingSymbol string  `json:"trading_symbol" binding:"required"`
	ProductType   string  `json:"product_type" binding:"required"`
	Expiry        string  `json:"expiry" binding:"required"`
	Strike        float64 `json:"strike"`
	OptionType    string  `json:"option_type"`
	Lots          int     `json:"lots" binding:"required"`
	Quantity      float64 `json:"quantity" binding:"required"`
}

// TradeDTO 交易视图
type TradeDTO struct {
	ID            string    `json:"id"`
	TradingSymbol string    `json:"trading_symbol"`
	ProductType   string    `json:"product_type"`
	Expiry        string    `json:"expiry"`
	Strike        float64   `json:"strike,omitempty"`
	OptionType    string    `json:"option_type,omitempty"`
	Lots          int       `json:"lots"`
	Quantity      float64   `json:"quantity"`
	CreatedAt     time.Time `json:"created_at"`
}

// BookValueDTO 簿现值与聚合希腊字母
type BookValueDTO struct {
	SnapshotVersion uint64          `json:"snapshot_version"`
	NPV             decimal.Decimal `json:"npv"`
	Delta           decimal.Decimal `json:"delta"`
	Gamma           decimal.Decimal `json:"gamma"`
	Vega            decimal.Decimal `json:"vega"`
	Theta           decimal.Decimal `json:"theta"`
	Rho             decimal.Decimal `json:"rho"`
}

// GridRequestDTO 网格请求；空轴使用服务默认档位。
type GridRequestDTO struct {
	SpotShifts []float64 `json:"spot_shifts"`
	VolShifts  []float64 `json:"vol_shifts"`
	TimeShifts []float64 `json:"time_shifts"`
}

// GridCellDTO 单格结果
type GridCellDTO struct {
	SpotShift float64         `json:"spot_shift"`
	VolShift  float64         `json:"vol_shift"`
	TimeShift float64         `json:"time_shift"`
	NPV       decimal.Decimal `json:"npv"`
}

// GridResultDTO 网格结果
type GridResultDTO struct {
	SnapshotVersion uint64        `json:"snapshot_version"`
	Cells           []GridCellDTO `json:"cells"`
}

// AttributionLineDTO 归因分解的一行
type AttributionLineDTO struct {
	TradeID       string          `json:"trade_id,omitempty"`
	TradingSymbol string          `json:"trading_symbol,omitempty"`
	Actual        decimal.Decimal `json:"actual"`
	Theta         decimal.Decimal `json:"theta"`
	Rates         decimal.Decimal `json:"rates"`
	Delta         decimal.Decimal `json:"delta"`
	Gamma         decimal.Decimal `json:"gamma"`
	FwdResidual   decimal.Decimal `json:"fwd_residual"`
	Vega          decimal.Decimal `json:"vega"`
	Volga         decimal.Decimal `json:"volga"`
	Vanna         decimal.Decimal `json:"vanna"`
	VolResidual   decimal.Decimal `json:"vol_residual"`
	CrossResidual decimal.Decimal `json:"cross_residual"`
	Explained     decimal.Decimal `json:"explained"`
	Unexplained   decimal.Decimal `json:"unexplained"`
}

// AttributionDTO 簿级归因结果
type AttributionDTO struct {
	FromVersion uint64               `json:"from_version"`
	ToVersion   uint64               `json:"to_version"`
	Book        AttributionLineDTO   `json:"book"`
	Trades      []AttributionLineDTO `json:"trades"`
}
