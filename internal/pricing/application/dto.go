package application

import "github.com/shopspring/decimal"

// ValuationRequest 估值请求
type ValuationRequest struct {
	ProductType string  `json:"product_type" binding:"required"`
	Expiry      string  `json:"expiry" binding:"required"`
	Strike      float64 `json:"strike"`
	OptionType  string  `json:"option_type"`
	// ParamVega 为真时附带逐节点 Vega 分解
	ParamVega bool `json:"param_vega"`
}

// ValuationResult 估值结果
type ValuationResult struct {
	SnapshotVersion uint64             `json:"snapshot_version"`
	NPV             decimal.Decimal    `json:"npv"`
	Delta           decimal.Decimal    `json:"delta"`
	Gamma           decimal.Decimal    `json:"gamma"`
	Vega            decimal.Decimal    `json:"vega"`
	Theta           decimal.Decimal    `json:"theta"`
	Rho             decimal.Decimal    `json:"rho"`
	ParamVega       map[string]float64 `json:"param_vega,omitempty"`
}
