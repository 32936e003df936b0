// Package domain 情景分析服务的领域模型：交易簿、情景网格估值与损益归因。
package domain

import (
	"errors"
	"time"

	pricing "github.com/wyfcoding/indexderivatives/internal/pricing/domain"
)

var (
	// ErrEmptyBook 交易簿为空
	ErrEmptyBook = errors.New("scenario: trade book is empty")
	// ErrNoPreviousSnapshot 没有可供归因的上一快照
	ErrNoPreviousSnapshot = errors.New("scenario: no previous snapshot for attribution")
	// ErrNoSnapshot 市场快照尚未发布
	ErrNoSnapshot = errors.New("scenario: market snapshot not yet available")
	// ErrTradeNotFound 交易不存在
	ErrTradeNotFound = errors.New("scenario: trade not found")
)

// Trade 簿记的一笔头寸；数量为正代表多头，为负代表空头。
// Lots 为手数，Quantity 为估值权重（手数乘以合约乘数），估值与归因
// 只使用 Quantity。
type Trade struct {
	ID            string
	TradingSymbol string
	Product       pricing.Product
	Lots          int
	Quantity      float64
	CreatedAt     time.Time
}

// Book 交易簿
type Book struct {
	Trades []Trade
}

// Validate 校验簿不为空。
func (b Book) Validate() error {
	if len(b.Trades) == 0 {
		return ErrEmptyBook
	}
	return nil
}
