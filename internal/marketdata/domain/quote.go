// Package domain 市场数据服务的领域模型：行情、合约元数据、期权链、
// 原子市场快照与外部协作方接口。
package domain

import (
	"time"

	pricing "github.com/wyfcoding/indexderivatives/internal/pricing/domain"
)

// Quote 单合约行情，逐笔刷新、不落库，按合约令牌后写覆盖。
type Quote struct {
	// InstrumentToken 合约令牌
	InstrumentToken uint32
	Bid             float64
	Ask             float64
	Last            float64
	OpenInterest    float64
	Timestamp       time.Time
}

// Mid 中间价；无双边报价时退化为最新成交价。
func (q Quote) Mid() float64 {
	if q.Bid > 0 && q.Ask > 0 {
		return (q.Bid + q.Ask) / 2
	}
	return q.Last
}

// InstrumentKind 合约类别
type InstrumentKind string

const (
	KindIndex  InstrumentKind = "INDEX"
	KindFuture InstrumentKind = "FUTURE"
	KindOption InstrumentKind = "OPTION"
)

// Instrument 合约静态元数据，由参考数据仓储提供。
type Instrument struct {
	Token         uint32
	TradingSymbol string
	Exchange      string
	Kind          InstrumentKind
	Expiry        time.Time
	// Strike / OptionType 仅期权有效
	Strike     float64
	OptionType pricing.OptionType
	LotSize    int
}

// OptionChain 单一标的、单一到期的期权链
type OptionChain struct {
	Index   Instrument
	Future  *Instrument // 链上可能没有期货合约
	Options []Instrument
	Expiry  time.Time
}

// QuoteRequest 行情拉取请求
type QuoteRequest struct {
	Exchange        string
	InstrumentToken uint32
}

// QuoteAck 盘口订阅的确认数据，持仓量必须在场。
type QuoteAck struct {
	InstrumentToken uint32
	Bid             float64
	Ask             float64
	Last            float64
	OpenInterest    float64
	Timestamp       time.Time
}
