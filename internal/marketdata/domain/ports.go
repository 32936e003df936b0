package domain

import (
	"context"
	"errors"
	"time"
)

// 协作方与配置类错误
var (
	// ErrMissingIndex 指数合约缺失，属致命配置错误
	ErrMissingIndex = errors.New("marketdata: index instrument not found")
	// ErrNoOptions 流动性/到期过滤后期权链为空，属致命配置错误
	ErrNoOptions = errors.New("marketdata: no options pass the chain filter")
	// ErrInvalidInput 输入参数非法
	ErrInvalidInput = errors.New("marketdata: invalid input")
	// ErrFeedTimeout 等待订阅确认超时
	ErrFeedTimeout = errors.New("marketdata: timed out waiting for subscription acks")
	// ErrNegativeInterval 年化区间终点早于起点
	ErrNegativeInterval = errors.New("marketdata: year fraction interval is negative")
	// ErrQuoteUnavailable 行情源没有该合约的报价
	ErrQuoteUnavailable = errors.New("marketdata: quote unavailable")
)

// QuoteSource 行情拉取协作方（券商 REST 等传输细节在范围之外）
type QuoteSource interface {
	FetchQuotes(ctx context.Context, reqs []QuoteRequest) ([]Quote, error)
}

// StreamingFeed 盘口流协作方
// SubscribeBatch 声明关注的合约集合；MarkLiveDataComplete 把订阅期切换为
// 流式刷新期，单向且不可逆；TryGetAck 查询某合约是否已有首条确认。
type StreamingFeed interface {
	SubscribeBatch(ctx context.Context, instruments []Instrument) error
	MarkLiveDataComplete()
	TryGetAck(token uint32) (QuoteAck, bool)
}

// InstrumentProvider 合约静态数据协作方
type InstrumentProvider interface {
	// GetOptionsForIndex 返回指数合约、最近到期的期权链与该到期时间
	GetOptionsForIndex(ctx context.Context, symbol string, now time.Time) (*OptionChain, error)
}

// Calendar 日历协作方，返回交易时间加权的年化区间。
type Calendar interface {
	// YearFraction 非负；from == to 时为零；to 早于 from 时报错
	YearFraction(from, to time.Time) (float64, error)
}
