// Package consumer 市场数据服务的 Kafka 消费入口。
package consumer

import (
	"context"
	"time"

	"github.com/wyfcoding/indexderivatives/internal/marketdata/domain"
	"github.com/wyfcoding/indexderivatives/internal/marketdata/infrastructure/feed"
	"github.com/wyfcoding/indexderivatives/pkg/logger"
	"github.com/wyfcoding/indexderivatives/pkg/metrics"
	"github.com/wyfcoding/indexderivatives/pkg/mq"
)

// tickPayload 行情流消息体
type tickPayload struct {
	InstrumentToken uint32    `json:"instrument_token"`
	Bid             float64   `json:"bid"`
	Ask             float64   `json:"ask"`
	Last            float64   `json:"last"`
	OpenInterest    float64   `json:"open_interest"`
	Timestamp       time.Time `json:"timestamp"`
}

// TickConsumer 消费行情主题并投递到行情流适配器。
type TickConsumer struct {
	consumer *mq.KafkaConsumer
	feed     *feed.KafkaFeed
}

// NewTickConsumer 构造行情消费者。
func NewTickConsumer(consumer *mq.KafkaConsumer, feed *feed.KafkaFeed) *TickConsumer {
	return &TickConsumer{consumer: consumer, feed: feed}
}

// Run 消费行情流直到 ctx 取消。畸形消息记录后跳过，不中断消费。
func (c *TickConsumer) Run(ctx context.Context) error {
	return c.consumer.Consume(ctx, func(ctx context.Context, msg *mq.Message) error {
		var tick tickPayload
		if err := msg.UnmarshalPayload(&tick); err != nil {
			metrics.FeedTicksTotal.WithLabelValues("malformed").Inc()
			logger.Warn(ctx, "malformed feed tick", "offset", msg.Offset, "error", err)
			return nil
		}
		accepted := c.feed.Apply(domain.QuoteAck{
			InstrumentToken: tick.InstrumentToken,
			Bid:             tick.Bid,
			Ask:             tick.Ask,
			Last:            tick.Last,
			OpenInterest:    tick.OpenInterest,
			Timestamp:       tick.Timestamp,
		})
		if accepted {
			metrics.FeedTicksTotal.WithLabelValues("accepted").Inc()
		} else {
			metrics.FeedTicksTotal.WithLabelValues("ignored").Inc()
		}
		return nil
	})
}
