package consumer

import (
	"context"

	"github.com/wyfcoding/indexderivatives/internal/marketdata/domain"
	"github.com/wyfcoding/indexderivatives/pkg/logger"
	"github.com/wyfcoding/indexderivatives/pkg/mq"
)

// ratePayload 利率更新消息体
type ratePayload struct {
	Rate float64 `json:"rate"`
}

// RateConsumer 消费利率主题并更新利率持有者。
type RateConsumer struct {
	consumer *mq.KafkaConsumer
	rates    *domain.RateHolder
}

// NewRateConsumer 构造利率消费者。
func NewRateConsumer(consumer *mq.KafkaConsumer, rates *domain.RateHolder) *RateConsumer {
	return &RateConsumer{consumer: consumer, rates: rates}
}

// Run 消费利率更新直到 ctx 取消。非法利率记录后跳过。
func (c *RateConsumer) Run(ctx context.Context) error {
	return c.consumer.Consume(ctx, func(ctx context.Context, msg *mq.Message) error {
		var p ratePayload
		if err := msg.UnmarshalPayload(&p); err != nil {
			logger.Warn(ctx, "malformed rate update", "offset", msg.Offset, "error", err)
			return nil
		}
		if err := c.rates.Set(p.Rate); err != nil {
			logger.Warn(ctx, "rejected rate update", "rate", p.Rate, "error", err)
			return nil
		}
		logger.Info(ctx, "risk free rate updated", "rate", p.Rate)
		return nil
	})
}
