// Package mysql 交易簿的 MySQL 仓储。
package mysql

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	pricing "github.com/wyfcoding/indexderivatives/internal/pricing/domain"

	"github.com/wyfcoding/indexderivatives/internal/scenario/domain"
)

// ScenarioTradeModel 交易簿表
type ScenarioTradeModel struct {
	ID            uint   `gorm:"primarykey"`
	TradeID       string `gorm:"size:36;uniqueIndex;not null"`
	TradingSymbol string `gorm:"size:64;index"`
	ProductType   string `gorm:"size:16;not null"`
	Expiry        time.Time
	Strike        float64
	OptionType    string `gorm:"size:8"`
	Lots          int
	Quantity      float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName 指定表名。
func (ScenarioTradeModel) TableName() string {
	return "scenario_trades"
}

func (m *ScenarioTradeModel) toDomain() domain.Trade {
	return domain.Trade{
		ID:            m.TradeID,
		TradingSymbol: m.TradingSymbol,
		Product: pricing.Product{
			Type:       pricing.ProductType(m.ProductType),
			Expiry:     m.Expiry,
			Strike:     m.Strike,
			OptionType: pricing.OptionType(m.OptionType),
		},
		Lots:      m.Lots,
		Quantity:  m.Quantity,
		CreatedAt: m.CreatedAt,
	}
}

// TradeRepository 交易簿仓储
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository 构造仓储。
func NewTradeRepository(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Save 持久化交易。
func (r *TradeRepository) Save(ctx context.Context, t *domain.Trade) error {
	model := ScenarioTradeModel{
		TradeID:       t.ID,
		TradingSymbol: t.TradingSymbol,
		ProductType:   string(t.Product.Type),
		Expiry:        t.Product.Expiry,
		Strike:        t.Product.Strike,
		OptionType:    string(t.Product.OptionType),
		Lots:          t.Lots,
		Quantity:      t.Quantity,
		CreatedAt:     t.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// List 按簿记顺序返回全部交易。
func (r *TradeRepository) List(ctx context.Context) ([]domain.Trade, error) {
	var models []ScenarioTradeModel
	if err := r.db.WithContext(ctx).Order("id asc").Find(&models).Error; err != nil {
		return nil, err
	}
	trades := make([]domain.Trade, len(models))
	for i := range models {
		trades[i] = models[i].toDomain()
	}
	return trades, nil
}

// Delete 删除交易；不存在时报 ErrTradeNotFound。
func (r *TradeRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("trade_id = ?", id).Delete(&ScenarioTradeModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("trade %s: %w", id, domain.ErrTradeNotFound)
	}
	return nil
}
