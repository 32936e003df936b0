// Package mysql 合约参考数据的 MySQL 仓储。
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	pricing "github.com/wyfcoding/indexderivatives/internal/pricing/domain"

	"github.com/wyfcoding/indexderivatives/internal/marketdata/domain"
)

// InstrumentModel 合约表
type InstrumentModel struct {
	ID            uint      `gorm:"primarykey"`
	Token         uint32    `gorm:"uniqueIndex;not null"`
	TradingSymbol string    `gorm:"size:64;index;not null"`
	Exchange      string    `gorm:"size:16;not null"`
	Kind          string    `gorm:"size:16;index;not null"`
	Underlying    string    `gorm:"size:64;index"`
	Expiry        time.Time `gorm:"index"`
	Strike        float64
	OptionType    string `gorm:"size:8"`
	LotSize       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName 指定表名。
func (InstrumentModel) TableName() string {
	return "instruments"
}

func (m *InstrumentModel) toDomain() domain.Instrument {
	return domain.Instrument{
		Token:         m.Token,
		TradingSymbol: m.TradingSymbol,
		Exchange:      m.Exchange,
		Kind:          domain.InstrumentKind(m.Kind),
		Expiry:        m.Expiry,
		Strike:        m.Strike,
		OptionType:    pricing.OptionType(m.OptionType),
		LotSize:       m.LotSize,
	}
}

// InstrumentRepository 合约仓储，实现 InstrumentProvider。
type InstrumentRepository struct {
	db *gorm.DB
}

// NewInstrumentRepository 构造仓储。
func NewInstrumentRepository(db *gorm.DB) *InstrumentRepository {
	return &InstrumentRepository{db: db}
}

var _ domain.InstrumentProvider = (*InstrumentRepository)(nil)

// GetOptionsForIndex 返回指数合约与最近未到期的期权链。
// 指数缺失或链为空均为致命配置错误。
func (r *InstrumentRepository) GetOptionsForIndex(ctx context.Context, symbol string, now time.Time) (*domain.OptionChain, error) {
	var index InstrumentModel
	err := r.db.WithContext(ctx).
		Where("trading_symbol = ? AND kind = ?", symbol, string(domain.KindIndex)).
		First(&index).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("instrument %s: %w", symbol, domain.ErrMissingIndex)
		}
		return nil, fmt.Errorf("instrument %s: %w", symbol, err)
	}

	// 最近的未到期期权到期日
	var nearest InstrumentModel
	err = r.db.WithContext(ctx).
		Where("underlying = ? AND kind = ? AND expiry >= ?", symbol, string(domain.KindOption), now).
		Order("expiry asc").
		First(&nearest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("instrument %s: %w", symbol, domain.ErrNoOptions)
		}
		return nil, fmt.Errorf("instrument %s: %w", symbol, err)
	}

	var optionModels []InstrumentModel
	err = r.db.WithContext(ctx).
		Where("underlying = ? AND kind = ? AND expiry = ?", symbol, string(domain.KindOption), nearest.Expiry).
		Order("strike asc").
		Find(&optionModels).Error
	if err != nil {
		return nil, fmt.Errorf("instrument %s: %w", symbol, err)
	}
	if len(optionModels) == 0 {
		return nil, fmt.Errorf("instrument %s: %w", symbol, domain.ErrNoOptions)
	}

	chain := &domain.OptionChain{
		Index:  index.toDomain(),
		Expiry: nearest.Expiry,
	}
	for i := range optionModels {
		chain.Options = append(chain.Options, optionModels[i].toDomain())
	}

	// 同到期的期货合约可选
	var future InstrumentModel
	err = r.db.WithContext(ctx).
		Where("underlying = ? AND kind = ? AND expiry = ?", symbol, string(domain.KindFuture), nearest.Expiry).
		First(&future).Error
	switch {
	case err == nil:
		f := future.toDomain()
		chain.Future = &f
	case errors.Is(err, gorm.ErrRecordNotFound):
		// 链上没有期货，远期回落到现货复利
	default:
		return nil, fmt.Errorf("instrument %s: %w", symbol, err)
	}

	return chain, nil
}
