// Package application 定价服务的应用层：对当前市场快照的按需估值。
package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	mddomain "github.com/wyfcoding/indexderivatives/internal/marketdata/domain"
	"github.com/wyfcoding/indexderivatives/internal/pricing/domain"
	"github.com/wyfcoding/indexderivatives/pkg/logger"
)

// SnapshotSource 当前市场快照的只读来源
type SnapshotSource interface {
	Current() *mddomain.MarketSnap
}

// ValuationService 按需估值服务
// 对当前快照为任意产品计算 NPV 与希腊字母；快照在整个请求内固定，
// 结果各字段来自同一版本的市场状态。
type ValuationService struct {
	source SnapshotSource
	calc   *domain.GreeksCalculator
}

// NewValuationService 构造估值服务。
func NewValuationService(source SnapshotSource, calc *domain.GreeksCalculator) *ValuationService {
	return &ValuationService{source: source, calc: calc}
}

// ValueProduct 估值单个产品。
func (s *ValuationService) ValueProduct(ctx context.Context, req ValuationRequest) (*ValuationResult, error) {
	product, err := parseProduct(req)
	if err != nil {
		return nil, err
	}

	snap := s.source.Current()
	if snap == nil {
		return nil, fmt.Errorf("valuation: %w", mddomain.ErrQuoteUnavailable)
	}
	mv := snap.MarketView()

	greeks, err := s.calc.Calculate(product, mv)
	if err != nil {
		return nil, fmt.Errorf("valuation: %w", err)
	}

	result := &ValuationResult{
		SnapshotVersion: snap.Version,
		NPV:             greeks.NPV,
		Delta:           greeks.Delta,
		Gamma:           greeks.Gamma,
		Vega:            greeks.Vega,
		Theta:           greeks.Theta,
		Rho:             greeks.Rho,
	}

	if req.ParamVega {
		bumps := make(map[string]float64)
		for _, name := range mv.Surface.ParamNames() {
			bumps[name] = s.calc.Bumps().VolAbs
		}
		paramVega, err := s.calc.VegaByParams(product, mv, bumps)
		if err != nil {
			return nil, fmt.Errorf("valuation: %w", err)
		}
		result.ParamVega = paramVega
	}

	logger.Debug(ctx, "product valued",
		"product", string(product.Type), "strike", product.Strike, "version", snap.Version)
	return result, nil
}

func parseProduct(req ValuationRequest) (domain.Product, error) {
	expiry, err := time.Parse("2006-01-02", req.Expiry)
	if err != nil {
		return domain.Product{}, fmt.Errorf("valuation: parse expiry %q: %w", req.Expiry, err)
	}

	switch strings.ToUpper(req.ProductType) {
	case string(domain.ProductTypeFuture):
		return domain.NewFutureProduct(expiry), nil
	case string(domain.ProductTypeOption):
		if req.Strike <= 0 {
			return domain.Product{}, fmt.Errorf("valuation: option strike must be positive")
		}
		optType := domain.OptionType(strings.ToUpper(req.OptionType))
		if optType != domain.OptionTypeCall && optType != domain.OptionTypePut {
			return domain.Product{}, fmt.Errorf("valuation: option type %q", req.OptionType)
		}
		return domain.NewOptionProduct(expiry, req.Strike, optType), nil
	}
	return domain.Product{}, fmt.Errorf("valuation: product type %q", req.ProductType)
}
