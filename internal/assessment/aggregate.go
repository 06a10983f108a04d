package assessment

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"prudentia/internal/basel"
)

// MinimumCapitalRatio 为巴塞尔最低资本充足率 8%。
const MinimumCapitalRatio = 0.08

// Result 为组合层面的监管指标。
type Result struct {
	TotalExposure      float64 `json:"total_exposure"`
	TotalExpectedLoss  float64 `json:"total_expected_loss"`
	TotalRWA           float64 `json:"total_rwa"`
	CapitalRequirement float64 `json:"capital_requirement"`
	AveragePD          float64 `json:"average_pd"` // 未按暴露加权的算术平均
}

// Aggregate 自下而上汇总组合的 EL、RWA 及资本要求。
// 空组合或总暴露为 0 时返回全零结果。
func Aggregate(portfolio basel.Portfolio) (Result, error) {
	totalEAD := portfolio.TotalExposure()
	if portfolio.Len() == 0 || totalEAD == 0 {
		return Result{}, nil
	}

	var totalEL, totalRWA float64
	pds := make([]float64, 0, portfolio.Len())
	for _, loan := range portfolio.Loans {
		rwa, err := basel.RiskWeightedAssets(loan)
		if err != nil {
			return Result{}, fmt.Errorf("assessment: 贷款 %q 计算 RWA 失败: %w", loan.ID, err)
		}
		totalRWA += rwa
		totalEL += basel.ExpectedLoss(loan)
		pds = append(pds, loan.PD)
	}

	return Result{
		TotalExposure:      totalEAD,
		TotalExpectedLoss:  totalEL,
		TotalRWA:           totalRWA,
		CapitalRequirement: totalRWA * MinimumCapitalRatio,
		AveragePD:          stat.Mean(pds, nil),
	}, nil
}
