package basel

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// PDFloor 用于避免 log(0) 及除零。
	PDFloor = 1e-7
	// ConfidenceLevel 为 IRB 资本公式的 99.9% 置信水平。
	ConfidenceLevel = 0.999
	// CapitalMultiplier 将资本要求 K 换算为风险加权资产。
	CapitalMultiplier = 12.5

	smeTurnoverFloor = 5e6
	smeTurnoverCap   = 50e6
	smeMaxAdjustment = 0.04
)

// ErrMaturitySingularity 表示期限调整分母 1-1.5b 不为正，公式在该区域无定义。
var ErrMaturitySingularity = errors.New("basel: 期限调整分母不为正")

// AssetCorrelation 计算资产相关系数 R（公司类公式，含 SME 规模调整）。
func AssetCorrelation(loan Loan) float64 {
	pd := math.Max(loan.PD, PDFloor)

	k := (1 - math.Exp(-50*pd)) / (1 - math.Exp(-50))
	rho := 0.12*k + 0.24*(1-k)

	if loan.ExposureType == ExposureSME && loan.Turnover != nil {
		turnover := math.Min(math.Max(*loan.Turnover, smeTurnoverFloor), smeTurnoverCap)
		rho -= smeMaxAdjustment * (1 - (turnover-smeTurnoverFloor)/(smeTurnoverCap-smeTurnoverFloor))
	}

	return math.Max(rho, 0)
}

// MaturityAdjustment 计算期限调整因子 MA。
// 当平滑因子 b >= 2/3 时分母不为正，返回 ErrMaturitySingularity。
func MaturityAdjustment(loan Loan, pd float64) (float64, error) {
	pd = math.Max(pd, PDFloor)

	b := math.Pow(0.11852-0.05478*math.Log(pd), 2)
	denominator := 1 - 1.5*b
	if denominator <= 0 {
		return 0, fmt.Errorf("%w (pd=%g, b=%.6f)", ErrMaturitySingularity, pd, b)
	}

	return (1 + (loan.Maturity-2.5)*b) / denominator, nil
}

// CapitalRatio 按 Vasicek 单因子模型计算资本要求 K。
// pd 为 0 或 >= 1 时返回 0。
func CapitalRatio(loan Loan) (float64, error) {
	if loan.PD == 0 || loan.PD >= 1 {
		return 0, nil
	}

	rho := AssetCorrelation(loan)
	zPD := distuv.UnitNormal.Quantile(loan.PD)
	zConf := distuv.UnitNormal.Quantile(ConfidenceLevel)

	conditionalPD := distuv.UnitNormal.CDF((zPD + math.Sqrt(rho)*zConf) / math.Sqrt(1-rho))
	raw := loan.LGD * (conditionalPD - loan.PD)

	ma, err := MaturityAdjustment(loan, loan.PD)
	if err != nil {
		return 0, err
	}

	return math.Max(raw*ma, 0), nil
}

// RiskWeightedAssets 计算风险加权资产 RWA = K * 12.5 * EAD。
func RiskWeightedAssets(loan Loan) (float64, error) {
	k, err := CapitalRatio(loan)
	if err != nil {
		return 0, err
	}
	return k * CapitalMultiplier * loan.EAD, nil
}

// ExpectedLoss 计算预期损失 EL = PD * LGD * EAD。
func ExpectedLoss(loan Loan) float64 {
	return loan.PD * loan.LGD * loan.EAD
}
