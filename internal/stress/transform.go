package stress

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"prudentia/internal/basel"
	"prudentia/internal/scenario"
)

const (
	// DefaultSensitivity 为默认的冲击敏感度。
	DefaultSensitivity = 1.0

	minShiftPD = 1e-5
	maxShiftPD = 0.999
)

// Transformer 将宏观情景冲击作用到组合的违约概率上。
type Transformer struct {
	catalog *scenario.Catalog
}

// NewTransformer 创建压力转换器，catalog 为空时使用内置情景。
func NewTransformer(catalog *scenario.Catalog) *Transformer {
	if catalog == nil {
		catalog = scenario.DefaultCatalog()
	}
	return &Transformer{catalog: catalog}
}

// Catalog 返回转换器使用的情景目录。
func (t *Transformer) Catalog() *scenario.Catalog {
	return t.catalog
}

// Apply 对组合施加情景冲击，返回新的组合及情景解析结果。
// 冲击为 0 时原样返回输入组合；输入贷款不会被修改。
// 重复调用不等价于敏感度加倍，调用方不应链式叠加。
func (t *Transformer) Apply(portfolio basel.Portfolio, scenarioName string, sensitivity float64) (basel.Portfolio, scenario.Resolution) {
	res := t.catalog.Resolve(scenarioName)
	if res.Scenario.ShockFactor == 0 {
		return portfolio, res
	}

	shift := res.Scenario.ShockFactor * sensitivity
	loans := make([]basel.Loan, 0, len(portfolio.Loans))
	for _, loan := range portfolio.Loans {
		loans = append(loans, loan.WithPD(ShiftPD(loan.PD, shift)))
	}

	return basel.Portfolio{Loans: loans}, res
}

// ShiftPD 在概率单位空间平移违约概率：Φ(Φ⁻¹(pd) + shift)。
// pd 先截断到 [1e-5, 0.999]。
func ShiftPD(pd, shift float64) float64 {
	clamped := math.Min(math.Max(pd, minShiftPD), maxShiftPD)
	z := distuv.UnitNormal.Quantile(clamped)
	return distuv.UnitNormal.CDF(z + shift)
}
