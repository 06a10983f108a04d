package basel

import (
	"fmt"
	"strings"
)

// ExposureType 表示巴塞尔监管口径下的风险暴露类别。
type ExposureType string

const (
	ExposureCorporate            ExposureType = "CORPORATE"
	ExposureRetail               ExposureType = "RETAIL"
	ExposureSME                  ExposureType = "SME"
	ExposureFinancialInstitution ExposureType = "FINANCIAL_INSTITUTION"
)

// DefaultMaturity 为未指定期限时使用的有效期限（年）。
const DefaultMaturity = 2.5

// ParseExposureType 解析暴露类别，空字符串视为 CORPORATE。
func ParseExposureType(value string) (ExposureType, error) {
	switch t := ExposureType(strings.ToUpper(strings.TrimSpace(value))); t {
	case "":
		return ExposureCorporate, nil
	case ExposureCorporate, ExposureRetail, ExposureSME, ExposureFinancialInstitution:
		return t, nil
	default:
		return "", fmt.Errorf("basel: 未知的暴露类别 %q", value)
	}
}

// UnmarshalText 支持大小写不敏感的类别解析。
func (t *ExposureType) UnmarshalText(text []byte) error {
	parsed, err := ParseExposureType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Loan 描述单笔贷款或授信额度，校验通过后视为不可变值。
type Loan struct {
	ID           string       `json:"id"`
	PD           float64      `json:"pd"`       // 一年期违约概率
	LGD          float64      `json:"lgd"`      // 违约损失率
	EAD          float64      `json:"ead"`      // 违约风险暴露（金额）
	Maturity     float64      `json:"maturity"` // 有效期限（年）
	ExposureType ExposureType `json:"exposure_type"`
	Turnover     *float64     `json:"turnover,omitempty"` // 年营业额，仅用于 SME 调整
}

// WithPD 返回替换违约概率后的新贷款，其余字段保持不变。
func (l Loan) WithPD(pd float64) Loan {
	out := l
	out.PD = pd
	if l.Turnover != nil {
		turnover := *l.Turnover
		out.Turnover = &turnover
	}
	return out
}

// Portfolio 为有序的贷款集合。
type Portfolio struct {
	Loans []Loan `json:"loans"`
}

// NewPortfolio 复制传入的贷款切片构建组合。
func NewPortfolio(loans []Loan) Portfolio {
	return Portfolio{Loans: append([]Loan(nil), loans...)}
}

// Len 返回贷款笔数。
func (p Portfolio) Len() int {
	return len(p.Loans)
}

// TotalExposure 按需计算组合总暴露，不做缓存。
func (p Portfolio) TotalExposure() float64 {
	total := 0.0
	for _, loan := range p.Loans {
		total += loan.EAD
	}
	return total
}
