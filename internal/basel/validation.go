package basel

import (
	"fmt"
	"math"

	"go.uber.org/multierr"
)

// Validate 在进入计算核心之前校验贷款字段范围，返回全部违规项。id 视为不透明字符串，不做校验。
func (l Loan) Validate() error {
	var err error

	if !inUnitInterval(l.PD) {
		err = multierr.Append(err, fmt.Errorf("pd 必须位于[0,1]，当前为 %v", l.PD))
	}
	if !inUnitInterval(l.LGD) {
		err = multierr.Append(err, fmt.Errorf("lgd 必须位于[0,1]，当前为 %v", l.LGD))
	}
	if !(l.EAD > 0) || math.IsInf(l.EAD, 0) {
		err = multierr.Append(err, fmt.Errorf("ead 必须大于0，当前为 %v", l.EAD))
	}
	if !(l.Maturity > 0) || math.IsInf(l.Maturity, 0) {
		err = multierr.Append(err, fmt.Errorf("maturity 必须大于0，当前为 %v", l.Maturity))
	}
	if parsed, typeErr := ParseExposureType(string(l.ExposureType)); typeErr != nil || parsed != l.ExposureType {
		err = multierr.Append(err, fmt.Errorf("exposure_type 无效: %q", l.ExposureType))
	}
	if l.Turnover != nil && (!(*l.Turnover >= 0) || math.IsInf(*l.Turnover, 0)) {
		err = multierr.Append(err, fmt.Errorf("turnover 不能为负，当前为 %v", *l.Turnover))
	}

	if err != nil {
		return fmt.Errorf("basel: 贷款 %q 校验失败: %w", l.ID, err)
	}
	return nil
}

// Validate 校验组合内每一笔贷款。
func (p Portfolio) Validate() error {
	var err error
	for _, loan := range p.Loans {
		err = multierr.Append(err, loan.Validate())
	}
	return err
}

func inUnitInterval(v float64) bool {
	return v >= 0 && v <= 1
}
