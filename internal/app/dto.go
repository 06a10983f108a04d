package app

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"prudentia/internal/assessment"
	"prudentia/internal/basel"
	"prudentia/internal/scenario"
)

type loanRequest struct {
	ID           string             `json:"id"`
	PD           *float64           `json:"pd"`
	LGD          *float64           `json:"lgd"`
	EAD          *float64           `json:"ead"`
	Maturity     *float64           `json:"maturity"`
	ExposureType basel.ExposureType `json:"exposure_type"`
	Turnover     *float64           `json:"turnover"`
}

type portfolioRequest struct {
	Name  string        `json:"name"`
	Loans []loanRequest `json:"loans"`
}

// toPortfolio 补齐缺省值并在边界处校验全部贷款。
func (req portfolioRequest) toPortfolio() (basel.Portfolio, error) {
	if req.Loans == nil {
		return basel.Portfolio{}, errors.New("缺少 loans 字段")
	}

	var errs error
	loans := make([]basel.Loan, 0, len(req.Loans))
	for i, lr := range req.Loans {
		loan, err := lr.toLoan()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("loans[%d]: %w", i, err))
			continue
		}
		if err := loan.Validate(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("loans[%d]: %w", i, err))
			continue
		}
		loans = append(loans, loan)
	}
	if errs != nil {
		return basel.Portfolio{}, errs
	}
	return basel.Portfolio{Loans: loans}, nil
}

func (lr loanRequest) toLoan() (basel.Loan, error) {
	var err error
	if lr.PD == nil {
		err = multierr.Append(err, errors.New("缺少 pd"))
	}
	if lr.LGD == nil {
		err = multierr.Append(err, errors.New("缺少 lgd"))
	}
	if lr.EAD == nil {
		err = multierr.Append(err, errors.New("缺少 ead"))
	}
	if err != nil {
		return basel.Loan{}, fmt.Errorf("贷款 %q: %w", lr.ID, err)
	}

	loan := basel.Loan{
		ID:           lr.ID,
		PD:           *lr.PD,
		LGD:          *lr.LGD,
		EAD:          *lr.EAD,
		Maturity:     basel.DefaultMaturity,
		ExposureType: lr.ExposureType,
		Turnover:     lr.Turnover,
	}
	if lr.Maturity != nil {
		loan.Maturity = *lr.Maturity
	}
	if loan.ExposureType == "" {
		loan.ExposureType = basel.ExposureCorporate
	}
	return loan, nil
}

type assessmentResponse struct {
	TotalExposure      decimal.Decimal `json:"total_exposure"`
	TotalExpectedLoss  decimal.Decimal `json:"total_expected_loss"`
	TotalRWA           decimal.Decimal `json:"total_rwa"`
	CapitalRequirement decimal.Decimal `json:"capital_requirement"`
	AveragePD          float64         `json:"average_pd"`
}

type stressTestResponse struct {
	Scenario         string             `json:"scenario"`
	ResolvedScenario string             `json:"resolved_scenario"`
	Fallback         bool               `json:"fallback"`
	ShockFactor      float64            `json:"shock_factor"`
	Sensitivity      float64            `json:"sensitivity"`
	BaselineMetrics  assessmentResponse `json:"baseline_metrics"`
	StressedMetrics  assessmentResponse `json:"stressed_metrics"`
	CapitalImpact    decimal.Decimal    `json:"capital_impact"`
}

type savedPortfolioResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	LoanCount int    `json:"loan_count"`
}

type scenariosResponse struct {
	Default   string                   `json:"default"`
	Fallback  string                   `json:"fallback"`
	Scenarios []scenario.MacroScenario `json:"scenarios"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// money 将金额四舍五入到分。
func money(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(2)
}

func newAssessmentResponse(r assessment.Result) assessmentResponse {
	return assessmentResponse{
		TotalExposure:      money(r.TotalExposure),
		TotalExpectedLoss:  money(r.TotalExpectedLoss),
		TotalRWA:           money(r.TotalRWA),
		CapitalRequirement: money(r.CapitalRequirement),
		AveragePD:          r.AveragePD,
	}
}

func newStressTestResponse(c assessment.Comparison, sensitivity float64) stressTestResponse {
	return stressTestResponse{
		Scenario:         c.Scenario,
		ResolvedScenario: c.Resolution.Scenario.Name,
		Fallback:         c.Resolution.Fallback,
		ShockFactor:      c.Resolution.Scenario.ShockFactor,
		Sensitivity:      sensitivity,
		BaselineMetrics:  newAssessmentResponse(c.Baseline),
		StressedMetrics:  newAssessmentResponse(c.Stressed),
		CapitalImpact:    money(c.CapitalImpact),
	}
}
