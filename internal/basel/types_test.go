package basel

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestParseExposureType(t *testing.T) {
	got, err := ParseExposureType(" sme ")
	require.NoError(t, err)
	assert.Equal(t, ExposureSME, got)

	got, err = ParseExposureType("")
	require.NoError(t, err)
	assert.Equal(t, ExposureCorporate, got)

	_, err = ParseExposureType("SOVEREIGN")
	assert.Error(t, err)
}

func TestLoanWithPD_DoesNotShareTurnover(t *testing.T) {
	loan := smeLoan()
	stressed := loan.WithPD(0.2)

	*stressed.Turnover = 1
	assert.Equal(t, 10_000_000.0, *loan.Turnover)
	assert.Equal(t, 0.05, loan.PD)
	assert.Equal(t, 0.2, stressed.PD)
	assert.Equal(t, loan.ID, stressed.ID)
	assert.Equal(t, loan.Maturity, stressed.Maturity)
}

func TestPortfolioTotalExposure(t *testing.T) {
	p := NewPortfolio([]Loan{corporateLoan(), smeLoan()})
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, 1_500_000.0, p.TotalExposure())
	assert.Equal(t, 0.0, Portfolio{}.TotalExposure())
}

func TestExposureTypeUnmarshalText(t *testing.T) {
	var typ ExposureType
	require.NoError(t, typ.UnmarshalText([]byte("financial_institution")))
	assert.Equal(t, ExposureFinancialInstitution, typ)
	assert.Error(t, typ.UnmarshalText([]byte("sovereign")))
}

func TestLoanValidate_RequiresCanonicalExposureType(t *testing.T) {
	loan := corporateLoan()
	loan.ExposureType = ""
	assert.Error(t, loan.Validate())

	loan.ExposureType = "sme"
	assert.Error(t, loan.Validate())
}

func TestLoanValidate_CollectsAllViolations(t *testing.T) {
	loan := Loan{
		ID:           "bad",
		PD:           1.5,
		LGD:          -0.1,
		EAD:          0,
		Maturity:     -1,
		ExposureType: "SOVEREIGN",
		Turnover:     float64Ptr(-5),
	}

	err := loan.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(errorsUnwrap(err)), 6)
	for _, field := range []string{"pd", "lgd", "ead", "maturity", "exposure_type", "turnover"} {
		assert.True(t, strings.Contains(err.Error(), field), "missing %s in %v", field, err)
	}
}

func TestLoanValidate_AcceptsEmptyID(t *testing.T) {
	loan := corporateLoan()
	loan.ID = ""
	assert.NoError(t, loan.Validate())
}

func TestLoanValidate_RejectsNaN(t *testing.T) {
	loan := corporateLoan()
	loan.PD = math.NaN()
	assert.Error(t, loan.Validate())
}

func TestPortfolioValidate(t *testing.T) {
	p := NewPortfolio([]Loan{corporateLoan(), smeLoan()})
	require.NoError(t, p.Validate())

	bad := corporateLoan()
	bad.EAD = -1
	p = NewPortfolio([]Loan{corporateLoan(), bad})
	assert.Error(t, p.Validate())
}

func errorsUnwrap(err error) error {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return u.Unwrap()
	}
	return err
}
