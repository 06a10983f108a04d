package scenario

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func ptr(v float64) *float64 {
	return &v
}

func TestDefaultCatalog_Builtins(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, []string{Adverse, Baseline, SeverelyAdverse}, c.Names())

	cases := map[string]float64{Baseline: 0.0, Adverse: 1.5, SeverelyAdverse: 3.0}
	for name, shock := range cases {
		s, ok := c.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, shock, s.ShockFactor, name)
		assert.Equal(t, name, s.Name)
	}
}

func TestResolve_UnknownFallsBackToAdverse(t *testing.T) {
	c := DefaultCatalog()

	res := c.Resolve("nonexistent_name")
	assert.True(t, res.Fallback)
	assert.Equal(t, "nonexistent_name", res.Requested)
	assert.Equal(t, Adverse, res.Scenario.Name)
	assert.Equal(t, 1.5, res.Scenario.ShockFactor)

	res = c.Resolve(SeverelyAdverse)
	assert.False(t, res.Fallback)
	assert.Equal(t, 3.0, res.Scenario.ShockFactor)
}

func TestNewCatalog_MergesValidAndSkipsInvalid(t *testing.T) {
	c := NewCatalog(map[string]Override{
		"adverse":     {ShockFactor: ptr(2.0), Description: "Harsher adverse"},
		"stagflation": {ShockFactor: ptr(2.2), GDPGrowth: ptr(-0.02), UnemploymentRate: ptr(0.1)},
		"broken":      {ShockFactor: ptr(math.NaN())},
		"negative":    {ShockFactor: ptr(-1)},
		"incomplete":  {Description: "no shock"},
		"  ":          {ShockFactor: ptr(1)},
	}, zaptest.NewLogger(t))

	assert.Equal(t, []string{Adverse, Baseline, SeverelyAdverse, "stagflation"}, c.Names())

	adverse, _ := c.Lookup(Adverse)
	assert.Equal(t, 2.0, adverse.ShockFactor)
	assert.Equal(t, "Harsher adverse", adverse.Description)
	assert.Equal(t, -0.01, adverse.GDPGrowth)

	stag, ok := c.Lookup("stagflation")
	require.True(t, ok)
	assert.Equal(t, 2.2, stag.ShockFactor)
	assert.Equal(t, 0.1, stag.UnemploymentRate)
}

func TestScenariosReturnsCopy(t *testing.T) {
	c := DefaultCatalog()
	list := c.Scenarios()
	require.Len(t, list, 3)
	list[0].ShockFactor = 99

	s, _ := c.Lookup(list[0].Name)
	assert.NotEqual(t, 99.0, s.ShockFactor)
}

func TestLoadOverrides_PartialFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	content := `
scenarios:
  severely_adverse:
    shock_factor: 3.5
  recession:
    description: Deep recession
    gdp_growth: -0.04
    unemployment_rate: 0.11
    shock_factor: 2.5
  typo:
    shock_factr: 1.0
  garbage:
    shock_factor: "not-a-number"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	overrides, err := LoadOverrides(path)
	require.Error(t, err)
	require.Len(t, overrides, 2)
	assert.Equal(t, 3.5, *overrides["severely_adverse"].ShockFactor)
	assert.Equal(t, "Deep recession", overrides["recession"].Description)

	c := NewCatalog(overrides, zaptest.NewLogger(t))
	assert.Len(t, c.Names(), 4)
}

func TestNewCatalog_NamesAreCaseInsensitive(t *testing.T) {
	c := NewCatalog(map[string]Override{
		"Stagflation": {ShockFactor: ptr(2.2)},
	}, zaptest.NewLogger(t))

	assert.Contains(t, c.Names(), "stagflation")

	for _, name := range []string{"Stagflation", "stagflation", " STAGFLATION "} {
		res := c.Resolve(name)
		assert.False(t, res.Fallback, name)
		assert.Equal(t, name, res.Requested)
		assert.Equal(t, "stagflation", res.Scenario.Name)
		assert.Equal(t, 2.2, res.Scenario.ShockFactor)
	}

	res := c.Resolve("Severely_Adverse")
	assert.False(t, res.Fallback)
	assert.Equal(t, 3.0, res.Scenario.ShockFactor)
}

func TestLoadCatalog_MixedCaseScenarioFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	content := `
scenarios:
  Stagflation:
    description: Stagflation
    shock_factor: 2.2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c := LoadCatalog(path, zaptest.NewLogger(t))
	res := c.Resolve("Stagflation")
	assert.False(t, res.Fallback)
	assert.Equal(t, 2.2, res.Scenario.ShockFactor)
}

func TestLoadCatalog_MissingOrMalformedKeepsDefaults(t *testing.T) {
	dir := t.TempDir()

	c := LoadCatalog(filepath.Join(dir, "absent.yaml"), zaptest.NewLogger(t))
	assert.Equal(t, DefaultCatalog().Scenarios(), c.Scenarios())

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("scenarios: [::"), 0o600))
	c = LoadCatalog(bad, zaptest.NewLogger(t))
	assert.Equal(t, DefaultCatalog().Scenarios(), c.Scenarios())

	wrongShape := filepath.Join(dir, "shape.json")
	require.NoError(t, os.WriteFile(wrongShape, []byte(`{"scenarios": 42}`), 0o600))
	c = LoadCatalog(wrongShape, zaptest.NewLogger(t))
	assert.Equal(t, DefaultCatalog().Scenarios(), c.Scenarios())

	c = LoadCatalog("", nil)
	assert.Len(t, c.Names(), 3)
}
