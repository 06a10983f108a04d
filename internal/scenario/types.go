package scenario

// 内置情景名称。
const (
	Baseline        = "baseline"
	Adverse         = "adverse"
	SeverelyAdverse = "severely_adverse"
)

// FallbackName 为未知情景名称的兜底情景。
const FallbackName = Adverse

// MacroScenario 描述一个宏观压力情景。计算只使用 Name 与 ShockFactor。
type MacroScenario struct {
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	GDPGrowth        float64 `json:"gdp_growth"`
	UnemploymentRate float64 `json:"unemployment_rate"`
	ShockFactor      float64 `json:"shock_factor"` // 概率单位（Z 值）平移幅度
}

// Resolution 为情景解析结果。
type Resolution struct {
	Requested string        `json:"requested"`
	Scenario  MacroScenario `json:"scenario"`
	Fallback  bool          `json:"fallback"` // 请求名称未知，已回退到 adverse
}

// Override 为外部配置中单个情景的字段。
type Override struct {
	Description      string   `mapstructure:"description"`
	GDPGrowth        *float64 `mapstructure:"gdp_growth"`
	UnemploymentRate *float64 `mapstructure:"unemployment_rate"`
	ShockFactor      *float64 `mapstructure:"shock_factor"`
}

func builtins() []MacroScenario {
	return []MacroScenario{
		{
			Name:             Baseline,
			Description:      "Baseline",
			GDPGrowth:        0.015,
			UnemploymentRate: 0.07,
			ShockFactor:      0.0,
		},
		{
			Name:             Adverse,
			Description:      "Adverse",
			GDPGrowth:        -0.01,
			UnemploymentRate: 0.09,
			ShockFactor:      1.5,
		},
		{
			Name:             SeverelyAdverse,
			Description:      "Severe",
			GDPGrowth:        -0.05,
			UnemploymentRate: 0.12,
			ShockFactor:      3.0,
		},
	}
}
