package scenario

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Catalog 为不可变的情景表，启动时构建一次后在各组件间共享只读使用。
type Catalog struct {
	byName map[string]MacroScenario
	names  []string
}

// NewCatalog 以内置情景为底，合并外部覆盖项。
// 非法的覆盖项被跳过并记录告警，内置的三个情景总是存在。
func NewCatalog(overrides map[string]Override, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}

	byName := make(map[string]MacroScenario, len(builtins())+len(overrides))
	for _, s := range builtins() {
		byName[s.Name] = s
	}

	for _, rawName := range sortedKeys(overrides) {
		name := normalizeName(rawName)
		ov := overrides[rawName]

		base, exists := byName[name]
		s, err := applyOverride(name, base, exists, ov)
		if err != nil {
			logger.Warn("忽略非法的情景配置", zap.String("scenario", rawName), zap.Error(err))
			continue
		}
		byName[name] = s
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Catalog{byName: byName, names: names}
}

// DefaultCatalog 返回仅包含内置情景的目录。
func DefaultCatalog() *Catalog {
	return NewCatalog(nil, nil)
}

// Resolve 按名称解析情景，未知名称回退到 adverse。
func (c *Catalog) Resolve(name string) Resolution {
	if s, ok := c.Lookup(name); ok {
		return Resolution{Requested: name, Scenario: s}
	}
	return Resolution{
		Requested: name,
		Scenario:  c.byName[FallbackName],
		Fallback:  true,
	}
}

// Lookup 查找情景，名称不区分大小写。
func (c *Catalog) Lookup(name string) (MacroScenario, bool) {
	s, ok := c.byName[normalizeName(name)]
	return s, ok
}

// 配置文件经 viper 读取后键名已转为小写，查找两侧统一按小写比较。
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Names 返回按字母序排列的情景名称。
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Scenarios 返回按名称排序的情景副本。
func (c *Catalog) Scenarios() []MacroScenario {
	out := make([]MacroScenario, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, c.byName[name])
	}
	return out
}

func applyOverride(name string, base MacroScenario, exists bool, ov Override) (MacroScenario, error) {
	var err error

	if name == "" {
		err = multierr.Append(err, errors.New("情景名称不能为空"))
	}
	if ov.ShockFactor == nil && !exists {
		err = multierr.Append(err, errors.New("新增情景必须提供 shock_factor"))
	}
	if ov.ShockFactor != nil && (math.IsNaN(*ov.ShockFactor) || math.IsInf(*ov.ShockFactor, 0) || *ov.ShockFactor < 0) {
		err = multierr.Append(err, fmt.Errorf("shock_factor 必须为非负有限值，当前为 %v", *ov.ShockFactor))
	}
	if !finite(ov.GDPGrowth) || !finite(ov.UnemploymentRate) {
		err = multierr.Append(err, errors.New("宏观指标必须为有限值"))
	}
	if err != nil {
		return MacroScenario{}, err
	}

	s := base
	s.Name = name
	if ov.Description != "" {
		s.Description = ov.Description
	}
	if ov.ShockFactor != nil {
		s.ShockFactor = *ov.ShockFactor
	}
	if ov.GDPGrowth != nil {
		s.GDPGrowth = *ov.GDPGrowth
	}
	if ov.UnemploymentRate != nil {
		s.UnemploymentRate = *ov.UnemploymentRate
	}
	return s, nil
}

func finite(v *float64) bool {
	return v == nil || !(math.IsNaN(*v) || math.IsInf(*v, 0))
}

func sortedKeys(m map[string]Override) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
