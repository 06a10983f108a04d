package scenario

import (
	"errors"
	"fmt"
	"io/fs"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const overridesKey = "scenarios"

// ErrNoOverrides 表示情景配置文件不存在。
var ErrNoOverrides = errors.New("scenario: 未找到情景配置文件")

// LoadOverrides 读取外部情景配置（yaml/json/toml，按扩展名识别）。
//
//	scenarios:
//	  adverse:
//	    description: Adverse
//	    gdp_growth: -0.01
//	    unemployment_rate: 0.09
//	    shock_factor: 1.5
//
// 单个条目解码失败不会影响其它条目：返回可用条目及累积的错误。
func LoadOverrides(path string) (map[string]Override, error) {
	if path == "" {
		return nil, ErrNoOverrides
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoOverrides, path)
		}
		return nil, fmt.Errorf("scenario: 读取情景配置失败: %w", err)
	}

	raw, ok := v.Get(overridesKey).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("scenario: 配置缺少 %q 映射", overridesKey)
	}

	var errs error
	out := make(map[string]Override, len(raw))
	for name, entry := range raw {
		var ov Override
		if err := decodeOverride(entry, &ov); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("情景 %q: %w", name, err))
			continue
		}
		out[name] = ov
	}

	return out, errs
}

// LoadCatalog 在启动时构建情景目录。
// 配置缺失或损坏时记录日志并退回内置情景，不会返回错误。
func LoadCatalog(path string, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}

	overrides, err := LoadOverrides(path)
	switch {
	case errors.Is(err, ErrNoOverrides):
		logger.Info("未提供外部情景配置，使用内置情景", zap.String("path", path))
	case err != nil:
		logger.Warn("外部情景配置存在错误，已忽略非法条目", zap.String("path", path), zap.Error(err))
	}

	catalog := NewCatalog(overrides, logger)
	logger.Info("情景目录已加载", zap.Strings("scenarios", catalog.Names()))
	return catalog
}

func decodeOverride(input any, out *Override) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
