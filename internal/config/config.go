package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvConfigPath 指定配置文件路径的环境变量。
const EnvConfigPath = "LTPBOT_CONFIG"

// DefaultPath 是未指定时使用的配置文件。
const DefaultPath = "configs/config.yaml"

// ResolvePath 按 flag > LTPBOT_CONFIG > 默认值 的顺序选择配置文件。
func ResolvePath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return DefaultPath
}

// Load 读取配置文件及其 include 链，应用默认值并校验。
// include 中的文件先于引用它的文件合并，后者的同名键覆盖前者。
func Load(path string) (*Config, error) {
	files, err := resolveConfigIncludes(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	for _, file := range files {
		part, err := readConfigFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", file, err)
		}
		if err := v.MergeConfigMap(part.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging config file failed (%s): %w", file, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	explicit := make(keySet)
	for _, key := range v.AllKeys() {
		explicit.mark(key)
	}
	cfg.applyDefaults(explicit)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return v, nil
}

// includeChain 以深度优先顺序展开 include，检测环并去重。
type includeChain struct {
	done     map[string]bool
	visiting map[string]bool
	order    []string
}

func resolveConfigIncludes(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	chain := &includeChain{done: map[string]bool{}, visiting: map[string]bool{}}
	if err := chain.visit(abs); err != nil {
		return nil, err
	}
	return chain.order, nil
}

func (c *includeChain) visit(path string) error {
	path = filepath.Clean(path)
	switch {
	case c.visiting[path]:
		return fmt.Errorf("include cycle detected: %s", path)
	case c.done[path]:
		return nil
	}
	c.visiting[path] = true
	defer delete(c.visiting, path)

	includes, err := includeList(path)
	if err != nil {
		return fmt.Errorf("parsing include failed (%s): %w", path, err)
	}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		if err := c.visit(inc); err != nil {
			return err
		}
	}
	c.done[path] = true
	c.order = append(c.order, path)
	return nil
}

// includeList 读取 include 键：字符串或字符串数组。
func includeList(path string) ([]string, error) {
	v, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	var raw []any
	switch val := v.Get("include").(type) {
	case nil:
		return nil, nil
	case string:
		raw = []any{val}
	case []any:
		raw = val
	case []string:
		for _, item := range val {
			raw = append(raw, item)
		}
	default:
		return nil, fmt.Errorf("include must be a string or string array")
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		str, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("include only supports strings, got %T", item)
		}
		if str = strings.TrimSpace(str); str != "" {
			out = append(out, str)
		}
	}
	return out, nil
}
