// Package cfg loads typed configuration from a TOML file and the environment
// with viper, validates it and watches the file for changes.
package cfg

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

var ErrNoTarget = errors.New("cfg: config target must be a pointer to a struct")

type Option func(*state)

type state struct {
	file       string
	configType string
	envPrefix  string
	optional   bool
	defaults   map[string]any
}

func WithFile(path string) Option {
	return func(s *state) { s.file = path }
}

func WithType(kind string) Option {
	return func(s *state) { s.configType = kind }
}

// WithEnvPrefix overrides keys from variables named PREFIX_SECTION_KEY.
func WithEnvPrefix(prefix string) Option {
	return func(s *state) { s.envPrefix = prefix }
}

// WithOptional tolerates a missing config file.
func WithOptional() Option {
	return func(s *state) { s.optional = true }
}

func WithDefault(key string, value any) Option {
	return func(s *state) {
		if s.defaults == nil {
			s.defaults = map[string]any{}
		}
		s.defaults[key] = value
	}
}

func WithDefaults(defaults map[string]any) Option {
	return func(s *state) {
		for k, v := range defaults {
			WithDefault(k, v)(s)
		}
	}
}

// Load reads the configuration into a T and returns the viper instance it
// was decoded from.
func Load[T any](opts ...Option) (T, *viper.Viper, error) {
	var out T
	s := state{}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}

	v, err := load(s)
	if err != nil {
		return out, nil, err
	}
	bindEnv(v, reflect.TypeOf(out), "")
	if err := decode(v, "", &out); err != nil {
		return out, nil, fmt.Errorf("cfg: decode: %w", err)
	}
	return out, v, nil
}

func load(s state) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	if s.envPrefix != "" {
		v.SetEnvPrefix(s.envPrefix)
	}
	v.AutomaticEnv()
	for k, val := range s.defaults {
		v.SetDefault(k, val)
	}
	if s.file == "" {
		return v, nil
	}

	v.SetConfigFile(s.file)
	if s.configType != "" {
		v.SetConfigType(s.configType)
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if s.optional && (errors.As(err, &nf) || errors.Is(err, os.ErrNotExist)) {
			return v, nil
		}
		if cleaned, ok := sanitize(s.file); ok {
			if s.configType == "" {
				if ext := strings.TrimPrefix(filepath.Ext(s.file), "."); ext != "" {
					v.SetConfigType(ext)
				}
			}
			if rerr := v.ReadConfig(bytes.NewReader(cleaned)); rerr == nil {
				return v, nil
			}
		}
		return nil, fmt.Errorf("cfg: read %s: %w", s.file, err)
	}
	return v, nil
}

// sanitize strips byte order marks and zero width spaces some editors leave
// in config files.
func sanitize(path string) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	changed := false
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if i+2 < len(data) && data[i] == 0xEF && data[i+1] == 0xBB && data[i+2] == 0xBF {
			i += 2
			changed = true
			continue
		}
		if i+2 < len(data) && data[i] == 0xE2 && data[i+1] == 0x80 && data[i+2] == 0x8B {
			i += 2
			changed = true
			continue
		}
		out = append(out, data[i])
	}
	if changed {
		return out, true
	}
	return nil, false
}

// bindEnv registers every leaf key of t with viper so environment overrides
// apply to keys absent from the file.
func bindEnv(v *viper.Viper, t reflect.Type, prefix string) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(field.Name)
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}

		ft := field.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft.PkgPath() != "time" {
			bindEnv(v, ft, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

func decode(v *viper.Viper, key string, out any) error {
	t := reflect.TypeOf(out)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return ErrNoTarget
	}
	if key == "" {
		return v.Unmarshal(out, decodeHook())
	}
	return v.UnmarshalKey(key, out, decodeHook())
}

// Decode decodes the subtree at key of v into out.
func Decode(v *viper.Viper, key string, out any) error {
	return decode(v, key, out)
}
