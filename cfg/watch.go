package cfg

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const defaultDebounce = 200 * time.Millisecond

// Watch calls onChange after the watched keys of the config file behind v
// change. Changes are debounced.
func Watch(v *viper.Viper, keys []string, debounce time.Duration, onChange func(*viper.Viper), logger *zap.Logger) {
	if v.ConfigFileUsed() == "" {
		return
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var mu sync.Mutex
	last := snapshot(v, keys)
	var timer *time.Timer
	send := func() {
		logger.Info("config changed", zap.String("file", v.ConfigFileUsed()), zap.Strings("keys", keys))
		onChange(v)
	}
	v.OnConfigChange(func(_ fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()
		next := snapshot(v, keys)
		if next == last {
			return
		}
		last = next
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, send)
	})
	v.WatchConfig()
}

func snapshot(v *viper.Viper, keys []string) string {
	if len(keys) == 0 {
		return fmt.Sprintf("%v", v.AllSettings())
	}
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, fmt.Sprintf("%s=%v", key, v.Get(key)))
	}
	return strings.Join(out, "|")
}
