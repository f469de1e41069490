package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

func String(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func Int(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func Float(name string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func Bool(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

// Duration accepts Go duration strings ("90s") or a bare number of seconds.
func Duration(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// Logged wraps the readers above and records when a default was used.
type Logged struct {
	Log *logger.Logger
}

func (l Logged) String(name, def string) string {
	v := String(name, "")
	if v == "" {
		l.debugDefault(name, def)
		return def
	}
	return v
}

func (l Logged) Int(name string, def int) int {
	if strings.TrimSpace(os.Getenv(name)) == "" {
		l.debugDefault(name, def)
	}
	return Int(name, def)
}

func (l Logged) Float(name string, def float64) float64 {
	if strings.TrimSpace(os.Getenv(name)) == "" {
		l.debugDefault(name, def)
	}
	return Float(name, def)
}

func (l Logged) Bool(name string, def bool) bool {
	if strings.TrimSpace(os.Getenv(name)) == "" {
		l.debugDefault(name, def)
	}
	return Bool(name, def)
}

func (l Logged) Duration(name string, def time.Duration) time.Duration {
	if strings.TrimSpace(os.Getenv(name)) == "" {
		l.debugDefault(name, def)
	}
	return Duration(name, def)
}

func (l Logged) debugDefault(name string, def any) {
	if l.Log == nil {
		return
	}
	l.Log.Debug("env var not set, using default", "name", name, "default", def)
}
