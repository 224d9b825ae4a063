// Package logging hands out one slog.Logger per category, each with its own
// runtime adjustable level.
package logging

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/chabad360/oscbind/osc"
)

type LogCategory string

const (
	META   LogCategory = "meta" // For logs about logging
	OSC_IN LogCategory = "osc_in"
	APPLY  LogCategory = "apply"
	SCENE  LogCategory = "scene"
	STORE  LogCategory = "store"
	APP    LogCategory = "app" // For command level logs
)

var categories = []LogCategory{META, OSC_IN, APPLY, SCENE, STORE, APP}

var defaultLogLevels = map[LogCategory]slog.Level{
	META:   slog.LevelInfo,
	OSC_IN: slog.LevelWarn,
	APPLY:  slog.LevelWarn,
	SCENE:  slog.LevelWarn,
	STORE:  slog.LevelWarn,
	APP:    slog.LevelInfo,
}

func strToLogCategory(s string) (LogCategory, bool) {
	for _, c := range categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Categories returns every known category.
func Categories() []LogCategory {
	return append([]LogCategory(nil), categories...)
}

var (
	mu           sync.RWMutex
	out          io.Writer = os.Stderr
	loggers                = map[LogCategory]*slog.Logger{}
	categoryLvls           = map[LogCategory]*slog.LevelVar{}
)

// SetOutput sends the output of loggers obtained from Get afterwards to w.
// A nil w restores stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	mu.Lock()
	defer mu.Unlock()
	out = w
	clear(loggers)
}

// Get returns a slog.Logger that always has the "category" attribute set.
// Each category gets its own logger instance.
func Get(category LogCategory) *slog.Logger {
	mu.RLock()
	l, ok := loggers[category]
	mu.RUnlock()
	if ok {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	// Double-check after locking
	if l, ok := loggers[category]; ok {
		return l
	}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: levelVar(category),
	})
	catLogger := slog.New(handler).With("category", category)
	loggers[category] = catLogger
	return catLogger
}

// levelVar must be called with mu held for writing.
func levelVar(category LogCategory) *slog.LevelVar {
	lvlVar, ok := categoryLvls[category]
	if !ok {
		lvlVar = new(slog.LevelVar)
		lvlVar.Set(defaultLogLevels[category])
		categoryLvls[category] = lvlVar
	}
	return lvlVar
}

// SetCategoryLevel changes the level of one category.
func SetCategoryLevel(category LogCategory, level slog.Level) error {
	if _, ok := strToLogCategory(string(category)); !ok {
		return errors.Errorf("unknown log category %q", category)
	}
	mu.Lock()
	levelVar(category).Set(level)
	mu.Unlock()
	return nil
}

// SetAllLevels changes the level of every category.
func SetAllLevels(level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	for _, c := range categories {
		levelVar(c).Set(level)
	}
}

// Level returns the current level of a category.
func Level(category LogCategory) slog.Level {
	mu.Lock()
	defer mu.Unlock()
	return levelVar(category).Level()
}

// Enabled reports whether category logs at level.
func Enabled(category LogCategory, level slog.Level) bool {
	return Get(category).Enabled(context.Background(), level)
}

// ParseLevel accepts a slog level name such as "debug" or "warn+2", or an
// integer where -4 is Debug, 0 is Info, 4 is Warn and 8 is Error.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return slog.Level(n), nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, errors.Wrapf(err, "parse level %q", s)
	}
	return l, nil
}

func splitOscPath(path string) []string {
	return strings.Split(strings.TrimPrefix(path, "/"), "/")
}

// Intercept returns a Publisher that consumes level changes and forwards
// everything else to next.
//
// Routes:
// /meta/logging/{category}/level as int where -4 is Debug, 0 is Info, 4 is Warn, 8 is Error
// /meta/logging/all/level sets every category
func Intercept(next osc.Publisher) osc.Publisher {
	return osc.PublisherFunc(func(address string, value float64) {
		if !strings.HasPrefix(address, "/meta/logging/") {
			next.Publish(address, value)
			return
		}
		handleSetCategoryLevel(address, value)
	})
}

func handleSetCategoryLevel(address string, value float64) {
	pathSegs := splitOscPath(address)
	if len(pathSegs) != 4 || pathSegs[3] != "level" {
		Get(META).Info("Unrecognized logging route", "address", address)
		return
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		Get(META).Error("Invalid level in OSC message", "address", address, "value", value)
		return
	}
	level := slog.Level(int(math.Round(value)))

	if pathSegs[2] == "all" {
		Get(META).Info("Setting all category levels via OSC", "level", level)
		SetAllLevels(level)
		return
	}

	cat, ok := strToLogCategory(pathSegs[2])
	if !ok {
		Get(META).Info("Unrecognized log category in OSC message", "category", pathSegs[2])
		return
	}
	Get(META).Info("Setting category level via OSC",
		"category", cat,
		"level", level)
	_ = SetCategoryLevel(cat, level)
}
