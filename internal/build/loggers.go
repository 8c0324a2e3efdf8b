// Package build wires the daemon's logging: a console handler and a rotating
// file handler behind one HandlerSet, with a logger per subsystem.
package build

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
)

// SubLoggers hands out subsystem loggers backed by one handler set and lets
// their levels be changed together or individually.
type SubLoggers struct {
	handler btclogv2.Handler

	mu      sync.Mutex
	loggers map[string]btclogv2.Logger
}

// NewSubLoggers writes every subsystem to each writer.
func NewSubLoggers(writers ...io.Writer) *SubLoggers {
	handlers := make([]btclogv2.Handler, 0, len(writers))
	for _, w := range writers {
		handlers = append(handlers, btclogv2.NewDefaultHandler(w))
	}

	return &SubLoggers{
		handler: NewHandlerSet(handlers...),
		loggers: make(map[string]btclogv2.Logger),
	}
}

// Logger returns the logger for tag, creating it on first use.
func (s *SubLoggers) Logger(tag string) btclogv2.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.loggers[tag]; ok {
		return l
	}

	l := btclogv2.NewSLogger(s.handler.SubSystem(tag))
	s.loggers[tag] = l

	return l
}

// Tags lists the registered subsystems in sorted order.
func (s *SubLoggers) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	tags := make([]string, 0, len(s.loggers))
	for tag := range s.loggers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	return tags
}

// SetLevels parses either a single level ("debug") applied to every
// subsystem, or a list of TAG=level pairs ("REVW=debug,QUEU=info").
func (s *SubLoggers) SetLevels(spec string) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil
	}

	if !strings.Contains(spec, "=") {
		level, ok := btclog.LevelFromString(spec)
		if !ok {
			return fmt.Errorf("unknown log level %q", spec)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		for _, l := range s.loggers {
			l.SetLevel(level)
		}

		return nil
	}

	for _, pair := range strings.Split(spec, ",") {
		tag, lvl, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return fmt.Errorf("malformed log level pair %q", pair)
		}

		level, ok := btclog.LevelFromString(lvl)
		if !ok {
			return fmt.Errorf("unknown log level %q for %s", lvl,
				tag)
		}

		s.Logger(strings.ToUpper(tag)).SetLevel(level)
	}

	return nil
}
