package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"shot-clock/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	mu   sync.RWMutex
	sink io.Writer = os.Stdout
	file *cappedFile
)

// Init configures the global zerolog logger. When cfg.File is set, output
// goes to both stdout and the size-capped file.
func Init(cfg config.LogConfig) error {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var out io.Writer = os.Stdout
	var fw *cappedFile
	if path := strings.TrimSpace(cfg.File); path != "" {
		w, err := openCappedFile(path, cfg.MaxMB)
		if err != nil {
			return err
		}
		fw = w
		out = io.MultiWriter(os.Stdout, w)
	}

	mu.Lock()
	if file != nil {
		_ = file.Close()
	}
	file = fw
	sink = out
	mu.Unlock()

	var console io.Writer = out
	if cfg.Pretty {
		console = zerolog.ConsoleWriter{Out: out}
	}

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(console).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
	return nil
}

// Writer returns the raw sink configured by Init, for loggers that bring
// their own encoder.
func Writer() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return sink
}

// Close releases the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	sink = os.Stdout
	return err
}
