// Package logging builds the zerolog logger shared by every component.
//
// On a terminal the logger writes colored, human-readable lines with a level
// badge; anywhere else it writes one JSON object per line. A log file, when
// configured, always receives JSON and is rotated by size.

package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cabewaldrop/bplusviz/internal/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Badge colors by level.
var levelColors = map[string]string{
	"trace": "#8d8d8d",
	"debug": "#3ddbd9",
	"info":  "#4589ff",
	"warn":  "#ff832b",
	"error": "#da1e28",
	"fatal": "#ff0000",
	"panic": "#ff0000",
}

var (
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8d8d8d"))
	fieldStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#78a9ff"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#da1e28")).Bold(true)
)

// ConsoleWriter returns a zerolog console writer with lipgloss level badges.
func ConsoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.TimeOnly,
		FormatLevel: func(i any) string {
			lvl := strings.ToLower(fmt.Sprint(i))
			color, ok := levelColors[lvl]
			if !ok {
				color = "#8d8d8d"
			}
			label := strings.ToUpper(lvl)
			if len(label) > 3 {
				label = label[:3]
			}
			return lipgloss.NewStyle().
				Foreground(lipgloss.Color("#ffffff")).
				Background(lipgloss.Color(color)).
				Padding(0, 1).
				Render(label)
		},
		FormatTimestamp: func(i any) string {
			return timestampStyle.Render(fmt.Sprint(i))
		},
		FormatFieldName: func(i any) string {
			name := fmt.Sprint(i)
			if name == zerolog.ErrorFieldName {
				return errorStyle.Render(name) + "="
			}
			return fieldStyle.Render(name) + "="
		},
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// New builds a logger writing to out (and to cfg.File if set).
func New(cfg config.Log, out io.Writer) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), nil, errors.Wrapf(err, "log level %q", cfg.Level)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var console io.Writer
	switch strings.ToLower(cfg.Format) {
	case "console":
		console = ConsoleWriter(out)
	case "json":
		console = out
	default:
		if IsTerminal(out) {
			console = ConsoleWriter(out)
		} else {
			console = out
		}
	}

	writers := []io.Writer{console}
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		writers = append(writers, rotator)
		closer = rotator
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
