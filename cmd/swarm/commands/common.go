package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/wangchlxt/Swarm-sub001/internal/app"
	"github.com/wangchlxt/Swarm-sub001/internal/build"
	"github.com/wangchlxt/Swarm-sub001/internal/config"
	"github.com/wangchlxt/Swarm-sub001/internal/review"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("212"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).
			Width(14)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// loadConfig reads the daemon config and applies the global flags.
func loadConfig() (config.Config, error) {
	dir := dataDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return config.Config{}, fmt.Errorf("find home "+
				"directory: %w", err)
		}
		dir = filepath.Join(home, ".swarm")
	}

	path := configPath
	if path == "" {
		path = filepath.Join(dir, "swarmd.toml")
	}

	cfg, err := config.Load(path, config.Default(dir))
	if err != nil {
		return config.Config{}, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	return cfg, nil
}

// openApp opens the engine without starting its task consumer.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	loggers := build.NewSubLoggers(os.Stderr)
	app.UseLoggers(loggers)
	if err := loggers.SetLevels(logLevel); err != nil {
		return nil, err
	}

	a, err := app.New(ctx, cfg, app.Deps{})
	if err != nil {
		return nil, fmt.Errorf("failed to open swarm: %w", err)
	}

	return a, nil
}

// withApp runs fn against an opened engine and closes it afterwards.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a)
}

// currentUser resolves the acting user.
func currentUser() (string, error) {
	for _, u := range []string{
		userName, os.Getenv("SWARM_USER"), os.Getenv("USER"),
	} {
		if u != "" {
			return u, nil
		}
	}

	return "", errors.New("no user specified; use --user or set " +
		"SWARM_USER")
}

// parseID parses a review or change id argument.
func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, arg)
	}

	return id, nil
}

// outputJSON prints v as indented JSON.
func outputJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))

	return nil
}

// renderMarkdown renders text for the terminal, falling back to the raw
// text if rendering fails.
func renderMarkdown(text string, width int) string {
	if strings.TrimSpace(text) == "" {
		return mutedStyle.Render("(no description)")
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}

	out, err := r.Render(text)
	if err != nil {
		return text
	}

	return strings.TrimRight(out, "\n")
}

// field prints one labelled line.
func field(label string, value any) {
	fmt.Printf("%s %v\n", labelStyle.Render(label), value)
}

// statusText colours a test or deploy status.
func statusText(status string) string {
	switch status {
	case "":
		return mutedStyle.Render("-")
	case review.StatusPass:
		return okStyle.Render(status)
	case review.StatusFail:
		return badStyle.Render(status)
	default:
		return status
	}
}
