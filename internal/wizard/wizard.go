// Package wizard collects a benchdash configuration interactively.
package wizard

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mlbench/benchdash/internal/projectconfig"
	"golang.org/x/term"
)

// Answers holds the raw fields collected by the wizard.
type Answers struct {
	SourceKind string
	BaseURL    string
	Path       string
	AccountURL string
	Container  string
	BlobName   string
	Tasks      string
	Port       string
	TTLMinutes string
	LogLevel   string
}

// AnswersFrom pre-fills the wizard from an existing configuration.
func AnswersFrom(cfg *projectconfig.Config) Answers {
	return Answers{
		SourceKind: cfg.Source.Kind,
		BaseURL:    cfg.Source.BaseURL,
		Path:       cfg.Source.Path,
		AccountURL: cfg.Source.Blob.AccountURL,
		Container:  cfg.Source.Blob.Container,
		BlobName:   cfg.Source.Blob.Name,
		Tasks:      strings.Join(cfg.Source.Tasks, ", "),
		Port:       strconv.Itoa(cfg.Server.Port),
		TTLMinutes: strconv.Itoa(cfg.Cache.TTLMinutes),
		LogLevel:   cfg.Log.Level,
	}
}

// RunConfigWizard runs an interactive huh form seeded from base and returns
// the resulting configuration.
func RunConfigWizard(in io.Reader, out io.Writer, base *projectconfig.Config) (*projectconfig.Config, error) {
	a := AnswersFrom(base)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Data source").
				Description("Where benchmark records are fetched from").
				Options(
					huh.NewOption("Model hub API", projectconfig.SourceHub),
					huh.NewOption("Local file (JSON, YAML or CSV)", projectconfig.SourceFile),
					huh.NewOption("Azure Blob snapshot", projectconfig.SourceBlob),
				).
				Value(&a.SourceKind),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Hub API base URL").
				Value(&a.BaseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Tasks").
				Description("Comma-separated pipeline tags to fetch").
				Value(&a.Tasks),
		).WithHideFunc(func() bool { return a.SourceKind != projectconfig.SourceHub }),
		huh.NewGroup(
			huh.NewInput().
				Title("Snapshot file").
				Placeholder("benchmarks.json").
				Value(&a.Path).
				Validate(required("file path")),
		).WithHideFunc(func() bool { return a.SourceKind != projectconfig.SourceFile }),
		huh.NewGroup(
			huh.NewInput().
				Title("Storage account URL").
				Placeholder("https://myaccount.blob.core.windows.net").
				Value(&a.AccountURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Container").
				Value(&a.Container).
				Validate(required("container")),
			huh.NewInput().
				Title("Blob name").
				Placeholder("snapshot.json").
				Value(&a.BlobName).
				Validate(required("blob name")),
		).WithHideFunc(func() bool { return a.SourceKind != projectconfig.SourceBlob }),
		huh.NewGroup(
			huh.NewInput().
				Title("Server port").
				Value(&a.Port).
				Validate(validatePort),
			huh.NewInput().
				Title("Cache TTL (minutes)").
				Value(&a.TTLMinutes).
				Validate(validatePositive),
			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("debug", "debug"),
					huh.NewOption("info", "info"),
					huh.NewOption("warn", "warn"),
					huh.NewOption("error", "error"),
				).
				Value(&a.LogLevel),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}
	return Apply(base, a)
}

// Apply returns a copy of base with the answers applied. The result is
// validated.
func Apply(base *projectconfig.Config, a Answers) (*projectconfig.Config, error) {
	cfg := *base
	cfg.Source.Tasks = append([]string(nil), base.Source.Tasks...)
	cfg.Server.AllowedOrigins = append([]string(nil), base.Server.AllowedOrigins...)

	cfg.Source.Kind = strings.TrimSpace(a.SourceKind)
	switch cfg.Source.Kind {
	case projectconfig.SourceHub:
		cfg.Source.BaseURL = strings.TrimSpace(a.BaseURL)
		if tasks := splitAndTrim(a.Tasks); len(tasks) > 0 {
			cfg.Source.Tasks = tasks
		}
	case projectconfig.SourceFile:
		cfg.Source.Path = strings.TrimSpace(a.Path)
	case projectconfig.SourceBlob:
		cfg.Source.Blob = projectconfig.BlobConfig{
			AccountURL: strings.TrimSpace(a.AccountURL),
			Container:  strings.TrimSpace(a.Container),
			Name:       strings.TrimSpace(a.BlobName),
		}
	}

	port, err := strconv.Atoi(strings.TrimSpace(a.Port))
	if err != nil {
		return nil, fmt.Errorf("invalid port %q", a.Port)
	}
	cfg.Server.Port = port

	ttl, err := strconv.Atoi(strings.TrimSpace(a.TTLMinutes))
	if err != nil {
		return nil, fmt.Errorf("invalid cache TTL %q", a.TTLMinutes)
	}
	cfg.Cache.TTLMinutes = ttl

	if lvl := strings.TrimSpace(a.LogLevel); lvl != "" {
		cfg.Log.Level = lvl
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GenerateConfigYAML renders cfg as the contents of a configuration file.
func GenerateConfigYAML(cfg *projectconfig.Config) (string, error) {
	data, err := cfg.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	return "# benchdash configuration\n" + string(data), nil
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("enter an absolute URL such as https://example.com")
	}
	return nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

func validatePositive(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fmt.Errorf("enter a positive whole number")
	}
	return nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
