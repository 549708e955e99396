package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"gopkg.in/yaml.v3"
)

type wizardProvider struct {
	Kind       string
	Name       string
	APIKey     string //nolint:gosec // env var reference, not a secret
	Model      string
	RPM        string
	MaxRetries string
	BaseDelay  string
}

type wizardConfig struct {
	Provider wizardProvider
	HiroKey  string //nolint:gosec // env var reference, not a secret
	Addr     string
}

type providerDefault struct {
	APIKey string //nolint:gosec // env var reference template, not a secret
	Model  string
}

//nolint:gosec // env var reference templates, not hardcoded secrets
var providerDefaults = map[string]providerDefault{
	"gemini": {APIKey: "${GEMINI_API_KEY}", Model: "gemini-2.5-flash"},
	"openai": {APIKey: "${OPENAI_API_KEY}", Model: "gpt-4o-mini"},
	"grok":   {APIKey: "${XAI_API_KEY}", Model: "grok-4"},
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	path := fs.String("config", "blasko.yaml", "path of the config file to write")
	force := fs.Bool("force", false, "overwrite an existing config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*force {
		if _, err := os.Stat(*path); err == nil {
			return fmt.Errorf("%s already exists (use -force to overwrite)", *path)
		}
	}

	cfg, err := runWizard()
	if err != nil {
		return err
	}

	data, err := marshalWizardConfig(cfg)
	if err != nil {
		return err
	}

	if err := writeConfigFile(*path, data, *force); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", *path)
	fmt.Println("Run 'blasko serve' to start the server.")
	return nil
}

func runWizard() (wizardConfig, error) {
	cfg := wizardConfig{HiroKey: "${HIRO_API_KEY}", Addr: ":8080"}
	p := &cfg.Provider

	err := huh.NewSelect[string]().
		Title("Model provider").
		Options(
			huh.NewOption("Google Gemini", "gemini"),
			huh.NewOption("OpenAI", "openai"),
			huh.NewOption("xAI Grok", "grok"),
		).
		Value(&p.Kind).
		Run()
	if err != nil {
		return cfg, err
	}

	defaults := providerDefaults[p.Kind]
	p.Name, p.APIKey, p.Model = p.Kind, defaults.APIKey, defaults.Model
	p.RPM, p.MaxRetries, p.BaseDelay = "0", "3", "1s"

	var rateLimited bool
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Provider name").Value(&p.Name),
			huh.NewInput().Title("API key env var").Value(&p.APIKey),
			huh.NewInput().Title("Model").Value(&p.Model),
			huh.NewConfirm().Title("Configure rate limiting?").Value(&rateLimited),
		),
		huh.NewGroup(
			huh.NewInput().Title("Requests per minute (0 = no limit)").Value(&p.RPM).Validate(validateNonNegativeInt),
			huh.NewInput().Title("Max retries on 429").Value(&p.MaxRetries).Validate(validateNonNegativeInt),
			huh.NewInput().Title("Base backoff delay (e.g. 1s, 500ms)").Value(&p.BaseDelay).Validate(validateDuration),
		).WithHideFunc(func() bool { return !rateLimited }),
		huh.NewGroup(
			huh.NewInput().Title("Hiro API key env var (empty = anonymous)").Value(&cfg.HiroKey),
			huh.NewInput().Title("Listen address").Value(&cfg.Addr),
		),
	).Run()
	if !rateLimited {
		p.RPM, p.MaxRetries, p.BaseDelay = "", "", ""
	}

	return cfg, err
}

func validateNonNegativeInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf("must be a non-negative integer")
	}

	return nil
}

func validateDuration(s string) error {
	if s == "" {
		return nil
	}

	if _, err := time.ParseDuration(s); err != nil {
		return fmt.Errorf("must be a valid duration (e.g. 1s, 500ms)")
	}

	return nil
}

// writeConfigFile writes data to path. Without force an existing file is left
// untouched and reported as an error.
func writeConfigFile(path string, data []byte, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, 0o600) //nolint:gosec // user-chosen config path
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists (use -force to overwrite)", path)
		}
		return err
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// wizardFile mirrors the subset of engine.Config the wizard fills in, with
// omitempty so unset sections stay out of the file.
type wizardFile struct {
	LogLevel  string                       `yaml:"log_level"`
	Model     string                       `yaml:"model"`
	Providers []wizardFileProvider         `yaml:"providers"`
	Server    map[string]string            `yaml:"server"`
	Upstreams map[string]map[string]string `yaml:"upstreams,omitempty"`
}

type wizardFileProvider struct {
	Name      string         `yaml:"name"`
	Kind      string         `yaml:"kind"`
	APIKey    string         `yaml:"api_key"` //nolint:gosec // env var reference, not a secret
	Model     string         `yaml:"model"`
	RateLimit map[string]any `yaml:"rate_limit,omitempty"`
}

func marshalWizardConfig(cfg wizardConfig) ([]byte, error) {
	p := cfg.Provider
	entry := wizardFileProvider{Name: p.Name, Kind: p.Kind, APIKey: p.APIKey, Model: p.Model}

	limits := map[string]any{}
	if n, _ := strconv.Atoi(p.RPM); n > 0 {
		limits["rpm"] = n
	}
	if n, _ := strconv.Atoi(p.MaxRetries); n > 0 {
		limits["max_retries"] = n
	}
	if p.BaseDelay != "" {
		limits["base_delay"] = p.BaseDelay
	}
	if len(limits) > 0 {
		entry.RateLimit = limits
	}

	f := wizardFile{
		LogLevel:  "info",
		Model:     p.Name,
		Providers: []wizardFileProvider{entry},
		Server:    map[string]string{"addr": cfg.Addr},
	}
	if cfg.HiroKey != "" {
		f.Upstreams = map[string]map[string]string{"hiro": {"api_key": cfg.HiroKey}}
	}

	return yaml.Marshal(f)
}
