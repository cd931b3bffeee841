// Package config loads and validates the workspace configuration for the
// i18n language server core: translation/source glob patterns, key and
// namespace separators, default namespace, and diagnostic severities.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	lcierrors "github.com/standardbeagle/lci/internal/errors"
)

// ConfigFileName is the name of the persisted workspace configuration file.
const ConfigFileName = ".js-i18n.json"

// Severity is a diagnostic severity level, mirroring the LSP vocabulary.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityHint    Severity = "hint"
)

// Config is the process-wide I18nConfig described by spec.md §3. A single
// active value exists at a time. Indexer.Reload re-scans the workspace
// with the Config the indexer was built with; it does not replace it.
type Config struct {
	Project Project

	TranslationFilePattern string // translationFiles.filePattern, default "**/locales/**/*.json"
	IncludePatterns        []string
	ExcludePatterns        []string

	KeySeparator       string  // default "."
	NamespaceSeparator *string // nil = no namespace-in-key syntax (e.g. "ns:key")
	DefaultNamespace   *string
	PrimaryLanguages   []string

	MissingTranslation DiagnosticRule
	UnusedTranslation  UnusedDiagnosticRule

	Indexing Indexing

	// Epoch is folded into Component F cache keys per spec.md's (FileId,
	// version, config_epoch) rule. Load leaves it at zero and nothing in
	// this module changes it, so a config change does not invalidate
	// cached results.
	Epoch uint64
}

// Project describes the workspace root the config was loaded for.
type Project struct {
	Root string
}

// DiagnosticRule controls the missing-translation diagnostic.
// RequiredLanguages and OptionalLanguages are mutually exclusive
// (spec.md §7 Configuration-conflict).
type DiagnosticRule struct {
	Enabled           bool
	Severity          Severity
	RequiredLanguages []string
	OptionalLanguages []string
}

// UnusedDiagnosticRule controls the unused-translation diagnostic.
type UnusedDiagnosticRule struct {
	Enabled        bool
	Severity       Severity
	IgnorePatterns []string
}

// Indexing controls the workspace indexer's worker pool (Component G).
type Indexing struct {
	NumThreads int // 0 = auto: 40% of CPU cores, clamped to >=1
}

// ResolvedNumThreads returns the worker-pool size after applying the
// "40% of CPU cores, clamped to >=1" default from spec.md §4.G.
func (i Indexing) ResolvedNumThreads() int {
	if i.NumThreads > 0 {
		return i.NumThreads
	}
	n := int(float64(runtime.NumCPU()) * 0.4)
	if n < 1 {
		n = 1
	}
	return n
}

// wireConfig is the on-disk JSON shape for .js-i18n.json (spec.md §6).
// Unknown keys are ignored by encoding/json's default decoding. A value of
// the wrong JSON type fails the whole decode, and Load then returns
// Default(root) with a warning; applyWire checks a few well-typed values
// (empty keySeparator, unknown severity, negative numThreads) one by one
// and keeps the default for each that is out of range.
type wireConfig struct {
	TranslationFiles *struct {
		FilePattern *string `json:"filePattern"`
	} `json:"translationFiles"`
	IncludePatterns    []string `json:"includePatterns"`
	ExcludePatterns    []string `json:"excludePatterns"`
	KeySeparator       *string  `json:"keySeparator"`
	NamespaceSeparator *string  `json:"namespaceSeparator"`
	DefaultNamespace   *string  `json:"defaultNamespace"`
	PrimaryLanguages   []string `json:"primaryLanguages"`
	Diagnostics        *struct {
		MissingTranslation *struct {
			Enabled           *bool    `json:"enabled"`
			Severity          *string  `json:"severity"`
			RequiredLanguages []string `json:"requiredLanguages"`
			OptionalLanguages []string `json:"optionalLanguages"`
		} `json:"missingTranslation"`
		UnusedTranslation *struct {
			Enabled        *bool    `json:"enabled"`
			Severity       *string  `json:"severity"`
			IgnorePatterns []string `json:"ignorePatterns"`
		} `json:"unusedTranslation"`
	} `json:"diagnostics"`
	Indexing *struct {
		NumThreads *int `json:"numThreads"`
	} `json:"indexing"`
}

// Default returns the default configuration for a workspace root.
func Default(root string) *Config {
	return &Config{
		Project:                Project{Root: root},
		TranslationFilePattern: "**/locales/**/*.json",
		IncludePatterns:        []string{"**/*.js", "**/*.jsx", "**/*.ts", "**/*.tsx"},
		ExcludePatterns: []string{
			"**/.git/**",
			"**/node_modules/**",
			"**/dist/**",
			"**/build/**",
			"**/out/**",
		},
		KeySeparator: ".",
		MissingTranslation: DiagnosticRule{
			Enabled:  true,
			Severity: SeverityWarning,
		},
		UnusedTranslation: UnusedDiagnosticRule{
			Enabled:  true,
			Severity: SeverityHint,
		},
		Indexing: Indexing{NumThreads: 0},
	}
}

// Load reads ConfigFileName from root, merges it over Default(root), and
// validates it. A missing file is not an error: Default(root) is returned
// unchanged. A file that is not valid JSON, or holds a value of the
// wrong JSON type, yields Default(root) as a whole plus a warning, per
// spec.md's Input-malformed error kind -- it never fails initialize().
func Load(root string) (*Config, []string, error) {
	cfg := Default(root)

	path := filepath.Join(root, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil, nil
		}
		return cfg, nil, lcierrors.NewConfigError("file", path, err)
	}

	var wire wireConfig
	if err := json.Unmarshal(data, &wire); err != nil {
		return cfg, []string{fmt.Sprintf("%s is not valid JSON, using defaults: %v", ConfigFileName, err)}, nil
	}

	warnings := applyWire(cfg, &wire)

	if err := Validate(cfg); err != nil {
		// Configuration-conflict: retain the defaults untouched and surface
		// a warning rather than failing initialize() (spec.md §7).
		return Default(root), append(warnings, err.Error()), nil
	}

	return cfg, warnings, nil
}

func applyWire(cfg *Config, wire *wireConfig) []string {
	var warnings []string

	if wire.TranslationFiles != nil && wire.TranslationFiles.FilePattern != nil {
		cfg.TranslationFilePattern = *wire.TranslationFiles.FilePattern
	}
	if wire.IncludePatterns != nil {
		cfg.IncludePatterns = wire.IncludePatterns
	}
	if wire.ExcludePatterns != nil {
		cfg.ExcludePatterns = wire.ExcludePatterns
	}
	if wire.KeySeparator != nil {
		if *wire.KeySeparator == "" {
			warnings = append(warnings, "keySeparator must not be empty, using default \".\"")
		} else {
			cfg.KeySeparator = *wire.KeySeparator
		}
	}
	cfg.NamespaceSeparator = wire.NamespaceSeparator
	cfg.DefaultNamespace = wire.DefaultNamespace
	if wire.PrimaryLanguages != nil {
		cfg.PrimaryLanguages = wire.PrimaryLanguages
	}

	if wire.Diagnostics != nil {
		if m := wire.Diagnostics.MissingTranslation; m != nil {
			if m.Enabled != nil {
				cfg.MissingTranslation.Enabled = *m.Enabled
			}
			if sev, ok := parseSeverity(m.Severity); ok {
				cfg.MissingTranslation.Severity = sev
			} else if m.Severity != nil {
				warnings = append(warnings, fmt.Sprintf("unrecognised diagnostics.missingTranslation.severity %q, using default", *m.Severity))
			}
			cfg.MissingTranslation.RequiredLanguages = m.RequiredLanguages
			cfg.MissingTranslation.OptionalLanguages = m.OptionalLanguages
		}
		if u := wire.Diagnostics.UnusedTranslation; u != nil {
			if u.Enabled != nil {
				cfg.UnusedTranslation.Enabled = *u.Enabled
			}
			if sev, ok := parseSeverity(u.Severity); ok {
				cfg.UnusedTranslation.Severity = sev
			} else if u.Severity != nil {
				warnings = append(warnings, fmt.Sprintf("unrecognised diagnostics.unusedTranslation.severity %q, using default", *u.Severity))
			}
			cfg.UnusedTranslation.IgnorePatterns = u.IgnorePatterns
		}
	}

	if wire.Indexing != nil && wire.Indexing.NumThreads != nil {
		if *wire.Indexing.NumThreads < 0 {
			warnings = append(warnings, "indexing.numThreads must be >= 0, using auto-detect")
		} else {
			cfg.Indexing.NumThreads = *wire.Indexing.NumThreads
		}
	}

	return warnings
}

func parseSeverity(s *string) (Severity, bool) {
	if s == nil {
		return "", false
	}
	switch Severity(*s) {
	case SeverityError, SeverityWarning, SeverityInfo, SeverityHint:
		return Severity(*s), true
	default:
		return "", false
	}
}

// Validate checks cross-field invariants that can't be caught per-field.
func Validate(cfg *Config) error {
	if len(cfg.MissingTranslation.RequiredLanguages) > 0 && len(cfg.MissingTranslation.OptionalLanguages) > 0 {
		return lcierrors.NewConfigError("diagnostics.missingTranslation", cfg.Project.Root,
			fmt.Errorf("requiredLanguages and optionalLanguages are mutually exclusive"))
	}
	if cfg.KeySeparator == "" {
		return lcierrors.NewConfigError("keySeparator", cfg.Project.Root, fmt.Errorf("must not be empty"))
	}
	return nil
}
