// Package rules assembles the configured rewrite rules of a run.
package rules

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/refang/pkg/levenshtein"
	"github.com/Sumatoshi-tech/refang/pkg/reflection"
	"github.com/Sumatoshi-tech/refang/pkg/rewrite"
	"github.com/Sumatoshi-tech/refang/pkg/rules/argrewrite"
	"github.com/Sumatoshi-tech/refang/pkg/rules/magicaccessor"
)

// ErrUnknownRule is returned for rule names no rule answers to.
var ErrUnknownRule = errors.New("unknown rule")

// Names lists the available rules in execution order.
func Names() []string {
	return []string{magicaccessor.Name, argrewrite.Name}
}

// Config selects and configures rules.
type Config struct {
	// Enabled rule names; empty enables every rule.
	Enabled []string
	// LegacyBase overrides the magic accessor base class.
	LegacyBase string
	// Table drives the argument rewrite rule; nil means an empty table.
	Table *argrewrite.Table
	// Logger is handed to rules that log.
	Logger *slog.Logger
}

// maxSuggestDistance bounds the edit distance of "did you mean" hints.
const maxSuggestDistance = 3

// Validate reports enabled names that match no rule.
func (c Config) Validate() error {
	known := Names()

	for _, name := range c.Enabled {
		name = strings.TrimSpace(name)
		if slices.Contains(known, name) {
			continue
		}

		lev := &levenshtein.Context{}
		if suggestion, ok := lev.Closest(name, known, maxSuggestDistance); ok {
			return fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownRule, name, suggestion)
		}

		return fmt.Errorf("%w %q (known: %s)", ErrUnknownRule, name, strings.Join(known, ", "))
	}

	return nil
}

func (c Config) enabled(name string) bool {
	if len(c.Enabled) == 0 {
		return true
	}

	return slices.ContainsFunc(c.Enabled, func(candidate string) bool {
		return strings.TrimSpace(candidate) == name
	})
}

// Factory returns a rewrite.RuleFactory building the enabled rules, in
// Names order, against the reflector of a run.
func Factory(cfg Config) rewrite.RuleFactory {
	return func(reflector reflection.Reflector) ([]rewrite.Rule, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		var out []rewrite.Rule

		if cfg.enabled(magicaccessor.Name) {
			out = append(out, magicaccessor.New(reflector,
				magicaccessor.WithLegacyBase(cfg.LegacyBase),
				magicaccessor.WithLogger(cfg.Logger),
			))
		}

		if cfg.enabled(argrewrite.Name) {
			table := cfg.Table
			if table == nil {
				empty, err := argrewrite.NewTable(nil)
				if err != nil {
					return nil, fmt.Errorf("empty change table: %w", err)
				}

				table = empty
			}

			out = append(out, argrewrite.New(table, reflector))
		}

		return out, nil
	}
}

// Info describes one configured rule.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Describe lists the enabled rules of cfg with their configuration.
func Describe(cfg Config) ([]Info, error) {
	built, err := Factory(cfg)(reflection.Static{})
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(built))

	for _, rule := range built {
		info := Info{Name: rule.Name()}
		if describer, ok := rule.(rewrite.Describer); ok {
			info.Description = describer.Describe()
		}

		infos = append(infos, info)
	}

	return infos, nil
}
