// Package yaml loads CLI configuration from YAML files.
package yaml

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// Ensure Loader is a kong.ConfigurationLoader at compile time.
var _ kong.ConfigurationLoader = Loader

// Loader reads a YAML mapping of flag names to values. Keys may use either
// dashes or underscores, so "user-agent" and "user_agent" both set
// --user-agent. An empty document yields an empty configuration.
func Loader(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding yaml config: %w", err)
	}

	return kong.ResolverFunc(func(kctx *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
		for _, key := range []string{flag.Name, strings.ReplaceAll(flag.Name, "-", "_")} {
			if v, ok := values[key]; ok {
				return normalize(v), nil
			}
		}
		return nil, nil
	}), nil
}

// normalize turns YAML values into the shapes kong's mappers decode:
// sequences become comma-joined strings.
func normalize(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	parts := make([]string, len(list))
	for i, item := range list {
		parts[i] = fmt.Sprint(item)
	}
	return strings.Join(parts, ",")
}
