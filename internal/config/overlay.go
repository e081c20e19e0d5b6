package config

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml"
)

// parseOverlay parses one "<plugin-name>:<key>=<toml-value>" argument, the
// shape shared by both --plugin flags and the environment overlay (per §6,
// an environment variable's value is parsed exactly as if it were a
// --plugin argument).
func parseOverlay(arg string) (plugin, key string, value any, err error) {
	nameAndRest, kv, ok := strings.Cut(arg, ":")
	if !ok {
		return "", "", nil, fmt.Errorf("overlay %q: missing ':' separator", arg)
	}
	k, v, ok := strings.Cut(kv, "=")
	if !ok {
		return "", "", nil, fmt.Errorf("overlay %q: missing '=' separator", arg)
	}
	plugin = strings.TrimSpace(nameAndRest)
	key = strings.TrimSpace(k)
	if plugin == "" || key == "" {
		return "", "", nil, fmt.Errorf("overlay %q: empty plugin name or key", arg)
	}

	tree, err := toml.Load(fmt.Sprintf("v = %s", strings.TrimSpace(v)))
	if err != nil {
		// Fall back to a bare string so an unquoted word like `hello`
		// still overlays instead of rejecting the whole argument.
		tree, err = toml.Load(fmt.Sprintf("v = %q", strings.TrimSpace(v)))
		if err != nil {
			return "", "", nil, fmt.Errorf("overlay %q: invalid TOML value: %w", arg, err)
		}
	}
	return plugin, key, tree.Get("v"), nil
}

// envPrefix derives the environment-variable prefix from the config root
// directory's basename: the initials of its uppercase-snake form. A config
// root of "plugin-host-config" yields "PHC".
func envPrefix(configRoot string) string {
	base := strings.TrimSuffix(configRoot, "/")
	if idx := strings.LastIndexAny(base, "/\\"); idx >= 0 {
		base = base[idx+1:]
	}
	words := strings.FieldsFunc(base, func(r rune) bool { return r == '-' || r == '_' })
	var b strings.Builder
	for _, w := range words {
		if w == "" {
			continue
		}
		b.WriteByte(upperByte(w[0]))
	}
	return b.String()
}

func upperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}
