package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. CMSID_THREADS=20.
const EnvPrefix = "CMSID"

// ApplyFile fills every flag the user did not set on the command line from
// CMSID_* environment variables and then from the YAML file at path (which
// may be empty). Keys are flag names: "threads", "user-agent", ...
func ApplyFile(path string, fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var firstErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if firstErr != nil || f.Changed || f.Name == "config" {
			return
		}
		if !v.IsSet(f.Name) {
			return
		}
		if err := fs.Set(f.Name, flagValue(v, f)); err != nil {
			firstErr = fmt.Errorf("config key %q: %w", f.Name, err)
		}
	})
	return firstErr
}

func flagValue(v *viper.Viper, f *pflag.Flag) string {
	switch f.Value.Type() {
	case "stringSlice", "stringArray", "ints":
		return strings.Join(v.GetStringSlice(f.Name), ",")
	default:
		return v.GetString(f.Name)
	}
}
