package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func loadEnvFiles(files []string) error {
	for _, file := range files {
		err := godotenv.Load(file)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return fmt.Errorf("load env file %s: %w", file, err)
	}
	return nil
}

// loadConfig decodes the config file and environment into the options.
// Decoding overwrites flag bound fields, so flags set on the command line
// are parsed again afterwards.
func (a *App) loadConfig(cmd *cobra.Command) error {
	v := a.v
	if file, _ := cmd.Flags().GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(a.name)
		v.SetConfigType("yaml")
		for _, dir := range []string{".", "./configs", filepath.Join(os.Getenv("HOME"), "."+a.name), "/etc/" + a.name} {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config file: %w", err)
		}
	}
	expandEnv(v)

	v.SetEnvPrefix(strings.ToUpper(strings.ReplaceAll(a.name, "-", "_")))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	explicit := map[string]string{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	if err := v.Unmarshal(a.opts); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	for name, value := range explicit {
		if err := cmd.Flags().Set(name, value); err != nil {
			return fmt.Errorf("re-apply --%s: %w", name, err)
		}
	}
	return nil
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnv substitutes $VAR and ${VAR} in string values, so the checked-in
// YAML can say "api-key: ${NVIDIA_API_KEY}". Unset variables are left as
// written.
func expandEnv(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		s, ok := v.Get(key).(string)
		if !ok || !strings.Contains(s, "$") {
			continue
		}
		out := envRef.ReplaceAllStringFunc(s, func(ref string) string {
			name := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(ref, "$"), "{"), "}")
			if val, ok := os.LookupEnv(name); ok {
				return val
			}
			return ref
		})
		if out != s {
			v.Set(key, out)
		}
	}
}
