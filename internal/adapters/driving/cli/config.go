package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/stache-cli/internal/adapters/driven/config"
	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
)

const maskedValue = "********"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage persisted settings",
	Long: `Reads and writes ~/.stache/config.toml. Environment variables and
command line flags still override what is stored here.

Keys:
` + keyHelp(),
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a stored setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Store a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset [key]",
	Short: "Remove a stored setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show stored settings and environment overrides",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd, configUnsetCmd, configPathCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func keyHelp() string {
	var b strings.Builder
	for _, k := range config.Keys {
		fmt.Fprintf(&b, "  %-22s %s\n", k.Name, k.Description)
	}
	fmt.Fprintf(&b, "  %-22s %s", config.LoaderKeyPrefix+"<ext>", "loader used for an extension, e.g. loader.pdf = pdftotext")
	return b.String()
}

func lookupKey(name string) (config.Key, error) {
	key, ok := config.LookupKey(name)
	if !ok {
		return config.Key{}, errors.WithHint(
			&domain.ValidationError{Field: "key", Message: fmt.Sprintf("unknown key %q", name)},
			"Valid keys: "+strings.Join(config.KeyNames(), ", ")+", "+config.LoaderKeyPrefix+"<ext>")
	}
	return key, nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key, err := lookupKey(args[0])
	if err != nil {
		return err
	}
	st, err := configStore()
	if err != nil {
		return err
	}
	value, ok := storedValue(st, key.Name)
	if !ok {
		cmd.Println(mutedStyle.Render("(not set)"))
		return nil
	}
	cmd.Println(displayValue(key, value))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, err := lookupKey(args[0])
	if err != nil {
		return err
	}
	value, err := key.Parse(args[1])
	if err != nil {
		return err
	}
	st, err := configStore()
	if err != nil {
		return err
	}
	if err := st.Set(key.Name, value); err != nil {
		return errors.Wrapf(err, "save %s", key.Name)
	}
	cmd.Printf("%s %s = %s\n", successStyle.Render("Set"), key.Name, displayValue(key, args[1]))
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	key, err := lookupKey(args[0])
	if err != nil {
		return err
	}
	st, err := configStore()
	if err != nil {
		return err
	}
	if err := st.Delete(key.Name); err != nil {
		return errors.Wrapf(err, "remove %s", key.Name)
	}
	cmd.Printf("%s %s\n", successStyle.Render("Unset"), key.Name)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	st, err := configStore()
	if err != nil {
		return err
	}
	cmd.Println(st.Path())
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	st, err := configStore()
	if err != nil {
		return err
	}

	keys := append([]config.Key(nil), config.Keys...)
	var loaderKeys []string
	for _, name := range st.Keys() {
		if strings.HasPrefix(name, config.LoaderKeyPrefix) {
			loaderKeys = append(loaderKeys, name)
		}
	}
	sort.Strings(loaderKeys)
	for _, name := range loaderKeys {
		keys = append(keys, config.Key{Name: name})
	}

	cmd.Println(mutedStyle.Render("# " + st.Path()))
	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
	for _, key := range keys {
		value, source := "", ""
		if v, ok := storedValue(st, key.Name); ok {
			value, source = v, "file"
		}
		if env, v, ok := envOverride(key); ok {
			value, source = v, env
		}
		if source == "" {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", key.Name, displayValue(key, value), source)
	}
	return w.Flush()
}

// storedValue renders a persisted value. Lists are joined with commas.
func storedValue(st driven.ConfigStore, name string) (string, bool) {
	v, ok := st.Get(name)
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case []string, []any:
		return strings.Join(st.GetStringSlice(name), ","), true
	default:
		return fmt.Sprint(val), true
	}
}

// envOverride returns the environment variable that sets key, if any.
// The canonical name wins over aliases.
func envOverride(key config.Key) (string, string, bool) {
	if v, ok := os.LookupEnv(key.Env()); ok {
		return key.Env(), v, true
	}
	for _, alias := range key.Aliases {
		if v, ok := os.LookupEnv(alias); ok {
			return alias, v, true
		}
	}
	return "", "", false
}

func displayValue(key config.Key, value string) string {
	if key.Secret && value != "" {
		return maskedValue
	}
	return value
}
