package main

import (
	"github.com/loykin/migscript/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:           "migscript",
	Short:         "Apply YAML schema migrations or render them as SQL scripts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadConfigDoc(viper.GetViper())
		if err != nil {
			return err
		}
		return doc.SetupLogging()
	},
}

func init() {
	// Defaults
	v := viper.GetViper()
	v.SetDefault("config", constants.DefaultConfigPath)
	v.SetDefault("migrate_dir", "")
	v.SetDefault("dialect", "")

	// Environment variables support: MIGSCRIPT_CONFIG, MIGSCRIPT_MIGRATE_DIR, ...
	v.SetEnvPrefix("MIGSCRIPT")
	v.AutomaticEnv()

	rootCmd.PersistentFlags().String("config", v.GetString("config"), "path to a config yaml")
	rootCmd.PersistentFlags().String("dir", "", "migration directory (overrides migrate_dir in config)")
	rootCmd.PersistentFlags().String("dialect", "", "SQL dialect for generated scripts: sqlite or postgres (defaults to the store type)")
	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("migrate_dir", rootCmd.PersistentFlags().Lookup("dir"))
	_ = v.BindPFlag("dialect", rootCmd.PersistentFlags().Lookup("dialect"))

	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(createCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitHandler.LogFatalError(err, "command execution failed")
	}
}
