package main

import (
	"fmt"

	"github.com/loykin/migscript"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var createCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new migration file from a template (timestamp-based name)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		doc, err := loadConfigDoc(v)
		if err != nil {
			return err
		}
		name := "migration"
		if len(args) > 0 {
			name = args[0]
		}
		p, err := migscript.CreateMigration(migscript.CreateOptions{Name: name, Dir: doc.migrateDir(v.GetString("migrate_dir"))})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), p)
		return err
	},
}
