package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Print the SQL script between two migrations without touching the database",
	Long: `Print the SQL script between two migrations.

Without --from the script starts from an empty database and creates the whole
schema in one section. Without --to it runs to the latest migration. When
--from is newer than --to, or --down is set, a downward script is produced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		from := v.GetString("script_from")
		to := v.GetString("script_to")
		down := v.GetBool("script_down")
		outPath := strings.TrimSpace(v.GetString("script_out"))

		r, err := openRunner(v)
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		ctx := context.Background()
		var text string
		if down {
			text, err = r.ScriptDown(ctx, from, to)
		} else {
			text, err = r.Script(ctx, from, to)
		}
		if err != nil {
			return err
		}
		if outPath == "" {
			_, err = io.WriteString(cmd.OutOrStdout(), text)
			return err
		}
		if err := os.WriteFile(filepath.Clean(outPath), []byte(text), 0o600); err != nil {
			return fmt.Errorf("write script: %w", err)
		}
		return nil
	},
}

func init() {
	v := viper.GetViper()
	scriptCmd.Flags().String("from", "", "source migration (empty = empty database)")
	scriptCmd.Flags().String("to", "", "target migration (empty = latest)")
	scriptCmd.Flags().Bool("down", false, "generate a downward script; requires --from and --to")
	scriptCmd.Flags().StringP("out", "o", "", "write the script to a file instead of stdout")
	_ = v.BindPFlag("script_from", scriptCmd.Flags().Lookup("from"))
	_ = v.BindPFlag("script_to", scriptCmd.Flags().Lookup("to"))
	_ = v.BindPFlag("script_down", scriptCmd.Flags().Lookup("down"))
	_ = v.BindPFlag("script_out", scriptCmd.Flags().Lookup("out"))
}
