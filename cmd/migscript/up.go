package main

import (
	"context"

	"github.com/loykin/migscript/internal/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations up to a target (empty = latest)",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		to := v.GetString("up_to")
		r, err := openRunner(v)
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		if err := r.Up(context.Background(), to); err != nil {
			return err
		}
		common.LogInfo("migrations applied", "target", to)
		return nil
	},
}

func init() {
	upCmd.Flags().String("to", "", "target migration to migrate up to (empty = latest)")
	_ = viper.BindPFlag("up_to", upCmd.Flags().Lookup("to"))
}
