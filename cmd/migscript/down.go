package main

import (
	"context"

	"github.com/loykin/migscript/internal/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert applied migrations newer than a target (0 = everything)",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		to := v.GetString("down_to")
		r, err := openRunner(v)
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		if err := r.Down(context.Background(), to); err != nil {
			return err
		}
		common.LogInfo("migrations reverted", "target", to)
		return nil
	},
}

func init() {
	downCmd.Flags().String("to", "", "target migration to keep; 0 reverts everything")
	_ = viper.BindPFlag("down_to", downCmd.Flags().Lookup("to"))
}
