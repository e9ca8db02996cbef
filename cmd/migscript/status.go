package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current migration, applied migrations and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRunner(viper.GetViper())
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		st, err := r.Status(context.Background())
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), st.FormatHuman())
		return err
	},
}
