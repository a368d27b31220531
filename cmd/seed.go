package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/jmehdipour/eventlog/internal/config"
	"github.com/jmehdipour/eventlog/internal/db"
	"github.com/jmehdipour/eventlog/internal/repository"
	"github.com/jmehdipour/eventlog/internal/service/accounts"
	"github.com/spf13/cobra"
)

var seedCount int

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Provision demo customers and print their credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedCount <= 0 {
			return fmt.Errorf("--count must be positive")
		}

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		store, err := db.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer store.Close()

		if err := db.EnsureSchema(cmd.Context(), store); err != nil {
			return err
		}

		svc := accounts.New(repository.NewCustomersRepository(store))

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "COPY_ID\tTOKEN\tNAME")
		for i := 1; i <= seedCount; i++ {
			name := fmt.Sprintf("Demo Customer %d", i)
			email := fmt.Sprintf("demo%d@example.com", i)
			creds, err := svc.Provision(cmd.Context(), "seed", name, email)
			if err != nil {
				return fmt.Errorf("seed customer %d: %w", i, err)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", creds.CopyID, creds.Token, name)
		}
		return tw.Flush()
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedCount, "count", 5, "number of demo customers")
}
