package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"asset-tokenization-kit/internal/app"
	"asset-tokenization-kit/internal/domain"
)

func newRatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Maintain fiat exchange rates",
	}
	cmd.AddCommand(newRatesSyncCmd(), newRatesShowCmd())
	return cmd
}

func newRatesSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch the latest rates and store every cross rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Build(cmd.Context(), cfg, logger, app.Options{StoresOnly: true})
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.ExchangeRates.Sync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %d exchange rates\n", n)
			return nil
		},
	}
}

func newRatesShowCmd() *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print stored exchange rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := domain.Currency(base)
			if c != "" && !c.IsValid() {
				return fmt.Errorf("unsupported currency %q", base)
			}
			a, err := app.Build(cmd.Context(), cfg, logger, app.Options{StoresOnly: true})
			if err != nil {
				return err
			}
			defer a.Close()

			rates, err := a.ExchangeRates.Rates(cmd.Context(), c)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PAIR\tRATE\tPROVIDER\tUPDATED")
			for _, r := range rates {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Pair(), r.Rate.String(), r.Provider, r.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "only rates quoted against this base currency")
	return cmd
}
