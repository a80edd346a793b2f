package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"asset-tokenization-kit/internal/challenge"
	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/graphql"
	"asset-tokenization-kit/internal/portal"
	"asset-tokenization-kit/internal/validate"
)

const portalTimeout = 30 * time.Second

func newPincodeResponseCmd() *cobra.Command {
	var salt, secret string

	cmd := &cobra.Command{
		Use:   "pincode-response <pincode> <walletAddress>",
		Short: "Print a challenge id and pincode response for manual GraphQL testing",
		Long: `Fetches a fresh PINCODE challenge for the wallet from Portal and prints
the challenge id with the response hash to pass as challengeId and
challengeResponse. With --salt and --secret the response is computed
offline and no challenge id is printed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pincode, wallet := args[0], args[1]
			if !validate.IsPincode(pincode) {
				return fmt.Errorf("pincode must be exactly 6 digits")
			}
			if !validate.IsAddress(wallet) {
				return fmt.Errorf("invalid wallet address %q", wallet)
			}
			out := cmd.OutOrStdout()

			if salt != "" || secret != "" {
				if salt == "" || secret == "" {
					return fmt.Errorf("--salt and --secret must be given together")
				}
				fmt.Fprintf(out, "Challenge response: %s\n", challenge.Response(pincode, salt, secret))
				return nil
			}

			if cfg.Portal.URL == "" {
				return fmt.Errorf("portal url is not configured (set portal.url or ATK_PORTAL_URL)")
			}
			client := portal.NewClient(graphql.NewClient(cfg.Portal.URL,
				graphql.WithService("portal"),
				graphql.WithBearerToken(cfg.Portal.AccessToken),
			))

			ctx, cancel := context.WithTimeout(cmd.Context(), portalTimeout)
			defer cancel()
			challenges, err := client.CreateVerificationChallenges(ctx, wallet)
			if err != nil {
				return err
			}
			ch, err := challenge.Pick(challenges, domain.VerificationPincode, "")
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Verification ID:    %s\n", ch.VerificationID)
			fmt.Fprintf(out, "Challenge ID:       %s\n", ch.ID)
			fmt.Fprintf(out, "Challenge response: %s\n", challenge.Response(pincode, ch.Salt, ch.Secret))
			return nil
		},
	}

	cmd.Flags().StringVar(&salt, "salt", "", "challenge salt (offline mode)")
	cmd.Flags().StringVar(&secret, "secret", "", "challenge secret (offline mode)")
	return cmd
}
