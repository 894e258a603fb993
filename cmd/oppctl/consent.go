package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kevin07696/openbanking-service/internal/domain/models"
)

func consentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consent",
		Short: "Inspect or delete account information consents",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get CONSENT_ID",
			Short: "Show a consent",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				op, err := a.operation()
				if err != nil {
					return err
				}
				var c *models.ConsentDetails
				err = a.call(cmd, func(ctx context.Context) (err error) {
					c, err = a.bank.GetConsent(ctx, args[0], op)
					return err
				})
				if err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), c, func(w io.Writer) {
					fmt.Fprintf(w, "Consent:\t%s\n", c.ConsentID)
					fmt.Fprintf(w, "Status:\t%s\n", c.Status)
					fmt.Fprintf(w, "Valid until:\t%s\n", c.ValidUntil.Format("2006-01-02"))
					fmt.Fprintf(w, "Recurring:\t%t\n", c.Recurring)
					fmt.Fprintf(w, "Frequency per day:\t%d\n", c.FrequencyPerDay)
					fmt.Fprintf(w, "Accounts:\t%d\n", len(c.AccountAccess))
					fmt.Fprintf(w, "Balances:\t%d\n", len(c.BalanceAccess))
					fmt.Fprintf(w, "Transactions:\t%d\n", len(c.TransactionsAccess))
				})
			},
		},
		&cobra.Command{
			Use:   "status CONSENT_ID",
			Short: "Show the status of a consent",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				op, err := a.operation()
				if err != nil {
					return err
				}
				var status models.ConsentStatus
				err = a.call(cmd, func(ctx context.Context) (err error) {
					status, err = a.bank.GetConsentStatus(ctx, args[0], op)
					return err
				})
				if err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), map[string]string{"consentId": args[0], "status": string(status)}, func(w io.Writer) {
					fmt.Fprintln(w, status)
				})
			},
		},
		&cobra.Command{
			Use:   "authorizations CONSENT_ID",
			Short: "List the authorisation ids of a consent",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				op, err := a.operation()
				if err != nil {
					return err
				}
				var ids []string
				err = a.call(cmd, func(ctx context.Context) (err error) {
					ids, err = a.bank.GetConsentAuthorizationIDs(ctx, args[0], op)
					return err
				})
				if err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), ids, func(w io.Writer) {
					for _, id := range ids {
						fmt.Fprintln(w, id)
					}
				})
			},
		},
		&cobra.Command{
			Use:   "delete CONSENT_ID",
			Short: "Delete a consent",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				op, err := a.operation()
				if err != nil {
					return err
				}
				err = a.call(cmd, func(ctx context.Context) error {
					return a.bank.DeleteConsent(ctx, args[0], op)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted consent %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}
