package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kevin07696/openbanking-service/internal/domain/models"
)

type statusView struct {
	ID       string   `json:"id"`
	Status   string   `json:"status"`
	Messages []string `json:"messages,omitempty"`
}

func (a *app) renderStatus(cmd *cobra.Command, v statusView) error {
	return a.render(cmd.OutOrStdout(), v, func(w io.Writer) {
		fmt.Fprintf(w, "%s\t%s\n", v.ID, v.Status)
		for _, m := range v.Messages {
			fmt.Fprintf(w, "\t%s\n", m)
		}
	})
}

func paymentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Inspect or delete payment initiations",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status PRODUCT PAYMENT_ID",
			Short: "Show the transaction status of a payment",
			Long:  "PRODUCT is domestic, sepa-credit-transfers or international.",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := models.ParsePaymentProduct(args[0])
				if err != nil {
					return err
				}
				op, err := a.operation()
				if err != nil {
					return err
				}
				var st *models.PaymentTransactionStatus
				err = a.call(cmd, func(ctx context.Context) (err error) {
					st, err = a.bank.GetPaymentStatus(ctx, p, args[1], op)
					return err
				})
				if err != nil {
					return err
				}
				return a.renderStatus(cmd, statusView{ID: args[1], Status: string(st.Status), Messages: models.MessageTexts(st.Messages)})
			},
		},
		&cobra.Command{
			Use:   "delete PRODUCT PAYMENT_ID",
			Short: "Delete a payment initiation",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := models.ParsePaymentProduct(args[0])
				if err != nil {
					return err
				}
				op, err := a.operation()
				if err != nil {
					return err
				}
				err = a.call(cmd, func(ctx context.Context) error {
					return a.bank.DeletePayment(ctx, p, args[1], op)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted payment %s\n", args[1])
				return nil
			},
		},
	)
	return cmd
}

func basketCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "basket",
		Short: "Inspect or delete signing baskets",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status BASKET_ID",
			Short: "Show the transaction status of a signing basket",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				op, err := a.operation()
				if err != nil {
					return err
				}
				var st *models.BasketTransactionStatus
				err = a.call(cmd, func(ctx context.Context) (err error) {
					st, err = a.bank.GetBasketStatus(ctx, args[0], op)
					return err
				})
				if err != nil {
					return err
				}
				return a.renderStatus(cmd, statusView{ID: args[0], Status: string(st.Status), Messages: models.MessageTexts(st.Messages)})
			},
		},
		&cobra.Command{
			Use:   "delete BASKET_ID",
			Short: "Delete a signing basket",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				op, err := a.operation()
				if err != nil {
					return err
				}
				err = a.call(cmd, func(ctx context.Context) error {
					return a.bank.DeleteBasket(ctx, args[0], op)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted basket %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}
