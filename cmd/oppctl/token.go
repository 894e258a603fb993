package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kevin07696/openbanking-service/internal/adapters/openbanking"
)

var families = []string{
	openbanking.FamilyAccountInformation,
	openbanking.FamilyPaymentInitiation,
	openbanking.FamilyASPSPInformation,
}

type tokenView struct {
	Family string `json:"family"`
	OK     bool   `json:"ok"`
	Token  string `json:"token,omitempty"`
	Error  string `json:"error,omitempty"`
}

func tokenCmd(a *app) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "token [FAMILY...]",
		Short: "Check that the client credentials get a token for each API family",
		Long:  "FAMILY is accountinformation, paymentinitiation or aspspinformation; all three by default.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = families
			}

			views := make([]tokenView, 0, len(args))
			failed := 0
			for _, family := range args {
				view := tokenView{Family: family}
				err := a.call(cmd, func(ctx context.Context) error {
					token, err := a.bank.Token(ctx, family)
					if err == nil {
						view.Token = mask(token, reveal)
					}
					return err
				})
				if err != nil {
					view.Error = err.Error()
					failed++
				} else {
					view.OK = true
				}
				views = append(views, view)
			}

			err := a.render(cmd.OutOrStdout(), views, func(w io.Writer) {
				fmt.Fprintln(w, "FAMILY\tRESULT")
				for _, v := range views {
					if v.OK {
						fmt.Fprintf(w, "%s\tok %s\n", v.Family, v.Token)
					} else {
						fmt.Fprintf(w, "%s\tfailed: %s\n", v.Family, v.Error)
					}
				}
			})
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d token requests failed", failed, len(views))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "print the full bearer token")
	return cmd
}

func mask(token string, reveal bool) string {
	if reveal {
		return token
	}
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
