package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kevin07696/openbanking-service/internal/domain/models"
)

func aspspCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aspsp",
		Short: "Browse the ASPSP directory",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "countries",
			Short: "List countries with ASPSPs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				var countries []models.Country
				err := a.call(cmd, func(ctx context.Context) (err error) {
					countries, err = a.bank.GetCountries(ctx)
					return err
				})
				if err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), countries, func(w io.Writer) {
					fmt.Fprintln(w, "ISO\tNAME")
					for _, c := range countries {
						fmt.Fprintf(w, "%s\t%s\n", c.IsoCode, c.Name)
					}
				})
			},
		},
		&cobra.Command{
			Use:   "cities COUNTRY...",
			Short: "List cities of one or more countries",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var cities []models.City
				for _, iso := range args {
					err := a.call(cmd, func(ctx context.Context) error {
						found, err := a.bank.GetCities(ctx, strings.ToUpper(iso))
						cities = append(cities, found...)
						return err
					})
					if err != nil {
						return err
					}
				}
				return a.render(cmd.OutOrStdout(), cities, func(w io.Writer) {
					fmt.Fprintln(w, "ID\tCOUNTRY\tNAME")
					for _, c := range cities {
						fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.IsoCountryCode, c.Name)
					}
				})
			},
		},
		&cobra.Command{
			Use:   "providers COUNTRY...",
			Short: "List ASPSPs of one or more countries",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var providers []models.ServiceProvider
				for _, iso := range args {
					err := a.call(cmd, func(ctx context.Context) error {
						found, err := a.bank.GetServiceProviders(ctx, strings.ToUpper(iso))
						providers = append(providers, found...)
						return err
					})
					if err != nil {
						return err
					}
				}
				return a.render(cmd.OutOrStdout(), providers, func(w io.Writer) {
					fmt.Fprintln(w, "BIC\tNAME")
					for _, p := range providers {
						fmt.Fprintf(w, "%s\t%s\n", p.BicFi, p.Name)
					}
				})
			},
		},
		&cobra.Command{
			Use:   "provider BIC",
			Short: "Show the directory entry of one ASPSP",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var p *models.ServiceProviderDetails
				err := a.call(cmd, func(ctx context.Context) (err error) {
					p, err = a.bank.GetServiceProvider(ctx, strings.ToUpper(args[0]))
					return err
				})
				if err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), p, func(w io.Writer) {
					fmt.Fprintf(w, "BIC:\t%s\n", p.BicFi)
					fmt.Fprintf(w, "Name:\t%s\n", p.Name)
					fmt.Fprintf(w, "Address:\t%s, %s %s, %s\n", p.StreetAddress, p.PostalCode, p.City, p.Country)
					fmt.Fprintf(w, "Company number:\t%s\n", p.CompanyNumber)
					fmt.Fprintf(w, "Website:\t%s\n", p.WebsiteURL)
					fmt.Fprintf(w, "Payment products:\t%s\n", strings.Join(p.GlobalPaymentProducts, ", "))
					fmt.Fprintf(w, "SCA methods:\t%s\n", strings.Join(sortedKeys(p.SupportedAuthorizationMethods), ", "))
				})
			},
		},
	)
	return cmd
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
