package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/bootstrap"
	"github.com/kevin07696/openbanking-service/internal/config"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	"github.com/kevin07696/openbanking-service/pkg/security"
	"github.com/kevin07696/openbanking-service/pkg/timeutil"
)

const userAgent = "oppctl"

// Bank is everything the commands call on the bank API
type Bank interface {
	ports.DirectoryAPI
	ports.ConsentAPI
	ports.PaymentInitiationAPI
	Token(ctx context.Context, family string) (string, error)
}

// connectFunc builds the bank client once flags are parsed
type connectFunc func(ctx context.Context, cfg *config.Config, verbose bool) (Bank, error)

// app is the state shared by all commands
type app struct {
	connect connectFunc

	cfg  *config.Config
	bank Bank

	jsonOutput bool
	verbose    bool
	timeout    time.Duration
	bic        string
	personalID string
	psuIP      string
}

func newRootCmd(connect connectFunc) *cobra.Command {
	a := &app{connect: connect}

	root := &cobra.Command{
		Use:           "oppctl",
		Short:         "Operator tool for the Open Banking payment service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVar(&a.jsonOutput, "json", false, "print JSON instead of tables")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log bank API traffic")
	flags.DurationVar(&a.timeout, "timeout", 30*time.Second, "deadline for each bank call")
	flags.StringVar(&a.bic, "bic", "", "BIC of the ASPSP that holds the resource")
	flags.StringVar(&a.personalID, "personal-id", "", "PSU personal number sent as PSU-ID")
	flags.StringVar(&a.psuIP, "psu-ip", "127.0.0.1", "PSU IP address sent as PSU-IP-Address")

	root.AddCommand(
		aspspCmd(a),
		consentCmd(a),
		paymentCmd(a),
		basketCmd(a),
		tokenCmd(a),
	)
	return root
}

func (a *app) init(ctx context.Context) error {
	if a.bank != nil {
		return nil
	}
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	bank, err := a.connect(ctx, cfg, a.verbose)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.bank = bank
	return nil
}

// connectBank builds the real bank client from configuration and the secret store
func connectBank(ctx context.Context, cfg *config.Config, verbose bool) (Bank, error) {
	logger := zap.NewNop()
	if verbose {
		var err error
		if logger, err = security.NewLoggerForEnvironment("development"); err != nil {
			return nil, err
		}
		cfg.OpenBanking.Sniff = true
	}

	store, err := bootstrap.SecretStore(ctx, cfg.Secrets, logger)
	if err != nil {
		return nil, fmt.Errorf("init secret store: %w", err)
	}
	return bootstrap.OpenBankingClient(ctx, cfg.OpenBanking, store, timeutil.SystemClock{}, logger)
}

// call runs fn under the per call deadline
func (a *app) call(cmd *cobra.Command, fn func(ctx context.Context) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return fn(ctx)
}

// operation is the PSU context of a resource call; the ASPSP must be known
func (a *app) operation() (*models.OperationContext, error) {
	if a.bic == "" {
		return nil, fmt.Errorf("--bic is required")
	}
	flow := models.FlowDecoupled
	orgID := ""
	if a.cfg != nil {
		flow = a.cfg.OpenBanking.Flow
		orgID = models.NormalizePersonalID(a.cfg.OpenBanking.OrganizationID)
	}
	return models.NewOperationContext(a.psuIP, userAgent, flow, models.NormalizePersonalID(a.personalID), orgID, a.bic), nil
}

// render prints v as JSON, or as the table written by table
func (a *app) render(out io.Writer, v interface{}, table func(w io.Writer)) error {
	if a.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	table(w)
	return w.Flush()
}
