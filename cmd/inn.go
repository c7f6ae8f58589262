package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/avoronkov/pdnaudit/internal/inn"
	sharederrors "github.com/avoronkov/pdnaudit/internal/shared/errors"
)

var innUseRegistry bool

var innCmd = &cobra.Command{
	Use:   "inn <number>",
	Short: "Validate an INN checksum, optionally against the operator register",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := args[0]

		if ok, reason := inn.Validate(value); !ok {
			return fmt.Errorf("%w: %s", sharederrors.ErrInvalidINN, reason)
		}

		kind := "individual or entrepreneur"
		if inn.IsLegalEntity(value) {
			kind = "legal entity"
		}
		fmt.Printf("%s %s (%s)\n", colorSuccess("valid"), value, kind)

		if !innUseRegistry {
			return nil
		}

		lookup, cleanup, err := buildRegistryLookup(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		rec, err := lookup.LookupByINN(cmd.Context(), value)
		switch {
		case errors.Is(err, sharederrors.ErrRegistryNotFound):
			fmt.Println(colorWarn("No record found in the operator register"))
			return nil
		case errors.Is(err, sharederrors.ErrRegistryUnavailable):
			return fmt.Errorf("operator register unavailable: %w", err)
		case err != nil:
			return err
		}

		if rec.Registered {
			fmt.Println(colorSuccess("Registered as a personal data operator"))
		} else {
			fmt.Println(colorWarn("Known to the register but not listed as an operator"))
		}
		printField("Name", rec.Name)
		printField("Registration no.", rec.RegistrationNumber)
		printField("Registered on", rec.RegistrationDate)
		printField("Operator type", rec.OperatorType)
		printField("Region", rec.Region)
		printField("Address", rec.Address)
		printField("Legal basis", rec.Basis)
		printField("Source", rec.Source)
		if !rec.LastCheckedAt.IsZero() {
			printField("Last checked", rec.LastCheckedAt.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	innCmd.Flags().BoolVar(&innUseRegistry, "registry", false, "look the INN up in the operator register")
	innCmd.Flags().StringVar(&cliConfig.Audit.Registry.DSN, "registry-dsn", cliConfig.Audit.Registry.DSN, "Postgres DSN for the operator register cache")
	innCmd.Flags().BoolVar(&cliConfig.Audit.Registry.Live, "live-registry", cliConfig.Audit.Registry.Live, "consult the public operator register portal on cache misses")
}
