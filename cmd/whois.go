package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/avoronkov/pdnaudit/internal/resolver"
	sharederrors "github.com/avoronkov/pdnaudit/internal/shared/errors"
)

var whoisCmd = &cobra.Command{
	Use:   "whois <domain>",
	Short: "Resolve who stands behind a domain (DNS + WHOIS)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cliConfig.Audit.TimeoutSecs)*time.Second)
		defer cancel()

		own, err := resolver.New(nil).Resolve(ctx, target)
		if err != nil {
			if errors.Is(err, sharederrors.ErrInvalidTarget) || errors.Is(err, sharederrors.ErrEmptyTarget) {
				return &InvalidTargetError{Target: target, Reason: err.Error()}
			}
			return err
		}

		fmt.Printf("%s %s\n", colorInfo("Host:"), own.Host)
		fmt.Printf("%s %s (.%s)\n", colorInfo("Registrable domain:"), own.Domain, own.TLD)
		fmt.Printf("%s %s\n", colorInfo("Status:"), formatStatus(own.Status))

		if own.DNS.Resolves() {
			fmt.Println(colorInfo("DNS:"))
			printRecords("A", own.DNS.A)
			printRecords("AAAA", own.DNS.AAAA)
			printRecords("MX", own.DNS.MX)
			printRecords("NS", own.DNS.NS)
		}

		if own.Whois != nil && !own.Whois.Empty() {
			fmt.Println(colorInfo("WHOIS:"))
			printField("Registrar", own.Whois.Registrar)
			printField("Registrant", own.Whois.Registrant)
			printField("Created", own.Whois.CreatedDate)
			printField("Expires", own.Whois.ExpiryDate)
			printRecords("Name servers", own.Whois.NameServers)
			if own.WhoisServer != "" {
				printField("Answered by", own.WhoisServer)
			}
		}

		if len(own.Limitations) > 0 {
			fmt.Println(colorWarn("Limitations:"))
			for _, l := range own.Limitations {
				fmt.Printf("  - %s\n", l)
			}
		}
		return nil
	},
}

func formatStatus(status string) string {
	switch status {
	case resolver.StatusOK:
		return colorSuccess(status)
	case resolver.StatusWarn:
		return colorWarn(status)
	case resolver.StatusUnavailable:
		return colorError(status)
	default:
		return status
	}
}

func printField(label, value string) {
	if value == "" {
		return
	}
	fmt.Printf("  %-18s %s\n", label+":", value)
}

func printRecords(label string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Printf("  %-18s %s\n", label+":", strings.Join(values, ", "))
}
