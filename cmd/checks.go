package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/avoronkov/pdnaudit/internal/checks"
	"github.com/avoronkov/pdnaudit/internal/penalty"
)

var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "Show the check battery with legal references and fine ranges",
	Long: `List every check the audit runs, the law articles it maps to and the
statutory fine bracket a failure exposes a legal entity to. Checks sharing
one violation (e.g. the security headers) are fined once per audit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		battery := checks.DefaultBattery(nil)
		battery = append(battery, loadExtraRules()...)

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCHECK\tLEGAL BASIS\tFINE (LEGAL ENTITY)")
		for _, c := range battery {
			basis, fine := "-", "-"
			if item := penalty.Attach(c.ID(), checks.StatusFail); item != nil {
				basis = strings.Join(item.LawBasis, "; ")
				for _, r := range item.Ranges {
					if r.Subject == penalty.SubjectLegalEntity {
						fine = formatRubles(r.MinAmount, r.MaxAmount)
						break
					}
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID(), c.Title(), basis, fine)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Printf("\n%d checks in the battery\n", len(battery))
		return nil
	},
}
