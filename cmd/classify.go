package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/avoronkov/pdnaudit/internal/classify"
	"github.com/avoronkov/pdnaudit/internal/resolver"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <url>",
	Short: "Detect the site type without running the audit battery",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]
		if _, err := resolver.ExtractHost(target); err != nil {
			return &InvalidTargetError{Target: target, Reason: err.Error()}
		}

		renderer, err := buildRenderer(cliConfig.Audit.Renderer)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cliConfig.Audit.TimeoutSecs)*time.Second)
		defer cancel()

		snap, err := renderer.Render(ctx, target)
		if err != nil {
			return fmt.Errorf("failed to render page: %w", err)
		}

		res := classify.Classify(snap.HTML, target)
		meta := classify.MetaFor(res.Type)

		fmt.Printf("%s %s (%s)\n", colorInfo("Site type:"), meta.Name, res.Type)
		fmt.Printf("%s %s\n", colorInfo("Confidence:"), res.Confidence)
		fmt.Printf("%s %s\n", colorInfo("Description:"), meta.Description)
		fmt.Printf("%s %s ₽\n", colorInfo("Reference audit price:"), groupDigits(meta.AuditPrice))
		if len(res.Reasons) > 0 {
			fmt.Println(colorInfo("Reasons:"))
			for _, reason := range res.Reasons {
				fmt.Printf("  - %s\n", reason)
			}
		}
		return nil
	},
}

func init() {
	classifyCmd.Flags().StringVar(&cliConfig.Audit.Renderer, "renderer", cliConfig.Audit.Renderer, "page renderer: chrome (headless browser) or http (plain GET)")
	classifyCmd.Flags().IntVarP(&cliConfig.Audit.TimeoutSecs, "timeout", "t", cliConfig.Audit.TimeoutSecs, "render timeout in seconds")
}
