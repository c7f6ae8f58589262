package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultAuditTimeoutSeconds = 120
	defaultBatchConcurrency    = 2
	defaultBatchRateLimit      = 1
	defaultRetryCount          = 1
)

// Renderer selection values accepted by --renderer.
const (
	rendererChrome = "chrome"
	rendererHTTP   = "http"
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Defaults DefaultValues
	Audit    AuditRuntimeConfig
}

// DefaultValues represent operator-level defaults, typically derived from env/config.
type DefaultValues struct {
	TimeoutSecs int
	Operator    string
	Renderer    string
}

// AuditRuntimeConfig consolidates flag-driven settings for the audit command.
type AuditRuntimeConfig struct {
	Concurrency     int
	RateLimit       int
	TimeoutSecs     int
	RetryCount      int
	Renderer        string
	ProgressEnabled bool
	SaveReports     bool
	Registry        RegistryConfig
}

// RegistryConfig groups operator-register lookup options.
type RegistryConfig struct {
	DSN  string
	Live bool
}

type defaultOverrides struct {
	TimeoutSecs      *int
	Operator         string
	OperatorOverride bool
	Renderer         string
	Concurrency      *int
	RateLimit        *int
	RetryCount       *int
	RegistryDSN      string
	RegistryLive     *bool
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	op := detectOperatorFromEnv()
	return &CLIConfig{
		Defaults: DefaultValues{
			TimeoutSecs: defaultAuditTimeoutSeconds,
			Operator:    op,
			Renderer:    rendererChrome,
		},
		Audit: AuditRuntimeConfig{
			Concurrency:     defaultBatchConcurrency,
			RateLimit:       defaultBatchRateLimit,
			TimeoutSecs:     defaultAuditTimeoutSeconds,
			RetryCount:      defaultRetryCount,
			Renderer:        rendererChrome,
			ProgressEnabled: true,
			SaveReports:     true,
		},
	}
}

func detectOperatorFromEnv() string {
	if env := os.Getenv("USER"); env != "" {
		return env
	}
	if env := os.Getenv("LOGNAME"); env != "" {
		return env
	}
	return ""
}

func loadDefaultOverrides() defaultOverrides {
	overrides := defaultOverrides{}

	if viper.IsSet("defaults.timeout_secs") {
		val := viper.GetInt("defaults.timeout_secs")
		overrides.TimeoutSecs = &val
	}

	if viper.IsSet("defaults.operator") {
		overrides.Operator = viper.GetString("defaults.operator")
		overrides.OperatorOverride = true
	}

	if viper.IsSet("defaults.renderer") {
		overrides.Renderer = viper.GetString("defaults.renderer")
	}

	if viper.IsSet("audit.concurrency") {
		val := viper.GetInt("audit.concurrency")
		overrides.Concurrency = &val
	}

	if viper.IsSet("audit.rate") {
		val := viper.GetInt("audit.rate")
		overrides.RateLimit = &val
	}

	if viper.IsSet("audit.retry") {
		val := viper.GetInt("audit.retry")
		overrides.RetryCount = &val
	}

	if viper.IsSet("registry.dsn") {
		overrides.RegistryDSN = viper.GetString("registry.dsn")
	}

	if viper.IsSet("registry.live") {
		val := viper.GetBool("registry.live")
		overrides.RegistryLive = &val
	}

	return overrides
}

// applyConfigDefaults merges config file defaults into the runtime config when the user
// did not explicitly override the corresponding flag.
func applyConfigDefaults(cmd *cobra.Command) {
	overrides := loadDefaultOverrides()

	if overrides.OperatorOverride && overrides.Operator != "" {
		cliConfig.Defaults.Operator = overrides.Operator
		setStringFlagIfUnset(cmd.Root().PersistentFlags(), "operator", overrides.Operator)
	}

	if overrides.TimeoutSecs != nil {
		applyIntDefault(auditCmd.Flags(), "timeout", *overrides.TimeoutSecs, func(v int) {
			cliConfig.Defaults.TimeoutSecs = v
			cliConfig.Audit.TimeoutSecs = v
		})
	}

	if overrides.Renderer != "" {
		if flag := auditCmd.Flags().Lookup("renderer"); flag == nil || !flag.Changed {
			cliConfig.Defaults.Renderer = overrides.Renderer
			cliConfig.Audit.Renderer = overrides.Renderer
		}
	}

	if overrides.Concurrency != nil {
		applyIntDefault(auditCmd.Flags(), "concurrency", *overrides.Concurrency, func(v int) {
			cliConfig.Audit.Concurrency = v
		})
	}

	if overrides.RateLimit != nil {
		applyIntDefault(auditCmd.Flags(), "rate", *overrides.RateLimit, func(v int) {
			cliConfig.Audit.RateLimit = v
		})
	}

	if overrides.RetryCount != nil {
		applyIntDefault(auditCmd.Flags(), "retry", *overrides.RetryCount, func(v int) {
			cliConfig.Audit.RetryCount = v
		})
	}

	if overrides.RegistryDSN != "" {
		if flag := cmd.Flags().Lookup("registry-dsn"); flag == nil || !flag.Changed {
			cliConfig.Audit.Registry.DSN = overrides.RegistryDSN
		}
	}

	if overrides.RegistryLive != nil {
		applyBoolDefault(cmd.Flags(), "live-registry", *overrides.RegistryLive, func(v bool) {
			cliConfig.Audit.Registry.Live = v
		})
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func setStringFlagIfUnset(flags *pflag.FlagSet, name, value string) {
	if flags == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	_ = flag.Value.Set(value)
}
