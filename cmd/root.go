package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string
var logger *zap.SugaredLogger
var zapLogger *zap.Logger
var operator string
var dataDir string
var debugMode bool

var rootCmd = &cobra.Command{
	Use:   "pdnaudit",
	Short: "Audit websites for compliance with the Russian personal data law (152-ФЗ)",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init config
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath("$HOME")
			viper.AddConfigPath(".")
			viper.SetConfigName(".pdnaudit")
			viper.SetConfigType("yaml")
		}

		_ = viper.ReadInConfig()
		applyConfigDefaults(cmd)

		if dataDir == "" {
			dataDir = viper.GetString("data_dir")
		}
		if dataDir == "" {
			dir, err := getDataDir()
			if err != nil {
				return fmt.Errorf("failed to locate data directory: %w", err)
			}
			dataDir = dir
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %s", err.Error())
		}
		if abs, err := filepath.Abs(dataDir); err == nil {
			dataDir = abs
		}

		// init logger
		var l *zap.Logger
		if debugMode {
			l, _ = zap.NewDevelopment()
		} else {
			l, _ = zap.NewProduction()
		}
		zapLogger = l
		logger = l.Sugar()

		// ensure operator is set (via flag or env default)
		if operator == "" {
			if env := os.Getenv("USER"); env != "" {
				operator = env
			} else if env := os.Getenv("LOGNAME"); env != "" {
				operator = env
			}
		}

		logger.Debugf("operator=%s data_dir=%s", operator, dataDir)

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// config file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pdnaudit.yaml)")

	// operator persistent flag (default from USER env)
	defaultOperator := os.Getenv("USER")

	rootCmd.PersistentFlags().StringVarP(&operator, "operator", "o", defaultOperator, "operator name recorded in reports (or set via USER env)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for reports, site lists and extra rules")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "verbose development logging")

	// add subcommands
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(whoisCmd)
	rootCmd.AddCommand(innCmd)
	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(checksCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
