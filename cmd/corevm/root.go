package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	classpath []string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "corevm",
	Short: "A minimal JVM class-file decoder and bytecode interpreter.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		log.SetLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringArrayVar(&classpath, "classpath", nil, "directory to search for classes (repeatable)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: trace, debug, info, warn, error")
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(runCmd)
}
