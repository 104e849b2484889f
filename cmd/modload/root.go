package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "modload",
	Short: "Load CommonJS, ECMAScript module and TypeScript files at runtime",
	Long: `modload - Load a script module and print the value it exports.

The load strategy follows the file extension: .mjs goes through dynamic
import, .cjs through synchronous require, .ts is transpiled on the fly under
the given tsconfig project, and .js falls back to dynamic import when the
file turns out to be an ECMAScript module.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("project", "", "tsconfig file for TypeScript sources")
	rootCmd.PersistentFlags().String("cache-dir", "", "Directory for the transpile cache")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	viper.SetEnvPrefix("modload")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
	viper.BindPFlag("cache-dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(runCmd)
}
