package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/relationsone/modload"
	"github.com/relationsone/modload/compiler"
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Load a script module and print its exported value as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	log.SetHandler(cli.New(os.Stderr))
	if viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}

	modulePath, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	filesystem := afero.NewOsFs()

	loader, err := modload.NewScriptLoader(filesystem, filepath.Dir(modulePath), viper.GetString("cache-dir"))
	if err != nil {
		return err
	}

	var project *compiler.Project
	if projectFile := viper.GetString("project"); projectFile != "" {
		project, err = compiler.LoadProject(filesystem, projectFile)
		if err != nil {
			return err
		}
	}

	value, err := loader.Load(cmd.Context(), modulePath, project)
	if err != nil {
		return err
	}

	var exported interface{}
	if value != nil {
		exported = value.Export()
	}

	encoded, err := json.MarshalIndent(exported, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}
