package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mattstark/corevm/pkg/methodarea"
	"github.com/mattstark/corevm/pkg/vm"
)

var runCmd = &cobra.Command{
	Use:   "run <binary-class-name>",
	Short: "Load, link, initialize, and execute the named class's main method.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		className := args[0]
		log.WithFields(log.Fields{"class": className, "classpath": classpath}).Debug("starting run")

		loader := methodarea.NewDirClassLoader(classpath)
		engine := vm.NewEngine(loader)
		return engine.Run(className)
	},
}
