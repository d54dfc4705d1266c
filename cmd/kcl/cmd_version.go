package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped at build time in real releases; "dev" covers local
// builds, matching the teacher's own untagged-build convention.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the compiler version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("kcl " + version)
		return nil
	},
}
