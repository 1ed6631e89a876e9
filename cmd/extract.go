package cmd

import (
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <image>",
	Short: "Detect faces in an image and save the crops without matching",
	Long: `Detect every face in an image and save each one as face_<n>.jpg in the
output folder. The reference database is not consulted.

Examples:
  face-matcher extract group.jpg --output crops/`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	addMatchFlags(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	return runPipeline(cmd, args[0], false)
}
