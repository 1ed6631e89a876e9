package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-matcher",
	Short: "Detect faces in photos and match them against a reference database",
	Long: `Face Matcher finds every face in a photo, crops it, and looks each face up
in a folder of reference images, one subfolder per person.

Detection and recognition run on a pluggable engine: a DeepFace REST service
by default, or dlib / OpenCV when built with the matching build tags.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("engine", "", "Face engine to use (default from FACE_ENGINE, else deepface)")
	rootCmd.PersistentFlags().String("deepface-url", "", "DeepFace service URL (default from DEEPFACE_URL)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
