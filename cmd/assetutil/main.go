package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/carton-io/carton/pkg/asset/slot"
	"github.com/carton-io/carton/pkg/edit"
	"github.com/carton-io/carton/pkg/logging"
)

const version = "0.1.0"

var (
	rootCmd     *cobra.Command
	versionFlag bool
	logLevel    string

	idiomName  string
	scale      uint
	infoFlag   bool
	verifyFlag bool
	outputPath string
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "assetutil <archive>",
		Short: "Inspect and thin compiled asset archives",
		Long:  `Report archive contents as JSON or write a thinned copy`,
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
	rootCmd.Flags().StringVar(&idiomName, "idiom", "", "Keep only renditions for this idiom")
	rootCmd.Flags().UintVar(&scale, "scale", 0, "Keep only renditions at this scale")
	rootCmd.Flags().BoolVarP(&infoFlag, "info", "I", false, "Emit archive contents as JSON")
	rootCmd.Flags().BoolVar(&verifyFlag, "verify", false, "Check archive integrity")
	rootCmd.Flags().StringVar(&outputPath, "output", "", "Write a thinned archive to this path")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.Flags().BoolVarP(&versionFlag, "version", "V", false, "Show version information")
}

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		fmt.Printf("assetutil %s\n", version)
		os.Exit(0)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := logging.NewLogger("assetutil", logging.GetLogLevel(logLevel), os.Stderr)
	inputPath := args[0]

	var idiom slot.Idiom
	idiomSet := false
	if idiomName != "" {
		parsed, ok := slot.ParseIdiom(idiomName)
		if !ok {
			return fmt.Errorf("unknown idiom %q", idiomName)
		}
		idiom = parsed
		idiomSet = true
	}
	if scale > 0xffff {
		return fmt.Errorf("invalid scale %d", scale)
	}

	if verifyFlag {
		result, err := edit.VerifyWithLogger(inputPath, logger)
		if err != nil {
			return err
		}
		for _, finding := range result.Findings {
			fmt.Fprintln(os.Stderr, finding)
		}
		if !result.OK() {
			return fmt.Errorf("verification failed with %d findings", len(result.Findings))
		}
		fmt.Printf("verified %d facets, %d renditions\n", result.Facets, result.Renditions)
		return nil
	}

	if infoFlag {
		entries, err := edit.InfoWithLogger(inputPath, edit.InfoOptions{
			Idiom:    idiom,
			IdiomSet: idiomSet,
			Scale:    uint16(scale),
		}, logger)
		if err != nil {
			return err
		}
		out := json.NewEncoder(os.Stdout)
		out.SetIndent("", "  ")
		return out.Encode(entries)
	}

	if outputPath == "" {
		return fmt.Errorf("either --info or --output is required")
	}
	result, err := edit.ThinWithLogger(inputPath, outputPath, edit.ThinOptions{
		KeepIdiom:    idiom,
		KeepIdiomSet: idiomSet,
		KeepScale:    uint16(scale),
	}, logger)
	if err != nil {
		return err
	}
	fmt.Printf("kept %d facets, %d renditions\n", result.FacetsKept, result.RenditionsKept)
	return nil
}
