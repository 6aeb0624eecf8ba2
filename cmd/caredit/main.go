package main

import (
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/carton-io/carton/pkg/edit"
	"github.com/carton-io/carton/pkg/logging"
)

const version = "0.1.0"

var (
	rootCmd     *cobra.Command
	versionFlag bool
	logLevel    string

	inputPath    string
	outputPath   string
	removeAssets []string
	removeScales []uint
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "caredit",
		Short: "Thin compiled asset archives",
		Long:  `Remove assets and scales from compiled asset archives without re-encoding`,
		RunE:  runThin,
	}
	rootCmd.Flags().StringVar(&inputPath, "input", "", "Input archive (required)")
	rootCmd.Flags().StringVar(&outputPath, "output", "", "Output archive (required)")
	rootCmd.Flags().StringArrayVar(&removeAssets, "remove-asset", nil, "Drop facets matching this regular expression (repeatable)")
	rootCmd.Flags().UintSliceVar(&removeScales, "remove-scale", nil, "Drop renditions at this scale unless they are a facet's last (repeatable)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.Flags().BoolVarP(&versionFlag, "version", "V", false, "Show version information")
	if err := rootCmd.MarkFlagRequired("input"); err != nil {
		panic(err)
	}
	if err := rootCmd.MarkFlagRequired("output"); err != nil {
		panic(err)
	}
}

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		fmt.Printf("caredit %s\n", version)
		os.Exit(0)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runThin(cmd *cobra.Command, args []string) error {
	logger := logging.NewLogger("caredit", logging.GetLogLevel(logLevel), os.Stderr)

	opts := edit.ThinOptions{}
	for _, scale := range removeScales {
		if scale < 1 || scale > 0xffff {
			return fmt.Errorf("invalid --remove-scale %d", scale)
		}
		opts.RemoveScales = append(opts.RemoveScales, uint16(scale))
	}
	for _, pattern := range removeAssets {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid --remove-asset pattern %q: %w", pattern, err)
		}
		opts.RemoveAssets = append(opts.RemoveAssets, re)
	}

	result, err := edit.ThinWithLogger(inputPath, outputPath, opts, logger)
	if err != nil {
		return err
	}
	fmt.Printf("kept %d facets, %d renditions (removed %d facets, %d renditions)\n",
		result.FacetsKept, result.RenditionsKept,
		result.FacetsRemoved, result.RenditionsRemoved)
	return nil
}
