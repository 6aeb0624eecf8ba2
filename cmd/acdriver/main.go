package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/carton-io/carton/pkg/asset"
	"github.com/carton-io/carton/pkg/compile"
	"github.com/carton-io/carton/pkg/logging"
)

const version = "0.1.0"

var (
	rootCmd     *cobra.Command
	versionFlag bool
	logLevel    string

	outputDir                string
	appIcon                  string
	launchImage              string
	platform                 string
	targetDevice             string
	minDeploymentTarget      string
	optimization             string
	compressPNGs             bool
	enableODR                bool
	enableIncrementalDistill bool
	targetName               string
	filterDeviceModel        string
	filterDeviceOSVersion    string
	partialInfoPlistPath     string
	dependencyInfoPath       string
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "acdriver",
		Short: "Compile asset catalogs",
		Long:  `Compile asset catalogs into binary archives`,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&versionFlag, "version", "V", false, "Show version information")

	compileCmd := &cobra.Command{
		Use:   "compile <catalog>...",
		Short: "Compile one or more catalogs into an archive",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCompile,
	}
	compileCmd.Flags().StringVar(&outputDir, "output", "", "Output directory (required)")
	compileCmd.Flags().StringVar(&appIcon, "app-icon", "", "App icon set to compile")
	compileCmd.Flags().StringVar(&launchImage, "launch-image", "", "Launch image to compile")
	compileCmd.Flags().StringVar(&platform, "platform", "", "Target platform identifier")
	compileCmd.Flags().StringVar(&targetDevice, "target-device", "", "Target device identifier")
	compileCmd.Flags().StringVar(&minDeploymentTarget, "minimum-deployment-target", "", "Minimum deployment target version")
	compileCmd.Flags().StringVar(&optimization, "optimization", "", "Optimization level (space, time)")
	compileCmd.Flags().BoolVar(&compressPNGs, "compress-pngs", false, "Compress pixel data")
	compileCmd.Flags().BoolVar(&enableODR, "enable-on-demand-resources", false, "Enable on-demand resources")
	compileCmd.Flags().BoolVar(&enableIncrementalDistill, "enable-incremental-distill", false, "Enable incremental distill (accepted, ignored)")
	compileCmd.Flags().StringVar(&targetName, "target-name", "", "Build target name")
	compileCmd.Flags().StringVar(&filterDeviceModel, "filter-for-device-model", "", "Device model filter")
	compileCmd.Flags().StringVar(&filterDeviceOSVersion, "filter-for-device-os-version", "", "Device OS version filter")
	compileCmd.Flags().StringVar(&partialInfoPlistPath, "output-partial-info-plist", "", "Write a partial Info.plist to this path")
	compileCmd.Flags().StringVar(&dependencyInfoPath, "export-dependency-info", "", "Write dependency info to this path")
	if err := compileCmd.MarkFlagRequired("output"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(compileCmd)
}

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		fmt.Printf("acdriver %s\n", version)
		os.Exit(0)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCompile(cmd *cobra.Command, args []string) error {
	logger := logging.NewLogger("acdriver", logging.GetLogLevel(logLevel), os.Stderr)

	opts := compile.Options{
		AppIcon:                  appIcon,
		LaunchImage:              launchImage,
		Platform:                 platform,
		TargetDevice:             targetDevice,
		MinDeploymentTarget:      minDeploymentTarget,
		Optimization:             optimization,
		TargetName:               targetName,
		FilterForDeviceModel:     filterDeviceModel,
		FilterForDeviceOSVersion: filterDeviceOSVersion,
		CompressPNGs:             compressPNGs,
		EnableOnDemandResources:  enableODR,
		EnableIncrementalDistill: enableIncrementalDistill,
	}

	var trees []*asset.Tree
	var problems []asset.Problem
	for _, path := range args {
		tree, treeProblems, err := asset.LoadWithLogger(path, logger)
		problems = append(problems, treeProblems...)
		if err != nil {
			return err
		}
		trees = append(trees, tree)
	}

	result, err := compile.CompileWithLogger(trees, opts, outputDir, logger)
	if err != nil {
		return err
	}
	problems = append(problems, result.Problems...)
	diag := logging.NewPrefixWriter("acdriver: ", os.Stderr)
	for _, p := range problems {
		fmt.Fprintln(diag, p)
	}

	if partialInfoPlistPath != "" {
		if err := compile.WritePartialInfoPlist(partialInfoPlistPath, &opts); err != nil {
			return err
		}
	}
	if dependencyInfoPath != "" {
		if err := compile.WriteDependencyInfo(dependencyInfoPath, "acdriver "+version, result); err != nil {
			return err
		}
	}
	for _, p := range problems {
		if p.Severity == asset.SeverityError {
			return fmt.Errorf("compile finished with errors")
		}
	}
	return nil
}
