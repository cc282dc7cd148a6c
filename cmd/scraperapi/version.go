package main

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Raj-Taware/credit-scrape/internal/config"
)

// Version information set at build time via ldflags.
var (
	version = ""
	commit  = ""
	date    = ""
)

// getVersion returns version string.
// Priority: ldflags > debug.ReadBuildInfo > "(devel)"
func getVersion() string {
	if version != "" {
		return version
	}
	if buildInfo, ok := debug.ReadBuildInfo(); ok && buildInfo.Main.Version != "" {
		return buildInfo.Main.Version
	}
	return "(devel)"
}

// buildSetting returns a setting recorded by the go toolchain, or "".
func buildSetting(key string) string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range buildInfo.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

// getCommit returns the short commit hash.
// Priority: ldflags > vcs.revision > "unknown"
func getCommit() string {
	if commit != "" {
		return commit
	}
	if rev := buildSetting("vcs.revision"); rev != "" {
		if len(rev) > 7 {
			return rev[:7]
		}
		return rev
	}
	return "unknown"
}

// getDate returns build date.
// Priority: ldflags > vcs.time > "unknown"
func getDate() string {
	if date != "" {
		return date
	}
	if t := buildSetting("vcs.time"); t != "" {
		return t
	}
	return "unknown"
}

// versionInfo is the build and default-stack description printed by the
// version command.
type versionInfo struct {
	Version     string   `json:"version"`
	Commit      string   `json:"commit"`
	Built       string   `json:"built"`
	GoVersion   string   `json:"go_version"`
	Engine      string   `json:"engine"`
	GeminiModel string   `json:"gemini_model"`
	Banks       []string `json:"banks"`
}

func currentVersionInfo() versionInfo {
	return versionInfo{
		Version:     getVersion(),
		Commit:      getCommit(),
		Built:       getDate(),
		GoVersion:   runtime.Version(),
		Engine:      config.EnginePlaywright,
		GeminiModel: config.DefaultGeminiModel,
		Banks:       config.BuiltinOrder(),
	}
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the version, commit hash and build date of scraperapi, with the
default page engine, Gemini model and built-in banks.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			return writeVersion(cmd.OutOrStdout(), currentVersionInfo(), asJSON)
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Output version information as JSON")
	return cmd
}

func writeVersion(w io.Writer, info versionInfo, asJSON bool) error {
	if asJSON {
		return writeIndentedJSON(w, info)
	}
	fmt.Fprintf(w, "scraperapi version %s\n", info.Version)
	fmt.Fprintf(w, "  commit: %s\n", info.Commit)
	fmt.Fprintf(w, "  built:  %s\n", info.Built)
	fmt.Fprintf(w, "  go:     %s\n", info.GoVersion)
	fmt.Fprintf(w, "  engine: %s (default)\n", info.Engine)
	fmt.Fprintf(w, "  model:  %s (default)\n", info.GeminiModel)
	fmt.Fprintf(w, "  banks:  %s\n", strings.Join(info.Banks, ", "))
	return nil
}
