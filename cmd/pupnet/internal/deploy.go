package internal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/goplus/pupnet/internal/builder"
	"github.com/goplus/pupnet/internal/capability"
	"github.com/goplus/pupnet/internal/config"
	"github.com/goplus/pupnet/internal/deploy"
	"github.com/goplus/pupnet/internal/host"
)

var errAborted = errors.New("aborted by user")

var (
	deployKind          string
	deployRuntime       string
	deployFramework     string
	deployConfig        string
	deployOutputDir     string
	deployOutputName    string
	deployAppVersion    string
	deployPublishConfig string
	deployProperties    []string
	deploySignID        string
	deployAppleID       string
	deployTeamID        string
	deployAppPassword   string
	deploySkipPrompts   bool
	deploySkipPublish   bool
	deployClean         bool
	deployVerbose       bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy [config]",
	Short: "Publish the application and build a package",
	Long: `Deploy publishes the application described by the configuration file
(pupnet.yaml by default) and packages the result in the requested format.

Signing and notarization credentials may also be given through the
PUPNET_SIGN_ID, PUPNET_APPLE_ID, PUPNET_TEAM_ID and PUPNET_APP_PASSWORD
environment variables.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDeploy,
}

func init() {
	f := deployCmd.Flags()
	f.StringVarP(&deployKind, "kind", "k", "", "Package kind: "+kindList())
	f.StringVarP(&deployRuntime, "runtime", "r", "", "Target runtime identifier, e.g. linux-x64 (default: host)")
	f.StringVar(&deployFramework, "framework", string(deploy.Modern), "Target framework: net or netfx")
	f.StringVarP(&deployConfig, "config", "c", "", "Configuration file (default "+config.DefaultFile+")")
	f.StringVarP(&deployOutputDir, "output-dir", "o", "", "Output directory (default: configured output_directory)")
	f.StringVar(&deployOutputName, "output-name", "", "Output file name (default: derived from name, version and target)")
	f.StringVar(&deployAppVersion, "app-version", "", `Override the configured version, e.g. "1.2.3[4]"`)
	f.StringVar(&deployPublishConfig, "publish-config", "Release", "Publish configuration")
	f.StringArrayVarP(&deployProperties, "property", "p", nil, "Extra publish property name=value (repeatable)")
	f.StringVar(&deploySignID, "sign-id", "", "Code signing identity")
	f.StringVar(&deployAppleID, "apple-id", "", "Apple account used for notarization")
	f.StringVar(&deployTeamID, "team-id", "", "Apple developer team identifier")
	f.StringVar(&deployAppPassword, "app-password", "", "App-specific password for notarization")
	f.BoolVarP(&deploySkipPrompts, "skip-prompts", "y", false, "Do not ask for confirmation")
	f.BoolVar(&deploySkipPublish, "skip-publish", false, "Reuse binaries already present in the publish directory")
	f.BoolVar(&deployClean, "clean", false, "Remove the working directory after a successful build")
	f.BoolVarP(&deployVerbose, "verbose", "v", false, "Enable verbose output, including tool output")
	deployCmd.MarkFlagRequired("kind")
	rootCmd.AddCommand(deployCmd)
}

func kindList() string {
	names := make([]string, 0, len(deploy.Kinds()))
	for _, k := range deploy.Kinds() {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}

// flagOrEnv returns the flag value, or the environment variable when the
// flag is empty.
func flagOrEnv(value, env string) string {
	if value != "" {
		return value
	}
	return os.Getenv(env)
}

// newRequest builds the request from the parsed flags.
func newRequest(hostOS deploy.OS) (deploy.Request, error) {
	kind, err := deploy.ParseKind(deployKind)
	if err != nil {
		return deploy.Request{}, err
	}
	rt := deploy.DefaultRuntime(hostOS, runtime.GOARCH)
	if deployRuntime != "" {
		if rt, err = deploy.ParseRuntime(deployRuntime); err != nil {
			return deploy.Request{}, err
		}
	}
	fw, err := deploy.ParseFramework(deployFramework)
	if err != nil {
		return deploy.Request{}, err
	}
	outputDir := deployOutputDir
	if outputDir != "" {
		if outputDir, err = filepath.Abs(outputDir); err != nil {
			return deploy.Request{}, fmt.Errorf("failed to resolve output directory: %w", err)
		}
	}
	return deploy.Request{
		Kind:          kind,
		Runtime:       rt,
		Framework:     fw,
		PublishConfig: deployPublishConfig,
		Properties:    deployProperties,
		AppVersion:    deployAppVersion,
		OutputDir:     outputDir,
		OutputName:    deployOutputName,
		Credentials: deploy.Credentials{
			SigningIdentity: flagOrEnv(deploySignID, "PUPNET_SIGN_ID"),
			AppleID:         flagOrEnv(deployAppleID, "PUPNET_APPLE_ID"),
			TeamID:          flagOrEnv(deployTeamID, "PUPNET_TEAM_ID"),
			AppPassword:     flagOrEnv(deployAppPassword, "PUPNET_APP_PASSWORD"),
		},
		SkipPrompts: deploySkipPrompts,
		SkipPublish: deploySkipPublish,
		Clean:       deployClean,
		Verbose:     deployVerbose,
	}, nil
}

func runDeploy(cmd *cobra.Command, args []string) error {
	setupLogger(deployVerbose)

	path := deployConfig
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		path = config.DefaultFile
	}
	app, err := config.Load(path)
	if err != nil {
		return err
	}

	h := host.New()
	req, err := newRequest(h.OS())
	if err != nil {
		return err
	}
	if err := capability.Check(req, h.OS()); err != nil {
		return err
	}

	b, err := builder.New(req, app, builder.Deps{Host: h})
	if err != nil {
		return err
	}
	if err := b.Validate(); err != nil {
		return err
	}

	if !req.SkipPrompts {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), summary(app, req, b))
		if err != nil {
			return err
		}
		if !ok {
			return errAborted
		}
	}

	if err := b.Build(cmd.Context()); err != nil {
		color.Info.Printf("working directory kept for inspection: %s\n", b.Context().Root)
		return err
	}
	if req.Clean {
		if err := b.Clear(); err != nil {
			return err
		}
	}
	color.Success.Printf("created %s\n", b.OutputPath())
	return nil
}

// summary describes the build about to run.
func summary(app *config.App, req deploy.Request, b builder.Builder) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Application: %s (%s)\n", app.AppFriendlyName, app.AppID)
	fmt.Fprintf(&sb, "Version:     %s\n", app.AppVersionRelease)
	if req.AppVersion != "" {
		fmt.Fprintf(&sb, "             overridden by %s\n", req.AppVersion)
	}
	fmt.Fprintf(&sb, "Package:     %s for %s (%s)\n", req.Kind, req.Runtime, req.Framework)
	fmt.Fprintf(&sb, "Working dir: %s\n", b.Context().Root)
	fmt.Fprintf(&sb, "Output:      %s\n", b.OutputPath())
	fmt.Fprintf(&sb, "Signing:     %s\n", yesNo(req.Credentials.CanSign()))
	fmt.Fprintf(&sb, "Notarize:    %s\n", yesNo(req.Credentials.CanNotarize()))
	return sb.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// confirm shows the summary and reads a yes/no answer. An empty answer
// means no.
func confirm(in io.Reader, out io.Writer, text string) (bool, error) {
	fmt.Fprint(out, text)
	fmt.Fprint(out, "Continue? [y/N] ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
