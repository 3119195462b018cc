package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"

	md2pdf "github.com/jmaupetit/md2pdf"
	"github.com/jmaupetit/md2pdf/internal/fileutil"
)

const (
	flowCheckTimeout = 10 * time.Second
	flowCheckHeader  = `doctor <span class="pageNumber"></span>/<span class="totalPages"></span>`
)

// Report sections, in print order.
const (
	sectionFlow   = "Flow engine"
	sectionChrome = "Chrome engine"
	sectionConfig = "Configuration"
	sectionHost   = "Host"
)

var doctorSections = []string{sectionFlow, sectionChrome, sectionConfig, sectionHost}

// severity grades a single doctor finding.
type severity string

const (
	severityOK    severity = "ok"
	severityWarn  severity = "warn"
	severityError severity = "error"
)

func (s severity) tag() string {
	switch s {
	case severityWarn:
		return "[WARN]"
	case severityError:
		return "[ERROR]"
	default:
		return "[OK]"
	}
}

type finding struct {
	Section  string   `json:"section"`
	Severity severity `json:"severity"`
	Message  string   `json:"message"`
}

// doctorResult is the doctor report. Findings carry the human-readable
// lines; the typed fields are for --json consumers.
type doctorResult struct {
	Status   string     `json:"status"` // "ready", "warnings", "errors"
	Flow     flowInfo   `json:"flow"`
	Chrome   chromeInfo `json:"chrome"`
	Host     hostInfo   `json:"host"`
	Findings []finding  `json:"findings"`
}

type flowInfo struct {
	OK       bool   `json:"ok"`
	Pages    int    `json:"pages,omitempty"`
	Bytes    int    `json:"bytes,omitempty"`
	Duration string `json:"duration,omitempty"`
}

type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

type hostInfo struct {
	Platform  string `json:"platform"`
	Container string `json:"container,omitempty"`
	CI        bool   `json:"ci"`
	TempDir   string `json:"temp_dir"`
}

func (r *doctorResult) add(section string, sev severity, format string, args ...any) {
	r.Findings = append(r.Findings, finding{Section: section, Severity: sev, Message: fmt.Sprintf(format, args...)})
}

func (r *doctorResult) has(sev severity) bool {
	for _, f := range r.Findings {
		if f.Severity == sev {
			return true
		}
	}
	return false
}

// runDoctorCmd executes the doctor command. It exits non-zero only when a
// finding is an error; a missing browser is a warning.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) int {
	jsonOutput := false
	for _, arg := range args {
		switch arg {
		case "--json":
			jsonOutput = true
		case "-h", "--help":
			printDoctorUsage(env.Stdout)
			return ExitSuccess
		default:
			fmt.Fprintf(env.Stderr, "unknown doctor flag %q\n", arg)
			printDoctorUsage(env.Stderr)
			return ExitUsage
		}
	}

	result := runDoctor(ctx, env)

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

func runDoctor(ctx context.Context, env *Environment) *doctorResult {
	result := &doctorResult{}

	checkFlow(ctx, result, env)
	checkChrome(result, env.Getenv)
	checkConfig(result, env.Getenv)
	checkHost(result, env.Getenv)

	switch {
	case result.has(severityError):
		result.Status = "errors"
	case result.has(severityWarn):
		result.Status = "warnings"
	default:
		result.Status = "ready"
	}
	return result
}

// checkFlow converts a one-page document with a numbered header. A failure
// here means no conversion can work.
func checkFlow(ctx context.Context, result *doctorResult, env *Environment) {
	ctx, cancel := context.WithTimeout(ctx, flowCheckTimeout)
	defer cancel()

	start := env.Now()
	conv, err := md2pdf.NewConverter(md2pdf.WithEngine(md2pdf.EngineFlow))
	if err != nil {
		result.add(sectionFlow, severityError, "Cannot start: %v", err)
		return
	}
	defer func() { _ = conv.Close() }()

	res, err := conv.Convert(ctx, md2pdf.Input{
		Markdown: "# md2pdf doctor\n\nSample paragraph.",
		Header:   flowCheckHeader,
	})
	if err != nil {
		result.add(sectionFlow, severityError, "Sample conversion failed: %v", err)
		return
	}

	result.Flow = flowInfo{
		OK:       true,
		Pages:    res.Pages,
		Bytes:    len(res.PDF),
		Duration: env.Now().Sub(start).Round(time.Millisecond).String(),
	}
	result.add(sectionFlow, severityOK, "Sample: %d page(s), %d bytes in %s",
		result.Flow.Pages, result.Flow.Bytes, result.Flow.Duration)
}

// checkChrome locates the browser used by --engine chrome.
func checkChrome(result *doctorResult, getenv func(string) string) {
	path := getenv("ROD_BROWSER_BIN")
	if path == "" {
		var found bool
		if path, found = launcher.LookPath(); !found {
			result.add(sectionChrome, severityWarn,
				"Chrome/Chromium not found: --engine chrome unavailable. Install Chrome or set ROD_BROWSER_BIN")
			return
		}
	}
	if !fileutil.FileExists(path) {
		result.add(sectionChrome, severityWarn, "No browser at %s: --engine chrome unavailable", path)
		return
	}

	result.Chrome = chromeInfo{Found: true, Path: path, Sandbox: getenv("ROD_NO_SANDBOX") != "1"}
	result.add(sectionChrome, severityOK, "Found at %s", path)

	out, err := exec.Command(path, "--version").Output() // #nosec G204 -- detected browser path
	if err != nil {
		result.add(sectionChrome, severityWarn, "Could not get browser version: %v", err)
	} else {
		result.Chrome.Version = strings.TrimSpace(string(out))
		result.add(sectionChrome, severityOK, "Version: %s", result.Chrome.Version)
	}

	if result.Chrome.Sandbox {
		result.add(sectionChrome, severityOK, "Sandbox: enabled")
	} else {
		result.add(sectionChrome, severityOK, "Sandbox: disabled (ROD_NO_SANDBOX=1)")
	}
}

// checkConfig loads the configuration named by MD2PDF_CONFIG, if any, and
// validates the MD2PDF_* variables the convert command would read.
func checkConfig(result *doctorResult, getenv func(string) string) {
	envCfg, err := loadEnvConfig(getenv)
	if err != nil {
		result.add(sectionConfig, severityError, "%v", err)
		return
	}
	if envCfg.ConfigPath == "" {
		result.add(sectionConfig, severityOK, "No config selected (MD2PDF_CONFIG unset), using defaults")
		return
	}
	cfg, err := loadConfig("", envCfg.ConfigPath)
	if err != nil {
		result.add(sectionConfig, severityError, "MD2PDF_CONFIG=%s: %v", envCfg.ConfigPath, err)
		return
	}
	result.add(sectionConfig, severityOK, "MD2PDF_CONFIG=%s loads (engine %q)", envCfg.ConfigPath, cfg.Engine.Name)
}

// checkHost reports container and CI detection, and temp directory access
// needed by the chrome engine.
func checkHost(result *doctorResult, getenv func(string) string) {
	result.Host.Platform = runtime.GOOS + "/" + runtime.GOARCH
	result.add(sectionHost, severityOK, "Platform: %s", result.Host.Platform)

	if ok, hint := isContainer(getenv); ok {
		result.Host.Container = hint
		result.add(sectionHost, severityOK, "Container: detected (%s)", hint)
	}
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if getenv(v) != "" {
			result.Host.CI = true
			result.add(sectionHost, severityOK, "CI: detected (%s)", v)
			break
		}
	}
	if result.Chrome.Sandbox && (result.Host.Container != "" || result.Host.CI) {
		result.add(sectionHost, severityWarn, "Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}

	result.Host.TempDir = os.TempDir()
	_, cleanup, err := fileutil.WriteTempFile("md2pdf doctor", "html")
	if err != nil {
		result.add(sectionHost, severityError, "Temp directory %s not writable: %v", result.Host.TempDir, err)
		return
	}
	cleanup()
	result.add(sectionHost, severityOK, "Temp directory: writable")
}

// isContainer reports whether the process runs in a container, and which
// signal gave it away.
func isContainer(getenv func(string) string) (bool, string) {
	if getenv("MD2PDF_CONTAINER") == "1" {
		return true, "MD2PDF_CONTAINER=1"
	}
	if fileutil.FileExists("/.dockerenv") {
		return true, "/.dockerenv"
	}
	// podman, systemd-nspawn
	if v := getenv("container"); v != "" {
		return true, "container=" + v
	}
	if getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "md2pdf doctor")

	for _, section := range doctorSections {
		fmt.Fprintf(w, "\n%s\n", section)
		printed := false
		for _, f := range r.Findings {
			if f.Section == section {
				fmt.Fprintf(w, "  %s %s\n", f.Severity.tag(), f.Message)
				printed = true
			}
		}
		if !printed {
			fmt.Fprintln(w, "  (nothing to report)")
		}
	}

	fmt.Fprintln(w)
	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to convert")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	default:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
