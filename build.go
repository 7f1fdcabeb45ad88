//go:build ignore

// build.go - hilirisasi build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, api, cli, test, clean, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const module = "hilirisasi"

var (
	distDir = "dist"

	// key = directory under cmd/, value = output name
	executables = map[string]string{
		"hilirisasi":     "hilirisasi",
		"hilirisasi-api": "hilirisasi-api",
	}

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	version := flag.String("version", "", "Version stamped into the binaries (default: git describe)")
	flag.Parse()

	start := time.Now()
	v := *version
	if v == "" {
		v = gitOutput("describe", "--tags", "--always", "--dirty")
	}

	var err error
	switch *target {
	case "all":
		err = buildAll(v, *verbose)
	case "api":
		err = buildExecutable("hilirisasi-api", v, runtime.GOOS, runtime.GOARCH, *verbose)
	case "cli":
		err = buildExecutable("hilirisasi", v, runtime.GOOS, runtime.GOARCH, *verbose)
	case "test":
		err = runTests(*verbose)
	case "clean":
		err = os.RemoveAll(distDir)
	case "release":
		err = buildRelease(v, *verbose)
	default:
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(start).Round(time.Millisecond)))
}

func printInfo(msg string)    { fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg) }
func printSuccess(msg string) { fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg) }
func printError(msg string)   { fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg) }
func printWarning(msg string) { fmt.Printf("%s[WARNING]%s %s\n", colorYellow, colorReset, msg) }

func buildAll(version string, verbose bool) error {
	for name := range executables {
		if err := buildExecutable(name, version, runtime.GOOS, runtime.GOARCH, verbose); err != nil {
			return err
		}
	}
	return copyConfig(distDir)
}

// buildRelease cross-compiles every executable into dist/<os>_<arch>.
func buildRelease(version string, verbose bool) error {
	platforms := [][2]string{{"linux", "amd64"}, {"linux", "arm64"}, {"darwin", "arm64"}, {"windows", "amd64"}}
	for _, p := range platforms {
		for name := range executables {
			if err := buildExecutable(name, version, p[0], p[1], verbose); err != nil {
				return err
			}
		}
		if err := copyConfig(filepath.Join(distDir, p[0]+"_"+p[1])); err != nil {
			return err
		}
	}
	return nil
}

func buildExecutable(name, version, goos, goarch string, verbose bool) error {
	out := executables[name]
	if goos == "windows" {
		out += ".exe"
	}
	dir := distDir
	if goos != runtime.GOOS || goarch != runtime.GOARCH {
		dir = filepath.Join(distDir, goos+"_"+goarch)
	}
	printInfo(fmt.Sprintf("Building %s (%s/%s)...", name, goos, goarch))

	pkg := module + "/pkg/contracts"
	ldflags := strings.Join([]string{
		"-s -w",
		fmt.Sprintf("-X %s.Version=%s", pkg, version),
		fmt.Sprintf("-X %s.BuildTime=%s", pkg, time.Now().UTC().Format(time.RFC3339)),
		fmt.Sprintf("-X %s.GitCommit=%s", pkg, gitOutput("rev-parse", "--short", "HEAD")),
	}, " ")

	args := []string{"build", "-trimpath", "-ldflags", ldflags, "-o", filepath.Join(dir, out)}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "./cmd/"+name)

	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(), "GOOS="+goos, "GOARCH="+goarch, "CGO_ENABLED=0")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build %s: %w", name, err)
	}
	return nil
}

func runTests(verbose bool) error {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	cmd := exec.Command("go", append(args, "./...")...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func copyConfig(dir string) error {
	data, err := os.ReadFile(filepath.Join("configs", "config.yaml"))
	if err != nil {
		printWarning("configs/config.yaml not found, skipping")
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0o644)
}

func gitOutput(args ...string) string {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}
