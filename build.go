//go:build ignore

// build.go - turnstilecli build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, processor, web, test, clean

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

const (
	module  = "turnstilecli"
	distDir = "dist"
)

// executables maps a cmd/ directory to its output name
var executables = map[string]string{
	"processor": "turnstile-processor",
	"web":       "turnstile-web",
}

var (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorBlue  = "\033[34m"
	colorCyan  = "\033[36m"
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	fmt.Println(colorCyan + "turnstilecli build" + colorReset)
	startTime := time.Now()

	var err error
	switch *target {
	case "all":
		for name := range executables {
			if err = buildExecutable(name, *verbose); err != nil {
				break
			}
		}
	case "processor", "web":
		err = buildExecutable(*target, *verbose)
	case "test":
		err = run(*verbose, "go", "test", "./...")
	case "clean":
		err = os.RemoveAll(distDir)
	default:
		fmt.Println("Targets: all, processor, web, test, clean")
		os.Exit(2)
	}
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func buildExecutable(name string, verbose bool) error {
	out := executables[name]
	if runtime.GOOS == "windows" {
		out += ".exe"
	}
	if err := os.MkdirAll(distDir, 0755); err != nil {
		return err
	}

	printInfo(fmt.Sprintf("Building %s...", out))
	return run(verbose, "go", "build",
		"-ldflags", ldflags(),
		"-o", filepath.Join(distDir, out),
		"./cmd/"+name)
}

// ldflags stamps the build time and commit into the version contract
func ldflags() string {
	commit := "unknown"
	if b, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output(); err == nil {
		commit = strings.TrimSpace(string(b))
	}
	pkg := module + "/pkg/contracts"
	return fmt.Sprintf("-s -w -X %s.BuildTime=%s -X %s.GitCommit=%s",
		pkg, time.Now().UTC().Format(time.RFC3339), pkg, commit)
}

func run(verbose bool, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if verbose {
		fmt.Println(name, strings.Join(args, " "))
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}
