//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var (
	binDir  = "bin"
	appName = "pharmafront"
)

var Default = Build

// Build compiles the front end and the mock backend.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return err
	}
	env := map[string]string{"CGO_ENABLED": "0"}
	targets := map[string]string{
		appName:       "./cmd",
		"mockbackend": "./cmd/mockbackend",
	}
	for name, pkg := range targets {
		out := filepath.Join(binDir, name+exeSuffix())
		fmt.Println("Building:", out)
		if err := sh.RunWithV(env, "go", "build", "-trimpath", "-o", out, pkg); err != nil {
			return err
		}
	}
	return nil
}

func Test() error {
	fmt.Println("Testing...")
	return sh.RunV("go", "test", "./...", "-count=1")
}

func Lint() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	if _, err := exec.LookPath("golangci-lint"); err != nil {
		fmt.Println("golangci-lint not found, go vet only")
		return nil
	}
	return sh.RunV("golangci-lint", "run", "./...")
}

// Swag regenerates docs/ from the handler annotations.
func Swag() error {
	if _, err := exec.LookPath("swag"); err != nil {
		return fmt.Errorf("swag not found. Install with: go install github.com/swaggo/swag/cmd/swag@latest")
	}
	return sh.RunV("swag", "init", "-g", "cmd/main.go", "-o", "docs", "--parseInternal")
}

// Dev runs the mock backend and the front end together.
func Dev() error {
	mg.Deps(Build)
	mock := exec.Command(filepath.Join(binDir, "mockbackend"+exeSuffix()))
	mock.Stdout, mock.Stderr = os.Stdout, os.Stderr
	if err := mock.Start(); err != nil {
		return err
	}
	defer func() { _ = mock.Process.Kill() }()
	return sh.RunWithV(map[string]string{"BACKEND_URL": "http://localhost:8000"}, filepath.Join(binDir, appName+exeSuffix()))
}

func Tidy() error {
	return sh.RunV("go", "mod", "tidy")
}

func exeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
