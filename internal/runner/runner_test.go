package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func TestCmdRunnerCapturesOutput(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	var tee bytes.Buffer
	res, err := CmdRunner{}.Run(context.Background(), "sh", []string{"-c", "echo hello"}, RunOptions{Stdout: &tee})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.TrimSpace(string(res.Stdout)) != "hello" || strings.TrimSpace(tee.String()) != "hello" {
		t.Fatalf("stdout = %q tee = %q", res.Stdout, tee.String())
	}
}

func TestCmdRunnerExitError(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	_, err := CmdRunner{}.Run(context.Background(), "sh", []string{"-c", "echo first >&2; echo boom >&2; exit 3"}, RunOptions{})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.Code != 3 {
		t.Fatalf("code = %d", exitErr.Code)
	}
	if !strings.HasSuffix(exitErr.Error(), "boom") {
		t.Fatalf("message = %q", exitErr.Error())
	}
}

func TestCmdRunnerPassthroughKeepsNoCopy(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	var out bytes.Buffer
	res, err := CmdRunner{}.Run(context.Background(), "sh", []string{"-c", "echo streamed"}, RunOptions{Stdout: &out, Passthrough: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.TrimSpace(out.String()) != "streamed" {
		t.Fatalf("stdout = %q", out.String())
	}
	if len(res.Stdout) != 0 {
		t.Fatalf("expected no captured output, got %q", res.Stdout)
	}
}
