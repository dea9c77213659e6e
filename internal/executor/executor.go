// Package executor adapts the Claude CLI to the engine's executor contract.
// The engine hands it free-text instructions and treats whatever comes back
// as a display string; all tool-calling happens inside the CLI.
package executor

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Claude shells out to the claude CLI in print mode
type Claude struct {
	// workingDir is where the CLI runs; "." by default.
	workingDir string
}

// New creates a Claude executor rooted at workingDir
func New(workingDir string) *Claude {
	if workingDir == "" {
		workingDir = "."
	}
	return &Claude{workingDir: workingDir}
}

// Execute runs the instructions through the Claude CLI and returns its
// output. The call blocks until the CLI exits; the engine imposes no timeout
// of its own, so callers bound the call through ctx if they need to.
func (c *Claude) Execute(ctx context.Context, instructions string) (string, error) {
	// -p enables print mode (non-interactive), prompt is positional arg
	// --dangerously-skip-permissions bypasses permission prompts for autonomous runs
	cmd := exec.CommandContext(ctx, "claude", "-p", "--dangerously-skip-permissions", instructions)
	cmd.Dir = c.workingDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start claude: %w", err)
	}

	// Collect stderr in the background so a chatty CLI cannot deadlock the pipes.
	stderrCh := make(chan string, 1)
	go func() {
		var b strings.Builder
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			b.WriteString(scanner.Text())
			b.WriteString("\n")
		}
		stderrCh <- b.String()
	}()

	var outputBuilder strings.Builder
	scanner := bufio.NewScanner(stdout)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		outputBuilder.WriteString(scanner.Text())
		outputBuilder.WriteString("\n")
	}

	stderrOutput := <-stderrCh
	if err := cmd.Wait(); err != nil {
		if stderrOutput != "" {
			return outputBuilder.String(), fmt.Errorf("claude failed: %w: %s", err, strings.TrimSpace(stderrOutput))
		}
		return outputBuilder.String(), fmt.Errorf("claude failed: %w", err)
	}

	return outputBuilder.String(), nil
}
