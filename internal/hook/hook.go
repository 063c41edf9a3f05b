package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maxvaer/cmsid/internal/scanner"
)

// Timeout bounds a single hook invocation.
const Timeout = 30 * time.Second

// Runner executes a shell command for each displayed scan result.
type Runner struct {
	cmd string
	log logrus.FieldLogger
}

// NewRunner creates a hook runner. cmd is the shell command to execute.
func NewRunner(cmd string, log logrus.FieldLogger) *Runner {
	return &Runner{cmd: cmd, log: log}
}

// Expand replaces the {url}, {cms}, {accessible}, {identified} and
// {duration} placeholders in the command.
func (r *Runner) Expand(result *scanner.Result) string {
	return strings.NewReplacer(
		"{url}", result.URL,
		"{cms}", result.CMS,
		"{accessible}", strconv.FormatBool(result.Accessible),
		"{identified}", strconv.FormatBool(result.Identified),
		"{duration}", strconv.FormatFloat(result.Seconds(), 'f', 2, 64),
	).Replace(r.cmd)
}

// Run executes the hook command with the result as JSON on stdin. Errors
// are logged but do not halt the scan.
func (r *Runner) Run(ctx context.Context, result *scanner.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("hook: marshal result: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	shell, args := shellCommand()
	cmd := exec.CommandContext(ctx, shell, append(args, r.Expand(result))...)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stderr = os.Stderr

	output, err := cmd.Output()
	log := r.log.WithField("target", result.URL)
	if err != nil {
		log.WithError(err).Warn("on-result hook failed")
		return fmt.Errorf("hook: %w", err)
	}
	if len(output) > 0 {
		log.Infof("[hook] %s", bytes.TrimRight(output, "\n"))
	}
	return nil
}

func shellCommand() (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C"}
	}
	return "sh", []string{"-c"}
}
