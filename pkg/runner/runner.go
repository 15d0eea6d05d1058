package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Runner is the capability boundary around model-generated chart code. The
// fragment is always persisted as a plain artifact; running it is opt-in and
// happens in a subprocess confined to the run's output directory.
type Runner struct {
	config Config
	log    zerolog.Logger
}

type Config struct {
	Enabled     bool
	Interpreter string // e.g. "python3"
	WorkDir     string // run output directory; scripts live and run here
	Timeout     time.Duration
}

func NewWithConfig(config Config, log zerolog.Logger) *Runner {
	if config.Interpreter == "" {
		config.Interpreter = "python3"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &Runner{
		config: config,
		log:    log.With().Str("component", "runner").Logger(),
	}
}

func (r *Runner) Enabled() bool {
	return r.config.Enabled
}

// Persist writes the fragment into the work directory and returns its path.
func (r *Runner) Persist(code string) (string, error) {
	if err := os.MkdirAll(r.config.WorkDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(r.config.WorkDir, "chart.py")
	if err := os.WriteFile(path, []byte(code+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("failed to write chart script: %w", err)
	}
	return path, nil
}

// Execute runs the persisted script with the configured interpreter, working
// directory set to WorkDir. Failures are returned, never propagated as a
// crash; the combined output is returned either way.
func (r *Runner) Execute(ctx context.Context, scriptPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.config.Interpreter, filepath.Base(scriptPath))
	cmd.Dir = r.config.WorkDir

	out, err := cmd.CombinedOutput()
	if err != nil {
		r.log.Error().Err(err).Str("script", scriptPath).Msg("script execution failed")
		return string(out), fmt.Errorf("script execution failed: %w", err)
	}
	r.log.Info().Str("script", scriptPath).Msg("script executed")
	return string(out), nil
}
