// Package separator turns a CityGML file into per-building OBJ fragments by running an
// external tool.
package separator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"cityjson-gen/internal/logger"
	"cityjson-gen/internal/mesh"
)

// DefaultCommand is the stock CityGML splitter. {input} and {output} are replaced by
// the GML path and the fragment directory.
const DefaultCommand = "python utils/CityGML2OBJs.py -i {input} -o {output} -sepC 1"

var ErrEmptyCommand = errors.New("empty separator command")

// Separator writes OBJ fragments for input into outDir and returns their paths in
// directory order.
type Separator interface {
	Separate(ctx context.Context, input, outDir string) ([]string, error)
}

// Exec runs an external command.
type Exec struct {
	Args []string
	Log  *slog.Logger
}

// NewExec splits command on whitespace. Paths with spaces must go through the
// placeholders.
func NewExec(command string, log *slog.Logger) (*Exec, error) {
	args := strings.Fields(command)
	if len(args) == 0 {
		return nil, ErrEmptyCommand
	}
	if log == nil {
		log = logger.L()
	}
	return &Exec{Args: args, Log: log}, nil
}

func (e *Exec) Separate(ctx context.Context, input, outDir string) ([]string, error) {
	if _, err := os.Stat(input); err != nil {
		return nil, fmt.Errorf("gml input: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create fragment dir: %w", err)
	}

	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		a = strings.ReplaceAll(a, "{input}", input)
		args[i] = strings.ReplaceAll(a, "{output}", outDir)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.Log.Info("separator_start", "cmd", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("separator %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	if out := strings.TrimSpace(stdout.String()); out != "" {
		e.Log.Debug("separator_output", "stdout", out)
	}

	files, err := mesh.ListObjFiles(outDir)
	if err != nil {
		return nil, err
	}
	e.Log.Info("separator_done", "fragments", len(files))
	return files, nil
}

// Static uses fragments that already exist in Dir and ignores the GML input.
type Static struct {
	Dir string
}

func (s Static) Separate(ctx context.Context, _, _ string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return mesh.ListObjFiles(s.Dir)
}
