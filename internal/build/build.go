// Package build compiles transform script templates into deployable
// artifacts and pushes them to the pipeline engine.
package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pipecheck/pipecheck"
)

// IdentityTransform is the template that re-emits every input record
// unchanged.
const IdentityTransform = "identity_transform"

// Tool builds script artifacts inside a working directory. Each script gets
// its own folder keyed by the script's unique ID, so concurrent builds of
// different scripts never collide.
type Tool struct {
	workDir     string
	templateDir string
	command     []string
	log         *slog.Logger
}

// NewTool creates a build tool. templateDir is the repository of named
// script templates; command, if non-empty, is executed inside the script's
// build folder (e.g. ["npm", "run", "build"]).
func NewTool(workDir, templateDir string, command []string, log *slog.Logger) *Tool {
	return &Tool{
		workDir:     workDir,
		templateDir: templateDir,
		command:     command,
		log:         log.With("component", "build-tool"),
	}
}

// Artifact is where a successful build leaves the script's bundle.
func (t *Tool) Artifact(script *pipecheck.TransformScript) string {
	id := script.ID.String()
	return filepath.Join(t.workDir, id, "dist", id+".js")
}

// Build copies the script's template into its build folder, runs the build
// command, and verifies the artifact exists. A missing artifact after a
// clean build command is a build failure.
func (t *Tool) Build(ctx context.Context, script *pipecheck.TransformScript) (string, error) {
	dir := filepath.Join(t.workDir, script.ID.String())
	if err := copyTree(filepath.Join(t.templateDir, script.Artifact), dir); err != nil {
		return "", fmt.Errorf("install template %q: %w", script.Artifact, err)
	}

	if len(t.command) > 0 {
		cmd := exec.CommandContext(ctx, t.command[0], t.command[1:]...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		if err != nil {
			return "", fmt.Errorf("build command failed: %w: %s", err, out)
		}
		t.log.Debug("build command finished", "script", script.ID, "output_bytes", len(out))
	}

	artifact := t.Artifact(script)
	if _, err := os.Stat(artifact); err != nil {
		return "", fmt.Errorf("artifact %s was not built: %w", artifact, err)
	}
	return artifact, nil
}

// RPKDeployer deploys artifacts through the rpk CLI.
type RPKDeployer struct {
	Bin     string
	Brokers []string
}

// Deploy runs `rpk wasm deploy` for the artifact under the given name.
func (d *RPKDeployer) Deploy(ctx context.Context, artifactPath, label string) error {
	bin := d.Bin
	if bin == "" {
		bin = "rpk"
	}
	args := []string{"wasm", "deploy", artifactPath, "--name", label}
	for _, b := range d.Brokers {
		args = append(args, "--brokers", b)
	}
	out, err := exec.CommandContext(ctx, bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("deploy %s: %w: %s", artifactPath, err, out)
	}
	return nil
}

// copyTree copies a directory recursively. Symlinks are not followed; script
// templates are plain file trees.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, in)
		return err
	})
}
