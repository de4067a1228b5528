package typst

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Runner executes an external command. It exists so tests can substitute
// the Typst binary with a fake.
type Runner func(ctx context.Context, name string, args ...string) error

// CommandRunner is the production Runner backed by os/exec.
func CommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s timed out: %w", name, ctx.Err())
		}
		return fmt.Errorf("%s: %w: %s", name, err, bytes.TrimSpace(out))
	}
	return nil
}

// Compiler shells out to the Typst CLI. WorkDir holds both the transient
// .typ sources and the diagram image directory, so relative image paths in
// the generated source resolve during compilation.
type Compiler struct {
	Bin     string
	WorkDir string
	Run     Runner
}

// NewCompiler returns a Compiler using the real Typst binary.
func NewCompiler(bin, workDir string) *Compiler {
	return &Compiler{Bin: bin, WorkDir: workDir, Run: CommandRunner}
}

// Compile writes source to a uniquely named temp file, compiles it, and
// returns the path of the resulting PDF. The temp source is removed on
// every path; failure to remove it is not worth failing the entry over.
func (c *Compiler) Compile(ctx context.Context, source, slug string) (string, error) {
	if err := os.MkdirAll(c.WorkDir, 0o755); err != nil {
		return "", fmt.Errorf("typst: workdir: %w", err)
	}
	tmp, err := os.CreateTemp(c.WorkDir, slug+"-*.typ")
	if err != nil {
		return "", fmt.Errorf("typst: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(source); err != nil {
		tmp.Close()
		return "", fmt.Errorf("typst: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("typst: close temp: %w", err)
	}

	out := filepath.Join(c.WorkDir, slug+".pdf")
	if err := c.Run(ctx, c.Bin, "compile", tmp.Name(), out); err != nil {
		return "", fmt.Errorf("typst: compile %s: %w", slug, err)
	}
	return out, nil
}
