package link

import (
	"context"
	"os"
	"os/exec"
	"strings"

	errs "github.com/matzehuels/stackpm/pkg/errors"
	"github.com/matzehuels/stackpm/pkg/manifest"
	"github.com/matzehuels/stackpm/pkg/tree"
)

// outputTail bounds the script output kept for error messages.
const outputTail = 4 << 10

func (l *Linker) runScripts(ctx context.Context, n *tree.Node, m *manifest.Manifest, dir, target string) error {
	env := scriptEnv(os.Environ(), l.binDir(target), l.binDir(dir))
	for _, phase := range manifest.LifecycleScripts {
		script, ok := m.Script(phase)
		if !ok {
			continue
		}
		l.opts.Logger.Debug("running script", "package", n.ID(), "phase", phase, "script", script)

		out := &tailBuffer{max: outputTail}
		cmd := exec.CommandContext(ctx, l.opts.Shell, "-c", script) //nolint:gosec // lifecycle scripts come from package manifests
		cmd.Dir = target
		cmd.Env = env
		cmd.Stdout = out
		cmd.Stderr = out

		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if tail := strings.TrimSpace(out.String()); tail != "" {
				return errs.Wrap(errs.ErrCodeLink, err, "%s script of %s failed:\n%s", phase, n.ID(), tail)
			}
			return errs.Wrap(errs.ErrCodeLink, err, "%s script of %s failed", phase, n.ID())
		}
	}
	return nil
}

// scriptEnv returns base with PATH prefixed by dirs, in order.
func scriptEnv(base []string, dirs ...string) []string {
	prefix := strings.Join(dirs, string(os.PathListSeparator))
	env := make([]string, 0, len(base)+1)
	found := false
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k == "PATH" {
			found = true
			if v != "" {
				kv = "PATH=" + prefix + string(os.PathListSeparator) + v
			} else {
				kv = "PATH=" + prefix
			}
		}
		env = append(env, kv)
	}
	if !found {
		env = append(env, "PATH="+prefix)
	}
	return env
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string { return string(b.buf) }
