package nodes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/dshills/workflow-go/workflow"
)

// ErrNoScreenCapturer is returned by Screenshot nodes built without a capture backend.
var ErrNoScreenCapturer = errors.New("no screen capturer configured")

// ScreenCapturer grabs the screen as encoded image bytes.
type ScreenCapturer interface {
	// Capture returns the encoded image. quality is 1 to 100 and applies to
	// lossy encodings.
	Capture(ctx context.Context, quality int) ([]byte, error)
}

// CommandCapturer runs an external program that writes the image to
// stdout. The argument "{quality}" is replaced by the requested quality.
type CommandCapturer struct {
	Name string
	Args []string
}

// NewCommandCapturer splits command on whitespace. It returns nil for a
// blank command.
func NewCommandCapturer(command string) *CommandCapturer {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil
	}
	return &CommandCapturer{Name: fields[0], Args: fields[1:]}
}

// DefaultScreenshotCommand returns the capture command for this platform,
// or "" when there is none.
func DefaultScreenshotCommand() string {
	switch runtime.GOOS {
	case "darwin":
		return "screencapture -x -t png /dev/stdout"
	case "linux", "freebsd", "openbsd":
		return "import -silent -window root -quality {quality} png:-"
	}
	return ""
}

// Capture implements ScreenCapturer.
func (c *CommandCapturer) Capture(ctx context.Context, quality int) ([]byte, error) {
	q := strconv.Itoa(quality)
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = strings.ReplaceAll(a, "{quality}", q)
	}
	img, err := exec.CommandContext(ctx, c.Name, args...).Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) && len(ee.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", c.Name, err, strings.TrimSpace(string(ee.Stderr)))
		}
		return nil, fmt.Errorf("%s: %w", c.Name, err)
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("%s produced no image", c.Name)
	}
	return img, nil
}

// Screenshot captures the screen to a file.
//
// Parameters: filename ("screenshot.png"), directory (""), quality (90).
type Screenshot struct {
	workflow.Base
	cfg *config
}

// NewScreenshot creates a Screenshot node.
func NewScreenshot(opts ...Option) *Screenshot { return newScreenshot(newConfig(opts...)) }

func newScreenshot(cfg *config) *Screenshot {
	n := &Screenshot{Base: workflow.NewBase(TypeScreenshot, "Take Screenshot"), cfg: cfg}
	p := n.Params()
	p.Set("filename", "screenshot.png")
	p.Set("directory", "")
	p.Set("quality", 90)
	return n
}

// Validate requires a filename and a quality between 1 and 100.
func (n *Screenshot) Validate() workflow.ValidationResult {
	v := workflow.Valid()
	if strings.TrimSpace(n.Params().String("filename", "")) == "" {
		v.AddError("Filename is required")
	}
	if q, ok := n.Params().Int("quality"); !ok || q < 1 || q > 100 {
		v.AddError("Quality must be a whole number between 1 and 100")
	}
	return v
}

// Execute captures the screen and writes the image.
func (n *Screenshot) Execute(ctx context.Context, ec *workflow.ExecutionContext) workflow.ExecutionResult {
	p := n.Params()
	filename := ec.Expand(p.String("filename", "screenshot.png"))
	directory := ec.Expand(p.String("directory", ""))
	quality, _ := p.Int("quality")

	path := filename
	if directory != "" {
		path = filepath.Join(directory, filename)
	}

	if n.cfg.capturer == nil {
		return workflow.Failed("Screenshot failed: "+ErrNoScreenCapturer.Error(), ErrNoScreenCapturer)
	}
	img, err := n.cfg.capturer.Capture(ctx, quality)
	if err != nil {
		return workflow.Failed("Screenshot failed: "+err.Error(), err)
	}
	if directory != "" {
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return workflow.Failed("Screenshot failed: "+err.Error(), err)
		}
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return workflow.Failed("Screenshot failed: "+err.Error(), err)
	}
	ec.Log("Screenshot written", "path", path, "bytes", len(img))

	return workflow.Succeeded(fmt.Sprintf("Screenshot saved: %s", filename), n.cfg.stamp(map[string]any{
		"filename": filename,
		"filepath": path,
		"quality":  quality,
		"bytes":    len(img),
	}))
}
