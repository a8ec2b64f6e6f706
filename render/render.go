// ABOUTME: Renders pipeline graphs to DOT, SVG or PNG; image formats shell out to graphviz.
// ABOUTME: Node colours follow the node role so inputs, models and the combiner read apart.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/2389-research/neurogems/pipeline"
)

// Role colours used for node fills.
const (
	ColorInput  = "#E3F2FD" // blue
	ColorModel  = "#FFF8E1" // amber
	ColorOutput = "#E8F5E9" // green
)

// ErrGraphvizMissing is returned for image formats when the dot command is not installed.
var ErrGraphvizMissing = errors.New("graphviz dot command not found")

// Formats lists the supported output formats.
var Formats = []string{"dot", "svg", "png"}

// DOT serializes g with role colours applied.
func DOT(name string, g pipeline.Graph) (string, error) {
	src, err := pipeline.ToDOT(name, g)
	if err != nil {
		return "", err
	}
	return colorize(src, g), nil
}

// colorize inserts fill attributes after each node declaration line.
func colorize(src string, g pipeline.Graph) string {
	var b strings.Builder
	for _, n := range g.Nodes {
		fmt.Fprintf(&b, "\t%q [style=filled, fillcolor=%q];\n", n.ID, roleColor(n))
	}
	fills := b.String()
	if fills == "" {
		return src
	}
	i := strings.LastIndex(src, "}")
	if i < 0 {
		return src
	}
	return src[:i] + fills + src[i:]
}

func roleColor(n pipeline.Node) string {
	switch n.Role() {
	case pipeline.RoleDataset:
		return ColorInput
	case pipeline.RoleOutput:
		return ColorOutput
	}
	return ColorModel
}

// Render produces g in format: "dot" returns DOT text, "svg" and "png" run graphviz.
func Render(ctx context.Context, name string, g pipeline.Graph, format string) ([]byte, error) {
	src, err := DOT(name, g)
	if err != nil {
		return nil, err
	}
	return RenderDOTSource(ctx, src, format)
}

// GraphvizAvailable checks whether the graphviz dot command is installed and reachable.
func GraphvizAvailable() bool {
	_, err := exec.LookPath("dot")
	return err == nil
}

// RenderDOTSource renders raw DOT text. For "dot" it returns the input as is.
func RenderDOTSource(ctx context.Context, dotText string, format string) ([]byte, error) {
	if dotText == "" {
		return nil, fmt.Errorf("cannot render empty DOT text")
	}

	switch format {
	case "dot":
		return []byte(dotText), nil
	case "svg", "png":
		return graphviz(ctx, dotText, format)
	default:
		return nil, fmt.Errorf("unsupported format %q: supported formats are %s", format, strings.Join(Formats, ", "))
	}
}

func graphviz(ctx context.Context, dotText string, format string) ([]byte, error) {
	if !GraphvizAvailable() {
		return nil, fmt.Errorf("%w: install graphviz to render %s output", ErrGraphvizMissing, format)
	}

	cmd := exec.CommandContext(ctx, "dot", "-T"+format)
	cmd.Stdin = strings.NewReader(dotText)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("graphviz dot command failed: %w: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// ContentType maps a format to its HTTP content type.
func ContentType(format string) string {
	switch format {
	case "svg":
		return "image/svg+xml"
	case "png":
		return "image/png"
	}
	return "text/vnd.graphviz; charset=utf-8"
}
