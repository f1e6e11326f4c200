// Command colordep renders annotated sentences as colorful dependency and
// part-of-speech diagrams.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/colordep/core/annotation"
	"github.com/FocuswithJustin/colordep/core/colorize"
	"github.com/FocuswithJustin/colordep/core/diagram"
	"github.com/FocuswithJustin/colordep/core/document"
	"github.com/FocuswithJustin/colordep/core/errors"
	"github.com/FocuswithJustin/colordep/core/palette"
	"github.com/FocuswithJustin/colordep/internal/api"
	"github.com/FocuswithJustin/colordep/internal/logging"
	"github.com/FocuswithJustin/colordep/internal/output"
)

const version = "0.1.0"

// Swapped in tests.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	openFn           = output.Open
)

// CLI defines the command-line interface for colordep.
var CLI struct {
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" default:"warn" env:"COLORDEP_LOG_LEVEL"`
	LogFormat string `name:"log-format" help:"Log format (text, json)" default:"text" env:"COLORDEP_LOG_FORMAT"`

	Render   RenderCmd   `cmd:"" default:"withargs" help:"Render an annotated sentence as a standalone page"`
	Colorize ColorizeCmd `cmd:"" help:"Recolor an existing displaCy SVG"`
	Palette  PaletteCmd  `cmd:"" help:"Print the color palette"`
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP and websocket server"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// RenderCmd renders one sentence of an annotation file.
type RenderCmd struct {
	Input    string `arg:"" optional:"" help:"Annotation file (CoNLL-U or spaCy JSON); stdin when omitted or -"`
	Mode     string `short:"m" help:"Diagram mode: dep or pos" default:"dep" enum:"dep,pos"`
	Format   string `short:"f" help:"Input format: auto, conllu or json" default:"auto" enum:"auto,conllu,json"`
	Sentence int    `short:"s" help:"1-based sentence to render" default:"1"`
	Palette  string `short:"p" help:"Palette override file" type:"existingfile"`
	Title    string `short:"t" help:"Page title (prefixed with 'Colorful ')"`
	Compact  bool   `help:"Compact arcs"`
	Lang     string `help:"Language tag of the dependency SVG" default:"en"`
	RTL      bool   `name:"rtl" help:"Lay the sentence out right to left"`
	Out      string `short:"o" help:"Output file; a content-addressed name in the temp directory when omitted. A .xz suffix compresses." type:"path"`
	Dir      string `help:"Directory for content-addressed output" type:"path"`
	Stdout   bool   `help:"Write the page to stdout instead of a file"`
	Open     bool   `help:"Open the page in the default browser"`
}

func (c *RenderCmd) Run(ctx context.Context) error {
	mode, err := diagram.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	policy, err := loadPolicy(c.Palette)
	if err != nil {
		return err
	}
	sentences, err := loadSentences(c.Input, c.Format)
	if err != nil {
		return err
	}
	if c.Sentence < 1 || c.Sentence > len(sentences) {
		return errors.NewValidation("sentence", fmt.Sprintf("%d out of range (input has %d)", c.Sentence, len(sentences)))
	}
	s := sentences[c.Sentence-1]
	if err := s.Validate(); err != nil {
		return err
	}

	res, err := diagram.Render(ctx, mode, s, diagram.Options{
		Policy:  policy,
		Title:   c.Title,
		Compact: c.Compact,
		Lang:    c.Lang,
		RTL:     c.RTL,
	})
	if err != nil {
		return err
	}
	if c.Stdout {
		_, err := io.WriteString(stdout, res.Document)
		return err
	}

	path, err := output.Write([]byte(res.Document), output.Target{Path: c.Out, Dir: c.Dir, Mode: string(mode)})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Generated %s diagram: %s\n", mode, path)

	if c.Open {
		fmt.Fprintf(stdout, "Opening %s%s in browser: %s\n", document.TitlePrefix, res.Title, path)
		if err := openFn(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

// ColorizeCmd recolors renderer output.
type ColorizeCmd struct {
	Input   string `arg:"" optional:"" help:"SVG file; stdin when omitted or -"`
	Palette string `short:"p" help:"Palette override file" type:"existingfile"`
	Page    bool   `help:"Wrap the result in a standalone page"`
	Title   string `short:"t" help:"Page title when --page is set" default:"Dependency Graph"`
	Out     string `short:"o" help:"Output file instead of stdout" type:"path"`
	Strict  bool   `help:"Fail when the input cannot be recolored"`
}

func (c *ColorizeCmd) Run(ctx context.Context) error {
	policy, err := loadPolicy(c.Palette)
	if err != nil {
		return err
	}
	data, err := readInput(c.Input)
	if err != nil {
		return err
	}

	res := colorize.New(policy).Colorize(string(data))
	if res.Degraded() {
		logging.ColorizeDegraded(ctx, res.Reason, "input", inputName(c.Input))
		if c.Strict {
			return errors.NewValidation("markup", res.Reason)
		}
	}

	result := res.Markup
	if c.Page {
		result = document.Package(result, c.Title)
	}
	if c.Out == "" {
		_, err := io.WriteString(stdout, result)
		return err
	}
	path, err := output.Write([]byte(result), output.Target{Path: c.Out})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Colorized %s (%s): %s\n", inputName(c.Input), res.Status, path)
	return nil
}

// PaletteCmd prints the active palette in palette file syntax.
type PaletteCmd struct {
	Palette string `short:"p" help:"Palette override file" type:"existingfile"`
}

func (c *PaletteCmd) Run() error {
	policy, err := loadPolicy(c.Palette)
	if err != nil {
		return err
	}
	return palette.Format(stdout, policy)
}

// ServeCmd starts the API server.
type ServeCmd struct {
	Port           int      `help:"HTTP server port" default:"8080" env:"COLORDEP_PORT"`
	Palette        string   `short:"p" help:"Palette override file" type:"existingfile"`
	RateLimit      int      `help:"Requests per minute per client (0 disables)" default:"0"`
	RateBurst      int      `help:"Rate limit burst size" default:"10"`
	MaxBody        int64    `help:"Maximum request body in bytes" default:"4194304"`
	AllowedOrigins []string `help:"Allowed CORS and websocket origins (all when empty)" sep:","`
}

func (c *ServeCmd) Run() error {
	policy, err := loadPolicy(c.Palette)
	if err != nil {
		return err
	}
	api.Version = version
	return api.Start(api.Config{
		Port:              c.Port,
		Policy:            policy,
		MaxBodyBytes:      c.MaxBody,
		RateLimitRequests: c.RateLimit,
		RateLimitBurst:    c.RateBurst,
		AllowedOrigins:    c.AllowedOrigins,
	})
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(stdout, "colordep version %s\n", version)
	return nil
}

// Helper functions

func loadPolicy(path string) (*palette.Policy, error) {
	if path == "" {
		return palette.Default(), nil
	}
	return palette.LoadFile(path)
}

func inputName(path string) string {
	if path == "" || path == "-" {
		return "stdin"
	}
	return path
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, errors.NewIO("read", "stdin", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	return data, nil
}

// loadSentences reads every sentence of path. With format "auto" the file
// extension decides, then the first non-blank byte ('{' or '[' is JSON).
func loadSentences(path, format string) ([]*annotation.Sentence, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	if format == "" || format == "auto" {
		format = detectFormat(path, data)
	}

	var sentences []*annotation.Sentence
	switch format {
	case "json":
		sentences, err = annotation.ReadJSON(bytes.NewReader(data))
	case "conllu":
		sentences, err = annotation.ReadCoNLLU(bytes.NewReader(data))
	default:
		return nil, errors.NewUnsupported("format", format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", inputName(path))
	}
	if len(sentences) == 0 {
		return nil, errors.NewValidation("input", inputName(path)+" contains no sentences")
	}
	return sentences, nil
}

func detectFormat(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".conllu", ".conll":
		return "conllu"
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return "json"
	}
	return "conllu"
}

func setupLogging() error {
	level, err := logging.ParseLevel(CLI.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(CLI.LogFormat)
	if err != nil {
		return err
	}
	logging.InitLogger(level, format)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx := kong.Parse(&CLI,
		kong.Name("colordep"),
		kong.Description("Colorful dependency and part-of-speech diagrams"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	kctx.FatalIfErrorf(setupLogging())
	err := kctx.Run()
	kctx.FatalIfErrorf(err)
}
