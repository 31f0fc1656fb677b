// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

// Program jbind tokenizes, traces, or decodes JSON input.
//
// Usage:
//
//	jbind [flags] tokens|events|decode [file ...]
//
// With no files, jbind reads standard input. The tokens mode prints one line
// per token; events prints the structural events of each value; decode binds
// each value without a type and prints it as compact JSON.
//
// Settings may be read from a configuration file in HuJSON (JSON with
// comments and trailing commas):
//
//	{
//	  "features": ["AllowComments", "AllowTrailingCommas"],
//	  "maxDepth": 64,
//	  "exactNumbers": true,
//	}
//
// Flags given on the command line override the configuration file.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/creachadair/jbind"
	"github.com/creachadair/jbind/bind"
	"github.com/creachadair/jbind/introspect"
	"github.com/golang/glog"
	"github.com/tailscale/hujson"
	"github.com/valyala/bytebufferpool"
)

func main() {
	os.Exit(runWithArgs(os.Args[1:], os.Stdout, os.Stderr))
}

// config holds the settings of a run.
type config struct {
	Features      []string `json:"features"`
	MaxDepth      int      `json:"maxDepth"`
	BufferSize    int      `json:"bufferSize"`
	ExactNumbers  bool     `json:"exactNumbers"`
	CompactArrays bool     `json:"compactArrays"`
}

// loadConfig reads a HuJSON configuration file.
func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	td, err := introspect.For[config]()
	if err != nil {
		return nil, err
	}
	cfg, err := bind.As[*config](bind.New().Unmarshal(std, td))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	} else if cfg == nil {
		cfg = new(config)
	}
	return cfg, nil
}

func (c *config) options() (*jbind.Options, error) {
	opts := &jbind.Options{MaxDepth: c.MaxDepth, BufferSize: c.BufferSize}
	for _, name := range c.Features {
		f, ok := jbind.ParseFeature(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown feature %q", name)
		}
		opts.Features |= f
	}
	return opts, nil
}

func runWithArgs(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("jbind", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a HuJSON configuration file")
	features := fs.String("features", "", "comma-separated tokenizer features")
	maxDepth := fs.Int("max-depth", 0, "maximum nesting depth (negative for unlimited)")
	exact := fs.Bool("exact", false, "decode non-integer numbers exactly")
	compact := fs.Bool("compact", false, "trim excess capacity from decoded arrays")
	verbose := fs.Int("v", 0, "diagnostic log verbosity")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: jbind [flags] tokens|events|decode [file ...]\n\n")
		fmt.Fprintln(stderr, "Tokenize, trace, or decode JSON input.")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *verbose > 0 {
		flag.Set("v", strconv.Itoa(*verbose))
		flag.Set("logtostderr", "true")
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, "error: a mode is required")
		fs.Usage()
		return 2
	}
	mode, files := rest[0], rest[1:]
	run, ok := modes[mode]
	if !ok {
		fmt.Fprintf(stderr, "error: unknown mode %q\n", mode)
		fs.Usage()
		return 2
	}

	cfg := new(config)
	if *configPath != "" {
		var err error
		if cfg, err = loadConfig(*configPath); err != nil {
			fmt.Fprintf(stderr, "error loading config: %v\n", err)
			return 1
		}
		glog.V(1).Infof("loaded config from %s: %+v", *configPath, cfg)
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "features":
			cfg.Features = append(cfg.Features, strings.Split(*features, ",")...)
		case "max-depth":
			cfg.MaxDepth = *maxDepth
		case "exact":
			cfg.ExactNumbers = *exact
		case "compact":
			cfg.CompactArrays = *compact
		}
	})
	opts, err := cfg.options()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	e := &env{cfg: cfg, opts: opts, out: stdout}

	if len(files) == 0 {
		files = []string{"-"}
	}
	for _, path := range files {
		if err := e.runFile(run, path); err != nil {
			fmt.Fprintf(stderr, "error: %s: %v\n", path, err)
			return 1
		}
	}
	return 0
}

// An env carries the settings for processing one or more inputs.
type env struct {
	cfg  *config
	opts *jbind.Options
	out  io.Writer
}

var modes = map[string]func(*env, io.Reader) error{
	"tokens": (*env).tokens,
	"events": (*env).events,
	"decode": (*env).decode,
}

func (e *env) runFile(run func(*env, io.Reader) error, path string) error {
	if path == "-" {
		return run(e, os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	glog.V(1).Infof("processing %s", path)
	return run(e, f)
}

// tokens prints the location, type, and text of each token.
func (e *env) tokens(r io.Reader) error {
	tok := jbind.NewTokenizer(r, e.opts)
	defer tok.Close()
	for {
		t, err := tok.NextToken()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		loc := tok.Location().First
		switch t {
		case jbind.FieldName, jbind.String:
			text, err := tok.Text()
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "%s\t%s\t%s\n", loc, t, jbind.Quote(text))
		case jbind.Int, jbind.Float:
			text, err := tok.NumberText()
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "%s\t%s\t%s\n", loc, t, text)
		default:
			fmt.Fprintf(e.out, "%s\t%s\n", loc, t)
		}
	}
}

// events prints the structural events of the input, indented by depth.
func (e *env) events(r io.Reader) error {
	return jbind.NewStream(r, e.opts).Parse(&tracer{w: e.out})
}

// decode binds each value of the input without a type and prints it.
func (e *env) decode(r io.Reader) error {
	b := bind.New(
		bind.WithTokenizerOptions(e.opts),
		bind.WithExactNumbers(e.cfg.ExactNumbers),
		bind.WithCompactArrays(e.cfg.CompactArrays),
	)
	tok := jbind.NewTokenizer(r, e.opts)
	defer tok.Close()

	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	for {
		if _, err := tok.NextToken(); err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		v, err := b.Untyped(tok)
		if err != nil {
			return err
		}
		bb.Reset()
		if bb.B, err = bind.AppendJSON(bb.B, v); err != nil {
			return err
		}
		bb.WriteByte('\n')
		if _, err := bb.WriteTo(e.out); err != nil {
			return err
		}
	}
}

// tracer is a jbind.Handler that prints each event.
type tracer struct {
	w     io.Writer
	depth int
}

func (t *tracer) emit(label string, loc jbind.Anchor, text bool) error {
	var detail string
	if text {
		s, err := loc.Text()
		if err != nil {
			return err
		}
		if loc.Token() == jbind.String || loc.Token() == jbind.FieldName {
			s = jbind.Quote(s)
		}
		detail = " " + s
	}
	_, err := fmt.Fprintf(t.w, "%s%s%s @ %s\n", strings.Repeat("  ", t.depth), label, detail, loc.Location().First)
	return err
}

func (t *tracer) BeginObject(loc jbind.Anchor) error {
	err := t.emit("BeginObject", loc, false)
	t.depth++
	return err
}

func (t *tracer) EndObject(loc jbind.Anchor) error {
	t.depth--
	return t.emit("EndObject", loc, false)
}

func (t *tracer) BeginArray(loc jbind.Anchor) error {
	err := t.emit("BeginArray", loc, false)
	t.depth++
	return err
}

func (t *tracer) EndArray(loc jbind.Anchor) error {
	t.depth--
	return t.emit("EndArray", loc, false)
}

func (t *tracer) BeginMember(loc jbind.Anchor) error {
	err := t.emit("BeginMember", loc, true)
	t.depth++
	return err
}

func (t *tracer) EndMember(jbind.Anchor) error {
	t.depth--
	return nil
}

func (t *tracer) Value(loc jbind.Anchor) error {
	tok := loc.Token()
	return t.emit(tok.String(), loc, tok == jbind.String || tok.IsNumber())
}

func (t *tracer) EndOfInput(jbind.Anchor) {
	if t.depth != 0 {
		glog.Errorf("unbalanced events at end of input (depth %d)", t.depth)
	}
}
