// Command grshape is a thin interactive shell for exercising a Face: load a
// font, shape a line of text against it, and inspect the resulting slots.
// It exists for manual poking around while developing the engine, not as a
// supported tool in its own right, so it stays deliberately small.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/npillmayer/graphite"
	"github.com/npillmayer/graphite/sfntprovider"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"
	"github.com/pterm/pterm"
)

func tracer() tracing.Trace {
	return tracing.Select("graphite.face")
}

func main() {
	initDisplay()

	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	conf := testconfig.Conf{
		"tracing.adapter":     "go",
		"trace.graphite.face": "Info",
	}
	if err := trace2go.ConfigureRoot(conf, "trace", trace2go.ReplaceTracers(true)); err != nil {
		fmt.Println("error configuring tracing")
		os.Exit(1)
	}
	tracing.SetTraceSelector(trace2go.Selector())

	tlevel := flag.String("trace", "Info", "Trace level [Debug|Info|Error]")
	fontname := flag.String("font", "", "Font file to load")
	ppem := flag.Float64("ppem", 12, "Pixels per em for glyph metrics")
	flag.Parse()

	switch *tlevel {
	case "Debug":
		tracer().SetTraceLevel(tracing.LevelDebug)
	case "Error":
		tracer().SetTraceLevel(tracing.LevelError)
	default:
		tracer().SetTraceLevel(tracing.LevelInfo)
	}

	pterm.Info.Println("Welcome to the Graphite shaping shell")

	repl, err := readline.New("grshape > ")
	if err != nil {
		tracer().Errorf(err.Error())
		os.Exit(3)
	}

	shell := &shell{repl: repl}
	if *fontname != "" {
		if err := shell.loadFont(*fontname, *ppem); err != nil {
			tracer().Errorf(err.Error())
			os.Exit(4)
		}
	}

	pterm.Info.Println("Quit with <ctrl>D")
	shell.run()
}

func initDisplay() {
	pterm.Info.Prefix = pterm.Prefix{
		Text:  " !  ",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

type shell struct {
	repl    *readline.Instance
	face    *graphite.Face
	metrics *sfntprovider.Metrics
	binary  []byte
}

func (s *shell) loadFont(path string, ppem float64) error {
	font, err := sfntprovider.Load(path)
	if err != nil {
		return fmt.Errorf("loading font: %w", err)
	}
	metrics, err := sfntprovider.NewMetrics(font.Binary, ppem)
	if err != nil {
		return fmt.Errorf("reading font metrics: %w", err)
	}
	s.face = graphite.NewFace(font)
	s.metrics = metrics
	s.binary = font.Binary
	pterm.Info.Printf("loaded %q: %d critical errors\n", font.Name, len(s.face.CriticalErrors()))
	return nil
}

func (s *shell) run() {
	for {
		line, err := s.repl.Readline()
		if err != nil { // io.EOF on ctrl-D
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if quit := s.dispatch(line); quit {
			break
		}
	}
	pterm.Info.Println("Good bye!")
}

func (s *shell) dispatch(line string) (quit bool) {
	switch {
	case line == "quit":
		return true
	case line == "errors":
		s.printErrors()
	case line == "features":
		s.printFeatures()
	case strings.HasPrefix(line, "shape "):
		s.shape(strings.TrimPrefix(line, "shape "))
	case strings.HasPrefix(line, "ppem "):
		s.reloadPpem(strings.TrimPrefix(line, "ppem "))
	default:
		pterm.Info.Println("commands: shape <text> | features | errors | ppem <n> | quit")
	}
	return false
}

func (s *shell) printErrors() {
	if s.face == nil {
		pterm.Error.Println("no font loaded")
		return
	}
	for _, e := range s.face.Errors() {
		pterm.Println(e.Error())
	}
}

func (s *shell) printFeatures() {
	if s.face == nil {
		pterm.Error.Println("no font loaded")
		return
	}
	for i := 0; i < s.face.NumFeatures(); i++ {
		f := s.face.FeatureAt(i)
		pterm.Printf("feature %d: default=%d label=%q\n", f.ID, f.Default, f.Label(""))
	}
}

func (s *shell) reloadPpem(arg string) {
	if s.face == nil {
		pterm.Error.Println("no font loaded")
		return
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
	if err != nil {
		pterm.Error.Println("bad ppem value: " + arg)
		return
	}
	metrics, err := sfntprovider.NewMetrics(s.binary, n)
	if err != nil {
		tracer().Errorf(err.Error())
		return
	}
	s.metrics = metrics
}

func (s *shell) shape(text string) {
	if s.face == nil || s.metrics == nil {
		pterm.Error.Println("no font loaded")
		return
	}
	seg := s.face.Shape(s.metrics, []byte(text), graphite.UTF8, nil, false)
	pterm.Printf("%d slots, advance=%.2f\n", seg.NSlots(), seg.Advance)
	for h := seg.FirstSlot(); !h.IsNil(); h = seg.Next(h) {
		x, y := seg.Origin(h)
		pterm.Printf("  glyph=%d origin=(%.2f,%.2f)\n", seg.Glyph(h), x, y)
	}
}
