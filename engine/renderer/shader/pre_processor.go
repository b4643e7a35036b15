// pre_processor.go implements the WGSL directive preprocessor. It walks shader source line
// by line, substitutes #define names, hoists enable statements, interprets directives and
// records everything the compiler needs in a SourceMap.
//
// A PreProcessor is single use: it owns the definition table, the storage and assertion
// counters and the string mode flag of exactly one compile attempt, so no state can leak
// between attempts.
package shader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// DefaultMaxAsserts is the number of assertion counters bound to every pipeline.
const DefaultMaxAsserts = 10

// MaxStorageBuffers is the number of #storage declarations a shader may make.
const MaxStorageBuffers = 2

// ErrPreProcessorUsed is returned when Run is called more than once on the same PreProcessor.
var ErrPreProcessorUsed = errors.New("preprocessor has already run")

// PreProcessorState is the lifecycle state of a PreProcessor.
type PreProcessorState int

const (
	// StateIdle is the state before Run.
	StateIdle PreProcessorState = iota

	// StateProcessingLine is the state while lines are being interpreted.
	StateProcessingLine

	// StateAwaitingInclude is the state while an include fetch is in flight.
	StateAwaitingInclude

	// StateFailed is terminal: the run stopped at an error.
	StateFailed

	// StateDone is terminal: the run produced a SourceMap.
	StateDone
)

func (s PreProcessorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessingLine:
		return "processing"
	case StateAwaitingInclude:
		return "awaiting include"
	case StateFailed:
		return "failed"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("PreProcessorState(%d)", int(s))
	}
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	defines  *DefinitionTable
	resolver IncludeResolver
	sink     ErrorSink

	maxAsserts     int
	storageCount   int
	assertCount    int
	specialStrings bool

	state   PreProcessorState
	source  *SourceMap
	body    strings.Builder
	encoder stringEncoder
}

// PreProcessor turns raw directive-annotated WGSL into a SourceMap.
type PreProcessor interface {
	// Run processes source and returns the resulting SourceMap. Processing stops at the first
	// error, which is returned as a *WGSLError and also delivered to the configured ErrorSink.
	// No partial SourceMap is returned on failure. Run may be called once.
	//
	// Includes are fetched through the configured IncludeResolver one at a time in document
	// order. Cancelling ctx abandons the run at the next line or include boundary.
	//
	// Parameters:
	//   - ctx: the context of the compile attempt
	//   - source: the raw shader text
	//
	// Returns:
	//   - *SourceMap: the transformed source and collected metadata
	//   - error: a *WGSLError describing the first failure, or ErrPreProcessorUsed
	Run(ctx context.Context, source string) (*SourceMap, error)

	// State returns the current lifecycle state.
	//
	// Returns:
	//   - PreProcessorState: the state
	State() PreProcessorState

	// Defines returns the definition table, including built-ins and every #define seen so far.
	//
	// Returns:
	//   - *DefinitionTable: the table
	Defines() *DefinitionTable
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor seeded with the given built-in definitions.
// STRING_MAX_LEN is always defined as StringMaxLen and overrides a seeded value.
//
// Parameters:
//   - defines: built-in definitions such as SCREEN_WIDTH and SCREEN_HEIGHT
//   - options: functional options for the resolver, sink and limits
//
// Returns:
//   - PreProcessor: a ready to run preprocessor
func NewPreProcessor(defines map[string]string, options ...PreProcessorOption) PreProcessor {
	p := &preProcessor{
		defines:    NewDefinitionTable(defines),
		resolver:   NewStdResolver(),
		sink:       DiscardSink,
		maxAsserts: DefaultMaxAsserts,
		source:     NewSourceMap(),
	}
	p.defines.set("STRING_MAX_LEN", fmt.Sprint(StringMaxLen))

	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *preProcessor) State() PreProcessorState {
	return p.state
}

func (p *preProcessor) Defines() *DefinitionTable {
	return p.defines
}

func (p *preProcessor) Run(ctx context.Context, source string) (*SourceMap, error) {
	if p.state != StateIdle {
		return nil, ErrPreProcessorUsed
	}
	p.state = StateProcessingLine

	if err := p.processText(ctx, source, 0); err != nil {
		p.state = StateFailed
		p.source = nil
		p.body.Reset()
		p.sink.Report(err)
		return nil, err
	}

	p.state = StateDone
	sm := p.source
	sm.Source = p.body.String()
	p.source = nil
	p.body.Reset()
	return sm, nil
}

// processText runs every line of text. When attributeTo is non-zero every line is attributed
// to that line number, which is how included text reports errors.
func (p *preProcessor) processText(ctx context.Context, text string, attributeTo int) *WGSLError {
	for i, line := range splitLines(text) {
		n := i + 1
		if attributeTo > 0 {
			n = attributeTo
		}
		if err := ctx.Err(); err != nil {
			return cancelled(n, err)
		}
		if werr := p.processLine(ctx, line, n); werr != nil {
			return werr
		}
	}
	return nil
}

func (p *preProcessor) processLine(ctx context.Context, raw string, n int) *WGSLError {
	// The name of a #define is never substituted, so redefinition is always detected.
	// Its value tokens are.
	if strings.HasPrefix(strings.TrimLeftFunc(raw, unicode.IsSpace), string(DirectiveDefine)) {
		if d := parseDirective(raw, n); d != nil && d.Type == DirectiveDefine {
			for i := 1; i < len(d.Args); i++ {
				d.Args[i] = p.defines.Substitute(d.Args[i])
			}
			return p.define(d)
		}
	}

	line := p.defines.Substitute(raw)
	trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)

	if isEnableLine(trimmed) {
		p.source.Extensions += stripComments(line) + "\n"
		return nil
	}

	if !isDirectiveLine(trimmed) {
		if p.specialStrings {
			encoded, werr := p.encoder.encodeLine(line, n)
			if werr != nil {
				return werr
			}
			line = encoded
		}
		p.pushLine(line, n)
		return nil
	}

	d := parseDirective(line, n)
	if d == nil {
		return nil
	}

	switch d.Type {
	case DirectiveInclude:
		return p.include(ctx, d)
	case DirectiveWorkgroupCount:
		return p.workgroupCount(d)
	case DirectiveDispatchOnce:
		if len(d.Args) != 1 {
			return newWGSLError(ErrorKindDirectiveSyntax, n, "Dispatch once directive requires exactly one name")
		}
		p.source.DispatchOnce[d.Args[0]] = true
	case DirectiveDispatchCount:
		if len(d.Args) != 2 {
			return newWGSLError(ErrorKindDirectiveSyntax, n, "Dispatch count directive requires name and count")
		}
		count, werr := parseU32(d.Args[1], n)
		if werr != nil {
			return werr
		}
		p.source.DispatchCount[d.Args[0]] = count
	case DirectiveDefine:
		return p.define(d)
	case DirectiveStorage:
		return p.storage(d)
	case DirectiveAssert:
		return p.assert(d)
	case DirectiveData:
		return p.data(d)
	default:
		return newWGSLError(ErrorKindDirectiveSyntax, n, "Unrecognised preprocessor directive")
	}
	return nil
}

func (p *preProcessor) include(ctx context.Context, d *Directive) *WGSLError {
	if len(d.Args) != 1 {
		return newWGSLError(ErrorKindDirectiveSyntax, d.Line, "Include directive requires exactly one argument")
	}
	name := d.Args[0]

	var includePath string
	if m := quotedRegex.FindStringSubmatch(name); m != nil {
		includePath = m[1]
	} else if m := chevronRegex.FindStringSubmatch(name); m != nil {
		if m[1] == stringIncludeName {
			p.specialStrings = true
		}
		includePath = stdIncludePrefix + m[1]
	} else {
		return newWGSLError(ErrorKindDirectiveSyntax, d.Line, "Path must be enclosed in quotes or chevrons")
	}

	p.state = StateAwaitingInclude
	code, err := p.resolver.Resolve(ctx, includePath)
	p.state = StateProcessingLine
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cancelled(d.Line, ctxErr)
		}
		werr := newWGSLError(ErrorKindIncludeNotFound, d.Line, fmt.Sprintf("Cannot find include %s", name))
		werr.Err = err
		return werr
	}

	return p.processText(ctx, code, d.Line)
}

func (p *preProcessor) workgroupCount(d *Directive) *WGSLError {
	if len(d.Args) != 4 {
		return newWGSLError(ErrorKindDirectiveSyntax, d.Line, "Workgroup count directive requires name and three values")
	}
	var count [3]uint32
	for i := range count {
		v, werr := parseU32(d.Args[i+1], d.Line)
		if werr != nil {
			return werr
		}
		count[i] = v
	}
	p.source.WorkgroupCount[d.Args[0]] = count
	return nil
}

func (p *preProcessor) define(d *Directive) *WGSLError {
	if len(d.Args) < 1 {
		return newWGSLError(ErrorKindDirectiveSyntax, d.Line, "Define directive requires at least a name")
	}
	name := d.Args[0]
	value := strings.Join(d.Args[1:], " ")
	if err := p.defines.Define(name, value); err != nil {
		werr := newWGSLError(ErrorKindRedefinition, d.Line, fmt.Sprintf("Cannot redefine %s", name))
		werr.Err = err
		return werr
	}
	return nil
}

func (p *preProcessor) storage(d *Directive) *WGSLError {
	if len(d.Args) < 2 {
		return newWGSLError(ErrorKindDirectiveSyntax, d.Line, "Storage directive requires name and type")
	}
	if p.storageCount >= MaxStorageBuffers {
		return newWGSLError(ErrorKindResourceLimit, d.Line, "Only two storage buffers are currently supported")
	}
	decl := fmt.Sprintf("@group(0) @binding(%d) var<storage,read_write> %s: %s;", p.storageCount, d.Args[0], strings.Join(d.Args[1:], " "))
	p.pushLine(decl, d.Line)
	p.storageCount++
	return nil
}

func (p *preProcessor) assert(d *Directive) *WGSLError {
	if len(d.Args) < 1 {
		return newWGSLError(ErrorKindDirectiveSyntax, d.Line, "Assert directive requires predicate")
	}
	if p.assertCount >= p.maxAsserts {
		return newWGSLError(ErrorKindResourceLimit, d.Line, fmt.Sprintf("A maximum of %d assertions are currently supported", p.maxAsserts))
	}
	p.pushLine(fmt.Sprintf("assert(%d, %s);", p.assertCount, strings.Join(d.Args, " ")), d.Line)
	p.source.AssertMap = append(p.source.AssertMap, d.Line)
	p.assertCount++
	return nil
}

func (p *preProcessor) data(d *Directive) *WGSLError {
	if len(d.Args) < 3 || d.Args[1] != "u32" {
		return newWGSLError(ErrorKindDirectiveSyntax, d.Line, "Data directive requires name, u32 type, and data")
	}
	raw := strings.Split(strings.Join(d.Args[2:], ""), ",")
	values := make([]uint32, 0, len(raw))
	for _, s := range raw {
		v, werr := parseU32(s, d.Line)
		if werr != nil {
			return werr
		}
		values = append(values, v)
	}

	if p.source.UserData.onlyBootstrap() {
		p.source.UserData.Clear()
	}
	p.source.UserData.Append(d.Args[0], values...)
	return nil
}

func (p *preProcessor) pushLine(line string, n int) {
	p.body.WriteString(line)
	p.body.WriteByte('\n')
	p.source.LineMap = append(p.source.LineMap, n)
}

func cancelled(line int, cause error) *WGSLError {
	werr := newWGSLError(ErrorKindCancelled, line, "Preprocessing cancelled")
	werr.Err = cause
	return werr
}

// splitLines splits text the way a line reader does: a trailing newline does not produce
// an extra empty line and a trailing carriage return is dropped from each line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
