// Package advice turns session metrics into eye-care analysis and suggestions
// using a generative language model.
package advice

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrNoMetrics is returned when none of the metrics carry a value.
var ErrNoMetrics = errors.New("no metrics provided")

// Metrics are the dashboard figures sent for analysis. Missing or zero
// values are left out of the prompt.
type Metrics struct {
	// B is the average blink rate in blinks per minute.
	B *float64 `json:"B"`
	// D is the percentage of time spent in bright light.
	D *float64 `json:"D"`
	// C is the percentage of time spent looking away from the screen.
	C *float64 `json:"C"`
	// T is the percentage of time spent at a safe distance.
	T *float64 `json:"T"`
}

// Advice is the parsed model reply.
type Advice struct {
	Analysis    []string `json:"analysis"`
	Suggestions []string `json:"suggestions"`
}

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Advisor builds prompts from metrics and parses the generated reply.
type Advisor struct {
	gen Generator
}

func NewAdvisor(gen Generator) *Advisor {
	return &Advisor{gen: gen}
}

// Advise asks the generator to analyze m.
func (a *Advisor) Advise(ctx context.Context, m Metrics) (*Advice, error) {
	prompt, err := BuildPrompt(m)
	if err != nil {
		return nil, err
	}

	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate advice: %w", err)
	}

	analysis, suggestions := ParseAdvice(text)
	return &Advice{Analysis: analysis, Suggestions: suggestions}, nil
}

// BuildPrompt renders the analysis prompt for the metrics that are present.
func BuildPrompt(m Metrics) (string, error) {
	var lines []string
	if v, ok := rounded(m.B); ok {
		lines = append(lines, fmt.Sprintf("- Average blink rate (%d blinks/min, if more than 15 blinks, then is good)", v))
	}
	if v, ok := rounded(m.D); ok {
		lines = append(lines, fmt.Sprintf("- Percentage of time in bright environment versus a dark one (%d%%, if more than 80%%, then is good)", v))
	}
	if v, ok := rounded(m.C); ok {
		lines = append(lines, fmt.Sprintf("- Percentage of time looking away from screen center (%d%%, if more than 30%%, then is good)", v))
	}
	if v, ok := rounded(m.T); ok {
		lines = append(lines, fmt.Sprintf("- Percentage of time at safe distance 50cm from screen (%d%%, if more than 98%%, then is good)", v))
	}
	if len(lines) == 0 {
		return "", ErrNoMetrics
	}

	var b strings.Builder
	b.WriteString("Analyze the following metrics that represent screen usage patterns:\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString(`

Please provide your response in two clear sections:

ANALYSIS:
Analyze each metric. Use "you" instead of "the user" when referring to the person.

SUGGESTIONS:
Based on the analysis, provide three targeted suggestions.
Keep suggestions clear and actionable, avoid using any markdown formatting.
Use "you" instead of "the user" when giving suggestions.`)
	return b.String(), nil
}

// rounded rounds half up. Zero counts as missing.
func rounded(v *float64) (int, bool) {
	if v == nil || *v == 0 || math.IsNaN(*v) {
		return 0, false
	}
	return int(math.Floor(*v + 0.5)), true
}

var (
	sectionRe = regexp.MustCompile(`ANALYSIS:|SUGGESTIONS:`)
	markupRe  = regexp.MustCompile("[#*`_]")
	bulletRe  = regexp.MustCompile(`^[•·-]\s*`)
)

// ParseAdvice splits a reply into its ANALYSIS and SUGGESTIONS lines with
// markdown and bullets removed. Missing sections yield empty slices.
func ParseAdvice(text string) (analysis, suggestions []string) {
	sections := sectionRe.Split(text, -1)

	analysis, suggestions = []string{}, []string{}
	if len(sections) > 1 {
		analysis = cleanLines(sections[1])
	}
	if len(sections) > 2 {
		suggestions = cleanLines(sections[2])
	}
	return analysis, suggestions
}

func cleanLines(section string) []string {
	out := []string{}
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		line = markupRe.ReplaceAllString(line, "")
		line = bulletRe.ReplaceAllString(line, "")
		if line == "" {
			continue
		}
		out = append(out, capitalize(line))
	}
	return out
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
