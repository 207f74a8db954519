package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/leapstack-labs/tubeql/internal/query"
)

// ResultOutput is the JSON form of a query result.
type ResultOutput struct {
	Query   string   `json:"query"`
	Kind    string   `json:"kind"`
	Title   string   `json:"title,omitempty"`
	Names   []string `json:"names"`
	Message string   `json:"message,omitempty"`
}

// ErrorOutput is the JSON form of a failed query.
type ErrorOutput struct {
	Error string `json:"error"`
}

var kindNames = map[query.Kind]string{
	query.KindNames: "names",
	query.KindEmpty: "empty",
	query.KindHelp:  "help",
	query.KindExit:  "exit",
}

// Result renders a resolved query.
func (r *Renderer) Result(res *query.Result) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		names := res.Names
		if names == nil {
			names = []string{}
		}
		return r.JSON(ResultOutput{
			Query:   strings.TrimSpace(res.Command.Verb + " " + res.Command.Arg),
			Kind:    kindNames[res.Kind],
			Title:   res.Title,
			Names:   names,
			Message: res.Message,
		})
	case ModeMarkdown:
		return r.resultMarkdown(res)
	default:
		return r.resultText(res)
	}
}

func (r *Renderer) resultText(res *query.Result) error {
	switch res.Kind {
	case query.KindNames:
		t := table.NewWriter()
		t.SetOutputMirror(r.out)
		t.SetStyle(table.StyleLight)
		// titles echo case-sensitive names
		t.Style().Format.Header = text.FormatDefault
		t.AppendHeader(table.Row{res.Title})
		for _, name := range res.Names {
			t.AppendRow(table.Row{name})
		}
		t.Render()
		r.Println(r.Muted(fmt.Sprintf("(%d %s)", len(res.Names), plural(len(res.Names), "row", "rows"))))
	case query.KindEmpty:
		r.statusLine(r.out, r.styles.Warning, "!", res.Message)
	case query.KindHelp:
		r.Println(res.Message)
	}
	return nil
}

func (r *Renderer) resultMarkdown(res *query.Result) error {
	switch res.Kind {
	case query.KindNames:
		r.Println(FormatHeader(2, res.Title))
		r.Println()
		for _, name := range res.Names {
			r.Printf("- %s\n", name)
		}
	case query.KindEmpty:
		r.Printf("_%s_\n", res.Message)
	case query.KindHelp:
		r.Println(FormatCodeBlock(res.Message))
	}
	return nil
}

// Error renders a failed query on the diagnostic writer.
func (r *Renderer) Error(err error) error {
	if r.EffectiveMode() == ModeJSON {
		return r.JSON(ErrorOutput{Error: err.Error()})
	}
	if r.EffectiveMode() == ModeMarkdown {
		_, _ = fmt.Fprintf(r.errOut, "**Error:** %v\n", err)
		return nil
	}
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render(err.Error()))
	return nil
}

// FormatHeader returns a markdown header of the given level.
func FormatHeader(level int, text string) string {
	return strings.Repeat("#", level) + " " + text
}

// FormatCodeBlock wraps text in a fenced code block.
func FormatCodeBlock(text string) string {
	return "```\n" + text + "\n```"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
