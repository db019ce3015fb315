// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/belfast-foundation/belfast-console/lib/tui"
)

// Output is where a command writes its results.
type Output struct {
	W io.Writer

	// Color enables ANSI styling of tables and JSON.
	Color bool

	// Width truncates tables to fit; zero disables truncation.
	Width int

	Theme tui.Theme
}

// NewOutput returns an Output for w. Color and width are detected when
// w is a terminal; NO_COLOR and a dumb terminal disable color.
func NewOutput(w io.Writer) *Output {
	output := &Output{W: w, Theme: tui.DefaultTheme}
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return output
	}
	profile := termenv.NewOutput(file).EnvColorProfile()
	output.Color = profile != termenv.Ascii
	if width, _, err := term.GetSize(int(file.Fd())); err == nil {
		output.Width = width
	}
	return output
}

// Printf writes formatted text.
func (o *Output) Printf(format string, args ...any) {
	fmt.Fprintf(o.W, format, args...)
}

// Println writes a line.
func (o *Output) Println(args ...any) {
	fmt.Fprintln(o.W, args...)
}

// Table renders table with the output's width and color.
func (o *Output) Table(table tui.Table) {
	io.WriteString(o.W, table.Render(o.Theme, o.Width, o.Color))
}

// Styled renders text in tone when color is on.
func (o *Output) Styled(tone tui.Tone, text string) string {
	if !o.Color {
		return text
	}
	return o.Theme.Render(tone, text)
}

// JSON writes value as indented JSON. Nil slices become []. On a color
// terminal the JSON is syntax highlighted.
func (o *Output) JSON(value any) error {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(normalizeNilSlice(value)); err != nil {
		return Internal("encoding JSON: %w", err)
	}
	if o.Color {
		if err := quick.Highlight(o.W, buffer.String(), "json", "terminal256", "monokai"); err == nil {
			return nil
		}
	}
	_, err := o.W.Write(buffer.Bytes())
	return err
}

// JSONOutput is embedded in a params struct to add --json.
//
//	type listParams struct {
//	    cli.JSONOutput
//	    Limit int `flag:"limit" desc:"page size"`
//	}
//
//	if done, err := params.EmitJSON(out, players); done {
//	    return err
//	}
type JSONOutput struct {
	OutputJSON bool `json:"-" flag:"json" desc:"output as JSON"`
}

// EmitJSON writes result to out when --json is set and reports whether
// it did. When it returns false the caller renders text.
func (j *JSONOutput) EmitJSON(out *Output, result any) (bool, error) {
	if !j.OutputJSON {
		return false, nil
	}
	return true, out.JSON(result)
}

func normalizeNilSlice(value any) any {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Slice && v.IsNil() {
		return reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	return value
}

// IsTerminal reports whether stream is an *os.File attached to a
// terminal.
func IsTerminal(stream any) bool {
	file, ok := stream.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
