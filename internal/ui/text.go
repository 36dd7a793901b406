package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Formatter renders one kind of value in command output.
type Formatter struct {
	color *color.Color
	// open and close surround the text when colors are off.
	open, close string
}

// Sprint formats the arguments like fmt.Sprint and styles the result.
func (f Formatter) Sprint(a ...any) string {
	return render(f.color, fmt.Sprint(a...), f.open, f.close)
}

// Mark is a status glyph that leads a line of output.
type Mark struct {
	color *color.Color
	glyph string
}

// String returns the glyph in the mark's color.
func (m Mark) String() string {
	return render(m.color, m.glyph, "", "")
}

// Sprint styles text in the mark's color, for summaries that accompany it.
func (m Mark) Sprint(a ...any) string {
	return render(m.color, fmt.Sprint(a...), "", "")
}

func render(c *color.Color, text, open, close string) string {
	if noColor() {
		return open + text + close
	}
	return c.Sprint(text)
}

// EnsureNewline ensures the string ends with a newline character.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

// noColor honours NO_COLOR (https://no-color.org/) and fatih/color's own
// terminal detection.
func noColor() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

// Status marks.
var (
	Check   = Mark{color.New(color.FgGreen), "✓"}
	Cross   = Mark{color.New(color.FgRed), "✗"}
	Caution = Mark{color.New(color.FgYellow), "⚠"}
	Arrow   = Mark{color.New(color.FgCyan), "→"}
)

// Value formatters.
var (
	// Command is a kestrel invocation the user can copy. `backticks` without color.
	Command = Formatter{color: color.New(color.FgYellow), open: "`", close: "`"}

	// Path is the vault file, the user config or the audit log.
	Path = Formatter{color: color.New(color.FgYellow)}

	// Flag is a command-line flag such as --password-stdin.
	Flag = Formatter{color: color.New(color.FgYellow)}

	// Project is a project name. 'quoted' without color.
	Project = Formatter{color: color.New(color.FgCyan, color.Bold), open: "'", close: "'"}

	// Detail is a detail key or the context name a worker asked for.
	Detail = Formatter{color: color.New(color.FgCyan), open: "'", close: "'"}

	// Token is a project or session token. It is never decorated, so a plain
	// terminal still prints something that can be pasted into a shell.
	Token = Formatter{color: color.New(color.FgMagenta, color.Bold)}

	// Operation is an audit log operation name.
	Operation = Formatter{color: color.New(color.FgBlue)}

	// Expiry is a session deadline.
	Expiry = Formatter{color: color.New(color.FgGreen)}

	// None stands in for an empty listing. (parenthesized) without color.
	None = Formatter{color: color.New(color.FgHiBlack), open: "(", close: ")"}
)

// DetailRef formats a detail as project/key.
func DetailRef(project, key string) string {
	return Project.Sprint(project) + "/" + Detail.Sprint(key)
}
