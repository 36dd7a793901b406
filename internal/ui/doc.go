// Package ui styles kestrel's command output.
//
// Status lines start with a Mark: Check, Cross, Caution or Arrow. The values
// inside them each have a Formatter:
//
//	ui.Check.String() + " Created project " + ui.Project.Sprint("botc")
//	ui.Arrow.String() + " Run " + ui.Command.Sprint("kestrel vault login")
//	"export KESTREL_TOKEN_BOTC=" + ui.Token.Sprint(token)
//	ui.DetailRef("botc", "email")
//
// # Color Behavior
//
// Colors are disabled when NO_COLOR is set (any value) or fatih/color finds
// no color-capable terminal. Plain output then quotes project and detail
// names, wraps commands in backticks and parenthesizes empty listings.
// Tokens and paths are left bare so they can be pasted.
package ui
