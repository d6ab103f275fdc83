package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"  _     _           _", "#818cf8"},
	{" | |__ (_)_ __   __| | ___ _ __ _   _", "#a78bfa"},
	{" | '_ \\| | '_ \\ / _` |/ _ \\ '__| | | |", "#c084fc"},
	{" | |_) | | | | | (_| |  __/ |  | |_| |", "#e879f9"},
	{" |_.__/|_|_| |_|\\__,_|\\___|_|   \\__, |", "#f472b6"},
	{"                                |___/", "#fb7185"},
}

// PrintBanner writes the ASCII art banner using profile for colors.
func PrintBanner(w io.Writer, p termenv.Profile) {
	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line.text).Foreground(p.Color(line.color)))
	}
	fmt.Fprintln(w)
}
