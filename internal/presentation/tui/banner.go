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
	{`                                     _       _   `, "#818cf8"},
	{` __      ____ _ _   _ _ __   ___ (_)_ __ | |_ `, "#a78bfa"},
	{` \ \ /\ / / _' | | | | '_ \ / _ \| | '_ \| __|`, "#c084fc"},
	{`  \ V  V / (_| | |_| | |_) | (_) | | | | | |_ `, "#e879f9"},
	{`   \_/\_/ \__,_|\__, | .__/ \___/|_|_| |_|\__|`, "#f472b6"},
	{`                |___/|_|                      `, "#fb7185"},
}

// PrintBanner writes the waypoint banner to w, colored when w is a color
// capable terminal.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, out.String(line.text).Foreground(out.Color(line.color)))
	}
	fmt.Fprintln(w)
}
