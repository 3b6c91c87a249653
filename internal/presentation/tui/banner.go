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
	{`   ___          _           ___         _    `, "#34d399"},
	{`  / _ \ _ _ __| |___ _ _  |   \ ___ __| |__ `, "#2dd4bf"},
	{` | (_) | '_/ _` + "`" + ` / -_) '_| | |) / -_|_-< / / `, "#22d3ee"},
	{`  \___/|_| \__,_\___|_|   |___/\___/__/_\_\ `, "#38bdf8"},
}

// PrintBanner writes the order desk banner to w, colored when the terminal
// supports it.
func PrintBanner(w io.Writer) {
	p := termenv.NewOutput(w).ColorProfile()
	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line.text).Foreground(p.Color(line.color)))
	}
	fmt.Fprintln(w)
}
