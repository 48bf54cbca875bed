package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	"   ___                          _",
	"  / __|___ _ _  ___ ___ _ _ _  (_)___",
	" | (__/ _ \\ ' \\(_-</ -_) '_| | | / -_)",
	"  \\___\\___/_||_/__/\\___|_| _/ |_\\___|",
	"                          |__/",
}

// bannerColors runs from teal to amber, one color per line.
var bannerColors = []string{"#2dd4bf", "#34d399", "#a3e635", "#facc15", "#fb923c"}

// PrintBanner writes the Conserje banner and version to w. Colors are only
// emitted when w is a terminal that supports them.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, out.String(line).Foreground(out.Color(bannerColors[i%len(bannerColors)])))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, out.String("  v"+strings.TrimPrefix(v, "v")).Faint())
	}
	fmt.Fprintln(w)
}
