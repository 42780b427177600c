package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the furrow ASCII banner with the version underneath.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Earthy gradient, light to dark.
	lines := []struct {
		text  string
		color string
	}{
		{`   __                               `, "#bef264"},
		{`  / _|_   _ _ __ _ __ _____      __ `, "#a3e635"},
		{` | |_| | | | '__| '__/ _ \ \ /\ / / `, "#84cc16"},
		{` |  _| |_| | |  | | | (_) \ V  V /  `, "#65a30d"},
		{` |_|  \__,_|_|  |_|  \___/ \_/\_/   `, "#4d7c0f"},
	}

	fmt.Println()
	for _, l := range lines {
		fmt.Println(termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Printf("   v%s\n\n", strings.TrimSpace(version))
}
