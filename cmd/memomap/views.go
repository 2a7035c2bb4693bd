package main

import (
	"fmt"

	"github.com/memomap/memomap/internal/model"
	"github.com/memomap/memomap/internal/panel"
	"github.com/memomap/memomap/internal/renderer"
)

// Console implementations of the rendering boundaries. A real frontend swaps
// these for its map widget and dialog bindings.

type consoleWidget struct{}

func (w *consoleWidget) SetPins(pins []renderer.Pin) {
	fmt.Printf("map: %d pins\n", len(pins))
	for _, p := range pins {
		badge := ""
		if p.Badge > 0 {
			badge = fmt.Sprintf(" +%d", p.Badge)
		}
		fmt.Printf("  %s %s%s (%v, %v)\n", p.Emoji, p.Title, badge, p.Position.Lat, p.Position.Lng)
	}
}

type consoleView struct {
	name string
}

func (v *consoleView) Show(m model.Marker) {
	memo := ""
	if m.Memo != nil {
		memo = " - " + *m.Memo
	}
	fmt.Printf("%s: %s%s %v\n", v.name, m.Title, memo, m.Categories)
}

func (v *consoleView) Hide() {
	fmt.Printf("%s: closed\n", v.name)
}

type consolePanel struct{}

func (p *consolePanel) SetItems(items []panel.Item) {
	fmt.Print("filters:")
	for _, it := range items {
		mark := " "
		if it.Enabled {
			mark = "*"
		}
		fmt.Printf(" [%s%s %s %d]", mark, it.Emoji, it.Label, it.Count)
	}
	fmt.Println()
}
