package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/gridsnake/engine"
	"github.com/brensch/gridsnake/game"
)

// Each board cell is two terminal columns wide so cells look square.
const (
	cellEmpty = "  "
	cellSolid = "██"
	cellFood  = "()"
	cellGold  = "<>"
)

const boardPanelRows = 10

type styles struct {
	frame  lipgloss.Style
	empty  lipgloss.Style
	head   lipgloss.Style
	body   lipgloss.Style
	wall   lipgloss.Style
	food   lipgloss.Style
	gold   lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	banner lipgloss.Style
	flash  lipgloss.Style
	panel  lipgloss.Style
	dim    lipgloss.Style
}

func newStyles(theme string) styles {
	palette := map[string]lipgloss.Color{
		"bg":     "#10141a",
		"fg":     "#e6e6e6",
		"dim":    "#5c6370",
		"head":   "#7ee787",
		"body":   "#2ea043",
		"wall":   "#6e7681",
		"food":   "#ff6b6b",
		"gold":   "#f2cc60",
		"accent": "#58a6ff",
	}
	if theme == "light" {
		palette["bg"] = "#f6f8fa"
		palette["fg"] = "#24292f"
		palette["dim"] = "#8c959f"
		palette["head"] = "#1a7f37"
		palette["body"] = "#2da44e"
		palette["wall"] = "#57606a"
		palette["accent"] = "#0969da"
	}

	base := lipgloss.NewStyle().Background(palette["bg"])
	return styles{
		frame:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(palette["accent"]),
		empty:  base,
		head:   base.Foreground(palette["head"]),
		body:   base.Foreground(palette["body"]),
		wall:   base.Foreground(palette["wall"]),
		food:   base.Foreground(palette["food"]).Bold(true),
		gold:   base.Foreground(palette["gold"]).Bold(true),
		label:  lipgloss.NewStyle().Foreground(palette["dim"]),
		value:  lipgloss.NewStyle().Foreground(palette["fg"]).Bold(true),
		banner: lipgloss.NewStyle().Foreground(palette["accent"]).Bold(true),
		flash:  lipgloss.NewStyle().Foreground(palette["gold"]),
		panel:  lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(palette["dim"]).Padding(0, 1),
		dim:    lipgloss.NewStyle().Foreground(palette["dim"]),
	}
}

func (m Model) View() string {
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.hud(),
		m.styles.frame.Render(renderBoard(m.snap, m.styles)),
		m.banner(),
		m.styles.dim.Render("arrows/wasd turn · space pause · r restart · enter submit · tab region · l leaderboard · q quit"),
	)
	if !m.showBoard {
		return left + "\n"
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", m.leaderboardPanel()) + "\n"
}

func (m Model) hud() string {
	field := func(label string, value any) string {
		return m.styles.label.Render(label+" ") + m.styles.value.Render(fmt.Sprint(value))
	}
	return strings.Join([]string{
		field("Score", m.snap.Score),
		field("Best", m.snap.Best),
		field("Speed", fmt.Sprintf("%dms", m.snap.IntervalMs)),
		field("Mode", m.snap.Difficulty+"/"+m.snap.Map),
		field("Region", m.Region()),
	}, "   ")
}

func (m Model) banner() string {
	var text string
	switch m.snap.Status {
	case engine.Idle:
		text = "Press space or R to start"
	case engine.Paused:
		text = "Paused"
	case engine.GameOver:
		text = fmt.Sprintf("Game over: hit %s. Score %d. Press R to restart", m.snap.Cause, m.snap.Score)
	}
	if m.flash != "" {
		if text != "" {
			text += "   "
		}
		return m.styles.banner.Render(text) + m.styles.flash.Render(m.flash)
	}
	return m.styles.banner.Render(text)
}

func (m Model) leaderboardPanel() string {
	var b strings.Builder
	b.WriteString(m.styles.banner.Render("Leaderboard"))
	b.WriteString("\n")
	if len(m.entries) == 0 {
		b.WriteString(m.styles.dim.Render("no scores yet"))
	}
	for i, e := range m.entries {
		if i == boardPanelRows {
			break
		}
		line := fmt.Sprintf("%2d. %s %6d", i+1, e.Region, e.Score)
		if e.Region == m.Region() {
			line = m.styles.value.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return m.styles.panel.Render(strings.TrimRight(b.String(), "\n"))
}

// renderBoard draws the snapshot as rows of two-column cells.
func renderBoard(s engine.Snapshot, st styles) string {
	if s.Columns <= 0 || s.Rows <= 0 {
		return ""
	}
	type cell int
	const (
		empty cell = iota
		wall
		food
		gold
		body
		head
	)
	grid := make([][]cell, s.Rows)
	for y := range grid {
		grid[y] = make([]cell, s.Columns)
	}
	put := func(p game.Point, c cell) {
		if p.X >= 0 && p.X < s.Columns && p.Y >= 0 && p.Y < s.Rows {
			grid[p.Y][p.X] = c
		}
	}
	for _, p := range s.Obstacles {
		put(p, wall)
	}
	if s.Food != nil {
		if s.Food.Tier == game.Gold {
			put(s.Food.Cell, gold)
		} else {
			put(s.Food.Cell, food)
		}
	}
	for i := len(s.Snake) - 1; i >= 0; i-- {
		if i == 0 {
			put(s.Snake[i], head)
		} else {
			put(s.Snake[i], body)
		}
	}

	var b strings.Builder
	for y, row := range grid {
		for _, c := range row {
			switch c {
			case wall:
				b.WriteString(st.wall.Render(cellSolid))
			case food:
				b.WriteString(st.food.Render(cellFood))
			case gold:
				b.WriteString(st.gold.Render(cellGold))
			case body:
				b.WriteString(st.body.Render(cellSolid))
			case head:
				b.WriteString(st.head.Render(cellSolid))
			default:
				b.WriteString(st.empty.Render(cellEmpty))
			}
		}
		if y < len(grid)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
