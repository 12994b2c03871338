package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dd0wney/cluso-mapeditor/pkg/geoindex"
	"github.com/dd0wney/cluso-mapeditor/pkg/hierarchy"
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			MarginLeft(2).
			MarginTop(1)

	detailStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 1)

	danglingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type keyMap struct {
	Enter key.Binding
	Back  key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "ports"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.Back, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Enter, k.Back}, {k.Quit}}
}

// browser lists the containment tree one row per node; enter shows the ports
// of the selected asset with their indexed coordinates.
type browser struct {
	system *model.EnergySystem
	index  *geoindex.Index
	nodes  []hierarchy.Node
	table  table.Model
	help   help.Model
	keys   keyMap
	detail *model.Asset
	width  int
}

func newBrowser(es *model.EnergySystem, root *model.Area, idx *geoindex.Index) browser {
	var nodes []hierarchy.Node
	var rows []table.Row
	hierarchy.Walk(root, func(n hierarchy.Node) bool {
		nodes = append(nodes, n)
		rows = append(rows, nodeRow(n))
		return true
	})

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Name", Width: 32},
			{Title: "Kind", Width: 9},
			{Title: "Type", Width: 22},
			{Title: "ID", Width: 24},
			{Title: "Ports", Width: 5},
		}),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows), 20)+1),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF"))
	t.SetStyles(s)

	return browser{
		system: es,
		index:  idx,
		nodes:  nodes,
		table:  t,
		help:   help.New(),
		keys:   keys,
	}
}

func nodeRow(n hierarchy.Node) table.Row {
	indent := strings.Repeat("  ", n.Depth)
	switch n.Kind {
	case hierarchy.NodeArea:
		return table.Row{indent + label(n.Area.Name, n.Area.ID), "area", "", n.Area.ID, ""}
	case hierarchy.NodeBuilding:
		a := n.Asset
		return table.Row{indent + label(a.Name, a.ID), "building", string(a.Type), a.ID, fmt.Sprint(len(a.Ports))}
	default:
		a := n.Asset
		return table.Row{indent + label(a.Name, a.ID), "asset", string(a.Type), a.ID, fmt.Sprint(len(a.Ports))}
	}
}

func label(name, id string) string {
	if name == "" {
		return id
	}
	return name
}

func (b browser) Init() tea.Cmd {
	return nil
}

func (b browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.help.Width = msg.Width
		return b, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, b.keys.Quit):
			return b, tea.Quit
		case key.Matches(msg, b.keys.Back):
			b.detail = nil
			return b, nil
		case key.Matches(msg, b.keys.Enter):
			b.detail = b.selectedAsset()
			return b, nil
		}
	}

	var cmd tea.Cmd
	b.table, cmd = b.table.Update(msg)
	return b, cmd
}

// selectedAsset is nil when the cursor is on an area
func (b browser) selectedAsset() *model.Asset {
	i := b.table.Cursor()
	if i < 0 || i >= len(b.nodes) {
		return nil
	}
	return b.nodes[i].Asset
}

func (b browser) View() string {
	var s strings.Builder

	title := b.system.Name
	if title == "" {
		title = b.system.ID
	}
	s.WriteString(titleStyle.Render(fmt.Sprintf("%s  (%d ports indexed)", title, b.index.Len())))
	s.WriteString("\n\n")
	s.WriteString(b.table.View())

	if b.detail != nil {
		s.WriteString("\n\n")
		s.WriteString(detailStyle.Render(strings.Join(portLines(b.detail, b.index), "\n")))
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render(b.help.ShortHelpView(b.keys.ShortHelp())))
	return s.String()
}

// portLines describes every port of a: kind, indexed coordinate and partners.
// Partners missing from the index are marked dangling.
func portLines(a *model.Asset, idx *geoindex.Index) []string {
	lines := []string{fmt.Sprintf("%s %s", a.Type, label(a.Name, a.ID))}
	if a.IsConductor() {
		lines = append(lines, fmt.Sprintf("length %.1f m", a.Length))
	}
	if len(a.Ports) == 0 {
		return append(lines, "no ports")
	}
	for _, p := range a.Ports {
		at := "unindexed"
		if e, ok := idx.Lookup(p.ID); ok {
			at = e.Coord.String()
		}
		lines = append(lines, fmt.Sprintf("%-8s %s @ %s", p.Kind, p.ID, at))
		for _, target := range p.ConnectedTo {
			e, ok := idx.Lookup(target)
			if !ok {
				lines = append(lines, danglingStyle.Render("  -> "+target+" (dangling)"))
				continue
			}
			lines = append(lines, fmt.Sprintf("  -> %s on %s", target, e.AssetID))
		}
	}
	return lines
}
