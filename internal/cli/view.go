package cli

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/patchgrid/patchgrid/pkg/layout"
)

// List styles.
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// viewCommand creates the view command for inspecting layouts in the terminal.
func (c *CLI) viewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view [layout]",
		Short: "Inspect a layout file interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lay, err := layout.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read layout: %w", err)
			}
			model := newLayoutViewModel(lay)
			_, err = tea.NewProgram(model).Run()
			return err
		},
	}
}

// layoutViewModel is the bubbletea model for browsing a layout's boxes.
type layoutViewModel struct {
	lay    layout.Layout
	boxes  []layout.Box
	cursor int
	height int
	offset int
}

func newLayoutViewModel(lay layout.Layout) layoutViewModel {
	boxes := slices.Clone(lay.Boxes)
	// Reading order: leftmost column first, top to bottom within it.
	slices.SortFunc(boxes, func(a, b layout.Box) int {
		if a.Column != b.Column {
			return a.Column - b.Column
		}
		if a.Y != b.Y {
			if a.Y < b.Y {
				return -1
			}
			return 1
		}
		return a.GroupID - b.GroupID
	})
	return layoutViewModel{
		lay:    lay,
		boxes:  boxes,
		height: 15,
	}
}

func (m layoutViewModel) Init() tea.Cmd {
	return nil
}

func (m layoutViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.boxes)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 8
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m layoutViewModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Layout"))
	b.WriteString(" ")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("%s · %d columns · %d boxes", m.lay.Mode, m.lay.Columns, len(m.boxes))))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  q quit"))
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.boxes) {
		end = len(m.boxes)
	}

	rows := [][]string{}
	for i := m.offset; i < end; i++ {
		box := m.boxes[i]

		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}

		split := ""
		if box.ForcedSplit {
			split = "✓"
		}

		rows = append(rows, []string{
			cursor,
			box.Name,
			box.Side,
			fmt.Sprintf("%d", box.Column),
			fmt.Sprintf("%.0f,%.0f", box.X, box.Y),
			split,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Group", "Side", "Col", "Position", "Split").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return lipgloss.NewStyle().Foreground(colorGray).Bold(true)
			}
			if m.offset+row == m.cursor {
				return listSelectedStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n")

	if len(m.boxes) > m.height {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("%d-%d of %d", m.offset+1, end, len(m.boxes))))
		b.WriteString("\n")
	}

	return b.String()
}
