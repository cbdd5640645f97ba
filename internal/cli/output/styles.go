package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by the renderer. Colors are dropped
// automatically when the output is not a color terminal.
type Styles struct {
	Header  lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Pending lipgloss.Style
	Running lipgloss.Style
	Star    lipgloss.Style
}

// NewStyles builds the styles for one lipgloss renderer.
func NewStyles(re *lipgloss.Renderer) *Styles {
	return &Styles{
		Header:  re.NewStyle().Bold(true).Underline(true),
		Bold:    re.NewStyle().Bold(true),
		Muted:   re.NewStyle().Foreground(lipgloss.Color("8")),
		Success: re.NewStyle().Foreground(lipgloss.Color("2")),
		Error:   re.NewStyle().Foreground(lipgloss.Color("1")),
		Warning: re.NewStyle().Foreground(lipgloss.Color("3")),
		Info:    re.NewStyle().Foreground(lipgloss.Color("4")),
		Pending: re.NewStyle().Foreground(lipgloss.Color("8")),
		Running: re.NewStyle().Foreground(lipgloss.Color("6")),
		Star:    re.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// Status returns the style of a status label.
func (s *Styles) Status(label string) lipgloss.Style {
	switch label {
	case "success":
		return s.Success
	case "failure":
		return s.Error
	case "running":
		return s.Running
	default:
		return s.Pending
	}
}
