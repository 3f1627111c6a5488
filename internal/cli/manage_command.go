package cli

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"bulkgen/internal/config"
	"bulkgen/internal/model"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type manageMode int

const (
	manageModeBrowse manageMode = iota
	manageModeForm
	manageModeDeleteConfirm
)

type manageFormKind int

const (
	manageFormKindSection manageFormKind = iota
	manageFormKindLayer
	manageFormKindGlobal
)

type manageFieldKind int

const (
	manageFieldString manageFieldKind = iota
	manageFieldInt
	manageFieldBool
)

type manageFormField struct {
	Key      string
	Label    string
	Help     string
	Kind     manageFieldKind
	Value    string
	Required bool
}

type manageForm struct {
	Kind   manageFormKind
	Title  string
	IsEdit bool
	EditID string
	Fields []manageFormField
	Index  int
	Input  textinput.Model
	Error  string
}

type manageItemKind int

const (
	manageItemSection manageItemKind = iota
	manageItemLayer
)

type manageItem struct {
	Kind manageItemKind
	ID   string
}

type manageModel struct {
	configPath string
	doc        config.Document
	items      []manageItem
	cursor     int
	width      int
	height     int
	mode       manageMode
	form       *manageForm

	confirmDelete manageItem
	statusMessage string
	fatalErr      error
}

var (
	manageTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	manageMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	manageErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	manageOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	managePanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	manageSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

func runManage(args []string) error {
	fs := flag.NewFlagSet("manage", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "bulk config path")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !stdinIsTTY() {
		return errors.New("manage requires an interactive terminal (TTY)")
	}

	doc, err := config.Load(strings.TrimSpace(*configPath))
	if err != nil {
		return err
	}
	m := manageModel{
		configPath: strings.TrimSpace(*configPath),
		doc:        doc,
		mode:       manageModeBrowse,
	}
	m.rebuildItems()

	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "tty") {
			return errors.New("manage requires an interactive terminal (TTY)")
		}
		return err
	}
	if fm, ok := finalModel.(manageModel); ok && fm.fatalErr != nil {
		return fm.fatalErr
	}
	return nil
}

func (m *manageModel) rebuildItems() {
	m.items = m.items[:0]
	for _, s := range m.doc.Bulk.Sections {
		m.items = append(m.items, manageItem{Kind: manageItemSection, ID: s.ID})
	}
	for _, l := range m.doc.Bulk.Layers {
		m.items = append(m.items, manageItem{Kind: manageItemLayer, ID: l.ID})
	}
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m manageModel) Init() tea.Cmd { return nil }

func (m manageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch m.mode {
		case manageModeBrowse:
			return m.updateBrowse(msg)
		case manageModeForm:
			return m.updateForm(msg)
		case manageModeDeleteConfirm:
			return m.updateDeleteConfirm(msg)
		}
	}
	return m, nil
}

func (m manageModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "s":
		m.openForm(newSectionForm(nil))
	case "l":
		m.openForm(newLayerForm(nil))
	case "g":
		m.openForm(newGlobalForm(m.doc.Bulk))
	case "enter", "e":
		if len(m.items) == 0 {
			break
		}
		item := m.items[m.cursor]
		switch item.Kind {
		case manageItemSection:
			if i := config.FindSection(m.doc.Bulk, item.ID); i >= 0 {
				m.openForm(newSectionForm(&m.doc.Bulk.Sections[i]))
			}
		case manageItemLayer:
			if i := config.FindLayer(m.doc.Bulk, item.ID); i >= 0 {
				m.openForm(newLayerForm(&m.doc.Bulk.Layers[i]))
			}
		}
	case "d":
		if len(m.items) == 0 {
			break
		}
		m.confirmDelete = m.items[m.cursor]
		m.mode = manageModeDeleteConfirm
	}
	return m, nil
}

func (m *manageModel) openForm(f *manageForm) {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 0
	input.SetValue(f.Fields[0].Value)
	input.Focus()
	f.Input = input
	m.form = f
	m.mode = manageModeForm
	m.statusMessage = ""
}

func (m manageModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.form
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.form = nil
		m.mode = manageModeBrowse
		return m, nil
	case "enter":
		f.Fields[f.Index].Value = f.Input.Value()
		if err := validateField(f.Fields[f.Index]); err != nil {
			f.Error = err.Error()
			return m, nil
		}
		f.Error = ""
		if f.Index < len(f.Fields)-1 {
			f.Index++
			f.Input.SetValue(f.Fields[f.Index].Value)
			f.Input.CursorEnd()
			return m, nil
		}
		if err := m.applyForm(f); err != nil {
			f.Error = err.Error()
			return m, nil
		}
		m.form = nil
		m.mode = manageModeBrowse
		m.rebuildItems()
		return m, nil
	case "shift+tab", "up":
		f.Fields[f.Index].Value = f.Input.Value()
		if f.Index > 0 {
			f.Index--
			f.Input.SetValue(f.Fields[f.Index].Value)
			f.Input.CursorEnd()
		}
		return m, nil
	}
	var cmd tea.Cmd
	f.Input, cmd = f.Input.Update(msg)
	return m, cmd
}

func (m manageModel) updateDeleteConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		item := m.confirmDelete
		switch item.Kind {
		case manageItemSection:
			if i := config.FindSection(m.doc.Bulk, item.ID); i >= 0 {
				name := m.doc.Bulk.Sections[i].Name
				m.doc.Bulk.Sections = append(m.doc.Bulk.Sections[:i], m.doc.Bulk.Sections[i+1:]...)
				m.statusMessage = "deleted section " + name
			}
		case manageItemLayer:
			if i := config.FindLayer(m.doc.Bulk, item.ID); i >= 0 {
				name := m.doc.Bulk.Layers[i].Name
				m.doc.Bulk.Layers = append(m.doc.Bulk.Layers[:i], m.doc.Bulk.Layers[i+1:]...)
				m.statusMessage = "deleted layer " + name
			}
		}
		if err := config.Save(m.configPath, m.doc); err != nil {
			m.fatalErr = err
			return m, tea.Quit
		}
		m.mode = manageModeBrowse
		m.rebuildItems()
		return m, nil
	case "n", "N", "esc", "q":
		m.mode = manageModeBrowse
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m *manageModel) applyForm(f *manageForm) error {
	get := func(key string) string {
		for _, fl := range f.Fields {
			if fl.Key == key {
				return strings.TrimSpace(fl.Value)
			}
		}
		return ""
	}

	switch f.Kind {
	case manageFormKindSection:
		s := model.Section{
			ID:          f.EditID,
			Name:        get("name"),
			PromptText:  get("prompt"),
			MemberTexts: dedupeStrings(splitCSV(get("members"))),
		}
		if len(s.MemberTexts) == 0 {
			return errors.New("section needs at least one member")
		}
		if s.ID == "" {
			s.ID = config.NewID()
			m.doc.Bulk.Sections = append(m.doc.Bulk.Sections, s)
		} else if i := config.FindSection(m.doc.Bulk, s.ID); i >= 0 {
			m.doc.Bulk.Sections[i] = s
		}
		m.statusMessage = "saved section " + s.Name
	case manageFormKindLayer:
		l := model.CommonalityLayer{
			ID:             f.EditID,
			Name:           get("name"),
			FilterText:     get("filter"),
			CaseSensitive:  parseBoolField(get("case_sensitive")),
			FilenameSuffix: get("suffix"),
			PromptSnippet:  get("snippet"),
		}
		if l.PromptSnippet == "" && l.FilenameSuffix == "" {
			return errors.New("layer needs a snippet and/or a suffix")
		}
		if l.ID == "" {
			l.ID = config.NewID()
			m.doc.Bulk.Layers = append(m.doc.Bulk.Layers, l)
		} else if i := config.FindLayer(m.doc.Bulk, l.ID); i >= 0 {
			m.doc.Bulk.Layers[i] = l
		}
		m.statusMessage = "saved layer " + l.Name
	case manageFormKindGlobal:
		b := &m.doc.Bulk
		b.ModelID = get("model")
		b.AspectRatio = get("aspect_ratio")
		if n, err := strconv.Atoi(get("images")); err == nil && n >= 1 {
			b.ImagesPerCombination = n
		}
		b.GlobalPrompt = get("global_prompt")
		b.NegativePrompt = get("negative_prompt")
		b.FilenamePrefix = get("prefix")
		b.OutputDir = get("output_dir")
		b.UseSubfolders = parseBoolField(get("subfolders"))
		b.SubfolderExclusions = splitCSV(get("exclusions"))
		m.statusMessage = "saved settings"
	}

	return config.Save(m.configPath, m.doc)
}

func (m manageModel) View() string {
	switch m.mode {
	case manageModeForm:
		return m.viewForm()
	case manageModeDeleteConfirm:
		return m.viewDeleteConfirm()
	default:
		return m.viewBrowse()
	}
}

func (m manageModel) viewBrowse() string {
	var b strings.Builder
	b.WriteString(manageTitleStyle.Render("bulkgen manage"))
	b.WriteString("\n")
	b.WriteString(manageMutedStyle.Render(m.configPath))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		b.WriteString(manageMutedStyle.Render("no sections or layers yet"))
		b.WriteString("\n")
	}
	lastKind := manageItemKind(-1)
	for i, item := range m.items {
		if item.Kind != lastKind {
			if item.Kind == manageItemSection {
				b.WriteString(manageTitleStyle.Render("Sections"))
			} else {
				b.WriteString(manageTitleStyle.Render("Layers"))
			}
			b.WriteString("\n")
			lastKind = item.Kind
		}
		line := m.itemLine(item)
		if i == m.cursor {
			line = manageSelStyle.Render(line)
		}
		b.WriteString("  " + line + "\n")
	}

	b.WriteString("\n")
	if m.statusMessage != "" {
		b.WriteString(manageOKStyle.Render(m.statusMessage))
		b.WriteString("\n")
	}
	b.WriteString(manageMutedStyle.Render("s: new section  l: new layer  g: settings  enter: edit  d: delete  q: quit"))
	return b.String()
}

func (m manageModel) itemLine(item manageItem) string {
	switch item.Kind {
	case manageItemSection:
		if i := config.FindSection(m.doc.Bulk, item.ID); i >= 0 {
			s := m.doc.Bulk.Sections[i]
			return fmt.Sprintf("%s  (%d members)", s.Name, len(s.MemberTexts))
		}
	case manageItemLayer:
		if i := config.FindLayer(m.doc.Bulk, item.ID); i >= 0 {
			l := m.doc.Bulk.Layers[i]
			return fmt.Sprintf("%s  (filter %q)", l.Name, l.FilterText)
		}
	}
	return "?"
}

func (m manageModel) viewForm() string {
	f := m.form
	var b strings.Builder
	b.WriteString(manageTitleStyle.Render(f.Title))
	b.WriteString("\n\n")
	for i, fl := range f.Fields {
		marker := "  "
		value := fl.Value
		if i == f.Index {
			marker = "> "
			value = f.Input.View()
		} else if strings.TrimSpace(value) == "" {
			value = manageMutedStyle.Render("(empty)")
		}
		b.WriteString(fmt.Sprintf("%s%s: %s\n", marker, fl.Label, value))
		if i == f.Index && fl.Help != "" {
			b.WriteString(manageMutedStyle.Render("    " + fl.Help))
			b.WriteString("\n")
		}
	}
	if f.Error != "" {
		b.WriteString("\n")
		b.WriteString(manageErrorStyle.Render(f.Error))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(manageMutedStyle.Render("enter: next/save  up: previous  esc: cancel"))
	return managePanelStyle.Render(b.String())
}

func (m manageModel) viewDeleteConfirm() string {
	return managePanelStyle.Render(
		manageErrorStyle.Render("delete "+m.itemLine(m.confirmDelete)+"?") +
			"\n\n" + manageMutedStyle.Render("y: delete  n: keep"))
}

func newSectionForm(s *model.Section) *manageForm {
	f := &manageForm{
		Kind:  manageFormKindSection,
		Title: "New section",
		Fields: []manageFormField{
			{Key: "name", Label: "Name", Required: true},
			{Key: "prompt", Label: "Prompt text", Required: true},
			{Key: "members", Label: "Members", Help: "comma-separated combination texts", Required: true},
		},
	}
	if s != nil {
		f.Title = "Edit section: " + s.Name
		f.IsEdit = true
		f.EditID = s.ID
		f.Fields[0].Value = s.Name
		f.Fields[1].Value = s.PromptText
		f.Fields[2].Value = strings.Join(s.MemberTexts, ", ")
	}
	return f
}

func newLayerForm(l *model.CommonalityLayer) *manageForm {
	f := &manageForm{
		Kind:  manageFormKindLayer,
		Title: "New layer",
		Fields: []manageFormField{
			{Key: "name", Label: "Name", Required: true},
			{Key: "filter", Label: "Filter", Help: "substring matched against combination texts", Required: true},
			{Key: "case_sensitive", Label: "Case sensitive", Kind: manageFieldBool, Help: "yes/no", Value: "no"},
			{Key: "snippet", Label: "Prompt snippet"},
			{Key: "suffix", Label: "Filename suffix", Help: "appended to matching filenames, e.g. _fem"},
		},
	}
	if l != nil {
		f.Title = "Edit layer: " + l.Name
		f.IsEdit = true
		f.EditID = l.ID
		f.Fields[0].Value = l.Name
		f.Fields[1].Value = l.FilterText
		f.Fields[2].Value = boolFieldValue(l.CaseSensitive)
		f.Fields[3].Value = l.PromptSnippet
		f.Fields[4].Value = l.FilenameSuffix
	}
	return f
}

func newGlobalForm(b model.BulkConfig) *manageForm {
	return &manageForm{
		Kind:  manageFormKindGlobal,
		Title: "Settings",
		Fields: []manageFormField{
			{Key: "model", Label: "Model", Value: b.ModelID, Required: true},
			{Key: "aspect_ratio", Label: "Aspect ratio", Value: b.AspectRatio},
			{Key: "images", Label: "Images per combination", Kind: manageFieldInt, Value: strconv.Itoa(b.ImagesPerCombination)},
			{Key: "global_prompt", Label: "Global prompt", Value: b.GlobalPrompt},
			{Key: "negative_prompt", Label: "Negative prompt", Value: b.NegativePrompt},
			{Key: "prefix", Label: "Filename prefix", Value: b.FilenamePrefix},
			{Key: "output_dir", Label: "Output dir", Value: b.OutputDir, Required: true},
			{Key: "subfolders", Label: "Subfolders", Kind: manageFieldBool, Help: "yes/no", Value: boolFieldValue(b.UseSubfolders)},
			{Key: "exclusions", Label: "Subfolder exclusions", Help: "comma-separated tokens", Value: strings.Join(b.SubfolderExclusions, ", ")},
		},
	}
}

func validateField(f manageFormField) error {
	value := strings.TrimSpace(f.Value)
	if f.Required && value == "" {
		return fmt.Errorf("%s is required", f.Label)
	}
	switch f.Kind {
	case manageFieldInt:
		if value == "" {
			return nil
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("%s must be a number >= 1", f.Label)
		}
	case manageFieldBool:
		switch strings.ToLower(value) {
		case "", "y", "yes", "n", "no", "true", "false", "on", "off":
		default:
			return fmt.Errorf("%s must be yes or no", f.Label)
		}
	}
	return nil
}

func parseBoolField(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "on":
		return true
	default:
		return false
	}
}

func boolFieldValue(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
