package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	doc2pub "github.com/alnah/go-doc2pub"
	"github.com/alnah/go-doc2pub/internal/fileutil"
)

var (
	menuTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	menuMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	menuErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	menuOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	menuPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	menuSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

// runInteractive lets the user pick files from the input directory.
// A terminal gets the full-screen menu; anything else gets line prompts.
func runInteractive(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseCommonFlags("interactive", args, printInteractiveUsage, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) > 0 {
		return ErrTooManyArgs
	}

	a, err := newApp(*flags, env, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := ensureInputDir(a.cfg.Directories.Input); err != nil {
		return err
	}

	if env.IsTTY() {
		// Logs would tear the alternate screen; failures show in the menu.
		conv, err := a.converter(newLogger(io.Discard, *flags))
		if err != nil {
			return err
		}
		return runMenu(ctx, conv, a.cfg.Directories.Input, env)
	}

	conv, err := a.converter(nil)
	if err != nil {
		return err
	}
	return runLineMenu(ctx, conv, a.cfg.Directories.Input, env.Stdin, env.Stdout)
}

// ---------------------------------------------------------------------------
// Line mode
// ---------------------------------------------------------------------------

// runLineMenu reads selections line by line: a number converts that file,
// r reloads the listing and q (or end of input) quits.
func runLineMenu(ctx context.Context, conv Converter, dir string, in io.Reader, out io.Writer) error {
	files, err := fileutil.ListFiles(dir)
	if err != nil {
		return err
	}
	printFileList(out, dir, files)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nSelect a file number, r to reload, q to quit: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		choice := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(choice) {
		case "q", "quit", "exit":
			return nil
		case "r", "reload":
			if files, err = fileutil.ListFiles(dir); err != nil {
				return err
			}
			printFileList(out, dir, files)
			continue
		case "":
			continue
		}

		n, err := strconv.Atoi(choice)
		if err != nil || n < 1 || n > len(files) {
			fmt.Fprintf(out, "Invalid choice %q\n", choice)
			continue
		}

		fmt.Fprintf(out, "Converting %s...\n", files[n-1])
		art, err := conv.Convert(ctx, filepath.Join(dir, files[n-1]), "")
		if err != nil {
			fmt.Fprintf(out, "FAILED %s: %s\n", files[n-1], describeError(err))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		fmt.Fprintf(out, "Created %s\n", art.Path)
	}
}

// ---------------------------------------------------------------------------
// Terminal menu
// ---------------------------------------------------------------------------

type menuModel struct {
	ctx      context.Context
	conv     Converter
	inputDir string

	files   []string
	cursor  int
	typed   string // file number being typed, confirmed with enter
	busy    bool
	spinner spinner.Model
	width   int

	status   string
	statusOK bool
	fatalErr error
}

type filesLoadedMsg struct {
	files []string
	err   error
}

type convertedMsg struct {
	name     string
	artifact *doc2pub.Artifact
	err      error
}

func newMenuModel(ctx context.Context, conv Converter, inputDir string) menuModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return menuModel{ctx: ctx, conv: conv, inputDir: inputDir, spinner: s}
}

func runMenu(ctx context.Context, conv Converter, inputDir string, env *Environment) error {
	p := tea.NewProgram(newMenuModel(ctx, conv, inputDir),
		tea.WithAltScreen(), tea.WithContext(ctx),
		tea.WithInput(env.Stdin), tea.WithOutput(env.Stdout))
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	if m, ok := final.(menuModel); ok {
		return m.fatalErr
	}
	return nil
}

func (m menuModel) Init() tea.Cmd {
	return tea.Batch(loadFilesCmd(m.inputDir), m.spinner.Tick)
}

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case filesLoadedMsg:
		if msg.err != nil {
			m.fatalErr = msg.err
			return m, tea.Quit
		}
		m.files = msg.files
		m.cursor = min(m.cursor, max(len(m.files)-1, 0))
		return m, nil
	case convertedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "FAILED " + msg.name + ": " + describeError(msg.err)
			m.statusOK = false
		} else {
			m.status = "Created " + msg.artifact.Path
			m.statusOK = true
		}
		return m, loadFilesCmd(m.inputDir)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m menuModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}

	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		return m.typeDigit(key), nil
	}
	if m.typed != "" {
		switch key {
		case "enter":
			return m.startTyped()
		case "backspace":
			m.typed = m.typed[:len(m.typed)-1]
			return m, nil
		case "esc":
			m.typed = ""
			return m, nil
		}
		m.typed = ""
	}

	switch key {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.files)-1 {
			m.cursor++
		}
	case "r":
		m.status = ""
		return m, loadFilesCmd(m.inputDir)
	case "enter", " ":
		return m.start(m.cursor)
	}
	return m, nil
}

// typeDigit extends the typed number and moves the cursor to it when it
// names a file.
func (m menuModel) typeDigit(d string) menuModel {
	if len(m.typed) >= 6 || (m.typed == "" && d == "0") {
		return m
	}
	m.typed += d
	if n, err := strconv.Atoi(m.typed); err == nil && n >= 1 && n <= len(m.files) {
		m.cursor = n - 1
	}
	return m
}

// startTyped converts the file whose number was typed.
func (m menuModel) startTyped() (tea.Model, tea.Cmd) {
	choice := m.typed
	m.typed = ""
	n, err := strconv.Atoi(choice)
	if err != nil || n < 1 || n > len(m.files) {
		m.status = fmt.Sprintf("Invalid choice %q", choice)
		m.statusOK = false
		return m, nil
	}
	m.cursor = n - 1
	return m.start(m.cursor)
}

// start converts files[idx] in the background.
func (m menuModel) start(idx int) (tea.Model, tea.Cmd) {
	if idx < 0 || idx >= len(m.files) {
		return m, nil
	}
	name := m.files[idx]
	m.busy = true
	m.status = "Converting " + name
	return m, convertCmd(m.ctx, m.conv, filepath.Join(m.inputDir, name), name)
}

func (m menuModel) View() string {
	var b strings.Builder
	b.WriteString(menuTitleStyle.Render("doc2pub") + menuMutedStyle.Render("  "+m.inputDir))
	b.WriteString("\n\n")

	lines := make([]string, 0, len(m.files))
	if len(m.files) == 0 {
		lines = append(lines, menuMutedStyle.Render("No files yet. Drop documents in the input directory and press r."))
	}
	for i, name := range m.files {
		line := fmt.Sprintf("%3d. %s", i+1, name)
		if i == m.cursor {
			line = menuSelStyle.Render(line)
		}
		lines = append(lines, line)
	}
	panel := menuPanelStyle
	if m.width > 4 {
		panel = panel.Width(m.width - 4)
	}
	b.WriteString(panel.Render(strings.Join(lines, "\n")))
	b.WriteString("\n")

	switch {
	case m.busy:
		b.WriteString(m.spinner.View() + " " + m.status)
	case m.status != "" && m.statusOK:
		b.WriteString(menuOKStyle.Render(m.status))
	case m.status != "":
		b.WriteString(menuErrorStyle.Render(m.status))
	}
	b.WriteString("\n")
	if m.typed != "" {
		b.WriteString(menuTitleStyle.Render("#"+m.typed) + menuMutedStyle.Render("  enter convert  esc cancel"))
	} else {
		b.WriteString(menuMutedStyle.Render("enter convert  number+enter pick  r reload  q quit"))
	}
	return b.String()
}

func loadFilesCmd(dir string) tea.Cmd {
	return func() tea.Msg {
		files, err := fileutil.ListFiles(dir)
		return filesLoadedMsg{files: files, err: err}
	}
}

func convertCmd(ctx context.Context, conv Converter, path, name string) tea.Cmd {
	return func() tea.Msg {
		art, err := conv.Convert(ctx, path, "")
		return convertedMsg{name: name, artifact: art, err: err}
	}
}
