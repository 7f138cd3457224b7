package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pterm/pterm"

	"github.com/melih-ucgun/calswitch/internal/core"
)

// PtermUI is an implementation of core.UI and core.Notifier using pterm.
type PtermUI struct {
	mu     *sync.Mutex
	writer io.Writer
}

// NewPtermUI creates a new PtermUI instance.
func NewPtermUI() *PtermUI {
	return &PtermUI{mu: &sync.Mutex{}, writer: os.Stdout}
}

var (
	_ core.UI       = (*PtermUI)(nil)
	_ core.Notifier = (*PtermUI)(nil)
)

func (p *PtermUI) Section(title string) {
	pterm.DefaultSection.WithWriter(p.writer).Println(title)
}

func (p *PtermUI) Title(title string) {
	pterm.DefaultHeader.WithFullWidth().WithWriter(p.writer).Println(title)
}

func (p *PtermUI) Success(msg string) {
	pterm.Success.WithWriter(p.writer).Println(msg)
}

func (p *PtermUI) Info(msg string) {
	pterm.Info.WithWriter(p.writer).Println(msg)
}

func (p *PtermUI) Warning(msg string) {
	pterm.Warning.WithWriter(p.writer).Println(msg)
}

func (p *PtermUI) Error(msg string) {
	pterm.Error.WithWriter(p.writer).Println(msg)
}

func (p *PtermUI) Printf(format string, args ...interface{}) {
	fmt.Fprintf(p.writer, format, args...)
}

func (p *PtermUI) Println(args ...interface{}) {
	fmt.Fprintln(p.writer, args...)
}

func (p *PtermUI) WithWriter(w io.Writer) core.UI {
	return &PtermUI{mu: p.mu, writer: w}
}

// Notify prints a toast-style line. Notifications may arrive from several
// goroutines at once.
func (p *PtermUI) Notify(n core.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()

	printer := pterm.Info
	switch n.Level {
	case core.NotifyError:
		printer = pterm.Error
	case core.NotifyWarning:
		printer = pterm.Warning
	case core.NotifySuccess:
		printer = pterm.Success
	}
	printer.WithWriter(p.writer).Println(n.Message)
}
