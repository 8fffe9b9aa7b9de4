package scanner

import (
	"context"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Message is one match handed to the notifier.
type Message struct {
	Text string
	// Image is the url of the listing picture, empty when disabled or missing.
	Image string
}

// Batch is everything one scan found.
type Batch struct {
	Mention  string
	Messages []Message
}

// Notifier delivers a batch, it is only called after a scan succeeded.
type Notifier interface {
	Notify(ctx context.Context, batch Batch) error
}

// ConsoleNotifier prints batches as a table.
type ConsoleNotifier struct {
	out io.Writer
}

func NewConsoleNotifier(out io.Writer) ConsoleNotifier {
	return ConsoleNotifier{out: out}
}

func (n ConsoleNotifier) Notify(ctx context.Context, batch Batch) error {
	t := table.NewWriter()
	t.SetOutputMirror(n.out)
	if batch.Mention != "" {
		t.SetTitle("@" + batch.Mention)
	}
	t.AppendHeader(table.Row{"Match", "Image"})
	for _, msg := range batch.Messages {
		t.AppendRow(table.Row{strings.TrimRight(msg.Text, "\n"), msg.Image})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
