package client

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/Tyrowin/chatrelay/internal/chat"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// Renderer prints envelopes for a human reader and remembers the latest
// presence so /users can show it on demand.
type Renderer struct {
	out     io.Writer
	colours bool

	mu    sync.Mutex
	count int
	users []string
}

// NewRenderer returns a Renderer writing to out, colorized when colours is set.
func NewRenderer(out io.Writer, colours bool) *Renderer {
	return &Renderer{out: out, colours: colours}
}

func (r *Renderer) paint(line string, style ...color.Color) string {
	if !r.colours {
		return line
	}
	return color.New(style...).Render(line)
}

// Render prints one envelope. A user_list is stored rather than printed.
func (r *Renderer) Render(env chat.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e := env.(type) {
	case chat.JoinResponse:
		if e.Success {
			fmt.Fprintln(r.out, r.paint("Joined as "+e.Name, color.FgGreen))
		} else {
			fmt.Fprintln(r.out, r.paint("Join failed: "+e.Error+" (try another name)", color.FgRed))
		}
	case chat.ChatMessage:
		line := fmt.Sprintf("[%s] %s: %s", e.Timestamp, e.User, e.Message)
		if e.User == chat.SystemUser {
			line = r.paint(line, color.FgCyan, color.OpItalic)
		}
		fmt.Fprintln(r.out, line)
	case chat.UserCount:
		r.count = e.Count
		fmt.Fprintln(r.out, r.paint(strconv.Itoa(e.Count)+" online", color.FgYellow))
	case chat.UserList:
		r.users = append([]string(nil), e.Users...)
	}
}

// RenderText prints a frame the client could not decode.
func (r *Renderer) RenderText(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, text)
}

// RenderUsers prints the last received user count and user list as a table.
func (r *Renderer) RenderUsers() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.users) == 0 {
		fmt.Fprintln(r.out, "Nobody has joined yet")
		return
	}

	fmt.Fprintf(r.out, "%d online\n", r.count)
	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"#", "Name"})
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(lo.Map(r.users, func(name string, i int) []string {
		return []string{strconv.Itoa(i + 1), name}
	}))
	table.Render()
}

// Users returns the last received user list.
func (r *Renderer) Users() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.users...)
}
