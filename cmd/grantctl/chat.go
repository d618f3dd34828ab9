package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/david/grantai/internal/ai"
	"github.com/david/grantai/internal/chat"
)

// directStreamer sends the conversation straight to the AI gateway with
// the assistant system prompt in front.
type directStreamer struct {
	llm *ai.Client
}

func (d directStreamer) Stream(ctx context.Context, messages []chat.Message) (io.ReadCloser, error) {
	out := make([]ai.Message, len(messages))
	for i, m := range messages {
		out[i] = ai.Message{Role: string(m.Role), Content: m.Content}
	}
	return d.llm.Stream(ctx, ai.WithSystemPrompt(out))
}

// printer writes the growing assistant reply to w, emitting only the part
// not yet shown.
type printer struct {
	w     io.Writer
	shown string
}

func (p *printer) update(m chat.Message) {
	if strings.HasPrefix(m.Content, p.shown) {
		fmt.Fprint(p.w, m.Content[len(p.shown):])
	} else {
		fmt.Fprint(p.w, "\n"+m.Content)
	}
	p.shown = m.Content
}

func chatCmd(a *app) *cobra.Command {
	var server, token string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the GrantAI assistant",
		Long: "Talk to the GrantAI assistant. Reads one message per line until EOF.\n" +
			"With --server the conversation goes through a running GrantAI server's chat relay.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var streamer chat.Streamer = directStreamer{llm: a.llm}
			if server != "" {
				streamer = chat.NewClient(strings.TrimRight(server, "/")+"/api/v1/me/chat", token)
			} else if !a.llm.Configured() {
				return errors.New("AI_API_KEY is not set; use --server to chat through a GrantAI server")
			}
			return chatLoop(cmd.Context(), chat.NewSession(streamer, a.log), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "GrantAI server base URL, e.g. http://localhost:8081")
	cmd.Flags().StringVar(&token, "token", "", "bearer token for --server")
	return cmd
}

func chatLoop(ctx context.Context, session *chat.Session, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "%s\n\n", chat.Greeting)
	fmt.Fprintln(out, "Try:")
	for _, q := range chat.QuickPrompts {
		fmt.Fprintf(out, "  %s\n", q)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		p := &printer{w: out}
		// A failed exchange already shows the fallback reply.
		err := session.Send(ctx, text, p.update)
		fmt.Fprintln(out)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
