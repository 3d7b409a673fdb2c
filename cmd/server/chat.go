package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/chatguard-server/internal/proto"
)

var (
	chatAddr string
	chatUser string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive terminal chat client",
	Long: `Connects to a running server, sends each stdin line as a chat message and
prints broadcasts, system notices and the analysis of your own messages.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatAddr, "addr", "ws://localhost:8080/ws", "WebSocket base address")
	chatCmd.Flags().StringVar(&chatUser, "user", "cli-user", "username")
}

// frame is the union of every server frame the client renders.
type frame struct {
	Type          string                `json:"type"`
	Username      string                `json:"username"`
	Message       string                `json:"message"`
	IsToxic       bool                  `json:"is_toxic"`
	ToxicityScore float64               `json:"toxicity_score"`
	Analysis      *proto.AnalysisDetail `json:"analysis"`
	Coaching      *proto.Coaching       `json:"coaching"`
	Error         *proto.Error          `json:"error"`
}

func runChat(cmd *cobra.Command, _ []string) error {
	baseCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	target := strings.TrimRight(chatAddr, "/") + "/" + url.PathEscape(chatUser)
	conn, _, err := websocket.Dial(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connected to %s as %s\n", chatAddr, chatUser)
	fmt.Fprintln(out, "Type messages and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn, out)
	}()

	writeLoop(ctx, conn, cmd.InOrStdin())

	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn, out io.Writer) {
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			fmt.Fprintf(out, "read error: %v\n", err)
			return
		}
		render(out, f)
	}
}

func render(out io.Writer, f frame) {
	switch f.Type {
	case proto.OutboundTypeSystem:
		fmt.Fprintf(out, "* %s\n", f.Message)
	case proto.OutboundTypeMessage:
		flag := ""
		if f.IsToxic {
			flag = fmt.Sprintf(" [toxic %.2f]", f.ToxicityScore)
		}
		fmt.Fprintf(out, "%s: %s%s\n", f.Username, f.Message, flag)
	case proto.OutboundTypeAnalysis:
		if f.Analysis == nil {
			return
		}
		fmt.Fprintf(out, "  analysis: toxicity=%.3f intent=%s tone=%s\n",
			f.Analysis.Toxicity.Score, f.Analysis.Intent.Type, f.Analysis.Tone.Type)
		if f.Coaching != nil && f.Coaching.Message != nil {
			fmt.Fprintf(out, "  coaching: %s\n", *f.Coaching.Message)
		}
		if f.Coaching != nil && f.Coaching.SuggestedRewrite != nil {
			fmt.Fprintf(out, "  try instead: %s\n", *f.Coaching.SuggestedRewrite)
		}
	case proto.OutboundTypeError:
		if f.Error != nil {
			fmt.Fprintf(out, "! %s: %s\n", f.Error.Code, f.Error.Msg)
		}
	default:
		fmt.Fprintf(out, "type=%s message=%s\n", f.Type, f.Message)
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, in io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeMessage, Message: text}); err != nil {
				fmt.Fprintf(os.Stderr, "send error: %v\n", err)
				return
			}
		}
	}
}
