package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/usecase/history"
	"github.com/m-mizutani/claimpilot/pkg/usecase/orchestrator"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const chatHelp = `Commands:
  /attach <file> [message]  send a claim document with an optional message
  /claim <id>               use <id> for the following messages, empty to reset
  /history                  show the conversation
  /clear                    clear the conversation
  exit                      leave the chat`

func chatCommand() *cli.Command {
	var (
		cfg         config
		claimID     string
		archive     bool
		historyFile string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "claim-id",
			Aliases:     []string{"id"},
			Usage:       "Claim ID attached to every message",
			Sources:     cli.EnvVars("CLAIMPILOT_CLAIM_ID"),
			Destination: &claimID,
		},
		&cli.BoolFlag{
			Name:        "archive",
			Usage:       "Archive the transcript to storage when the chat ends",
			Sources:     cli.EnvVars("CLAIMPILOT_ARCHIVE"),
			Destination: &archive,
		},
		&cli.StringFlag{
			Name:        "history-file",
			Usage:       "Readline input history file",
			Value:       filepath.Join(os.TempDir(), "claimpilot_history"),
			Sources:     cli.EnvVars("CLAIMPILOT_HISTORY_FILE"),
			Destination: &historyFile,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Talk to the claim agents interactively",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, a, err := start(ctx, &cfg)
			if err != nil {
				return err
			}
			defer a.close()

			if archive && a.store == nil {
				return goerr.New("archive requires bucket or storage-dir")
			}

			w := c.Root().Writer
			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "claimpilot> ",
				HistoryFile:     historyFile,
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				Stdout:          w,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			fmt.Fprintf(w, "Chat session started. Type /help for commands, 'exit' to quit.\n")

			session := &chatSession{orch: a.orch, w: w, claimID: model.ClaimID(claimID)}
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						break
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				line = strings.TrimSpace(line)
				if line == "exit" || line == "quit" {
					break
				}
				if line == "" {
					continue
				}
				session.handle(ctx, line)
			}

			if archive {
				turns := a.orch.History()
				if len(turns) == 0 {
					fmt.Fprintf(w, "\nChat session completed, nothing to archive\n")
					return nil
				}
				h, err := history.Save(ctx, a.store, turns, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "\nTranscript archived: %s\n", h.ID)
			}

			fmt.Fprintf(w, "\nChat session completed\n")
			return nil
		},
	}
}

type chatSession struct {
	orch    *orchestrator.Orchestrator
	w       io.Writer
	claimID model.ClaimID
}

func (s *chatSession) handle(ctx context.Context, line string) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		fmt.Fprintln(s.w, chatHelp)

	case "/claim":
		s.claimID = model.ClaimID(arg)
		if arg == "" {
			fmt.Fprintln(s.w, "Claim reset")
		} else {
			fmt.Fprintf(s.w, "Using claim %s\n", arg)
		}

	case "/history":
		printTurns(s.w, s.orch.History())

	case "/clear":
		s.orch.ClearHistory()
		fmt.Fprintln(s.w, "Conversation cleared")

	case "/attach":
		path, text, _ := strings.Cut(arg, " ")
		if path == "" {
			fmt.Fprintln(s.w, "usage: /attach <file> [message]")
			return
		}
		doc, err := readDocument(path, "")
		if err != nil {
			fmt.Fprintf(s.w, "%s\n", err.Error())
			return
		}
		if text = strings.TrimSpace(text); text == "" {
			text = "Process this document"
		}
		s.send(ctx, &orchestrator.Message{Text: text, ClaimID: s.claimID, Attachment: doc})

	default:
		s.send(ctx, &orchestrator.Message{Text: line, ClaimID: s.claimID})
	}
}

func (s *chatSession) send(ctx context.Context, msg *orchestrator.Message) {
	resp := s.orch.ProcessMessage(ctx, msg)
	if resp.AgentUsed != "" {
		fmt.Fprintf(s.w, "[%s]\n", resp.AgentUsed)
	}
	fmt.Fprintf(s.w, "%s\n\n", resp.Message)
}

func printTurns(w io.Writer, turns []model.Turn) {
	if len(turns) == 0 {
		fmt.Fprintln(w, "No conversation yet")
		return
	}
	for _, t := range turns {
		fmt.Fprintf(w, "%s [%s]\n%s\n\n", t.Timestamp.Format("15:04:05"), t.Role, t.Message)
	}
}
