package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/chzyer/readline"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

// newReviewCommand builds `deskloopctl review <id>`: an interactive
// walk through the Suggestion Lifecycle Manager's state machine (spec
// §4.4) — accept/reject, explain, an optional refine loop rendered as
// a diff of the generated script, then confirm-and-execute with status
// polling — following the teacher's readline-driven REPL shape
// (cmd/alex/interactive.go RunInteractive) plus promptui.Select for the
// fixed-choice transitions.
func newReviewCommand(newC func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "review <suggestion-id>",
		Short: "Interactively walk a suggestion from pending to execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(newC(), args[0])
		},
	}
}

func runReview(c *client, id string) error {
	ctx := context.Background()

	all, err := c.AllSuggestions(ctx)
	if err != nil {
		return err
	}
	var s *Suggestion
	for i := range all {
		if all[i].SuggestionID == id {
			s = &all[i]
			break
		}
	}
	if s == nil {
		return fmt.Errorf("no suggestion with id %q", id)
	}

	fmt.Printf("Suggestion %s [%s]\n\n", s.SuggestionID, s.Status)
	fmt.Println(strings.TrimRight(string(markdown.Render(s.PatternDescription, 88, 0)), "\n"))
	fmt.Println()

	rl, err := newReadline()
	if err != nil {
		return err
	}
	defer rl.Close()

	switch s.Status {
	case "pending":
		if err := reviewPending(ctx, c, id); err != nil {
			if err == errReviewDone {
				return nil
			}
			return err
		}
		fallthrough
	case "accepted":
		if s.Status == "accepted" || s.Status == "pending" {
			if err := reviewAccepted(ctx, c, rl, id); err != nil {
				return err
			}
		}
		fallthrough
	case "explained":
		return reviewExplained(ctx, c, rl, id)
	case "executing":
		return pollStatus(ctx, c, id)
	default:
		fmt.Printf("suggestion %s is already %s; nothing to do\n", id, s.Status)
		return nil
	}
}

func newReadline() (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           readline.NewCancelableStdin(os.Stdin),
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
	})
}

func reviewPending(ctx context.Context, c *client, id string) error {
	prompt := promptui.Select{
		Label: "pending suggestion: accept or reject?",
		Items: []string{"accept", "reject"},
	}
	_, choice, err := prompt.Run()
	if err != nil {
		return err
	}
	if choice == "reject" {
		if err := c.Reject(ctx, id); err != nil {
			return err
		}
		fmt.Println("rejected.")
		return errReviewDone
	}
	return c.Accept(ctx, id)
}

// errReviewDone short-circuits the fallthrough chain in runReview when
// a terminal choice (reject) ends the review early.
var errReviewDone = fmt.Errorf("review ended")

func reviewAccepted(ctx context.Context, c *client, rl *readline.Instance, id string) error {
	rl.SetPrompt("explanation> ")
	explanation, err := rl.Readline()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	res, err := c.Explain(ctx, id, strings.TrimSpace(explanation))
	if err != nil {
		return err
	}
	fmt.Println("\nGenerated script:")
	fmt.Println(res.Script)
	fmt.Println("\nSummary:")
	fmt.Println(res.Summary)
	return nil
}

func reviewExplained(ctx context.Context, c *client, rl *readline.Instance, id string) error {
	lastScript := currentScript(ctx, c, id)
	for {
		prompt := promptui.Select{
			Label: "script ready: confirm, refine, or reject?",
			Items: []string{"confirm", "refine", "reject"},
		}
		_, choice, err := prompt.Run()
		if err != nil {
			return err
		}
		switch choice {
		case "reject":
			if err := c.Reject(ctx, id); err != nil {
				return err
			}
			fmt.Println("rejected.")
			return nil
		case "refine":
			rl.SetPrompt("refinement> ")
			refinement, err := rl.Readline()
			if err == io.EOF {
				continue
			}
			if err != nil {
				return err
			}
			res, err := c.Refine(ctx, id, strings.TrimSpace(refinement))
			if err != nil {
				return err
			}
			fmt.Println("\n" + unifiedScriptDiff(lastScript, res.Script))
			lastScript = res.Script
			fmt.Println("\nSummary:")
			fmt.Println(res.Summary)
		case "confirm":
			if err := c.ConfirmAndExecute(ctx, id); err != nil {
				return err
			}
			return pollStatus(ctx, c, id)
		}
	}
}

// currentScript re-fetches the suggestion's generated_script so the
// first refine diff in reviewExplained compares against what explain
// actually produced, not an empty baseline.
func currentScript(ctx context.Context, c *client, id string) string {
	all, err := c.AllSuggestions(ctx)
	if err != nil {
		return ""
	}
	for _, s := range all {
		if s.SuggestionID == id {
			return s.GeneratedScript
		}
	}
	return ""
}

func pollStatus(ctx context.Context, c *client, id string) error {
	fmt.Println("executing...")
	for {
		st, err := c.SuggestionStatus(ctx, id)
		if err != nil {
			return err
		}
		switch st.Status {
		case "completed":
			fmt.Printf("completed. time saved: %ds\n", st.TimeSavedSeconds)
			return nil
		case "failed":
			fmt.Printf("failed: %s\n", st.ErrorDetails)
			if len(st.ExecutionResult) > 0 {
				var pretty map[string]any
				if json.Unmarshal(st.ExecutionResult, &pretty) == nil {
					b, _ := json.MarshalIndent(pretty, "", "  ")
					fmt.Println(string(b))
				}
			}
			return nil
		}
		time.Sleep(time.Second)
	}
}
