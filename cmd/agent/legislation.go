package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"kb-agent/internal/bootstrap"
	"kb-agent/internal/config"
	"kb-agent/pkg/llm"
	"kb-agent/pkg/rag/state"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const prompt = "Enter a question (or 'quit' to exit): "

var quitWords = map[string]bool{"quit": true, "exit": true, "q": true}

func newLegislationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "legislation",
		Short: "Ask one question about municipal legislation",
		Args:  cobra.NoArgs,
		RunE: withContainer(func(ctx context.Context, _ *config.Config, c *bootstrap.Container, cmd *cobra.Command, _ []string) error {
			ask := func(ctx context.Context, question string) (llm.Message, error) {
				out, err := c.Pipeline.Execute(ctx, state.New(question))
				if err != nil {
					return llm.Message{}, err
				}
				last, _ := out.LastMessage()
				return last, nil
			}
			return askOnce(ctx, os.Stdin, cmd.OutOrStdout(), ask)
		}),
	}
}

type askFunc func(ctx context.Context, question string) (llm.Message, error)

// askOnce reads a single question from in, answers it and prints the final
// message. Empty input does nothing; quit words and EOF/interrupt end quietly.
func askOnce(ctx context.Context, in io.Reader, out io.Writer, ask askFunc) error {
	fmt.Fprint(out, prompt)

	line, err := readLine(ctx, in)
	if err != nil {
		fmt.Fprintln(out, "\nExiting.")
		return nil
	}

	question := strings.TrimSpace(line)
	if question == "" {
		return nil
	}
	if quitWords[strings.ToLower(question)] {
		fmt.Fprintln(out, "Goodbye!")
		return nil
	}

	answer, err := ask(ctx, question)
	if err != nil {
		return err
	}

	printMessage(out, answer)
	return nil
}

// readLine returns the next line, or an error on EOF or when ctx is cancelled.
func readLine(ctx context.Context, in io.Reader) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		if errors.Is(err, io.EOF) && line != "" {
			err = nil
		}
		ch <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.line, r.err
	}
}

func printMessage(out io.Writer, msg llm.Message) {
	const title = " Ai Message "
	pad := strings.Repeat("=", (80-len(title))/2)

	header := color.New(color.FgCyan, color.Bold)
	header.Fprintln(out, pad+title+pad)
	fmt.Fprintln(out)
	fmt.Fprintln(out, msg.Content)
}
