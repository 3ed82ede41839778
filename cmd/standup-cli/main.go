package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"startup-standup-be/internal/bootstrap"
	"startup-standup-be/internal/config"
	"startup-standup-be/internal/pkg/logger"
	"startup-standup-be/pkg/dialogue"
	"startup-standup-be/pkg/events"
	pktNats "startup-standup-be/pkg/nats"
	"startup-standup-be/pkg/scenario"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

func main() {
	watch := flag.Bool("watch", false, "print completed sessions from NATS instead of playing")
	evaluatorChoice := flag.String("evaluator", "", "evaluator backend (gemini, openai, ollama)")
	timeLimit := flag.Int("time", 0, "time limit in seconds (30-600)")
	flag.Parse()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *watch {
		if err := runWatch(ctx, cfg.App.NatsURL); err != nil {
			log.Fatalf("[FATAL] %v", err)
		}
		return
	}

	if err := runTerminal(ctx, cfg, *evaluatorChoice, *timeLimit); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
}

func runTerminal(ctx context.Context, cfg *config.Config, choice string, limit int) error {
	catalog, err := scenario.LoadEmbedded(cfg.Scenario.Key)
	if err != nil {
		return err
	}
	sc, err := catalog.Default()
	if err != nil {
		return err
	}

	evaluators := bootstrap.NewEvaluatorRegistry(cfg, sc.Rubric)
	engine := dialogue.NewEngine(catalog, evaluators, logger.NewNopLogger(), dialogue.WithEvaluatorTimeout(cfg.Evaluator.Timeout))

	if limit == 0 {
		limit = cfg.Scenario.TimeLimitSeconds
	}
	session := dialogue.NewSession(uuid.NewString(), sc.Key, time.Now(), dialogue.ClampTimeLimit(limit), evaluators.ResolveName(choice))

	printIntro(sc, session, evaluators.ResolveName(choice))
	_, stage, err := engine.StartPayload(session)
	if err != nil {
		return err
	}
	printStage(stage)

	lines := readLines(os.Stdin)
	for !session.Completed {
		remaining := time.Until(session.Deadline())
		if remaining < 0 {
			remaining = 0
		}
		color.New(color.Faint).Printf("(%s left) ", remaining.Round(time.Second))
		fmt.Print("You: ")

		text, kind := awaitInput(ctx, lines, remaining)
		switch kind {
		case inputClosed:
			fmt.Println()
			return nil
		case inputQuit:
			color.Yellow("Leaving the conversation.")
			return nil
		case inputEmpty:
			continue
		case inputTimeout:
			// Deadline passed while waiting; the engine ends the session.
			fmt.Println()
		}

		session.Lock()
		res, err := engine.ProcessTurn(ctx, session, text, time.Now())
		session.Unlock()
		if err != nil {
			color.Red("Error: %v", err)
			continue
		}
		printResult(sc, res)
	}
	return nil
}

type inputKind int

const (
	inputText inputKind = iota
	inputEmpty
	inputQuit
	inputTimeout
	inputClosed
)

// awaitInput waits for the next line, giving up once remaining elapses.
func awaitInput(ctx context.Context, lines <-chan string, remaining time.Duration) (string, inputKind) {
	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", inputClosed
	case line, ok := <-lines:
		if !ok {
			return "", inputClosed
		}
		text := strings.TrimSpace(line)
		switch strings.ToLower(text) {
		case "exit", "quit", "q":
			return text, inputQuit
		case "":
			return "", inputEmpty
		}
		return text, inputText
	case <-timer.C:
		return "", inputTimeout
	}
}

// readLines feeds stdin lines to a channel so the prompt can give up at the
// deadline without waiting for Enter.
func readLines(r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		reader := bufio.NewReader(r)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				out <- line
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}

func printIntro(sc *scenario.Scenario, s *dialogue.Session, evaluatorName string) {
	color.Cyan("=== %s ===", sc.Title)
	if sc.Background != "" {
		fmt.Println(sc.Background)
	}
	if sc.NpcState != "" {
		color.New(color.Faint).Println(sc.NpcState)
	}
	color.New(color.Faint).Printf("Time limit: %ds | Evaluator: %s | type 'exit' to leave\n\n", s.TimeLimit, evaluatorName)
}

func printStage(stage *dialogue.StagePayload) {
	if stage == nil {
		return
	}
	color.Yellow("[Stage %d/%d] %s", stage.Index, stage.Total, stage.Title)
	if stage.Prompt != "" {
		fmt.Println(stage.Prompt)
	}
}

func printResult(sc *scenario.Scenario, res *dialogue.TurnResult) {
	if res.Reply != "" {
		color.Magenta("%s: %s", sc.NpcName, res.Reply)
	}
	if res.CoachPrompt != "" {
		color.Yellow("Coach: %s", res.CoachPrompt)
	}
	if res.System != "" {
		color.New(color.Faint).Println(res.System)
	}
	if !res.Completed {
		printStage(res.NextStage)
		return
	}

	fmt.Fprintln(color.Output)
	color.Cyan("Final rank: %s (%s)", res.FinalRank, res.Score)
	if res.Evaluation != "" {
		color.Cyan("--- Evaluation ---")
		fmt.Fprintln(color.Output, res.Evaluation)
	}
}

func runWatch(ctx context.Context, url string) error {
	sub, err := pktNats.NewSubscriber(url)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer sub.Close()

	color.Cyan("Watching %s on %s", pktNats.Subject(events.TypeSessionCompleted), url)
	err = sub.Subscribe(ctx, pktNats.Subject(events.TypeSessionCompleted), "", func(_ context.Context, event events.BaseEvent) error {
		color.Green("[%s] session %s completed", event.OccurredAt.Format(time.RFC3339), event.SessionID)
		for k, v := range event.Data {
			fmt.Printf("  %s: %v\n", k, v)
		}
		return nil
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}
