package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/joho/godotenv"

	"github.com/sunwoolee/simvoice/internal/bus"
	"github.com/sunwoolee/simvoice/internal/catalog"
	"github.com/sunwoolee/simvoice/internal/dispatcher"
	"github.com/sunwoolee/simvoice/internal/interpreter"
	"github.com/sunwoolee/simvoice/internal/llm"
	"github.com/sunwoolee/simvoice/internal/session"
	"github.com/sunwoolee/simvoice/internal/transcript"
	"github.com/sunwoolee/simvoice/internal/tts"
	"github.com/sunwoolee/simvoice/internal/ui"
)

// app wires the pipeline: catalog → interpreter → dispatcher → session, with
// the bus, transcript, display, and speaker around it.
type app struct {
	catalog *catalog.Catalog
	session *session.Session
	interp  *interpreter.Interpreter
	disp    *dispatcher.Dispatcher
	bus     *bus.Bus
	speaker tts.Speaker
	log     *transcript.Writer
}

func main() {
	// Load env
	_ = godotenv.Load(".env")

	// Resolve cache dir
	homeDir, _ := os.UserHomeDir()
	cacheDir := filepath.Join(homeDir, ".cache", "simvoice")

	b := bus.New()

	w := transcript.New(cacheDir)
	go w.Consume(b.Tap())

	cat := catalog.New()
	sess := session.New(cat.Total())
	speaker := tts.Console{}

	a := &app{
		catalog: cat,
		session: sess,
		interp:  interpreter.New(cat, llm.New()),
		disp:    dispatcher.New(sess, cat, speaker, b),
		bus:     b,
		speaker: speaker,
		log:     w,
	}

	// Context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nsimvoice: shutting down")
		cancel()
	}()

	display := ui.New()
	display.Attach(b)
	go display.Run(ctx)

	if len(os.Args) > 1 && os.Args[1] != "" {
		// One-shot mode: start a session, run one command, exit.
		a.startSession(ctx)
		input := strings.Join(os.Args[1:], " ")
		err := a.runCommand(ctx, input)
		cancel()
		// Let the transcript consumer drain before the file closes.
		time.Sleep(200 * time.Millisecond)
		w.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	a.runREPL(ctx, cacheDir, cancel)
	time.Sleep(200 * time.Millisecond)
	w.Close()
}

func (a *app) runREPL(ctx context.Context, cacheDir string, cancel context.CancelFunc) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "simvoice> ",
		HistoryFile:     filepath.Join(cacheDir, "readline_history"),
		InterruptPrompt: "^C",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	defer rl.Close()

	fmt.Println("simvoice — 심리검사 음성 인터페이스 ('start'로 검사 시작, 'exit'으로 종료)")

	for {
		if ctx.Err() != nil {
			return
		}
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				cancel()
				return
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		switch input {
		case "exit", "quit":
			cancel()
			return
		case "start":
			a.startSession(ctx)
			continue
		case "reset":
			a.session.Reset()
			a.bus.Publish(bus.EvtSessionReset, "", "", nil)
			fmt.Println("검사를 초기화했습니다. 'start'로 다시 시작하세요.")
			continue
		case "finish":
			if a.session.Status() != session.StatusInProgress {
				fmt.Println("진행 중인 검사가 없습니다.")
				continue
			}
			a.session.CompleteTest()
			a.bus.Publish(bus.EvtTestCompleted, a.session.ID(), "조기 종료", a.session.Snapshot())
			fmt.Println("검사를 종료했습니다.")
			continue
		case "history":
			a.printHistory()
			continue
		}

		if n, ok := parseUncheck(input); ok {
			if err := a.session.RemoveAnswer(n); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			a.bus.Publish(bus.EvtAnswerRemoved, a.session.ID(), strconv.Itoa(n), nil)
			fmt.Printf("%d번 답변을 제거했습니다.\n", n)
			a.printCard()
			continue
		}

		if a.session.Status() == session.StatusIdle {
			fmt.Println("진행 중인 검사가 없습니다. 'start'로 시작하세요.")
			continue
		}
		if err := a.runCommand(ctx, input); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

// startSession begins a fresh run and reads the first question aloud.
func (a *app) startSession(ctx context.Context) {
	a.session.Start()
	a.bus.Publish(bus.EvtSessionStarted, a.session.ID(), "", a.session.Snapshot())
	a.printCard()
	if q, ok := a.catalog.Lookup(a.session.Current()); ok {
		if err := a.speaker.Speak(ctx, tts.QuestionWithChoices(q), tts.Options{}); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

// runCommand is one pipeline turn: publish the raw text, interpret it
// against the current snapshot, dispatch the action, print the feedback.
func (a *app) runCommand(ctx context.Context, text string) error {
	a.bus.Publish(bus.EvtCommandReceived, a.session.ID(), text, nil)

	snap := a.session.Snapshot()
	act, err := a.interp.Interpret(ctx, text, interpreter.Context{
		CurrentQuestion: snap.CurrentQuestion,
		TotalQuestions:  snap.TotalQuestions,
		AnsweredCount:   snap.AnsweredCount,
		Progress:        snap.Progress,
	})
	if err != nil {
		a.bus.Publish(bus.EvtCommandError, a.session.ID(), err.Error(), nil)
		return err
	}
	a.bus.Publish(bus.EvtActionParsed, a.session.ID(), string(act.Kind), act)

	lines, err := a.disp.Dispatch(ctx, act)
	for _, l := range lines {
		fmt.Println("  " + l)
	}
	if err != nil {
		return err
	}
	a.printCard()
	return nil
}

func (a *app) printCard() {
	snap := a.session.Snapshot()
	q, ok := a.catalog.Lookup(snap.CurrentQuestion)
	if !ok {
		return
	}
	answer, _ := a.session.Answer(snap.CurrentQuestion)
	fmt.Println(ui.QuestionCard(q, snap.CurrentQuestion, snap.TotalQuestions, snap.AnsweredCount, snap.Progress, answer))
}

// parseUncheck recognizes the "uncheck <n>" builtin.
func parseUncheck(input string) (int, bool) {
	fields := strings.Fields(input)
	if len(fields) != 2 || fields[0] != "uncheck" {
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func (a *app) printHistory() {
	entries := a.log.Recent(10)
	if len(entries) == 0 {
		fmt.Println("명령 기록이 없습니다.")
		return
	}
	for i, e := range entries {
		fmt.Printf("  [%d] %s  %s\n", i+1, e.Timestamp.Format("15:04:05"), e.Text)
	}
}
