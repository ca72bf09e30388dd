// Command console runs a booking conversation over text in the terminal,
// against the same prompt, tools and gateway the voice server uses.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/room4-2/staybot/booking"
	"github.com/room4-2/staybot/config"
	"github.com/room4-2/staybot/functions"
	"github.com/room4-2/staybot/gemini"
	"github.com/room4-2/staybot/logging"
	"github.com/room4-2/staybot/session"
	"github.com/room4-2/staybot/store"
)

func main() {
	model := flag.String("model", "", "Live model to use (defaults to GEMINI_MODEL)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(false, "warn")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, *model, logger); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, model string, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	gateway, closeGateway, err := store.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer closeGateway()

	machine, err := booking.NewMachine(booking.Options{
		Gateway:        gateway,
		Pricing:        cfg.Hotel.Pricing,
		Logger:         logger,
		PersistTimeout: cfg.Booking.PersistTimeout,
		SessionID:      "console",
	})
	if err != nil {
		return err
	}
	dispatcher := functions.NewDispatcher(machine, logger)

	prompt, err := session.BuildPrompt(session.PromptData{
		AssistantName: cfg.Hotel.AssistantName,
		HotelName:     cfg.Hotel.Name,
		Pricing:       cfg.Hotel.Pricing,
	})
	if err != nil {
		return err
	}

	proxy, err := gemini.NewProxy(ctx, cfg.GeminiAPIKey, logger)
	if err != nil {
		return err
	}
	defer proxy.Close()

	if model == "" {
		model = cfg.GeminiModel
	}
	if err := proxy.Setup(ctx, gemini.SetupOptions{
		Model:        model,
		SystemPrompt: prompt,
		Tools:        functions.Tools(cfg.Hotel.Pricing.MaxBeds),
		TextOnly:     true,
	}); err != nil {
		return err
	}

	done := make(chan struct{}, 1)
	proxy.OnText = func(text string) {
		fmt.Print(text)
	}
	proxy.OnComplete = func() {
		machine.Begin()
		fmt.Println()
		select {
		case done <- struct{}{}:
		default:
		}
	}
	proxy.OnToolCall = func(calls []*genai.FunctionCall) {
		for _, fc := range calls {
			fmt.Printf("\n🔧 %s %v\n", fc.Name, fc.Args)
		}
		responses := dispatcher.HandleAll(ctx, calls)
		for _, r := range responses {
			fmt.Printf("   ↳ %v\n", r.Response["output"])
		}
		if err := proxy.SendToolResponse(responses); err != nil {
			fmt.Fprintf(os.Stderr, "❌ tool response: %v\n", err)
		}
		fmt.Printf("   [%s]\n", machine.Step())
	}
	proxy.OnError = func(err error) {
		fmt.Fprintf(os.Stderr, "\n❌ %v\n", err)
		stop()
	}
	proxy.StartReceiving(ctx)

	fmt.Printf("💬 %s at %s. /state shows the booking, /new starts another, Ctrl+C quits.\n", cfg.Hotel.AssistantName, cfg.Hotel.Name)
	if err := proxy.SendText("Hello"); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			fmt.Print("> ")
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := handleLine(proxy, machine, strings.TrimSpace(line)); err != nil {
				return err
			}
		}
	}
}

func handleLine(proxy *gemini.Proxy, machine *booking.Machine, line string) error {
	switch line {
	case "":
		fmt.Print("> ")
		return nil
	case "/state":
		snap := machine.Snapshot()
		fmt.Printf("step=%s record=%+v\n", snap.Step, snap.Record)
		if snap.Quote != nil {
			fmt.Printf("quote=%+v\n", *snap.Quote)
		}
		fmt.Print("> ")
		return nil
	case "/new":
		if err := machine.Reset(); err != nil {
			fmt.Printf("⚠️ %v\n> ", err)
			return nil
		}
		return proxy.SendText("I'd like to make another booking.")
	}
	return proxy.SendText(line)
}
