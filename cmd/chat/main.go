// Command chat is a terminal client for the relay: pick an agent function,
// send messages through the relay server and watch replies arrive via the
// background poller.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"umbra.legal/relay/common/id"
	"umbra.legal/relay/common/logger"
	"umbra.legal/relay/core/config"
	"umbra.legal/relay/internal/catalog"
	"umbra.legal/relay/internal/client"
	"umbra.legal/relay/internal/conversation"
	"umbra.legal/relay/internal/http/dto"
	"umbra.legal/relay/internal/model"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeChat)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Setup(cfg)

	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	functions, err := catalog.New(cfg.Webhook.BaseURLOverride)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build function catalog", "error", err)
		os.Exit(1)
	}

	rl, err := readline.New("> ")
	if err != nil {
		slog.ErrorContext(ctx, "failed to open terminal", "error", err)
		os.Exit(1)
	}
	defer rl.Close()

	app := &chatApp{
		catalog:       functions,
		conversations: conversation.NewStore(),
		gateway:       client.NewGateway(cfg.Client.RelayURL, slog.Default()),
		rl:            rl,
	}

	poller := client.NewPoller(app.gateway, cfg.Client.PollInterval, app.handleResponses, slog.Default())
	poller.Start(ctx)
	defer poller.Stop()
	app.poller = poller

	app.printMenu()
	app.run(ctx)
}

type chatApp struct {
	catalog       *catalog.Catalog
	conversations *conversation.Store
	gateway       *client.Gateway
	poller        *client.Poller
	rl            *readline.Instance

	mu     sync.Mutex
	active catalog.Function
}

func (a *chatApp) run(ctx context.Context) {
	for {
		line, err := a.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return
			}
			slog.ErrorContext(ctx, "read failed", "error", err)
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := a.handleCommand(ctx, line); quit {
				return
			}
			continue
		}

		a.send(ctx, line)
	}
}

func (a *chatApp) handleCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	switch parts[0] {
	case "/quit", "/exit":
		return true
	case "/menu":
		a.printMenu()
	case "/use":
		if len(parts) < 2 {
			a.printf("usage: /use <function id>, e.g. /use 1.1\n")
			return false
		}
		a.selectFunction(parts[1])
	case "/history":
		a.printHistory()
	case "/status":
		a.printf("connection: %s\n", a.poller.State())
	case "/clear":
		if err := a.gateway.ClearCache(ctx); err != nil {
			a.printf("clear failed: %v\n", err)
			return false
		}
		a.conversations.ClearAll()
		a.printf("cleared\n")
	default:
		a.printf("commands: /menu /use <id> /history /status /clear /quit\n")
	}
	return false
}

func (a *chatApp) selectFunction(raw string) {
	fid, err := catalog.ParseFunctionID(raw)
	if err != nil {
		a.printf("unknown function id %q\n", raw)
		return
	}
	fn, ok := a.catalog.Lookup(fid)
	if !ok {
		a.printf("unknown function id %q\n", raw)
		return
	}

	a.mu.Lock()
	a.active = fn
	a.mu.Unlock()

	a.conversations.InitializeAgent(fn.ID, fn.Name)
	a.rl.SetPrompt(fmt.Sprintf("[%s %s] > ", fn.ID, fn.Name))

	for _, msg := range a.conversations.Messages(fn.ID) {
		a.printMessage(msg)
	}
}

func (a *chatApp) send(ctx context.Context, text string) {
	a.mu.Lock()
	fn := a.active
	a.mu.Unlock()

	if fn.ID == "" {
		a.printf("pick a function first: /use <id> (see /menu)\n")
		return
	}

	previous := a.conversations.Messages(fn.ID)
	messageID := a.conversations.AddMessage(fn.ID, model.Message{
		Type:   model.MessageTypeUser,
		Text:   text,
		Status: model.StatusSending,
	})

	result := a.gateway.SendMessage(ctx, client.SendPayload{
		Message:    text,
		FunctionID: fn.ID,
		MessageID:  messageID,
		WebhookURL: fn.WebhookURL,
		Context:    buildContext(fn, previous),
	})

	if !result.Success {
		a.conversations.UpdateStatus(fn.ID, messageID, model.StatusError)
		a.conversations.AddMessage(fn.ID, model.Message{
			Type:   model.MessageTypeAgent,
			Text:   conversation.ApologyText,
			Status: model.StatusDelivered,
		})
		a.printf("agente: %s\n", conversation.ApologyText)
		return
	}

	a.conversations.UpdateStatus(fn.ID, messageID, model.StatusSent)
}

// handleResponses runs on the poller goroutine: route each drained reply to
// its conversation and echo it when it belongs to the active function.
func (a *chatApp) handleResponses(responses []model.BufferedResponse) {
	for _, resp := range responses {
		fid, err := catalog.ParseFunctionID(resp.FunctionID)
		if err != nil {
			slog.Warn("dropping reply with unroutable function id",
				"function_id", resp.FunctionID, "message_id", resp.MessageID)
			continue
		}

		a.conversations.AddAgentResponse(fid, resp.MessageID, resp.Output, resp.Metadata)

		a.mu.Lock()
		active := a.active.ID
		a.mu.Unlock()
		if fid == active {
			a.printf("agente: %s\n", resp.Output)
		}
	}
}

func buildContext(fn catalog.Function, previous []model.Message) *dto.SendContext {
	return &dto.SendContext{
		ActiveModule:     fn.ID.Module(),
		FunctionName:     fn.Name,
		PreviousMessages: previous,
	}
}

func (a *chatApp) printMenu() {
	for _, m := range a.catalog.Modules() {
		a.printf("\nMódulo %d: %s\n", m.ID, m.Name)
		for _, fn := range m.Functions {
			a.printf("  %s  %s\n", fn.ID, fn.Name)
		}
	}
	a.printf("\n/use <id> to start, /quit to leave\n")
}

func (a *chatApp) printHistory() {
	a.mu.Lock()
	fn := a.active
	a.mu.Unlock()

	if fn.ID == "" {
		a.printf("no active function\n")
		return
	}
	for _, msg := range a.conversations.Messages(fn.ID) {
		a.printMessage(msg)
	}
}

func (a *chatApp) printMessage(msg model.Message) {
	speaker := "agente"
	if msg.Type == model.MessageTypeUser {
		speaker = "tú"
	}
	a.printf("%s [%s]: %s\n", speaker, msg.Status, msg.Text)
}

// printf writes through readline so output does not clobber the prompt line.
func (a *chatApp) printf(format string, args ...any) {
	fmt.Fprintf(a.rl.Stdout(), format, args...)
}
