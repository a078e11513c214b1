package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"lovewire/auth"
	"lovewire/chat"
	"lovewire/internal"
	"lovewire/presence"
	"lovewire/projection"
	"lovewire/repositories"
	"lovewire/rest"
	"lovewire/runtime/workers"
	"lovewire/services"
	"lovewire/sink"
	"lovewire/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the client lifecycle, and
// centralizes error reporting so deferred cleanups always execute.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: internal.LogLevelFrom(config.LogLevel),
	}))

	// 2. Token from the auth collaborator. Without one, both channels stay
	// down and REST calls are refused; the binary still starts.
	tokens := auth.NewStaticTokenSource(config.AccessToken)
	selfID := ""
	if config.AccessToken != "" {
		id, err := auth.UserID(config.AccessToken)
		if err != nil {
			log.Warn("could not read user id from token", "err", err)
		}
		selfID = id
	}

	// 3. Stores & fanout
	store := projection.NewMessageStore()
	table := presence.NewTable()
	fanout := workers.NewEventFanout(log, config.EventBufferSize)
	fanout.Subscribe(newRenderSink(selfID))

	// 4. Optional warm-start cache (BadgerDB). Stays nil when
	// CACHE_FILEPATH is unset; the binder then skips warm start.
	var cache repositories.IMessageCache
	if config.CacheFilepath != "" {
		db, err := badger.Open(badger.DefaultOptions(config.CacheFilepath).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return fmt.Errorf("message cache opening failed: %w", err)
		}
		defer func() {
			log.Info("Closing message cache...")
			_ = db.Close()
		}()
		messageCache := repositories.NewMessageCache(db, log, config.CacheLimit)
		fanout.Subscribe(sink.NewCacheSink(messageCache, log))
		cache = messageCache
	}

	// 5. Channel managers
	dialer := transport.NewWSDialer()
	presenceManager := presence.NewManager(log, dialer, tokens, table, fanout,
		config.BaseURL, transport.LinearBackoff{Base: config.PresenceBackoffBase, Cap: config.PresenceBackoffCap})
	chatManager := chat.NewManager(log, dialer, tokens, store, fanout,
		config.BaseURL, transport.FixedBackoff{Interval: config.ChatReconnectDelay})

	restClient := rest.NewClient(config.BaseURL, tokens, log)
	session := services.NewSessionService(log, chatManager, restClient, store, cache)

	// 6. Context, signals, supervision
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		fanout,
		presenceManager,
		workers.NewHeartbeatWorker(log, presenceManager, config.HeartbeatInterval),
	)
	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 7. Interactive loop
	if err := printThreads(ctx, restClient, store); err != nil {
		log.Warn("thread list unavailable", "err", err)
	}
	printHelp()
	go readCommands(ctx, log, session, chatManager, table)

	<-ctx.Done()
	log.Info("Shutting down gracefully...")
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")
	return nil
}

// printThreads renders the conversation list the way the messages page
// shows it.
func printThreads(ctx context.Context, client *rest.Client, store *projection.MessageStore) error {
	threads, err := client.Threads(ctx)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Thread", "With", "Online", "Last message", "Updated"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, t := range threads {
		last := ""
		if t.LastMessage != nil {
			last = *t.LastMessage
		}
		if msg, ok := store.Last(t.ID); ok && msg.Text != nil {
			last = *msg.Text
		}
		online := ""
		if t.Participant.IsOnline {
			online = "yes"
		}
		table.Append([]string{t.ID, t.Participant.Name, online, last, t.UpdatedAt.Format(time.RFC822)})
	}
	table.Render()
	return nil
}

func printHelp() {
	fmt.Println(color.FgGray.Render("/open <thread-id> to join, /who <user-id> for presence, anything else sends"))
}

// readCommands drives the session from stdin until ctx ends.
func readCommands(
	ctx context.Context,
	log *slog.Logger,
	session *services.SessionService,
	chatManager *chat.Manager,
	table *presence.Table,
) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, "/open "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/open "))
			thread, err := session.Bind(ctx, id)
			if err != nil {
				// Transient: the socket is connected even when the fetch failed.
				color.Warn.Println("could not load conversation:", err)
				continue
			}
			color.Info.Printf("talking to %s\n", thread.Participant.Name)
		case strings.HasPrefix(line, "/who "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/who "))
			status, ok := table.Get(id)
			if !ok {
				fmt.Println("no presence information yet")
				continue
			}
			if status.IsOnline {
				color.Success.Printf("%s is online\n", status.Name)
			} else if status.LastSeen != nil {
				fmt.Printf("%s last seen %s\n", status.Name, status.LastSeen.Format(time.RFC822))
			} else {
				fmt.Printf("%s is offline\n", status.Name)
			}
		case line == "/close":
			session.Reset()
		default:
			active := chatManager.ActiveConversation()
			if active == "" {
				fmt.Println("no active conversation, /open one first")
				continue
			}
			chatManager.SendText(ctx, line, active)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn("stdin closed", "err", err)
	}
}
