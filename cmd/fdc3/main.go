// ABOUTME: Command-line client for inspecting and driving an fdc3 provider
// ABOUTME: Lists channels, joins them, broadcasts contexts, and tails broadcasts

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/bryangaleOF/fdc3-service/fdc3"
	"github.com/bryangaleOF/fdc3-service/protocol"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	serviceURL := getEnv("FDC3_SERVICE_URL", "ws://localhost:4560/fdc3")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "channels":
		err = cmdChannels(ctx, serviceURL)
	case "members":
		err = cmdMembers(ctx, serviceURL, os.Args[2:])
	case "current":
		err = cmdCurrent(ctx, serviceURL)
	case "join":
		err = cmdJoin(ctx, serviceURL, os.Args[2:])
	case "broadcast":
		err = cmdBroadcast(ctx, serviceURL, os.Args[2:])
	case "listen":
		err = cmdListen(ctx, serviceURL, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Println("fdc3 - context channel client")
	fmt.Println()
	fmt.Println("Usage: fdc3 <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  channels                      List desktop channels")
	fmt.Println("  members <channel>             List windows on a channel")
	fmt.Println("  current                       Show this client's channel")
	fmt.Println("  join <channel>                Join a channel and hold it until interrupted")
	fmt.Println("  broadcast <channel> <type> [name]")
	fmt.Println("                                Broadcast a context on a channel")
	fmt.Println("  listen <channel>              Print every context broadcast on a channel")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  FDC3_SERVICE_URL   Provider websocket URL (default: ws://localhost:4560/fdc3)")
	fmt.Println("  FDC3_WINDOW_NAME   Window name to identify as (default: cli)")
}

// connect dials the provider with a fresh window identity. Each CLI
// invocation is its own window as far as the service is concerned.
func connect(ctx context.Context, serviceURL string) (*fdc3.Client, error) {
	identity := protocol.Identity{
		UUID: uuid.New().String(),
		Name: getEnv("FDC3_WINDOW_NAME", "cli"),
	}
	return fdc3.Connect(ctx, serviceURL, identity, nil)
}

func cmdChannels(ctx context.Context, serviceURL string) error {
	client, err := connect(ctx, serviceURL)
	if err != nil {
		return err
	}
	defer client.Close()

	channels, err := client.GetDesktopChannels(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOLOR")
	for _, ch := range channels {
		fmt.Fprintf(w, "%s\t%s\t#%06X\n", ch.ID(), ch.Name(), ch.Color())
	}
	return w.Flush()
}

func cmdMembers(ctx context.Context, serviceURL string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: fdc3 members <channel>")
	}

	client, err := connect(ctx, serviceURL)
	if err != nil {
		return err
	}
	defer client.Close()

	channel, err := client.GetChannelByID(ctx, protocol.ChannelID(args[0]))
	if err != nil {
		return err
	}

	members, err := channel.GetMembers(ctx)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		fmt.Println("(no members)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "UUID\tNAME")
	for _, m := range members {
		fmt.Fprintf(w, "%s\t%s\n", m.UUID, m.Name)
	}
	return w.Flush()
}

func cmdCurrent(ctx context.Context, serviceURL string) error {
	client, err := connect(ctx, serviceURL)
	if err != nil {
		return err
	}
	defer client.Close()

	channel, err := client.GetCurrentChannel(ctx, nil)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", channel.ID(), channel.Type())
	return nil
}

// cmdJoin keeps the connection open after joining; disconnecting would drop
// the window's membership immediately.
func cmdJoin(ctx context.Context, serviceURL string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: fdc3 join <channel>")
	}

	client, err := connect(ctx, serviceURL)
	if err != nil {
		return err
	}
	defer client.Close()

	channel, err := client.GetChannelByID(ctx, protocol.ChannelID(args[0]))
	if err != nil {
		return err
	}
	if err := channel.Join(ctx, nil); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Print("✓ ")
	fmt.Printf("Joined %s, holding until interrupted\n", channel.ID())

	<-ctx.Done()
	return nil
}

func cmdBroadcast(ctx context.Context, serviceURL string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: fdc3 broadcast <channel> <type> [name]")
	}

	client, err := connect(ctx, serviceURL)
	if err != nil {
		return err
	}
	defer client.Close()

	channel, err := client.GetChannelByID(ctx, protocol.ChannelID(args[0]))
	if err != nil {
		return err
	}

	payload := protocol.Context{Type: args[1]}
	if len(args) > 2 {
		payload.Name = args[2]
	}
	if err := channel.Broadcast(ctx, payload); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Print("✓ ")
	fmt.Printf("Broadcast %s on %s\n", payload.Type, channel.ID())
	return nil
}

func cmdListen(ctx context.Context, serviceURL string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: fdc3 listen <channel>")
	}

	client, err := connect(ctx, serviceURL)
	if err != nil {
		return err
	}
	defer client.Close()

	channel, err := client.GetChannelByID(ctx, protocol.ChannelID(args[0]))
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	listener, err := channel.AddContextListener(ctx, func(c protocol.Context) {
		cyan.Printf("%s ", c.Type)
		if c.Name != "" {
			fmt.Printf("%s", c.Name)
		}
		fmt.Println()
	})
	if err != nil {
		return err
	}

	fmt.Printf("Listening on %s, interrupt to stop\n", channel.ID())
	<-ctx.Done()

	// Best effort; the connection is closing anyway.
	_, _ = listener.Unsubscribe(context.Background())
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
