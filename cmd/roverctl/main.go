// Command roverctl queries and controls a running rover over its dashboard API.
//
// Usage:
//
//	roverctl [-addr http://rover.local:8080] status|controls|watch|stop
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/teslashibe/go-rover/internal/httpc"
	"github.com/teslashibe/go-rover/pkg/protocol"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "Rover dashboard address")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: roverctl [-addr URL] status|controls|watch|stop\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := httpc.New(*addr)
	var err error
	switch flag.Arg(0) {
	case "status":
		err = status(ctx, c)
	case "controls":
		err = controls(ctx, c)
	case "watch":
		err = c.Watch(ctx, func(m *protocol.Message) {
			fmt.Printf("%-8s %s\n", m.Type, m.Data)
		})
	case "stop":
		if err = c.Shutdown(ctx); err == nil {
			fmt.Println("🛑 Shutdown requested")
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func status(ctx context.Context, c *httpc.Client) error {
	st, err := c.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Steering: %s  Ready: %v  Uptime: %dms\n", st.Steering, st.Ready, st.UptimeMs)
	for _, name := range sortedKeys(st.Tasks) {
		mark := "⏹"
		if st.Tasks[name] {
			mark = "▶"
		}
		fmt.Printf("  %s %s\n", mark, name)
	}
	out, _ := json.MarshalIndent(st.Drive, "", "  ")
	fmt.Printf("Drive: %s\n", out)
	fmt.Printf("Mast:  pan %.0f tilt %.0f\n", st.Mast.Pan, st.Mast.Tilt)
	fmt.Printf("Input: %+v\n", st.Input)
	if st.LastFault != nil {
		fmt.Printf("Last fault: %s/%s: %s\n", st.LastFault.Task, st.LastFault.Kind, st.LastFault.Error)
	}
	return nil
}

func controls(ctx context.Context, c *httpc.Client) error {
	m, err := c.Controls(ctx)
	if err != nil {
		return err
	}
	for _, name := range sortedKeys(m) {
		v := m[name]
		if v.Value == 0 {
			continue
		}
		fmt.Printf("%-18s %6.2f  held %dms\n", name, v.Value, v.DurationMs)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
