// Watch - tail a monitor's beat feed from the terminal
//
// Connects to a running groove monitor's websocket feed and prints each
// event as a line. Handy for watching a performance from another
// machine without opening the dashboard.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var url string
	flags := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	flags.StringVar(&url, "url", "ws://localhost:3000/ws/feed", "monitor feed URL")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", url, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s\n", url)

	done := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				done <- err
				return
			}
			fmt.Println(string(data))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sig:
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return nil
	case err := <-done:
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			return nil
		}
		return err
	}
}
