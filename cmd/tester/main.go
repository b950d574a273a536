// Command tester is a manual smoke and load client for the broker. It opens
// a handful of authenticated websocket connections, makes them meet in one
// room, exchanges messages and prints a per-client delivery summary.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"

	"chattr/auth"
	"chattr/ws"
)

type Config struct {
	ServerAddr  string        `envconfig:"SERVER_ADDR" default:"localhost:8080"`
	JWTSecret   string        `envconfig:"JWT_SECRET" required:"true"`
	Clients     int           `envconfig:"TESTER_CLIENTS" default:"5"`
	Messages    int           `envconfig:"TESTER_MESSAGES" default:"20"`
	DrainWindow time.Duration `envconfig:"TESTER_DRAIN_WINDOW" default:"2s"`
}

type clientStats struct {
	name     string
	sent     int
	received int
	errors   int
	duration time.Duration
}

func main() {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("config error: %v", err)
	}

	color.New(color.BgBlack, color.FgGreen).Printf("  ====== Broker tester: %d clients x %d messages ======\n",
		config.Clients, config.Messages)

	verifier := auth.NewVerifier([]byte(config.JWTSecret))
	roomName := fmt.Sprintf("load-%d", time.Now().Unix())

	stats := make([]clientStats, config.Clients)
	var wg sync.WaitGroup
	for i := 0; i < config.Clients; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			stats[idx] = runClient(config, verifier, roomName, idx)
		}(i)
	}
	wg.Wait()

	printSummary(stats)
}

func runClient(config Config, verifier *auth.Verifier, roomName string, idx int) clientStats {
	name := fmt.Sprintf("tester-%d", idx)
	stats := clientStats{name: name}
	start := time.Now()

	token, err := verifier.GenerateToken(name, name, time.Hour)
	if err != nil {
		log.Printf("%s: token: %v", name, err)
		stats.errors++
		return stats
	}

	endpoint := url.URL{Scheme: "ws", Host: config.ServerAddr, Path: "/ws",
		RawQuery: "token=" + url.QueryEscape(token)}
	conn, _, err := websocket.DefaultDialer.Dial(endpoint.String(), nil)
	if err != nil {
		log.Printf("%s: dial: %v", name, err)
		stats.errors++
		return stats
	}
	defer conn.Close()

	// Everyone races to create the room; exactly one wins, the rest get
	// nameTaken and simply enter.
	send(conn, &stats, ws.OpCreateRoom, map[string]string{"name": roomName})
	send(conn, &stats, ws.OpEnterRoom, map[string]string{"name": roomName})

	for i := 0; i < config.Messages; i++ {
		send(conn, &stats, ws.OpSendMessageToRoom, map[string]string{
			"room": roomName,
			"text": fmt.Sprintf("message %d from %s", i, name),
		})
		stats.sent++
	}

	// Drain pushes until the window closes.
	deadline := time.Now().Add(config.DrainWindow)
	_ = conn.SetReadDeadline(deadline)
	for {
		var frame ws.ServerFrame
		if err := conn.ReadJSON(&frame); err != nil {
			break
		}
		if frame.Type == ws.FrameEvent && frame.Event == ws.EventMessage {
			stats.received++
		}
	}

	stats.duration = time.Since(start)
	return stats
}

func send(conn *websocket.Conn, stats *clientStats, op string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		stats.errors++
		return
	}
	frame := ws.ClientFrame{Op: op, RequestID: op, Payload: raw}
	if err := conn.WriteJSON(frame); err != nil {
		stats.errors++
	}
}

func printSummary(stats []clientStats) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Client", "Sent", "Received", "Errors", "Duration"})

	totalSent, totalReceived := 0, 0
	for _, s := range stats {
		totalSent += s.sent
		totalReceived += s.received
		table.Append([]string{
			s.name,
			fmt.Sprintf("%d", s.sent),
			fmt.Sprintf("%d", s.received),
			fmt.Sprintf("%d", s.errors),
			s.duration.Round(time.Millisecond).String(),
		})
	}
	table.Render()

	color.New(color.FgCyan).Printf("Total sent: %d | Total received: %d\n", totalSent, totalReceived)
}
