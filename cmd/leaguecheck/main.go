package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ecopool/league-server/pkg/leaguedto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// leaguecheck probes a running league server: HTTP health, scoreboard JSON,
// and the first frame of the WebSocket feed.
func main() {
	baseURL := strings.TrimRight(os.Getenv("LEAGUE_BASE_URL"), "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}

	client := &http.Client{Timeout: 8 * time.Second}

	if err := checkHealth(client, baseURL); err != nil {
		log.Fatalf("/healthz error: %v", err)
	}
	sb, err := fetchScoreboard(client, baseURL)
	if err != nil {
		log.Fatalf("/api/scoreboard error: %v", err)
	}
	log.Printf("/api/scoreboard ok: league=%q version=%d tables=%d reactions=%d",
		sb.LeagueName, sb.Version, len(sb.Tables), len(sb.Reactions))

	if err := checkWS(baseURL); err != nil {
		log.Fatalf("ws error: %v", err)
	}
	log.Println("all checks passed")
}

func checkHealth(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errStatus(resp.StatusCode)
	}
	log.Println("/healthz ok")
	return nil
}

func fetchScoreboard(client *http.Client, baseURL string) (leaguedto.Scoreboard, error) {
	var sb leaguedto.Scoreboard
	resp, err := client.Get(baseURL + "/api/scoreboard")
	if err != nil {
		return sb, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return sb, errStatus(resp.StatusCode)
	}
	err = json.NewDecoder(resp.Body).Decode(&sb)
	return sb, err
}

// checkWS dials the feed and waits for the snapshot frame every new client
// receives first.
func checkWS(baseURL string) error {
	wsURL := strings.Replace(baseURL, "http", "ws", 1) + "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	var ev leaguedto.Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		return err
	}
	if ev.Kind != "scoreboard" || ev.Scoreboard == nil {
		log.Printf("ws first frame kind=%q, want scoreboard", ev.Kind)
	} else {
		log.Printf("ws ok: snapshot version=%d tables=%d", ev.Scoreboard.Version, len(ev.Scoreboard.Tables))
	}
	return nil
}

type statusErr int

func (e statusErr) Error() string { return fmt.Sprintf("unexpected status %d", int(e)) }

func errStatus(code int) error { return statusErr(code) }
