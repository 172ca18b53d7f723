// Command wsprobe logs in to a running API, opens the realtime channel and
// prints the events it receives. It is a manual smoke test for chat.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	host := flag.String("host", envOr("WSPROBE_HOST", "localhost:8080"), "API server host")
	email := flag.String("email", envOr("WSPROBE_EMAIL", ""), "Account email")
	password := flag.String("password", envOr("WSPROBE_PASSWORD", "password123"), "Account password")
	conversation := flag.Uint("conversation", 0, "Conversation to join")
	message := flag.String("message", "", "Message to post after joining")
	duration := flag.Duration("duration", 30*time.Second, "How long to listen for events")
	flag.Parse()

	if *email == "" {
		log.Fatal("❌ -email (or WSPROBE_EMAIL) is required")
	}

	client := resty.New().
		SetBaseURL(fmt.Sprintf("http://%s/api", *host)).
		SetTimeout(10 * time.Second)

	token, err := login(client, *email, *password)
	if err != nil {
		log.Fatalf("❌ Login failed: %v", err)
	}
	log.Printf("✅ Logged in as %s", *email)
	client.SetAuthToken(token)

	u := url.URL{Scheme: "ws", Host: *host, Path: "/api/ws", RawQuery: "token=" + url.QueryEscape(token)}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("❌ Dial failed: %v", err)
	}
	defer func() { _ = conn.Close() }()
	log.Printf("🔌 Connected to %s", u.Host)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				log.Printf("connection closed: %v", err)
				return
			}
			var f frame
			if err := json.Unmarshal(data, &f); err != nil {
				log.Printf("⚠️  unparsable frame: %s", data)
				continue
			}
			log.Printf("⬅️  %s %s", f.Type, f.Payload)
		}
	}()

	if *conversation != 0 {
		join := map[string]any{
			"type":    "join_conversation",
			"payload": map[string]any{"conversation_id": *conversation},
		}
		if err := conn.WriteJSON(join); err != nil {
			log.Fatalf("❌ Join failed: %v", err)
		}

		if *message != "" {
			// Give the join a moment so our own new_message comes back.
			time.Sleep(200 * time.Millisecond)
			if err := sendMessage(client, *conversation, *message); err != nil {
				log.Printf("❌ Send failed: %v", err)
			} else {
				log.Printf("➡️  posted message to conversation %d", *conversation)
			}
		}
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case <-time.After(*duration):
		log.Println("⏱️  Listen duration reached")
	case <-interrupt:
		log.Println("🛑 Interrupted by user")
	case <-done:
		return
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}

func login(client *resty.Client, email, password string) (string, error) {
	var result struct {
		Token string `json:"token"`
	}
	resp, err := client.R().
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&result).
		Post("/login")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("login failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	if result.Token == "" {
		return "", fmt.Errorf("login response had no token")
	}
	return result.Token, nil
}

func sendMessage(client *resty.Client, conversationID uint, content string) error {
	resp, err := client.R().
		SetBody(map[string]string{"content": content}).
		Post(fmt.Sprintf("/messages/%d", conversationID))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
