package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"confidential_casino/internal/logger"
	"confidential_casino/internal/service"
	"confidential_casino/internal/wallet"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

// ws_smoke connects to a running daemon as the configured wallet and prints
// session events until the listen period ends.
func main() {
	listen := flag.Duration("listen", 30*time.Second, "how long to wait for session events")
	flag.Parse()

	_ = godotenv.Load()
	logger.Init(os.Getenv("LOG_LEVEL"), false)

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET not set")
	}
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	kp, err := wallet.LoadKeypair(os.Getenv("WALLET_KEYPAIR_PATH"))
	if err != nil {
		logger.Fatal("load wallet", "error", err)
	}

	service.InitJWT(jwtSecret, time.Hour)
	token, err := service.GenerateJWT(kp.PublicKey())
	if err != nil {
		logger.Fatal("gen token", "error", err)
	}

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	url := fmt.Sprintf("ws://127.0.0.1:%s/ws?token=%s", port, token)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		logger.Fatal("dial", "error", err)
	}
	defer conn.Close()

	expect := func(want string) {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			logger.Fatal("read", "want", want, "error", err)
		}
		if msg["type"] != want {
			logger.Fatal("unexpected message", "want", want, "got", msg["type"])
		}
	}

	expect("ready")
	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		logger.Fatal("write ping", "error", err)
	}
	expect("pong")
	logger.Info("connected", "player", kp.PublicKey().String())

	deadline := time.Now().Add(*listen)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var ev struct {
			Type    string `json:"type"`
			Session struct {
				ID    string `json:"id"`
				State string `json:"state"`
			} `json:"session"`
		}
		_ = json.Unmarshal(raw, &ev)
		logger.Info("event", "type", ev.Type, "session", ev.Session.ID, "state", ev.Session.State)
	}

	logger.Info("smoke test finished")
}
