package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devconnect/realtime/pkg/model"
)

type loginResponse struct {
	Token string             `json:"token"`
	User  model.UserIdentity `json:"user"`
}

func login(apiAddr, userID string) (loginResponse, error) {
	reqBody, _ := json.Marshal(map[string]string{"user_id": userID})
	resp, err := http.Post(apiAddr+"/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return loginResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return loginResponse{}, fmt.Errorf("login failed: %s", string(body))
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return loginResponse{}, err
	}
	return lr, nil
}

func emit(c *websocket.Conn, event string, data any) {
	payload, err := model.NewEnvelope(event, data)
	if err != nil {
		log.Println("encode:", err)
		return
	}
	if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Println("write:", err)
	}
}

func render(raw []byte) {
	var env model.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		fmt.Printf("\rreceived raw: %s\n> ", raw)
		return
	}

	switch env.Event {
	case model.EventMessage:
		var msg model.Message
		json.Unmarshal(env.Data, &msg)
		fmt.Printf("\r[%s] %s: %s  (#%d)\n> ", msg.ChannelID, msg.Username, msg.Content, msg.ID)
	case model.EventChannelMessages:
		var hist model.ChannelHistory
		json.Unmarshal(env.Data, &hist)
		fmt.Printf("\r--- %s: last %d messages ---\n", hist.ChannelID, len(hist.Messages))
		for _, msg := range hist.Messages {
			fmt.Printf("  %s: %s  (#%d)\n", msg.Username, msg.Content, msg.ID)
		}
		fmt.Print("> ")
	case model.EventReactionAdded:
		var update model.ReactionUpdate
		json.Unmarshal(env.Data, &update)
		fmt.Printf("\rreactions on #%d:", update.MessageID)
		for _, r := range update.Reactions {
			fmt.Printf(" %s x%d", r.Emoji, len(r.Users))
		}
		fmt.Print("\n> ")
	case model.EventUserOnline:
		var update model.PresenceUpdate
		json.Unmarshal(env.Data, &update)
		names := make([]string, 0, len(update.Users))
		for _, u := range update.Users {
			names = append(names, u.Username)
		}
		fmt.Printf("\ronline: %s\n> ", strings.Join(names, ", "))
	case model.EventUserTyping:
		var notice model.TypingNotice
		json.Unmarshal(env.Data, &notice)
		fmt.Printf("\r%s is typing in %s...\n> ", notice.Username, notice.ChannelID)
	case model.EventUserStopTyping:
		// Quiet; the next message or timeout clears the hint.
	case model.EventError:
		var notice model.ErrorNotice
		json.Unmarshal(env.Data, &notice)
		fmt.Printf("\rerror: %s\n> ", notice.Message)
	default:
		fmt.Printf("\r%s: %s\n> ", env.Event, env.Data)
	}
}

func main() {
	serverAddr := flag.String("addr", "localhost:8080", "gateway service address")
	apiAddr := flag.String("api", "http://localhost:8081", "api service address")
	userID := flag.String("user", "1", "user id")
	channelID := flag.String("channel", "general", "channel to join on start")
	flag.Parse()

	log.Printf("logging in as %s...", *userID)
	lr, err := login(*apiAddr, *userID)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("logged in as %s (%s)", lr.User.Username, lr.User.Role)

	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws"}
	header := http.Header{}
	header.Add("Authorization", "Bearer "+lr.Token)

	c, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				log.Println("read:", err)
				return
			}
			render(raw)
		}
	}()

	current := *channelID
	emit(c, model.EventJoinChannel, model.JoinPayload{ChannelID: current})

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			switch {
			case text == "":
			case text == "/quit":
				close(interrupt)
				return
			case strings.HasPrefix(text, "/join "):
				current = strings.TrimSpace(strings.TrimPrefix(text, "/join "))
				emit(c, model.EventJoinChannel, model.JoinPayload{ChannelID: current})
			case strings.HasPrefix(text, "/leave"):
				emit(c, model.EventLeaveChannel, model.LeavePayload{ChannelID: current})
			case strings.HasPrefix(text, "/react "):
				parts := strings.Fields(text)
				if len(parts) != 3 {
					fmt.Println("usage: /react <messageId> <emoji>")
					break
				}
				msgID, err := strconv.ParseInt(parts[1], 10, 64)
				if err != nil {
					fmt.Println("bad message id:", parts[1])
					break
				}
				emit(c, model.EventAddReaction, model.ReactPayload{ChannelID: current, MessageID: msgID, Emoji: parts[2]})
			case text == "/typing":
				emit(c, model.EventTyping, model.TypingPayload{ChannelID: current})
			default:
				emit(c, model.EventSendMessage, model.SendPayload{ChannelID: current, Content: text})
			}
			fmt.Print("> ")
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			// Close handshake, then wait briefly for the server side.
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("write close:", err)
				return
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}
