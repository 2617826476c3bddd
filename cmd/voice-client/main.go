// Command voice-client sends finalized utterances typed on stdin to the
// assistant, either one POST /message per line or over the /ws feed.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"
)

type options struct {
	addr     string
	mode     string
	email    string
	password string
	audio    string
}

func main() {
	var opts options
	pflag.StringVar(&opts.addr, "addr", "http://localhost:7000", "assistant base URL")
	pflag.StringVar(&opts.mode, "mode", "http", "transport: http or ws")
	pflag.StringVar(&opts.email, "email", os.Getenv("ASSISTANT_EMAIL"), "account email (ws mode)")
	pflag.StringVar(&opts.password, "password", os.Getenv("ASSISTANT_PASSWORD"), "account password (ws mode)")
	pflag.StringVar(&opts.audio, "audio", "", "send a LINEAR16 file to /message/audio and exit")
	pflag.Parse()

	client := &http.Client{Timeout: 60 * time.Second}

	var err error
	switch {
	case opts.audio != "":
		err = sendAudio(client, opts.addr, opts.audio)
	case opts.mode == "http":
		err = runHTTP(client, opts.addr, os.Stdin, os.Stdout)
	case opts.mode == "ws":
		err = runWebsocket(client, opts, os.Stdin, os.Stdout)
	default:
		err = fmt.Errorf("unknown mode %q", opts.mode)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "voice-client:", err)
		os.Exit(1)
	}
}

func postJSON(client *http.Client, url string, body interface{}, out interface{}) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("unexpected response %q: %w", raw, err)
		}
	}
	return resp.StatusCode, nil
}

type reply struct {
	Message    string `json:"message"`
	Transcript string `json:"transcript"`
	Error      string `json:"error"`
}

func runHTTP(client *http.Client, addr string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" {
			return nil
		}

		var r reply
		status, err := postJSON(client, addr+"/message", map[string]string{"message": line}, &r)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			fmt.Fprintf(out, "error (%d): %s\n", status, r.Error)
			continue
		}
		fmt.Fprintln(out, r.Message)
	}
	return scanner.Err()
}

func login(client *http.Client, addr, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", errors.New("ws mode needs -email and -password")
	}
	var body struct {
		Token   string `json:"token"`
		Message string `json:"message"`
	}
	status, err := postJSON(client, addr+"/auth/login", map[string]string{"email": email, "password": password}, &body)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("auth failed with status %d: %s", status, body.Message)
	}
	return body.Token, nil
}

func websocketURL(addr, token string) (string, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

func runWebsocket(client *http.Client, opts options, in io.Reader, out io.Writer) error {
	token, err := login(client, opts.addr, opts.email, opts.password)
	if err != nil {
		return err
	}
	wsURL, err := websocketURL(opts.addr, token)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer conn.Close()

	go func() {
		for {
			var frame map[string]interface{}
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			switch frame["type"] {
			case "reply":
				fmt.Fprintln(out, frame["message"])
			case "error":
				fmt.Fprintln(out, "error:", frame["error"])
			case "exchange":
				fmt.Fprintf(out, "[exchange %v]\n", frame["request_id"])
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
		os.Exit(0)
	}()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" {
			break
		}
		if err := conn.WriteJSON(map[string]string{"type": "utterance", "text": line}); err != nil {
			return fmt.Errorf("error sending message: %w", err)
		}
	}
	// let in-flight replies arrive
	time.Sleep(500 * time.Millisecond)
	return scanner.Err()
}

func sendAudio(client *http.Client, addr, path string) error {
	audio, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}

	resp, err := client.Post(addr+"/message/audio", "application/octet-stream", bytes.NewReader(audio))
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var r reply
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("audio request failed with status %d: %s", resp.StatusCode, r.Error)
	}
	fmt.Printf("> %s\n%s\n", r.Transcript, r.Message)
	return nil
}
