package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Smoke test against a running server. The user must exist in the users table.
//
//	go run ./scripts <user-id>

var baseURL = "http://localhost:3000/api"

func prettyPrint(raw []byte) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func sendRequest(method, url, token string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func mustStep(name string, resp *http.Response, body []byte, err error) {
	if err != nil {
		color.Red("%s failed: %v", name, err)
		os.Exit(1)
	}
	if resp.StatusCode >= 300 {
		color.Red("%s: %s", name, resp.Status)
		prettyPrint(body)
		os.Exit(1)
	}
	color.Green("%s: %s", name, resp.Status)
}

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		color.Red("usage: go run ./scripts <user-id>")
		os.Exit(2)
	}
	if v := os.Getenv("SMOKE_BASE_URL"); v != "" {
		baseURL = v
	}
	userID := os.Args[1]

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		color.Red("sign token: %v", err)
		os.Exit(1)
	}

	color.Cyan("Tutor pipeline smoke test (user %s)\n", userID)

	color.Yellow("\n1. Ingest a note")
	resp, body, err := sendRequest("POST", "/knowledge/notes", token, map[string]string{
		"title":   "Photosynthesis",
		"content": "Plants turn light, water and carbon dioxide into glucose and oxygen inside chloroplasts.",
	})
	mustStep("create note", resp, body, err)
	prettyPrint(body)

	color.Yellow("\n2. Search knowledge")
	resp, body, err = sendRequest("GET", "/knowledge/search?q=chloroplast&limit=3", token, nil)
	mustStep("search", resp, body, err)
	prettyPrint(body)

	color.Yellow("\n3. Chat turn")
	resp, body, err = sendRequest("POST", "/chat", token, map[string]interface{}{
		"messages": []map[string]string{{
			"id":      uuid.NewString(),
			"role":    "user",
			"content": "I keep mixing up what plants take in and give off. Can you help?",
		}},
	})
	mustStep("chat", resp, body, err)
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "{") {
			color.Magenta("frame:")
			prettyPrint([]byte(line))
			continue
		}
		fmt.Println(line)
	}

	color.Yellow("\n4. Memory search")
	time.Sleep(2 * time.Second)
	resp, body, err = sendRequest("POST", "/memory", token, map[string]interface{}{
		"command": "search",
		"args":    map[string]interface{}{"query": "plants", "limit": 3},
	})
	mustStep("memory search", resp, body, err)
	prettyPrint(body)

	color.Cyan("\nDone.")
}
