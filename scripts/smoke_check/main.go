package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/noah-isme/examhub-api/internal/models"
	"github.com/noah-isme/examhub-api/internal/service"
)

type target struct {
	Method   string          `json:"method"`
	Path     string          `json:"path"`
	As       string          `json:"as"`
	Body     json.RawMessage `json:"body,omitempty"`
	Expect   int             `json:"expect"`
	Critical bool            `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type result struct {
	Target   target
	Status   int
	Envelope bool
	Duration time.Duration
	Error    error
}

func main() {
	var (
		base        string
		targetsPath string
		secret      string
		issuer      string
		timeout     time.Duration
		printRole   string
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "smoke_check", "targets.json"), "Path to JSON targets file")
	flag.StringVar(&secret, "jwt-secret", os.Getenv("JWT_SECRET"), "Secret used to sign test tokens")
	flag.StringVar(&issuer, "jwt-issuer", "examhub", "Issuer of test tokens")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.StringVar(&printRole, "print-token", "", "Print a token for the given identity (member or admin) and exit")
	flag.Parse()

	tokens := service.NewTokenService(service.TokenConfig{Secret: secret, Issuer: issuer, Expiry: time.Hour})
	if printRole != "" {
		token, err := tokenFor(tokens, printRole)
		if err != nil {
			log.Fatalf("failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		results  []result
		breaking int
		optional int
	)
	for _, t := range targets {
		res := check(client, tokens, base, t)
		if res.Error != nil || res.Status != t.Expect || !res.Envelope {
			if t.Critical {
				breaking++
			} else {
				optional++
			}
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Critical failures: %d, Optional failures: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func tokenFor(tokens *service.TokenService, as string) (string, error) {
	var role models.UserRole
	switch strings.ToLower(as) {
	case "member":
		role = models.RoleMember
	case "admin":
		role = models.RoleAdmin
	default:
		return "", fmt.Errorf("unknown identity %q", as)
	}
	token, _, err := tokens.Issue("smoke-"+strings.ToLower(as), "smoke-"+strings.ToLower(as)+"@examhub.local", "Smoke "+as, role)
	return token, err
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func check(client *http.Client, tokens *service.TokenService, base string, tgt target) result {
	res := result{Target: tgt}
	if client == nil {
		res.Error = errors.New("nil client")
		return res
	}
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, bytes.NewReader(tgt.Body))
	if err != nil {
		res.Error = err
		return res
	}
	if len(tgt.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if tgt.As != "" {
		token, err := tokenFor(tokens, tgt.As)
		if err != nil {
			res.Error = err
			return res
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Error = fmt.Errorf("read body: %w", err)
		return res
	}
	res.Envelope = isEnvelope(resp.Header.Get("Content-Type"), body)
	return res
}

// isEnvelope accepts empty bodies, non-JSON payloads and JSON objects carrying data or error.
func isEnvelope(contentType string, body []byte) bool {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || !strings.Contains(contentType, "application/json") {
		return true
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return false
	}
	_, hasData := env["data"]
	_, hasError := env["error"]
	_, hasStatus := env["status"]
	return hasData || hasError || hasStatus
}

func printReport(results []result) {
	fmt.Println("Smoke Check Report")
	fmt.Println("==================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if res.Status != res.Target.Expect || !res.Envelope {
			status = "FAIL"
		}
		as := res.Target.As
		if as == "" {
			as = "anonymous"
		}
		fmt.Printf("[%s] %s %s as %s\n", status, res.Target.Method, res.Target.Path, as)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Status: %d, expected %d (%s) | Envelope: %t | Critical: %t\n",
			res.Status, res.Target.Expect, res.Duration, res.Envelope, res.Target.Critical)
	}
}
