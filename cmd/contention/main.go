package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"cineseat/internal/shared/config"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// HoldResult is one cart's attempt at the contested seat.
type HoldResult struct {
	CartID       string        `json:"cart_id"`
	StatusCode   int           `json:"status_code"`
	Code         string        `json:"code,omitempty"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
}

type ContentionSuite struct {
	BaseURL string
	Session uuid.UUID
	Seat    string
	Client  *http.Client
	Results []HoldResult
}

type envelope struct {
	Code string          `json:"code"`
	Data json.RawMessage `json:"data"`
}

func main() {
	var (
		baseURL = flag.String("base-url", "http://localhost:8080/api/v1", "API base URL")
		session = flag.String("session", "", "session id to contend on")
		seat    = flag.String("seat", "A1", "seat code every cart tries to hold")
		carts   = flag.Int("carts", 20, "number of competing carts")
		confirm = flag.Bool("confirm", false, "confirm the winning cart afterwards")
		out     = flag.String("out", "", "write the detailed results as JSON to this file")
	)
	flag.Parse()

	sessionID, err := uuid.Parse(*session)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ -session must be a session id: %v\n", err)
		os.Exit(2)
	}

	suite := &ContentionSuite{
		BaseURL: *baseURL,
		Session: sessionID,
		Seat:    *seat,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}

	fmt.Println("🧪 Seat contention check")
	fmt.Println("========================")

	_ = godotenv.Load()
	if err := testRedisConnection(config.Load()); err != nil {
		fmt.Printf("⚠️  Redis unreachable (%v): the server runs without rate limits\n", err)
	} else {
		fmt.Println("✅ Redis connection: OK (hold requests are rate limited, expect 429s)")
	}

	cartIDs := make([]string, 0, *carts)
	for i := 0; i < *carts; i++ {
		id, err := suite.createCart()
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ failed to create cart: %v\n", err)
			os.Exit(1)
		}
		cartIDs = append(cartIDs, id)
	}
	fmt.Printf("🛒 %d carts created, racing for %s\n", len(cartIDs), suite.Seat)

	suite.race(cartIDs)
	winners := suite.generateReport()

	if *confirm && len(winners) == 1 {
		status, body, err := suite.post("/carts/"+winners[0]+"/confirm", map[string]interface{}{
			"payment_ref": "contention-" + uuid.NewString()[:8],
		})
		switch {
		case err != nil:
			fmt.Printf("❌ confirm failed: %v\n", err)
		case status != http.StatusOK:
			fmt.Printf("❌ confirm returned HTTP %d: %s\n", status, body)
		default:
			fmt.Printf("🎟  winner %s confirmed\n", winners[0])
		}
	}

	if *out != "" {
		data, _ := json.MarshalIndent(map[string]interface{}{
			"session": suite.Session,
			"seat":    suite.Seat,
			"winners": winners,
			"results": suite.Results,
		}, "", "  ")
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "❌ failed to write %s: %v\n", *out, err)
		} else {
			fmt.Printf("💾 Detailed results saved to %s\n", *out)
		}
	}

	if len(winners) != 1 {
		os.Exit(1)
	}
}

func testRedisConnection(cfg *config.Config) error {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}

func (s *ContentionSuite) createCart() (string, error) {
	status, body, err := s.post("/carts", map[string]interface{}{})
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated {
		return "", fmt.Errorf("HTTP %d: %s", status, body)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", err
	}
	var cart struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &cart); err != nil {
		return "", err
	}
	return cart.ID, nil
}

// race fires one hold per cart at the same seat, all released at once.
func (s *ContentionSuite) race(cartIDs []string) {
	results := make([]HoldResult, len(cartIDs))
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i, cartID := range cartIDs {
		wg.Add(1)
		go func(i int, cartID string) {
			defer wg.Done()
			<-start
			results[i] = s.hold(cartID)
		}(i, cartID)
	}
	close(start)
	wg.Wait()

	s.Results = results
}

func (s *ContentionSuite) hold(cartID string) HoldResult {
	begin := time.Now()
	status, body, err := s.post("/carts/"+cartID+"/holds", map[string]interface{}{
		"session_id": s.Session,
		"seats":      []string{s.Seat},
	})
	result := HoldResult{CartID: cartID, StatusCode: status, ResponseTime: time.Since(begin)}
	if err != nil {
		result.Error = err.Error()
		return result
	}
	var env envelope
	if json.Unmarshal(body, &env) == nil {
		result.Code = env.Code
	}
	return result
}

func (s *ContentionSuite) post(path string, payload interface{}) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	resp, err := s.Client.Post(s.BaseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

func (s *ContentionSuite) generateReport() []string {
	fmt.Println("\n📊 CONTENTION REPORT")
	fmt.Println("====================")

	var winners []string
	codes := map[string]int{}
	var total time.Duration
	for _, r := range s.Results {
		total += r.ResponseTime
		switch {
		case r.Error != "":
			codes["TRANSPORT_ERROR"]++
		case r.StatusCode == http.StatusOK:
			winners = append(winners, r.CartID)
		default:
			code := r.Code
			if code == "" {
				code = fmt.Sprintf("HTTP_%d", r.StatusCode)
			}
			codes[code]++
		}
	}

	fmt.Printf("Attempts: %d\n", len(s.Results))
	fmt.Printf("Winners: %d\n", len(winners))
	for code, n := range codes {
		fmt.Printf("  %s: %d\n", code, n)
	}
	if len(s.Results) > 0 {
		fmt.Printf("Average response time: %v\n", total/time.Duration(len(s.Results)))
	}

	switch len(winners) {
	case 1:
		fmt.Println("✅ exactly one cart holds the seat")
	case 0:
		fmt.Println("❌ no cart got the seat (already taken, or every request was limited)")
	default:
		fmt.Printf("❌ %d carts hold the same seat\n", len(winners))
	}
	return winners
}
