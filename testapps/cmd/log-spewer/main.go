package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
)

var (
	hosts   = []string{"example.com", "www.example.com", "api.example.com", "static.test"}
	methods = []string{"GET", "GET", "GET", "POST", "PUT", "DELETE"}
	uris    = []string{"/", "/index.html", "/api/v1/items", "/api/v1/items/42", "/static/app.js"}
	codes   = []int{200, 200, 200, 204, 301, 304, 404, 500, 502}
	agents  = []string{"curl/8.4.0", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko)"}
)

// Emits caddy-style JSON access logs interleaved with plain and malformed
// lines, for trying out filters and strict mode by hand.
func main() {
	var interval time.Duration
	var lines int
	var seed int64
	flag.DurationVar(&interval, "interval", 50*time.Millisecond, "Delay between lines")
	flag.IntVar(&lines, "lines", 50, "Number of lines to emit")
	flag.Int64Var(&seed, "seed", 1, "Random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(seed))
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)

	for i := 0; i < lines; i++ {
		now := float64(time.Now().UnixMicro()) / 1e6
		switch {
		case i%17 == 16:
			_, _ = fmt.Fprintf(os.Stdout, "plain text line %d\n", i)
		case i%11 == 10:
			_ = enc.Encode(map[string]any{"ts": now, "level": "warn", "msg": fmt.Sprintf("tls: certificate renewal pending (%d)", i)})
		default:
			_ = enc.Encode(accessRecord(rng, now))
		}
		time.Sleep(interval)
	}
}

func accessRecord(rng *rand.Rand, ts float64) map[string]any {
	pick := func(xs []string) string { return xs[rng.Intn(len(xs))] }
	status := codes[rng.Intn(len(codes))]
	level := "info"
	if status >= 500 {
		level = "error"
	}
	return map[string]any{
		"level":  level,
		"ts":     ts,
		"logger": "http.log.access",
		"msg":    "handled request",
		"request": map[string]any{
			"remote_ip":   fmt.Sprintf("192.0.2.%d", 1+rng.Intn(254)),
			"remote_port": fmt.Sprintf("%d", 1024+rng.Intn(60000)),
			"proto":       "HTTP/1.1",
			"method":      pick(methods),
			"host":        pick(hosts),
			"uri":         pick(uris),
			"headers":     map[string][]string{"User-Agent": {pick(agents)}, "Accept": {"*/*"}},
		},
		"duration": rng.ExpFloat64() / 50,
		"size":     rng.Intn(1 << 16),
		"status":   status,
	}
}
