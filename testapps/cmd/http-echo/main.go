package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// accessLog writes one JSON line per request in the same shape caddy uses
// for its access logger.
func accessLog(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)

		ip, port, err := net.SplitHostPort(req.RemoteAddr)
		if err != nil {
			ip, port = req.RemoteAddr, "0"
		}
		headers := zerolog.Dict()
		for name, values := range req.Header {
			headers = headers.Strs(name, values)
		}

		logger.Info().
			Float64("ts", float64(start.UnixMicro())/1e6).
			Dict("request", zerolog.Dict().
				Str("remote_ip", ip).
				Str("remote_port", port).
				Str("proto", req.Proto).
				Str("method", req.Method).
				Str("host", req.Host).
				Str("uri", req.RequestURI).
				Dict("headers", headers)).
			Float64("duration", time.Since(start).Seconds()).
			Int("size", rec.size).
			Int("status", rec.status).
			Msg("handled request")
	})
}

func main() {
	var port int
	flag.IntVar(&port, "port", 0, "Port to listen on (0 for ephemeral)")
	flag.Parse()

	if port == 0 {
		if v := os.Getenv("HTTP_ECHO_PORT"); v != "" {
			port, _ = strconv.Atoi(v)
		}
	}

	zerolog.MessageFieldName = "msg"
	logger := zerolog.New(os.Stdout).With().Str("logger", "http.log.access").Logger()

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "listen error: %v\n", err)
		os.Exit(2)
	}
	_, _ = fmt.Fprintf(os.Stderr, "listening on %s\n", ln.Addr().String())

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	})

	srv := &http.Server{
		Handler:           accessLog(logger, mux),
		ReadHeaderTimeout: 2 * time.Second,
	}

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		_, _ = fmt.Fprintf(os.Stderr, "serve error: %v\n", err)
		os.Exit(3)
	}
}
