// tracker-sim streams a synthetic gaze trace to a fixate relay.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-fixate/internal/config"
	"github.com/teslashibe/go-fixate/internal/log"
	"github.com/teslashibe/go-fixate/pkg/relay"
)

func main() {
	host := flag.String("host", config.String("FIXATE_RELAY_HOST", "localhost"), "Relay host")
	port := flag.String("port", config.RelayPort(), "Relay port")
	tracker := flag.String("tracker", "sim", "Tracker id")
	rate := flag.Float64("rate", config.Float("FIXATE_SIM_RATE", 250), "Samples per second")
	width := flag.Float64("width", 1920, "Screen width")
	height := flag.Float64("height", 1080, "Screen height")
	seed := flag.Int64("seed", 1, "Jitter seed")
	flag.Parse()

	log.Init(config.LogLevel())
	logger := log.Component("tracker-sim")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	url := config.RelayURL(*host, *port, *tracker)
	client, err := relay.Dial(ctx, url)
	if err != nil {
		logger.Error("dial failed", "error", err)
		os.Exit(1)
	}
	defer client.Close()
	logger.Info("streaming", "url", url, "rate", *rate)

	path := NewPath(*width, *height, *seed)
	ticker := time.NewTicker(time.Duration(float64(time.Second) / *rate))
	defer ticker.Stop()
	ping := time.NewTicker(time.Second)
	defer ping.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			logger.Info("stopped", "sent", client.Sent())
			return
		case <-client.Done():
			logger.Error("relay closed the connection", "error", client.Err())
			os.Exit(1)
		case <-ping.C:
			if err := client.Ping("sim"); err != nil {
				logger.Warn("ping failed", "error", err)
			}
			logger.Debug("stats", "sent", client.Sent(), "latency_ms", client.LatencyMs())
		case now := <-ticker.C:
			x, y, valid := path.At(now.Sub(start))
			if err := client.SendSample(x, y, valid); err != nil {
				logger.Error("send failed", "error", err)
				os.Exit(1)
			}
		}
	}
}
