// Command sensor-simulator publishes synthetic garden readings on the
// sensor topic at a fixed interval, for exercising the pipeline without
// hardware.
package main

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	mqttpkg "garden-monitor/pkg/mqtt"
)

type payload struct {
	UserID int64   `json:"userId"`
	Temp   float64 `json:"temp"`
	Hum    float64 `json:"hum"`
	Soil   float64 `json:"soil"`
	Light  float64 `json:"light"`
}

// walker random-walks one metric within its physical band.
type walker struct {
	value, step, min, max float64
}

func (w *walker) next() float64 {
	w.value += (rand.Float64() - 0.5) * 2 * w.step
	if w.value < w.min {
		w.value = w.min
	}
	if w.value > w.max {
		w.value = w.max
	}
	return w.value
}

func getenv(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func main() {
	userID := int64(getenvInt("SIM_USER_ID", 1))
	interval := time.Duration(getenvInt("SIM_INTERVAL_MS", 5000)) * time.Millisecond
	topic := getenv("MQTT_TOPIC", "home/garden/sensor-data")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := mqttpkg.NewConn(ctx, &mqttpkg.Config{
		Host:     getenv("MQTT_HOST", "localhost"),
		Port:     getenvInt("MQTT_PORT", 1883),
		User:     getenv("MQTT_USER", ""),
		Password: getenv("MQTT_PASSWORD", ""),
		ClientID: getenv("MQTT_CLIENT_ID", "garden-sensor-sim"),
	})
	if err != nil {
		log.Fatalf("simulator: mqtt connect failed: %v", err)
	}
	publisher := mqttpkg.NewPublisher(client, topic, 1)
	defer publisher.Close()

	// Bands mirror a small indoor garden: °C, %RH, % soil, lux-equivalent.
	temp := &walker{value: 24, step: 1, min: 18, max: 35}
	hum := &walker{value: 65, step: 2.5, min: 30, max: 90}
	soil := &walker{value: 45, step: 1.5, min: 20, max: 80}
	light := &walker{value: 75, step: 4, min: 0, max: 100}

	log.Printf("simulator: publishing to %s every %s as user %d", topic, interval, userID)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("simulator: stopped")
			return
		case <-ticker.C:
			p := payload{
				UserID: userID,
				Temp:   round1(temp.next()),
				Hum:    round1(hum.next()),
				Soil:   round1(soil.next()),
				Light:  round1(light.next()),
			}
			b, _ := json.Marshal(p)
			if err := publisher.PublishMessage(b); err != nil {
				log.Printf("simulator: publish failed: %v", err)
				continue
			}
			log.Printf("simulator: sent %s", b)
		}
	}
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
