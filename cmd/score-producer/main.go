package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
)

// ScoreSubmission mirrors the consumer-side message format
type ScoreSubmission struct {
	Name         string   `json:"name"`
	Points       float64  `json:"points"`
	Level        float64  `json:"level"`
	Lines        float64  `json:"lines"`
	GameDuration *float64 `json:"gameDuration,omitempty"`
	GameSeed     *string  `json:"gameSeed,omitempty"`
}

var playerPrefixes = []string{
	"Phoenix", "Shadow", "Thunder", "Storm", "Blaze", "Ninja", "Dragon", "Wolf", "Hawk", "Viper",
	"Ghost", "Titan", "Frost", "Cyber", "Nova", "Raven", "Omega", "Alpha", "Delta", "Sigma",
	"Ace", "Bolt", "Crash", "Dash", "Edge", "Flash", "Glitch", "Haze", "Ion", "Jade",
	"Knight", "Luna", "Mystic", "Neon", "Orion", "Pulse", "Quantum", "Rebel", "Spark", "Turbo",
}

func getPlayerName(idx int) string {
	prefixIdx := idx % len(playerPrefixes)
	suffix := idx/len(playerPrefixes) + 1
	return fmt.Sprintf("%s%d", playerPrefixes[prefixIdx], suffix)
}

// randomGame produces a submission that survives validation: the points stay
// inside the plausibility envelope for the generated level and line count.
func randomGame(name string, cheaterRate int) ScoreSubmission {
	level := float64(rand.Intn(12) + 1)
	// Lines track the level, 10 per level cleared plus partial progress
	lines := (level-1)*10 + float64(rand.Intn(10))

	var reward float64
	switch {
	case lines >= 40:
		reward = 3200
	case lines >= 30:
		reward = 1500
	case lines >= 20:
		reward = 600
	case lines >= 10:
		reward = 100
	}
	expected := reward + level*100

	duration := float64(rand.Intn(540000) + 60000)
	if duration < 300000 {
		expected += math.Floor((300000 - duration) / 1000)
	}

	// Most games score below the estimate; the occasional cheater blows past it
	points := math.Floor(expected * (0.5 + rand.Float64()*0.6))
	if rand.Intn(100) < cheaterRate {
		points = expected*10 + 50000
	}

	return ScoreSubmission{
		Name:         name,
		Points:       points,
		Level:        level,
		Lines:        lines,
		GameDuration: &duration,
	}
}

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "tetris-scores", "Kafka topic")
	totalPlayers := flag.Int("players", 200, "Total number of players to simulate")
	updatesPerSecond := flag.Int("rate", 50, "Submissions per second")
	cheaterRate := flag.Int("cheaters", 2, "Percent of submissions with implausible scores")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	flag.Parse()

	brokerList := strings.Split(*brokers, ",")

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("  🎮 Tetris Score Producer")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Brokers:          %s\n", *brokers)
	fmt.Printf("  Topic:            %s\n", *topic)
	fmt.Printf("  Players:          %d\n", *totalPlayers)
	fmt.Printf("  Submissions/sec:  %d\n", *updatesPerSecond)
	fmt.Printf("  Cheater rate:     %d%%\n", *cheaterRate)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	// Create producer
	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	// Handle producer errors and successes
	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	// Send message helper
	sendMessage := func(submission ScoreSubmission) {
		data, err := json.Marshal(submission)
		if err != nil {
			log.Printf("Failed to marshal message: %v", err)
			return
		}

		msg := &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(submission.Name),
			Value: sarama.ByteEncoder(data),
		}

		select {
		case producer.Input() <- msg:
		case <-done:
			return
		}
	}

	fmt.Printf("Producing submissions for %d players\n", *totalPlayers)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	interval := time.Second / time.Duration(*updatesPerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	var submitCount int64

	shutdown := func() {
		close(done)
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("\n✓ Completed. Sent: %d, Errors: %d\n", atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
	}

	for {
		select {
		case <-sigChan:
			fmt.Println("\n\nShutting down...")
			shutdown()
			return

		case <-ticker.C:
			if *duration > 0 && time.Now().After(endTime) {
				fmt.Println("\n\nDuration reached, shutting down...")
				shutdown()
				return
			}

			name := getPlayerName(rand.Intn(*totalPlayers))
			sendMessage(randomGame(name, *cheaterRate))
			atomic.AddInt64(&submitCount, 1)

		case <-statsTicker.C:
			submitted := atomic.LoadInt64(&submitCount)
			success := atomic.LoadInt64(&successCount)
			errors := atomic.LoadInt64(&errorCount)
			fmt.Printf("[%s] Submitted: %d | Sent: %d | Errors: %d\n",
				time.Now().Format("15:04:05"),
				submitted,
				success,
				errors,
			)
		}
	}
}
