package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
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

// QuizResult mirrors the message consumed by the server's ingestion path
type QuizResult struct {
	DeckID      string `json:"deck_id"`
	UserID      string `json:"user_id"`
	UserEmail   string `json:"user_email,omitempty"`
	Correct     int    `json:"correct"`
	Incorrect   int    `json:"incorrect"`
	AttemptedAt string `json:"attempted_at,omitempty"`
}

var userPrefixes = []string{
	"alice", "bob", "carol", "dave", "erin", "frank", "grace", "heidi", "ivan", "judy",
	"karl", "lena", "mallory", "nadia", "oscar", "peggy", "quinn", "ruth", "sybil", "trent",
}

func getUserID(idx int) string {
	prefixIdx := idx % len(userPrefixes)
	suffix := idx/len(userPrefixes) + 1
	return fmt.Sprintf("%s%d", userPrefixes[prefixIdx], suffix)
}

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "quiz-results", "Kafka topic")
	deckID := flag.String("deck", "deck1", "Deck ID to submit results for")
	totalUsers := flag.Int("users", 200, "Total number of users to simulate")
	resultsPerSecond := flag.Int("rate", 50, "Quiz results per second")
	cardsPerQuiz := flag.Int("cards", 20, "Cards per quiz session")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	flag.Parse()

	brokerList := strings.Split(*brokers, ",")

	fmt.Println("Quiz result producer")
	fmt.Printf("  Brokers:      %s\n", *brokers)
	fmt.Printf("  Topic:        %s\n", *topic)
	fmt.Printf("  Deck:         %s\n", *deckID)
	fmt.Printf("  Users:        %d\n", *totalUsers)
	fmt.Printf("  Results/sec:  %d\n", *resultsPerSecond)
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

	sendResult := func(result QuizResult) {
		data, err := json.Marshal(result)
		if err != nil {
			log.Printf("Failed to marshal message: %v", err)
			return
		}

		msg := &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(result.UserID),
			Value: sarama.ByteEncoder(data),
		}

		select {
		case producer.Input() <- msg:
		case <-done:
			return
		}
	}

	shutdown := func() {
		close(done)
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("\nCompleted. Sent: %d, Errors: %d\n", atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
	}

	interval := time.Second / time.Duration(*resultsPerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	var resultCount int64

	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutting down...")
			shutdown()
			return

		case <-ticker.C:
			if *duration > 0 && time.Now().After(endTime) {
				fmt.Println("\nDuration reached, shutting down...")
				shutdown()
				return
			}

			userIdx := rand.Intn(*totalUsers)
			userID := getUserID(userIdx)

			// Weaker students answer fewer cards correctly
			skill := 40 + userIdx%50
			correct := 0
			for i := 0; i < *cardsPerQuiz; i++ {
				if rand.Intn(100) < skill {
					correct++
				}
			}

			sendResult(QuizResult{
				DeckID:      *deckID,
				UserID:      userID,
				UserEmail:   fmt.Sprintf("%s@example.com", userID),
				Correct:     correct,
				Incorrect:   *cardsPerQuiz - correct,
				AttemptedAt: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
			})
			atomic.AddInt64(&resultCount, 1)

		case <-statsTicker.C:
			fmt.Printf("[%s] Results: %d | Sent: %d | Errors: %d\n",
				time.Now().Format("15:04:05"),
				atomic.LoadInt64(&resultCount),
				atomic.LoadInt64(&successCount),
				atomic.LoadInt64(&errorCount),
			)
		}
	}
}
