package domain

import "time"

// LeaderboardEntry is the latest cumulative tally for one user on one deck.
// It is fully replaced on every score update; there is no incremental
// accumulation at this level.
type LeaderboardEntry struct {
	UserEmail   string `json:"userEmail"`
	Correct     int    `json:"correct"`
	Incorrect   int    `json:"incorrect"`
	LastAttempt string `json:"lastAttempt"`
}

// UserScore is the correct/incorrect pair returned by score lookups.
type UserScore struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
}

// QuizAttempt is one discrete, timestamped quiz recording. Unlike
// LeaderboardEntry the attempt history is append-only.
type QuizAttempt struct {
	UserEmail   string `json:"userEmail"`
	Correct     int    `json:"correct"`
	Incorrect   int    `json:"incorrect"`
	LastAttempt string `json:"lastAttempt"`
}

// DeckAnalysis aggregates a deck's leaderboard entries. Averages are
// arithmetic means over the number of entries, not over attempts.
type DeckAnalysis struct {
	TotalCorrect   int     `json:"totalCorrect"`
	TotalIncorrect int     `json:"totalIncorrect"`
	TotalAttempts  int     `json:"totalAttempts"`
	AvgCorrect     float64 `json:"avgCorrect"`
	AvgIncorrect   float64 `json:"avgIncorrect"`
	AvgAttempts    float64 `json:"avgAttempts"`
}

// TrendPoint is one calendar day of aggregated deck performance.
type TrendPoint struct {
	Date      string `json:"date"`
	Correct   int    `json:"correct"`
	Incorrect int    `json:"incorrect"`
	Attempts  int    `json:"attempts"`
}

// ProgressPoint is one quiz attempt in a user's chronological timeseries.
// Date is nil when the stored timestamp cannot be parsed; the attempt is
// still included.
type ProgressPoint struct {
	UserEmail     string  `json:"userEmail"`
	Correct       int     `json:"correct"`
	Incorrect     int     `json:"incorrect"`
	LastAttempt   string  `json:"lastAttempt"`
	Date          *string `json:"date"`
	TotalAttempts int     `json:"totalAttempts"`
}

// StreakRecord tracks consecutive daily practice for a user across all
// decks. An absent record is equivalent to the zero value.
type StreakRecord struct {
	CurrentStreak    int    `json:"currentStreak"`
	LastPracticeDate string `json:"lastPracticeDate,omitempty"`
}

// Deck is a catalog record for a collection of study cards.
type Deck struct {
	ID          string `json:"id,omitempty"`
	UserID      string `json:"userId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
	CardsCount  int    `json:"cardsCount"`
	LastOpened  string `json:"lastOpened,omitempty"`
}

// Deck visibility values.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// QuizResult is a quiz outcome submitted for ingestion, either over HTTP
// or through the Kafka topic.
type QuizResult struct {
	DeckID      string `json:"deck_id"`
	UserID      string `json:"user_id"`
	UserEmail   string `json:"user_email"`
	Correct     int    `json:"correct"`
	Incorrect   int    `json:"incorrect"`
	AttemptedAt string `json:"attempted_at,omitempty"`
}

// BatchQuizResults wraps multiple quiz results consumed from Kafka.
type BatchQuizResults struct {
	Results []QuizResult `json:"results"`
}

// ScoreEvent is an audit record of a leaderboard update.
type ScoreEvent struct {
	DeckID    string    `json:"deck_id"`
	UserID    string    `json:"user_id"`
	UserEmail string    `json:"user_email"`
	Correct   int       `json:"correct"`
	Incorrect int       `json:"incorrect"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// PracticeEvent is an audit record of a practice-log transition.
type PracticeEvent struct {
	UserID      string    `json:"user_id"`
	DeckID      string    `json:"deck_id"`
	PracticedOn string    `json:"practiced_on"`
	Streak      int       `json:"streak"`
	Timestamp   time.Time `json:"timestamp"`
}

// LeaderboardSnapshot is a leaderboard entry paired with its key, as
// archived to the reporting database.
type LeaderboardSnapshot struct {
	DeckID string
	UserID string
	Entry  LeaderboardEntry
}
