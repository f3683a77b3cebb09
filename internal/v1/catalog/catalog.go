// Package catalog loads the word lists drawers choose from and tracks
// which words a room has already used so a round never repeats one.
package catalog

import (
	"bufio"
	"context"
	"embed"
	"fmt"
	"math/rand"
	"strings"

	"github.com/singhalkarun/scribble/backend/go/internal/v1/logging"
	"go.uber.org/zap"
)

//go:embed words_easy.csv words_medium.csv words_hard.csv
var wordFiles embed.FS

// Difficulty mirrors session.Difficulty without importing it, keeping
// this package dependency-free of the session wire protocol.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Catalog holds the loaded word lists, one slice per difficulty.
type Catalog struct {
	words map[Difficulty][]string
}

// Load reads the embedded CSVs into memory. Each CSV is a single column
// of words, one per line, trimmed and lowercased on load; blank lines and
// lines starting with "#" are skipped. A file with no usable words fails
// the load.
func Load() (*Catalog, error) {
	c := &Catalog{words: make(map[Difficulty][]string, 3)}
	files := map[Difficulty]string{
		Easy:   "words_easy.csv",
		Medium: "words_medium.csv",
		Hard:   "words_hard.csv",
	}
	for difficulty, name := range files {
		words, err := readWordFile(name)
		if err != nil {
			return nil, fmt.Errorf("catalog: loading %s: %w", name, err)
		}
		if len(words) == 0 {
			return nil, fmt.Errorf("catalog: %s contains no usable words", name)
		}
		c.words[difficulty] = words
	}
	return c, nil
}

func readWordFile(name string) ([]string, error) {
	f, err := wordFiles.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// DifficultyOf classifies a word by length: up to 5 bytes is easy, up
// to 8 is medium, anything longer is hard.
func DifficultyOf(word string) Difficulty {
	switch n := len(word); {
	case n <= 5:
		return Easy
	case n <= 8:
		return Medium
	default:
		return Hard
	}
}

// suggestionCount is how many words a drawer is offered at once.
const suggestionCount = 3

// Suggest draws three words from the given difficulty tier, excluding
// anything already in used so a room never repeats a word within the
// same round. If the tier runs out of unused words, used is cleared and
// logged so the room can keep playing instead of stalling.
func (c *Catalog) Suggest(ctx context.Context, d Difficulty, used map[string]bool) []string {
	pool := c.words[d]
	if len(pool) == 0 {
		return nil
	}

	picked := make([]string, 0, suggestionCount)
	seen := make(map[string]bool, suggestionCount)
	for len(picked) < suggestionCount && len(picked) < len(pool) {
		word, ok := c.pickUnused(d, used, seen)
		if !ok {
			logging.Warn(ctx, "word tier exhausted, resetting used words for room",
				zap.String("difficulty", string(d)))
			for k := range used {
				delete(used, k)
			}
			word, ok = c.pickUnused(d, used, seen)
			if !ok {
				break
			}
		}
		picked = append(picked, word)
		seen[word] = true
	}
	return picked
}

func (c *Catalog) pickUnused(d Difficulty, used, seen map[string]bool) (string, bool) {
	pool := c.words[d]
	start := rand.Intn(len(pool))
	for i := 0; i < len(pool); i++ {
		word := pool[(start+i)%len(pool)]
		if !used[word] && !seen[word] {
			return word, true
		}
	}
	return "", false
}
