package moderation

import (
	"dispatch-lab/errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

// Test_Moderation_Startup measures how long a large dictionary takes to
// load from badger and compile into the automaton.
func Test_Moderation_Startup(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	wordCount := 20_000

	// Seeding
	wb := db.NewWriteBatch()
	for i := 0; i < wordCount; i++ {
		key := []byte(fmt.Sprintf("blacklist:word%c%d", 'a'+rune(i%26), i))
		req.NoError(wb.Set(key, nil))
	}
	req.NoError(wb.Flush())

	// Loading, the words live in the keys
	startLoad := time.Now()
	var words []string
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte("blacklist:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			words = append(words, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	req.NoError(err)
	req.Len(words, wordCount)

	// Building
	mod, err := NewModerator(words, '*', slog.New(slog.DiscardHandler))
	req.NoError(err)
	t.Logf("moderation ready in %v", time.Since(startLoad))

	content, hits := mod.Censor("say worda0 twice worda0")
	req.Equal("say ****** twice ******", content)
	req.Len(hits, 2)
}

func TestNewModerator_Only_Noise(t *testing.T) {
	req := require.New(t)

	_, err := NewModerator([]string{"...", " ", ""}, '*', slog.New(slog.DiscardHandler))

	req.True(errors.Is(err, errors.ErrEmptyWords))
}
