package filters

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/grouppolice/internal/db"
)

var ErrUnknownList = errors.New("unknown keyword list")

// Lists keeps the in-memory keyword lists in sync with the KeywordStore.
type Lists struct {
	store    db.KeywordStore
	mu       sync.Mutex
	lists    map[string]*WordList
	defaults map[string][]string
}

func NewLists(store db.KeywordStore) *Lists {
	return &Lists{
		store: store,
		lists: map[string]*WordList{
			db.KeywordListAbusive:      NewWordList(DefaultAbusiveWords),
			db.KeywordListPornographic: NewWordList(DefaultPornographicWords),
		},
		defaults: map[string][]string{
			db.KeywordListAbusive:      DefaultAbusiveWords,
			db.KeywordListPornographic: DefaultPornographicWords,
		},
	}
}

// Load reads every list from storage, seeding empty ones with the built-in defaults.
func (l *Lists) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := log.WithField("object", "Lists").WithField("method", "Load")

	for name := range l.lists {
		words, err := l.store.GetKeywords(ctx, name)
		if err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
		if len(words) == 0 {
			if _, err := l.store.AddKeywords(ctx, name, l.defaults[name]); err != nil {
				return fmt.Errorf("seed %s: %w", name, err)
			}
			if words, err = l.store.GetKeywords(ctx, name); err != nil {
				return fmt.Errorf("reload %s: %w", name, err)
			}
			entry.WithField("list", name).Infof("seeded %d default words", len(words))
		}
		l.lists[name].Set(words)
	}
	return nil
}

// List returns the named list or nil.
func (l *Lists) List(name string) *WordList {
	return l.lists[name]
}

func (l *Lists) Add(ctx context.Context, name string, words []string) (int, error) {
	return l.mutate(ctx, name, words, l.store.AddKeywords)
}

func (l *Lists) Remove(ctx context.Context, name string, words []string) (int, error) {
	return l.mutate(ctx, name, words, l.store.RemoveKeywords)
}

func (l *Lists) mutate(ctx context.Context, name string, words []string, op func(context.Context, string, []string) (int, error)) (int, error) {
	list, ok := l.lists[name]
	if !ok {
		return 0, ErrUnknownList
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := op(ctx, name, words)
	if err != nil {
		return 0, err
	}
	current, err := l.store.GetKeywords(ctx, name)
	if err != nil {
		return n, fmt.Errorf("reload %s: %w", name, err)
	}
	list.Set(current)
	return n, nil
}
