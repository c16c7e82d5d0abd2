package content

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"studio/admin/internal/docstore"
)

const textsCollection = "texts"

var textKeyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{0,63}$`)

// Text is one keyed block of site copy, such as the about page.
type Text struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type TextService struct {
	store docstore.Store
}

func NewTextService(store docstore.Store) *TextService {
	return &TextService{store: store}
}

func (s *TextService) List(ctx context.Context) ([]Text, error) {
	records, err := s.store.List(ctx, docstore.Scope{Collection: textsCollection})
	if err != nil {
		return nil, fmt.Errorf("list texts: %w", err)
	}
	texts := make([]Text, 0, len(records))
	for _, record := range records {
		texts = append(texts, textFromRecord(record))
	}
	sort.Slice(texts, func(i, j int) bool { return texts[i].Key < texts[j].Key })
	return texts, nil
}

func (s *TextService) Get(ctx context.Context, key string) (Text, error) {
	record, err := s.find(ctx, key)
	if err != nil {
		return Text{}, err
	}
	return textFromRecord(record), nil
}

// Put creates or replaces the block stored under key.
func (s *TextService) Put(ctx context.Context, text Text) (Text, error) {
	text.Key = strings.TrimSpace(text.Key)
	if !textKeyPattern.MatchString(text.Key) {
		return Text{}, invalid("texts", "key", "must be lower-case letters, digits, '.', '_' or '-'")
	}
	text.Title = strings.TrimSpace(text.Title)
	if len(text.Body) > longTextMax {
		return Text{}, invalid("texts", "body", fmt.Sprintf("must be at most %d bytes", longTextMax))
	}
	fields := map[string]any{"key": text.Key, "title": text.Title, "body": text.Body}

	record, err := s.find(ctx, text.Key)
	switch {
	case err == nil:
		if err := s.store.Update(ctx, textsCollection, record.ID, fields); err != nil {
			return Text{}, fmt.Errorf("update text %s: %w", text.Key, err)
		}
	case errors.Is(err, docstore.ErrNotFound):
		if _, err := s.store.Create(ctx, textsCollection, fields, nil); err != nil {
			return Text{}, fmt.Errorf("create text %s: %w", text.Key, err)
		}
	default:
		return Text{}, err
	}
	return text, nil
}

func (s *TextService) find(ctx context.Context, key string) (docstore.Record, error) {
	records, err := s.store.List(ctx, docstore.Scope{Collection: textsCollection, Field: "key", Value: key})
	if err != nil {
		return docstore.Record{}, fmt.Errorf("find text %s: %w", key, err)
	}
	if len(records) == 0 {
		return docstore.Record{}, fmt.Errorf("text %s: %w", key, docstore.ErrNotFound)
	}
	// Oldest record wins if a race ever stored the key twice.
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })
	return records[0], nil
}

func textFromRecord(record docstore.Record) Text {
	return Text{
		Key:   record.String("key"),
		Title: record.String("title"),
		Body:  record.String("body"),
	}
}
