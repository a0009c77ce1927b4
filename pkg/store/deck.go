package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Card is one term/definition pair.
type Card struct {
	Term       string
	Definition string
}

// Deck is a user's flashcard set: a mapping from term to definition that
// remembers insertion order. Its JSON form is a plain object whose keys follow
// that order.
type Deck struct {
	cards []Card
	index map[string]int
}

// NormalizeTerm folds case and trims surrounding whitespace. Terms and
// definitions are stored normalized.
func NormalizeTerm(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func NewDeck(cards ...Card) *Deck {
	d := &Deck{}
	for _, card := range cards {
		d.Put(card.Term, card.Definition)
	}
	return d
}

// Put adds or overwrites term. An overwritten card keeps its position.
func (d *Deck) Put(term, definition string) (replaced bool) {
	return d.put(NormalizeTerm(term), NormalizeTerm(definition))
}

func (d *Deck) put(term, definition string) bool {
	if d.index == nil {
		d.index = make(map[string]int)
	}
	if i, ok := d.index[term]; ok {
		d.cards[i].Definition = definition
		return true
	}
	d.index[term] = len(d.cards)
	d.cards = append(d.cards, Card{Term: term, Definition: definition})
	return false
}

func (d *Deck) Get(term string) (string, bool) {
	if d == nil {
		return "", false
	}
	i, ok := d.index[NormalizeTerm(term)]
	if !ok {
		return "", false
	}
	return d.cards[i].Definition, true
}

func (d *Deck) Delete(term string) bool {
	if d == nil {
		return false
	}
	term = NormalizeTerm(term)
	i, ok := d.index[term]
	if !ok {
		return false
	}
	d.cards = append(d.cards[:i], d.cards[i+1:]...)
	delete(d.index, term)
	for j := i; j < len(d.cards); j++ {
		d.index[d.cards[j].Term] = j
	}
	return true
}

func (d *Deck) Len() int {
	if d == nil {
		return 0
	}
	return len(d.cards)
}

// Cards returns the cards in insertion order.
func (d *Deck) Cards() []Card {
	if d == nil {
		return nil
	}
	return append([]Card(nil), d.cards...)
}

func (d *Deck) Clone() *Deck {
	out := &Deck{}
	if d == nil {
		return out
	}
	for _, card := range d.cards {
		out.put(card.Term, card.Definition)
	}
	return out
}

func (d *Deck) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if d != nil {
		for i, card := range d.cards {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(card.Term)
			if err != nil {
				return nil, err
			}
			value, err := json.Marshal(card.Definition)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (d *Deck) UnmarshalJSON(data []byte) error {
	*d = Deck{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("flashcard deck: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		term, ok := tok.(string)
		if !ok {
			return fmt.Errorf("flashcard deck: expected string key, got %v", tok)
		}
		var definition string
		if err := dec.Decode(&definition); err != nil {
			return fmt.Errorf("flashcard deck: term %q: %w", term, err)
		}
		d.put(term, definition)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
