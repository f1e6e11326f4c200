package annotation

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"

	"github.com/FocuswithJustin/colordep/core/errors"
)

// docJSON mirrors the document layout written by spaCy's Doc.to_json.
type docJSON struct {
	Text   string      `json:"text"`
	Tokens []tokenJSON `json:"tokens"`
}

type tokenJSON struct {
	ID    int    `json:"id"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	POS   string `json:"pos"`
	Dep   string `json:"dep"`
	Head  int    `json:"head"`
}

// ReadJSON reads one document object or an array of them. Start and End are
// character offsets, Head is the absolute index of the head token.
func ReadJSON(r io.Reader) ([]*Sentence, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIO("read", "json", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.NewParse("json", "", "empty input")
	}

	var docs []docJSON
	if data[0] == '[' {
		err = json.Unmarshal(data, &docs)
	} else {
		var doc docJSON
		err = json.Unmarshal(data, &doc)
		docs = []docJSON{doc}
	}
	if err != nil {
		return nil, &errors.ParseError{Format: "json", Message: err.Error()}
	}

	sentences := make([]*Sentence, 0, len(docs))
	for i, doc := range docs {
		s, err := doc.sentence()
		if err != nil {
			return nil, errors.Wrapf(err, "document %d", i)
		}
		sentences = append(sentences, s)
	}
	return sentences, nil
}

func (d docJSON) sentence() (*Sentence, error) {
	runes := []rune(d.Text)
	s := &Sentence{Text: d.Text, Tokens: make([]Token, 0, len(d.Tokens))}
	for i, t := range d.Tokens {
		if t.Start < 0 || t.End < t.Start || t.End > len(runes) {
			return nil, errors.NewValidation("tokens["+strconv.Itoa(i)+"]", "offsets outside text")
		}
		s.Tokens = append(s.Tokens, Token{
			Text:     string(runes[t.Start:t.End]),
			Start:    t.Start,
			End:      t.End,
			Category: t.POS,
		})
	}
	for i, t := range d.Tokens {
		if t.Head < 0 || t.Head >= len(d.Tokens) {
			return nil, errors.NewValidation("tokens["+strconv.Itoa(i)+"].head", "head "+strconv.Itoa(t.Head)+" out of range")
		}
		if t.Dep == "" && t.Head == i {
			continue
		}
		s.Edges = append(s.Edges, Edge{Source: t.Head, Target: i, Relation: t.Dep})
	}
	return s, nil
}

// WriteJSON writes sentences in the layout ReadJSON accepts.
func WriteJSON(w io.Writer, sentences []*Sentence) error {
	docs := make([]docJSON, 0, len(sentences))
	for _, s := range sentences {
		doc := docJSON{Text: s.Text, Tokens: make([]tokenJSON, len(s.Tokens))}
		for i, tok := range s.Tokens {
			doc.Tokens[i] = tokenJSON{ID: i, Start: tok.Start, End: tok.End, POS: tok.Category, Head: i}
		}
		for _, e := range s.Edges {
			if e.Target >= 0 && e.Target < len(doc.Tokens) {
				doc.Tokens[e.Target].Head = e.Source
				doc.Tokens[e.Target].Dep = e.Relation
			}
		}
		docs = append(docs, doc)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return errors.NewIO("write", "json", err)
	}
	return nil
}
