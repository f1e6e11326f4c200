package annotation

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/FocuswithJustin/colordep/core/errors"
)

// CoNLL-U layout. See https://universaldependencies.org/format.html
const (
	conlluFields    = 10
	conlluFormat    = "CoNLL-U"
	conlluTextKey   = "# text ="
	spaceAfterNo    = "SpaceAfter=No"
	conlluMiscSplit = "|"
)

type conlluRow struct {
	id     int
	form   string
	upos   string
	head   int
	hasDep bool
	deprel string
	spaced bool
	line   int
}

// ReadCoNLLU reads every sentence in a CoNLL-U stream. UPOS becomes the token
// category and HEAD/DEPREL become edges. Multiword token ranges and empty
// nodes are skipped. Offsets are recovered from the "# text =" comment when
// present, otherwise the text is rebuilt from the forms and SpaceAfter=No.
func ReadCoNLLU(r io.Reader) ([]*Sentence, error) {
	var (
		sentences []*Sentence
		rows      []conlluRow
		text      string
		hasText   bool
		lineNo    int
	)

	flush := func() error {
		if len(rows) == 0 {
			text, hasText = "", false
			return nil
		}
		s, err := buildCoNLLUSentence(rows, text, hasText)
		if err != nil {
			return err
		}
		sentences = append(sentences, s)
		rows, text, hasText = nil, "", false
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		switch {
		case strings.TrimSpace(line) == "":
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		case strings.HasPrefix(line, conlluTextKey):
			text = strings.TrimSpace(strings.TrimPrefix(line, conlluTextKey))
			hasText = true
			continue
		case strings.HasPrefix(line, "#"):
			continue
		}

		row, skip, err := parseCoNLLURow(line, lineNo)
		if err != nil {
			return nil, err
		}
		if !skip {
			rows = append(rows, row)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewIO("read", conlluFormat, err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return sentences, nil
}

func parseCoNLLURow(line string, lineNo int) (conlluRow, bool, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != conlluFields {
		return conlluRow{}, false, errors.NewParseAt(conlluFormat, lineNo,
			"expected "+strconv.Itoa(conlluFields)+" tab-separated fields, got "+strconv.Itoa(len(fields)))
	}

	// 1-2 multiword ranges and 3.1 empty nodes carry no tree position.
	if strings.ContainsAny(fields[0], "-.") {
		return conlluRow{}, true, nil
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil || id < 1 {
		return conlluRow{}, false, errors.NewParseAt(conlluFormat, lineNo, "invalid ID "+strconv.Quote(fields[0]))
	}

	row := conlluRow{
		id:     id,
		form:   fields[1],
		upos:   underscoreEmpty(fields[3]),
		deprel: underscoreEmpty(fields[7]),
		spaced: true,
		line:   lineNo,
	}
	if fields[6] != "_" {
		head, err := strconv.Atoi(fields[6])
		if err != nil || head < 0 {
			return conlluRow{}, false, errors.NewParseAt(conlluFormat, lineNo, "invalid HEAD "+strconv.Quote(fields[6]))
		}
		row.head = head
		row.hasDep = true
	}
	for _, item := range strings.Split(fields[9], conlluMiscSplit) {
		if item == spaceAfterNo {
			row.spaced = false
		}
	}
	return row, false, nil
}

func underscoreEmpty(v string) string {
	if v == "_" {
		return ""
	}
	return v
}

func buildCoNLLUSentence(rows []conlluRow, text string, hasText bool) (*Sentence, error) {
	if !hasText {
		var b strings.Builder
		for i, row := range rows {
			b.WriteString(row.form)
			if row.spaced && i < len(rows)-1 {
				b.WriteByte(' ')
			}
		}
		text = b.String()
	}

	s := &Sentence{Text: text, Tokens: make([]Token, 0, len(rows))}
	index := make(map[int]int, len(rows))
	cursor := 0
	for i, row := range rows {
		start := runeIndexFrom(text, row.form, cursor)
		if start < 0 {
			return nil, errors.NewParseAt(conlluFormat, row.line, "form "+strconv.Quote(row.form)+" not found in sentence text")
		}
		end := start + utf8.RuneCountInString(row.form)
		s.Tokens = append(s.Tokens, Token{Text: row.form, Start: start, End: end, Category: row.upos})
		index[row.id] = i
		cursor = end
	}

	for i, row := range rows {
		if !row.hasDep {
			continue
		}
		if row.head == 0 {
			s.Edges = append(s.Edges, Edge{Source: i, Target: i, Relation: row.deprel})
			continue
		}
		head, ok := index[row.head]
		if !ok {
			return nil, errors.NewParseAt(conlluFormat, row.line, "HEAD "+strconv.Itoa(row.head)+" is not a token of this sentence")
		}
		s.Edges = append(s.Edges, Edge{Source: head, Target: i, Relation: row.deprel})
	}
	return s, nil
}

// runeIndexFrom returns the rune offset of needle in haystack at or after rune
// offset from, or -1.
func runeIndexFrom(haystack, needle string, from int) int {
	byteFrom := 0
	for i := 0; i < from && byteFrom < len(haystack); i++ {
		_, size := utf8.DecodeRuneInString(haystack[byteFrom:])
		byteFrom += size
	}
	idx := strings.Index(haystack[byteFrom:], needle)
	if idx < 0 {
		return -1
	}
	return from + utf8.RuneCountInString(haystack[byteFrom:byteFrom+idx])
}
