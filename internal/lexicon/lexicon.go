// lexicon загружает финансовый словарь тональности (положительные и
// отрицательные слова) и отдаёт его в неизменяемом виде.
//
// Словарь строится один раз при старте процесса (см. Store) и дальше
// только читается, поэтому безопасен для конкурентного использования.
package lexicon

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pribylovaa/go-news-sentiment/internal/textnorm"
	"github.com/pribylovaa/go-news-sentiment/pkg/log"
)

// ErrLexiconLoad — словарь не удалось загрузить: файл отсутствует,
// CSV битый или один из классов пуст. Без словаря скоринг невозможен.
var ErrLexiconLoad = errors.New("lexicon load failed")

// Polarity — класс слова в словаре.
type Polarity int

const (
	Unknown Polarity = iota
	Positive
	Negative
)

// Имена колонок с меткой класса в порядке приоритета.
var labelColumns = []string{"sentiment", "polarity", "label"}

// Lexicon — неизменяемая пара множеств слов.
type Lexicon struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// New строит словарь из готовых списков слов.
// Слова проходят ту же нормализацию, что и текст статей; слова,
// не дающие ровно один токен, отбрасываются. Пустой класс — ErrLexiconLoad.
func New(positive, negative []string) (*Lexicon, error) {
	const op = "lexicon.New"

	lex := &Lexicon{
		positive: make(map[string]struct{}, len(positive)),
		negative: make(map[string]struct{}, len(negative)),
	}

	for _, w := range positive {
		if word, ok := normalizeWord(w); ok {
			lex.positive[word] = struct{}{}
		}
	}

	for _, w := range negative {
		if word, ok := normalizeWord(w); ok {
			lex.negative[word] = struct{}{}
		}
	}

	if err := lex.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return lex, nil
}

// Parse читает CSV со строкой заголовка: колонка слова ("word") и колонка
// метки ("sentiment", "polarity" или "label"). Если заголовок не
// распознан, файл считается безголовым с колонками (слово, метка).
//
// Неизвестные метки и слова, не дающие ровно один токен, пропускаются
// с предупреждением в логгер из ctx.
func Parse(ctx context.Context, r io.Reader) (*Lexicon, error) {
	const op = "lexicon.Parse"

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w: empty source", op, ErrLexiconLoad)
		}
		return nil, fmt.Errorf("%s: %w: %w", op, ErrLexiconLoad, err)
	}

	wordIdx, labelIdx, headerIsData, err := resolveColumns(header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrLexiconLoad, err)
	}

	lex := &Lexicon{
		positive: make(map[string]struct{}),
		negative: make(map[string]struct{}),
	}

	var skippedLabels, skippedWords int
	add := func(record []string) {
		if len(record) <= wordIdx || len(record) <= labelIdx {
			skippedWords++
			return
		}

		polarity := ParsePolarity(record[labelIdx])
		if polarity == Unknown {
			skippedLabels++
			return
		}

		word, ok := normalizeWord(record[wordIdx])
		if !ok {
			skippedWords++
			return
		}

		if polarity == Positive {
			lex.positive[word] = struct{}{}
		} else {
			lex.negative[word] = struct{}{}
		}
	}

	if headerIsData {
		add(header)
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%s: %w: line %d: %w", op, ErrLexiconLoad, line, err)
		}

		add(record)
	}

	lg := log.From(ctx)

	if skippedLabels > 0 {
		lg.Warn("lexicon_unknown_labels_skipped",
			slog.String("op", op),
			slog.Int("count", skippedLabels),
		)
	}

	if skippedWords > 0 {
		lg.Warn("lexicon_words_skipped",
			slog.String("op", op),
			slog.Int("count", skippedWords),
		)
	}

	if err := lex.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return lex, nil
}

// LoadFile открывает CSV-файл словаря и разбирает его через Parse.
func LoadFile(ctx context.Context, path string) (*Lexicon, error) {
	const op = "lexicon.LoadFile"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrLexiconLoad, err)
	}
	defer f.Close()

	lex, err := Parse(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, path, err)
	}

	return lex, nil
}

// ParsePolarity распознаёт метку класса без учёта регистра.
func ParsePolarity(label string) Polarity {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "positive", "pos":
		return Positive
	case "negative", "neg":
		return Negative
	default:
		return Unknown
	}
}

// IsPositive сообщает, входит ли нормализованное слово в положительный класс.
func (l *Lexicon) IsPositive(word string) bool {
	_, ok := l.positive[word]
	return ok
}

// IsNegative сообщает, входит ли нормализованное слово в отрицательный класс.
func (l *Lexicon) IsNegative(word string) bool {
	_, ok := l.negative[word]
	return ok
}

// Len возвращает размеры классов.
func (l *Lexicon) Len() (positive, negative int) {
	return len(l.positive), len(l.negative)
}

func (l *Lexicon) validate() error {
	if len(l.positive) == 0 {
		return fmt.Errorf("%w: no positive words", ErrLexiconLoad)
	}

	if len(l.negative) == 0 {
		return fmt.Errorf("%w: no negative words", ErrLexiconLoad)
	}

	return nil
}

// resolveColumns находит индексы колонок слова и метки по заголовку.
// Если заголовок не распознан, первая строка считается данными,
// а колонки — (слово, метка).
func resolveColumns(header []string) (wordIdx, labelIdx int, headerIsData bool, err error) {
	wordIdx, labelIdx = -1, -1

	names := make(map[string]int, len(header))
	for i, h := range header {
		names[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	if i, ok := names["word"]; ok {
		wordIdx = i
	}

	for _, name := range labelColumns {
		if i, ok := names[name]; ok {
			labelIdx = i
			break
		}
	}

	if wordIdx >= 0 && labelIdx >= 0 {
		return wordIdx, labelIdx, false, nil
	}

	if len(header) < 2 {
		return -1, -1, false, errors.New("need at least two columns: word, polarity")
	}

	return 0, 1, true, nil
}

// normalizeWord приводит слово словаря к виду токена.
func normalizeWord(raw string) (string, bool) {
	tokens := textnorm.Normalize(raw)
	if len(tokens) != 1 {
		return "", false
	}

	return tokens[0], true
}
