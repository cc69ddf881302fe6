// sentiment считает тональность текста по финансовому словарю:
// число положительных и отрицательных токенов и нормированную разность.
package sentiment

import (
	"github.com/pribylovaa/go-news-sentiment/internal/lexicon"
	"github.com/pribylovaa/go-news-sentiment/internal/models"
	"github.com/pribylovaa/go-news-sentiment/internal/textnorm"
)

// Score оценивает последовательность токенов.
//
// Правила:
//   - токены считаются с кратностью, без дедупликации;
//   - токен из обоих классов учитывается в обоих счётчиках;
//   - пустая последовательность -> нулевой результат;
//   - NetScore = (Positive - Negative) / len(tokens), без дополнительного
//     ограничения: диапазон [-1, 1] следует из счётчиков.
func Score(tokens []string, lex *lexicon.Lexicon) models.SentimentResult {
	if len(tokens) == 0 {
		return models.SentimentResult{}
	}

	var res models.SentimentResult
	for _, tok := range tokens {
		if lex.IsPositive(tok) {
			res.Positive++
		}
		if lex.IsNegative(tok) {
			res.Negative++
		}
	}

	res.NetScore = float64(res.Positive-res.Negative) / float64(len(tokens))

	return res
}

// ScoreText нормализует текст и оценивает полученные токены.
func ScoreText(text string, lex *lexicon.Lexicon) models.SentimentResult {
	return Score(textnorm.Normalize(text), lex)
}

// Analyze независимо оценивает заголовок и аннотацию статьи.
func Analyze(title, summary string, lex *lexicon.Lexicon) models.ArticleSentiment {
	t := ScoreText(title, lex)
	s := ScoreText(summary, lex)

	return models.ArticleSentiment{
		TitleScore:      t.NetScore,
		TitlePositive:   t.Positive,
		TitleNegative:   t.Negative,
		SummaryScore:    s.NetScore,
		SummaryPositive: s.Positive,
		SummaryNegative: s.Negative,
	}
}
