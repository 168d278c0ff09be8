package analysis

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonTokenChars = regexp.MustCompile(`[^\pL\pN\s]+`)
	linkPattern   = regexp.MustCompile(`(?i)(https?://|www\.)\S+`)
)

// lexicon is a weighted list of terms. Multi-word terms match as phrases.
type lexicon struct {
	weight float64
	terms  []string
}

// defaultLexicons is tuned for a family audience: mild profanity already
// draws a flag, threats and hate draw removal quickly.
var defaultLexicons = map[string]lexicon{
	CategoryProfanity: {0.3, []string{
		"damn", "crap", "hell", "wtf", "shit", "fuck", "fucking", "bastard", "bullshit",
	}},
	CategoryToxicity: {0.3, []string{
		"idiot", "idiots", "stupid", "moron", "pathetic", "trash", "garbage", "disgusting", "loser", "dumb", "worst people",
	}},
	CategoryHarassment: {0.35, []string{
		"shut up", "you suck", "nobody likes you", "i know where you live", "get lost", "kill yourself",
	}},
	CategoryHateSpeech: {0.5, []string{
		"subhuman", "vermin", "go back to your country", "those people", "their kind",
	}},
	CategoryViolence: {0.35, []string{
		"kill", "stab", "shoot", "burn it down", "beat you", "punch", "bomb",
	}},
	CategorySexual: {0.4, []string{
		"nsfw", "xxx", "porn", "nude", "nudes", "sexy",
	}},
	CategorySpam: {0.25, []string{
		"buy now", "click here", "free money", "promo code", "discount code", "visit my", "whatsapp", "crypto", "bitcoin", "dm me",
	}},
}

// Tokenize lower-cases text, strips diacritics and punctuation and splits
// on whitespace.
func Tokenize(text string) []string {
	// the transformer is stateful, build one per call
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	bare := strings.ToLower(nonTokenChars.ReplaceAllString(text, " "))
	normalized, _, err := transform.String(normFunc, bare)
	if err != nil {
		normalized = bare
	}
	return strings.Fields(normalized)
}

// KeywordAnalyzer scores content locally against per-category lexicons.
// It is deterministic and never fails on valid input.
type KeywordAnalyzer struct {
	lexicons map[string]lexicon
}

func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{lexicons: defaultLexicons}
}

func (k *KeywordAnalyzer) Name() string { return "keyword" }

func (k *KeywordAnalyzer) Analyze(ctx context.Context, content, contentType, contentID string) (*Result, error) {
	if err := (Input{Content: content, ContentType: contentType, ContentID: contentID}).Validate(); err != nil {
		return nil, err
	}

	links := linkPattern.FindAllString(content, -1)
	tokens := Tokenize(linkPattern.ReplaceAllString(content, " "))
	padded := " " + strings.Join(tokens, " ") + " "

	scores := make(map[string]float64, len(k.lexicons))
	matched := map[string][]string{}
	for cat, lex := range k.lexicons {
		hits := 0
		for _, term := range lex.terms {
			if n := strings.Count(padded, " "+term+" "); n > 0 {
				hits += n
				matched[cat] = append(matched[cat], term)
			}
		}
		scores[cat] = clamp01(float64(hits) * lex.weight)
	}

	if len(links) > 0 {
		scores[CategorySpam] = clamp01(scores[CategorySpam] + 0.3*float64(len(links)))
	}
	shouting := upperRatio(content)
	if shouting > 0.7 {
		scores[CategoryToxicity] = clamp01(scores[CategoryToxicity] + 0.2)
	}

	details := map[string]any{
		"tokens": len(tokens),
		"links":  len(links),
	}
	if len(matched) > 0 {
		details["matched_terms"] = matched
	}
	if shouting > 0.7 {
		details["shouting"] = true
	}
	return &Result{CategoryScores: scores, Details: details, Analyzer: k.Name()}, nil
}

// upperRatio is the share of upper-case letters; texts with fewer than ten
// letters return 0.
func upperRatio(s string) float64 {
	letters, upper := 0, 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters < 10 {
		return 0
	}
	return float64(upper) / float64(letters)
}
