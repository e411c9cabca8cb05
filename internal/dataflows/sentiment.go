package dataflows

import (
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/jonreiter/govader"
)

const sentimentThreshold = 0.15

// Social sentiment methods accepted by the reddit.sentiment_method setting.
const (
	MethodSimple   = "simple"
	MethodVader    = "vader"
	MethodTextBlob = "textblob"
	MethodHybrid   = "hybrid"
)

var (
	vaderOnce     sync.Once
	vaderAnalyzer *govader.SentimentIntensityAnalyzer
)

// vader loads the lexicon on first use.
func vader() *govader.SentimentIntensityAnalyzer {
	vaderOnce.Do(func() {
		vaderAnalyzer = govader.NewSentimentIntensityAnalyzer()
	})
	return vaderAnalyzer
}

// News sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Social sentiment labels.
const (
	SentimentBullish = "bullish"
	SentimentBearish = "bearish"
)

var (
	newsPositiveWords = []string{"rise", "gain", "profit", "growth", "bull", "positive", "surge",
		"jump", "rally", "upgrade", "beat", "strong", "boost", "win"}
	newsNegativeWords = []string{"fall", "loss", "decline", "bear", "negative", "drop",
		"plunge", "downgrade", "miss", "weak", "concern", "risk"}

	socialBullishWords = []string{"buy", "bull", "calls", "moon", "rocket", "gain", "profit",
		"up", "rise", "surge", "rally", "strong", "bullish", "long"}
	socialBearishWords = []string{"sell", "bear", "puts", "crash", "loss", "down", "fall",
		"drop", "decline", "weak", "bearish", "short"}
)

// countSubstrings counts how many words occur anywhere in text (substring match).
func countSubstrings(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

// NewsSentiment classifies a headline plus description by keyword counts.
func NewsSentiment(text string) string {
	if text == "" {
		return SentimentNeutral
	}
	lower := strings.ToLower(text)
	pos := countSubstrings(lower, newsPositiveWords)
	neg := countSubstrings(lower, newsNegativeWords)
	switch {
	case pos > neg:
		return SentimentPositive
	case neg > pos:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// ScoreToNewsSentiment maps a provider score in [-1, 1] to a label.
func ScoreToNewsSentiment(score float64) string {
	switch {
	case score >= sentimentThreshold:
		return SentimentPositive
	case score <= -sentimentThreshold:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// ScoreToSocialSentiment maps a score in [-1, 1] to bullish, bearish or neutral.
func ScoreToSocialSentiment(score float64) string {
	switch {
	case score >= sentimentThreshold:
		return SentimentBullish
	case score <= -sentimentThreshold:
		return SentimentBearish
	default:
		return SentimentNeutral
	}
}

type SentimentResult struct {
	Score      float64 `json:"score"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

var (
	urlPattern        = regexp.MustCompile(`http\S+|www\S+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	markdownPattern   = regexp.MustCompile("[*_~`]")
)

// CleanText strips URLs and markdown emphasis and collapses whitespace.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = urlPattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = markdownPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// SocialSentiment scores a post by bullish/bearish keyword density.
func SocialSentiment(text string) SentimentResult {
	return SocialSentimentWith(MethodSimple, text)
}

// SocialSentimentWith scores a post with the given method. vader uses the
// VADER compound score and hybrid averages it with the keyword score.
// textblob has no Go implementation and, like unknown methods, falls back to
// the keyword score.
func SocialSentimentWith(method, text string) SentimentResult {
	if strings.TrimSpace(text) == "" {
		return SentimentResult{Label: SentimentNeutral}
	}
	cleaned := CleanText(text)

	var score float64
	switch strings.ToLower(method) {
	case MethodVader:
		score = vader().PolarityScores(cleaned).Compound
	case MethodHybrid:
		score = (vader().PolarityScores(cleaned).Compound + keywordScore(cleaned)) / 2
	default:
		score = keywordScore(cleaned)
	}
	return SentimentResult{
		Score:      score,
		Label:      ScoreToSocialSentiment(score),
		Confidence: math.Abs(score),
	}
}

func keywordScore(cleaned string) float64 {
	lower := strings.ToLower(cleaned)
	bullish := countSubstrings(lower, socialBullishWords)
	bearish := countSubstrings(lower, socialBearishWords)

	words := len(strings.Fields(cleaned))
	if words < 1 {
		words = 1
	}
	score := float64(bullish-bearish) / float64(words) * 5
	return math.Max(-1, math.Min(1, score))
}

// PostWeight is log(1 + upvotes + 2*comments + 10*awards) / 10, capped at 1.
func PostWeight(upvotes, comments, awards int) float64 {
	engagement := float64(upvotes + 2*comments + 10*awards)
	if engagement < 0 {
		engagement = 0
	}
	return math.Min(math.Log1p(engagement)/10, 1)
}

// ScorePosts fills in sentiment and weight for every post.
func ScorePosts(posts []RedditPost, method string) []RedditPost {
	for i := range posts {
		res := SocialSentimentWith(method, posts[i].Title+" "+posts[i].Text)
		posts[i].Sentiment = res.Label
		posts[i].SentimentScore = res.Score
		posts[i].Weight = PostWeight(posts[i].Score, posts[i].NumComments, posts[i].Awards)
	}
	return posts
}

type AggregateSentiment struct {
	AvgSentiment      float64 `json:"avg_sentiment"`
	WeightedSentiment float64 `json:"weighted_sentiment"`
	TotalPosts        int     `json:"total_posts"`
	BullishCount      int     `json:"bullish_count"`
	NeutralCount      int     `json:"neutral_count"`
	BearishCount      int     `json:"bearish_count"`
	TotalEngagement   int     `json:"total_engagement"`
	Label             string  `json:"label"`
}

// Aggregate summarises scored posts. Weighted sentiment is 0 when no post has engagement.
func Aggregate(posts []RedditPost) AggregateSentiment {
	agg := AggregateSentiment{Label: SentimentNeutral}
	if len(posts) == 0 {
		return agg
	}

	var sum, weighted, weights float64
	for _, p := range posts {
		sum += p.SentimentScore
		weighted += p.SentimentScore * p.Weight
		weights += p.Weight
		agg.TotalEngagement += p.Score + p.NumComments
		switch p.Sentiment {
		case SentimentBullish:
			agg.BullishCount++
		case SentimentBearish:
			agg.BearishCount++
		default:
			agg.NeutralCount++
		}
	}
	agg.TotalPosts = len(posts)
	agg.AvgSentiment = sum / float64(len(posts))
	if weights > 0 {
		agg.WeightedSentiment = weighted / weights
	}
	agg.Label = ScoreToSocialSentiment(agg.WeightedSentiment)
	return agg
}
